package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pantiku_backend/internals/features/donations/model"
)

func newPayPalTestService(t *testing.T) *PayPalService {
	t.Helper()
	// tanpa client REST dan tanpa portal: jalur webhook murni
	return &PayPalService{Rec: NewDonationReconciler(setupTestDB(t))}
}

const activatedEvent = `{
	"id": "WH-1",
	"event_type": "BILLING.SUBSCRIPTION.ACTIVATED",
	"resource": {
		"id": "I-SUB99",
		"subscriber": {
			"email_address": "donor@example.com",
			"name": {"given_name": "Jane", "surname": "Donor"}
		},
		"billing_info": {
			"last_payment": {"amount": {"currency_code": "USD", "value": "15.00"}}
		}
	}
}`

func TestPayPalSubscriptionActivated(t *testing.T) {
	svc := newPayPalTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.HandleWebhookEvent(ctx, []byte(activatedEvent)))
	// redelivery → no-op
	require.NoError(t, svc.HandleWebhookEvent(ctx, []byte(activatedEvent)))

	var rows []model.DonationModel
	require.NoError(t, svc.Rec.DB.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1500), rows[0].DonationAmount)
	assert.Equal(t, "usd", rows[0].DonationCurrency, "currency dinormalisasi lowercase")
	assert.Equal(t, "Jane Donor", rows[0].DonationDonorName)
	require.NotNil(t, rows[0].DonationSubscriptionID)
	assert.Equal(t, "I-SUB99", *rows[0].DonationSubscriptionID)
}

func saleEvent(saleID string) []byte {
	return []byte(`{
		"id": "WH-` + saleID + `",
		"event_type": "PAYMENT.SALE.COMPLETED",
		"resource": {
			"id": "` + saleID + `",
			"amount": {"total": "15.00", "currency": "USD"},
			"billing_agreement_id": "I-SUB99"
		}
	}`)
}

// Sale pertama setelah aktivasi = pembayaran yang sama dengan baris aktivasi,
// jangan dobel. Sale berikutnya dicatat sebagai renewal.
func TestPayPalFirstSaleAfterActivationSkipped(t *testing.T) {
	svc := newPayPalTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.HandleWebhookEvent(ctx, []byte(activatedEvent)))
	require.NoError(t, svc.HandleWebhookEvent(ctx, saleEvent("SALE-1")))

	var count int64
	svc.Rec.DB.Model(&model.DonationModel{}).Count(&count)
	assert.Equal(t, int64(1), count, "sale pertama di-skip")

	// baris aktivasi "menua" melewati jendela heuristik → sale berikutnya
	// adalah renewal beneran
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, svc.Rec.DB.Model(&model.DonationModel{}).
		Where("donation_provider_session_id = ?", "I-SUB99").
		Update("created_at", old).Error)

	require.NoError(t, svc.HandleWebhookEvent(ctx, saleEvent("SALE-2")))

	var rows []model.DonationModel
	require.NoError(t, svc.Rec.DB.Order("created_at asc").Find(&rows).Error)
	require.Len(t, rows, 2)
	require.NotNil(t, rows[1].DonationProviderEventID)
	assert.Equal(t, "SALE-2", *rows[1].DonationProviderEventID)
	assert.Equal(t, "donor@example.com", rows[1].DonationDonorEmail, "email diambil dari baris aktivasi")
}

func TestPayPalSubscriptionCancelled(t *testing.T) {
	svc := newPayPalTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.HandleWebhookEvent(ctx, []byte(activatedEvent)))

	cancelled := []byte(`{
		"id": "WH-C",
		"event_type": "BILLING.SUBSCRIPTION.CANCELLED",
		"resource": {"id": "I-SUB99"}
	}`)
	require.NoError(t, svc.HandleWebhookEvent(ctx, cancelled))

	var row model.DonationModel
	require.NoError(t, svc.Rec.DB.First(&row).Error)
	assert.Equal(t, model.StatusCancelled, row.DonationStatus)
}

func TestPayPalSaleWithoutAgreementIgnored(t *testing.T) {
	svc := newPayPalTestService(t)

	orphanSale := []byte(`{
		"id": "WH-X",
		"event_type": "PAYMENT.SALE.COMPLETED",
		"resource": {"id": "SALE-X", "amount": {"total": "5.00", "currency": "USD"}}
	}`)
	require.NoError(t, svc.HandleWebhookEvent(context.Background(), orphanSale))

	var count int64
	svc.Rec.DB.Model(&model.DonationModel{}).Count(&count)
	assert.Zero(t, count)
}

func TestMoneyHelpers(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"15.00", 1500},
		{"15", 1500},
		{"0.99", 99},
		{"10.5", 1050},
		{"10.555", 1055}, // presisi ekstra dibuang
		{"", 0},
		{"abc", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseMoney(tt.in), "parseMoney(%q)", tt.in)
	}

	assert.Equal(t, "15.00", formatMoney(1500))
	assert.Equal(t, "0.05", formatMoney(5))
}
