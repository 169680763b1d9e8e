package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"

	"pantiku_backend/internals/features/donations/model"
)

func stripeEvent(id, eventType, raw string) stripe.Event {
	return stripe.Event{
		ID:   id,
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{Raw: json.RawMessage(raw)},
	}
}

func TestStripeCheckoutSessionCompleted(t *testing.T) {
	svc := NewStripeService(NewDonationReconciler(setupTestDB(t)))
	ctx := context.Background()

	event := stripeEvent("evt_1", "checkout.session.completed", `{
		"id": "cs_test_123",
		"mode": "payment",
		"amount_total": 5000,
		"currency": "usd",
		"customer_details": {"email": "donor@example.com", "name": "Jane Donor"},
		"metadata": {"frequency": "one_time"}
	}`)

	require.NoError(t, svc.HandleEvent(ctx, event))
	// delivery kedua: no-op
	require.NoError(t, svc.HandleEvent(ctx, event))

	var rows []model.DonationModel
	require.NoError(t, svc.Rec.DB.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(5000), rows[0].DonationAmount)
	assert.Equal(t, "donor@example.com", rows[0].DonationDonorEmail)
	require.NotNil(t, rows[0].DonationProviderSessionID)
	assert.Equal(t, "cs_test_123", *rows[0].DonationProviderSessionID)
}

// Invoice pertama subscription baru TIDAK dicatat (sudah lewat checkout);
// siklus berikutnya dicatat sebagai renewal.
func TestStripeInvoicePaidSkipsSubscriptionCreate(t *testing.T) {
	svc := NewStripeService(NewDonationReconciler(setupTestDB(t)))
	ctx := context.Background()

	first := stripeEvent("evt_2", "invoice.paid", `{
		"id": "in_first",
		"billing_reason": "subscription_create",
		"amount_paid": 1500,
		"currency": "usd",
		"subscription": "sub_42"
	}`)
	require.NoError(t, svc.HandleEvent(ctx, first))

	var count int64
	svc.Rec.DB.Model(&model.DonationModel{}).Count(&count)
	assert.Zero(t, count, "subscription_create di-skip")

	cycle := stripeEvent("evt_3", "invoice.paid", `{
		"id": "in_cycle",
		"billing_reason": "subscription_cycle",
		"amount_paid": 1500,
		"currency": "usd",
		"customer_email": "donor@example.com",
		"subscription": "sub_42"
	}`)
	require.NoError(t, svc.HandleEvent(ctx, cycle))
	require.NoError(t, svc.HandleEvent(ctx, cycle)) // redelivery

	var rows []model.DonationModel
	require.NoError(t, svc.Rec.DB.Find(&rows).Error)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].DonationProviderEventID)
	assert.Equal(t, "in_cycle", *rows[0].DonationProviderEventID)
	require.NotNil(t, rows[0].DonationSubscriptionID)
	assert.Equal(t, "sub_42", *rows[0].DonationSubscriptionID)
}

// Payload API baru menaruh subscription id di parent.subscription_details.
func TestStripeInvoiceSubscriptionIDFallback(t *testing.T) {
	var inv stripeInvoice
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": "in_x",
		"parent": {"subscription_details": {"subscription": "sub_new_style"}}
	}`), &inv))
	assert.Equal(t, "sub_new_style", inv.subscriptionID())

	require.NoError(t, json.Unmarshal([]byte(`{"id":"in_y","subscription":"sub_old_style"}`), &inv))
	assert.Equal(t, "sub_old_style", inv.subscriptionID())
}

func TestStripeSubscriptionDeletedCancelsRows(t *testing.T) {
	svc := NewStripeService(NewDonationReconciler(setupTestDB(t)))
	ctx := context.Background()
	sub := "sub_42"

	_, err := svc.Rec.RecordCheckout(ctx, CheckoutDonation{
		Provider:       model.ProviderStripe,
		SessionID:      "cs_sub",
		Amount:         1500,
		Currency:       "usd",
		Frequency:      model.FrequencyMonthly,
		SubscriptionID: &sub,
	})
	require.NoError(t, err)

	event := stripeEvent("evt_4", "customer.subscription.deleted", `{"id": "sub_42"}`)
	require.NoError(t, svc.HandleEvent(ctx, event))

	var row model.DonationModel
	require.NoError(t, svc.Rec.DB.First(&row).Error)
	assert.Equal(t, model.StatusCancelled, row.DonationStatus)
}

// Event yang tidak ditangani tetap masuk audit trail sebagai ignored.
func TestStripeUnhandledEventAudited(t *testing.T) {
	svc := NewStripeService(NewDonationReconciler(setupTestDB(t)))

	event := stripeEvent("evt_5", "payment_intent.created", `{"id": "pi_1"}`)
	require.NoError(t, svc.HandleEvent(context.Background(), event))

	var audit model.PaymentGatewayEventModel
	require.NoError(t, svc.Rec.DB.First(&audit).Error)
	assert.Equal(t, model.EventIgnored, audit.PaymentGatewayEventStatus)
	assert.Equal(t, "evt_5", audit.PaymentGatewayEventExternalID)
}
