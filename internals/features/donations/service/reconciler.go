package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"pantiku_backend/internals/features/donations/model"
)

// DonationReconciler menulis webhook provider mana pun ke ledger donations,
// tepat satu row per logical payment event. Tanpa locking: idempotensi lewat
// lookup-before-insert pada kolom dedup unik (session id / event id);
// duplicate delivery = no-op, bukan error.
type DonationReconciler struct {
	DB *gorm.DB
}

func NewDonationReconciler(db *gorm.DB) *DonationReconciler {
	return &DonationReconciler{DB: db}
}

// CheckoutDonation: bahan satu row ledger dari checkout yang selesai.
type CheckoutDonation struct {
	Provider       string
	SessionID      string
	DonorEmail     string
	DonorName      string
	Amount         int64 // minor units
	Currency       string
	Frequency      string
	SubscriptionID *string
}

// RenewalDonation: bahan satu row renewal dari invoice/sale event.
type RenewalDonation struct {
	Provider       string
	EventID        string
	DonorEmail     string
	DonorName      string
	Amount         int64
	Currency       string
	Frequency      string
	SubscriptionID *string
}

// RecordCheckout menulis donasi hasil checkout. created=false artinya
// delivery duplikat (row untuk session id itu sudah ada).
func (r *DonationReconciler) RecordCheckout(ctx context.Context, d CheckoutDonation) (created bool, err error) {
	if d.SessionID == "" {
		return false, errors.New("checkout tanpa session id")
	}

	var existing model.DonationModel
	lookErr := r.DB.WithContext(ctx).
		First(&existing, "donation_provider = ? AND donation_provider_session_id = ?", d.Provider, d.SessionID).Error
	if lookErr == nil {
		log.Printf("[INFO] donations: duplicate checkout %s/%s, no-op", d.Provider, d.SessionID)
		return false, nil
	}
	if !errors.Is(lookErr, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("lookup checkout: %w", lookErr)
	}

	frequency := d.Frequency
	if frequency == "" {
		frequency = model.FrequencyOneTime
	}
	row := model.DonationModel{
		DonationProvider:          d.Provider,
		DonationProviderSessionID: &d.SessionID,
		DonationSubscriptionID:    d.SubscriptionID,
		DonationDonorEmail:        d.DonorEmail,
		DonationDonorName:         d.DonorName,
		DonationAmount:            d.Amount,
		DonationCurrency:          strings.ToLower(d.Currency), // ledger konsisten lowercase lintas provider
		DonationFrequency:         frequency,
		DonationStatus:            model.StatusCompleted,
	}
	if err := r.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return false, fmt.Errorf("insert checkout donation: %w", err)
	}
	log.Printf("✅ donations: checkout %s/%s tercatat (%d %s)", d.Provider, d.SessionID, d.Amount, d.Currency)
	return true, nil
}

// RecordRenewal menulis row renewal subscription. Dedup by provider+event id.
func (r *DonationReconciler) RecordRenewal(ctx context.Context, d RenewalDonation) (created bool, err error) {
	if d.EventID == "" {
		return false, errors.New("renewal tanpa event id")
	}

	var existing model.DonationModel
	lookErr := r.DB.WithContext(ctx).
		First(&existing, "donation_provider = ? AND donation_provider_event_id = ?", d.Provider, d.EventID).Error
	if lookErr == nil {
		log.Printf("[INFO] donations: duplicate renewal %s/%s, no-op", d.Provider, d.EventID)
		return false, nil
	}
	if !errors.Is(lookErr, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("lookup renewal: %w", lookErr)
	}

	frequency := d.Frequency
	if frequency == "" {
		frequency = model.FrequencyMonthly
	}
	row := model.DonationModel{
		DonationProvider:        d.Provider,
		DonationProviderEventID: &d.EventID,
		DonationSubscriptionID:  d.SubscriptionID,
		DonationDonorEmail:      d.DonorEmail,
		DonationDonorName:       d.DonorName,
		DonationAmount:          d.Amount,
		DonationCurrency:        strings.ToLower(d.Currency),
		DonationFrequency:       frequency,
		DonationStatus:          model.StatusCompleted,
	}
	if err := r.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return false, fmt.Errorf("insert renewal donation: %w", err)
	}
	log.Printf("✅ donations: renewal %s/%s tercatat (%d %s)", d.Provider, d.EventID, d.Amount, d.Currency)
	return true, nil
}

// MarkRefundedBySession mengubah status row checkout ke refunded.
// found=false = tidak ada row untuk session itu (reconciliation gap,
// caller yang memutuskan log-and-drop).
func (r *DonationReconciler) MarkRefundedBySession(ctx context.Context, provider, sessionID string) (found bool, err error) {
	res := r.DB.WithContext(ctx).
		Model(&model.DonationModel{}).
		Where("donation_provider = ? AND donation_provider_session_id = ? AND donation_status = ?",
			provider, sessionID, model.StatusCompleted).
		Update("donation_status", model.StatusRefunded)
	if res.Error != nil {
		return false, fmt.Errorf("mark refunded: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// CancelBySubscription menandai semua row completed milik satu subscription
// sebagai cancelled (forward-looking; row refunded tidak disentuh).
func (r *DonationReconciler) CancelBySubscription(ctx context.Context, provider, subscriptionID string) (int64, error) {
	res := r.DB.WithContext(ctx).
		Model(&model.DonationModel{}).
		Where("donation_provider = ? AND donation_subscription_id = ? AND donation_status = ?",
			provider, subscriptionID, model.StatusCompleted).
		Update("donation_status", model.StatusCancelled)
	if res.Error != nil {
		return 0, fmt.Errorf("cancel subscription rows: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// LogGatewayEvent menulis audit trail webhook. Best-effort: gagal menulis
// audit tidak boleh menggagalkan pemrosesan webhook itu sendiri.
func (r *DonationReconciler) LogGatewayEvent(ctx context.Context, provider, externalID, eventType, status, note string, payload []byte) {
	row := model.PaymentGatewayEventModel{
		PaymentGatewayEventProvider:   provider,
		PaymentGatewayEventExternalID: externalID,
		PaymentGatewayEventType:       eventType,
		PaymentGatewayEventStatus:     status,
		PaymentGatewayEventNote:       note,
		PaymentGatewayEventPayload:    datatypes.JSON(payload),
	}
	if err := r.DB.WithContext(ctx).Create(&row).Error; err != nil {
		log.Printf("[WARN] donations: gagal menulis audit event %s/%s: %v", provider, externalID, err)
	}
}
