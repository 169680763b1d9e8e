package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"

	"pantiku_backend/internals/configs"
	"pantiku_backend/internals/features/donations/model"
)

// InitStripe men-set API key global stripe-go. Panggil sekali saat boot.
func InitStripe() {
	if configs.StripeSecretKey == "" {
		log.Println("[WARN] STRIPE_SECRET_KEY kosong, checkout Stripe nonaktif")
		return
	}
	stripe.Key = configs.StripeSecretKey
	log.Println("🔌 Stripe client siap")
}

type StripeService struct {
	Rec *DonationReconciler
}

func NewStripeService(rec *DonationReconciler) *StripeService {
	return &StripeService{Rec: rec}
}

/* =========================================================
   Checkout (sinkron, dipanggil endpoint donasi publik)
========================================================= */

type StripeCheckoutRequest struct {
	Amount     int64  // minor units
	Currency   string
	Frequency  string // one_time|monthly|yearly
	DonorEmail string
	SuccessURL string
	CancelURL  string
}

// CreateCheckoutSession membuat Stripe Checkout Session dan mengembalikan
// URL redirect-nya. Kegagalan provider dibiarkan naik ke caller (→ 502).
func (s *StripeService) CreateCheckoutSession(req StripeCheckoutRequest) (*stripe.CheckoutSession, error) {
	priceData := &stripe.CheckoutSessionLineItemPriceDataParams{
		Currency:   stripe.String(req.Currency),
		UnitAmount: stripe.Int64(req.Amount),
		ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String("Donasi Pantiku"),
		},
	}

	mode := stripe.CheckoutSessionModePayment
	switch req.Frequency {
	case model.FrequencyMonthly:
		mode = stripe.CheckoutSessionModeSubscription
		priceData.Recurring = &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
			Interval: stripe.String("month"),
		}
	case model.FrequencyYearly:
		mode = stripe.CheckoutSessionModeSubscription
		priceData.Recurring = &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
			Interval: stripe.String("year"),
		}
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(mode)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{PriceData: priceData, Quantity: stripe.Int64(1)},
		},
	}
	if req.DonorEmail != "" {
		params.CustomerEmail = stripe.String(req.DonorEmail)
	}
	params.AddMetadata("frequency", req.Frequency)

	return session.New(params)
}

/* =========================================================
   Webhook events
   Payload di-unmarshal ke struct lokal tipis, bukan tipe SDK,
   supaya tidak terikat churn versi API Stripe.
========================================================= */

type stripeCheckoutSession struct {
	ID              string `json:"id"`
	Mode            string `json:"mode"`
	Subscription    string `json:"subscription"`
	AmountTotal     int64  `json:"amount_total"`
	Currency        string `json:"currency"`
	CustomerEmail   string `json:"customer_email"`
	CustomerDetails struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"customer_details"`
	Metadata map[string]string `json:"metadata"`
}

type stripeInvoice struct {
	ID            string `json:"id"`
	BillingReason string `json:"billing_reason"`
	AmountPaid    int64  `json:"amount_paid"`
	Currency      string `json:"currency"`
	CustomerEmail string `json:"customer_email"`
	CustomerName  string `json:"customer_name"`
	Subscription  string `json:"subscription"`
	Parent        struct {
		SubscriptionDetails struct {
			Subscription string `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`
}

func (i stripeInvoice) subscriptionID() string {
	if i.Subscription != "" {
		return i.Subscription
	}
	return i.Parent.SubscriptionDetails.Subscription
}

type stripeCharge struct {
	ID            string `json:"id"`
	PaymentIntent string `json:"payment_intent"`
}

type stripeSubscription struct {
	ID string `json:"id"`
}

// HandleEvent memproses satu event Stripe yang sudah lolos verifikasi
// signature. Error yang keluar dari sini hanya untuk logging — endpoint
// tetap menjawab 200 supaya Stripe tidak retry-storm (ingestion sudah
// duplicate-safe, retry tidak berbahaya tapi juga tidak perlu).
func (s *StripeService) HandleEvent(ctx context.Context, event stripe.Event) error {
	switch string(event.Type) {

	case "checkout.session.completed":
		var cs stripeCheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			return fmt.Errorf("decode checkout.session: %w", err)
		}
		return s.handleCheckoutCompleted(ctx, cs, event)

	case "invoice.paid":
		var inv stripeInvoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return fmt.Errorf("decode invoice: %w", err)
		}
		return s.handleInvoicePaid(ctx, inv, event)

	case "charge.refunded":
		var ch stripeCharge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			return fmt.Errorf("decode charge: %w", err)
		}
		return s.handleChargeRefunded(ctx, ch, event)

	case "customer.subscription.deleted":
		var sub stripeSubscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("decode subscription: %w", err)
		}
		return s.handleSubscriptionDeleted(ctx, sub, event)

	default:
		s.Rec.LogGatewayEvent(ctx, model.ProviderStripe, event.ID, string(event.Type), model.EventIgnored, "unhandled type", event.Data.Raw)
		return nil
	}
}

func (s *StripeService) handleCheckoutCompleted(ctx context.Context, cs stripeCheckoutSession, event stripe.Event) error {
	email := cs.CustomerDetails.Email
	if email == "" {
		email = cs.CustomerEmail
	}
	frequency := cs.Metadata["frequency"]
	if frequency == "" && cs.Mode == "subscription" {
		frequency = model.FrequencyMonthly
	}
	var subID *string
	if cs.Subscription != "" {
		subID = &cs.Subscription
	}

	created, err := s.Rec.RecordCheckout(ctx, CheckoutDonation{
		Provider:       model.ProviderStripe,
		SessionID:      cs.ID,
		DonorEmail:     email,
		DonorName:      cs.CustomerDetails.Name,
		Amount:         cs.AmountTotal,
		Currency:       cs.Currency,
		Frequency:      frequency,
		SubscriptionID: subID,
	})
	if err != nil {
		s.Rec.LogGatewayEvent(ctx, model.ProviderStripe, event.ID, string(event.Type), model.EventFailed, err.Error(), event.Data.Raw)
		return err
	}
	status := model.EventProcessed
	if !created {
		status = model.EventDuplicated
	}
	s.Rec.LogGatewayEvent(ctx, model.ProviderStripe, event.ID, string(event.Type), status, "", event.Data.Raw)
	return nil
}

func (s *StripeService) handleInvoicePaid(ctx context.Context, inv stripeInvoice, event stripe.Event) error {
	// Invoice pertama subscription baru sudah tercatat lewat jalur
	// checkout.session.completed — jangan dobel.
	if inv.BillingReason == "subscription_create" {
		s.Rec.LogGatewayEvent(ctx, model.ProviderStripe, event.ID, string(event.Type), model.EventIgnored, "billing_reason=subscription_create", event.Data.Raw)
		return nil
	}

	var subID *string
	if sid := inv.subscriptionID(); sid != "" {
		subID = &sid
	}
	created, err := s.Rec.RecordRenewal(ctx, RenewalDonation{
		Provider:       model.ProviderStripe,
		EventID:        inv.ID,
		DonorEmail:     inv.CustomerEmail,
		DonorName:      inv.CustomerName,
		Amount:         inv.AmountPaid,
		Currency:       inv.Currency,
		Frequency:      model.FrequencyMonthly,
		SubscriptionID: subID,
	})
	if err != nil {
		s.Rec.LogGatewayEvent(ctx, model.ProviderStripe, event.ID, string(event.Type), model.EventFailed, err.Error(), event.Data.Raw)
		return err
	}
	status := model.EventProcessed
	if !created {
		status = model.EventDuplicated
	}
	s.Rec.LogGatewayEvent(ctx, model.ProviderStripe, event.ID, string(event.Type), status, "", event.Data.Raw)
	return nil
}

func (s *StripeService) handleChargeRefunded(ctx context.Context, ch stripeCharge, event stripe.Event) error {
	if ch.PaymentIntent == "" {
		s.Rec.LogGatewayEvent(ctx, model.ProviderStripe, event.ID, string(event.Type), model.EventIgnored, "charge tanpa payment_intent", event.Data.Raw)
		return nil
	}

	// Charge → payment intent → checkout session: butuh satu panggilan API.
	sessionID, err := s.lookupSessionByPaymentIntent(ch.PaymentIntent)
	if err != nil {
		s.Rec.LogGatewayEvent(ctx, model.ProviderStripe, event.ID, string(event.Type), model.EventFailed, err.Error(), event.Data.Raw)
		return fmt.Errorf("lookup session for pi %s: %w", ch.PaymentIntent, err)
	}
	if sessionID == "" {
		// known reconciliation gap: refund tanpa session yang cocok
		log.Printf("[WARN] stripe: refund charge %s tidak cocok dengan session mana pun, di-drop", ch.ID)
		s.Rec.LogGatewayEvent(ctx, model.ProviderStripe, event.ID, string(event.Type), model.EventIgnored, "no matching session", event.Data.Raw)
		return nil
	}

	found, err := s.Rec.MarkRefundedBySession(ctx, model.ProviderStripe, sessionID)
	if err != nil {
		s.Rec.LogGatewayEvent(ctx, model.ProviderStripe, event.ID, string(event.Type), model.EventFailed, err.Error(), event.Data.Raw)
		return err
	}
	if !found {
		log.Printf("[WARN] stripe: refund session %s tidak punya row ledger, di-drop", sessionID)
		s.Rec.LogGatewayEvent(ctx, model.ProviderStripe, event.ID, string(event.Type), model.EventIgnored, "no ledger row", event.Data.Raw)
		return nil
	}
	s.Rec.LogGatewayEvent(ctx, model.ProviderStripe, event.ID, string(event.Type), model.EventProcessed, "", event.Data.Raw)
	return nil
}

func (s *StripeService) handleSubscriptionDeleted(ctx context.Context, sub stripeSubscription, event stripe.Event) error {
	n, err := s.Rec.CancelBySubscription(ctx, model.ProviderStripe, sub.ID)
	if err != nil {
		s.Rec.LogGatewayEvent(ctx, model.ProviderStripe, event.ID, string(event.Type), model.EventFailed, err.Error(), event.Data.Raw)
		return err
	}
	log.Printf("[INFO] stripe: subscription %s berakhir, %d row ledger di-cancel", sub.ID, n)
	s.Rec.LogGatewayEvent(ctx, model.ProviderStripe, event.ID, string(event.Type), model.EventProcessed, fmt.Sprintf("%d rows cancelled", n), event.Data.Raw)
	return nil
}

func (s *StripeService) lookupSessionByPaymentIntent(paymentIntentID string) (string, error) {
	params := &stripe.CheckoutSessionListParams{
		PaymentIntent: stripe.String(paymentIntentID),
	}
	params.Limit = stripe.Int64(1)
	iter := session.List(params)
	for iter.Next() {
		return iter.CheckoutSession().ID, nil
	}
	return "", iter.Err()
}
