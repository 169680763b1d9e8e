package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/plutov/paypal/v4"

	"pantiku_backend/internals/configs"
	"pantiku_backend/internals/features/donations/model"
)

type PayPalService struct {
	Client *paypal.Client
	Rec    *DonationReconciler
	Portal *PortalService
}

// NewPayPalService membuat client REST PayPal. Credential kosong → client
// nil: webhook tetap jalan (verifikasi HMAC tidak butuh client), hanya
// checkout/enrichment yang nonaktif.
func NewPayPalService(rec *DonationReconciler, portal *PortalService) *PayPalService {
	svc := &PayPalService{Rec: rec, Portal: portal}

	if configs.PayPalClientID == "" || configs.PayPalClientSecret == "" {
		log.Println("[WARN] PAYPAL_CLIENT_ID/SECRET kosong, checkout PayPal nonaktif")
		return svc
	}

	base := configs.GetEnv("PAYPAL_API_BASE", paypal.APIBaseSandBox)
	client, err := paypal.NewClient(configs.PayPalClientID, configs.PayPalClientSecret, base)
	if err != nil {
		log.Printf("[ERROR] init PayPal client: %v", err)
		return svc
	}
	svc.Client = client
	log.Println("🔌 PayPal client siap")
	return svc
}

/* =========================================================
   Checkout (order one-time, sinkron)
========================================================= */

// CreateOrder membuat order capture-intent dan mengembalikan approval link.
func (s *PayPalService) CreateOrder(ctx context.Context, amount int64, currency string) (*paypal.Order, error) {
	if s.Client == nil {
		return nil, fmt.Errorf("paypal client belum dikonfigurasi")
	}
	units := []paypal.PurchaseUnitRequest{{
		Amount: &paypal.PurchaseUnitAmount{
			Currency: strings.ToUpper(currency),
			Value:    formatMoney(amount),
		},
		Description: "Donasi Pantiku",
	}}
	return s.Client.CreateOrder(ctx, paypal.OrderIntentCapture, units, nil, nil)
}

// CaptureOrder menagih order yang sudah di-approve donor, lalu langsung
// menulis ledger (dedup by order id — redirect ganda tidak menggandakan row).
func (s *PayPalService) CaptureOrder(ctx context.Context, orderID string) (*paypal.CaptureOrderResponse, error) {
	if s.Client == nil {
		return nil, fmt.Errorf("paypal client belum dikonfigurasi")
	}
	capture, err := s.Client.CaptureOrder(ctx, orderID, paypal.CaptureOrderRequest{})
	if err != nil {
		return nil, fmt.Errorf("capture order %s: %w", orderID, err)
	}

	amount, currency := capturedAmount(capture)
	email, name := capturedPayer(capture)
	if _, err := s.Rec.RecordCheckout(ctx, CheckoutDonation{
		Provider:   model.ProviderPayPal,
		SessionID:  capture.ID,
		DonorEmail: email,
		DonorName:  name,
		Amount:     amount,
		Currency:   currency,
		Frequency:  model.FrequencyOneTime,
	}); err != nil {
		return nil, err
	}
	return capture, nil
}

// CreateSubscription meng-enroll donor ke billing plan PayPal (plan dikelola
// di dashboard PayPal). Ledger TIDAK ditulis di sini: baris checkout baru
// dibuat saat webhook BILLING.SUBSCRIPTION.ACTIVATED masuk.
func (s *PayPalService) CreateSubscription(ctx context.Context, planID, donorEmail, returnURL, cancelURL string) (*paypal.SubscriptionDetailResp, error) {
	if s.Client == nil {
		return nil, fmt.Errorf("paypal client belum dikonfigurasi")
	}
	return s.Client.CreateSubscription(ctx, paypal.SubscriptionBase{
		PlanID:     planID,
		Subscriber: &paypal.Subscriber{EmailAddress: donorEmail},
		ApplicationContext: &paypal.ApplicationContext{
			ReturnURL: returnURL,
			CancelURL: cancelURL,
		},
	})
}

func capturedAmount(capture *paypal.CaptureOrderResponse) (int64, string) {
	for _, pu := range capture.PurchaseUnits {
		if pu.Payments == nil {
			continue
		}
		for _, pc := range pu.Payments.Captures {
			if pc.Amount != nil {
				return parseMoney(pc.Amount.Value), pc.Amount.Currency
			}
		}
	}
	return 0, ""
}

func capturedPayer(capture *paypal.CaptureOrderResponse) (email, name string) {
	if capture.Payer == nil {
		return "", ""
	}
	email = capture.Payer.EmailAddress
	if capture.Payer.Name != nil {
		name = strings.TrimSpace(capture.Payer.Name.GivenName + " " + capture.Payer.Name.Surname)
	}
	return email, name
}

/* =========================================================
   Webhook events
========================================================= */

type paypalWebhookEvent struct {
	ID        string          `json:"id"`
	EventType string          `json:"event_type"`
	Resource  json.RawMessage `json:"resource"`
}

type paypalSubscriptionResource struct {
	ID         string `json:"id"`
	Subscriber struct {
		EmailAddress string `json:"email_address"`
		Name         struct {
			GivenName string `json:"given_name"`
			Surname   string `json:"surname"`
		} `json:"name"`
	} `json:"subscriber"`
	BillingInfo struct {
		LastPayment struct {
			Amount struct {
				CurrencyCode string `json:"currency_code"`
				Value        string `json:"value"`
			} `json:"amount"`
		} `json:"last_payment"`
	} `json:"billing_info"`
}

type paypalSaleResource struct {
	ID     string `json:"id"`
	Amount struct {
		Total    string `json:"total"`
		Currency string `json:"currency"`
	} `json:"amount"`
	BillingAgreementID string `json:"billing_agreement_id"`
}

// HandleWebhookEvent memproses satu webhook PayPal yang sudah lolos
// verifikasi signature. Seperti jalur Stripe: error hanya untuk logging,
// endpoint tetap meng-ack supaya PayPal tidak retry-storm.
func (s *PayPalService) HandleWebhookEvent(ctx context.Context, body []byte) error {
	var event paypalWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("decode paypal event: %w", err)
	}

	switch event.EventType {

	case "BILLING.SUBSCRIPTION.ACTIVATED":
		var res paypalSubscriptionResource
		if err := json.Unmarshal(event.Resource, &res); err != nil {
			return fmt.Errorf("decode subscription resource: %w", err)
		}
		return s.handleSubscriptionActivated(ctx, res, event, body)

	case "PAYMENT.SALE.COMPLETED":
		var res paypalSaleResource
		if err := json.Unmarshal(event.Resource, &res); err != nil {
			return fmt.Errorf("decode sale resource: %w", err)
		}
		return s.handleSaleCompleted(ctx, res, event, body)

	case "BILLING.SUBSCRIPTION.CANCELLED", "BILLING.SUBSCRIPTION.SUSPENDED":
		var res paypalSubscriptionResource
		if err := json.Unmarshal(event.Resource, &res); err != nil {
			return fmt.Errorf("decode subscription resource: %w", err)
		}
		n, err := s.Rec.CancelBySubscription(ctx, model.ProviderPayPal, res.ID)
		if err != nil {
			s.Rec.LogGatewayEvent(ctx, model.ProviderPayPal, event.ID, event.EventType, model.EventFailed, err.Error(), body)
			return err
		}
		log.Printf("[INFO] paypal: subscription %s %s, %d row ledger di-cancel", res.ID, event.EventType, n)
		s.Rec.LogGatewayEvent(ctx, model.ProviderPayPal, event.ID, event.EventType, model.EventProcessed, fmt.Sprintf("%d rows cancelled", n), body)
		return nil

	default:
		s.Rec.LogGatewayEvent(ctx, model.ProviderPayPal, event.ID, event.EventType, model.EventIgnored, "unhandled type", body)
		return nil
	}
}

func (s *PayPalService) handleSubscriptionActivated(ctx context.Context, res paypalSubscriptionResource, event paypalWebhookEvent, body []byte) error {
	email := res.Subscriber.EmailAddress
	name := strings.TrimSpace(res.Subscriber.Name.GivenName + " " + res.Subscriber.Name.Surname)

	subID := res.ID
	created, err := s.Rec.RecordCheckout(ctx, CheckoutDonation{
		Provider:       model.ProviderPayPal,
		SessionID:      subID, // aktivasi = "session" PayPal
		DonorEmail:     email,
		DonorName:      name,
		Amount:         parseMoney(res.BillingInfo.LastPayment.Amount.Value),
		Currency:       res.BillingInfo.LastPayment.Amount.CurrencyCode,
		Frequency:      model.FrequencyMonthly,
		SubscriptionID: &subID,
	})
	if err != nil {
		s.Rec.LogGatewayEvent(ctx, model.ProviderPayPal, event.ID, event.EventType, model.EventFailed, err.Error(), body)
		return err
	}

	if created && s.Portal != nil && email != "" {
		// akun portal + welcome email: fire-and-forget, tidak pernah
		// menggagalkan webhook
		go s.Portal.ProvisionDonor(email, name)
	}

	status := model.EventProcessed
	if !created {
		status = model.EventDuplicated
	}
	s.Rec.LogGatewayEvent(ctx, model.ProviderPayPal, event.ID, event.EventType, status, "", body)
	return nil
}

func (s *PayPalService) handleSaleCompleted(ctx context.Context, res paypalSaleResource, event paypalWebhookEvent, body []byte) error {
	subID := res.BillingAgreementID
	if subID == "" {
		s.Rec.LogGatewayEvent(ctx, model.ProviderPayPal, event.ID, event.EventType, model.EventIgnored, "sale tanpa billing_agreement_id", body)
		return nil
	}

	// PayPal tidak punya billing_reason: sale pertama setelah aktivasi sudah
	// tercatat lewat BILLING.SUBSCRIPTION.ACTIVATED. Heuristik: kalau baris
	// aktivasi subscription ini masih muda (<24 jam) dan belum ada renewal,
	// sale ini dianggap pembayaran pertama dan di-skip.
	if s.isFirstSaleAfterActivation(ctx, subID) {
		s.Rec.LogGatewayEvent(ctx, model.ProviderPayPal, event.ID, event.EventType, model.EventIgnored, "first sale after activation", body)
		return nil
	}

	created, err := s.Rec.RecordRenewal(ctx, RenewalDonation{
		Provider:       model.ProviderPayPal,
		EventID:        res.ID,
		DonorEmail:     s.donorEmailBySubscription(ctx, subID),
		Amount:         parseMoney(res.Amount.Total),
		Currency:       res.Amount.Currency,
		Frequency:      model.FrequencyMonthly,
		SubscriptionID: &subID,
	})
	if err != nil {
		s.Rec.LogGatewayEvent(ctx, model.ProviderPayPal, event.ID, event.EventType, model.EventFailed, err.Error(), body)
		return err
	}
	status := model.EventProcessed
	if !created {
		status = model.EventDuplicated
	}
	s.Rec.LogGatewayEvent(ctx, model.ProviderPayPal, event.ID, event.EventType, status, "", body)
	return nil
}

func (s *PayPalService) isFirstSaleAfterActivation(ctx context.Context, subID string) bool {
	var origin model.DonationModel
	err := s.Rec.DB.WithContext(ctx).
		First(&origin, "donation_provider = ? AND donation_provider_session_id = ?", model.ProviderPayPal, subID).Error
	if err != nil {
		return false
	}

	var renewals int64
	s.Rec.DB.WithContext(ctx).Model(&model.DonationModel{}).
		Where("donation_provider = ? AND donation_subscription_id = ? AND donation_provider_event_id IS NOT NULL",
			model.ProviderPayPal, subID).
		Count(&renewals)

	return renewals == 0 && origin.AgeHours() < 24
}

// donorEmailBySubscription mengambil email dari baris aktivasi (sale event
// PayPal tidak membawa email); baris tidak ada → kosong saja.
func (s *PayPalService) donorEmailBySubscription(ctx context.Context, subID string) string {
	var origin model.DonationModel
	err := s.Rec.DB.WithContext(ctx).
		First(&origin, "donation_provider = ? AND donation_provider_session_id = ?", model.ProviderPayPal, subID).Error
	if err != nil {
		return ""
	}
	return origin.DonationDonorEmail
}

/* =========================================================
   Money helpers — PayPal memakai string desimal ("10.00")
========================================================= */

func parseMoney(value string) int64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	parts := strings.SplitN(value, ".", 2)
	major, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0
	}
	var minor int64
	if len(parts) == 2 {
		frac := parts[1]
		if len(frac) > 2 {
			frac = frac[:2]
		}
		for len(frac) < 2 {
			frac += "0"
		}
		minor, _ = strconv.ParseInt(frac, 10, 64)
	}
	return major*100 + minor
}

func formatMoney(minor int64) string {
	return fmt.Sprintf("%d.%02d", minor/100, minor%100)
}
