package controller

import (
	"encoding/json"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/stripe/stripe-go/v82/webhook"
	"gorm.io/gorm"

	"pantiku_backend/internals/configs"
	"pantiku_backend/internals/features/donations/service"
)

// WebhookController menerima push dari provider pembayaran. Aturan main:
// signature tidak valid → 400 dan tidak menyentuh apa pun; setelah signature
// lolos SELALU 2xx, apa pun hasil pemrosesan — ingestion duplicate-safe jadi
// retry provider tidak berbahaya, dan retry-storm karena error transient
// kita sendiri justru lebih mahal.
type WebhookController struct {
	Stripe   *service.StripeService
	PayPal   *service.PayPalService
	Midtrans *service.MidtransService
}

func NewWebhookController(db *gorm.DB) *WebhookController {
	rec := service.NewDonationReconciler(db)
	portal := service.NewPortalService(db)
	return &WebhookController{
		Stripe:   service.NewStripeService(rec),
		PayPal:   service.NewPayPalService(rec, portal),
		Midtrans: service.NewMidtransService(rec),
	}
}

// 🟢 STRIPE WEBHOOK
func (ctrl *WebhookController) HandleStripeWebhook(c *fiber.Ctx) error {
	payload := c.Body()
	sig := c.Get("Stripe-Signature")

	event, err := webhook.ConstructEventWithOptions(payload, sig, configs.StripeWebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		// sengaja tidak detail: signature gagal = bukan Stripe
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid signature"})
	}

	if err := ctrl.Stripe.HandleEvent(c.Context(), event); err != nil {
		log.Printf("[ERROR] stripe webhook %s (%s): %v", event.ID, event.Type, err)
	}
	return c.JSON(fiber.Map{"received": true})
}

// 🟢 PAYPAL WEBHOOK (svix-style HMAC)
func (ctrl *WebhookController) HandlePayPalWebhook(c *fiber.Ctx) error {
	body := c.Body()
	msgID := svixHeader(c, "id")
	timestamp := svixHeader(c, "timestamp")
	signature := svixHeader(c, "signature")

	if err := service.VerifyWebhookSignature(configs.PayPalWebhookSecret, msgID, timestamp, signature, body); err != nil {
		log.Printf("[WARN] paypal webhook ditolak: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid signature"})
	}

	if err := ctrl.PayPal.HandleWebhookEvent(c.Context(), body); err != nil {
		log.Printf("[ERROR] paypal webhook %s: %v", msgID, err)
	}
	return c.JSON(fiber.Map{"received": true})
}

// svixHeader: nama standar "svix-*", fallback alias "webhook-*" yang juga
// dipakai beberapa provider untuk scheme yang sama.
func svixHeader(c *fiber.Ctx, name string) string {
	if v := c.Get("svix-" + name); v != "" {
		return v
	}
	return c.Get("webhook-" + name)
}

// 🟢 MIDTRANS NOTIFICATION
func (ctrl *WebhookController) HandleMidtransNotification(c *fiber.Ctx) error {
	body := c.Body()

	var notif service.MidtransNotification
	if err := json.Unmarshal(body, &notif); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payload"})
	}
	if !ctrl.Midtrans.VerifySignature(notif) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid signature"})
	}

	if err := ctrl.Midtrans.HandleNotification(c.Context(), notif, body); err != nil {
		log.Printf("[ERROR] midtrans notification order=%s: %v", notif.OrderID, err)
	}
	return c.JSON(fiber.Map{"received": true})
}
