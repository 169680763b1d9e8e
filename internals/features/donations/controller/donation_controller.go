package controller

import (
	"fmt"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	helper "pantiku_backend/internals/helpers"
	helperAuth "pantiku_backend/internals/helpers/auth"

	"pantiku_backend/internals/constants"
	"pantiku_backend/internals/features/donations/dto"
	"pantiku_backend/internals/features/donations/model"
	"pantiku_backend/internals/features/donations/service"
)

type DonationController struct {
	DB       *gorm.DB
	Stripe   *service.StripeService
	PayPal   *service.PayPalService
	Midtrans *service.MidtransService
	Validate *validator.Validate
}

func NewDonationController(db *gorm.DB) *DonationController {
	rec := service.NewDonationReconciler(db)
	portal := service.NewPortalService(db)
	return &DonationController{
		DB:       db,
		Stripe:   service.NewStripeService(rec),
		PayPal:   service.NewPayPalService(rec, portal),
		Midtrans: service.NewMidtransService(rec),
		Validate: validator.New(),
	}
}

/* =========================================================
   Checkout (publik, sinkron) — kegagalan provider = 502
========================================================= */

// 🟢 STRIPE CHECKOUT SESSION
func (ctrl *DonationController) CreateStripeCheckout(c *fiber.Ctx) error {
	var body dto.StripeCheckoutRequest
	if err := c.BodyParser(&body); err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "Invalid request")
	}
	if err := ctrl.Validate.Struct(&body); err != nil {
		return helper.ValidationError(c, err)
	}

	sess, err := ctrl.Stripe.CreateCheckoutSession(service.StripeCheckoutRequest{
		Amount:     body.Amount,
		Currency:   body.Currency,
		Frequency:  body.Frequency,
		DonorEmail: body.DonorEmail,
		SuccessURL: body.SuccessURL,
		CancelURL:  body.CancelURL,
	})
	if err != nil {
		log.Printf("[ERROR] stripe checkout: %v", err)
		return helper.ErrorWithDetails(c, fiber.StatusBadGateway, "Stripe menolak pembuatan checkout", err.Error())
	}

	return helper.SuccessWithCode(c, fiber.StatusCreated, "Checkout session dibuat", fiber.Map{
		"session_id":   sess.ID,
		"checkout_url": sess.URL,
	})
}

// 🟢 PAYPAL ORDER
func (ctrl *DonationController) CreatePayPalOrder(c *fiber.Ctx) error {
	var body dto.PayPalOrderRequest
	if err := c.BodyParser(&body); err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "Invalid request")
	}
	if err := ctrl.Validate.Struct(&body); err != nil {
		return helper.ValidationError(c, err)
	}

	order, err := ctrl.PayPal.CreateOrder(c.Context(), body.Amount, body.Currency)
	if err != nil {
		log.Printf("[ERROR] paypal create order: %v", err)
		return helper.ErrorWithDetails(c, fiber.StatusBadGateway, "PayPal menolak pembuatan order", err.Error())
	}

	return helper.SuccessWithCode(c, fiber.StatusCreated, "PayPal order dibuat", fiber.Map{
		"order_id": order.ID,
		"links":    order.Links,
	})
}

// 🟢 PAYPAL CAPTURE (setelah donor approve)
func (ctrl *DonationController) CapturePayPalOrder(c *fiber.Ctx) error {
	var body dto.PayPalCaptureRequest
	if err := c.BodyParser(&body); err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "Invalid request")
	}
	if err := ctrl.Validate.Struct(&body); err != nil {
		return helper.ValidationError(c, err)
	}

	capture, err := ctrl.PayPal.CaptureOrder(c.Context(), body.OrderID)
	if err != nil {
		log.Printf("[ERROR] paypal capture: %v", err)
		return helper.ErrorWithDetails(c, fiber.StatusBadGateway, "PayPal gagal menagih order", err.Error())
	}

	return helper.Success(c, "Donasi berhasil", fiber.Map{
		"order_id": capture.ID,
		"status":   capture.Status,
	})
}

// 🟢 PAYPAL SUBSCRIPTION (donasi bulanan; ledger nunggu webhook ACTIVATED)
func (ctrl *DonationController) CreatePayPalSubscription(c *fiber.Ctx) error {
	var body dto.PayPalSubscriptionRequest
	if err := c.BodyParser(&body); err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "Invalid request")
	}
	if err := ctrl.Validate.Struct(&body); err != nil {
		return helper.ValidationError(c, err)
	}

	sub, err := ctrl.PayPal.CreateSubscription(c.Context(), body.PlanID, body.DonorEmail, body.SuccessURL, body.CancelURL)
	if err != nil {
		log.Printf("[ERROR] paypal create subscription: %v", err)
		return helper.ErrorWithDetails(c, fiber.StatusBadGateway, "PayPal menolak pembuatan subscription", err.Error())
	}

	return helper.SuccessWithCode(c, fiber.StatusCreated, "PayPal subscription dibuat", fiber.Map{
		"subscription_id": sub.ID,
		"status":          sub.SubscriptionStatus,
		"links":           sub.Links,
	})
}

// 🟢 MIDTRANS SNAP TOKEN (donatur lokal, IDR)
func (ctrl *DonationController) CreateMidtransCheckout(c *fiber.Ctx) error {
	var body dto.MidtransCheckoutRequest
	if err := c.BodyParser(&body); err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "Invalid request")
	}
	if err := ctrl.Validate.Struct(&body); err != nil {
		return helper.ValidationError(c, err)
	}

	orderID := fmt.Sprintf("don-%s-%d", uuid.NewString()[:8], time.Now().Unix())
	token, redirectURL, err := ctrl.Midtrans.GenerateSnapToken(orderID, body.AmountIDR, body.DonorName, body.DonorEmail)
	if err != nil {
		log.Printf("[ERROR] midtrans snap: %v", err)
		return helper.ErrorWithDetails(c, fiber.StatusBadGateway, "Midtrans menolak pembuatan transaksi", err.Error())
	}

	return helper.SuccessWithCode(c, fiber.StatusCreated, "Snap token dibuat", fiber.Map{
		"order_id":     orderID,
		"snap_token":   token,
		"redirect_url": redirectURL,
	})
}

/* =========================================================
   Admin — ledger view
========================================================= */

// 🟢 GET ALL DONATIONS (admin dashboard)
func (ctrl *DonationController) GetAllDonations(c *fiber.Ctx) error {
	if !helperAuth.HasPermission(helperAuth.GetRoles(c), constants.PermDonationsView) {
		return helper.Error(c, fiber.StatusForbidden, "Tidak punya akses melihat donasi")
	}

	q := ctrl.DB.Model(&model.DonationModel{})
	if p := c.Query("provider"); p != "" {
		q = q.Where("donation_provider = ?", p)
	}
	if s := c.Query("status"); s != "" {
		q = q.Where("donation_status = ?", s)
	}

	var list []model.DonationModel
	if err := q.Order("created_at desc").Limit(200).Find(&list).Error; err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Gagal mengambil data donasi")
	}
	return helper.Success(c, "OK", list)
}

// 🟢 GET GATEWAY EVENTS (audit trail webhook)
func (ctrl *DonationController) GetGatewayEvents(c *fiber.Ctx) error {
	if !helperAuth.HasPermission(helperAuth.GetRoles(c), constants.PermDonationsView) {
		return helper.Error(c, fiber.StatusForbidden, "Tidak punya akses melihat event gateway")
	}

	var list []model.PaymentGatewayEventModel
	if err := ctrl.DB.Order("created_at desc").Limit(200).Find(&list).Error; err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Gagal mengambil event gateway")
	}
	return helper.Success(c, "OK", list)
}
