package dto

/* =========================================================
   Checkout requests (endpoint publik)
========================================================= */

type StripeCheckoutRequest struct {
	Amount     int64  `json:"amount" validate:"required,gt=0"` // minor units
	Currency   string `json:"currency" validate:"required,len=3"`
	Frequency  string `json:"frequency" validate:"required,oneof=one_time monthly yearly"`
	DonorEmail string `json:"donor_email" validate:"omitempty,email"`
	SuccessURL string `json:"success_url" validate:"required,url"`
	CancelURL  string `json:"cancel_url" validate:"required,url"`
}

type PayPalOrderRequest struct {
	Amount   int64  `json:"amount" validate:"required,gt=0"` // minor units
	Currency string `json:"currency" validate:"required,len=3"`
}

type PayPalCaptureRequest struct {
	OrderID string `json:"order_id" validate:"required"`
}

type PayPalSubscriptionRequest struct {
	PlanID     string `json:"plan_id" validate:"required"`
	DonorEmail string `json:"donor_email" validate:"omitempty,email"`
	SuccessURL string `json:"success_url" validate:"required,url"`
	CancelURL  string `json:"cancel_url" validate:"required,url"`
}

type MidtransCheckoutRequest struct {
	AmountIDR  int64  `json:"amount_idr" validate:"required,gt=0"`
	DonorName  string `json:"donor_name" validate:"omitempty,max=150"`
	DonorEmail string `json:"donor_email" validate:"omitempty,email"`
}
