package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	midtrans "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"

	"pantiku_backend/internals/configs"
	"pantiku_backend/internals/features/donations/model"
)

/* =========================================================
   Midtrans Client — kanal donasi lokal (IDR)
========================================================= */

var SnapClient snap.Client

// InitMidtrans harus dipanggil saat bootstrap app.
func InitMidtrans(serverKey string, useProduction bool) {
	if serverKey == "" {
		log.Println("[WARN] MIDTRANS_SERVER_KEY kosong, checkout Midtrans nonaktif")
		return
	}
	if useProduction {
		SnapClient.New(serverKey, midtrans.Production)
	} else {
		SnapClient.New(serverKey, midtrans.Sandbox)
	}
	log.Println("🔌 Midtrans snap client siap")
}

type MidtransService struct {
	Rec       *DonationReconciler
	ServerKey string
}

func NewMidtransService(rec *DonationReconciler) *MidtransService {
	return &MidtransService{Rec: rec, ServerKey: configs.MidtransServerKey}
}

/* =========================================================
   Snap token (checkout sinkron)
========================================================= */

// GenerateSnapToken membuat transaksi snap untuk donasi one-time IDR.
// orderID jadi dedup key di ledger saat notifikasi settlement masuk.
func (s *MidtransService) GenerateSnapToken(orderID string, amountIDR int64, donorName, donorEmail string) (token, redirectURL string, err error) {
	if s.ServerKey == "" {
		return "", "", errors.New("midtrans belum dikonfigurasi")
	}
	if amountIDR <= 0 {
		return "", "", errors.New("nominal donasi tidak valid")
	}
	if orderID == "" {
		return "", "", errors.New("order id wajib diisi")
	}

	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderID,
			GrossAmt: amountIDR,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: donorName,
			Email: donorEmail,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:       orderID,
				Price:    amountIDR,
				Qty:      1,
				Name:     "Donasi Pantiku",
				Category: "Donation",
			},
		},
	}

	resp, snapErr := SnapClient.CreateTransaction(req)
	if snapErr != nil {
		return "", "", snapErr
	}
	return resp.Token, resp.RedirectURL, nil
}

/* =========================================================
   Notification webhook
========================================================= */

type MidtransNotification struct {
	TransactionTime   string `json:"transaction_time"`
	TransactionStatus string `json:"transaction_status"` // capture, settlement, pending, deny, cancel, expire, refund
	StatusCode        string `json:"status_code"`
	SignatureKey      string `json:"signature_key"`
	OrderID           string `json:"order_id"`
	GrossAmount       string `json:"gross_amount"` // string dari Midtrans
	PaymentType       string `json:"payment_type"`
	FraudStatus       string `json:"fraud_status"`
	TransactionID     string `json:"transaction_id"`
	CustomField1      string `json:"custom_field1"` // donor name
	CustomField2      string `json:"custom_field2"` // donor email
}

// VerifySignature — SHA512(order_id + status_code + gross_amount + ServerKey),
// dibandingkan constant-time seperti jalur PayPal.
func (s *MidtransService) VerifySignature(notif MidtransNotification) bool {
	want := strings.ToLower(notif.SignatureKey)
	raw := notif.OrderID + notif.StatusCode + notif.GrossAmount + s.ServerKey
	sum := sha512.Sum512([]byte(raw))
	return want != "" && hmac.Equal([]byte(hex.EncodeToString(sum[:])), []byte(want))
}

// HandleNotification memetakan notifikasi Midtrans ke ledger donations.
// Settlement/capture(accept) → row completed (dedup by order id); refund →
// status refunded; status lain diabaikan.
func (s *MidtransService) HandleNotification(ctx context.Context, notif MidtransNotification, rawBody []byte) error {
	switch notif.TransactionStatus {

	case "settlement", "capture":
		if notif.TransactionStatus == "capture" && notif.FraudStatus != "accept" {
			s.Rec.LogGatewayEvent(ctx, model.ProviderMidtrans, notif.TransactionID, notif.TransactionStatus, model.EventIgnored, "fraud_status="+notif.FraudStatus, rawBody)
			return nil
		}
		created, err := s.Rec.RecordCheckout(ctx, CheckoutDonation{
			Provider:   model.ProviderMidtrans,
			SessionID:  notif.OrderID,
			DonorEmail: notif.CustomField2,
			DonorName:  notif.CustomField1,
			Amount:     grossToMinorIDR(notif.GrossAmount),
			Currency:   "idr",
			Frequency:  model.FrequencyOneTime,
		})
		if err != nil {
			s.Rec.LogGatewayEvent(ctx, model.ProviderMidtrans, notif.TransactionID, notif.TransactionStatus, model.EventFailed, err.Error(), rawBody)
			return err
		}
		status := model.EventProcessed
		if !created {
			status = model.EventDuplicated
		}
		s.Rec.LogGatewayEvent(ctx, model.ProviderMidtrans, notif.TransactionID, notif.TransactionStatus, status, "", rawBody)
		return nil

	case "refund", "partial_refund":
		found, err := s.Rec.MarkRefundedBySession(ctx, model.ProviderMidtrans, notif.OrderID)
		if err != nil {
			s.Rec.LogGatewayEvent(ctx, model.ProviderMidtrans, notif.TransactionID, notif.TransactionStatus, model.EventFailed, err.Error(), rawBody)
			return err
		}
		if !found {
			log.Printf("[WARN] midtrans: refund order %s tidak punya row ledger, di-drop", notif.OrderID)
			s.Rec.LogGatewayEvent(ctx, model.ProviderMidtrans, notif.TransactionID, notif.TransactionStatus, model.EventIgnored, "no ledger row", rawBody)
			return nil
		}
		s.Rec.LogGatewayEvent(ctx, model.ProviderMidtrans, notif.TransactionID, notif.TransactionStatus, model.EventProcessed, "", rawBody)
		return nil

	default:
		// pending/deny/cancel/expire: bukan pembayaran terkonfirmasi
		s.Rec.LogGatewayEvent(ctx, model.ProviderMidtrans, notif.TransactionID, notif.TransactionStatus, model.EventIgnored, fmt.Sprintf("status %s", notif.TransactionStatus), rawBody)
		return nil
	}
}

// Midtrans mengirim gross_amount sebagai string rupiah ("150000.00");
// ledger menyimpan minor units.
func grossToMinorIDR(gross string) int64 {
	amt, err := strconv.ParseFloat(gross, 64)
	if err != nil {
		return 0
	}
	return int64(amt*100 + 0.5)
}
