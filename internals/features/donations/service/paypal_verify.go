package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Toleransi umur webhook. Lebih tua/lebih muda dari ini = kemungkinan replay.
const webhookTolerance = 5 * time.Minute

var (
	ErrWebhookSignature = errors.New("webhook signature mismatch")
	ErrWebhookTimestamp = errors.New("webhook timestamp outside tolerance")
)

// VerifyWebhookSignature memverifikasi webhook bergaya svix:
// HMAC-SHA256 atas "{id}.{timestamp}.{body}" dengan secret base64
// (prefix "whsec_" opsional). Header signature boleh berisi beberapa
// kandidat dipisah spasi, masing-masing berprefix "v1,". Perbandingan
// constant-time supaya tidak bocor lewat timing.
func VerifyWebhookSignature(secret, msgID, timestamp, signatureHeader string, body []byte) error {
	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, "whsec_"))
	if err != nil {
		return fmt.Errorf("decode webhook secret: %w", err)
	}

	if err := checkTimestamp(timestamp, time.Now()); err != nil {
		return err
	}

	mac := hmac.New(sha256.New, key)
	fmt.Fprintf(mac, "%s.%s.", msgID, timestamp)
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	for _, candidate := range strings.Fields(signatureHeader) {
		parts := strings.SplitN(candidate, ",", 2)
		if len(parts) != 2 || parts[0] != "v1" {
			continue
		}
		if hmac.Equal([]byte(parts[1]), []byte(expected)) {
			return nil
		}
	}
	return ErrWebhookSignature
}

func checkTimestamp(timestamp string, now time.Time) error {
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("parse webhook timestamp: %w", err)
	}
	diff := now.Unix() - ts
	if diff > int64(webhookTolerance.Seconds()) || diff < -int64(webhookTolerance.Seconds()) {
		return ErrWebhookTimestamp
	}
	return nil
}
