package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testWebhookKey = []byte("super-secret-webhook-key-32bytes")

func testSecret() string {
	return "whsec_" + base64.StdEncoding.EncodeToString(testWebhookKey)
}

func signPayload(t *testing.T, msgID, timestamp string, body []byte) string {
	t.Helper()
	mac := hmac.New(sha256.New, testWebhookKey)
	fmt.Fprintf(mac, "%s.%s.", msgID, timestamp)
	mac.Write(body)
	return "v1," + base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func freshTimestamp() string {
	return fmt.Sprintf("%d", time.Now().Unix())
}

func TestVerifyWebhookSignatureValid(t *testing.T) {
	body := []byte(`{"event_type":"BILLING.SUBSCRIPTION.ACTIVATED"}`)
	ts := freshTimestamp()
	sig := signPayload(t, "msg_1", ts, body)

	err := VerifyWebhookSignature(testSecret(), "msg_1", ts, sig, body)
	assert.NoError(t, err)
}

// Secret tanpa prefix whsec_ juga diterima.
func TestVerifyWebhookSignatureNoPrefix(t *testing.T) {
	body := []byte(`{}`)
	ts := freshTimestamp()
	sig := signPayload(t, "msg_1", ts, body)

	secret := base64.StdEncoding.EncodeToString(testWebhookKey)
	assert.NoError(t, VerifyWebhookSignature(secret, "msg_1", ts, sig, body))
}

func TestVerifyWebhookSignatureTamperedBody(t *testing.T) {
	ts := freshTimestamp()
	sig := signPayload(t, "msg_1", ts, []byte(`{"amount":"10.00"}`))

	err := VerifyWebhookSignature(testSecret(), "msg_1", ts, sig, []byte(`{"amount":"9999.00"}`))
	assert.ErrorIs(t, err, ErrWebhookSignature)
}

func TestVerifyWebhookSignatureWrongMsgID(t *testing.T) {
	body := []byte(`{}`)
	ts := freshTimestamp()
	sig := signPayload(t, "msg_1", ts, body)

	err := VerifyWebhookSignature(testSecret(), "msg_OTHER", ts, sig, body)
	assert.ErrorIs(t, err, ErrWebhookSignature)
}

// Header boleh membawa beberapa kandidat; satu yang cocok sudah cukup.
func TestVerifyWebhookSignatureMultipleCandidates(t *testing.T) {
	body := []byte(`{}`)
	ts := freshTimestamp()
	good := signPayload(t, "msg_1", ts, body)
	header := "v1,bm90LXRoZS1yaWdodC1zaWc= " + good + " v2,aWdub3JlZA=="

	assert.NoError(t, VerifyWebhookSignature(testSecret(), "msg_1", ts, header, body))
}

// Timestamp di luar jendela toleransi = kemungkinan replay.
func TestVerifyWebhookSignatureStaleTimestamp(t *testing.T) {
	body := []byte(`{}`)
	stale := fmt.Sprintf("%d", time.Now().Add(-10*time.Minute).Unix())
	sig := signPayload(t, "msg_1", stale, body)

	err := VerifyWebhookSignature(testSecret(), "msg_1", stale, sig, body)
	assert.ErrorIs(t, err, ErrWebhookTimestamp)

	future := fmt.Sprintf("%d", time.Now().Add(10*time.Minute).Unix())
	sig = signPayload(t, "msg_1", future, body)
	err = VerifyWebhookSignature(testSecret(), "msg_1", future, sig, body)
	assert.ErrorIs(t, err, ErrWebhookTimestamp)
}

func TestVerifyWebhookSignatureBadSecret(t *testing.T) {
	body := []byte(`{}`)
	ts := freshTimestamp()
	sig := signPayload(t, "msg_1", ts, body)

	err := VerifyWebhookSignature("whsec_%%%notbase64%%%", "msg_1", ts, sig, body)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrWebhookSignature)
}
