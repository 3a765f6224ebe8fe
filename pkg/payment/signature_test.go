package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func signPayload(payload []byte, timestamp, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s.%s", timestamp, payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"type":"checkout.session.completed"}`)
	secret := "whsec_test"
	timestamp := "1693226400"

	header := fmt.Sprintf("t=%s,v1=%s", timestamp, signPayload(payload, timestamp, secret))
	assert.True(t, VerifySignature(payload, header, secret))
}

func TestVerifySignatureWrongSecret(t *testing.T) {
	payload := []byte(`{"type":"checkout.session.completed"}`)
	timestamp := "1693226400"

	header := fmt.Sprintf("t=%s,v1=%s", timestamp, signPayload(payload, timestamp, "whsec_other"))
	assert.False(t, VerifySignature(payload, header, "whsec_test"))
}

func TestVerifySignatureTamperedPayload(t *testing.T) {
	secret := "whsec_test"
	timestamp := "1693226400"
	header := fmt.Sprintf("t=%s,v1=%s", timestamp, signPayload([]byte(`{"tokens":500}`), timestamp, secret))

	assert.False(t, VerifySignature([]byte(`{"tokens":999999}`), header, secret))
}

func TestVerifySignatureAcceptsAnyMatchingV1(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	secret := "whsec_test"
	timestamp := "1693226400"

	header := fmt.Sprintf("t=%s,v1=%s,v1=%s",
		timestamp,
		signPayload(payload, timestamp, "whsec_rotated_out"),
		signPayload(payload, timestamp, secret))
	assert.True(t, VerifySignature(payload, header, secret))
}

func TestVerifySignatureMalformedHeader(t *testing.T) {
	payload := []byte(`{}`)

	assert.False(t, VerifySignature(payload, "", "whsec_test"))
	assert.False(t, VerifySignature(payload, "t=1693226400", "whsec_test"))
	assert.False(t, VerifySignature(payload, "v1=deadbeef", "whsec_test"))
	assert.False(t, VerifySignature(payload, "t=1693226400,v1=not-hex", "whsec_test"))
}
