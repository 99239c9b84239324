package provider

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// SignatureHeader is the HTTP header carrying the webhook signature.
const SignatureHeader = "X-Scribeline-Signature"

// VerifySignature checks an HMAC-SHA256 signature over the raw request body.
// The header value may carry a "sha256=" prefix. A missing signature, missing
// secret, or malformed hex encoding verifies as false; this function never
// returns an error.
func VerifySignature(rawBody []byte, signatureHeader, secret string) bool {
	if signatureHeader == "" || secret == "" {
		return false
	}

	sigHex := strings.TrimPrefix(signatureHeader, "sha256=")
	got, err := hex.DecodeString(sigHex)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	want := mac.Sum(nil)

	return hmac.Equal(got, want)
}

// SignPayload computes the hex-encoded HMAC-SHA256 signature for a body.
// Used by tests and by outbound notification signing.
func SignPayload(rawBody []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	return hex.EncodeToString(mac.Sum(nil))
}

// ParseWebhookEvent decodes a webhook payload. The transcript id must be
// present; unknown event types are returned as-is for the caller to discard.
func ParseWebhookEvent(rawBody []byte) (*WebhookEvent, error) {
	var ev WebhookEvent
	if err := json.Unmarshal(rawBody, &ev); err != nil {
		return nil, fmt.Errorf("decode webhook payload: %w", err)
	}
	if ev.TranscriptID == "" {
		return nil, fmt.Errorf("webhook payload missing meeting id")
	}
	return &ev, nil
}
