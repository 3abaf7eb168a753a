package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"
	"time"
)

// Slack rejects replays older than five minutes; so do we.
const maxSignatureAge = 5 * time.Minute

var (
	errMissingSignature = errors.New("missing signature headers")
	errStaleTimestamp   = errors.New("stale request timestamp")
	errBadSignature     = errors.New("signature mismatch")
)

// verifySignature checks the Slack v0 request signature over the raw body.
// https://api.slack.com/authentication/verifying-requests-from-slack
func verifySignature(secret string, r *http.Request, body []byte, now time.Time) error {
	ts := r.Header.Get("X-Slack-Request-Timestamp")
	sig := r.Header.Get("X-Slack-Signature")
	if ts == "" || sig == "" {
		return errMissingSignature
	}

	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return errStaleTimestamp
	}
	age := now.Sub(time.Unix(unix, 0))
	if age > maxSignatureAge || age < -maxSignatureAge {
		return errStaleTimestamp
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("v0:" + ts + ":"))
	mac.Write(body)
	expected := "v0=" + hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return errBadSignature
	}
	return nil
}
