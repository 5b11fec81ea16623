package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/voxlane/call-bridge-go/internal/errors"
)

func signBody(secret string, ts int64, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, body)
	return fmt.Sprintf("t=%d,v0=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifySignature(t *testing.T) {
	secret := "whsec_test"
	body := []byte(`{"type":"post_call_transcription"}`)
	now := time.Now()

	t.Run("valid signature accepted", func(t *testing.T) {
		header := signBody(secret, now.Unix(), body)
		require.NoError(t, VerifySignature(secret, header, body, now))
	})

	t.Run("missing header rejected", func(t *testing.T) {
		err := VerifySignature(secret, "", body, now)
		assert.Equal(t, apperrors.ErrCodeInvalidSignature, apperrors.GetCode(err))
	})

	t.Run("tampered body rejected", func(t *testing.T) {
		header := signBody(secret, now.Unix(), body)
		err := VerifySignature(secret, header, []byte(`{"type":"evil"}`), now)
		assert.Equal(t, apperrors.ErrCodeInvalidSignature, apperrors.GetCode(err))
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		header := signBody("other", now.Unix(), body)
		err := VerifySignature(secret, header, body, now)
		assert.Equal(t, apperrors.ErrCodeInvalidSignature, apperrors.GetCode(err))
	})

	t.Run("stale timestamp rejected", func(t *testing.T) {
		header := signBody(secret, now.Add(-31*time.Minute).Unix(), body)
		err := VerifySignature(secret, header, body, now)
		assert.Equal(t, apperrors.ErrCodeSignatureExpired, apperrors.GetCode(err))
	})

	t.Run("malformed header rejected", func(t *testing.T) {
		err := VerifySignature(secret, "v0=deadbeef", body, now)
		assert.Equal(t, apperrors.ErrCodeInvalidSignature, apperrors.GetCode(err))
	})
}

func TestSignatureVerifierMiddleware(t *testing.T) {
	secret := "whsec_test"
	body := `{"type":"post_call_transcription"}`

	passthrough := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("valid request passes with body intact", func(t *testing.T) {
		var seen string
		handler := SignatureVerifier(secret, false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			b, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			seen = string(b)
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodPost, "/engine/webhook", strings.NewReader(body))
		req.Header.Set("Signature", signBody(secret, time.Now().Unix(), []byte(body)))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, body, seen)
	})

	t.Run("invalid signature gets 401", func(t *testing.T) {
		handler := SignatureVerifier(secret, false)(passthrough)

		req := httptest.NewRequest(http.MethodPost, "/engine/webhook", strings.NewReader(body))
		req.Header.Set("Signature", "t=1,v0=deadbeef")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("disabled verification passes anything", func(t *testing.T) {
		handler := SignatureVerifier(secret, true)(passthrough)

		req := httptest.NewRequest(http.MethodPost, "/engine/webhook", strings.NewReader(body))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
