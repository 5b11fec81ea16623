package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/voxlane/call-bridge-go/internal/config"
	apperrors "github.com/voxlane/call-bridge-go/internal/errors"
	"github.com/voxlane/call-bridge-go/internal/httputil"
)

// VerifySignature checks the vendor's completion-webhook signature header,
// formatted as "t=<unix>,v0=<hex hmac>". The MAC covers "<t>.<raw body>".
func VerifySignature(secret, header string, body []byte, now time.Time) error {
	if header == "" {
		return apperrors.InvalidSignature("missing signature header")
	}

	var timestamp, signature string
	for _, part := range strings.Split(header, ",") {
		k, v, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch k {
		case "t":
			timestamp = v
		case "v0":
			signature = v
		}
	}
	if timestamp == "" || signature == "" {
		return apperrors.InvalidSignature("malformed signature header")
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return apperrors.InvalidSignature("malformed signature timestamp")
	}
	if now.Sub(time.Unix(ts, 0)) > config.SignatureMaxAge {
		return apperrors.SignatureExpired()
	}

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s.%s", timestamp, body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return apperrors.InvalidSignature("signature mismatch")
	}
	return nil
}

// SignatureVerifier rejects completion webhooks that fail verification. With
// an empty secret or the dev escape hatch the check is skipped with a warning.
func SignatureVerifier(secret string, disabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if disabled || secret == "" {
				log.Warn().Msg("completion webhook signature verification is disabled")
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				httputil.WriteError(w, apperrors.ValidationError("unreadable request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			if err := VerifySignature(secret, r.Header.Get("Signature"), body, time.Now()); err != nil {
				log.Warn().
					Err(err).
					Str("remote", r.RemoteAddr).
					Msg("rejected completion webhook")
				httputil.WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
