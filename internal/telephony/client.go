// Package telephony wraps the provider's REST control API: the relay uses it
// to redirect a live leg during transfers and to hang legs up on termination.
package telephony

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/voxlane/call-bridge-go/internal/errors"
)

type Client struct {
	baseURL    string
	accountSID string
	authToken  string
	http       *http.Client
}

func NewClient(baseURL, accountSID, authToken string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		accountSID: accountSID,
		authToken:  authToken,
		http:       &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) callURL(legID string) string {
	return fmt.Sprintf("%s/2010-04-01/Accounts/%s/Calls/%s.json", c.baseURL, c.accountSID, legID)
}

func (c *Client) post(ctx context.Context, legID string, form url.Values) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.callURL(legID),
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.External("telephony", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return apperrors.External("telephony",
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}
	return nil
}

// RedirectCall points the live leg at a new destination. The original caller
// id is preserved so the transfer target sees who actually called.
func (c *Client) RedirectCall(ctx context.Context, legID, destination, callerID string) error {
	twiml := fmt.Sprintf(
		`<Response><Dial callerId="%s"><Number>%s</Number></Dial></Response>`,
		callerID, destination)

	form := url.Values{}
	form.Set("Twiml", twiml)

	if err := c.post(ctx, legID, form); err != nil {
		return fmt.Errorf("redirect call leg %s: %w", legID, err)
	}
	log.Info().Str("leg_id", legID).Str("destination", destination).Msg("call leg redirected")
	return nil
}

// EndCall completes the live leg.
func (c *Client) EndCall(ctx context.Context, legID string) error {
	form := url.Values{}
	form.Set("Status", "completed")

	if err := c.post(ctx, legID, form); err != nil {
		return fmt.Errorf("end call leg %s: %w", legID, err)
	}
	log.Info().Str("leg_id", legID).Msg("call leg ended")
	return nil
}
