// Package mailer delivers verification emails through the Resend HTTP API.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

const (
	// DefaultEndpoint is Resend's send-email URL.
	DefaultEndpoint = "https://api.resend.com/emails"
	// DefaultFrom is used when no sender is configured.
	DefaultFrom = "onboarding@resend.dev"

	verificationSubject = "Verify your email for Immerse Seoul"
)

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("mail provider not configured")

var verificationHTML = template.Must(template.New("verify").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #7c3aed;">Verify Your Email</h2>
  <p>Welcome to Immerse Seoul AI Image Generator!</p>
  <p>Please click the button below to verify your email address:</p>
  <div style="text-align: center; margin: 30px 0;">
    <a href="{{.}}" style="background-color: #7c3aed; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; display: inline-block;">Verify Email</a>
  </div>
  <p style="color: #666; font-size: 14px;">If the button doesn't work, copy and paste this link into your browser:<br><a href="{{.}}">{{.}}</a></p>
  <p style="color: #666; font-size: 12px; margin-top: 30px;">If you didn't create an account, you can safely ignore this email.</p>
</div>`))

// Config configures a Resend client.
type Config struct {
	APIKey     string
	From       string
	Endpoint   string
	Timeout    time.Duration
	MaxRetries uint64
	// Backoff is the base delay of the exponential retry schedule.
	Backoff time.Duration
}

// Resend sends mail through the Resend API.
type Resend struct {
	cfg    Config
	client *http.Client
}

// NewResend returns a Resend client. Zero config fields take defaults.
func NewResend(cfg Config, client *http.Client) *Resend {
	if cfg.From == "" {
		cfg.From = DefaultFrom
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 200 * time.Millisecond
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Resend{cfg: cfg, client: client}
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text"`
}

// SendVerification mails link to the given address. Transport errors, 429
// and 5xx responses are retried with exponential backoff.
func (r *Resend) SendVerification(ctx context.Context, to, link string) error {
	if r.cfg.APIKey == "" {
		return ErrNotConfigured
	}

	var html bytes.Buffer
	if err := verificationHTML.Execute(&html, link); err != nil {
		return oops.Code("MAIL_RENDER_FAILED").Wrap(err)
	}
	body, err := json.Marshal(sendRequest{
		From:    r.cfg.From,
		To:      []string{to},
		Subject: verificationSubject,
		HTML:    html.String(),
		Text:    "Click the link to verify your email: " + link,
	})
	if err != nil {
		return oops.Code("MAIL_RENDER_FAILED").Wrap(err)
	}

	backoff := retry.WithMaxRetries(r.cfg.MaxRetries, retry.NewExponential(r.cfg.Backoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		return r.post(ctx, body)
	})
	if err != nil {
		return oops.Code("MAIL_SEND_FAILED").With("endpoint", r.cfg.Endpoint).Wrap(err)
	}
	return nil
}

func (r *Resend) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+r.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return retry.RetryableError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	err = fmt.Errorf("resend: status %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return retry.RetryableError(err)
	}
	return err
}
