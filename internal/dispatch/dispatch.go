// Package dispatch delivers rendered transcripts to the downstream consumer.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	cerrors "contextd/internal/errors"
	"contextd/internal/retry"
)

// Delivery is one rendered message handed to the downstream consumer.
type Delivery struct {
	MessageID  uuid.UUID `json:"message_id"`
	SessionID  uuid.UUID `json:"session_id"`
	Role       string    `json:"role"`
	Transcript string    `json:"transcript"`
}

// Dispatcher hands a rendered message to whatever sits downstream.
type Dispatcher interface {
	Dispatch(ctx context.Context, d Delivery) error
}

// WebhookDispatcher POSTs deliveries to a configured webhook URL with
// retries on transient failures.
type WebhookDispatcher struct {
	url      string
	client   *http.Client
	retryCfg retry.Config
	logger   zerolog.Logger
}

// NewWebhookDispatcher creates a dispatcher targeting url.
func NewWebhookDispatcher(url string, timeout time.Duration, retries int, logger zerolog.Logger) *WebhookDispatcher {
	cfg := retry.DefaultConfig()
	if retries > 0 {
		cfg.MaxAttempts = retries
	}
	return &WebhookDispatcher{
		url: url,
		client: &http.Client{
			Timeout: timeout,
		},
		retryCfg: cfg,
		logger:   logger.With().Str("component", "dispatch").Logger(),
	}
}

// Dispatch delivers one message. Non-2xx responses and network errors are
// wrapped in DispatchError so the retry layer can judge transience.
func (wd *WebhookDispatcher) Dispatch(ctx context.Context, d Delivery) error {
	body, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshaling delivery payload: %w", err)
	}

	err = retry.Do(ctx, wd.retryCfg, func(ctx context.Context) error {
		return wd.post(ctx, body, d.MessageID)
	})
	if err != nil {
		return fmt.Errorf("dispatching message %s: %w", d.MessageID, err)
	}

	wd.logger.Info().
		Str("message_id", d.MessageID.String()).
		Str("session_id", d.SessionID.String()).
		Msg("message dispatched")
	return nil
}

func (wd *WebhookDispatcher) post(ctx context.Context, body []byte, messageID uuid.UUID) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wd.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating dispatch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "contextd-dispatch/1.0")

	resp, err := wd.client.Do(req)
	if err != nil {
		wd.logger.Warn().Err(err).
			Str("message_id", messageID.String()).
			Msg("dispatch attempt failed")
		return &cerrors.DispatchError{Target: wd.url, Message: "request failed", Err: err}
	}
	resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	wd.logger.Warn().
		Str("message_id", messageID.String()).
		Int("status_code", resp.StatusCode).
		Msg("dispatch returned non-2xx")
	return cerrors.NewDispatchError(wd.url, resp.StatusCode, "non-2xx response")
}

// LogDispatcher writes deliveries to the log. Used when no downstream
// webhook is configured, so the pipeline still reaches terminal states.
type LogDispatcher struct {
	logger zerolog.Logger
}

// NewLogDispatcher creates a dispatcher that logs deliveries.
func NewLogDispatcher(logger zerolog.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger.With().Str("component", "dispatch").Logger()}
}

// Dispatch logs the delivery and always succeeds.
func (ld *LogDispatcher) Dispatch(ctx context.Context, d Delivery) error {
	ld.logger.Info().
		Str("message_id", d.MessageID.String()).
		Str("session_id", d.SessionID.String()).
		Str("role", d.Role).
		Str("transcript", d.Transcript).
		Msg("message delivered to log sink")
	return nil
}
