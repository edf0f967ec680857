package effects

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

type Payments interface {
	Charge(ctx context.Context, sessionID string, amountCents int64, currency string) error
	Refund(ctx context.Context, sessionID string, amountCents int64, percentage int) error
}

type Rooms interface {
	ProvisionRoom(ctx context.Context, sessionID string) error
}

type jsonClient struct {
	baseURL string
	http    *http.Client
}

func newJSONClient(baseURL string, timeout time.Duration) jsonClient {
	return jsonClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// post sends body as JSON. The idempotency key lets the remote service
// deduplicate retries for the same session.
func (c jsonClient) post(ctx context.Context, path, idempotencyKey string, body any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: unexpected status %d: %s", req.Method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	return nil
}

type HTTPPayments struct {
	c jsonClient
}

func NewHTTPPayments(baseURL string, timeout time.Duration) *HTTPPayments {
	return &HTTPPayments{c: newJSONClient(baseURL, timeout)}
}

func (p *HTTPPayments) Charge(ctx context.Context, sessionID string, amountCents int64, currency string) error {
	const op = "effects.HTTPPayments.Charge"

	err := p.c.post(ctx, "/charges", "charge:"+sessionID, map[string]any{
		"session_id":   sessionID,
		"amount_cents": amountCents,
		"currency":     currency,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (p *HTTPPayments) Refund(ctx context.Context, sessionID string, amountCents int64, percentage int) error {
	const op = "effects.HTTPPayments.Refund"

	err := p.c.post(ctx, "/refunds", "refund:"+sessionID, map[string]any{
		"session_id":   sessionID,
		"amount_cents": amountCents,
		"percentage":   percentage,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

type HTTPRooms struct {
	c jsonClient
}

func NewHTTPRooms(baseURL string, timeout time.Duration) *HTTPRooms {
	return &HTTPRooms{c: newJSONClient(baseURL, timeout)}
}

func (r *HTTPRooms) ProvisionRoom(ctx context.Context, sessionID string) error {
	const op = "effects.HTTPRooms.ProvisionRoom"

	if err := r.c.post(ctx, "/rooms", "room:"+sessionID, map[string]any{"session_id": sessionID}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// LogPayments and LogRooms stand in when no upstream URL is configured.
type LogPayments struct {
	log *slog.Logger
}

func NewLogPayments(log *slog.Logger) *LogPayments {
	return &LogPayments{log: log}
}

func (p *LogPayments) Charge(_ context.Context, sessionID string, amountCents int64, currency string) error {
	p.log.Info("charge", slog.String("session_id", sessionID), slog.Int64("amount_cents", amountCents), slog.String("currency", currency))
	return nil
}

func (p *LogPayments) Refund(_ context.Context, sessionID string, amountCents int64, percentage int) error {
	p.log.Info("refund", slog.String("session_id", sessionID), slog.Int64("amount_cents", amountCents), slog.Int("percentage", percentage))
	return nil
}

type LogRooms struct {
	log *slog.Logger
}

func NewLogRooms(log *slog.Logger) *LogRooms {
	return &LogRooms{log: log}
}

func (r *LogRooms) ProvisionRoom(_ context.Context, sessionID string) error {
	r.log.Info("provision room", slog.String("session_id", sessionID))
	return nil
}
