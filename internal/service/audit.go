package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"
)

// JMESPathEvaluator abstracts JMESPath operations for testability.
type JMESPathEvaluator interface {
	Validate(expr string) error
	Evaluate(expr string, data any) (any, error)
}

// jmespathLibEvaluator implements JMESPathEvaluator using go-jmespath.
type jmespathLibEvaluator struct{}

func (j jmespathLibEvaluator) Validate(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	_, err := jmespath.Compile(expr)
	return err
}

func (j jmespathLibEvaluator) Evaluate(expr string, data any) (any, error) {
	return jmespath.Search(expr, data)
}

// AuditLogOptions groups dependencies for AuditLog.
type AuditLogOptions struct {
	Logger *slog.Logger

	// WebhookURL, when set, receives a JSON POST for every audit event.
	WebhookURL string
	// WebhookBody is an optional JMESPath expression applied to the event
	// payload to shape the webhook body. Empty means the raw payload.
	WebhookBody string

	HTTPClient *http.Client
	Evaluator  JMESPathEvaluator
}

// AuditLog records security-relevant events: always to the structured log,
// and additionally to an HTTP webhook when one is configured. Webhook
// delivery is synchronous, bounded by the client timeout, and best effort:
// failures are logged and never fail the login denial itself.
type AuditLog struct {
	logger      *slog.Logger
	webhookURL  string
	webhookBody string
	client      *http.Client
	jems        JMESPathEvaluator
}

// NewAuditLog constructs a new AuditLog.
func NewAuditLog(opts AuditLogOptions) (*AuditLog, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	jems := opts.Evaluator
	if jems == nil {
		jems = jmespathLibEvaluator{}
	}
	if err := jems.Validate(opts.WebhookBody); err != nil {
		return nil, fmt.Errorf("invalid webhook body expression: %w", err)
	}
	return &AuditLog{
		logger:      logger,
		webhookURL:  opts.WebhookURL,
		webhookBody: opts.WebhookBody,
		client:      client,
		jems:        jems,
	}, nil
}

// LoginFailed records a denied login attempt so repeated attempts for the
// same username are observable.
func (a *AuditLog) LoginFailed(ctx context.Context, username string) {
	a.logger.Warn("sso login denied",
		slog.String("event", "login_failed"),
		slog.String("username", username))

	a.deliver(ctx, map[string]any{
		"event":    "login_failed",
		"username": username,
		"at":       time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *AuditLog) deliver(ctx context.Context, payload map[string]any) {
	if a.webhookURL == "" {
		return
	}

	body, err := a.shapeBody(payload)
	if err != nil {
		a.logger.Error("audit webhook body", slog.String("error", err.Error()))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.webhookURL, bytes.NewReader(body))
	if err != nil {
		a.logger.Error("audit webhook request", slog.String("error", err.Error()))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.Error("audit webhook delivery", slog.String("error", err.Error()))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		a.logger.Error("audit webhook delivery",
			slog.Int("status", resp.StatusCode),
			slog.String("url", a.webhookURL))
	}
}

func (a *AuditLog) shapeBody(payload map[string]any) ([]byte, error) {
	if strings.TrimSpace(a.webhookBody) == "" {
		return json.Marshal(payload)
	}
	shaped, err := a.jems.Evaluate(a.webhookBody, payload)
	if err != nil {
		return nil, fmt.Errorf("evaluate body expression: %w", err)
	}
	return json.Marshal(shaped)
}
