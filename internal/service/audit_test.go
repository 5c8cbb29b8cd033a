package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLog_NoWebhook_LogOnly(t *testing.T) {
	audit, err := NewAuditLog(AuditLogOptions{})
	require.NoError(t, err)

	// Must not panic or block without a webhook configured.
	audit.LoginFailed(context.Background(), "jdoe")
}

func TestAuditLog_Webhook_DeliversEvent(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	audit, err := NewAuditLog(AuditLogOptions{WebhookURL: srv.URL})
	require.NoError(t, err)

	audit.LoginFailed(context.Background(), "jdoe")

	require.NotNil(t, got)
	assert.Equal(t, "login_failed", got["event"])
	assert.Equal(t, "jdoe", got["username"])
	assert.NotEmpty(t, got["at"])
}

func TestAuditLog_Webhook_JMESPathShapesBody(t *testing.T) {
	var got any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	audit, err := NewAuditLog(AuditLogOptions{
		WebhookURL:  srv.URL,
		WebhookBody: "{text: join(' ', ['login denied for', username])}",
	})
	require.NoError(t, err)

	audit.LoginFailed(context.Background(), "jdoe")

	require.IsType(t, map[string]any{}, got)
	assert.Equal(t, "login denied for jdoe", got.(map[string]any)["text"])
}

func TestNewAuditLog_RejectsInvalidExpression(t *testing.T) {
	_, err := NewAuditLog(AuditLogOptions{
		WebhookURL:  "https://hooks.example.com/audit",
		WebhookBody: "not a [ valid expression",
	})
	assert.Error(t, err)
}

func TestAuditLog_WebhookFailure_DoesNotPropagate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	audit, err := NewAuditLog(AuditLogOptions{WebhookURL: srv.URL})
	require.NoError(t, err)

	// Delivery failures are logged, never surfaced to the login path.
	audit.LoginFailed(context.Background(), "jdoe")
}
