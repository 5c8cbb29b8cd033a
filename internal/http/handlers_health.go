package httpx

import (
	"io"
	"net/http"
)

const healthResponse = `{"status":"ok","service":"shibgate"}`

// healthHandler answers readiness/liveness probes. It deliberately bypasses
// the authentication gates so orchestrators can probe an upstream-less or
// misconfigured gateway.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.WriteString(w, healthResponse); err != nil {
		// Nothing more to do if the client connection is gone.
		return
	}
}
