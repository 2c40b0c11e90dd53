package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"moneyspider/internal/log"
)

func TestMiddlewareAssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Output: &buf, Component: log.ComponentHTTP})

	var seenID string
	var seenLogger *log.Logger
	var recorded []string
	m := NewMiddleware(logger, func(*http.Request) string { return "10.1.1.1" },
		func(method, path, status string, _ float64) {
			recorded = append(recorded, method+" "+path+" "+status)
		})

	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
		seenLogger = log.FromContext(r.Context())
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/amount", nil))

	if _, err := uuid.Parse(seenID); err != nil {
		t.Fatalf("request ID %q is not a UUID: %v", seenID, err)
	}
	if got := rec.Header().Get(RequestIDHeader); got != seenID {
		t.Errorf("response header = %q, want %q", got, seenID)
	}
	if seenLogger.Component() != log.ComponentTrace {
		t.Errorf("context logger component = %q", seenLogger.Component())
	}
	if len(recorded) != 1 || recorded[0] != "POST /amount 422" {
		t.Errorf("recorded = %v", recorded)
	}

	out := buf.String()
	for _, want := range []string{"HTTP request completed", "level=WARN", "status_code=422", "client_ip=10.1.1.1", "request_id=" + seenID} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestMiddlewareKeepsIncomingRequestID(t *testing.T) {
	incoming := uuid.NewString()
	m := NewMiddleware(nil, nil, nil)

	var seenID string
	handler := m.Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/state", nil)
	req.Header.Set(RequestIDHeader, incoming)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if seenID != incoming {
		t.Errorf("request ID = %q, want %q", seenID, incoming)
	}
}

func TestMiddlewareReplacesMalformedRequestID(t *testing.T) {
	m := NewMiddleware(nil, nil, nil)

	var seenID string
	handler := m.Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/state", nil)
	req.Header.Set(RequestIDHeader, "<script>")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if seenID == "<script>" || seenID == "" {
		t.Errorf("request ID = %q, want a generated one", seenID)
	}
}

func TestGetRequestIDWithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if id := GetRequestID(req.Context()); id != "" {
		t.Errorf("GetRequestID() = %q, want empty", id)
	}
}
