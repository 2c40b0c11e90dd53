package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"moneyspider/internal/core"
	"moneyspider/internal/metrics"
	"moneyspider/internal/services"
	"moneyspider/internal/store/memory"
	"moneyspider/internal/store/storetest"
)

var (
	fixedNow       = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	canonicalOrder = []string{"Food", "Transportation", "Health"}
)

func seedExpenses() []core.Expense {
	return []core.Expense{
		storetest.Expense(core.Food, 100),
		storetest.Expense(core.Food, 200),
		storetest.Expense(core.Transportation, 300),
		storetest.Expense(core.Transportation, 400),
		storetest.Expense(core.Health, 500),
		storetest.Expense(core.Health, 600),
	}
}

func newTestServer(t *testing.T, seed []core.Expense, opts ...Option) *Server {
	t.Helper()
	svc := services.NewEntryService(memory.New(seed...),
		services.WithClock(func() time.Time { return fixedNow }))
	if err := svc.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	srv, err := NewServer(":0", svc, append([]Option{WithRateLimit(1000)}, opts...)...)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if strings.HasPrefix(body, "{") {
		req.Header.Set("Content-Type", "application/json")
	} else if body != "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func wantStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}

func wantTrigger(t *testing.T, rec *httptest.ResponseRecorder, fragment string) {
	t.Helper()
	if got := rec.Header().Get("HX-Trigger"); !strings.Contains(got, fragment) {
		t.Errorf("HX-Trigger = %q, want it to contain %q", got, fragment)
	}
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) services.State {
	t.Helper()
	var state services.State
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode state %s: %v", rec.Body.String(), err)
	}
	return state
}

func categoryNames(state services.State) []string {
	names := make([]string, len(state.Categories))
	for i, c := range state.Categories {
		names[i] = c.Name
	}
	return names
}

func wantOrder(t *testing.T, state services.State, want []string) {
	t.Helper()
	if got := categoryNames(state); !slices.Equal(got, want) {
		t.Errorf("categories = %v, want %v", got, want)
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %s: %v", rec.Body.String(), err)
	}
	return body.Error
}

func TestGetState(t *testing.T) {
	srv := newTestServer(t, seedExpenses())

	rec := do(t, srv, http.MethodGet, "/state", "")
	wantStatus(t, rec, http.StatusOK)
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID is empty")
	}

	state := decodeState(t, rec)
	if len(state.Expenses) != 6 {
		t.Errorf("got %d expenses, want 6", len(state.Expenses))
	}
	wantOrder(t, state, canonicalOrder)
	if !state.Date.Equal(core.DateOf(fixedNow)) {
		t.Errorf("Date = %v, want %v", state.Date, core.DateOf(fixedNow))
	}
	if state.RefreshMode != services.ModeFrequency {
		t.Errorf("RefreshMode = %v, want %v", state.RefreshMode, services.ModeFrequency)
	}
}

func TestWrongMethod(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		method, path, allow string
	}{
		{http.MethodPost, "/state", "GET"},
		{http.MethodGet, "/expenses", "POST"},
	}
	for _, tt := range tests {
		rec := do(t, srv, tt.method, tt.path, "")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: status = %d, want %d", tt.method, tt.path, rec.Code, http.StatusMethodNotAllowed)
		}
		if got := rec.Header().Get("Allow"); got != tt.allow {
			t.Errorf("%s %s: Allow = %q, want %q", tt.method, tt.path, got, tt.allow)
		}
	}
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := do(t, srv, http.MethodGet, "/nope", "")
	wantStatus(t, rec, http.StatusNotFound)
	if got := decodeError(t, rec); got != "not found" {
		t.Errorf("error = %q, want %q", got, "not found")
	}
}

func TestAmountReordersCategories(t *testing.T) {
	srv := newTestServer(t, seedExpenses())

	rec := do(t, srv, http.MethodPost, "/amount", `{"amount":"550"}`)
	wantStatus(t, rec, http.StatusOK)
	wantTrigger(t, rec, `"categories:reordered":{"mode":"range"}`)

	state := decodeState(t, rec)
	wantOrder(t, state, []string{"Health", "Food", "Transportation"})
	if state.AmountText != "550" {
		t.Errorf("AmountText = %q, want 550", state.AmountText)
	}
	if state.Categories[0].Min != "500.00" || state.Categories[0].Max != "600.00" {
		t.Errorf("Health range = [%s, %s], want [500.00, 600.00]", state.Categories[0].Min, state.Categories[0].Max)
	}

	rec = do(t, srv, http.MethodPost, "/amount", "amount=abc")
	wantStatus(t, rec, http.StatusOK)
	wantTrigger(t, rec, `"mode":"frequency"`)
	wantOrder(t, decodeState(t, rec), canonicalOrder)
}

func TestRecordExpense(t *testing.T) {
	srv := newTestServer(t, seedExpenses())

	rec := do(t, srv, http.MethodPost, "/expenses", `{"amount":"12,50","index":2,"date":"2026-10-01"}`)
	wantStatus(t, rec, http.StatusCreated)
	wantTrigger(t, rec, `"expense:recorded":{"amount":"12.50","category":"Health"}`)
	wantTrigger(t, rec, `"form:reset"`)

	state := decodeState(t, rec)
	if len(state.Expenses) != 7 {
		t.Fatalf("got %d expenses, want 7", len(state.Expenses))
	}
	last := state.Expenses[6]
	if last.Position != 6 || last.Category != "Health" || last.Amount != "12.50" || !last.Date.Equal(core.NewDate(2026, 10, 1)) {
		t.Errorf("last expense = %+v, want position 6, Health, 12.50 on 2026-10-01", last)
	}

	if state.AmountText != "" || state.SelectedIndex != 0 {
		t.Errorf("form not reset: amount %q, index %d", state.AmountText, state.SelectedIndex)
	}
	if state.RefreshMode != services.ModeFrequency {
		t.Errorf("RefreshMode = %v, want %v", state.RefreshMode, services.ModeFrequency)
	}
	wantOrder(t, state, canonicalOrder)
}

func TestRecordExpenseFallsBackToFormInput(t *testing.T) {
	srv := newTestServer(t, seedExpenses())

	wantStatus(t, do(t, srv, http.MethodPost, "/amount", `{"amount":"350"}`), http.StatusOK)
	selected := decodeState(t, do(t, srv, http.MethodPost, "/category", `{"index":1}`))
	if selected.SelectedIndex != 1 {
		t.Fatalf("SelectedIndex = %d, want 1", selected.SelectedIndex)
	}
	want := selected.Categories[1].Name

	rec := do(t, srv, http.MethodPost, "/expenses", "")
	wantStatus(t, rec, http.StatusCreated)

	state := decodeState(t, rec)
	last := state.Expenses[len(state.Expenses)-1]
	if last.Category != want {
		t.Errorf("Category = %q, want %q", last.Category, want)
	}
	if last.Amount != "350.00" {
		t.Errorf("Amount = %q, want 350.00", last.Amount)
	}
	if !last.Date.Equal(core.DateOf(fixedNow)) {
		t.Errorf("Date = %v, want %v", last.Date, core.DateOf(fixedNow))
	}
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
	}{
		{"unparseable amount", "/expenses", "amount=abc"},
		{"empty amount", "/expenses", `{"amount":""}`},
		{"negative amount", "/expenses", `{"amount":"-5"}`},
		{"selection out of range", "/expenses", `{"amount":"5","index":3}`},
		{"bad expense date", "/expenses", `{"amount":"5","date":"18/10/2026"}`},
		{"non-numeric index", "/category", `{"index":"first"}`},
		{"missing index", "/category", `{}`},
		{"index out of range", "/category", `{"index":-1}`},
		{"impossible date", "/date", `{"date":"2026-02-30"}`},
		{"bad positions", "/expenses/delete", `{"positions":"0,x"}`},
		{"clear not requested", "/clear/confirm", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, seedExpenses())

			rec := do(t, srv, http.MethodPost, tt.path, tt.body)
			wantStatus(t, rec, http.StatusUnprocessableEntity)
			if decodeError(t, rec) == "" {
				t.Error("error message is empty")
			}

			state := decodeState(t, do(t, srv, http.MethodGet, "/state", ""))
			if len(state.Expenses) != 6 {
				t.Errorf("got %d expenses after a failed request, want 6", len(state.Expenses))
			}
		})
	}
}

func TestMalformedBody(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := do(t, srv, http.MethodPost, "/amount", `{"amount":`)
	wantStatus(t, rec, http.StatusBadRequest)
}

func TestSetDate(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := do(t, srv, http.MethodPost, "/date", "date=2026-09-30")
	wantStatus(t, rec, http.StatusOK)
	if got, want := decodeState(t, rec).Date, core.NewDate(2026, 9, 30); !got.Equal(want) {
		t.Errorf("Date = %v, want %v", got, want)
	}
}

func TestDeleteExpenses(t *testing.T) {
	srv := newTestServer(t, seedExpenses())

	rec := do(t, srv, http.MethodPost, "/expenses/delete", `{"positions":[0,2,2,99]}`)
	wantStatus(t, rec, http.StatusOK)
	wantTrigger(t, rec, `"expense:deleted":{"count":2}`)

	state := decodeState(t, rec)
	amounts := make([]string, len(state.Expenses))
	for i, e := range state.Expenses {
		amounts[i] = e.Amount
	}
	if want := []string{"200.00", "400.00", "500.00", "600.00"}; !slices.Equal(amounts, want) {
		t.Errorf("amounts = %v, want %v", amounts, want)
	}

	rec = do(t, srv, http.MethodPost, "/expenses/delete", "positions=42")
	wantStatus(t, rec, http.StatusOK)
	if got := rec.Header().Get("HX-Trigger"); got != "" {
		t.Errorf("HX-Trigger = %q, want none when nothing was removed", got)
	}
	if n := len(decodeState(t, rec).Expenses); n != 4 {
		t.Errorf("got %d expenses, want 4", n)
	}
}

func TestClearFlow(t *testing.T) {
	srv := newTestServer(t, seedExpenses())

	rec := do(t, srv, http.MethodPost, "/clear", "")
	wantStatus(t, rec, http.StatusOK)
	wantTrigger(t, rec, `"clear:confirm"`)
	if !decodeState(t, rec).ClearPending {
		t.Error("ClearPending = false after /clear")
	}

	rec = do(t, srv, http.MethodPost, "/clear/cancel", "")
	wantStatus(t, rec, http.StatusOK)
	state := decodeState(t, rec)
	if state.ClearPending || len(state.Expenses) != 6 {
		t.Errorf("after cancel: pending %v, %d expenses; want false, 6", state.ClearPending, len(state.Expenses))
	}

	wantStatus(t, do(t, srv, http.MethodPost, "/clear", ""), http.StatusOK)
	rec = do(t, srv, http.MethodPost, "/clear/confirm", "")
	wantStatus(t, rec, http.StatusOK)
	wantTrigger(t, rec, `"expenses:cleared"`)
	state = decodeState(t, rec)
	if state.ClearPending || len(state.Expenses) != 0 {
		t.Errorf("after confirm: pending %v, %d expenses; want false, 0", state.ClearPending, len(state.Expenses))
	}
	wantOrder(t, state, canonicalOrder)
}

func TestClearOnEmptyListNeedsNoConfirmation(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := do(t, srv, http.MethodPost, "/clear", "")
	wantStatus(t, rec, http.StatusOK)
	if got := rec.Header().Get("HX-Trigger"); got != "" {
		t.Errorf("HX-Trigger = %q, want none", got)
	}
	if decodeState(t, rec).ClearPending {
		t.Error("ClearPending = true on an empty list")
	}
}

func TestHealthAndReadiness(t *testing.T) {
	healthy := newTestServer(t, nil)
	wantStatus(t, do(t, healthy, http.MethodGet, "/healthz", ""), http.StatusOK)
	wantStatus(t, do(t, healthy, http.MethodGet, "/readyz", ""), http.StatusOK)

	down := newTestServer(t, nil, WithReadiness(func(context.Context) error {
		return errors.New("database is locked")
	}))
	rec := do(t, down, http.MethodGet, "/readyz", "")
	wantStatus(t, rec, http.StatusServiceUnavailable)
	if !strings.Contains(rec.Body.String(), "database is locked") {
		t.Errorf("body = %q, want the readiness error", rec.Body.String())
	}
}

func TestRateLimit(t *testing.T) {
	reg := prometheus.NewRegistry()
	srv := newTestServer(t, nil, WithRateLimit(1), WithMetrics(metrics.New(reg), reg))

	wantStatus(t, do(t, srv, http.MethodGet, "/state", ""), http.StatusOK)

	rec := do(t, srv, http.MethodGet, "/state", "")
	wantStatus(t, rec, http.StatusTooManyRequests)
	if got := rec.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After = %q, want 60", got)
	}
	if decodeError(t, rec) == "" {
		t.Error("error message is empty")
	}

	// health endpoints sit outside the limiter
	wantStatus(t, do(t, srv, http.MethodGet, "/healthz", ""), http.StatusOK)

	body := do(t, srv, http.MethodGet, "/metrics", "").Body.String()
	for _, want := range []string{
		"moneyspider_rate_limited_total 1",
		`moneyspider_http_requests_total{method="GET",path="/state",status="429"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestMetricsCollapseUnknownPaths(t *testing.T) {
	reg := prometheus.NewRegistry()
	srv := newTestServer(t, nil, WithMetrics(metrics.New(reg), reg))

	do(t, srv, http.MethodGet, "/random/path", "")

	body := do(t, srv, http.MethodGet, "/metrics", "").Body.String()
	if !strings.Contains(body, `path="other"`) {
		t.Error(`metrics missing path="other"`)
	}
	if strings.Contains(body, "/random/path") {
		t.Error("metrics leak the raw unknown path")
	}
}

func TestNewServerRejectsBadProxyCIDR(t *testing.T) {
	svc := services.NewEntryService(memory.New())
	if _, err := NewServer(":0", svc, WithTrustedProxies("not-a-cidr")); err == nil {
		t.Error("NewServer() error = nil, want an invalid CIDR error")
	}
}
