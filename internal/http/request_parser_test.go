package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
)

func newParser(t *testing.T, body string) *RequestBodyParser {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	p := NewRequestBodyParser(req)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse(%q) error = %v", body, err)
	}
	return p
}

func TestRequestBodyParser_Get(t *testing.T) {
	tests := []struct {
		name string
		body string
		key  string
		want string
	}{
		{"json string", `{"amount":"12,50"}`, "amount", "12,50"},
		{"json number", `{"amount":12.5}`, "amount", "12.5"},
		{"form value", "amount=40&date=2026-10-18", "date", "2026-10-18"},
		{"control characters removed", "{\"amount\":\" 4\\u00010 \"}", "amount", "40"},
		{"missing key", `{"amount":"1"}`, "date", ""},
		{"empty body", "", "amount", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := newParser(t, tt.body).Get(tt.key); got != tt.want {
				t.Errorf("Get(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestRequestBodyParser_ParseIsCached(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":`))
	p := NewRequestBodyParser(req)

	first := p.Parse()
	if first == nil {
		t.Fatal("expected error for truncated JSON")
	}
	if second := p.Parse(); second != first {
		t.Errorf("second Parse() = %v, want cached %v", second, first)
	}
}

func TestRequestBodyParser_GetInt(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		want        int
		wantPresent bool
		wantErr     bool
	}{
		{"json number", `{"index":2}`, 2, true, false},
		{"form value", "index=1", 1, true, false},
		{"absent", `{}`, 0, false, false},
		{"not a number", `{"index":"x"}`, 0, true, true},
		{"fractional", `{"index":1.5}`, 0, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, present, err := newParser(t, tt.body).GetInt("index")
			if (err != nil) != tt.wantErr {
				t.Fatalf("GetInt() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errInvalidField) {
				t.Errorf("error %v does not wrap errInvalidField", err)
			}
			if present != tt.wantPresent {
				t.Errorf("present = %v, want %v", present, tt.wantPresent)
			}
			if got != tt.want {
				t.Errorf("GetInt() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRequestBodyParser_GetPositions(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    []int
		wantErr bool
	}{
		{"json array", `{"positions":[0,2]}`, []int{0, 2}, false},
		{"json text", `{"positions":"0, 2"}`, []int{0, 2}, false},
		{"form text", "positions=1%2C3", []int{1, 3}, false},
		{"trailing comma", `{"positions":"4,"}`, []int{4}, false},
		{"absent", `{}`, nil, false},
		{"bad entry", `{"positions":"1,a"}`, nil, true},
		{"bad array entry", `{"positions":[1,"a"]}`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := newParser(t, tt.body).GetPositions("positions")
			if (err != nil) != tt.wantErr {
				t.Fatalf("GetPositions() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("GetPositions() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRequireMethod(t *testing.T) {
	get := httptest.NewRequest(http.MethodGet, "/", nil)
	if resp := RequirePOST(get); resp == nil {
		t.Error("RequirePOST should reject GET")
	}
	post := httptest.NewRequest(http.MethodPost, "/", nil)
	if resp := RequirePOST(post); resp != nil {
		t.Error("RequirePOST should accept POST")
	}
	if resp := RequireMethod(get, http.MethodPost, http.MethodGet); resp != nil {
		t.Error("RequireMethod should accept any listed method")
	}
}
