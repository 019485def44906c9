package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"budgettracker/internal/core"
)

func TestPathID(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{"42", 42, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.SetPathValue("id", tt.raw)
			got, err := pathID(req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("pathID() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errBadRequest) {
				t.Errorf("error %v is not a bad request", err)
			}
			if got != tt.want {
				t.Errorf("pathID() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestQueryID(t *testing.T) {
	q := url.Values{"accountId": {"7"}, "budgetId": {"x"}, "categoryId": {" "}}

	if id, err := queryID(q, "accountId"); err != nil || id == nil || *id != 7 {
		t.Errorf("accountId = %v, %v", id, err)
	}
	if _, err := queryID(q, "budgetId"); !errors.Is(err, errBadRequest) {
		t.Errorf("budgetId error = %v", err)
	}
	if id, err := queryID(q, "categoryId"); err != nil || id != nil {
		t.Errorf("blank categoryId = %v, %v", id, err)
	}
}

func TestDecodeJSON(t *testing.T) {
	type body struct {
		Name   string    `json:"name"`
		Amount moneyText `json:"amount"`
		Date   core.Date `json:"date"`
	}
	tests := []struct {
		name       string
		payload    string
		wantStatus int
	}{
		{"valid", `{"name":"Food","amount":"12.50","date":"2024-03-01"}`, 0},
		{"numeric amount", `{"amount":12.5}`, 0},
		{"empty", ``, http.StatusBadRequest},
		{"malformed", `{"name":`, http.StatusBadRequest},
		{"unknown field", `{"nmae":"x"}`, http.StatusBadRequest},
		{"trailing object", `{"name":"a"}{"name":"b"}`, http.StatusBadRequest},
		{"bad date", `{"date":"31/12/2024"}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.payload))
			var dst body
			err := decodeJSON(httptest.NewRecorder(), req, &dst)
			if tt.wantStatus == 0 {
				if err != nil {
					t.Fatalf("decodeJSON() error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if got := statusFor(err); got != tt.wantStatus {
				t.Errorf("status = %d, want %d (%v)", got, tt.wantStatus, err)
			}
		})
	}
}

func TestMoneyText(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		balance bool
		want    string
		wantErr bool
	}{
		{"dot string", `{"v":"12.34"}`, false, "12.34", false},
		{"comma string", `{"v":"12,34"}`, false, "12.34", false},
		{"number", `{"v":12.5}`, false, "12.5", false},
		{"rounds half up", `{"v":"1.005"}`, false, "1.01", false},
		{"negative amount", `{"v":"-5"}`, false, "", true},
		{"exponent", `{"v":1e3}`, false, "", true},
		{"missing amount", `{}`, false, "", true},
		{"negative balance", `{"v":"-12,505"}`, true, "-12.51", false},
		{"missing balance", `{"v":null}`, true, "0", false},
		{"garbage balance", `{"v":"twelve"}`, true, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dst struct {
				V moneyText `json:"v"`
			}
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.payload))
			if err := decodeJSON(httptest.NewRecorder(), req, &dst); err != nil {
				t.Fatalf("decodeJSON() error = %v", err)
			}
			parse := dst.V.amount
			if tt.balance {
				parse = dst.V.balance
			}
			got, err := parse()
			if tt.wantErr {
				if !errors.Is(err, core.ErrValidation) {
					t.Fatalf("error = %v, want validation error", err)
				}
				return
			}
			if err != nil || !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Fatalf("got %s, %v; want %s", got, err, tt.want)
			}
		})
	}
}

func TestOwnerFrom(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderUserID, "  user-1\x00 ")
	if got := ownerFrom(req); got != "user-1" {
		t.Errorf("ownerFrom() = %q", got)
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  hello  ", "hello"},
		{"a\x07b", "ab"},
		{"line\nbreak\ttab", "line\nbreak\ttab"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
