package advice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"budgettracker/internal/core"
)

func TestSummarize(t *testing.T) {
	var got SummaryRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/summarize" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"summary":"Mostly food","totalAmount":25.5,"expenseCount":2}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second)
	resp, err := c.Summarize(context.Background(), SummaryRequest{
		Expenses: []ExpenseItem{{Category: "Food", Amount: 20}, {Category: "Fun", Amount: 5.5}},
		Budget:   100,
	})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if resp.Summary != "Mostly food" || resp.ExpenseCount != 2 || resp.TotalAmount != 25.5 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if len(got.Expenses) != 2 || got.Expenses[0].Category != "Food" || got.Budget != 100 {
		t.Fatalf("unexpected request body: %+v", got)
	}
}

func TestAdviseSendsQuestion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req AdviceRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(AdviceResponse{Advice: "Cook at home", Question: req.Question})
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL, time.Second).Advise(context.Background(), AdviceRequest{
		Question: "How do I save?",
		Expenses: []ExpenseItem{{Category: "Food", Amount: 1}},
		Budget:   10,
	})
	if err != nil {
		t.Fatalf("Advise: %v", err)
	}
	if resp.Question != "How do I save?" || resp.Advice == "" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestFailuresAreServiceUnavailable(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
		timeout time.Duration
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model crashed", http.StatusInternalServerError)
		}, time.Second},
		{"bad json", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}, time.Second},
		{"timeout", func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}, 20 * time.Millisecond},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			_, err := NewClient(srv.URL, tc.timeout).Summarize(context.Background(), SummaryRequest{Budget: 1})
			if !errors.Is(err, core.ErrServiceUnavailable) {
				t.Fatalf("expected ErrServiceUnavailable, got %v", err)
			}
		})
	}
}

func TestConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, time.Second)
	if _, err := c.Advise(context.Background(), AdviceRequest{}); !errors.Is(err, core.ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}
	if c.Available(context.Background()) {
		t.Fatal("closed server must not be available")
	}
}

func TestAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	}))
	defer srv.Close()

	if !NewClient(srv.URL, time.Second).Available(context.Background()) {
		t.Fatal("expected service to be available")
	}
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient("", 0)
	if c.baseURL != DefaultBaseURL || c.http.Timeout != DefaultTimeout {
		t.Fatalf("unexpected defaults: %s %v", c.baseURL, c.http.Timeout)
	}
}
