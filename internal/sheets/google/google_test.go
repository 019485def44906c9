package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"budgettracker/internal/core"
	ports "budgettracker/internal/sheets"
)

// fakeSheet serves the subset of the Sheets values API the client uses.
type fakeSheet struct {
	mu   sync.Mutex
	grid [][]string
}

var rowRange = regexp.MustCompile(`![A-Z]+(\d+):[A-Z]+\d+$`)

func (f *fakeSheet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	idx := strings.Index(path, "/values/")
	if idx < 0 {
		http.NotFound(w, r)
		return
	}
	rng := path[idx+len("/values/"):]

	switch {
	case r.Method == http.MethodGet:
		var values [][]any
		for _, row := range f.grid {
			out := []any{}
			for i, v := range row {
				if strings.HasSuffix(rng, "A:A") && i > 0 {
					break
				}
				out = append(out, v)
			}
			values = append(values, out)
		}
		writeJSON(w, map[string]any{"range": rng, "values": values})

	case r.Method == http.MethodPost && strings.HasSuffix(rng, ":append"):
		for _, row := range decodeValues(r) {
			f.grid = append(f.grid, row)
		}
		writeJSON(w, map[string]any{})

	case r.Method == http.MethodPost && strings.HasSuffix(rng, ":clear"):
		if n := rowNumber(strings.TrimSuffix(rng, ":clear")); n > 0 && n <= len(f.grid) {
			f.grid[n-1] = make([]string, len(f.grid[n-1]))
		}
		writeJSON(w, map[string]any{})

	case r.Method == http.MethodPut:
		values := decodeValues(r)
		if n := rowNumber(rng); n > 0 && n <= len(f.grid) && len(values) == 1 {
			f.grid[n-1] = values[0]
		}
		writeJSON(w, map[string]any{})

	default:
		http.Error(w, "unsupported", http.StatusBadRequest)
	}
}

func rowNumber(rng string) int {
	m := rowRange.FindStringSubmatch(rng)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

func decodeValues(r *http.Request) [][]string {
	var body struct {
		Values [][]any `json:"values"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	out := make([][]string, len(body.Values))
	for i, row := range body.Values {
		for _, v := range row {
			out[i] = append(out[i], fmt.Sprint(v))
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T) (*Client, *fakeSheet) {
	t.Helper()
	fake := &fakeSheet{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), Options{SpreadsheetID: "sheet-id", Endpoint: srv.URL + "/"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c, fake
}

func row(id int64, amount string) ports.Row {
	return ports.Row{
		TransactionID: id,
		Date:          core.NewDate(2024, 1, 15),
		Account:       "Checking",
		Type:          core.Expense,
		Amount:        decimal.RequireFromString(amount),
		Currency:      "EUR",
		Description:   "groceries",
		Version:       1,
	}
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Options{})
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := New(context.Background(), Options{SpreadsheetID: "x"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClient_UpsertAppendsThenUpdates(t *testing.T) {
	ctx := context.Background()
	c, fake := newTestClient(t)

	if err := c.Upsert(ctx, row(1, "10")); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := c.Upsert(ctx, row(2, "20")); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if len(fake.grid) != 3 || fake.grid[0][0] != "ID" {
		t.Fatalf("expected header plus two rows, got %v", fake.grid)
	}

	changed := row(1, "12.5")
	changed.Version = 2
	if err := c.Upsert(ctx, changed); err != nil {
		t.Fatalf("update upsert: %v", err)
	}
	if len(fake.grid) != 3 {
		t.Fatalf("update appended a row: %v", fake.grid)
	}

	rows, err := c.ListRows(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %+v", rows)
	}
	if !rows[0].Amount.Equal(decimal.RequireFromString("12.5")) || rows[0].Version != 2 || rows[0].Date.String() != "2024-01-15" {
		t.Fatalf("row not updated: %+v", rows[0])
	}
}

func TestClient_Remove(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient(t)

	for _, id := range []int64{1, 2} {
		if err := c.Upsert(ctx, row(id, "1")); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	if err := c.Remove(ctx, 1); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := c.Remove(ctx, 42); err != nil {
		t.Fatalf("remove unknown: %v", err)
	}

	rows, err := c.ListRows(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 || rows[0].TransactionID != 2 {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestParseRow(t *testing.T) {
	tests := []struct {
		name string
		cols []string
		ok   bool
	}{
		{"header", []string{"ID", "Date", "Account", "Category", "Budget", "Type", "Amount"}, false},
		{"blank", []string{"", "", "", "", "", "", ""}, false},
		{"short", []string{"1", "2024-01-01"}, false},
		{"comma decimal", []string{"1", "2024-01-01", "A", "", "", "expense", "3,50", "EUR", "x", "4"}, true},
		{"bad date", []string{"1", "01/01/2024", "A", "", "", "expense", "3.50"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ok := parseRow(tt.cols)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && (!r.Amount.Equal(decimal.RequireFromString("3.5")) || r.Version != 4) {
				t.Fatalf("parsed %+v", r)
			}
		})
	}
}

func TestClient_NilService(t *testing.T) {
	c := &Client{spreadsheetID: "x", sheet: DefaultSheetName}
	if err := c.Upsert(context.Background(), row(1, "1")); err == nil {
		t.Fatal("expected error without service")
	}
	if err := c.Remove(context.Background(), 1); err == nil {
		t.Fatal("expected error without service")
	}
	if _, err := c.ListRows(context.Background()); err == nil {
		t.Fatal("expected error without service")
	}
}
