// Package http exposes the ledger services as a JSON API.
//
// This file implements utilities for reading caller identity, path and
// query identifiers, and JSON bodies from requests.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"budgettracker/internal/core"
)

// HeaderUserID carries the caller identity set by the authentication proxy.
const HeaderUserID = "X-User-ID"

const maxBodyBytes = 1 << 20

// errBadRequest marks malformed requests (400), as opposed to well-formed
// requests that fail validation (422).
var errBadRequest = errors.New("bad request")

// ownerFrom returns the caller identity, or "" when absent.
func ownerFrom(r *http.Request) string {
	return sanitizeInput(r.Header.Get(HeaderUserID))
}

// pathID parses the {id} wildcard of the matched route.
func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", errBadRequest, raw)
	}
	return id, nil
}

// queryID parses an optional positive id from the query string.
func queryID(query url.Values, key string) (*int64, error) {
	raw := strings.TrimSpace(query.Get(key))
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("%w: invalid %s %q", errBadRequest, key, raw)
	}
	return &id, nil
}

// moneyText keeps a JSON number or string verbatim so it can go through the
// core money parsers, which accept "12,34" as well as 12.34.
type moneyText string

func (m *moneyText) UnmarshalJSON(b []byte) error {
	switch {
	case string(b) == "null":
		*m = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*m = moneyText(s)
	default:
		*m = moneyText(b)
	}
	return nil
}

// amount parses a positive transaction or budget amount.
func (m moneyText) amount() (decimal.Decimal, error) {
	return core.ParseAmount(string(m))
}

// balance parses an account balance; empty means zero.
func (m moneyText) balance() (decimal.Decimal, error) {
	return core.ParseBalance(string(m))
}

// decodeJSON reads a single JSON object into dst. Unknown fields are
// rejected. Field values that fail domain parsing keep their validation
// error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, core.ErrValidation) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty request body", errBadRequest)
		}
		return fmt.Errorf("%w: malformed JSON body: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: request body must contain a single JSON object", errBadRequest)
	}
	return nil
}

// sanitizeInput removes control characters except tab, newline and
// carriage return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
