package core

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// DateLayout is the wire and storage layout of calendar dates.
const DateLayout = "2006-01-02"

type (
	TransactionType string

	// Date is a calendar date stored as UTC midnight.
	Date struct {
		time.Time
	}

	// User is the owner key handed over by the authentication layer.
	User struct {
		ID         string
		CreatedAt  time.Time
		ModifiedAt time.Time
	}

	Account struct {
		ID          int64
		UserID      string
		Name        string
		Currency    string
		Balance     decimal.Decimal
		Description string
		Version     int64
		CreatedAt   time.Time
		ModifiedAt  time.Time
	}

	Category struct {
		ID          int64
		UserID      string
		Name        string
		Description string
		ParentID    *int64
		Version     int64
		CreatedAt   time.Time
		ModifiedAt  time.Time
	}

	// Budget is a spending cap over [StartDate, EndDate]. Spent and income
	// figures are never stored; see ComputeBudgetStats.
	Budget struct {
		ID         int64
		UserID     string
		Name       string
		Amount     decimal.Decimal
		StartDate  Date
		EndDate    Date
		AccountID  *int64
		Version    int64
		CreatedAt  time.Time
		ModifiedAt time.Time
	}

	Transaction struct {
		ID          int64
		UserID      string
		AccountID   int64
		CategoryID  *int64
		BudgetID    *int64
		Amount      decimal.Decimal
		Type        TransactionType
		Date        Date
		Description string
		Version     int64
		CreatedAt   time.Time
		ModifiedAt  time.Time
	}
)

var (
	ErrInvalidDate        = fmt.Errorf("%w: invalid date", ErrValidation)
	ErrInvalidAmount      = fmt.Errorf("%w: amount must be greater than zero", ErrValidation)
	ErrInvalidType        = fmt.Errorf("%w: type must be income or expense", ErrValidation)
	ErrInvalidCurrency    = fmt.Errorf("%w: currency must be a 3-letter ISO code", ErrValidation)
	ErrInvalidName        = fmt.Errorf("%w: name must be between 2 and 100 characters", ErrValidation)
	ErrDescriptionTooLong = fmt.Errorf("%w: description too long", ErrValidation)
	ErrInvalidDateRange   = fmt.Errorf("%w: end date must be after start date", ErrValidation)
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// Sign is +1 for income and -1 for expense.
func (t TransactionType) Sign() decimal.Decimal {
	if t == Income {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(-1)
}

func (t TransactionType) Validate() error {
	switch t {
	case Income, Expense:
		return nil
	}
	return ErrInvalidType
}

// ParseTransactionType accepts "income"/"expense" in any letter case.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if err := t.Validate(); err != nil {
		return "", err
	}
	return t, nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return NewDate(y, int(m), d)
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Within reports whether d lies in [start, end], both ends inclusive.
func (d Date) Within(start, end Date) bool {
	return !d.Before(start.Time) && !d.After(end.Time)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return ErrInvalidDate
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	// Accept full timestamps too; only the calendar day is kept.
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		*d = DateOf(t)
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func validateName(name string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n < 2 || n > 100 {
		return ErrInvalidName
	}
	return nil
}

func validateDescription(desc string, max int) error {
	if utf8.RuneCountInString(desc) > max {
		return fmt.Errorf("%w (max %d characters)", ErrDescriptionTooLong, max)
	}
	return nil
}

// ValidateCurrency checks the ISO 4217 shape, not membership.
func ValidateCurrency(code string) error {
	if !currencyPattern.MatchString(code) {
		return ErrInvalidCurrency
	}
	return nil
}

func (a Account) Validate() error {
	if err := validateName(a.Name); err != nil {
		return err
	}
	if err := ValidateCurrency(a.Currency); err != nil {
		return err
	}
	return validateDescription(a.Description, 500)
}

func (c Category) Validate() error {
	if err := validateName(c.Name); err != nil {
		return err
	}
	if c.ParentID != nil && c.ID != 0 && *c.ParentID == c.ID {
		return ErrCategoryCycle
	}
	return validateDescription(c.Description, 500)
}

func (b Budget) Validate() error {
	if err := validateName(b.Name); err != nil {
		return err
	}
	if !b.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if err := b.StartDate.Validate(); err != nil {
		return fmt.Errorf("start date: %w", err)
	}
	if err := b.EndDate.Validate(); err != nil {
		return fmt.Errorf("end date: %w", err)
	}
	if !b.EndDate.After(b.StartDate.Time) {
		return ErrInvalidDateRange
	}
	return nil
}

func (t Transaction) Validate() error {
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if err := t.Type.Validate(); err != nil {
		return err
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if t.AccountID <= 0 {
		return fmt.Errorf("%w: account is required", ErrValidation)
	}
	return validateDescription(t.Description, 100)
}
