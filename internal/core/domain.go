package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"

	DefaultRole = "admin"
)

type (
	User struct {
		ID           int64  `json:"id"`
		Username     string `json:"username"`
		PasswordHash string `json:"-"`
		Role         string `json:"role"`
	}

	Party struct {
		ID        int64   `json:"id"`
		Name      string  `json:"name"`
		Mobile    *string `json:"mobile"`
		Email     *string `json:"email"`
		CreatedAt string  `json:"created_at"`
	}

	Entry struct {
		ID        int64   `json:"id"`
		Date      string  `json:"date"`
		PartyID   *int64  `json:"party_id"`
		PartyName string  `json:"party_name"`
		Purpose   string  `json:"purpose"`
		Debit     float64 `json:"debit"`
		Credit    float64 `json:"credit"`
		Reference string  `json:"reference"`
		CreatedAt string  `json:"created_at"`
	}

	// NewEntry is the validated input of the upsert workflow.
	NewEntry struct {
		Date      string
		PartyName string
		Purpose   string
		Debit     float64
		Credit    float64
		Reference string
		Mobile    string
		Email     string
	}

	// PartyContact carries the optional contact fields supplied with a write.
	PartyContact struct {
		Name   string
		Mobile string
		Email  string
	}
)

var (
	ErrEmptyDate      = errors.New("date is required")
	ErrEmptyPartyName = errors.New("party name is required")
	ErrInvalidDate    = errors.New("date must be YYYY-MM-DD")
	ErrInvalidMonth   = errors.New("month must be YYYY-MM")
)

// Validate trims the input in place and checks the required fields.
func (e *NewEntry) Validate() error {
	e.Date = strings.TrimSpace(e.Date)
	e.PartyName = strings.TrimSpace(e.PartyName)
	e.Purpose = strings.TrimSpace(e.Purpose)
	e.Reference = strings.TrimSpace(e.Reference)
	e.Mobile = strings.TrimSpace(e.Mobile)
	e.Email = strings.TrimSpace(e.Email)

	if e.Date == "" {
		return fmt.Errorf("%w: %w", ErrInvalidInput, ErrEmptyDate)
	}
	if e.PartyName == "" {
		return fmt.Errorf("%w: %w", ErrInvalidInput, ErrEmptyPartyName)
	}
	if err := ValidateDate(e.Date); err != nil {
		return err
	}
	if e.Debit < 0 || e.Credit < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidInput, ErrNegativeAmount)
	}
	if !Finite(e.Debit, e.Credit) || e.Debit > maxAmount || e.Credit > maxAmount {
		return fmt.Errorf("%w: %w", ErrInvalidInput, ErrAmountTooLarge)
	}
	return nil
}

// Contact returns the party fields of the entry.
func (e NewEntry) Contact() PartyContact {
	return PartyContact{Name: e.PartyName, Mobile: e.Mobile, Email: e.Email}
}

// Validate trims the contact in place and requires a name.
func (c *PartyContact) Validate() error {
	c.Name = strings.TrimSpace(c.Name)
	c.Mobile = strings.TrimSpace(c.Mobile)
	c.Email = strings.TrimSpace(c.Email)
	if c.Name == "" {
		return fmt.Errorf("%w: %w", ErrInvalidInput, ErrEmptyPartyName)
	}
	return nil
}

// ValidateDate checks a YYYY-MM-DD calendar date.
func ValidateDate(s string) error {
	if _, err := time.Parse(DateLayout, s); err != nil {
		return fmt.Errorf("%w: %w: %q", ErrInvalidInput, ErrInvalidDate, s)
	}
	return nil
}

// ValidateMonth checks a YYYY-MM month key.
func ValidateMonth(s string) error {
	if _, err := time.Parse(MonthLayout, s); err != nil {
		return fmt.Errorf("%w: %w: %q", ErrInvalidInput, ErrInvalidMonth, s)
	}
	return nil
}

// MonthOf returns the month key of a YYYY-MM-DD date.
func MonthOf(date string) string {
	if len(date) < 7 {
		return date
	}
	return date[:7]
}

// StringOrNil maps an empty string to a NULL-able pointer.
func StringOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
