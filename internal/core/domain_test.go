package core

import (
	"errors"
	"math"
	"testing"
)

func TestNewEntryValidate(t *testing.T) {
	good := NewEntry{Date: " 2024-01-05 ", PartyName: " Acme ", Debit: 100}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if good.Date != "2024-01-05" || good.PartyName != "Acme" {
		t.Fatalf("expected trimmed fields, got %q %q", good.Date, good.PartyName)
	}

	bads := []struct {
		name string
		in   NewEntry
		want error
	}{
		{"missing date", NewEntry{PartyName: "Acme"}, ErrEmptyDate},
		{"blank party", NewEntry{Date: "2024-01-05", PartyName: "   "}, ErrEmptyPartyName},
		{"bad date", NewEntry{Date: "05/01/2024", PartyName: "Acme"}, ErrInvalidDate},
		{"impossible date", NewEntry{Date: "2024-02-30", PartyName: "Acme"}, ErrInvalidDate},
		{"negative debit", NewEntry{Date: "2024-01-05", PartyName: "Acme", Debit: -1}, ErrNegativeAmount},
		{"huge credit", NewEntry{Date: "2024-01-05", PartyName: "Acme", Credit: 2e15}, ErrAmountTooLarge},
		{"infinite debit", NewEntry{Date: "2024-01-05", PartyName: "Acme", Debit: math.Inf(1)}, ErrAmountTooLarge},
		{"NaN credit", NewEntry{Date: "2024-01-05", PartyName: "Acme", Credit: math.NaN()}, ErrAmountTooLarge},
	}
	for _, tc := range bads {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.in.Validate()
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestValidateMonth(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2024-01", true},
		{"2024-12", true},
		{"2024-13", false},
		{"2024-1", false},
		{"24-01", false},
		{"", false},
		{"2024-01-05", false},
	}
	for _, tc := range cases {
		err := ValidateMonth(tc.in)
		if tc.ok && err != nil {
			t.Errorf("ValidateMonth(%q) unexpected error %v", tc.in, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidInput) {
			t.Errorf("ValidateMonth(%q) expected ErrInvalidInput, got %v", tc.in, err)
		}
	}
}

func TestMonthOf(t *testing.T) {
	if got := MonthOf("2024-01-05"); got != "2024-01" {
		t.Fatalf("MonthOf = %q", got)
	}
	if got := MonthOf("2024"); got != "2024" {
		t.Fatalf("MonthOf short = %q", got)
	}
}

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{ValidateMonth("x"), KindInvalidInput},
		{ErrInvalidCredentials, KindInvalidCredentials},
		{errors.Join(errors.New("party 3"), ErrNotFound), KindNotFound},
		{errors.New("disk full"), KindInternal},
	}
	for _, tc := range cases {
		if got := KindOf(tc.err); got != tc.want {
			t.Errorf("KindOf(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}

func TestStatusOf(t *testing.T) {
	if StatusOf(10) != StatusCollect || StatusOf(-0.5) != StatusPay || StatusOf(0) != StatusSettled {
		t.Fatal("unexpected balance status mapping")
	}
}
