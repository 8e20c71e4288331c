package core

// BalanceStatus tells which way money is owed for a party balance.
type BalanceStatus string

const (
	// StatusCollect means the party owes the ledger owner.
	StatusCollect BalanceStatus = "Collect"
	// StatusPay means the ledger owner owes the party.
	StatusPay BalanceStatus = "Pay"
	StatusSettled BalanceStatus = "Settled"
)

// StatusOf maps a balance to its direction.
func StatusOf(balance float64) BalanceStatus {
	switch {
	case balance > 0:
		return StatusCollect
	case balance < 0:
		return StatusPay
	default:
		return StatusSettled
	}
}

type (
	Totals struct {
		TotalDebit  float64 `json:"total_debit"`
		TotalCredit float64 `json:"total_credit"`
	}

	PartySummary struct {
		Party
		TotalDebit  float64       `json:"total_debit"`
		TotalCredit float64       `json:"total_credit"`
		Balance     float64       `json:"balance"`
		Status      BalanceStatus `json:"status"`
	}

	PartyLedger struct {
		Party   Party         `json:"party"`
		Entries []Entry       `json:"entries"`
		Balance float64       `json:"balance"`
		Status  BalanceStatus `json:"status"`
	}

	// PartyStatement lists a party's entries oldest first, with totals.
	PartyStatement struct {
		Party   Party   `json:"party"`
		Entries []Entry `json:"entries"`
		Totals  Totals  `json:"totals"`
		Balance float64 `json:"balance"`
	}

	MonthReport struct {
		Month  string  `json:"month"`
		Rows   []Entry `json:"rows"`
		Totals Totals  `json:"totals"`
	}

	MonthSummary struct {
		Month       string  `json:"month"`
		TotalDebit  float64 `json:"total_debit"`
		TotalCredit float64 `json:"total_credit"`
	}
)

// TotalsOf sums the debit and credit columns of entries.
func TotalsOf(entries []Entry) Totals {
	debits := make([]float64, len(entries))
	credits := make([]float64, len(entries))
	for i, e := range entries {
		debits[i] = e.Debit
		credits[i] = e.Credit
	}
	return Totals{TotalDebit: SumAmounts(debits...), TotalCredit: SumAmounts(credits...)}
}

// Balance returns credit minus debit for the totals.
func (t Totals) Balance() float64 {
	return Balance(t.TotalDebit, t.TotalCredit)
}
