package bank

import "time"

// Account is one linked bank account.
type Account struct {
	AccountID string `json:"AccountId"`
	Currency  string `json:"Currency"`
	Nickname  string `json:"Nickname,omitempty"`
}

// Balance is the current balance of one account.
type Balance struct {
	AccountID string  `json:"AccountId"`
	Amount    float64 `json:"Amount"`
	Currency  string  `json:"Currency"`
}

// Transaction is one booked movement on an account. Credits are inflows,
// debits are outflows; Amount is always positive.
type Transaction struct {
	AccountID   string    `json:"AccountId"`
	Amount      float64   `json:"Amount"`
	CreditDebit string    `json:"CreditDebitIndicator"` // "Credit" or "Debit"
	BookingDate time.Time `json:"BookingDateTime"`
	Description string    `json:"TransactionInformation,omitempty"`
}

// Beneficiary is a saved payee on an account.
type Beneficiary struct {
	AccountID string `json:"AccountId"`
	Name      string `json:"Name"`
}

// AccountSnapshot is the account data fetched from the bank with an access
// token. The assessment engine treats it as opaque input; it is replaced
// wholesale on refresh, never mutated.
type AccountSnapshot struct {
	Accounts      []Account     `json:"accounts"`
	Balances      []Balance     `json:"balances"`
	Transactions  []Transaction `json:"transactions"`
	Beneficiaries []Beneficiary `json:"beneficiaries"`
	FetchedAt     time.Time     `json:"fetched_at"`
}

// TotalBalance sums all account balances.
func (s *AccountSnapshot) TotalBalance() float64 {
	var total float64
	for _, b := range s.Balances {
		total += b.Amount
	}
	return total
}

// TransactionsSince returns the transactions booked on or after the cutoff.
func (s *AccountSnapshot) TransactionsSince(cutoff time.Time) []Transaction {
	var out []Transaction
	for _, tx := range s.Transactions {
		if !tx.BookingDate.Before(cutoff) {
			out = append(out, tx)
		}
	}
	return out
}

// NetFlow returns total inflow minus total outflow for the given
// transactions.
func NetFlow(txs []Transaction) float64 {
	var net float64
	for _, tx := range txs {
		if tx.CreditDebit == "Credit" {
			net += tx.Amount
		} else {
			net -= tx.Amount
		}
	}
	return net
}
