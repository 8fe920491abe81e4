package assessment

import (
	"strings"
	"time"
)

// Profile is the applicant's submitted application form. It is mutated only
// by explicit submission and survives the OAuth round-trip to the bank so
// the flow can resume where it left off.
type Profile struct {
	FullName      string    `json:"full_name"`
	NationalID    string    `json:"national_id"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	MonthlyIncome float64   `json:"monthly_income"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// Complete reports whether the profile carries everything scoring needs.
func (p *Profile) Complete() bool {
	return strings.TrimSpace(p.FullName) != "" &&
		strings.TrimSpace(p.NationalID) != "" &&
		strings.TrimSpace(p.Email) != "" &&
		p.MonthlyIncome >= 0
}
