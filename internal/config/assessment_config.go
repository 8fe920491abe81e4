package config

import "time"

// AssessmentConfig holds the credit scoring knobs. Component weights must
// sum to 1.0; the score range is 0-100.
type AssessmentConfig interface {
	GetLookbackWindow() time.Duration
	GetBalanceWeight() float64
	GetTransactionWeight() float64
	GetCashFlowWeight() float64
	GetApprovalThreshold() float64
	GetMinimumIncomeOverride() float64
	GetCurrencyGranularity() float64
	GetAssessmentStaleness() time.Duration
}

type Assessment struct{}

var _ AssessmentConfig = Assessment{}

func (Assessment) GetLookbackWindow() time.Duration {
	return 182 * 24 * time.Hour // 6 months
}

func (Assessment) GetBalanceWeight() float64 {
	return 0.40
}

func (Assessment) GetTransactionWeight() float64 {
	return 0.35
}

func (Assessment) GetCashFlowWeight() float64 {
	return 0.25
}

func (Assessment) GetApprovalThreshold() float64 {
	return 60
}

// GetMinimumIncomeOverride returns the declared-income carve-out threshold.
// Zero disables the carve-out: an empty snapshot is then always declined.
func (Assessment) GetMinimumIncomeOverride() float64 {
	return 0
}

func (Assessment) GetCurrencyGranularity() float64 {
	return 500 // AED
}

func (Assessment) GetAssessmentStaleness() time.Duration {
	return 5 * time.Minute
}
