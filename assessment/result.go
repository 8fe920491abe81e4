package assessment

import "time"

// ComponentScores are the only legitimate inputs to the final score.
// IncomeMultiplier scales the credit limit, not the score.
type ComponentScores struct {
	BalanceScore     float64 `json:"balanceScore"`
	TransactionScore float64 `json:"transactionScore"`
	CashFlowScore    float64 `json:"cashFlowScore"`
	IncomeMultiplier float64 `json:"incomeMultiplier"`
}

// Result is one credit assessment. It is created by the engine, cached per
// session, and replaced wholesale on recompute, never partially merged.
type Result struct {
	Score       float64         `json:"score"`
	Approved    bool            `json:"approved"`
	CreditLimit float64         `json:"creditLimit"`
	APR         float64         `json:"apr"`
	SetupFee    float64         `json:"setupFee"`
	Components  ComponentScores `json:"details"`
	Reason      string          `json:"reason"`
	ComputedAt  time.Time       `json:"timestamp"`
}
