// Package assessment computes a creditworthiness score and offer terms from
// an applicant's profile and their fetched account data.
package assessment

import (
	"fmt"
	"math"
	"time"

	"github.com/credlink/openbank-credit/bank"
	"github.com/credlink/openbank-credit/internal/config"
	"github.com/pkg/errors"
)

// Scoring constants. Component weights live in config and must sum to 1.0;
// these shape the individual component curves.
const (
	balanceDivisor     = 400  // AED per balance point; caps at 40,000
	transactionPoints  = 2    // points per transaction in the window
	cashFlowBase       = 50   // neutral cash flow lands here
	cashFlowFactor     = 250  // scales net/(income*months) into points
	cashFlowMonths     = 6    // declared income months in the denominator
	baseLimit          = 2000 // AED, before the per-point and income scaling
	limitPerScorePoint = 100  // AED of base limit per score point
	maxIncomeMult      = 3.0
	minIncomeMult      = 0.5
	incomeMultDivisor  = 10000 // AED of monthly income per multiplier step
	scoreFloor         = 0
	scoreCeiling       = 100
)

// APR tiers keyed by score band, highest band first.
var aprTiers = []struct {
	MinScore float64
	APR      float64
}{
	{80, 12.9},
	{65, 17.9},
	{50, 24.9},
	{0, 29.9},
}

const (
	setupFeeStandard = 149 // AED, waived for the top score band
	topBandScore     = 80
)

var (
	ErrProfileIncomplete   = errors.New("application profile incomplete")
	ErrSnapshotUnavailable = errors.New("account snapshot unavailable")
)

// Engine computes assessments. Deterministic: the same profile and snapshot
// at the same instant always produce the same result.
type Engine struct {
	cfg     config.AssessmentConfig
	nowTime func() time.Time
}

// EngineOption defines a function type to modify the Engine instance.
type EngineOption func(*Engine)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) EngineOption {
	return func(e *Engine) {
		e.nowTime = nowFunc
	}
}

// NewEngine creates an assessment engine with the given scoring config.
func NewEngine(cfg config.AssessmentConfig, options ...EngineOption) *Engine {
	e := &Engine{
		cfg:     cfg,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

// Compute scores the applicant. An empty snapshot (zero accounts or zero
// transactions) is not an error: the dependent scores degrade to their floor
// and the application is declined unless the minimum-income carve-out
// applies. Denominators of zero never divide; they substitute the floor.
func (e *Engine) Compute(profile *Profile, snapshot *bank.AccountSnapshot) (*Result, error) {
	if profile == nil || !profile.Complete() {
		return nil, errors.Wrap(ErrProfileIncomplete, "[Engine.Compute]")
	}
	if snapshot == nil {
		return nil, errors.Wrap(ErrSnapshotUnavailable, "[Engine.Compute]")
	}

	now := e.nowTime()
	window := snapshot.TransactionsSince(now.Add(-e.cfg.GetLookbackWindow()))

	components := ComponentScores{
		BalanceScore:     balanceScore(snapshot),
		TransactionScore: transactionScore(window),
		CashFlowScore:    cashFlowScore(window, profile.MonthlyIncome),
		IncomeMultiplier: incomeMultiplier(profile.MonthlyIncome),
	}

	score := clamp(
		e.cfg.GetBalanceWeight()*components.BalanceScore+
			e.cfg.GetTransactionWeight()*components.TransactionScore+
			e.cfg.GetCashFlowWeight()*components.CashFlowScore,
		scoreFloor, scoreCeiling)

	approved := score >= e.cfg.GetApprovalThreshold()

	result := &Result{
		Score:      score,
		Approved:   approved,
		Components: components,
		ComputedAt: now,
	}

	if !approved {
		// Minimum-income carve-out for applicants with no scoreable data.
		if override := e.cfg.GetMinimumIncomeOverride(); override > 0 &&
			len(snapshot.Accounts) == 0 && profile.MonthlyIncome >= override {
			result.Approved = true
			result.CreditLimit = roundToGranularity(baseLimit*components.IncomeMultiplier, e.cfg.GetCurrencyGranularity())
			result.APR = aprTiers[len(aprTiers)-1].APR
			result.SetupFee = setupFeeStandard
			result.Reason = "approved under the minimum-income policy; no account history was available"
			return result, nil
		}
		result.Reason = declineReason(e.cfg, components)
		return result, nil
	}

	result.CreditLimit = roundToGranularity(
		(baseLimit+limitPerScorePoint*score)*components.IncomeMultiplier,
		e.cfg.GetCurrencyGranularity())
	result.APR = aprForScore(score)
	if score < topBandScore {
		result.SetupFee = setupFeeStandard
	}
	result.Reason = approveReason(e.cfg, components)

	return result, nil
}

// balanceScore is a monotonic function of total balance, capped.
func balanceScore(snapshot *bank.AccountSnapshot) float64 {
	if len(snapshot.Accounts) == 0 || len(snapshot.Balances) == 0 {
		return scoreFloor
	}
	total := snapshot.TotalBalance()
	if total <= 0 {
		return scoreFloor
	}
	return clamp(total/balanceDivisor, scoreFloor, scoreCeiling)
}

// transactionScore is a monotonic function of activity in the lookback
// window, capped.
func transactionScore(window []bank.Transaction) float64 {
	return clamp(float64(len(window))*transactionPoints, scoreFloor, scoreCeiling)
}

// cashFlowScore relates net flow over the window to declared income.
// Neutral flow scores the base; negative flow is penalized below it. A zero
// income denominator substitutes the floor rather than dividing.
func cashFlowScore(window []bank.Transaction, monthlyIncome float64) float64 {
	if monthlyIncome <= 0 || len(window) == 0 {
		return scoreFloor
	}
	ratio := bank.NetFlow(window) / (monthlyIncome * cashFlowMonths)
	return clamp(cashFlowBase+cashFlowFactor*ratio, scoreFloor, scoreCeiling)
}

// incomeMultiplier is a monotonic, capped function of declared income. It
// scales the credit limit, never the score.
func incomeMultiplier(monthlyIncome float64) float64 {
	if monthlyIncome <= 0 {
		return minIncomeMult
	}
	return math.Min(maxIncomeMult, minIncomeMult+monthlyIncome/incomeMultDivisor)
}

func aprForScore(score float64) float64 {
	for _, tier := range aprTiers {
		if score >= tier.MinScore {
			return tier.APR
		}
	}
	return aprTiers[len(aprTiers)-1].APR
}

func roundToGranularity(amount, granularity float64) float64 {
	if granularity <= 0 {
		return math.Round(amount)
	}
	return math.Round(amount/granularity) * granularity
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

type weightedComponent struct {
	name     string
	weighted float64
}

func weightedComponents(cfg config.AssessmentConfig, c ComponentScores) []weightedComponent {
	return []weightedComponent{
		{"strong account balances", cfg.GetBalanceWeight() * c.BalanceScore},
		{"consistent transaction history", cfg.GetTransactionWeight() * c.TransactionScore},
		{"healthy cash flow", cfg.GetCashFlowWeight() * c.CashFlowScore},
	}
}

func approveReason(cfg config.AssessmentConfig, c ComponentScores) string {
	parts := weightedComponents(cfg, c)
	best := parts[0]
	for _, p := range parts[1:] {
		if p.weighted > best.weighted {
			best = p
		}
	}
	return fmt.Sprintf("approved primarily on %s", best.name)
}

func declineReason(cfg config.AssessmentConfig, c ComponentScores) string {
	names := []string{"insufficient account balances", "limited transaction history", "weak cash flow"}
	parts := weightedComponents(cfg, c)
	worst := 0
	for i := range parts {
		if parts[i].weighted < parts[worst].weighted {
			worst = i
		}
	}
	return fmt.Sprintf("declined due to %s", names[worst])
}
