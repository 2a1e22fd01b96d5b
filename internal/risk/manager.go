package risk

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"
	"cryptoSignalBot/internal/utils"
)

// DefaultTopN is the number of symbols a budget is split across.
const DefaultTopN = 4

// AllocationConfig holds configuration for budget allocation
type AllocationConfig struct {
	TopN int // number of highest-scoring symbols to fund
}

// Allocation is the suggested position for one symbol.
type Allocation struct {
	Symbol string
	Score  float64
	Amount float64 // quote currency to invest
	Entry  float64
	Target float64
	Stop   float64
}

// AllocationResult is the ordered list of funded symbols, highest score first.
type AllocationResult struct {
	Budget float64
	Items  []Allocation
}

// BySymbol returns the allocations keyed by symbol.
func (r AllocationResult) BySymbol() map[string]Allocation {
	out := make(map[string]Allocation, len(r.Items))
	for _, a := range r.Items {
		out[a.Symbol] = a
	}
	return out
}

// TotalAmount sums the allocated amounts. Rounding means it can differ from
// the budget by a few cents.
func (r AllocationResult) TotalAmount() float64 {
	amounts := make([]float64, len(r.Items))
	for i, a := range r.Items {
		amounts[i] = a.Amount
	}
	return floats.Sum(amounts)
}

// Manager ranks scored symbols and splits a budget across the best of them.
type Manager struct {
	config AllocationConfig
}

// NewManager creates a new allocation manager. A non-positive TopN falls back to DefaultTopN.
func NewManager(config AllocationConfig) *Manager {
	if config.TopN <= 0 {
		config.TopN = DefaultTopN
	}
	return &Manager{config: config}
}

// TopN returns the configured number of picks.
func (m *Manager) TopN() int {
	return m.config.TopN
}

// Rank orders results by score descending, keeping input order among equal
// scores, and returns at most TopN of them.
func (m *Manager) Rank(results []domain.SignalResult) []domain.SignalResult {
	ranked := make([]domain.SignalResult, len(results))
	copy(ranked, results)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if len(ranked) > m.config.TopN {
		ranked = ranked[:m.config.TopN]
	}
	return ranked
}

// Allocate ranks results and splits budget proportionally to score.
// When every selected score is zero, each amount is zero.
func (m *Manager) Allocate(results []domain.SignalResult, budget float64) (AllocationResult, error) {
	if budget < 0 || !domain.IsDefined(budget) {
		return AllocationResult{}, fmt.Errorf("budget %v must be a non-negative number: %w", budget, ports.ErrInvalidInput)
	}

	picks := m.Rank(results)
	scores := make([]float64, len(picks))
	for i, p := range picks {
		scores[i] = p.Score
	}
	total := floats.Sum(scores)
	if total == 0 {
		total = 1
	}

	out := AllocationResult{Budget: budget, Items: make([]Allocation, 0, len(picks))}
	for _, p := range picks {
		closePrice := p.Snapshot.Close
		target, stop := GetTakeProfit(closePrice, p.Strategy.TPRatio), GetStopLoss(closePrice, p.Strategy.SLRatio)
		out.Items = append(out.Items, Allocation{
			Symbol: p.Symbol,
			Score:  utils.Round2(p.Score),
			Amount: utils.Round2(budget * p.Score / total),
			Entry:  utils.Round2(closePrice),
			Target: utils.Round2(target),
			Stop:   utils.Round2(stop),
		})
	}
	return out, nil
}

// GetStopLoss calculates the stop price for a long position.
func GetStopLoss(entryPrice, slRatio float64) float64 {
	return entryPrice * slRatio
}

// GetTakeProfit calculates the target price for a long position.
func GetTakeProfit(entryPrice, tpRatio float64) float64 {
	return entryPrice * tpRatio
}

// PotentialPnL returns the profit at target and the loss at stop for amount
// invested at entry. A non-positive entry yields zeros.
func PotentialPnL(amount, entry, target, stop float64) (profit, loss float64) {
	if entry <= 0 {
		return 0, 0
	}
	quantity := amount / entry
	return (target - entry) * quantity, (entry - stop) * quantity
}
