package swap

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"swaprouter/internal/chain"
)

// RankingConfig holds the scoring weights and affinity tables used to order
// candidate strategies. Zero values fall back to defaults.
type RankingConfig struct {
	// ChainAffinity scores a (chain, strategy) pair.
	ChainAffinity map[uint64]map[string]float64
	// TokenAffinity scores a (token symbol, strategy) pair; applied for
	// either side of the requested pair.
	TokenAffinity map[string]map[string]float64
	// CrossChainBonus is added to the bridge strategy on cross-chain
	// requests; every other combination gets SameChainBonus.
	CrossChainBonus float64
	SameChainBonus  float64
	// Performance term: SuccessWeight * successRate +
	// LatencyWeight * max(0, LatencyCeilingSeconds - averageTime).
	SuccessWeight         float64
	LatencyWeight         float64
	LatencyCeilingSeconds float64
}

func (c RankingConfig) withDefaults() RankingConfig {
	if c.CrossChainBonus == 0 {
		c.CrossChainBonus = 100
	}
	if c.SameChainBonus == 0 {
		c.SameChainBonus = 5
	}
	if c.SuccessWeight == 0 {
		c.SuccessWeight = 20
	}
	if c.LatencyWeight == 0 {
		c.LatencyWeight = 0.2
	}
	if c.LatencyCeilingSeconds == 0 {
		c.LatencyCeilingSeconds = 60
	}
	return c
}

// Options configures an Orchestrator.
type Options struct {
	// Strategies in registration order; ranking ties break in this order.
	Strategies []Strategy
	Ranking    RankingConfig
	Logger     *zap.Logger
}

// Orchestrator ranks applicable strategies per request, tries them in order
// with automatic fail-over, and keeps rolling per-strategy performance
// records. Safe for concurrent use; the performance map is the only shared
// mutable state.
type Orchestrator struct {
	strategies []Strategy
	ranking    RankingConfig
	tracker    *performanceTracker
	logger     *zap.Logger
}

// New builds an Orchestrator.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		strategies: opts.Strategies,
		ranking:    opts.Ranking.withDefaults(),
		tracker:    newPerformanceTracker(),
		logger:     logger,
	}
}

// Performance returns the current rolling record for a strategy.
func (o *Orchestrator) Performance(name string) Performance {
	return o.tracker.snapshot(name)
}

// ExecuteSwap runs the request through the ranked strategies: first success
// wins; a failed strategy is recorded and the next one is tried. A
// confirmed-reverted transaction is never resubmitted, only strategy
// selection is retried. The returned result always carries a user-facing
// error message on failure.
func (o *Orchestrator) ExecuteSwap(ctx context.Context, params Params, cb Callbacks) *Result {
	ranked, failure := o.rankedFor(params)
	if failure != nil {
		return failure
	}

	var lastErr error
	for _, strategy := range ranked {
		name := strategy.Name()
		start := time.Now()

		result, err := strategy.Execute(ctx, params, cb)
		elapsed := time.Since(start)

		if err == nil && result != nil && result.Success {
			o.tracker.update(name, true, elapsed)
			result.Strategy = name
			o.logger.Info("swap executed",
				zap.String("strategy", name),
				zap.String("tx", result.TxHash),
				zap.Duration("elapsed", elapsed),
			)
			return result
		}

		if err == nil {
			err = fmt.Errorf("strategy %s returned no result", name)
		}
		err = classify(err)
		o.tracker.update(name, false, elapsed)
		lastErr = err

		o.logger.Warn("strategy failed",
			zap.String("strategy", name),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)

		if isFatal(err) {
			break
		}
	}

	// All strategies failed: one aggregate failure, the last error mapped to
	// actionable guidance. Per-strategy diagnostics stay in the logs.
	return &Result{Success: false, Error: friendlyMessage(lastErr)}
}

// GetEstimate quotes the request using only the top-ranked strategy. There is
// no fail-over for read-only estimation; errors propagate.
func (o *Orchestrator) GetEstimate(ctx context.Context, params Params) (*Estimate, error) {
	best, err := o.bestFor(params)
	if err != nil {
		return nil, err
	}
	return best.Estimate(ctx, params)
}

// ValidateSwap checks the request against the top-ranked strategy.
func (o *Orchestrator) ValidateSwap(ctx context.Context, params Params) error {
	best, err := o.bestFor(params)
	if err != nil {
		return err
	}
	return best.Validate(ctx, params)
}

func (o *Orchestrator) bestFor(params Params) (Strategy, error) {
	if err := o.checkRequest(params); err != nil {
		return nil, err
	}
	candidates := o.candidates(params)
	if len(candidates) == 0 {
		return nil, o.noCandidateError(params)
	}
	return o.rank(candidates, params)[0], nil
}

// rankedFor validates the request and returns the ranked candidates, or a
// terminal failure result when nothing can be attempted.
func (o *Orchestrator) rankedFor(params Params) ([]Strategy, *Result) {
	if err := o.checkRequest(params); err != nil {
		return nil, &Result{Success: false, Error: friendlyRequestError(err, params)}
	}
	candidates := o.candidates(params)
	if len(candidates) == 0 {
		err := o.noCandidateError(params)
		return nil, &Result{Success: false, Error: friendlyRequestError(err, params)}
	}
	return o.rank(candidates, params), nil
}

// checkRequest rejects structurally invalid or unsupported-chain requests
// before any strategy is consulted.
func (o *Orchestrator) checkRequest(params Params) error {
	if err := params.Validate(); err != nil {
		return err
	}
	if !chain.IsSupported(params.FromChainID) {
		return fmt.Errorf("%w: source network %s", ErrUnsupported, chain.NetworkName(params.FromChainID))
	}
	if !chain.IsSupported(params.ToChainID) {
		return fmt.Errorf("%w: destination network %s", ErrUnsupported, chain.NetworkName(params.ToChainID))
	}
	return nil
}

func (o *Orchestrator) candidates(params Params) []Strategy {
	var candidates []Strategy
	for _, s := range o.strategies {
		if s.Supports(params) {
			candidates = append(candidates, s)
		}
	}
	return candidates
}

func (o *Orchestrator) noCandidateError(params Params) error {
	return fmt.Errorf("%w: no strategy can swap %s on %s for %s on %s",
		ErrUnsupported,
		params.FromToken, chain.NetworkName(params.FromChainID),
		params.ToToken, chain.NetworkName(params.ToChainID))
}

// rank orders candidates by descending score. The sort is stable, so ties
// keep registration order; for a fixed performance snapshot the order is
// deterministic.
func (o *Orchestrator) rank(candidates []Strategy, params Params) []Strategy {
	type scored struct {
		strategy Strategy
		score    float64
	}

	// Scores ride alongside each instance rather than in a name-keyed map, so
	// two strategies sharing a name cannot alias each other.
	ranked := make([]scored, len(candidates))
	for i, s := range candidates {
		ranked[i] = scored{strategy: s, score: o.score(s.Name(), params)}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	out := make([]Strategy, len(ranked))
	for i, r := range ranked {
		out[i] = r.strategy
	}
	return out
}

func (o *Orchestrator) score(name string, params Params) float64 {
	cfg := o.ranking
	score := cfg.ChainAffinity[params.FromChainID][name]

	if chain.IsCrossChain(params.FromChainID, params.ToChainID) && name == BridgeStrategyName {
		score += cfg.CrossChainBonus
	} else {
		score += cfg.SameChainBonus
	}

	perf := o.tracker.snapshot(name)
	score += perf.SuccessRate * cfg.SuccessWeight
	if slack := cfg.LatencyCeilingSeconds - perf.AverageTimeSeconds; slack > 0 {
		score += slack * cfg.LatencyWeight
	}

	score += cfg.TokenAffinity[strings.ToUpper(params.FromToken)][name]
	score += cfg.TokenAffinity[strings.ToUpper(params.ToToken)][name]

	return score
}

// friendlyRequestError keeps the diagnostic (which chain or pair was
// unsupported) visible to the user instead of collapsing it into the generic
// mapping table.
func friendlyRequestError(err error, params Params) string {
	if !chain.IsSupported(params.FromChainID) {
		return fmt.Sprintf("%s is not a supported network.", chain.NetworkName(params.FromChainID))
	}
	if !chain.IsSupported(params.ToChainID) {
		return fmt.Sprintf("%s is not a supported network.", chain.NetworkName(params.ToChainID))
	}
	if errors.Is(err, ErrUnsupported) {
		return fmt.Sprintf("Swapping %s on %s for %s on %s is not supported.",
			params.FromToken, chain.NetworkName(params.FromChainID),
			params.ToToken, chain.NetworkName(params.ToChainID))
	}
	return friendlyMessage(err)
}
