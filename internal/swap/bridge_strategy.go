package swap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"swaprouter/internal/aggregator"
	"swaprouter/internal/broker"
	"swaprouter/internal/chain"
	"swaprouter/internal/token"
)

// BridgeStrategyName is the performance-map key for the cross-chain strategy.
const BridgeStrategyName = "crosschain-bridge"

// BridgeStrategy services cross-chain pairs through the external aggregator's
// multi-step bridge routes. All executed steps run on the source chain; the
// primary result hash is the source-chain transaction, since destination-chain
// settlement is asynchronous and outside the caller's observable sequence.
type BridgeStrategy struct {
	cfg      AggregatorStrategyConfig
	client   *aggregator.Client
	executor routeExecutor
	tokens   *token.Registry
	chains   map[uint64]bool
}

// NewBridgeStrategy builds the strategy with its dependencies.
func NewBridgeStrategy(cfg AggregatorStrategyConfig, client *aggregator.Client, backends map[uint64]broker.Backend, signer chain.Signer, tokens *token.Registry, logger *zap.Logger) *BridgeStrategy {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Confirmations == 0 {
		cfg.Confirmations = 1
	}
	chains := make(map[uint64]bool, len(cfg.Chains))
	for _, id := range cfg.Chains {
		chains[id] = true
	}
	return &BridgeStrategy{
		cfg:    cfg,
		client: client,
		executor: routeExecutor{
			backends:      backends,
			signer:        signer,
			confirmations: cfg.Confirmations,
			wait:          cfg.Wait,
			logger:        logger,
		},
		tokens: tokens,
		chains: chains,
	}
}

// Name implements Strategy.
func (s *BridgeStrategy) Name() string { return BridgeStrategyName }

// Supports implements Strategy: cross-chain pairs only, on serviced chains.
func (s *BridgeStrategy) Supports(params Params) bool {
	return chain.IsCrossChain(params.FromChainID, params.ToChainID) &&
		s.chains[params.FromChainID] &&
		s.chains[params.ToChainID]
}

// Validate implements Strategy.
func (s *BridgeStrategy) Validate(_ context.Context, params Params) error {
	if !s.Supports(params) {
		return fmt.Errorf("%w: %s only services cross-chain swaps (%s -> %s requested)",
			ErrUnsupported, s.Name(), chain.NetworkName(params.FromChainID), chain.NetworkName(params.ToChainID))
	}
	_, _, err := buildRouteRequest(s.tokens, params)
	return err
}

// Estimate implements Strategy.
func (s *BridgeStrategy) Estimate(ctx context.Context, params Params) (*Estimate, error) {
	return estimateViaRoutes(ctx, s.client, s.tokens, params)
}

// Execute implements Strategy.
func (s *BridgeStrategy) Execute(ctx context.Context, params Params, cb Callbacks) (*Result, error) {
	route, _, err := cheapestRoute(ctx, s.client, s.tokens, params)
	if err != nil {
		return nil, err
	}

	outcome, err := s.executor.run(ctx, route, cb)
	if err != nil {
		return nil, err
	}

	return &Result{
		Success:        true,
		TxHash:         outcome.primaryHash,
		ApprovalTxHash: outcome.approvalHash,
		Steps:          outcome.steps,
		Strategy:       s.Name(),
	}, nil
}
