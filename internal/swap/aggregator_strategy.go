package swap

import (
	"context"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"swaprouter/internal/aggregator"
	"swaprouter/internal/broker"
	"swaprouter/internal/chain"
	"swaprouter/internal/token"
)

// AggregatorStrategyName is the performance-map key for the same-chain
// off-chain liquidity strategy.
const AggregatorStrategyName = "aggregator"

// AggregatorStrategyConfig configures both external-route strategies.
type AggregatorStrategyConfig struct {
	// Chains the route service can execute on.
	Chains        []uint64
	Confirmations uint64
	Wait          broker.WaitOptions
}

// AggregatorStrategy services same-chain pairs through the external
// route-finding service: it picks the cheapest returned route and drives its
// steps, surfacing per-step hashes via callbacks.
type AggregatorStrategy struct {
	cfg      AggregatorStrategyConfig
	client   *aggregator.Client
	executor routeExecutor
	tokens   *token.Registry
	chains   map[uint64]bool
}

// NewAggregatorStrategy builds the strategy with its dependencies. backends
// maps chain IDs to RPC clients for the chains in cfg.Chains.
func NewAggregatorStrategy(cfg AggregatorStrategyConfig, client *aggregator.Client, backends map[uint64]broker.Backend, signer chain.Signer, tokens *token.Registry, logger *zap.Logger) *AggregatorStrategy {
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
	return &AggregatorStrategy{
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
func (s *AggregatorStrategy) Name() string { return AggregatorStrategyName }

// Supports implements Strategy: any same-chain pair on a serviced chain.
func (s *AggregatorStrategy) Supports(params Params) bool {
	return params.FromChainID == params.ToChainID &&
		chain.IsSupported(params.FromChainID) &&
		s.chains[params.FromChainID]
}

// Validate implements Strategy.
func (s *AggregatorStrategy) Validate(_ context.Context, params Params) error {
	if !s.Supports(params) {
		return fmt.Errorf("%w: %s does not service %s", ErrUnsupported, s.Name(), chain.NetworkName(params.FromChainID))
	}
	_, _, err := buildRouteRequest(s.tokens, params)
	return err
}

// Estimate implements Strategy: quotes the cheapest route.
func (s *AggregatorStrategy) Estimate(ctx context.Context, params Params) (*Estimate, error) {
	return estimateViaRoutes(ctx, s.client, s.tokens, params)
}

// Execute implements Strategy.
func (s *AggregatorStrategy) Execute(ctx context.Context, params Params, cb Callbacks) (*Result, error) {
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

// buildRouteRequest resolves the request tokens on their chains and converts
// the amount to base units.
func buildRouteRequest(tokens *token.Registry, params Params) (aggregator.RouteRequest, token.Info, error) {
	in, err := tokens.Resolve(params.FromChainID, params.FromToken)
	if err != nil {
		return aggregator.RouteRequest{}, token.Info{}, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	out, err := tokens.Resolve(params.ToChainID, params.ToToken)
	if err != nil {
		return aggregator.RouteRequest{}, token.Info{}, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	amountIn, err := token.ParseAmount(params.Amount, in.Decimals)
	if err != nil {
		return aggregator.RouteRequest{}, token.Info{}, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}

	return aggregator.RouteRequest{
		FromChainID: params.FromChainID,
		FromToken:   in.Address.Hex(),
		FromAmount:  amountIn.String(),
		ToChainID:   params.ToChainID,
		ToToken:     out.Address.Hex(),
		FromAddress: params.UserAddress,
		SlippageBps: params.Slippage(),
	}, out, nil
}

// cheapestRoute fetches routes and picks the one with the highest output net
// of the quoted gas cost.
func cheapestRoute(ctx context.Context, client *aggregator.Client, tokens *token.Registry, params Params) (*aggregator.Route, token.Info, error) {
	req, out, err := buildRouteRequest(tokens, params)
	if err != nil {
		return nil, token.Info{}, err
	}

	routes, err := client.Routes(ctx, req)
	if err != nil {
		return nil, token.Info{}, err
	}

	best, err := aggregator.BestRoute(routes)
	if err != nil {
		return nil, token.Info{}, err
	}
	return best, out, nil
}

func estimateViaRoutes(ctx context.Context, client *aggregator.Client, tokens *token.Registry, params Params) (*Estimate, error) {
	route, out, err := cheapestRoute(ctx, client, tokens, params)
	if err != nil {
		return nil, err
	}

	expected, ok := new(big.Int).SetString(route.ExpectedOutput, 10)
	if !ok {
		return nil, fmt.Errorf("route %s: invalid expected output %q", route.ID, route.ExpectedOutput)
	}
	minimum := broker.CalculateMinAmountOut(expected, params.Slippage())

	estimate := &Estimate{
		ExpectedOutput: token.FormatAmount(expected, out.Decimals),
		MinimumOutput:  token.FormatAmount(minimum, out.Decimals),
	}
	if route.GasCostInQuote != "" {
		gas, ok := new(big.Int).SetString(route.GasCostInQuote, 10)
		if !ok {
			return nil, fmt.Errorf("route %s: invalid gas cost %q", route.ID, route.GasCostInQuote)
		}
		estimate.GasCostEstimate = token.FormatAmount(gas, out.Decimals)
	}
	return estimate, nil
}
