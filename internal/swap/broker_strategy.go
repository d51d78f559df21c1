package swap

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"swaprouter/internal/broker"
	"swaprouter/internal/chain"
	"swaprouter/internal/token"
)

// BrokerStrategyName is the performance-map key for the on-chain strategy.
const BrokerStrategyName = "onchain-broker"

// BrokerStrategyConfig configures the on-chain broker strategy for one chain.
type BrokerStrategyConfig struct {
	ChainID       uint64
	Registry      common.Address
	HubToken      string
	Confirmations uint64
	Wait          broker.WaitOptions
}

// BrokerStrategy executes swaps against the on-chain broker registry:
// approval, then direct or two-hop discovery, then one confirmed transaction
// per hop.
type BrokerStrategy struct {
	cfg     BrokerStrategyConfig
	backend broker.Backend
	signer  chain.Signer
	tokens  *token.Registry
	logger  *zap.Logger
}

// NewBrokerStrategy builds the strategy with its dependencies.
func NewBrokerStrategy(cfg BrokerStrategyConfig, backend broker.Backend, signer chain.Signer, tokens *token.Registry, logger *zap.Logger) *BrokerStrategy {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.HubToken == "" {
		cfg.HubToken = "WETH"
	}
	if cfg.Confirmations == 0 {
		cfg.Confirmations = 1
	}
	return &BrokerStrategy{cfg: cfg, backend: backend, signer: signer, tokens: tokens, logger: logger}
}

// Name implements Strategy.
func (s *BrokerStrategy) Name() string { return BrokerStrategyName }

// Supports implements Strategy: same-chain requests on the configured chain.
func (s *BrokerStrategy) Supports(params Params) bool {
	return params.FromChainID == s.cfg.ChainID &&
		params.ToChainID == s.cfg.ChainID &&
		chain.IsSupported(s.cfg.ChainID)
}

// Validate implements Strategy: both tokens must resolve on the chain and the
// amount must parse.
func (s *BrokerStrategy) Validate(_ context.Context, params Params) error {
	if !s.Supports(params) {
		return fmt.Errorf("%w: %s only services same-chain swaps on %s", ErrUnsupported, s.Name(), chain.NetworkName(s.cfg.ChainID))
	}
	if _, _, _, err := s.resolve(params); err != nil {
		return err
	}
	return nil
}

// Estimate implements Strategy.
func (s *BrokerStrategy) Estimate(ctx context.Context, params Params) (*Estimate, error) {
	in, out, amountIn, err := s.resolve(params)
	if err != nil {
		return nil, err
	}

	expected, hops, err := s.quotePath(ctx, in, out, amountIn)
	if err != nil {
		return nil, err
	}

	minimum := broker.CalculateMinAmountOut(expected, params.Slippage())

	return &Estimate{
		ExpectedOutput:  token.FormatAmount(expected, out.Decimals),
		MinimumOutput:   token.FormatAmount(minimum, out.Decimals),
		GasCostEstimate: s.estimateGasCost(ctx, hops),
	}, nil
}

// Execute implements Strategy. Two-hop swaps are not atomic: a failure after
// the first confirmed hop leaves the caller holding the hub token, reported
// through the confirmed steps in the error path's logs.
func (s *BrokerStrategy) Execute(ctx context.Context, params Params, cb Callbacks) (*Result, error) {
	in, out, amountIn, err := s.resolve(params)
	if err != nil {
		return nil, err
	}

	direct, err := broker.FindDirectExchange(ctx, s.backend, s.cfg.Registry, in.Address, out.Address)
	if err != nil && !errors.Is(err, broker.ErrNoMarket) {
		return nil, err
	}

	if direct != nil {
		return s.executeDirect(ctx, params, in, out, amountIn, *direct, cb)
	}

	hub, err := s.tokens.Resolve(s.cfg.ChainID, s.cfg.HubToken)
	if err != nil {
		return nil, fmt.Errorf("hub token: %w", err)
	}

	route, err := broker.FindTwoHopExchange(ctx, s.backend, s.cfg.Registry, in.Address, out.Address, hub.Address)
	if err != nil {
		return nil, err
	}
	if route == nil {
		return nil, fmt.Errorf("%w: no direct or two-hop market for %s/%s on %s",
			ErrNoRoute, params.FromToken, params.ToToken, chain.NetworkName(s.cfg.ChainID))
	}

	return s.executeTwoHop(ctx, params, in, hub, out, amountIn, *route, cb)
}

func (s *BrokerStrategy) executeDirect(ctx context.Context, params Params, in, out token.Info, amountIn *big.Int, exchange broker.ExchangeInfo, cb Callbacks) (*Result, error) {
	approvalHash, err := s.ensureApproval(ctx, in, amountIn, cb)
	if err != nil {
		return nil, err
	}

	expected, err := broker.Quote(ctx, s.backend, s.cfg.Registry, exchange, in.Address, out.Address, amountIn)
	if err != nil {
		return nil, err
	}
	minOut := broker.CalculateMinAmountOut(expected, params.Slippage())

	hash, err := s.swapHop(ctx, exchange, in, out, amountIn, minOut, cb)
	if err != nil {
		return nil, err
	}

	return &Result{
		Success:        true,
		TxHash:         hash,
		ApprovalTxHash: approvalHash,
		Steps:          []Step{{Description: fmt.Sprintf("swap %s -> %s", in.Symbol, out.Symbol), TxHash: hash}},
		Strategy:       s.Name(),
	}, nil
}

func (s *BrokerStrategy) executeTwoHop(ctx context.Context, params Params, in, hub, out token.Info, amountIn *big.Int, route broker.TwoHopRoute, cb Callbacks) (*Result, error) {
	approvalHash, err := s.ensureApproval(ctx, in, amountIn, cb)
	if err != nil {
		return nil, err
	}

	hubExpected, err := broker.Quote(ctx, s.backend, s.cfg.Registry, route.First, in.Address, hub.Address, amountIn)
	if err != nil {
		return nil, err
	}
	hubMin := broker.CalculateMinAmountOut(hubExpected, params.Slippage())

	firstHash, err := s.swapHop(ctx, route.First, in, hub, amountIn, hubMin, cb)
	if err != nil {
		return nil, err
	}

	s.logger.Info("first hop confirmed",
		zap.String("tx", firstHash),
		zap.String("hub", hub.Symbol),
	)

	// From here on a failure strands the caller in the hub token. There is no
	// automatic rollback; the confirmed first hop stays visible in the logs
	// and in the returned steps of the success path.
	//
	// The second hop spends hubMin, not hubExpected: the contract only
	// guarantees the first hop delivered the floor, and submitting for more
	// hub tokens than the caller may hold would revert. Any surplus stays in
	// the hub token.
	if _, err := s.ensureApproval(ctx, hub, hubMin, cb); err != nil {
		return nil, fmt.Errorf("second hop %v (first hop %s already confirmed)", err, firstHash)
	}

	outExpected, err := broker.Quote(ctx, s.backend, s.cfg.Registry, route.Second, hub.Address, out.Address, hubMin)
	if err != nil {
		return nil, fmt.Errorf("second hop quote: %v (first hop %s already confirmed)", err, firstHash)
	}
	outMin := broker.CalculateMinAmountOut(outExpected, params.Slippage())

	secondHash, err := s.swapHop(ctx, route.Second, hub, out, hubMin, outMin, cb)
	if err != nil {
		return nil, fmt.Errorf("second hop %v (first hop %s already confirmed)", err, firstHash)
	}

	return &Result{
		Success:        true,
		TxHash:         secondHash,
		ApprovalTxHash: approvalHash,
		Steps: []Step{
			{Description: fmt.Sprintf("swap %s -> %s", in.Symbol, hub.Symbol), TxHash: firstHash},
			{Description: fmt.Sprintf("swap %s -> %s", hub.Symbol, out.Symbol), TxHash: secondHash},
		},
		Strategy: s.Name(),
	}, nil
}

// ensureApproval checks the live allowance and submits an approval only when
// it is insufficient. Returns the approval hash, or "" when none was needed.
func (s *BrokerStrategy) ensureApproval(ctx context.Context, tok token.Info, amount *big.Int, cb Callbacks) (string, error) {
	owner := s.signer.Address()

	status, err := broker.CheckApproval(ctx, s.backend, tok.Address, owner, s.cfg.Registry, amount)
	if err != nil {
		return "", errors.Join(ErrApprovalFailed, err)
	}
	if status.IsApproved {
		return "", nil
	}

	tx, err := broker.Approve(ctx, s.backend, s.signer, s.chainID(), tok.Address, s.cfg.Registry, amount)
	if err != nil {
		return "", errors.Join(ErrApprovalFailed, err)
	}
	cb.approvalSubmitted(tx.Hash().Hex())

	if err := broker.WaitForApproval(ctx, s.backend, tx.Hash(), s.cfg.Confirmations, s.cfg.Wait); err != nil {
		return "", errors.Join(ErrApprovalFailed, err)
	}
	cb.approvalConfirmed()

	s.logger.Info("approval confirmed", zap.String("token", tok.Symbol), zap.String("tx", tx.Hash().Hex()))
	return tx.Hash().Hex(), nil
}

// swapHop submits one swap transaction and waits for its confirmation.
func (s *BrokerStrategy) swapHop(ctx context.Context, exchange broker.ExchangeInfo, in, out token.Info, amountIn, minOut *big.Int, cb Callbacks) (string, error) {
	tx, err := broker.ExecuteSwap(ctx, s.backend, s.signer, s.chainID(), s.cfg.Registry, exchange, in.Address, out.Address, amountIn, minOut)
	if err != nil {
		return "", err
	}
	cb.swapSubmitted(tx.Hash().Hex())

	if _, err := broker.WaitForSwap(ctx, s.backend, tx.Hash(), s.cfg.Confirmations, s.cfg.Wait); err != nil {
		return "", err
	}
	return tx.Hash().Hex(), nil
}

// quotePath quotes the direct market when one exists, otherwise the two-hop
// path through the hub. Returns the expected output and the hop count.
func (s *BrokerStrategy) quotePath(ctx context.Context, in, out token.Info, amountIn *big.Int) (*big.Int, int, error) {
	direct, err := broker.FindDirectExchange(ctx, s.backend, s.cfg.Registry, in.Address, out.Address)
	if err != nil && !errors.Is(err, broker.ErrNoMarket) {
		return nil, 0, err
	}

	if direct != nil {
		expected, err := broker.Quote(ctx, s.backend, s.cfg.Registry, *direct, in.Address, out.Address, amountIn)
		if err != nil {
			return nil, 0, err
		}
		return expected, 1, nil
	}

	hub, err := s.tokens.Resolve(s.cfg.ChainID, s.cfg.HubToken)
	if err != nil {
		return nil, 0, fmt.Errorf("hub token: %w", err)
	}

	route, err := broker.FindTwoHopExchange(ctx, s.backend, s.cfg.Registry, in.Address, out.Address, hub.Address)
	if err != nil {
		return nil, 0, err
	}
	if route == nil {
		return nil, 0, fmt.Errorf("%w: no direct or two-hop market for %s/%s on %s",
			ErrNoRoute, in.Symbol, out.Symbol, chain.NetworkName(s.cfg.ChainID))
	}

	hubOut, err := broker.Quote(ctx, s.backend, s.cfg.Registry, route.First, in.Address, hub.Address, amountIn)
	if err != nil {
		return nil, 0, err
	}
	expected, err := broker.Quote(ctx, s.backend, s.cfg.Registry, route.Second, hub.Address, out.Address, hubOut)
	if err != nil {
		return nil, 0, err
	}
	return expected, 2, nil
}

// estimateGasCost prices the expected swap gas in the chain's native token.
// Best effort: quoting must not fail because a gas read did.
func (s *BrokerStrategy) estimateGasCost(ctx context.Context, hops int) string {
	gasPrice, err := s.backend.SuggestGasPrice(ctx)
	if err != nil {
		return ""
	}
	const gasPerHop = 400000
	cost := new(big.Int).Mul(gasPrice, big.NewInt(int64(gasPerHop*hops)))
	return token.FormatAmount(cost, 18)
}

func (s *BrokerStrategy) resolve(params Params) (token.Info, token.Info, *big.Int, error) {
	in, err := s.tokens.Resolve(s.cfg.ChainID, params.FromToken)
	if err != nil {
		return token.Info{}, token.Info{}, nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	out, err := s.tokens.Resolve(s.cfg.ChainID, params.ToToken)
	if err != nil {
		return token.Info{}, token.Info{}, nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	amountIn, err := token.ParseAmount(params.Amount, in.Decimals)
	if err != nil {
		return token.Info{}, token.Info{}, nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	return in, out, amountIn, nil
}

func (s *BrokerStrategy) chainID() *big.Int {
	return new(big.Int).SetUint64(s.cfg.ChainID)
}
