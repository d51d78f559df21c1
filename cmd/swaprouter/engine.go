package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"swaprouter/internal/aggregator"
	"swaprouter/internal/broker"
	"swaprouter/internal/chain"
	"swaprouter/internal/config"
	"swaprouter/internal/storage"
	"swaprouter/internal/storage/postgres"
	"swaprouter/internal/swap"
	"swaprouter/internal/token"
)

// engine bundles the wired orchestrator with the resources it owns.
type engine struct {
	orchestrator *swap.Orchestrator
	history      storage.Store
	clients      []*chain.Client
	pg           *postgres.Store
	logger       *zap.Logger
}

func (e *engine) close() {
	for _, c := range e.clients {
		c.Close()
	}
	if e.pg != nil {
		e.pg.Close()
	}
	e.logger.Sync()
}

// buildEngine wires config into strategies and the orchestrator. signer may be
// nil for quote-only use; execution requires one.
func buildEngine(ctx context.Context, cfg config.Config, signer chain.Signer, logger *zap.Logger) (*engine, error) {
	if len(cfg.RPCURLs) == 0 {
		return nil, fmt.Errorf("at least one rpc endpoint is required (chainID=url)")
	}

	e := &engine{logger: logger}

	wait := broker.WaitOptions{PollInterval: cfg.PollInterval, MaxWait: cfg.MaxWait}
	tokens := token.DefaultRegistry()

	backends := make(map[uint64]broker.Backend, len(cfg.RPCURLs))
	chainIDs := make([]uint64, 0, len(cfg.RPCURLs))
	for chainID, url := range cfg.RPCURLs {
		if !chain.IsSupported(chainID) {
			e.close()
			return nil, fmt.Errorf("%s is not a supported network", chain.NetworkName(chainID))
		}
		client, err := chain.NewClient(ctx, url)
		if err != nil {
			e.close()
			return nil, fmt.Errorf("connect rpc for %s: %w", chain.NetworkName(chainID), err)
		}
		e.clients = append(e.clients, client)
		backends[chainID] = client
		chainIDs = append(chainIDs, chainID)
	}

	var strategies []swap.Strategy
	if cfg.RegistryAddress != "" {
		if !common.IsHexAddress(cfg.RegistryAddress) {
			e.close()
			return nil, fmt.Errorf("invalid registry address %q", cfg.RegistryAddress)
		}
		registry := common.HexToAddress(cfg.RegistryAddress)
		for _, chainID := range chainIDs {
			strategies = append(strategies, swap.NewBrokerStrategy(swap.BrokerStrategyConfig{
				ChainID:       chainID,
				Registry:      registry,
				HubToken:      cfg.HubToken,
				Confirmations: cfg.Confirmations,
				Wait:          wait,
			}, backends[chainID], signer, tokens, logger))
		}
	}

	if cfg.AggregatorURL != "" {
		client, err := aggregator.NewClient(aggregator.Options{
			BaseURL:    cfg.AggregatorURL,
			APIKey:     cfg.AggregatorAPIKey,
			MaxRetries: cfg.MaxRetries,
			Backoff:    cfg.RetryBackoff,
			Logger:     logger,
		})
		if err != nil {
			e.close()
			return nil, err
		}
		aggCfg := swap.AggregatorStrategyConfig{
			Chains:        chainIDs,
			Confirmations: cfg.Confirmations,
			Wait:          wait,
		}
		strategies = append(strategies,
			swap.NewAggregatorStrategy(aggCfg, client, backends, signer, tokens, logger),
			swap.NewBridgeStrategy(aggCfg, client, backends, signer, tokens, logger),
		)
	}

	if len(strategies) == 0 {
		e.close()
		return nil, fmt.Errorf("no strategies configured: set a registry address or an aggregator url")
	}

	e.orchestrator = swap.New(swap.Options{Strategies: strategies, Logger: logger})

	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			e.close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		e.pg = store
		e.history = store
	} else if cfg.HistoryFile != "" {
		e.history = storage.NewJsonlStore(cfg.HistoryFile)
	}

	return e, nil
}

func paramsFromFlags(cmd *cobra.Command, cfg config.Config, signer chain.Signer) (swap.Params, error) {
	fromToken, _ := cmd.Flags().GetString("from-token")
	toToken, _ := cmd.Flags().GetString("to-token")
	fromChain, _ := cmd.Flags().GetUint64("from-chain")
	toChain, _ := cmd.Flags().GetUint64("to-chain")
	amount, _ := cmd.Flags().GetString("amount")
	user, _ := cmd.Flags().GetString("user")
	slippage, _ := cmd.Flags().GetUint("slippage-bps")

	if toChain == 0 {
		toChain = fromChain
	}
	if user == "" && signer != nil {
		user = signer.Address().Hex()
	}
	if user == "" {
		return swap.Params{}, fmt.Errorf("--user is required when no private key is configured")
	}

	bps := cfg.SlippageBps
	if cmd.Flags().Changed("slippage-bps") {
		bps = uint32(slippage)
	}

	return swap.Params{
		FromToken:   fromToken,
		ToToken:     toToken,
		FromChainID: fromChain,
		ToChainID:   toChain,
		Amount:      amount,
		UserAddress: user,
		SlippageBps: &bps,
	}, nil
}

func loadSigner(cfg config.Config) (chain.Signer, error) {
	if cfg.PrivateKey == "" {
		return nil, nil
	}
	return chain.NewLocalSigner(cfg.PrivateKey)
}

func runQuote(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	signer, err := loadSigner(cfg)
	if err != nil {
		return err
	}
	params, err := paramsFromFlags(cmd, cfg, signer)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := buildEngine(ctx, cfg, signer, logger)
	if err != nil {
		return err
	}
	defer e.close()

	estimate, err := e.orchestrator.GetEstimate(ctx, params)
	if err != nil {
		return err
	}

	fmt.Printf("%s %s on %s -> %s on %s\n",
		params.Amount, params.FromToken, chain.NetworkName(params.FromChainID),
		params.ToToken, chain.NetworkName(params.ToChainID))
	color.Green("expected output: %s %s", estimate.ExpectedOutput, params.ToToken)
	fmt.Printf("minimum output:  %s %s (%d bps slippage)\n", estimate.MinimumOutput, params.ToToken, params.Slippage())
	if estimate.GasCostEstimate != "" {
		fmt.Printf("est. gas cost:   %s\n", estimate.GasCostEstimate)
	}
	return nil
}

func runSwap(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	signer, err := loadSigner(cfg)
	if err != nil {
		return err
	}
	if signer == nil {
		return fmt.Errorf("a private key is required to execute swaps")
	}
	params, err := paramsFromFlags(cmd, cfg, signer)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := buildEngine(ctx, cfg, signer, logger)
	if err != nil {
		return err
	}
	defer e.close()

	spin := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	spin.Suffix = " finding a route..."
	spin.Start()

	cb := swap.Callbacks{
		OnApprovalSubmitted: func(txHash string) {
			spin.Suffix = fmt.Sprintf(" waiting for approval %s...", txHash)
		},
		OnApprovalConfirmed: func() {
			spin.Suffix = " approval confirmed, swapping..."
		},
		OnSwapSubmitted: func(txHash string) {
			spin.Suffix = fmt.Sprintf(" waiting for swap %s...", txHash)
		},
	}

	start := time.Now()
	result := e.orchestrator.ExecuteSwap(ctx, params, cb)
	elapsed := time.Since(start)
	spin.Stop()

	record := storage.Record{
		Timestamp:      time.Now().UTC(),
		FromChainID:    params.FromChainID,
		ToChainID:      params.ToChainID,
		FromToken:      params.FromToken,
		ToToken:        params.ToToken,
		Amount:         params.Amount,
		Strategy:       result.Strategy,
		TxHash:         result.TxHash,
		Success:        result.Success,
		Error:          result.Error,
		ElapsedSeconds: elapsed.Seconds(),
	}
	if e.history != nil {
		if err := e.history.PutSwaps(ctx, []storage.Record{record}); err != nil {
			logger.Warn("record swap history", zap.Error(err))
		}
	}

	if !result.Success {
		color.Red(result.Error)
		return fmt.Errorf("swap failed")
	}

	color.Green("swap confirmed via %s", result.Strategy)
	if result.ApprovalTxHash != "" {
		fmt.Printf("approval: %s\n", result.ApprovalTxHash)
	}
	for _, step := range result.Steps {
		fmt.Printf("%-24s %s\n", step.Description, step.TxHash)
	}
	fmt.Printf("tx: %s\n", result.TxHash)
	return nil
}
