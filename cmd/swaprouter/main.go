package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "swaprouter",
		Short:        "Multi-strategy token swap router",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote a swap without executing it",
		RunE:  runQuote,
	}
	addSwapFlags(quoteCmd)
	root.AddCommand(quoteCmd)

	swapCmd := &cobra.Command{
		Use:   "swap",
		Short: "Execute a swap",
		RunE:  runSwap,
	}
	addSwapFlags(swapCmd)
	swapCmd.Flags().String("private-key", "", "hex private key (prefer SWAPROUTER_PRIVATE_KEY)")
	root.AddCommand(swapCmd)

	chainsCmd := &cobra.Command{
		Use:   "chains",
		Short: "List supported networks",
		RunE:  runChains,
	}
	root.AddCommand(chainsCmd)

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent swaps",
		RunE:  runHistory,
	}
	historyCmd.Flags().Int("limit", 20, "number of records to show")
	addCommonFlags(historyCmd)
	root.AddCommand(historyCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addSwapFlags(cmd *cobra.Command) {
	cmd.Flags().String("from-token", "", "source token symbol")
	cmd.Flags().String("to-token", "", "destination token symbol")
	cmd.Flags().Uint64("from-chain", 0, "source chain ID")
	cmd.Flags().Uint64("to-chain", 0, "destination chain ID (defaults to source)")
	cmd.Flags().String("amount", "", "amount to swap, human-readable")
	cmd.Flags().String("user", "", "user address (defaults to the signer address)")
	cmd.Flags().Uint("slippage-bps", 50, "slippage tolerance in basis points")
	addCommonFlags(cmd)
}

func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("rpc", nil, "RPC endpoints as chainID=url (comma-separated)")
	cmd.Flags().String("registry", "", "broker registry contract address")
	cmd.Flags().String("hub-token", "WETH", "intermediate token for two-hop routing")
	cmd.Flags().Uint64("confirmations", 1, "confirmations to wait for")
	cmd.Flags().Duration("poll-interval", 3*time.Second, "receipt poll interval")
	cmd.Flags().Duration("max-wait", 3*time.Minute, "confirmation wait bound")
	cmd.Flags().String("aggregator-url", "", "route aggregator base URL")
	cmd.Flags().String("aggregator-api-key", "", "route aggregator API key")
	cmd.Flags().String("history", "./data/swaps.jsonl", "swap history JSONL path")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN for swap history")
	cmd.Flags().Int("max-retries", 5, "maximum retry attempts for the aggregator API")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
