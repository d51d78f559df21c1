package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"swaprouter/internal/chain"
	"swaprouter/internal/config"
	"swaprouter/internal/storage"
	"swaprouter/internal/storage/postgres"
)

func runChains(_ *cobra.Command, _ []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CHAIN ID\tNAME\tFAMILY\tTESTNET")
	for _, n := range chain.Networks() {
		testnet := ""
		if n.Testnet {
			testnet = "yes"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", n.ID, n.Name, n.Family, testnet)
	}
	return w.Flush()
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt("limit")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store storage.Store
	if cfg.PGDSN != "" {
		pg, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pg.Close()
		store = pg
	} else {
		store = storage.NewJsonlStore(cfg.HistoryFile)
	}

	records, err := store.RecentSwaps(ctx, limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("no swaps recorded")
		return nil
	}

	for _, r := range records {
		status := color.GreenString("ok")
		detail := r.TxHash
		if !r.Success {
			status = color.RedString("failed")
			detail = r.Error
		}
		fmt.Printf("%s  %s  %s %s on %s -> %s on %s  %s  %s\n",
			r.Timestamp.Format("2006-01-02 15:04:05"),
			status,
			r.Amount, r.FromToken, chain.NetworkName(r.FromChainID),
			r.ToToken, chain.NetworkName(r.ToChainID),
			r.Strategy,
			detail,
		)
	}
	return nil
}
