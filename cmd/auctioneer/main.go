package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/pflag"

	"github.com/astriaorg/auctioneer/auctioneer"
)

// newLogHandler maps the legacy 0=crit..5=trace verbosity scale onto a
// terminal handler.
func newLogHandler(w io.Writer, verbosity int, color bool) *log.TerminalHandler {
	return log.NewTerminalHandlerWithLevel(w, log.FromLegacyLevel(verbosity), color)
}

func main() {
	cfg := auctioneer.DefaultConfig

	pflag.StringVar(&cfg.RPCURL, "rpc-url", cfg.RPCURL, "endpoint of the node used for bundle simulation")
	pflag.DurationVar(&cfg.RPCTimeout, "rpc-timeout", cfg.RPCTimeout, "per-call timeout for the simulate RPC")
	pflag.StringVar(&cfg.ListenAddr, "listen-addr", cfg.ListenAddr, "address of the bundle submission endpoint")
	pflag.IntVar(&cfg.MaxInflightSimulations, "max-inflight-simulations", cfg.MaxInflightSimulations, "cap on concurrent simulate RPCs, 0 for no cap")
	pflag.DurationVar(&cfg.LatencyMargin, "latency-margin", cfg.LatencyMargin, "how long an auction stays open for bids")
	verbosity := pflag.Int("verbosity", 3, "logging verbosity, 0=silent through 5=trace")
	pflag.Parse()

	log.SetDefault(log.NewLogger(newLogHandler(os.Stderr, *verbosity, true)))

	if err := run(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg auctioneer.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc, err := auctioneer.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("starting auctioneer: %w", err)
	}
	svc.Start()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigc)

	select {
	case sig := <-sigc:
		log.Info("shutting down", "signal", sig)
	case <-svc.Pool().Done():
		log.Error("orderpool exited unexpectedly", "err", svc.Pool().Wait())
	}

	done := make(chan error, 1)
	go func() { done <- svc.Stop() }()
	select {
	case err := <-done:
		return err
	case <-time.After(10 * time.Second):
		return fmt.Errorf("shutdown timed out")
	}
}
