// Command clawfind drives the distributed meet-in-the-middle golden-claw
// search engine in pkg/engine from the command line. It owns everything
// outside the engine's core design: flag parsing, usage text, and logging
// of timers and occupancy percentages — the engine itself never touches
// os.Args or stdout.
//
// Flag parsing uses github.com/urfave/cli the way the pack's
// xtaci-kcptun client/server binaries do for a tool with several required
// options (see DESIGN.md).
//
// © 2025 claw-finder authors. MIT License.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli"
	"go.uber.org/zap"

	"github.com/dreamware/clawfind/internal/clawerr"
	"github.com/dreamware/clawfind/internal/journal"
	"github.com/dreamware/clawfind/internal/mitm"
	"github.com/dreamware/clawfind/internal/sizing"
	"github.com/dreamware/clawfind/pkg/engine"
)

var version = "dev"

func main() {
	app := cli.NewApp()
	app.Name = "clawfind"
	app.Usage = "distributed meet-in-the-middle key-recovery search against double-SPECK-64/128"
	app.Version = version
	app.Flags = []cli.Flag{
		cli.UintFlag{
			Name:  "n",
			Usage: "search radius in bits of each key half (n > 0)",
		},
		cli.StringFlag{
			Name:  "C0",
			Usage: "16-hex-digit ciphertext 1 (low 32 bits first)",
		},
		cli.StringFlag{
			Name:  "C1",
			Usage: "16-hex-digit ciphertext 2 (low 32 bits first)",
		},
		cli.Float64Flag{
			Name:  "mem",
			Usage: "per-run memory budget in GiB",
		},
		cli.Uint64Flag{
			Name:  "peers",
			Value: 1,
			Usage: "number of peer workers P, must be a power of two",
		},
		cli.StringFlag{
			Name:  "journal",
			Usage: "optional path to a durable Badger solution ledger",
		},
		cli.StringFlag{
			Name:  "metrics-addr",
			Usage: "optional listen address to serve Prometheus /metrics on",
		},
		cli.BoolFlag{
			Name:  "early-exit",
			Usage: "stop searching as soon as any peer reports a golden claw",
		},
		cli.BoolFlag{
			Name:  "stats-row",
			Usage: "print a >>>-prefixed structured statistics row on completion",
		},
		cli.IntFlag{
			Name:  "max-results",
			Value: 16,
			Usage: "per-peer cap on verified solutions; one more aborts the run with an overflow error",
		},
		cli.BoolFlag{
			Name:  "lightweight-fill",
			Usage: "use the lightweight RELATIVE_FILL ratio (0.005) instead of the parallel default (0.001)",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		if coder, ok := err.(cli.ExitCoder); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintln(os.Stderr, "clawfind:", err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps an engine error onto this command's exit code contract:
// 0 success, 1 usage error, 2 on an aborted peer group (fatal invariant or
// transport failure — the CLI has nothing more specific to report since the
// collective already aborted for every peer).
func exitCodeFor(err error) int {
	var fatal *clawerr.Fatal
	if ok := asClawerrFatal(err, &fatal); ok && fatal.Kind == clawerr.KindConfig {
		return 1
	}
	return 2
}

func asClawerrFatal(err error, target **clawerr.Fatal) bool {
	for err != nil {
		if f, ok := err.(*clawerr.Fatal); ok {
			*target = f
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func run(c *cli.Context) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	n := c.Uint("n")
	peers := c.Uint64("peers")
	memGiB := c.Float64("mem")
	c0hex := c.String("C0")
	c1hex := c.String("C1")

	if n == 0 {
		return cli.NewExitError("clawfind: --n must be > 0", 1)
	}
	if memGiB <= 0 {
		return cli.NewExitError("clawfind: --mem must be > 0", 1)
	}
	c0, err := parseCiphertextHex(c0hex)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("clawfind: --C0: %v", err), 1)
	}
	c1, err := parseCiphertextHex(c1hex)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("clawfind: --C1: %v", err), 1)
	}

	opts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithEarlyExit(c.Bool("early-exit")),
		engine.WithMaxResults(c.Int("max-results")),
	}
	if c.Bool("lightweight-fill") {
		opts = append(opts, engine.WithBatchFillRatio(sizing.RelativeFillLightweight))
	}

	var reg *prometheus.Registry
	if addr := c.String("metrics-addr"); addr != "" {
		reg = prometheus.NewRegistry()
		opts = append(opts, engine.WithMetrics(reg))
		go serveMetrics(logger, addr, reg)
	}

	var j *journal.Journal
	if dir := c.String("journal"); dir != "" {
		j, err = journal.Open(dir)
		if err != nil {
			return fmt.Errorf("opening journal %s: %w", dir, err)
		}
		defer j.Close()
		opts = append(opts, engine.WithJournal(j))
	}

	memBudgetBytes := uint64(memGiB * float64(uint64(1)<<30))

	eng, err := engine.New(n, peers, memBudgetBytes, c0, c1, opts...)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("clawfind: %v", err), 1)
	}

	plan := eng.Plan()
	logger.Info("claw search starting",
		zap.Uint("n", plan.N),
		zap.Uint64("peers", plan.Peers),
		zap.Uint("compress_factor", plan.CompressFactor),
		zap.Uint64("rounds", plan.Rounds),
		zap.String("shard_bytes_per_peer", sizing.HumanBytes(plan.SLocal*sizing.EntrySize)),
		zap.String("batch_bytes_per_peer", sizing.HumanBytes(plan.BatchCap*sizing.BatchElemSize*plan.Peers)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()

	res, err := eng.Run(ctx)
	if err != nil {
		return err
	}

	for _, s := range res.Solutions {
		fmt.Printf("Solution found: (%s, %s) [checked OK]\n",
			strconv.FormatUint(s.K1, 16), strconv.FormatUint(s.K2, 16))
	}
	if c.Bool("stats-row") {
		fmt.Println(res.Stats.CSVRow())
	}
	return nil
}

func serveMetrics(logger *zap.Logger, addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	logger.Info("serving metrics", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", zap.Error(err))
	}
}

// parseCiphertextHex decodes a 16-hex-digit ciphertext into a mitm.Pair,
// low 32 bits into [0], high 32 bits into [1].
func parseCiphertextHex(s string) (mitm.Pair, error) {
	if len(s) != 16 {
		return mitm.Pair{}, fmt.Errorf("expected 16 hex digits, got %d", len(s))
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return mitm.Pair{}, err
	}
	var v uint64
	for _, b := range raw {
		v = v<<8 | uint64(b)
	}
	return mitm.Pair{uint32(v), uint32(v >> 32)}, nil
}
