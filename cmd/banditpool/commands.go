package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/thalesfsp/banditpool"
)

var (
	configPath   string
	numArms      int
	budget       int
	noise        float64
	exhaustProb  float64
	metricsAddr  string
	verbose      bool
	showProgress bool
	drainTimeout time.Duration

	rootCmd = &cobra.Command{
		Use:   "banditpool",
		Short: "Adaptive trial allocation over a pool of candidates",
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Play a synthetic pool of noisy arms and report the ranking",
		Long: "Creates --arms candidates with evenly spread true means, spends --budget " +
			"trials on them and prints the arms ordered from best to worst.",
		RunE: runPool,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Pool config file (YAML or JSON)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	runCmd.Flags().IntVar(&numArms, "arms", 10, "Number of arms to create")
	runCmd.Flags().IntVar(&budget, "budget", 1000, "Number of trials to spend")
	runCmd.Flags().Float64Var(&noise, "noise", 0.1, "Standard deviation of the synthetic objective")
	runCmd.Flags().Float64Var(&exhaustProb, "exhaust-prob", 0, "Probability that a trial retires its arm")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	runCmd.Flags().BoolVar(&showProgress, "progress", false, "Log every observation")
	runCmd.Flags().DurationVar(&drainTimeout, "drain-timeout", 5*time.Second, "How long to wait for running evaluations after an interrupt")

	rootCmd.AddCommand(runCmd)
}

func runPool(cmd *cobra.Command, _ []string) error {
	if numArms < 1 {
		return fmt.Errorf("--arms must be at least 1, got %d", numArms)
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	config, err := banditpool.LoadConfig(configPath)
	if err != nil {
		return err
	}

	config.Logger = logger

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if metricsAddr != "" {
		srv := serveMetrics(metricsAddr, logger)
		defer shutdown(srv, logger)
	}

	// settled is false while evaluations may still send progress updates.
	settled := true

	if showProgress {
		progress := make(chan banditpool.ProgressUpdate, 64)
		config.ProgressChan = progress

		done := make(chan struct{})
		defer func() {
			if !settled {
				logger.Warn("Evaluations still running, leaving progress channel open")

				return
			}

			close(progress)
			<-done
		}()

		go func() {
			defer close(done)

			for u := range progress {
				logger.Info("Observation",
					slog.Int("arm", u.Arm),
					slog.Bool("destroyed", u.Destroyed),
					slog.Float64("value", u.Value),
					slog.Int("total_plays", u.TotalPlays),
					slog.Int("live_arms", u.LiveArms),
					slog.Int("best_arm", u.BestArm),
				)
			}
		}()
	}

	evaluator := syntheticEvaluator{noise: noise, exhaustProb: exhaustProb, optimizeMax: config.OptimizeMax}

	pool, err := banditpool.NewPool[syntheticArm](config, evaluator)
	if err != nil {
		return err
	}

	pool.ReserveArms(numArms)
	for i := 0; i < numArms; i++ {
		pool.CreateArm(syntheticArm{mean: float64(i+1) / float64(numArms+1)})
	}

	start := time.Now()
	playErr := pool.Play(ctx, budget)
	settled = settle(pool, drainTimeout, logger)

	if playErr != nil && !errors.Is(playErr, banditpool.ErrPoolExhausted) {
		return playErr
	}

	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "pool %s: %d trials in %s, %d/%d arms alive\n",
		pool.ID(), pool.TotalPlays(), time.Since(start).Round(time.Millisecond), pool.NumLiveArms(), pool.NumArms())

	for rank, r := range pool.ArmsOrder() {
		payload, err := pool.ArmObject(r.Index)
		if err != nil {
			continue
		}

		fmt.Fprintf(out, "%3d. arm %-4d true=%.3f mean=%.3f plays=%d\n",
			rank+1, r.Index, payload.mean, r.MeanObjective, r.PlayedCount)
	}

	best, err := pool.SampleArmWithHighestReward()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "winner: arm %d\n", best)

	return playErr
}

// settle waits up to timeout for the evaluations a cancelled Play left in
// flight. It reports whether the pool has nothing in flight anymore.
func settle[P any](pool *banditpool.Pool[P], timeout time.Duration, logger *slog.Logger) bool {
	if pool.InFlight() == 0 {
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := pool.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			logger.Warn("Timed out waiting for evaluations",
				slog.Int("in_flight", pool.InFlight()),
				slog.Duration("timeout", timeout),
			)

			return false
		}

		logger.Warn("Evaluation failed after cancellation", slog.String("error", err.Error()))
	}

	return true
}

func serveMetrics(addr string, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", slog.String("error", err.Error()))
		}
	}()

	logger.Info("Serving metrics", slog.String("addr", addr))

	return srv
}

func shutdown(srv *http.Server, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("Metrics server shutdown", slog.String("error", err.Error()))
	}
}
