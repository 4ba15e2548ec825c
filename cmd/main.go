package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/bootstrap"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/verification"
)

const dateLayout = "2006-01-02"

func main() {
	cmd := "run"
	args := os.Args[1:]
	if len(args) > 0 {
		cmd = args[0]
		args = args[1:]
	}

	ctx := context.Background()
	c, err := bootstrap.New(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap failed: %v\n", err)
		os.Exit(1)
	}

	var cmdErr error
	switch cmd {
	case "run":
		cmdErr = runService(c)
	case "rebuild-features":
		cmdErr = runRebuild(c, args)
	case "train":
		cmdErr = runTrain(c, args)
	case "promote":
		cmdErr = c.Pipeline.Trainer.Promote(c.Context)
	case "score":
		cmdErr = runScore(c, args)
	case "verify":
		cmdErr = runVerify(c, args)
	case "monitor":
		cmdErr = runMonitor(c, args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		fmt.Fprintln(os.Stderr, "usage: churn-pipeline [run|rebuild-features|train|promote|score|verify|monitor]")
		c.Close()
		os.Exit(2)
	}

	if cmd != "run" {
		c.Close()
	}
	if cmdErr != nil {
		fmt.Fprintf(os.Stderr, "%s failed: %v\n", cmd, cmdErr)
		os.Exit(1)
	}
}

// runService starts the long-running daemon: HTTP server plus the scoring,
// verification and drift workers on their schedules.
func runService(c *bootstrap.Container) error {
	if err := c.Start(); err != nil {
		c.Shutdown()
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		c.Log.Info("Shutdown signal received")
	case <-c.Context.Done():
		c.Log.Info("Application context cancelled")
	}

	c.Shutdown()
	return nil
}

func runRebuild(c *bootstrap.Container, args []string) error {
	fs := flag.NewFlagSet("rebuild-features", flag.ExitOnError)
	from := fs.String("from", "", "earliest reference date (YYYY-MM-DD)")
	cutoff := fs.String("cutoff", "", "cutoff date, defaults to today UTC")
	if err := fs.Parse(args); err != nil {
		return err
	}

	fromDate, err := parseDate(*from, time.Time{})
	if err != nil {
		return err
	}
	cutoffDate, err := parseDate(*cutoff, today())
	if err != nil {
		return err
	}

	stats, err := c.Pipeline.Generator.Rebuild(c.Context, fromDate, cutoffDate)
	if err != nil {
		return err
	}
	c.Log.Infow("Rebuild finished",
		"positives", stats.Positives,
		"negatives", stats.Negatives,
		"excluded_cold_start", stats.ExcludedColdStart,
		"excluded_no_visits", stats.ExcludedNoVisits,
		"feature_failures", stats.FeatureFailures,
	)
	return nil
}

func runTrain(c *bootstrap.Container, args []string) error {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	from := fs.String("from", "", "train window start (YYYY-MM-DD)")
	to := fs.String("to", "", "train window end, exclusive (YYYY-MM-DD)")
	promote := fs.Bool("promote", false, "promote the trained model immediately")
	if err := fs.Parse(args); err != nil {
		return err
	}

	fromDate, err := parseDate(*from, time.Time{})
	if err != nil {
		return err
	}
	toDate, err := parseDate(*to, time.Time{})
	if err != nil {
		return err
	}

	version, err := c.Pipeline.Trainer.Train(c.Context, fromDate, toDate)
	if err != nil {
		return err
	}
	c.Log.Infow("Training finished", "version", version.ID)

	if *promote {
		return c.Pipeline.Trainer.Promote(c.Context)
	}
	return nil
}

func runScore(c *bootstrap.Container, args []string) error {
	fs := flag.NewFlagSet("score", flag.ExitOnError)
	date := fs.String("date", "", "score date, defaults to today UTC (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	scoreDate, err := parseDate(*date, today())
	if err != nil {
		return err
	}

	c.Repos.SnapshotImpl.Start(c.Context)
	stats, err := c.Pipeline.Scorer.Run(c.Context, scoreDate)
	if stopErr := c.Repos.SnapshotImpl.Stop(c.Context); stopErr != nil {
		c.Log.Errorf("Snapshot writer flush failed: %v", stopErr)
	}
	if err != nil {
		return err
	}
	c.Log.Infow("Scoring finished",
		"scored", stats.Scored,
		"high", stats.High,
		"medium", stats.Medium,
		"low", stats.Low,
		"failures", stats.Failures,
		"duration", stats.Duration,
	)
	return nil
}

func runVerify(c *bootstrap.Container, args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	date := fs.String("as-of", "", "verification date, defaults to today UTC (YYYY-MM-DD)")
	report := fs.Bool("report", false, "print the hit rate report after verifying")
	if err := fs.Parse(args); err != nil {
		return err
	}

	asOf, err := parseDate(*date, today())
	if err != nil {
		return err
	}

	stats, err := c.Pipeline.Verifier.Run(c.Context, asOf)
	if err != nil {
		return err
	}
	c.Log.Infow("Verification finished", "examined", stats.Examined, "verified", stats.Verified)

	if *report {
		since := asOf.AddDate(0, -c.Config.Monitoring.OutcomeWindowMonths, 0)
		r, err := verification.BuildReport(c.Context, c.Repos.History, since)
		if err != nil {
			return err
		}
		fmt.Println(r.String())
	}
	return nil
}

func runMonitor(c *bootstrap.Container, args []string) error {
	fs := flag.NewFlagSet("monitor", flag.ExitOnError)
	date := fs.String("as-of", "", "report date, defaults to today UTC (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	asOf, err := parseDate(*date, today())
	if err != nil {
		return err
	}

	report, err := c.Pipeline.Monitor.Run(c.Context, asOf)
	if err != nil {
		return err
	}
	c.Log.Infow("Drift check finished",
		"model_version", report.ModelVersion,
		"score_psi", report.ScorePSI,
		"verified", report.VerifiedCount,
		"retrain_recommended", report.RetrainRecommended,
		"reasons", report.Reasons,
	)
	return nil
}

func parseDate(s string, fallback time.Time) (time.Time, error) {
	if s == "" {
		return fallback, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

func today() time.Time {
	return time.Now().UTC().Truncate(24 * time.Hour)
}
