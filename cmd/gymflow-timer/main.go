package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/claude/gymflow/internal/history"
	"github.com/claude/gymflow/internal/interval"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	rounds := flag.Int("rounds", 5, "number of work rounds")
	work := flag.Int("work", 60, "work phase length in seconds")
	rest := flag.Int("rest", 30, "rest phase length in seconds")
	list := flag.Int("list", 0, "print the N most recent runs and exit")
	sync := flag.Bool("sync", false, "push unsynced runs to the server and exit")
	serverURL := flag.String("server", "", "GymFlow server URL (e.g. https://gymflow.tail1234.ts.net)")
	apiKey := flag.String("api-key", os.Getenv("GYMFLOW_API_KEY"), "API key for sync (defaults to GYMFLOW_API_KEY)")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("gymflow-timer", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	db, err := openHistory()
	if err != nil {
		log.Error("failed to open history", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if *list > 0 {
		printRecent(db, *list)
		return
	}

	if *sync {
		if *serverURL == "" {
			fmt.Fprintf(os.Stderr, "Error: -server is required with -sync\n")
			os.Exit(1)
		}
		client := history.NewClient(*serverURL, *apiKey)
		result, err := client.Sync(db)
		if err != nil {
			log.Error("sync failed", "error", err)
			os.Exit(1)
		}
		fmt.Printf("synced %d runs (%d inserted)\n", result.RunsSent, result.RunsInserted)
		return
	}

	cfg := interval.Config{Rounds: *rounds, WorkSeconds: *work, RestSeconds: *rest}
	run, err := runTimer(cfg)
	if err != nil {
		log.Error("timer failed", "error", err)
		os.Exit(1)
	}

	if err := db.Record(run); err != nil {
		log.Error("failed to record run", "error", err)
		os.Exit(1)
	}

	fmt.Printf("\nrecorded %d rounds", len(run.Durations))
	if !run.Completed {
		fmt.Printf(" (stopped early)")
	}
	fmt.Println()
	for i, d := range run.Durations {
		fmt.Printf("  round %d: %ds\n", i+1, d)
	}
}

// runTimer drives the controller with a real 1 Hz ticker, printing the state
// each second. Ctrl+C stops the run early with partial credit for the
// current work round.
func runTimer(cfg interval.Config) (history.Run, error) {
	ctrl, err := interval.New(cfg)
	if err != nil {
		return history.Run{}, err
	}

	ctrl.OnPhaseChange = func(from, to interval.Phase) {
		fmt.Printf("\n%s -> %s\n", from, to)
	}

	run := history.Run{
		ID:          uuid.New(),
		Rounds:      cfg.Rounds,
		WorkSeconds: cfg.WorkSeconds,
		RestSeconds: cfg.RestSeconds,
		StartedAt:   time.Now().UTC(),
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	fmt.Printf("starting: %d rounds, %ds work / %ds rest\n", cfg.Rounds, cfg.WorkSeconds, cfg.RestSeconds)
	printState(ctrl)

	for {
		select {
		case <-quit:
			run.Durations = ctrl.Stop()
			run.EndedAt = time.Now().UTC()
			return run, nil
		case <-ticker.C:
			ctrl.Tick()
			printState(ctrl)
			if ctrl.Done() {
				run.Durations = ctrl.RoundDurations()
				run.EndedAt = time.Now().UTC()
				run.Completed = true
				return run, nil
			}
		}
	}
}

func printState(ctrl *interval.Controller) {
	if ctrl.Done() {
		fmt.Printf("\rdone!                          \n")
		return
	}
	remaining := ctrl.Remaining()
	fmt.Printf("\r[%s] round %d/%d  %02d:%02d   ",
		ctrl.Phase(), ctrl.Round(), ctrl.Config().Rounds, remaining/60, remaining%60)
}

func printRecent(db *history.DB, n int) {
	runs, err := db.Recent(n)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(runs) == 0 {
		fmt.Println("no recorded runs")
		return
	}
	for _, r := range runs {
		status := "stopped"
		if r.Completed {
			status = "completed"
		}
		sync := ""
		if !r.Synced {
			sync = " (unsynced)"
		}
		fmt.Printf("%s  %dx%ds/%ds  %d rounds recorded  %s%s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.Rounds, r.WorkSeconds, r.RestSeconds, len(r.Durations), status, sync)
	}
}

func openHistory() (*history.DB, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolving home directory: %w", err)
	}
	return history.Open(filepath.Join(home, ".gymflow"))
}
