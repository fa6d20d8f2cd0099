package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/cardlens/cardlens/internal/grading"
	"github.com/cardlens/cardlens/internal/session"
)

type config struct {
	apiURL       string
	dataDir      string
	monthlyLimit int
}

func loadConfig() (config, error) {
	cfg := config{
		apiURL:  os.Getenv("CARDLENS_API_URL"),
		dataDir: os.Getenv("CARDLENS_DATA_DIR"),
	}
	if cfg.apiURL == "" {
		cfg.apiURL = "http://localhost:8080"
	}
	if cfg.dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return cfg, fmt.Errorf("resolving data dir: %w", err)
		}
		cfg.dataDir = filepath.Join(home, ".cardlens")
	}
	if err := os.MkdirAll(cfg.dataDir, 0755); err != nil {
		return cfg, fmt.Errorf("creating data dir: %w", err)
	}

	if limitStr := os.Getenv("CARDLENS_MONTHLY_LIMIT"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return cfg, fmt.Errorf("invalid CARDLENS_MONTHLY_LIMIT: %w", err)
		}
		cfg.monthlyLimit = limit
	}

	return cfg, nil
}

// openSession hydrates the application context from the session database.
func openSession(cfg config) (*session.Store, *session.Context, error) {
	store, err := session.Open(filepath.Join(cfg.dataDir, "session.db"))
	if err != nil {
		return nil, nil, err
	}

	appCtx, err := session.Init(store)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	if token := os.Getenv("CARDLENS_TOKEN"); token != "" && token != appCtx.Token() {
		if err := appCtx.SetToken(token); err != nil {
			store.Close()
			return nil, nil, err
		}
	}
	if cfg.monthlyLimit > 0 {
		if err := appCtx.SetMonthlyLimit(cfg.monthlyLimit); err != nil {
			store.Close()
			return nil, nil, err
		}
	}

	return store, appCtx, nil
}

func newGradingClient(cfg config, appCtx *session.Context) *grading.Client {
	return grading.NewClient(cfg.apiURL, appCtx.Token())
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cardlens",
		Short: "Scan, grade and batch-submit trading cards from the command line",
		Long: `CardLens drives the AI grading service: capture a card's front and back,
confirm photo quality, submit for grading and watch live progress, or queue
many cards at once with crash-safe local drafts.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
		SilenceUsage: true,
	}

	cmd.AddCommand(newGradeCmd())
	cmd.AddCommand(newBulkCmd())
	cmd.AddCommand(newIdentifyCmd())
	cmd.AddCommand(newDraftsCmd())

	return cmd
}
