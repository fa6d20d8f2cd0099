package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cardlens/cardlens/internal/draft"
)

func newDraftsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drafts",
		Short: "Inspect or discard the saved bulk grading draft",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "List the cards in the saved draft",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openDrafts()
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.Load()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No draft saved")
				return nil
			}
			fmt.Printf("Draft with %d card(s):\n", len(entries))
			for i, entry := range entries {
				fmt.Printf("  Card #%d  (%s)\n", i+1, entry.ID)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Discard the saved draft",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openDrafts()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Clear(); err != nil {
				return err
			}
			fmt.Println("Draft discarded")
			return nil
		},
	})

	return cmd
}

func openDrafts() (*draft.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return draft.Open(filepath.Join(cfg.dataDir, "drafts.db"))
}
