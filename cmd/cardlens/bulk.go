package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cardlens/cardlens/internal/bulk"
	"github.com/cardlens/cardlens/internal/card"
	"github.com/cardlens/cardlens/internal/capture"
	"github.com/cardlens/cardlens/internal/draft"
	"github.com/cardlens/cardlens/internal/photoedit"
)

func newBulkCmd() *cobra.Command {
	var submit bool
	var remove []string

	cmd := &cobra.Command{
		Use:   "bulk [front back front back ...]",
		Short: "Queue many cards for batch grading with crash-safe drafts",
		Long: `Captures cards in front/back pairs and accumulates them locally. The list
is persisted after every change, so an interrupted session resumes where it
left off. With --submit the accumulated list is converted into a server-side
queue job; otherwise it stays behind as a draft.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args)%2 != 0 {
				return fmt.Errorf("images must come in front/back pairs, got %d files", len(args))
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			store, appCtx, err := openSession(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			drafts, err := draft.Open(filepath.Join(cfg.dataDir, "drafts.db"))
			if err != nil {
				return err
			}
			defer drafts.Close()

			client := newGradingClient(cfg, appCtx)
			flow := bulk.NewFlow(client, drafts)
			if resumed := len(flow.Entries()); resumed > 0 {
				fmt.Printf("Resumed draft with %d card(s)\n", resumed)
			}

			if len(args) > 0 {
				if err := flow.StartCapture(); err != nil {
					return err
				}
				if err := captureBulkPairs(flow, args); err != nil {
					return err
				}
			}

			for _, id := range remove {
				if err := flow.Remove(id); err != nil {
					return err
				}
			}

			entries := flow.Entries()
			if len(entries) == 0 {
				fmt.Println("No cards captured")
				return nil
			}
			for i, entry := range entries {
				if i >= bulk.DisplaySlots {
					fmt.Printf("  ... and %d more\n", len(entries)-bulk.DisplaySlots)
					break
				}
				fmt.Printf("  Card #%d  (%s)\n", i+1, entry.ID)
			}

			if !submit {
				fmt.Println("Draft saved. Re-run with --submit to queue these cards for grading.")
				return nil
			}

			fmt.Println("Creating queue...")
			queueID, err := flow.Submit(context.Background())
			if err != nil {
				return fmt.Errorf("bulk submission failed, your cards are kept as a draft: %w", err)
			}
			fmt.Printf("Queue %s submitted with %d card(s). You'll be notified when grading finishes.\n",
				queueID, len(entries))
			return nil
		},
	}

	cmd.Flags().BoolVar(&submit, "submit", false, "submit the accumulated list as a queue job")
	cmd.Flags().StringSliceVar(&remove, "remove", nil, "entry ids to remove before submitting")

	return cmd
}

func captureBulkPairs(flow *bulk.Flow, paths []string) error {
	source := capture.NewFileSource(paths...)
	stage := photoedit.NewStage()
	ctx := context.Background()

	captureSide := func(mode capture.Mode, accept func(card.Image) error) error {
		var captureErr error
		coord := capture.NewCoordinator(source, nil, capture.Callbacks{
			ImageCaptured: func(img card.Image) {
				edit, err := stage.Begin(img, "Bulk capture")
				if err != nil {
					captureErr = err
					return
				}
				edited, err := edit.Confirm(photoedit.Adjustments{})
				if err != nil {
					captureErr = err
					return
				}
				captureErr = accept(edited)
			},
			Error: func(msg string) {
				captureErr = fmt.Errorf("%s", msg)
			},
		})
		coord.TriggerCapture(ctx, mode)
		return captureErr
	}

	for source.Remaining() > 0 {
		if err := captureSide(capture.ModeFront, flow.FrontCaptured); err != nil {
			return err
		}
		if err := captureSide(capture.ModeBack, flow.BackCaptured); err != nil {
			return err
		}
	}

	return nil
}
