package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cardlens/cardlens/internal/card"
	"github.com/cardlens/cardlens/internal/capture"
	"github.com/cardlens/cardlens/internal/photoedit"
	"github.com/cardlens/cardlens/internal/workflow"
)

func newGradeCmd() *cobra.Command {
	var (
		rotate         float64
		brightness     float64
		contrast       float64
		confirmQuality bool
	)

	cmd := &cobra.Command{
		Use:   "grade <front-image> <back-image>",
		Short: "Submit one card for streaming AI grading",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			store, appCtx, err := openSession(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			client := newGradingClient(cfg, appCtx)
			flow := workflow.NewFlow(client, appCtx)
			if flow.Step() == workflow.StepLimitReached {
				return workflow.ErrQuotaExceeded
			}

			adjustments := photoedit.Adjustments{
				RotateDegrees: rotate,
				Brightness:    brightness,
				Contrast:      contrast,
			}

			source := capture.NewFileSource(args...)
			stage := photoedit.NewStage()
			ctx := context.Background()

			captureSide := func(mode capture.Mode, title string, accept func(card.Image) error) error {
				var captureErr error
				coord := capture.NewCoordinator(source, client, capture.Callbacks{
					ImageCaptured: func(img card.Image) {
						edit, err := stage.Begin(img, title)
						if err != nil {
							captureErr = err
							return
						}
						edited, err := edit.Confirm(adjustments)
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

			if err := captureSide(capture.ModeFront, "Front of card", flow.FrontCaptured); err != nil {
				return err
			}
			if err := flow.ContinueToBack(); err != nil {
				return err
			}
			if err := captureSide(capture.ModeBack, "Back of card", flow.BackCaptured); err != nil {
				return err
			}

			if !confirmQuality {
				fmt.Println("Before submitting, confirm your photos:")
				fmt.Println("  - all four edges are visible")
				fmt.Println("  - there is no glare on the card")
				fmt.Println("  - details are sharp and in focus")
				return fmt.Errorf("re-run with --confirm-quality once the photos check out")
			}
			for _, item := range []workflow.ChecklistItem{
				workflow.ItemEdgesVisible,
				workflow.ItemNoGlare,
				workflow.ItemSharpDetails,
			} {
				if err := flow.Certify(item, true); err != nil {
					return err
				}
			}

			fmt.Println("Submitting for grading...")
			flow.Notify(func(status string, percent int) {
				fmt.Printf("\r%-30s %3d%%", status, percent)
			})
			defer fmt.Println()
			if err := flow.Submit(ctx); err != nil {
				return err
			}
			if msg := flow.GradingError(); msg != "" {
				return fmt.Errorf("%s", msg)
			}

			printResult(flow.Result())
			return nil
		},
	}

	cmd.Flags().Float64Var(&rotate, "rotate", 0, "rotate both photos by the given degrees before submitting")
	cmd.Flags().Float64Var(&brightness, "brightness", 0, "brightness adjustment (-100..100)")
	cmd.Flags().Float64Var(&contrast, "contrast", 0, "contrast adjustment (-100..100)")
	cmd.Flags().BoolVar(&confirmQuality, "confirm-quality", false, "certify edges visible, no glare, sharp details")

	return cmd
}

func printResult(result *card.GradingResult) {
	fmt.Println()
	fmt.Printf("Card: %s (%s %s)\n", result.CardInfo.Name, result.CardInfo.Set, result.CardInfo.Number)
	fmt.Printf("Overall grade: %.1f - %s\n", result.Combined.Overall, result.Combined.Summary)
	printSide := func(side card.SideAnalysis) {
		fmt.Printf("  %s: overall %.1f, corners %.1f, edges %.1f, surface %.1f",
			side.Side,
			side.Grades.Overall.Grade,
			side.Grades.Corners.Grade,
			side.Grades.Edges.Grade,
			side.Grades.Surface.Grade)
		if side.Grades.Holographic != nil {
			fmt.Printf(", holo %.1f", side.Grades.Holographic.Grade)
		}
		fmt.Println()
	}
	printSide(result.Front)
	printSide(result.Back)
	fmt.Printf("Images: %s | %s\n", result.Images.FrontURL, result.Images.BackURL)
}
