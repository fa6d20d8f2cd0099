package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cardlens/cardlens/internal/card"
	"github.com/cardlens/cardlens/internal/capture"
)

func newIdentifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "identify <image>",
		Short: "Recognize a card from a single photo",
		Args:  cobra.ExactArgs(1),
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
			source := capture.NewFileSource(args[0])

			var identifyErr error
			coord := capture.NewCoordinator(source, client, capture.Callbacks{
				CardRecognized: func(info *card.Info) {
					fmt.Printf("Matched: %s\n", info.Name)
					if info.Set != "" {
						fmt.Printf("  Set:    %s\n", info.Set)
					}
					if info.Number != "" {
						fmt.Printf("  Number: %s\n", info.Number)
					}
					if info.Rarity != "" {
						fmt.Printf("  Rarity: %s\n", info.Rarity)
					}
				},
				Error: func(msg string) {
					identifyErr = fmt.Errorf("%s", msg)
				},
			})
			coord.TriggerCapture(context.Background(), capture.ModeIdentify)

			return identifyErr
		},
	}
}
