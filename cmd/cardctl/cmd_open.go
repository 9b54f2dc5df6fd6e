package main

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/avvvet/valentine-services/internal/clock"
	"github.com/avvvet/valentine-services/internal/reveal"
)

var openCmd = &cobra.Command{
	Use:   "open <slug>",
	Short: "Open a card in the terminal and answer it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		preset, err := loadPreset()
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer cancel()

		c := newClient()
		m := reveal.New(clock.Real(), preset.Reveal(), nil, c)
		m.Load(c.GetCard(ctx, args[0]))

		return runView(ctx, m, preset, false)
	},
}
