package main

import (
	"fmt"
	"os"
	"os/signal"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/avvvet/valentine-services/internal/cardsvc/models"
	"github.com/avvvet/valentine-services/internal/clock"
	"github.com/avvvet/valentine-services/internal/prefs"
	"github.com/avvvet/valentine-services/internal/reveal"
)

var (
	demoForce     bool
	demoPrefsPath string
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Play a sample card without touching the card service",
	Long: `Plays the card experience with a built-in card. Answers stay local and
"r" replays from the start. The demo only runs once unless --force is given.`,
	RunE: runDemo,
}

func init() {
	demoCmd.Flags().BoolVar(&demoForce, "force", false, "play the demo even if it was seen before")
	demoCmd.Flags().StringVar(&demoPrefsPath, "prefs", "", "preferences file (default: user config dir)")
}

func demoCard() *models.Card {
	return &models.Card{
		ID:            "demo",
		Slug:          "demo000000",
		SenderName:    "Your secret admirer",
		RecipientName: "you",
		Message:       "Roses are red, violets are blue, I made you this card, will you be mine too?",
	}
}

func runDemo(cmd *cobra.Command, _ []string) error {
	path := demoPrefsPath
	if path == "" {
		var err error
		if path, err = prefs.DefaultPath(); err != nil {
			return err
		}
	}
	seenDemo := prefs.NewFile(path).SeenDemo()

	seen, err := seenDemo.Get()
	if err != nil {
		log.Warnf("could not read preferences %s: %s", path, err)
	}
	if seen && !demoForce {
		fmt.Fprintln(cmd.OutOrStdout(), "You have already seen the demo. Run with --force to play it again.")
		return nil
	}

	preset, err := loadPreset()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	m := reveal.New(clock.Real(), preset.Reveal(), nil, nil)
	m.Load(demoCard(), nil)

	if err := runView(ctx, m, preset, true); err != nil {
		return err
	}

	if err := seenDemo.Set(true); err != nil {
		log.Warnf("could not save preferences %s: %s", path, err)
	}
	return nil
}
