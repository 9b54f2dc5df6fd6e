package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/avvvet/valentine-services/internal/cardsvc/models"
	"github.com/avvvet/valentine-services/internal/client"
)

var checkInterval time.Duration

var checkCmd = &cobra.Command{
	Use:   "check <slug>",
	Short: "Wait for the recipient's answer",
	Long: `Polls the card until it has an answer. With --notify-url the notify
service socket is watched as well and the first one to see the answer wins.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().DurationVar(&checkInterval, "interval", client.DefaultPollInterval, "poll interval")
}

func runCheck(cmd *cobra.Command, args []string) error {
	slug := args[0]
	out := cmd.OutOrStdout()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	card, err := waitForAnswer(ctx, newClient(), slug, out)
	if err != nil {
		if client.IsNotFound(err) {
			return fmt.Errorf("card %s not found", slug)
		}
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	fmt.Fprintln(out, answerLine(card))
	return nil
}

func waitForAnswer(ctx context.Context, c *client.Client, slug string, out io.Writer) (*models.Card, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := client.NewPoller(c)
	p.Interval = checkInterval
	answered := make(chan *models.Card, 2)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		card, err := p.Run(gctx, slug, func(card *models.Card, err error) {
			switch {
			case err != nil:
				fmt.Fprintln(out, "Something went wrong, trying again...")
			case !card.Responded():
				fmt.Fprintf(out, "Waiting for %s to answer...\n", card.RecipientName)
			}
		})
		if err != nil {
			return err
		}
		answered <- card
		cancel()
		return nil
	})

	if notifyURL != "" {
		g.Go(func() error {
			ev, err := client.WatchResponse(gctx, notifyURL, slug)
			if err != nil {
				if gctx.Err() == nil {
					log.Warnf("notify watch for %s stopped: %s", slug, err)
				}
				return nil
			}
			card, err := c.GetCard(gctx, ev.Slug)
			if err != nil {
				return nil
			}
			answered <- card
			cancel()
			return nil
		})
	}

	err := g.Wait()
	select {
	case card := <-answered:
		return card, nil
	default:
	}
	if err == nil {
		err = ctx.Err()
	}
	return nil, err
}

func answerLine(card *models.Card) string {
	if card.Response == models.ResponseYes {
		return fmt.Sprintf("%s said yes! It's a match!", card.RecipientName)
	}
	return fmt.Sprintf("%s answered %s.", card.RecipientName, card.Response)
}
