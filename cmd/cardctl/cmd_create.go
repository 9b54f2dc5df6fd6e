package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/avvvet/valentine-services/internal/client"
)

var (
	createFrom    string
	createTo      string
	createMessage string
	createImage   string
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a card and print its share links",
	RunE:  runCreate,
}

func init() {
	createCmd.Flags().StringVar(&createFrom, "from", "", "sender name")
	createCmd.Flags().StringVar(&createTo, "to", "", "recipient name")
	createCmd.Flags().StringVarP(&createMessage, "message", "m", "", "card message")
	createCmd.Flags().StringVar(&createImage, "image", "", "optional photo, at most 5 MB")
	_ = createCmd.MarkFlagRequired("from")
	_ = createCmd.MarkFlagRequired("to")
	_ = createCmd.MarkFlagRequired("message")
}

func runCreate(cmd *cobra.Command, _ []string) error {
	params := client.CreateParams{
		SenderName:    createFrom,
		RecipientName: createTo,
		Message:       createMessage,
	}
	if createImage != "" {
		img, closer, err := openImage(createImage)
		if err != nil {
			return err
		}
		defer closer.Close()
		params.Image = img
	}

	slug, err := newClient().CreateCard(cmd.Context(), params)
	if err != nil {
		return fmt.Errorf("create card: %w", err)
	}

	cardLink, checkLink := shareLinks(publicURL, slug)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Card created: %s\n", slug)
	fmt.Fprintf(out, "Send this to %s: %s\n", createTo, cardLink)
	fmt.Fprintf(out, "Check for an answer: %s\n", checkLink)
	return nil
}
