package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	config "github.com/avvvet/valentine-services/configs"
)

const SERVICE_NAME = "cardctl"

var (
	serverURL      string
	publicURL      string
	presetName     string
	presetsFile    string
	notifyURL      string
	requestTimeout int
)

var rootCmd = &cobra.Command{
	Use:   "cardctl",
	Short: "Create, open and check valentine cards",
	Long:  "cardctl talks to the card service: it creates cards, opens them in the\nterminal for the recipient and waits for the answer on the sender's side.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.Logging(SERVICE_NAME)
		config.LoadEnv(SERVICE_NAME)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("CARD_SERVICE_URL", "http://localhost:8080"), "card service base URL")
	rootCmd.PersistentFlags().StringVar(&publicURL, "public-url", envOr("PUBLIC_URL", "http://localhost:5173"), "base URL of the web front end, used for share links")
	rootCmd.PersistentFlags().StringVar(&presetName, "presentation", envOr("CARD_PRESENTATION", "classic"), "card presentation (classic, postbox)")
	rootCmd.PersistentFlags().StringVar(&presetsFile, "presets", "", "YAML file with extra presentations")
	rootCmd.PersistentFlags().StringVar(&notifyURL, "notify-url", os.Getenv("NOTIFY_SERVICE_URL"), "notify service websocket URL, e.g. ws://localhost:8081/v1/ws")
	rootCmd.PersistentFlags().IntVar(&requestTimeout, "timeout", 30, "HTTP request timeout in seconds")

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(demoCmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
