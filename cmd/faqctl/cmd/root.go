package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/yanqian/faqbot/internal/client"
	"github.com/yanqian/faqbot/pkg/logger"
)

var (
	serverURL string
	token     string
	verbose   bool
	jsonOut   bool
)

var rootCmd = &cobra.Command{
	Use:   "faqctl",
	Short: "Console and admin CLI for the faqbot service",
	Long: `faqctl talks to a running faqbot server.

Examples:
  # Interactive chat
  faqctl chat

  # One question, forcing the generative model
  faqctl ask --regenerate "¿Cuánto cuesta la credencial?"

  # Admin: log in, then import a CSV of question,answer rows
  export FAQBOT_TOKEN=$(faqctl login --user admin --password-stdin < pass.txt)
  faqctl import faq.csv`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("FAQBOT_URL", "http://localhost:8080"), "faqbot base URL (env FAQBOT_URL)")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("FAQBOT_TOKEN"), "admin bearer token (env FAQBOT_TOKEN)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log requests to stderr")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "print raw JSON responses")
}

func newLogger() *slog.Logger {
	level := "warn"
	if verbose {
		level = "debug"
	}
	return logger.NewWithWriter(os.Stderr, level)
}

func newClient() (*client.Client, error) {
	return client.New(serverURL, token, newLogger())
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
