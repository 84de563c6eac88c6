package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/yanqian/faqbot/internal/console"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long: `Read questions from stdin and print each reply with the model that produced it.
Type "salir" or "exit" to leave; prefix a question with /regenerar to skip the FAQ table.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	session := &console.Session{
		Asker:    c,
		In:       cmd.InOrStdin(),
		Out:      cmd.OutOrStdout(),
		Progress: os.Stderr,
	}
	return session.Run(cmd.Context())
}
