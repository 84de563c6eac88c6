package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var regenerate bool

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&regenerate, "regenerate", false, "skip the FAQ table and ask the generative model")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	resp, err := c.Chat(cmd.Context(), strings.Join(args, " "), regenerate)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	fmt.Fprintln(out, resp.Reply)
	if resp.Distance != nil {
		fmt.Fprintf(out, "[%s, distancia %.4f, %q]\n", resp.Model, *resp.Distance, resp.MatchedQuestion)
	} else {
		fmt.Fprintf(out, "[%s]\n", resp.Model)
	}
	return nil
}
