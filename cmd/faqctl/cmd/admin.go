package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yanqian/faqbot/internal/domain/faq"
)

var generateCount int

var importCmd = &cobra.Command{
	Use:   "import [file.csv|-]",
	Short: "Import question,answer rows into the FAQ table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var src io.Reader = cmd.InOrStdin()
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			src = f
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		report, err := c.Import(cmd.Context(), src)
		if err != nil {
			return err
		}
		return printResult(cmd, report, fmt.Sprintf("imported %d, skipped %d", report.Imported, report.Skipped))
	},
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Reload the FAQ table and publish a new index",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		report, err := c.Rebuild(cmd.Context())
		if err != nil {
			return err
		}
		return printResult(cmd, report, fmt.Sprintf("index rebuilt: %d entries, %d terms, %d ms", report.Entries, report.Vocabulary, report.DurationMs))
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Draft synthetic FAQ entries from the document store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if generateCount <= 0 {
			return errors.New("--count must be positive")
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		report, err := c.Generate(cmd.Context(), generateCount)
		if err != nil {
			return err
		}
		if jsonOut {
			return printResult(cmd, report, "")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "generated %d of %d in %d attempts\n", report.Generated, report.Requested, report.Attempts)
		return printEntries(cmd, report.Entries)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the FAQ table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		entries, err := c.ListEntries(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOut {
			return printResult(cmd, entries, "")
		}
		return printEntries(cmd, entries)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete [question]",
	Short: "Delete one entry by its exact question text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.DeleteEntry(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "deleted")
		return nil
	},
}

func init() {
	generateCmd.Flags().IntVar(&generateCount, "count", 10, "number of pairs to generate")
	rootCmd.AddCommand(importCmd, rebuildCmd, generateCmd, listCmd, deleteCmd)
}

func printResult(cmd *cobra.Command, v any, summary string) error {
	if jsonOut || summary == "" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	fmt.Fprintln(cmd.OutOrStdout(), summary)
	return nil
}

func printEntries(cmd *cobra.Command, entries []faq.Entry) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "QUESTION\tANSWER")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\n", e.Question, truncate(e.Answer, 80))
	}
	return w.Flush()
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
