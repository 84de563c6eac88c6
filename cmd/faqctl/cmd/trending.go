package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var trendingCmd = &cobra.Command{
	Use:   "trending",
	Short: "List the most asked questions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		items, err := c.Trending(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "COUNT\tQUESTION")
		for _, item := range items {
			fmt.Fprintf(w, "%d\t%s\n", item.Count, item.Query)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(trendingCmd)
}
