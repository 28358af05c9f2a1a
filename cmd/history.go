package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved reviews, newest first",
	Run: func(cmd *cobra.Command, _ []string) {
		logger, config := bootstrap()
		store := newHistoryStore(config)

		limit, _ := cmd.Flags().GetInt("limit")
		entries, err := store.List(limit)
		if err != nil {
			logger.Fatal("reading history", zap.Error(err), zap.String("filename", store.Path()))
		}

		out := cmd.OutOrStdout()
		if asJSON, _ := cmd.Flags().GetBool("output-json"); asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(entries); err != nil {
				logger.Fatal("encoding history", zap.Error(err))
			}
			return
		}

		if len(entries) == 0 {
			logger.Info("history is empty", zap.String("filename", store.Path()))
			return
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tREVIEWED AT\tSOURCE\tURL")
		for _, e := range entries {
			source := "-"
			if e.Outcome.Review != nil {
				source = string(e.Outcome.Review.Source)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.ID, e.ReviewedAt.Format(time.RFC3339), source, e.Outcome.URL)
		}
		w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntP("limit", "l", 20, "number of entries to show, 0 for all")
	historyCmd.Flags().Bool("output-json", false, "print entries as json")
}
