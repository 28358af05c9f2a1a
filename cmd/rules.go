package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Shin-ichiroh/Manuscript-review/internal/rulebook"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Parse the rulebook and print its chunks",
	Run: func(cmd *cobra.Command, _ []string) {
		logger, config := bootstrap()
		path := rulebookPath(config)

		chunks, err := rulebook.NewCache(rulebookOptions(config.Rulebook), logger).Chunks(path)
		if err != nil {
			logger.Fatal("loading rulebook", zap.Error(err), zap.String("path", path))
		}

		logger.Info("rulebook parsed",
			zap.String("path", path),
			zap.Int("chunks", len(chunks)),
			zap.Strings("sections", rulebook.Sections(chunks)),
		)

		out := cmd.OutOrStdout()
		if asJSON, _ := cmd.Flags().GetBool("output-json"); asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(chunks); err != nil {
				logger.Fatal("encoding chunks", zap.Error(err))
			}
			return
		}

		for i, c := range chunks {
			fmt.Fprintf(out, "\n--- Chunk %d ---\nSection: %s\nText: %s\nVector: %v\n", i+1, c.SectionTitle, c.Text, c.Vector)
		}
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)

	rulesCmd.Flags().Bool("output-json", false, "print chunks as json")
}
