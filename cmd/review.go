package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Shin-ichiroh/Manuscript-review/internal/history"
	"github.com/Shin-ichiroh/Manuscript-review/internal/pipeline"
	"github.com/Shin-ichiroh/Manuscript-review/internal/posting"
)

const (
	PromptShowReview    = "Show review"
	PromptShowPrompt    = "Show prompt"
	PromptShowRules     = "Show relevant rules"
	PromptShowDebug     = "Show debug messages"
	PromptSaveToHistory = "Save to history"
	PromptDumpToFile    = "Dump outcome to file"
	PromptExit          = "Exit"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptShowReview, PromptShowPrompt, PromptShowRules, PromptShowDebug, PromptSaveToHistory, PromptDumpToFile, PromptExit},
}

var reviewCmd = &cobra.Command{
	Use:   "review [url]",
	Short: "Review a job posting from a URL or a posting file",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runReview(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd)

	reviewCmd.Flags().StringP("posting", "p", "", "posting file (json or yaml) to review instead of fetching a url")
	reviewCmd.Flags().Bool("show-prompt", false, "print the assembled prompt")
	reviewCmd.Flags().BoolP("yes", "y", false, "save the review to history and exit without asking")
}

func runReview(cmd *cobra.Command, args []string) {
	logger, config := bootstrap()

	postingFile, _ := cmd.Flags().GetString("posting")
	if postingFile == "" && len(args) == 0 {
		logger.Fatal("a posting url or --posting file is required")
	}

	p, err := newPipeline(context.Background(), config, logger)
	if err != nil {
		logger.Fatal("building review pipeline", zap.Error(err))
	}

	ctx, cancel := withReviewTimeout(cmd.Context(), config)
	defer cancel()

	var outcome *pipeline.Outcome
	if postingFile != "" {
		record, err := posting.LoadFile(postingFile)
		if err != nil {
			logger.Fatal("loading posting file", zap.Error(err), zap.String("path", postingFile))
		}
		if record.URL == "" && len(args) > 0 {
			record.URL = args[0]
		}
		outcome = p.ProcessRecord(ctx, *record)
	} else {
		outcome = p.ProcessURL(ctx, args[0])
	}

	for _, msg := range outcome.DebugMessages {
		logger.Debug(msg)
	}

	if outcome.ErrorMessage != "" {
		logger.Warn("review finished with errors", zap.String("error_message", outcome.ErrorMessage))
	}

	out := cmd.OutOrStdout()
	if !outcome.Reviewed() {
		logger.Error("no review produced", zap.String("url", outcome.URL))
		return
	}

	logger.Info("review finished",
		zap.String("source", string(outcome.Review.Source)),
		zap.Int("rulebook_chunks", outcome.RulebookChunkCount),
	)

	if show, _ := cmd.Flags().GetBool("show-prompt"); show {
		printSection(out, "Prompt", outcome.Review.Prompt)
	}
	printSection(out, "Review", outcome.Review.Text)

	store := newHistoryStore(config)

	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		if err := handleAction(out, PromptSaveToHistory, logger, store, outcome); err != nil {
			logger.Fatal("saving review", zap.Error(err))
		}
		return
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(out, action, logger, store, outcome); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func handleAction(out io.Writer, action string, logger *zap.Logger, store *history.Store, outcome *pipeline.Outcome) error {
	switch action {
	case PromptShowReview:
		printSection(out, "Review", outcome.Review.Text)
		return nil
	case PromptShowPrompt:
		printSection(out, "Prompt", outcome.Review.Prompt)
		return nil
	case PromptShowRules:
		printSection(out, "Relevant rules", outcome.Review.RelevantRules)
		for _, m := range outcome.Review.Matches {
			fmt.Fprintf(out, "  %s (distance %.0f)\n", m.SectionTitle, m.Distance)
		}
		return nil
	case PromptShowDebug:
		printSection(out, "Debug messages", strings.Join(outcome.DebugMessages, "\n"))
		return nil
	case PromptSaveToHistory:
		entry, err := store.Append(outcome)
		if err != nil {
			return fmt.Errorf("save to history: %w", err)
		}
		logger.Info("saved review to history", zap.String("id", entry.ID), zap.String("filename", store.Path()))
		return nil
	case PromptDumpToFile:
		filename, err := history.DumpToTmpFile(outcome)
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func printSection(out io.Writer, title, body string) {
	fmt.Fprintf(out, "\n--- %s ---\n%s\n", title, body)
}
