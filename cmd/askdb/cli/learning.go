package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/askdb/askdb/internal/learning"
	"github.com/askdb/askdb/internal/service"
)

// openLearning opens only the learning store. The returned assistant serves
// the feedback loop and cannot generate or run queries.
func openLearning() (*service.Assistant, *learning.Memory, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(cfg.Logging)
	memory, err := learning.Open(cfg.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open learning store: %w", err)
	}
	return service.NewAssistant(nil, nil, nil, memory, logger), memory, nil
}

func newCorrectCmd() *cobra.Command {
	var (
		question    string
		wrongSQL    string
		correctSQL  string
		explanation string
	)

	cmd := &cobra.Command{
		Use:   "correct",
		Short: "Record a correction for a wrong query",
		Example: `  askdb correct --question "dün kaç sipariş girildi" \
    --wrong "SELECT COUNT(*) FROM TOHOM_SIPARIS" \
    --correct "SELECT COUNT(*) FROM TOHOM_SIPARIS WHERE TIP = 0 AND CAST(TARIH AS DATE) = CAST(DATEADD(DAY, -1, GETDATE()) AS DATE)"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			assistant, memory, err := openLearning()
			if err != nil {
				return err
			}
			defer memory.Close()

			c, err := assistant.LearnFromCorrection(cmd.Context(), question, wrongSQL, correctSQL, explanation)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Düzeltme kaydedildi ve öğrenildi! (#%d)\n", c.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&question, "question", "q", "", "The question that was asked")
	cmd.Flags().StringVar(&wrongSQL, "wrong", "", "The generated, wrong SQL")
	cmd.Flags().StringVar(&correctSQL, "correct", "", "The corrected SQL")
	cmd.Flags().StringVarP(&explanation, "explanation", "e", "", "Why the generated SQL was wrong")
	cmd.MarkFlagRequired("question")
	cmd.MarkFlagRequired("wrong")
	cmd.MarkFlagRequired("correct")

	return cmd
}

func newFeedbackCmd() *cobra.Command {
	var (
		question  string
		sql       string
		isCorrect bool
		comment   string
	)

	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Record whether a generated query was correct",
		RunE: func(cmd *cobra.Command, args []string) error {
			assistant, memory, err := openLearning()
			if err != nil {
				return err
			}
			defer memory.Close()

			f, err := assistant.SaveFeedback(cmd.Context(), question, sql, isCorrect, comment)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Geri bildirim kaydedildi (#%d)\n", f.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&question, "question", "q", "", "The question that was asked")
	cmd.Flags().StringVar(&sql, "sql", "", "The generated SQL")
	cmd.Flags().BoolVar(&isCorrect, "correct", false, "Mark the query as correct")
	cmd.Flags().StringVarP(&comment, "comment", "c", "", "Free-form comment")
	cmd.MarkFlagRequired("question")

	return cmd
}

func newStatsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show feedback accuracy and the correction count",
		RunE: func(cmd *cobra.Command, args []string) error {
			assistant, memory, err := openLearning()
			if err != nil {
				return err
			}
			defer memory.Close()

			stats, err := assistant.Stats(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				return printJSON(out, stats)
			}
			fmt.Fprintf(out, "Geri bildirim: %d (doğru %d, yanlış %d)\n",
				stats.Feedback.Total, stats.Feedback.Correct, stats.Feedback.Incorrect)
			fmt.Fprintf(out, "Doğruluk:      %.1f%%\n", stats.Feedback.Accuracy)
			fmt.Fprintf(out, "Düzeltmeler:   %d\n", stats.CorrectionsCount)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output stats as JSON")

	return cmd
}

func newCorrectionsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "corrections",
		Short: "List stored corrections, newest last",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, memory, err := openLearning()
			if err != nil {
				return err
			}
			defer memory.Close()

			return listCorrections(cmd.Context(), cmd.OutOrStdout(), memory, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Only show the newest N corrections")

	return cmd
}

func listCorrections(ctx context.Context, w io.Writer, memory *learning.Memory, limit int) error {
	corrections, err := memory.AllCorrections(ctx)
	if err != nil {
		return err
	}
	if limit > 0 && len(corrections) > limit {
		corrections = corrections[len(corrections)-limit:]
	}
	return printJSON(w, corrections)
}
