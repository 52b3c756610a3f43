package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/askdb/askdb/internal/query"
)

func newAskCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question end to end",
		Long:  "Generate SQL for a question, validate and run it, and print the summary and the result table.",
		Example: `  askdb ask "dün kaç sipariş girildi"
  askdb ask --json "en çok sipariş veren firma"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			ans := a.assistant.Ask(cmd.Context(), strings.Join(args, " "))
			out := cmd.OutOrStdout()
			if jsonOutput {
				return printJSON(out, map[string]interface{}{
					"success": ans.Success(),
					"message": ans.Message,
					"sql":     ans.SQL,
					"stage":   ans.Stage,
					"result":  ans.Result,
				})
			}

			if ans.SQL != "" {
				fmt.Fprintf(out, "SQL:\n%s\n\n", ans.SQL)
			}
			fmt.Fprintln(out, ans.Message)
			if ans.Result != nil && len(ans.Result.Rows) > 0 {
				fmt.Fprintf(out, "\n%s\n", formatTable(ans.Result))
			}
			if !ans.Success() && ans.Err != nil {
				return fmt.Errorf("%s: %w", ans.Stage, ans.Err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the answer as JSON")

	return cmd
}

func newGenerateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate <question>",
		Short: "Generate SQL for a question without running it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			sql, err := a.assistant.GenerateSQL(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sql)
			return nil
		},
	}
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <sql>",
		Short: "Check a statement against the safety rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res := query.Validate(args[0])
			if !res.IsValid {
				return res.Err()
			}
			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	}
}

func newRunCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "run <sql>",
		Short: "Validate and run a SELECT statement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.assistant.RunQuery(cmd.Context(), args[0])
			if err != nil {
				if errors.Is(err, query.ErrValidationRejected) {
					return fmt.Errorf("rejected: %w", err)
				}
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				return printJSON(out, result)
			}
			fmt.Fprintln(out, formatTable(result))
			fmt.Fprintf(out, "\n%d satır\n", len(result.Rows))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output rows as JSON")

	return cmd
}
