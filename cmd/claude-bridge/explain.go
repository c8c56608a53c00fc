package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kdrezo/claude-bridge/internal/assist"
)

func newExplainCmd(a *app) *cobra.Command {
	var lines, lang string

	cmd := &cobra.Command{
		Use:   "explain <file>",
		Short: "Explain a file or a range of its lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := readSelection(args[0], lines)
			if err != nil {
				return err
			}
			language := languageFor(lang, args[0])

			return a.withSession(cmd, func(ctx context.Context, s *session) error {
				reply, err := assist.New(s.bridge, s.settings.SystemPrompt).ExplainCode(ctx, code, language)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), reply)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&lines, "lines", "", `line range to explain, e.g. "10:40", "10:" or "12"`)
	cmd.Flags().StringVar(&lang, "lang", "", "language name (detected from the file extension by default)")
	return cmd
}
