package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kdrezo/claude-bridge/internal/assist"
)

func newGenerateCmd(a *app) *cobra.Command {
	var lang, file string

	cmd := &cobra.Command{
		Use:   "generate <description>",
		Short: "Generate code from a description",
		Long: `Generate code from a description and print it without markdown fences.
The language comes from --lang, or is detected from --file.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			description := strings.Join(args, " ")
			language := languageFor(lang, file)

			return a.withSession(cmd, func(ctx context.Context, s *session) error {
				code, err := assist.New(s.bridge, s.settings.SystemPrompt).GenerateCode(ctx, description, language)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), code)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&lang, "lang", "", "language of the generated code")
	cmd.Flags().StringVar(&file, "file", "", "file the code is meant for, used to detect the language")
	return cmd
}
