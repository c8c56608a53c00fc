package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kdrezo/claude-bridge/internal/assist"
)

func newAskCmd(a *app) *cobra.Command {
	var system string

	cmd := &cobra.Command{
		Use:   "ask [prompt]",
		Short: "Send one message without conversation history",
		Long: `Send one message to Claude and print the reply.
With no prompt arguments the message is read from stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := strings.Join(args, " ")
			if strings.TrimSpace(prompt) == "" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("reading stdin: %w", err)
				}
				prompt = string(data)
			}
			if strings.TrimSpace(prompt) == "" {
				return assist.ErrNoInput
			}

			return a.withSession(cmd, func(ctx context.Context, s *session) error {
				reply, err := s.bridge.SendMessageWithoutHistory(ctx, prompt, s.settings.SystemPrompt(system))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), reply)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&system, "system", "s", "", "system prompt sent with the message")
	return cmd
}
