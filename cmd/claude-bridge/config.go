package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kdrezo/claude-bridge/internal/backend"
	"github.com/kdrezo/claude-bridge/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and change preferences",
	}
	cmd.AddCommand(
		newConfigShowCmd(a),
		newConfigSetCmd(a),
		newConfigPathCmd(a),
		newConfigDetectCmd(),
	)
	return cmd
}

func newConfigShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective preferences (API key masked)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.loadSettings()
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(s.Masked(), "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal settings: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func newConfigSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one preference in the global file",
		Long: "Change one preference in the global file.\n\nKeys: " +
			strings.Join(config.Keys(), ", "),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.globalPath()
			if err != nil {
				return err
			}
			// Only the file's own values are written back, never the environment.
			s, err := config.LoadFile(path)
			if err != nil {
				return err
			}
			if err := config.Set(s, args[0], args[1]); err != nil {
				return err
			}
			if err := config.Save(s, path); err != nil {
				return err
			}

			value := args[1]
			if strings.EqualFold(args[0], "http.api_key") {
				value = s.Masked().HTTP.APIKey
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s (%s)\n", strings.ToLower(args[0]), value, path)
			return nil
		},
	}
}

func newConfigPathCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the preference file locations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			global, err := a.globalPath()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "global:  %s\nproject: %s\n", global, a.projectPath())
			return nil
		},
	}
}

func newConfigDetectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect",
		Short: "Look for the claude executable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			home, _ := os.UserHomeDir()
			out := cmd.OutOrStdout()
			for _, path := range config.CandidatePaths(home) {
				mark := " "
				if backend.IsExecutable(path) {
					mark = "✓"
				}
				fmt.Fprintf(out, "  %s %s\n", mark, path)
			}
			fmt.Fprintf(out, "using: %s\n", config.DetectExecutable(home))
			return nil
		},
	}
}
