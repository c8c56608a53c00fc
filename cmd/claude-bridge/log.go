package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/kdrezo/claude-bridge/internal/persistence"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	failedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("red"))
)

func newLogCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "log",
		Short: "List recent calls from the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openJournal(ctx)
			if err != nil {
				return fmt.Errorf("failed to open journal: %w", err)
			}
			defer store.Close()

			calls, err := store.ListCalls(ctx, limit)
			if err != nil {
				return err
			}
			stats, err := store.Stats(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(calls) == 0 {
				fmt.Fprintln(out, "No calls recorded yet.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, headerStyle.Render("WHEN")+"\t"+headerStyle.Render("BACKEND")+"\t"+
				headerStyle.Render("MODE")+"\t"+headerStyle.Render("PROMPT")+"\t"+
				headerStyle.Render("REPLY")+"\t"+headerStyle.Render("TOOK")+"\t"+headerStyle.Render("OUTCOME"))
			for _, c := range calls {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
					c.CreatedAt.Format(time.DateTime), c.Backend, mode(c), c.PromptChars, c.ReplyChars,
					c.Duration.Round(time.Millisecond), outcome(c))
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(out, "\n%d calls, %d ok, %d failed, average %s\n",
				stats.Total, stats.Succeeded, stats.Failed, stats.AvgDuration.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", persistence.DefaultListLimit, "number of calls to show")
	return cmd
}

func mode(c persistence.Call) string {
	if c.Stateful {
		return "chat"
	}
	return "single"
}

func outcome(c persistence.Call) string {
	if c.Outcome == persistence.OutcomeOK {
		return c.Outcome
	}
	if c.Error != "" {
		return failedStyle.Render(c.Outcome + ": " + c.Error)
	}
	return failedStyle.Render(c.Outcome)
}
