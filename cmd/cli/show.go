package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/sevigo/ci-warden/internal/core"
	"github.com/sevigo/ci-warden/internal/jobs"
	"github.com/sevigo/ci-warden/internal/util"
)

var showLogLines int

var showCmd = &cobra.Command{
	Use:   "show <sha>",
	Short: "Shows the test record and captured log for a commit",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx := context.Background()
		sha := args[0]

		app, cleanup, err := initializeApp(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		rec, err := app.Store.LoadRecord(ctx, sha)
		if errors.Is(err, core.ErrRecordNotFound) {
			warnColor.Printf("No test record for %s\n", util.ShortID(sha, 0))
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load record: %w", err)
		}

		logTail := ""
		if path, err := jobs.LogPath(app.LogDir(), sha); err == nil {
			if content, err := os.ReadFile(path); err == nil {
				logTail = tail(string(content), showLogLines)
			}
		}

		out, err := renderRecord(rec, logTail)
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	},
}

func renderRecord(rec *core.TestRecord, logTail string) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", rec.Commit)
	fmt.Fprintf(&sb, "| Status | Coverage | Updated |\n|---|---|---|\n| %s | %s | %s |\n\n",
		rec.Status, formatCoverage(rec.Coverage), rec.UpdatedAt.Format("2006-01-02 15:04:05"))
	if rec.Description != "" {
		fmt.Fprintf(&sb, "> %s\n\n", rec.Description)
	}
	if logTail != "" {
		sb.WriteString("## Log\n\n```\n")
		sb.WriteString(logTail)
		if !strings.HasSuffix(logTail, "\n") {
			sb.WriteString("\n")
		}
		sb.WriteString("```\n")
	}

	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return "", fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return r.Render(sb.String())
}

// tail returns the last n lines of s.
func tail(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	showCmd.Flags().IntVarP(&showLogLines, "lines", "n", 40, "Number of log lines to show")
	rootCmd.AddCommand(showCmd)
}
