package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sevigo/ci-warden/internal/core"
	"github.com/sevigo/ci-warden/internal/gitutil"
	"github.com/sevigo/ci-warden/internal/util"
)

var (
	runForce  bool
	runPost   bool
	runBranch string
)

var runCmd = &cobra.Command{
	Use:   "run <sha|commit-url>",
	Short: "Runs the tests for a commit and stores the result",
	Long: `Runs the tests for a commit through the same pipeline the server uses.

A commit with a stored record is answered from the record unless --force is set.

Examples:
  ciw run 1c33a6e2ac7d7fc098105b21a702e104e09767cf
  ciw run --force https://github.com/owner/repo/commit/1c33a6e2ac7d7fc098105b21a702e104e09767cf`,
	Args: cobra.ExactArgs(1),
	RunE: runTests,
}

func init() { //nolint:gochecknoinits // Cobra command registration
	runCmd.Flags().BoolVarP(&runForce, "force", "f", false, "Run the tests even if a record exists")
	runCmd.Flags().BoolVar(&runPost, "post", false, "Post commit statuses to GitHub (needs a commit URL)")
	runCmd.Flags().StringVarP(&runBranch, "branch", "b", "", "Branch the commit belongs to")
	rootCmd.AddCommand(runCmd)
}

func parseTarget(arg string) (*core.JobData, error) {
	data := &core.JobData{SHA: strings.ToLower(arg), Branch: runBranch}
	if strings.Contains(arg, "/") {
		owner, repo, sha, err := gitutil.ParseCommitURL(arg)
		if err != nil {
			return nil, err
		}
		data.Owner, data.Repo, data.SHA = owner, repo, sha
	}
	if !util.IsSHA(data.SHA) {
		return nil, &core.InvalidFieldValueError{Field: "sha", Value: arg, Expected: []string{"40 hex characters", "commit URL"}}
	}
	return data, nil
}

func runTests(_ *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	data, err := parseTarget(args[0])
	if err != nil {
		return err
	}
	force := runForce
	data.Force = &force
	data.SkipPost = !runPost || data.Owner == ""

	app, cleanup, err := initializeApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	titleColor.Printf("Testing %s\n", util.ShortID(data.SHA, 0))
	start := time.Now()

	job, err := app.Queue.Enqueue(ctx, data)
	if err != nil {
		return fmt.Errorf("failed to queue test run: %w", err)
	}

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = app.Queue.Run(workerCtx) }()

	select {
	case <-job.Finished():
	case <-ctx.Done():
		return fmt.Errorf("interrupted: %w", ctx.Err())
	}

	outcome, ok := job.Result()
	if !ok {
		if err := job.Err(); err != nil {
			return err
		}
		warnColor.Println("Branch is not configured for testing, nothing was run.")
		return nil
	}
	statusColor(outcome.Status).Printf("%s: %s\n", outcome.Status, outcome.Description)
	dimColor.Printf("finished in %s\n", time.Since(start).Round(time.Millisecond))

	if err := job.Err(); err != nil {
		return err
	}
	if outcome.Status != core.StatusSuccess {
		return fmt.Errorf("tests did not pass")
	}
	return nil
}
