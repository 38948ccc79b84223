package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sevigo/ci-warden/internal/badge"
)

var badgeJSON bool

var badgeCmd = &cobra.Command{
	Use:   "badge <coverage|status> <sha>",
	Short: "Renders the badge served for a commit",
	Long: `Renders the badge payload the server would return for a commit.

A commit without a record renders as pending; use "ciw run" to test it.`,
	Args: cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx := context.Background()

		app, cleanup, err := initializeApp(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		payload, err := app.Badges.GetBadgeData(ctx, badge.Request{Context: args[0], SHA: args[1]})
		if err != nil {
			return err
		}

		if badgeJSON {
			return json.NewEncoder(os.Stdout).Encode(payload)
		}
		fmt.Println(renderBadge(payload))
		if payload.Message == "pending" {
			dimColor.Printf("no test record yet, run: ciw run %s\n", args[1])
		}
		return nil
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	badgeCmd.Flags().BoolVar(&badgeJSON, "json", false, "Print the raw badge payload")
	rootCmd.AddCommand(badgeCmd)
}
