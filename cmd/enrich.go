/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/tipguard/internal/dates"
	"github.com/fulmenhq/tipguard/internal/pipeline"
	"github.com/fulmenhq/tipguard/pkg/exitcode"
)

func newEnrichCommand() *cobra.Command {
	var (
		date    string
		changed bool
	)

	cmd := &cobra.Command{
		Use:   "enrich [files...]",
		Short: "Fill publishedAt, updatedAt, author and authorUrl",
		Long: `Enrich tip front matter with derived fields. publishedAt and author are only
filled when absent, updatedAt is set to the run date, and authorUrl follows the
author. The author comes from the last commit touching the file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := dates.Resolve(date, time.Now())
			if err != nil {
				return &exitError{code: exitcode.UsageError, err: err}
			}
			ws, err := loadWorkspace(cmd)
			if err != nil {
				return err
			}
			ids, err := ws.documents(args, changed)
			if err != nil {
				return err
			}
			return ws.run(cmd, "🤖 Auto-adding metadata fields...", ids,
				&pipeline.EnrichStep{Enricher: ws.enricher(), Date: day})
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Date to stamp as YYYY-MM-DD (default: today, UTC)")
	cmd.Flags().BoolVar(&changed, "changed", false, "Enrich files changed in the git working tree")
	return cmd
}
