/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/tipguard/internal/dates"
	"github.com/fulmenhq/tipguard/internal/pipeline"
	"github.com/fulmenhq/tipguard/internal/schema"
	"github.com/fulmenhq/tipguard/pkg/exitcode"
)

func newRunCommand() *cobra.Command {
	var (
		date    string
		changed bool
	)

	cmd := &cobra.Command{
		Use:   "run [files...]",
		Short: "Validate, enrich and rehome in one pass",
		Long: `Run the full pipeline on each document: draft validation, enrichment, then
media rehoming. A document that fails a step is reported and left unwritten;
the remaining documents are still processed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := dates.Resolve(date, time.Now())
			if err != nil {
				return &exitError{code: exitcode.UsageError, err: err}
			}
			ws, err := loadWorkspace(cmd)
			if err != nil {
				return err
			}
			v, err := ws.validator()
			if err != nil {
				return err
			}
			store, err := ws.objectStore()
			if err != nil {
				return err
			}
			ids, err := ws.documents(args, changed)
			if err != nil {
				return err
			}
			return ws.run(cmd, "🔧 Processing tips...", ids,
				&pipeline.ValidateStep{Validator: v, Mode: schema.Draft},
				&pipeline.EnrichStep{Enricher: ws.enricher(), Date: day},
				&pipeline.RehomeStep{Rehomer: ws.rehomer(store)},
			)
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Date to stamp as YYYY-MM-DD (default: today, UTC)")
	cmd.Flags().BoolVar(&changed, "changed", false, "Process files changed in the git working tree")
	return cmd
}
