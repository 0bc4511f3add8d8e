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

func newTouchExternalCommand() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "touch-external [files...]",
		Short: "Bump updatedAt on tips whose media is hosted elsewhere",
		Long: `Set updatedAt on every document whose mediaUrl points outside the media host
(the host of R2_PUBLIC_URL), so the next rehome run picks it up. With no files,
every document matching the content pattern is scanned.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := dates.Resolve(date, time.Now())
			if err != nil {
				return &exitError{code: exitcode.UsageError, err: err}
			}
			ws, err := loadWorkspace(cmd)
			if err != nil {
				return err
			}
			host, err := ws.cfg.Storage.PublicHost()
			if err != nil {
				return err
			}

			var ids []string
			if len(args) > 0 {
				ids, err = ws.documents(args, false)
			} else {
				ids, err = ws.scan()
			}
			if err != nil {
				return err
			}
			return ws.run(cmd, "🔄 Updating tips with external mediaUrl...", ids,
				&pipeline.TouchExternalStep{MediaHost: host, Date: day})
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Date to stamp as YYYY-MM-DD (default: today, UTC)")
	return cmd
}
