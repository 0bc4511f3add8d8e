/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/fulmenhq/tipguard/internal/pipeline"
	"github.com/fulmenhq/tipguard/internal/schema"
)

func newValidateCommand() *cobra.Command {
	var published, changed bool

	cmd := &cobra.Command{
		Use:   "validate [files...]",
		Short: "Check tip filenames and front matter against the schema",
		Long: `Validate tip documents. Filenames must be lowercase-hyphenated and the front
matter must satisfy the draft schema, or the published schema with --published.
Files are taken from the arguments, the git change-set (--changed) or
$CHANGED_FILES. Validation never modifies a file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := loadWorkspace(cmd)
			if err != nil {
				return err
			}
			v, err := ws.validator()
			if err != nil {
				return err
			}
			ids, err := ws.documents(args, changed)
			if err != nil {
				return err
			}

			mode := schema.Draft
			if published {
				mode = schema.Published
			}
			return ws.run(cmd, "🔍 Validating tips format ("+mode.String()+")...", ids,
				&pipeline.ValidateStep{Validator: v, Mode: mode})
		},
	}

	cmd.Flags().BoolVar(&published, "published", false, "Apply the published schema (tags, media and publishedAt required)")
	cmd.Flags().BoolVar(&changed, "changed", false, "Validate files changed in the git working tree")
	return cmd
}
