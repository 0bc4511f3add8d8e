package cmd

import (
	"github.com/spf13/cobra"

	"github.com/fulmenhq/tipguard/internal/pipeline"
)

func newRehomeCommand() *cobra.Command {
	var changed bool

	cmd := &cobra.Command{
		Use:   "rehome [files...]",
		Short: "Move external media into object storage and rewrite mediaUrl",
		Long: `Rehome media referenced by mediaUrl. External media is downloaded, stored
under {document}-{hash}{ext} unless the key already exists, and mediaUrl is
rewritten to the public URL. R2 credentials are required unless --no-op is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := loadWorkspace(cmd)
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
			return ws.run(cmd, "🚀 Uploading media files...", ids,
				&pipeline.RehomeStep{Rehomer: ws.rehomer(store)})
		},
	}

	cmd.Flags().BoolVar(&changed, "changed", false, "Rehome media for files changed in the git working tree")
	return cmd
}
