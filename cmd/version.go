/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/tipguard/internal/assets"
	"github.com/fulmenhq/tipguard/pkg/buildinfo"
	"github.com/fulmenhq/tipguard/pkg/exitcode"
)

func newVersionCommand() *cobra.Command {
	var (
		extended bool
		format   string
	)

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show tipguard version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVersion(cmd, extended, format)
		},
	}

	cmd.Flags().BoolVar(&extended, "extended", false, "Show VCS revision and embedded schemas")
	cmd.Flags().StringVar(&format, "format", "text", "Output format (text|json)")
	return cmd
}

func runVersion(cmd *cobra.Command, extended bool, format string) error {
	out := cmd.OutOrStdout()
	version := buildinfo.Version()
	source := "default"
	switch {
	case buildinfo.BinaryVersion != "" && buildinfo.BinaryVersion != "dev":
		source = "ldflags"
	case buildinfo.ModuleVersion() != "":
		source = "module"
	}
	revision, dirty := buildinfo.Revision()
	if len(revision) > 8 {
		revision = revision[:8]
	}

	switch format {
	case "json":
		versionInfo := map[string]interface{}{
			"version":   version,
			"source":    source,
			"goVersion": runtime.Version(),
			"platform":  runtime.GOOS,
			"arch":      runtime.GOARCH,
		}
		if extended {
			versionInfo["gitCommit"] = revision
			versionInfo["gitDirty"] = dirty
			versionInfo["schemas"] = assets.SchemaNames()
		}
		jsonData, err := json.MarshalIndent(versionInfo, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format JSON: %w", err)
		}
		_, _ = fmt.Fprintln(out, string(jsonData))
		return nil
	case "text":
	default:
		return &exitError{code: exitcode.UsageError, err: fmt.Errorf("invalid format: %s", format)}
	}

	_, _ = fmt.Fprintf(out, "tipguard %s\n", version)
	_, _ = fmt.Fprintf(out, "Source: %s\n", source)
	if extended {
		if revision == "" {
			revision = "unknown"
		}
		_, _ = fmt.Fprintf(out, "Git commit: %s\n", revision)
		if dirty {
			_, _ = fmt.Fprintf(out, "Git status: dirty (uncommitted changes)\n")
		}
		for _, s := range assets.SchemaNames() {
			_, _ = fmt.Fprintf(out, "Schema: %s (%s)\n", s.Name, s.Draft)
		}
	}
	_, _ = fmt.Fprintf(out, "Go Version: %s\n", runtime.Version())
	_, _ = fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	return nil
}
