package cmd

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/fulmenhq/tipguard/internal/batch"
	"github.com/fulmenhq/tipguard/internal/enrich"
	"github.com/fulmenhq/tipguard/internal/enums"
	"github.com/fulmenhq/tipguard/internal/gitctx"
	"github.com/fulmenhq/tipguard/internal/media"
	"github.com/fulmenhq/tipguard/internal/schema"
	"github.com/fulmenhq/tipguard/internal/storage"
	"github.com/fulmenhq/tipguard/pkg/config"
	"github.com/fulmenhq/tipguard/pkg/exitcode"
	"github.com/fulmenhq/tipguard/pkg/ignore"
	"github.com/fulmenhq/tipguard/pkg/logger"
)

// changedFilesEnv lists documents to process when no arguments are given.
const changedFilesEnv = "CHANGED_FILES"

// noOpPublicURL stands in for the media host when a no-op run has no R2_PUBLIC_URL.
const noOpPublicURL = "https://media.invalid"

// workspace is the per-invocation view of configuration and flags.
type workspace struct {
	cfg  *config.Config
	noOp bool
}

func loadWorkspace(cmd *cobra.Command) (*workspace, error) {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, &exitError{code: exitcode.ConfigError, err: err}
	}
	if !doublestar.ValidatePattern(cfg.Content.Pattern) {
		return nil, &exitError{code: exitcode.ConfigError, err: fmt.Errorf("invalid content pattern %q: %w", cfg.Content.Pattern, doublestar.ErrBadPattern)}
	}
	if c, _ := cmd.Flags().GetInt("concurrency"); c > 0 {
		cfg.Batch.Concurrency = c
	}
	noOp, _ := cmd.Flags().GetBool("no-op")
	return &workspace{cfg: cfg, noOp: noOp}, nil
}

// validator loads every enum eagerly so a broken config aborts the run
// before any document is touched.
func (w *workspace) validator() (*schema.Validator, error) {
	reg := enums.NewRegistry(w.cfg.ConfigDir(), nil)
	if err := reg.LoadAll(); err != nil {
		return nil, err
	}
	v, err := schema.NewValidatorFromRegistry(reg)
	if err != nil {
		return nil, &exitError{code: exitcode.ConfigError, err: err}
	}
	return v, nil
}

func (w *workspace) enricher() *enrich.Enricher {
	root := w.cfg.Content.Root
	var history enrich.HistoryLookup
	if h, err := gitctx.OpenHistory(root); err != nil {
		logger.Warn("Git history unavailable, author will not be filled", logger.Err(err))
	} else {
		history = enrich.HistoryFunc(func(ctx context.Context, id string) (string, error) {
			return h.LastAuthorEmail(ctx, filepath.Join(root, filepath.FromSlash(id)))
		})
	}
	return enrich.New(history, enrich.Options{ProfileBaseURL: w.cfg.Author.ProfileBaseURL})
}

// objectStore returns the R2 store, or an in-memory store for no-op runs.
func (w *workspace) objectStore() (media.ObjectStore, error) {
	s := w.cfg.Storage
	if w.noOp {
		publicURL := s.PublicURL
		if publicURL == "" {
			publicURL = noOpPublicURL
		} else if _, err := config.PublicURLHost(publicURL); err != nil {
			return nil, err
		}
		logger.Info("Media uploads are kept in memory", logger.String("public_url", publicURL))
		return storage.NewMemoryStore(publicURL), nil
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	store, err := storage.NewR2Store(storage.R2Options{
		AccountID:       s.AccountID,
		AccessKeyID:     s.AccessKeyID,
		SecretAccessKey: s.SecretAccessKey,
		Bucket:          s.Bucket,
		PublicURL:       s.PublicURL,
		Endpoint:        s.Endpoint,
	})
	if err != nil {
		return nil, &exitError{code: exitcode.CredentialsError, err: err}
	}
	return store, nil
}

func (w *workspace) rehomer(store media.ObjectStore) *media.Rehomer {
	fetcher := media.NewHTTPFetcher(media.FetcherOptions{
		Timeout:      w.cfg.Media.FetchTimeout,
		MaxRedirects: w.cfg.Media.MaxRedirects,
		MaxBytes:     w.cfg.Media.MaxBytes,
	})
	return media.NewRehomer(fetcher, store, media.Options{DefaultExtension: w.cfg.Media.DefaultExtension})
}

// documents resolves the ids to process: arguments, then the git change-set
// when changed is set, then $CHANGED_FILES. Ids outside the content pattern
// are dropped.
func (w *workspace) documents(args []string, changed bool) ([]string, error) {
	var candidates []string
	switch {
	case len(args) > 0:
		candidates = args
	case changed:
		ids, err := w.changedDocuments()
		if err != nil {
			return nil, err
		}
		candidates = ids
	default:
		candidates = strings.Fields(os.Getenv(changedFilesEnv))
	}

	var ids []string
	for _, c := range candidates {
		id := path.Clean(filepath.ToSlash(c))
		if !doublestar.MatchUnvalidated(w.cfg.Content.Pattern, id) {
			logger.Debug("Ignoring file outside content pattern", logger.Doc(id), logger.String("pattern", w.cfg.Content.Pattern))
			continue
		}
		ids = append(ids, id)
	}
	return batch.Dedupe(ids), nil
}

// changedDocuments maps the repository change-set onto ids relative to the content root.
func (w *workspace) changedDocuments() ([]string, error) {
	root, err := filepath.Abs(w.cfg.Content.Root)
	if err != nil {
		return nil, err
	}
	cc, err := gitctx.Collect(root)
	if err != nil {
		return nil, fmt.Errorf("--changed: %w", err)
	}
	base := cc.Root
	if base == "" {
		base = root
	}
	logger.Debug("Collected change-set",
		logger.String("branch", cc.Branch),
		logger.String("head", cc.GitSHA),
		logger.Int("files", len(cc.ModifiedFiles)))

	var ids []string
	for _, p := range cc.ModifiedFiles {
		rel, err := filepath.Rel(root, filepath.Join(base, filepath.FromSlash(p)))
		if err != nil {
			continue
		}
		rel = filepath.ToSlash(rel)
		if rel == ".." || strings.HasPrefix(rel, "../") {
			continue
		}
		ids = append(ids, rel)
	}
	return ids, nil
}

// scan lists every document under the content root matching the pattern,
// minus paths excluded by .gitignore or .tipguardignore.
func (w *workspace) scan() ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(w.cfg.Content.Root), w.cfg.Content.Pattern)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", w.cfg.Content.Root, err)
	}
	m, err := ignore.NewMatcher(w.cfg.Content.Root)
	if err != nil {
		return nil, err
	}
	matches = m.Filter(matches)
	sort.Strings(matches)
	return matches, nil
}

func (w *workspace) driver(steps ...batch.Step) *batch.Driver {
	return batch.NewDriver(batch.NewFileStore(w.cfg.Content.Root), steps, batch.Options{
		Concurrency: w.cfg.Batch.Concurrency,
		NoOp:        w.noOp,
	})
}

// run prints the banner, processes ids and reports the outcome. A run with
// failed documents returns an exitError after the report is printed.
func (w *workspace) run(cmd *cobra.Command, banner string, ids []string, steps ...batch.Step) error {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "%s\n\n", banner)
	if len(ids) == 0 {
		_, _ = fmt.Fprintln(out, "✅ No tip files to process")
		return nil
	}
	_, _ = fmt.Fprintf(out, "Found %d tip file(s) to process\n\n", len(ids))

	sum := w.driver(steps...).Run(cmd.Context(), ids)
	printReport(out, sum)
	if sum.Failed() {
		return &exitError{
			code:     exitcode.DocumentFailure,
			err:      fmt.Errorf("%d of %d document(s) failed", len(sum.Failures), sum.Total),
			reported: true,
		}
	}
	return nil
}
