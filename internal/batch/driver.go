// Package batch applies a sequence of document steps to a list of tip files
// and aggregates the outcome of the run.
package batch

import (
	"bytes"
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/fulmenhq/tipguard/internal/frontmatter"
	"github.com/fulmenhq/tipguard/pkg/logger"
)

// Document is a decoded tip as it moves through the steps.
type Document struct {
	ID       string
	Metadata *frontmatter.Metadata
	Body     string
}

// StepResult reports what a step did. Steps that change the document
// replace Document.Metadata themselves.
type StepResult struct {
	Changed bool
	Changes []string
}

// Step is one operation in the pipeline. An error ends processing of the
// current document.
type Step interface {
	Name() string
	Apply(ctx context.Context, doc *Document) (StepResult, error)
}

// Prechecker is implemented by steps that can reject a document by its
// identifier alone, before it is read.
type Prechecker interface {
	Precheck(documentID string) error
}

// Status of one document after a run.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusChanged Status = "changed"
	StatusFailed  Status = "failed"
)

// DocumentResult is the outcome for one document.
type DocumentResult struct {
	ID      string   `json:"document"`
	Status  Status   `json:"status"`
	Changes []string `json:"changes,omitempty"`
	// Step names the step that failed, empty for read/decode/write failures
	Step  string `json:"step,omitempty"`
	Error string `json:"error,omitempty"`
	Err   error  `json:"-"`
}

// Summary aggregates a run.
type Summary struct {
	RunID     string           `json:"run_id"`
	Total     int              `json:"total"`
	Succeeded int              `json:"succeeded"`
	Mutated   int              `json:"mutated"`
	Results   []DocumentResult `json:"results"`
	Failures  []DocumentResult `json:"failures,omitempty"`
	NoOp      bool             `json:"no_op,omitempty"`
	Duration  time.Duration    `json:"duration_ns"`
}

// Failed reports whether any document failed.
func (s *Summary) Failed() bool {
	return len(s.Failures) > 0
}

// Options configures a Driver.
type Options struct {
	// Concurrency bounds the number of documents in flight; values below 1 mean 1.
	Concurrency int
	// NoOp runs every step but never writes.
	NoOp bool
}

// Driver runs steps over documents.
type Driver struct {
	store Store
	steps []Step
	opts  Options
}

// NewDriver creates a Driver.
func NewDriver(store Store, steps []Step, opts Options) *Driver {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Driver{store: store, steps: steps, opts: opts}
}

// Run processes ids and returns the summary. A failing document never stops
// the others; only context cancellation does.
func (d *Driver) Run(ctx context.Context, ids []string) *Summary {
	start := time.Now()
	ids = Dedupe(ids)
	sum := &Summary{
		RunID:   uuid.NewString(),
		Total:   len(ids),
		Results: make([]DocumentResult, len(ids)),
		NoOp:    d.opts.NoOp,
	}
	logger.Debug("Starting batch run",
		logger.String("run_id", sum.RunID),
		logger.Int("documents", len(ids)),
		logger.Int("concurrency", d.opts.Concurrency))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.Concurrency)
	for i, id := range ids {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				sum.Results[i] = failed(id, "", gctx.Err())
			default:
				sum.Results[i] = d.process(gctx, id)
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range sum.Results {
		switch r.Status {
		case StatusFailed:
			sum.Failures = append(sum.Failures, r)
		case StatusChanged:
			sum.Mutated++
			sum.Succeeded++
		default:
			sum.Succeeded++
		}
	}
	sum.Duration = time.Since(start)
	logger.Info("Batch run complete",
		logger.String("run_id", sum.RunID),
		logger.Int("total", sum.Total),
		logger.Int("succeeded", sum.Succeeded),
		logger.Int("mutated", sum.Mutated),
		logger.Int("failed", len(sum.Failures)))
	return sum
}

func (d *Driver) process(ctx context.Context, id string) DocumentResult {
	for _, s := range d.steps {
		if p, ok := s.(Prechecker); ok {
			if err := p.Precheck(id); err != nil {
				return failed(id, s.Name(), err)
			}
		}
	}

	raw, err := d.store.Read(ctx, id)
	if err != nil {
		return failed(id, "", err)
	}
	m, body, err := frontmatter.Decode(raw)
	if err != nil {
		return failed(id, "", err)
	}

	doc := &Document{ID: id, Metadata: m, Body: body}
	res := DocumentResult{ID: id, Status: StatusPassed}
	changed := false
	for _, s := range d.steps {
		sr, err := s.Apply(ctx, doc)
		if err != nil {
			return failed(id, s.Name(), err)
		}
		if sr.Changed {
			changed = true
			res.Changes = append(res.Changes, sr.Changes...)
		}
	}
	if !changed {
		logger.Debug("No changes needed", logger.Doc(id))
		return res
	}

	out, err := frontmatter.Encode(doc.Body, doc.Metadata)
	if err != nil {
		return failed(id, "", err)
	}
	if bytes.Equal(out, raw) {
		return res
	}
	res.Status = StatusChanged
	if d.opts.NoOp {
		logger.Info("Would update document", logger.Doc(id), logger.Strings("changes", res.Changes))
		return res
	}
	if err := d.store.Write(ctx, id, out); err != nil {
		return failed(id, "", err)
	}
	logger.Info("Updated document", logger.Doc(id), logger.Strings("changes", res.Changes))
	return res
}

func failed(id, step string, err error) DocumentResult {
	logger.Debug("Document failed", logger.Doc(id), logger.String("step", step), logger.Err(err))
	return DocumentResult{ID: id, Status: StatusFailed, Step: step, Error: err.Error(), Err: err}
}

// Dedupe drops repeated identifiers, keeping first occurrences in order.
func Dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
