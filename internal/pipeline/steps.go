// Package pipeline adapts the validator, enricher and rehomer into batch
// steps.
package pipeline

import (
	"context"
	"net/url"
	"strings"

	"github.com/fulmenhq/tipguard/internal/batch"
	"github.com/fulmenhq/tipguard/internal/enrich"
	"github.com/fulmenhq/tipguard/internal/media"
	"github.com/fulmenhq/tipguard/internal/schema"
)

// ValidateStep checks a document against one schema mode. It never changes
// the document.
type ValidateStep struct {
	Validator *schema.Validator
	Mode      schema.Mode
}

func (s *ValidateStep) Name() string { return "validate" }

// Precheck rejects badly named files before they are read.
func (s *ValidateStep) Precheck(documentID string) error {
	return schema.CheckFilename(documentID)
}

func (s *ValidateStep) Apply(_ context.Context, doc *batch.Document) (batch.StepResult, error) {
	res := s.Validator.Validate(s.Mode, doc.ID, doc.Metadata)
	return batch.StepResult{}, res.Err()
}

// EnrichStep fills derived fields for Date.
type EnrichStep struct {
	Enricher *enrich.Enricher
	Date     string
}

func (s *EnrichStep) Name() string { return "enrich" }

func (s *EnrichStep) Apply(ctx context.Context, doc *batch.Document) (batch.StepResult, error) {
	res, err := s.Enricher.Enrich(ctx, doc.Metadata, doc.ID, s.Date)
	if err != nil {
		return batch.StepResult{}, err
	}
	if !res.Changed {
		return batch.StepResult{}, nil
	}
	doc.Metadata = res.Metadata
	changes := make([]string, 0, len(res.Changes))
	for _, c := range res.Changes {
		changes = append(changes, c.String())
	}
	return batch.StepResult{Changed: true, Changes: changes}, nil
}

// RehomeStep moves external media into the object store.
type RehomeStep struct {
	Rehomer *media.Rehomer
}

func (s *RehomeStep) Name() string { return "rehome" }

func (s *RehomeStep) Apply(ctx context.Context, doc *batch.Document) (batch.StepResult, error) {
	res, err := s.Rehomer.Rehome(ctx, doc.Metadata, doc.ID)
	if err != nil {
		return batch.StepResult{}, err
	}
	if !res.Moved {
		return batch.StepResult{}, nil
	}
	doc.Metadata = res.Metadata
	return batch.StepResult{
		Changed: true,
		Changes: []string{"Updated mediaUrl: " + res.SourceURL + " -> " + res.PublicURL},
	}, nil
}

// TouchExternalStep bumps updatedAt on documents whose media is still
// hosted outside MediaHost.
type TouchExternalStep struct {
	MediaHost string
	Date      string
}

func (s *TouchExternalStep) Name() string { return "touch-external" }

func (s *TouchExternalStep) Apply(_ context.Context, doc *batch.Document) (batch.StepResult, error) {
	mediaURL, ok := doc.Metadata.Lookup(media.FieldMediaURL)
	if !ok || !s.isExternal(mediaURL) {
		return batch.StepResult{}, nil
	}
	if current, _ := doc.Metadata.Lookup(enrich.FieldUpdatedAt); current == s.Date {
		return batch.StepResult{}, nil
	}
	m := doc.Metadata.Clone()
	m.Set(enrich.FieldUpdatedAt, s.Date)
	doc.Metadata = m
	return batch.StepResult{Changed: true, Changes: []string{"Updated updatedAt: " + s.Date}}, nil
}

// isExternal treats unparseable URLs as not external.
func (s *TouchExternalStep) isExternal(mediaURL string) bool {
	u, err := url.Parse(mediaURL)
	if err != nil || u.Host == "" {
		return false
	}
	return !strings.EqualFold(u.Hostname(), s.MediaHost)
}
