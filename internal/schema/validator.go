// Package schema validates tip front matter against the draft and published
// field schemas.
//
// The schemas are JSON Schema documents embedded as YAML templates.
// The category and difficulty enums are injected from the content
// configuration before compilation, so each Validator is bound to one run's
// configuration. Cross-field rules and the filename convention are checked
// with ozzo-validation.
package schema

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/fulmenhq/tipguard/internal/assets"
	"github.com/fulmenhq/tipguard/internal/dates"
	"github.com/fulmenhq/tipguard/internal/enums"
	"github.com/fulmenhq/tipguard/internal/frontmatter"
	"github.com/fulmenhq/tipguard/pkg/logger"
)

// Mode selects the field schema.
type Mode int

const (
	// Draft is the pre-merge gate: editorial fields only.
	Draft Mode = iota
	// Published is the post-merge audit of the full corpus.
	Published
)

func (m Mode) String() string {
	switch m {
	case Draft:
		return "draft"
	case Published:
		return "published"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

const (
	formatCalendarDate = "calendar-date"
	formatAbsoluteURL  = "absolute-url"
)

var filenamePattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*\.(md|mdx)$`)

func init() {
	gojsonschema.FormatCheckers.Add(formatCalendarDate, calendarDateChecker{})
	gojsonschema.FormatCheckers.Add(formatAbsoluteURL, absoluteURLChecker{})
}

type calendarDateChecker struct{}

func (calendarDateChecker) IsFormat(input interface{}) bool {
	s, ok := input.(string)
	if !ok {
		return true
	}
	return dates.IsCalendarDate(s)
}

type absoluteURLChecker struct{}

func (absoluteURLChecker) IsFormat(input interface{}) bool {
	s, ok := input.(string)
	if !ok {
		return true
	}
	return isAbsoluteURL(s)
}

func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// Violation is one failed rule.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result is the outcome of validating one document. Validation never
// modifies the document.
type Result struct {
	DocumentID string      `json:"document"`
	Mode       string      `json:"mode"`
	Valid      bool        `json:"valid"`
	Violations []Violation `json:"violations,omitempty"`

	filenameErr *InvalidFilenameError
	mode        Mode
}

// Err returns the result as an error: *InvalidFilenameError,
// *ViolationError, or nil when valid.
func (r *Result) Err() error {
	if r.filenameErr != nil {
		return r.filenameErr
	}
	if r.Valid {
		return nil
	}
	return &ViolationError{DocumentID: r.DocumentID, Mode: r.mode, Violations: r.Violations}
}

type compiledSchema struct {
	schema *gojsonschema.Schema
	order  map[string]int
}

// Validator checks metadata against compiled draft and published schemas.
// It is safe for concurrent use.
type Validator struct {
	category   *enums.Enum
	difficulty *enums.Enum
	schemas    map[Mode]*compiledSchema
}

// NewValidator compiles both schemas with the given enums injected.
func NewValidator(category, difficulty *enums.Enum) (*Validator, error) {
	if category == nil || difficulty == nil {
		return nil, fmt.Errorf("category and difficulty enums are required")
	}
	v := &Validator{
		category:   category,
		difficulty: difficulty,
		schemas:    make(map[Mode]*compiledSchema, 2),
	}
	for mode, name := range map[Mode]string{Draft: assets.TipDraftV1, Published: assets.TipPublishedV1} {
		cs, err := v.compile(name)
		if err != nil {
			return nil, err
		}
		v.schemas[mode] = cs
	}
	return v, nil
}

// NewValidatorFromRegistry loads the enums from reg and compiles the schemas.
// Enum errors are returned unwrapped as *enums.ConfigLoadError.
func NewValidatorFromRegistry(reg *enums.Registry) (*Validator, error) {
	category, err := reg.Load(enums.Category)
	if err != nil {
		return nil, err
	}
	difficulty, err := reg.Load(enums.Difficulty)
	if err != nil {
		return nil, err
	}
	return NewValidator(category, difficulty)
}

func (v *Validator) compile(name string) (*compiledSchema, error) {
	raw, ok := assets.LookupSchema(name)
	if !ok {
		return nil, fmt.Errorf("schema %s not found in assets", name)
	}

	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return nil, fmt.Errorf("failed to parse schema %s: %w", name, err)
	}
	order := propertyOrder(&node)

	var doc map[string]interface{}
	if err := node.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode schema %s: %w", name, err)
	}
	props, ok := doc["properties"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("schema %s has no properties", name)
	}
	for field, e := range map[string]*enums.Enum{"category": v.category, "difficulty": v.difficulty} {
		prop, ok := props[field].(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("schema %s has no %s property", name, field)
		}
		prop["enum"] = e.IDs()
	}

	// gojsonschema only takes JSON
	jsonBytes, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to convert schema %s: %w", name, err)
	}
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(jsonBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema %s: %w", name, err)
	}
	logger.Debug("Compiled schema", logger.String("schema", name), logger.Int("fields", len(order)))
	return &compiledSchema{schema: compiled, order: order}, nil
}

// propertyOrder returns the position of each top-level property as written
// in the template.
func propertyOrder(doc *yaml.Node) map[string]int {
	order := make(map[string]int)
	root := doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value != "properties" {
			continue
		}
		props := root.Content[i+1]
		for j := 0; j+1 < len(props.Content); j += 2 {
			order[props.Content[j].Value] = len(order)
		}
	}
	return order
}

// ValidateDraft applies the filename rule and the draft schema.
func (v *Validator) ValidateDraft(documentID string, m *frontmatter.Metadata) *Result {
	return v.Validate(Draft, documentID, m)
}

// ValidatePublished applies the filename rule and the published schema.
func (v *Validator) ValidatePublished(documentID string, m *frontmatter.Metadata) *Result {
	return v.Validate(Published, documentID, m)
}

// Validate checks the filename, then the schema for mode, then the
// cross-field rules. A bad filename short-circuits everything else.
func (v *Validator) Validate(mode Mode, documentID string, m *frontmatter.Metadata) *Result {
	res := &Result{DocumentID: documentID, Mode: mode.String(), mode: mode}

	if err := checkFilename(documentID); err != nil {
		res.filenameErr = err
		res.Violations = []Violation{{Field: "filename", Message: err.Error()}}
		return res
	}

	cs, ok := v.schemas[mode]
	if !ok {
		res.Violations = []Violation{{Field: "(root)", Message: fmt.Sprintf("unknown schema mode %s", mode)}}
		return res
	}
	if m == nil {
		m = frontmatter.NewMetadata()
	}

	result, err := cs.schema.Validate(gojsonschema.NewGoLoader(presentFields(m)))
	if err != nil {
		res.Violations = []Violation{{Field: "(root)", Message: fmt.Sprintf("validation error: %v", err)}}
		return res
	}
	for _, verr := range result.Errors() {
		res.Violations = append(res.Violations, v.describe(verr))
	}
	res.Violations = append(res.Violations, crossFieldViolations(m)...)

	sortViolations(res.Violations, cs.order)
	res.Valid = len(res.Violations) == 0
	return res
}

// CheckFilename enforces the lowercase-hyphen naming of the final path
// segment.
func CheckFilename(documentID string) error {
	if err := checkFilename(documentID); err != nil {
		return err
	}
	return nil
}

func checkFilename(documentID string) *InvalidFilenameError {
	name := path.Base(filepath.ToSlash(documentID))
	err := validation.Validate(name,
		validation.Required,
		validation.Match(filenamePattern),
	)
	if err != nil {
		return &InvalidFilenameError{DocumentID: documentID, Filename: name}
	}
	return nil
}

// presentFields drops null and empty-string values so they count as absent.
func presentFields(m *frontmatter.Metadata) map[string]interface{} {
	fields := m.Fields()
	for k, val := range fields {
		switch x := val.(type) {
		case nil:
			delete(fields, k)
		case string:
			if x == "" {
				delete(fields, k)
			}
		}
	}
	return fields
}

func (v *Validator) describe(verr gojsonschema.ResultError) Violation {
	field := verr.Field()
	details := verr.Details()

	switch verr.Type() {
	case "required":
		if p, ok := details["property"].(string); ok {
			field = p
		}
		return Violation{Field: field, Message: field + " is required"}
	case "enum":
		if field == "mediaType" {
			return Violation{Field: field, Message: `mediaType must be either "image" or "video"`}
		}
		return Violation{Field: field, Message: fmt.Sprintf("%s must be one of: %s", field, v.allowed(field, details))}
	case "format":
		switch details["format"] {
		case formatCalendarDate:
			return Violation{Field: field, Message: field + " must be a valid date in format YYYY-MM-DD"}
		case formatAbsoluteURL:
			return Violation{Field: field, Message: field + " must be a valid URL"}
		}
	case "invalid_type":
		return Violation{Field: field, Message: fmt.Sprintf("%s must be of type %v", field, details["expected"])}
	case "string_gte":
		return Violation{Field: field, Message: field + " must not be empty"}
	case "array_min_items":
		return Violation{Field: field, Message: fmt.Sprintf("%s must contain at least %v item(s)", field, details["min"])}
	case "array_max_items":
		return Violation{Field: field, Message: fmt.Sprintf("%s must contain at most %v item(s)", field, details["max"])}
	}
	return Violation{Field: field, Message: fmt.Sprintf("%s: %s", field, verr.Description())}
}

func (v *Validator) allowed(field string, details gojsonschema.ErrorDetails) string {
	switch field {
	case "category":
		return v.category.String()
	case "difficulty":
		return v.difficulty.String()
	}
	return fmt.Sprint(details["allowed"])
}

// crossFields holds the fields whose rules span more than one key.
type crossFields struct {
	Author      string `json:"author"`
	AuthorURL   string `json:"authorUrl"`
	PublishedAt string `json:"publishedAt"`
	UpdatedAt   string `json:"updatedAt"`
}

func (c crossFields) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.AuthorURL,
			validation.When(c.Author == "", validation.Empty.Error("authorUrl requires author")),
		),
		validation.Field(&c.UpdatedAt, validation.By(func(value interface{}) error {
			before, ok := dates.Before(c.UpdatedAt, c.PublishedAt)
			if ok && before {
				return validation.NewError("tipguard.updated_before_published", "updatedAt must not be earlier than publishedAt")
			}
			return nil
		})),
	)
}

func crossFieldViolations(m *frontmatter.Metadata) []Violation {
	c := crossFields{}
	c.Author, _ = m.Lookup("author")
	c.AuthorURL, _ = m.Lookup("authorUrl")
	c.PublishedAt, _ = m.Lookup("publishedAt")
	c.UpdatedAt, _ = m.Lookup("updatedAt")

	err := c.Validate()
	if err == nil {
		return nil
	}
	errs, ok := err.(validation.Errors)
	if !ok {
		return []Violation{{Field: "(root)", Message: err.Error()}}
	}
	out := make([]Violation, 0, len(errs))
	for field, ferr := range errs {
		out = append(out, Violation{Field: field, Message: ferr.Error()})
	}
	return out
}

// sortViolations orders by field schema order, then by field path
// and message so output is stable across runs.
func sortViolations(vs []Violation, order map[string]int) {
	rank := func(field string) int {
		root := strings.SplitN(field, ".", 2)[0]
		if i, ok := order[root]; ok {
			return i
		}
		return len(order)
	}
	sort.SliceStable(vs, func(i, j int) bool {
		ri, rj := rank(vs[i].Field), rank(vs[j].Field)
		if ri != rj {
			return ri < rj
		}
		if vs[i].Field != vs[j].Field {
			return vs[i].Field < vs[j].Field
		}
		return vs[i].Message < vs[j].Message
	})
}
