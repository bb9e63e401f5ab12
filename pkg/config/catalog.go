package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/workcatalog/workcatalog/pkg/stores"
)

// catalogEntry is a decoded catalog row with its validation rules.
// It must stay convertible to stores.WorkType.
type catalogEntry struct {
	Name         string  `json:"name" validate:"required,max=255,trimmed"`
	BasePay      float64 `json:"basePay" validate:"gte=0"`
	BonusPercent float64 `json:"bonusPercent" validate:"gte=0"`
}

// CatalogParser parses and validates work type catalog files.
type CatalogParser struct {
	ctx       *cue.Context
	schemas   *SchemaRegistry
	validator *validator.Validate
}

// NewCatalogParser creates a new catalog parser.
func NewCatalogParser() (*CatalogParser, error) {
	ctx := cuecontext.New()

	schemas, err := NewSchemaRegistry(ctx)
	if err != nil {
		return nil, err
	}

	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)
	if err := v.RegisterValidation("trimmed", validateTrimmed); err != nil {
		return nil, fmt.Errorf("failed to register validation: %w", err)
	}

	return &CatalogParser{
		ctx:       ctx,
		schemas:   schemas,
		validator: v,
	}, nil
}

// Schemas returns the schema registry.
func (cp *CatalogParser) Schemas() *SchemaRegistry {
	return cp.schemas
}

// Parse parses catalog files. A directory source contributes every file
// in it with a catalog extension, in name order.
//
// Problems in the catalog content are reported in Catalog.Errors; the
// returned error is reserved for sources that cannot be read at all.
func (cp *CatalogParser) Parse(ctx context.Context, sources []string) (*Catalog, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("no sources provided")
	}

	catalog := newCatalog()

	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		info, err := os.Stat(source)
		if err != nil {
			return nil, fmt.Errorf("failed to stat source %s: %w", source, err)
		}

		files := []string{source}
		if info.IsDir() {
			files, err = catalogFiles(source)
			if err != nil {
				return nil, err
			}
			if len(files) == 0 {
				catalog.Errors = append(catalog.Errors, ValidationError{
					File:     source,
					Message:  "no catalog files found",
					Severity: SeverityError,
				})
				continue
			}
		}

		for _, file := range files {
			format, err := DetectFormat(file)
			if err != nil {
				catalog.SourceFiles = append(catalog.SourceFiles, file)
				catalog.Errors = append(catalog.Errors, ValidationError{
					File:     file,
					Message:  err.Error(),
					Severity: SeverityError,
				})
				continue
			}

			data, err := os.ReadFile(file)
			if err != nil {
				return nil, fmt.Errorf("failed to read catalog file %s: %w", file, err)
			}

			cp.parseInto(catalog, file, format, data)
		}
	}

	return catalog, nil
}

// ParseBytes parses catalog content that did not come from a file.
// name is used in error positions.
func (cp *CatalogParser) ParseBytes(name string, format Format, data []byte) (*Catalog, error) {
	if _, err := ParseFormat(string(format)); err != nil {
		return nil, err
	}

	catalog := newCatalog()
	cp.parseInto(catalog, name, format, data)
	return catalog, nil
}

// ValidateWorkType checks a single work type against the catalog rules.
func (cp *CatalogParser) ValidateWorkType(wt stores.WorkType) error {
	if err := cp.schemas.ValidateAgainstSchema(SchemaWorkType, wt); err != nil {
		return err
	}

	if err := cp.validator.Struct(catalogEntry(wt)); err != nil {
		var errs []error
		for _, ve := range convertFieldErrors("", -1, err) {
			errs = append(errs, ve)
		}
		return fmt.Errorf("validation failed: %w", errors.Join(errs...))
	}

	return nil
}

func newCatalog() *Catalog {
	return &Catalog{
		WorkTypes: []stores.WorkType{},
		ParsedAt:  time.Now(),
	}
}

// parseInto compiles one file, applies the catalog schema and appends the
// valid rows to catalog.
func (cp *CatalogParser) parseInto(catalog *Catalog, file string, format Format, data []byte) {
	catalog.SourceFiles = append(catalog.SourceFiles, file)

	val, errs := cp.compile(file, format, data)
	if len(errs) > 0 {
		catalog.Errors = append(catalog.Errors, errs...)
		return
	}

	unified, err := cp.schemas.Unify(SchemaCatalog, val)
	if err != nil {
		catalog.Errors = append(catalog.Errors, ValidationError{File: file, Message: err.Error(), Severity: SeverityError})
		return
	}
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		catalog.Errors = append(catalog.Errors, convertCUEErrors(file, err)...)
		return
	}

	var entries []catalogEntry
	if err := unified.LookupPath(cue.ParsePath("workTypes")).Decode(&entries); err != nil {
		catalog.Errors = append(catalog.Errors, ValidationError{
			File:     file,
			Path:     "workTypes",
			Message:  fmt.Sprintf("failed to decode work types: %v", err),
			Severity: SeverityError,
		})
		return
	}

	seen := make(map[string]bool, len(catalog.WorkTypes))
	for _, wt := range catalog.WorkTypes {
		seen[wt.Name] = true
	}

	for i, entry := range entries {
		if err := cp.validator.Struct(entry); err != nil {
			catalog.Errors = append(catalog.Errors, convertFieldErrors(file, i, err)...)
			continue
		}

		if seen[entry.Name] {
			catalog.Errors = append(catalog.Errors, ValidationError{
				File:     file,
				Path:     fmt.Sprintf("workTypes[%d]", i),
				Message:  fmt.Sprintf("duplicate work type %q; the later entry wins", entry.Name),
				Severity: SeverityWarning,
			})
		}
		seen[entry.Name] = true

		catalog.WorkTypes = append(catalog.WorkTypes, stores.WorkType(entry))
	}
}

// compile turns file content into a CUE value.
func (cp *CatalogParser) compile(file string, format Format, data []byte) (cue.Value, []ValidationError) {
	var val cue.Value

	switch format {
	case FormatCUE:
		val = cp.ctx.CompileBytes(data, cue.Filename(file))

	case FormatJSON:
		expr, err := cuejson.Extract(file, data)
		if err != nil {
			return cue.Value{}, convertCUEErrors(file, err)
		}
		val = cp.ctx.BuildExpr(expr)

	case FormatYAML:
		var doc interface{}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return cue.Value{}, []ValidationError{{
				File:     file,
				Message:  fmt.Sprintf("failed to parse YAML: %v", err),
				Severity: SeverityError,
			}}
		}
		if doc == nil {
			doc = map[string]interface{}{}
		}
		val = cp.ctx.Encode(doc)

	default:
		return cue.Value{}, []ValidationError{{
			File:     file,
			Message:  fmt.Sprintf("unsupported catalog format %q", format),
			Severity: SeverityError,
		}}
	}

	if err := val.Err(); err != nil {
		return cue.Value{}, convertCUEErrors(file, err)
	}

	return val, nil
}

// catalogFiles lists the catalog files directly inside dir.
func catalogFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, err := DetectFormat(entry.Name()); err != nil {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}

	return files, nil
}

// convertCUEErrors converts CUE errors to ValidationError slice.
func convertCUEErrors(file string, err error) []ValidationError {
	var validationErrors []ValidationError

	for _, e := range cueerrors.Errors(err) {
		ve := ValidationError{
			File:     file,
			Path:     formatCUEPath(e.Path()),
			Severity: SeverityError,
		}

		format, args := e.Msg()
		ve.Message = fmt.Sprintf(format, args...)

		// Prefer a position inside the catalog file over one in the schema.
		for _, pos := range cueerrors.Positions(e) {
			if pos.Filename() == file {
				ve.Line = pos.Line()
				ve.Column = pos.Column()
				break
			}
		}

		validationErrors = append(validationErrors, ve)
	}

	return validationErrors
}

// formatCUEPath renders ["workTypes", "2", "name"] as workTypes[2].name.
func formatCUEPath(path []string) string {
	var b strings.Builder
	for _, elem := range path {
		if _, err := strconv.Atoi(elem); err == nil {
			fmt.Fprintf(&b, "[%s]", elem)
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(elem)
	}
	return b.String()
}

// convertFieldErrors converts validator errors for the row at index.
// A negative index omits the row prefix.
func convertFieldErrors(file string, index int, err error) []ValidationError {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []ValidationError{{File: file, Message: err.Error(), Severity: SeverityError}}
	}

	validationErrors := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		path := fe.Field()
		if index >= 0 {
			path = fmt.Sprintf("workTypes[%d].%s", index, fe.Field())
		}
		validationErrors = append(validationErrors, ValidationError{
			File:     file,
			Path:     path,
			Message:  fieldMessage(fe),
			Severity: SeverityError,
		})
	}
	return validationErrors
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "trimmed":
		return "must not start or end with whitespace"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}

func validateTrimmed(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return s == strings.TrimSpace(s)
}
