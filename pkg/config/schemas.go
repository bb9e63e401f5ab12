package config

import (
	"fmt"
	"sort"
	"sync"

	"cuelang.org/go/cue"
)

// Names of the built-in schemas.
const (
	SchemaCatalog  = "catalog"
	SchemaWorkType = "workType"
)

// SchemaRegistry manages CUE schemas for validation.
type SchemaRegistry struct {
	ctx     *cue.Context
	schemas map[string]cue.Value
	mu      sync.RWMutex
}

// NewSchemaRegistry creates a new schema registry with built-in schemas.
func NewSchemaRegistry(ctx *cue.Context) (*SchemaRegistry, error) {
	sr := &SchemaRegistry{
		ctx:     ctx,
		schemas: make(map[string]cue.Value),
	}

	if err := sr.RegisterSchema(SchemaCatalog, builtinCatalogSchema, "#Catalog"); err != nil {
		return nil, err
	}
	if err := sr.RegisterSchema(SchemaWorkType, builtinCatalogSchema, "#WorkType"); err != nil {
		return nil, err
	}

	return sr, nil
}

// RegisterSchema compiles source and registers the definition it declares
// under name.
func (sr *SchemaRegistry) RegisterSchema(name, source, definition string) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	val := sr.ctx.CompileString(source, cue.Filename(name+".cue"))
	if err := val.Err(); err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", name, err)
	}

	def := val.LookupPath(cue.ParsePath(definition))
	if !def.Exists() {
		return fmt.Errorf("schema %s does not declare %s", name, definition)
	}

	sr.schemas[name] = def
	return nil
}

// GetSchema retrieves a schema by name.
func (sr *SchemaRegistry) GetSchema(name string) (cue.Value, bool) {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	val, ok := sr.schemas[name]
	return val, ok
}

// Unify applies the named schema to val. Errors surface on the result.
func (sr *SchemaRegistry) Unify(name string, val cue.Value) (cue.Value, error) {
	schema, ok := sr.GetSchema(name)
	if !ok {
		return cue.Value{}, fmt.Errorf("schema %s not found", name)
	}
	return schema.Unify(val), nil
}

// ValidateAgainstSchema validates data against a named schema.
func (sr *SchemaRegistry) ValidateAgainstSchema(schemaName string, data interface{}) error {
	dataVal := sr.ctx.Encode(data)
	if err := dataVal.Err(); err != nil {
		return fmt.Errorf("failed to encode data: %w", err)
	}

	unified, err := sr.Unify(schemaName, dataVal)
	if err != nil {
		return err
	}
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	return nil
}

// ListSchemas returns all registered schema names.
func (sr *SchemaRegistry) ListSchemas() []string {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	names := make([]string, 0, len(sr.schemas))
	for name := range sr.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

const builtinCatalogSchema = `
// A single entry of the work type catalog.
#WorkType: {
	// name is the natural key of the entry
	name: string & !=""

	// basePay is the base pay amount
	basePay: number & >=0

	// bonusPercent is the bonus percentage applied on top of basePay
	bonusPercent: number & >=0
}

// A catalog file.
#Catalog: {
	workTypes: [...#WorkType]
}
`
