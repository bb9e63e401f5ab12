package config

import (
	"encoding/json"
	"fmt"
	"io"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/format"
	"gopkg.in/yaml.v3"

	"github.com/workcatalog/workcatalog/pkg/stores"
)

// catalogDocument is the top-level layout of a catalog file.
type catalogDocument struct {
	WorkTypes []stores.WorkType `json:"workTypes" yaml:"workTypes"`
}

// WriteCatalog writes rows as a catalog file that CatalogParser accepts.
func WriteCatalog(w io.Writer, f Format, rows []stores.WorkType) error {
	if rows == nil {
		rows = []stores.WorkType{}
	}
	doc := catalogDocument{WorkTypes: rows}

	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode catalog JSON: %w", err)
		}
		return nil

	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode catalog YAML: %w", err)
		}
		return enc.Close()

	case FormatCUE:
		val := cuecontext.New().Encode(doc)
		if err := val.Err(); err != nil {
			return fmt.Errorf("failed to encode catalog CUE: %w", err)
		}
		out, err := format.Node(val.Syntax())
		if err != nil {
			return fmt.Errorf("failed to format catalog CUE: %w", err)
		}
		if _, err := w.Write(append(out, '\n')); err != nil {
			return fmt.Errorf("failed to write catalog: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("unsupported catalog format %q", f)
	}
}
