// Package schema loads and renders the semantic model describing the
// warehouse's queryable shape.
package schema

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"go-reporting-orchestrator/internal/model"
)

// Provider fetches the schema context for a run. A fetch failure is fatal:
// code synthesis cannot proceed without knowing the live shape.
type Provider interface {
	GetSchema(ctx context.Context) (model.SchemaContext, error)
}

// FileProvider reads the semantic model from a YAML file on disk.
type FileProvider struct {
	Path string
}

func (p *FileProvider) GetSchema(ctx context.Context) (model.SchemaContext, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return model.SchemaContext{}, fmt.Errorf("failed to read semantic model %s: %w", p.Path, err)
	}
	var sc model.SchemaContext
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return model.SchemaContext{}, fmt.Errorf("failed to parse semantic model %s: %w", p.Path, err)
	}
	if len(sc.Tables) == 0 {
		return model.SchemaContext{}, fmt.Errorf("semantic model %s has no tables", p.Path)
	}
	return sc, nil
}

// Render formats a schema context for inclusion in a synthesis prompt.
func Render(sc model.SchemaContext) string {
	var b strings.Builder
	for _, t := range sc.Tables {
		fmt.Fprintf(&b, "TABLE %s\n", t.Name)
		for _, c := range t.Columns {
			fmt.Fprintf(&b, "  - %s (%s)\n", c.Name, c.Type)
		}
	}
	return b.String()
}
