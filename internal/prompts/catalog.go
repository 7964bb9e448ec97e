// Package prompts holds the named prompt templates used by the research
// stages. Defaults are embedded in the binary; a YAML file can override
// any of them.
package prompts

import (
	_ "embed"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"text/template"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Template names used by the pipeline.
const (
	PsychologicalAnalysis       = "psychological_analysis"
	ConversionIntelligence      = "conversion_intelligence"
	CompetitorAnalysis          = "competitor_analysis"
	PsychologicalInterviews     = "psychological_interviews"
	SalesIntelligenceInterviews = "sales_intelligence_interviews"
	Synthesis                   = "synthesis"
)

// TemplateError is a structural defect: an unknown template name, a
// template that does not parse, or a variable the template needs but the
// caller did not supply.
type TemplateError struct {
	Name string
	Err  error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("prompts: template %q: %v", e.Name, e.Err)
}

func (e *TemplateError) Unwrap() error { return e.Err }

// file is the on-disk layout. The top-level "prompts" key keeps the file
// mergeable with other configuration.
type file struct {
	Prompts struct {
		Version           int               `yaml:"version"`
		Templates         map[string]string `yaml:"templates"`
		CompetitorQueries []string          `yaml:"competitor_queries"`
	} `yaml:"prompts"`
}

// Catalog is an immutable set of parsed templates, safe for concurrent use.
type Catalog struct {
	templates map[string]*template.Template
	queries   []*template.Template
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return parse(defaultCatalog, nil)
}

// Load returns the embedded catalog with templates from path layered on
// top. An empty path means defaults only.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "prompts: read %s", path)
	}
	return parse(defaultCatalog, data)
}

func parse(base, override []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(base, &f); err != nil {
		return nil, eris.Wrap(err, "prompts: parse embedded catalog")
	}
	if override != nil {
		var o file
		if err := yaml.Unmarshal(override, &o); err != nil {
			return nil, eris.Wrap(err, "prompts: parse override")
		}
		maps.Copy(f.Prompts.Templates, o.Prompts.Templates)
		if len(o.Prompts.CompetitorQueries) > 0 {
			f.Prompts.CompetitorQueries = o.Prompts.CompetitorQueries
		}
	}

	c := &Catalog{templates: make(map[string]*template.Template, len(f.Prompts.Templates))}
	for name, body := range f.Prompts.Templates {
		t, err := newTemplate(name, body)
		if err != nil {
			return nil, err
		}
		c.templates[name] = t
	}
	for i, body := range f.Prompts.CompetitorQueries {
		t, err := newTemplate(fmt.Sprintf("competitor_queries[%d]", i), body)
		if err != nil {
			return nil, err
		}
		c.queries = append(c.queries, t)
	}
	return c, nil
}

func newTemplate(name, body string) (*template.Template, error) {
	t, err := template.New(name).Option("missingkey=error").Parse(body)
	if err != nil {
		return nil, &TemplateError{Name: name, Err: err}
	}
	return t, nil
}

// Render executes the named template with vars.
func (c *Catalog) Render(name string, vars map[string]any) (string, error) {
	t, ok := c.templates[name]
	if !ok {
		return "", &TemplateError{Name: name, Err: eris.New("unknown template")}
	}
	return execute(t, vars)
}

// CompetitorQueries renders the canned web-search queries.
func (c *Catalog) CompetitorQueries(vars map[string]any) ([]string, error) {
	out := make([]string, 0, len(c.queries))
	for _, t := range c.queries {
		q, err := execute(t, vars)
		if err != nil {
			return nil, err
		}
		if q = strings.Join(strings.Fields(q), " "); q != "" {
			out = append(out, q)
		}
	}
	return out, nil
}

// Names lists the template names in sorted order.
func (c *Catalog) Names() []string {
	return slices.Sorted(maps.Keys(c.templates))
}

// Has reports whether the catalog defines name.
func (c *Catalog) Has(name string) bool {
	_, ok := c.templates[name]
	return ok
}

func execute(t *template.Template, vars map[string]any) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, vars); err != nil {
		return "", &TemplateError{Name: t.Name(), Err: err}
	}
	return b.String(), nil
}
