package prompts

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullVars() map[string]any {
	return map[string]any{
		"business_context":              "independent financial advisors stuck in commission models",
		"industry":                      "financial_services",
		"learning_context":              "- Jungian archetypes",
		"industry_patterns":             "none yet",
		"optimization_suggestions":      "",
		"psychological_analysis":        "PSYCH",
		"conversion_intelligence":       "CONV",
		"psychological_interviews":      "INTERVIEWS",
		"sales_intelligence_interviews": "SALES",
		"competitor_analysis":           "",
		"search_context":                "",
	}
}

func TestDefault_HasEveryStageTemplate(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	for _, name := range []string{
		PsychologicalAnalysis, ConversionIntelligence, CompetitorAnalysis,
		PsychologicalInterviews, SalesIntelligenceInterviews, Synthesis,
	} {
		assert.True(t, c.Has(name), name)
		out, err := c.Render(name, fullVars())
		require.NoError(t, err, name)
		assert.NotEmpty(t, out, name)
	}
	assert.Len(t, c.Names(), 6)
}

func TestRender_SubstitutesVars(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	out, err := c.Render(PsychologicalAnalysis, fullVars())
	require.NoError(t, err)
	assert.Contains(t, out, "independent financial advisors stuck in commission models")
	assert.Contains(t, out, "INDUSTRY: financial_services")
	assert.NotContains(t, out, "{{")
}

func TestRender_SynthesisCompetitorSectionIsOptional(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	vars := fullVars()
	out, err := c.Render(Synthesis, vars)
	require.NoError(t, err)
	assert.NotContains(t, out, "COMPETITIVE LANDSCAPE")

	vars["competitor_analysis"] = "Robo-advisors compete on price."
	out, err = c.Render(Synthesis, vars)
	require.NoError(t, err)
	assert.Contains(t, out, "COMPETITIVE LANDSCAPE:\nRobo-advisors compete on price.")
}

func TestRender_MissingKeyIsTemplateError(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	vars := fullVars()
	delete(vars, "psychological_analysis")
	_, err = c.Render(ConversionIntelligence, vars)

	var te *TemplateError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, ConversionIntelligence, te.Name)
	assert.Contains(t, err.Error(), "psychological_analysis")
}

func TestRender_UnknownTemplate(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	_, err = c.Render("horoscope", fullVars())
	var te *TemplateError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "horoscope", te.Name)
}

func TestCompetitorQueries(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	qs, err := c.CompetitorQueries(map[string]any{
		"industry_label": "financial services",
		"keywords":       "independent advisors commission",
		"year":           2026,
	})
	require.NoError(t, err)
	require.Len(t, qs, 4)
	assert.Equal(t, "leading financial services companies serving independent advisors commission", qs[0])
	assert.Equal(t, "financial services market trends 2026", qs[3])

	_, err = c.CompetitorQueries(map[string]any{"keywords": "x"})
	var te *TemplateError
	require.ErrorAs(t, err, &te)
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_OverrideMergesWithDefaults(t *testing.T) {
	path := writeFile(t, `
prompts:
  templates:
    synthesis: "Short synthesis for {{.business_context}}"
  competitor_queries:
    - "{{.keywords}} alternatives"
`)
	c, err := Load(path)
	require.NoError(t, err)

	out, err := c.Render(Synthesis, fullVars())
	require.NoError(t, err)
	assert.Equal(t, "Short synthesis for independent financial advisors stuck in commission models", out)

	// Untouched templates keep their defaults.
	out, err = c.Render(PsychologicalAnalysis, fullVars())
	require.NoError(t, err)
	assert.Contains(t, out, "PART A")

	qs, err := c.CompetitorQueries(map[string]any{"keywords": "spa"})
	require.NoError(t, err)
	assert.Equal(t, []string{"spa alternatives"}, qs)
}

func TestLoad_EmptyPathIsDefault(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.True(t, c.Has(Synthesis))
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prompts: read")

	_, err = Load(writeFile(t, "prompts: [unbalanced"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse override")

	_, err = Load(writeFile(t, "prompts:\n  templates:\n    synthesis: \"{{.broken\"\n"))
	var te *TemplateError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, Synthesis, te.Name)
}
