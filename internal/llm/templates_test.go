package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTemplates_SplitPrompts(t *testing.T) {
	tmpls := DefaultTemplates()

	system, err := tmpls.Render(TemplateSplitSystem, nil)
	require.NoError(t, err)
	assert.Contains(t, system, "separate rather than group")
	assert.Contains(t, system, "three or more container signals")
	assert.Contains(t, system, "totalInvoices")

	user, err := tmpls.Render(TemplateSplitUser, map[string]any{
		"page_count": 2,
		"pages":      "--- Page 1 ---\nhello",
	})
	require.NoError(t, err)
	assert.Contains(t, user, "The document has 2 pages.")
	assert.Contains(t, user, "--- Page 1 ---\nhello")
}

func TestTemplates_Errors(t *testing.T) {
	tmpls := DefaultTemplates()

	_, err := tmpls.Render("nope", nil)
	assert.ErrorIs(t, err, ErrUnknownTemplate)

	_, err = tmpls.Render(TemplateSplitUser, map[string]any{"page_count": 1})
	assert.Error(t, err, "missing variables must fail")
}

func TestLoadTemplates_Invalid(t *testing.T) {
	_, err := LoadTemplates([]byte("templates: [not, a, map]"))
	assert.Error(t, err)

	_, err = LoadTemplates([]byte("templates:\n  broken: \"{{ .x \"\n"))
	assert.Error(t, err)
}
