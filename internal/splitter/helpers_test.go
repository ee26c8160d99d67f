package splitter

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"doc-splitter/internal/llm"
	"doc-splitter/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n0000")

type visionCall struct {
	prompt string
	images [][]byte
	system string
}

// fakeClient is a scripted llm.Client. Replies are consumed in order; when a
// reply list runs out the last entry is repeated.
type fakeClient struct {
	mu sync.Mutex

	chatReplies   []string
	chatErr       error
	visionReplies []string
	visionErr     error
	panicOnCall   bool

	chatCalls   [][]llm.Message
	visionCalls []visionCall
	templates   *llm.Templates
}

func (f *fakeClient) Chat(_ context.Context, messages []llm.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicOnCall {
		panic("boom in chat")
	}
	f.chatCalls = append(f.chatCalls, messages)
	if f.chatErr != nil {
		return "", f.chatErr
	}
	return pick(f.chatReplies, len(f.chatCalls)-1), nil
}

func (f *fakeClient) ChatWithVision(_ context.Context, prompt string, images [][]byte, system string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicOnCall {
		panic("boom in vision")
	}
	f.visionCalls = append(f.visionCalls, visionCall{prompt: prompt, images: images, system: system})
	if f.visionErr != nil {
		return "", f.visionErr
	}
	return pick(f.visionReplies, len(f.visionCalls)-1), nil
}

func (f *fakeClient) PromptTemplate(name string, vars map[string]any) (string, error) {
	if f.templates == nil {
		f.templates = llm.DefaultTemplates()
	}
	return f.templates.Render(name, vars)
}

func pick(replies []string, i int) string {
	if len(replies) == 0 {
		return ""
	}
	if i >= len(replies) {
		return replies[len(replies)-1]
	}
	return replies[i]
}

func verdict(same bool, confidence float64) string {
	return fmt.Sprintf(`{"sameDocument": %t, "confidence": %v, "reasoning": "test"}`, same, confidence)
}

func textPages(texts ...string) []models.Page {
	pages := make([]models.Page, len(texts))
	for i, t := range texts {
		pages[i] = models.Page{PageNumber: i + 1, Content: t}
	}
	return pages
}

func imagePages(n int) []models.Page {
	pages := make([]models.Page, n)
	for i := range pages {
		pages[i] = models.Page{PageNumber: i + 1, Content: fmt.Sprintf("page %d", i+1), Image: pngBytes}
	}
	return pages
}

func groupPages(r models.PageAnalysisResult) [][]int {
	out := make([][]int, len(r.PageGroups))
	for i, g := range r.PageGroups {
		out[i] = g.Pages
	}
	return out
}

// requireValidPartition checks the structural invariants every result must satisfy.
func requireValidPartition(t *testing.T, pages []models.Page, r models.PageAnalysisResult) {
	t.Helper()

	require.Equal(t, len(r.PageGroups), r.TotalInvoices, "totalInvoices must equal number of groups")
	if len(pages) == 0 {
		require.Empty(t, r.PageGroups)
		return
	}
	require.NotEmpty(t, r.PageGroups)

	want := make([]int, len(pages))
	for i, p := range pages {
		want[i] = p.PageNumber
	}

	var got []int
	prevFirst := 0
	for i, g := range r.PageGroups {
		assert.Equal(t, i+1, g.InvoiceNumber)
		require.NotEmpty(t, g.Pages)
		assert.Greater(t, g.Pages[0], prevFirst, "groups sorted by first page")
		prevFirst = g.Pages[0]
		assert.GreaterOrEqual(t, g.Confidence, 0.0)
		assert.LessOrEqual(t, g.Confidence, 1.0)
		assert.GreaterOrEqual(t, g.ExpensifyConfidence, 0.0)
		assert.LessOrEqual(t, g.ExpensifyConfidence, 1.0)
		got = append(got, g.Pages...)
	}
	assert.Equal(t, want, got, "groups must cover every page once, in order")
}
