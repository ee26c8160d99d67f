package splitter

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"doc-splitter/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestSplitter(fc *fakeClient) *Splitter {
	return New(fc, DefaultConfig(), zap.NewNop())
}

func TestAnalyzePages_Empty(t *testing.T) {
	fc := &fakeClient{}

	out := newTestSplitter(fc).Analyze(context.Background(), nil)

	assert.Equal(t, models.StrategyEmpty, out.Strategy)
	assert.False(t, out.Fallback)
	assert.Equal(t, 0, out.Result.TotalInvoices)
	assert.NotNil(t, out.Result.PageGroups)
	assert.Empty(t, out.Result.PageGroups)
	assert.Empty(t, fc.chatCalls)
	assert.Empty(t, fc.visionCalls)
}

func TestAnalyzePages_SinglePageSkipsModel(t *testing.T) {
	fc := &fakeClient{panicOnCall: true}
	pages := []models.Page{{PageNumber: 7, Content: "Uber receipt", Image: pngBytes}}

	got := newTestSplitter(fc).AnalyzePages(context.Background(), pages)

	requireValidPartition(t, pages, got)
	require.Len(t, got.PageGroups, 1)
	assert.Equal(t, []int{7}, got.PageGroups[0].Pages)
	assert.Equal(t, 1.0, got.PageGroups[0].Confidence)
	assert.Equal(t, "Single page document", got.PageGroups[0].Reasoning)
}

func TestAnalyzePages_VisionPath(t *testing.T) {
	fc := &fakeClient{visionReplies: []string{verdict(true, 0.9), verdict(false, 0.8)}}
	pages := imagePages(3)

	out := newTestSplitter(fc).Analyze(context.Background(), pages)

	assert.Equal(t, models.StrategyVision, out.Strategy)
	assert.False(t, out.Fallback)
	requireValidPartition(t, pages, out.Result)
	assert.Equal(t, 2, out.Result.TotalInvoices)
	assert.Equal(t, [][]int{{1, 2}, {3}}, groupPages(out.Result))
	assert.Len(t, fc.visionCalls, 2)
	assert.Empty(t, fc.chatCalls)
}

func TestAnalyzePages_VisionComparisonFailuresMerge(t *testing.T) {
	fc := &fakeClient{visionErr: errors.New("upstream 503")}
	pages := imagePages(4)

	out := newTestSplitter(fc).Analyze(context.Background(), pages)

	// failed comparisons are low-confidence merges, not a pipeline failure
	assert.False(t, out.Fallback)
	assert.Equal(t, [][]int{{1, 2, 3, 4}}, groupPages(out.Result))
	assert.Equal(t, "First document in PDF", out.Result.PageGroups[0].Reasoning)
	assert.Len(t, fc.visionCalls, 3)
}

func TestAnalyzePages_MixedPagesUseVision(t *testing.T) {
	fc := &fakeClient{
		visionReplies: []string{verdict(false, 0.9)},
		chatReplies:   []string{verdict(false, 0.9)},
	}
	pages := []models.Page{
		{PageNumber: 1, Content: "a", Image: pngBytes},
		{PageNumber: 2, Content: "b", Image: pngBytes},
		{PageNumber: 3, Content: "c"},
	}

	out := newTestSplitter(fc).Analyze(context.Background(), pages)

	assert.Equal(t, models.StrategyVision, out.Strategy)
	assert.Equal(t, [][]int{{1}, {2}, {3}}, groupPages(out.Result))
	assert.Len(t, fc.visionCalls, 1)
	assert.Len(t, fc.chatCalls, 1, "pair without both images is compared on text")
}

func TestAnalyzePages_TextPath(t *testing.T) {
	fc := &fakeClient{chatReplies: []string{`{
		"totalInvoices": 2,
		"pageGroups": [
			{"invoiceNumber": 1, "pages": [2, 3], "confidence": 0.9, "reasoning": "Delta e-ticket"},
			{"invoiceNumber": 2, "pages": [4], "confidence": 0.85, "reasoning": "Taxi"}
		]
	}`}}
	pages := textPages(
		"Expensify Expense Report R00AbC123XyZ Created: 2024-01-02 10:00 UTC",
		"Delta Air Lines e-ticket",
		"Delta Air Lines fare details",
		"Yellow Cab receipt",
	)

	out := newTestSplitter(fc).Analyze(context.Background(), pages)

	assert.Equal(t, models.StrategyText, out.Strategy)
	assert.False(t, out.Fallback)
	requireValidPartition(t, pages, out.Result)
	assert.Equal(t, [][]int{{1}, {2, 3}, {4}}, groupPages(out.Result))
	assert.True(t, out.Result.PageGroups[0].IsExpensifyExport)
	assert.Equal(t, "Delta e-ticket", out.Result.PageGroups[1].Reasoning)
	assert.Len(t, fc.chatCalls, 1)
}

func TestAnalyzePages_FallbackOnFailure(t *testing.T) {
	tests := []struct {
		name    string
		fc      *fakeClient
		pages   []models.Page
		wantErr error
		wantMsg string
	}{
		{
			name:    "text model error",
			fc:      &fakeClient{chatErr: errors.New("gateway unreachable")},
			pages:   textPages("a", "b", "c"),
			wantErr: ErrModelInvocation,
			wantMsg: "gateway unreachable",
		},
		{
			name:    "text malformed reply",
			fc:      &fakeClient{chatReplies: []string{"There are two invoices."}},
			pages:   textPages("a", "b"),
			wantErr: ErrMalformedResponse,
		},
		{
			name:    "text invalid partition",
			fc:      &fakeClient{chatReplies: []string{`{"totalInvoices": 1, "pageGroups": [{"pages": [1, 5]}]}`}},
			pages:   textPages("a", "b"),
			wantErr: ErrValidation,
			wantMsg: "unknown page 5",
		},
		{
			name:    "panic",
			fc:      &fakeClient{panicOnCall: true},
			pages:   imagePages(2),
			wantMsg: "boom in vision",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := newTestSplitter(tt.fc).Analyze(context.Background(), tt.pages)

			assert.True(t, out.Fallback)
			require.Error(t, out.Err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, out.Err, tt.wantErr)
			}
			requireValidPartition(t, tt.pages, out.Result)
			require.Len(t, out.Result.PageGroups, 1)
			g := out.Result.PageGroups[0]
			assert.Equal(t, 0.3, g.Confidence)
			assert.Contains(t, g.Reasoning, "Analysis failed")
			if tt.wantMsg != "" {
				assert.Contains(t, g.Reasoning, tt.wantMsg)
			}
		})
	}
}

func TestAnalyzePages_CancelledContextFallsBack(t *testing.T) {
	fc := &fakeClient{visionReplies: []string{verdict(false, 0.9)}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pages := imagePages(3)

	out := newTestSplitter(fc).Analyze(ctx, pages)

	assert.True(t, out.Fallback)
	assert.ErrorIs(t, out.Err, context.Canceled)
	assert.Empty(t, fc.visionCalls)
	requireValidPartition(t, pages, out.Result)
}

func TestAnalyzePages_SortsInput(t *testing.T) {
	fc := &fakeClient{visionReplies: []string{verdict(false, 0.9), verdict(true, 0.9)}}
	pages := imagePages(3)
	shuffled := []models.Page{pages[2], pages[0], pages[1]}

	got := newTestSplitter(fc).AnalyzePages(context.Background(), shuffled)

	assert.Equal(t, [][]int{{1}, {2, 3}}, groupPages(got))
	require.Len(t, fc.visionCalls, 2)
	assert.Contains(t, fc.visionCalls[0].prompt, "page 1")
	assert.Contains(t, fc.visionCalls[0].prompt, "page 2")
	assert.Equal(t, 3, shuffled[0].PageNumber, "caller slice untouched")
}

func TestAnalyzePages_PartitionInvariantHolds(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for iter := 0; iter < 200; iter++ {
		n := 2 + rng.Intn(12)
		pages := imagePages(n)

		replies := make([]string, n-1)
		want := [][]int{{1}}
		for i := range replies {
			conf := rng.Float64()
			split := rng.Intn(2) == 0
			replies[i] = verdict(!split, conf)
			if split && conf >= 0.6 {
				want = append(want, []int{i + 2})
			} else {
				last := len(want) - 1
				want[last] = append(want[last], i+2)
			}
		}

		fc := &fakeClient{visionReplies: replies}
		got := newTestSplitter(fc).AnalyzePages(context.Background(), pages)

		requireValidPartition(t, pages, got)
		require.Equal(t, want, groupPages(got), "iteration %d", iter)
	}
}
