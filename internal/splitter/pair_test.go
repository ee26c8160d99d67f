package splitter

import (
	"context"
	"errors"
	"strings"
	"testing"

	"doc-splitter/internal/llm"
	"doc-splitter/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestPairClassifier(fc *fakeClient) *PairClassifier {
	return NewPairClassifier(fc, DefaultConfig(), zap.NewNop())
}

func TestPairClassifier_VisionWhenBothPagesHaveImages(t *testing.T) {
	fc := &fakeClient{visionReplies: []string{verdict(false, 0.85)}}
	pages := imagePages(2)

	d := newTestPairClassifier(fc).Compare(context.Background(), pages[0], pages[1])

	assert.False(t, d.SameDocument)
	assert.Equal(t, 0.85, d.Confidence)
	assert.Equal(t, "test", d.Reasoning)

	require.Len(t, fc.visionCalls, 1)
	assert.Empty(t, fc.chatCalls)
	call := fc.visionCalls[0]
	assert.Len(t, call.images, 2)
	assert.NotEmpty(t, call.system)
	assert.Contains(t, call.prompt, "Page 1 text:\npage 1")
	assert.Contains(t, call.prompt, "Page 2 text:\npage 2")
	assert.Contains(t, call.prompt, "sameDocument")
}

func TestPairClassifier_TextWhenAnImageIsMissing(t *testing.T) {
	fc := &fakeClient{chatReplies: []string{verdict(true, 0.7)}}
	a := models.Page{PageNumber: 4, Content: "Hotel invoice", Image: pngBytes}
	b := models.Page{PageNumber: 5, Content: "continued"}

	d := newTestPairClassifier(fc).Compare(context.Background(), a, b)

	assert.True(t, d.SameDocument)
	assert.Equal(t, 0.7, d.Confidence)
	assert.Empty(t, fc.visionCalls)
	require.Len(t, fc.chatCalls, 1)

	msgs := fc.chatCalls[0]
	require.Len(t, msgs, 2)
	assert.Equal(t, llm.RoleSystem, msgs[0].Role)
	assert.Equal(t, llm.RoleUser, msgs[1].Role)
	assert.Contains(t, msgs[1].Content, "Page 4 text:\nHotel invoice")
	assert.NotContains(t, msgs[1].Content, "first image")
}

func TestPairClassifier_ResponseDefaults(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		wantSame bool
		wantConf float64
		wantWhy  string
	}{
		{name: "empty object", reply: `{}`, wantSame: true, wantConf: 0.5, wantWhy: ""},
		{name: "only verdict", reply: `{"sameDocument": false}`, wantSame: false, wantConf: 0.5},
		{name: "fenced reply", reply: "```json\n{\"sameDocument\": false, \"confidence\": 0.9, \"reasoning\": \"new merchant\"}\n```", wantSame: false, wantConf: 0.9, wantWhy: "new merchant"},
		{name: "confidence clamped high", reply: `{"sameDocument": false, "confidence": 7}`, wantSame: false, wantConf: 1},
		{name: "confidence clamped low", reply: `{"sameDocument": false, "confidence": -1}`, wantSame: false, wantConf: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeClient{chatReplies: []string{tt.reply}}
			pages := textPages("a", "b")

			d := newTestPairClassifier(fc).Compare(context.Background(), pages[0], pages[1])

			assert.Equal(t, tt.wantSame, d.SameDocument)
			assert.Equal(t, tt.wantConf, d.Confidence)
			assert.Equal(t, tt.wantWhy, d.Reasoning)
		})
	}
}

func TestPairClassifier_FailuresMergeConservatively(t *testing.T) {
	tests := []struct {
		name string
		fc   *fakeClient
	}{
		{name: "vision call error", fc: &fakeClient{visionErr: errors.New("quota exceeded")}},
		{name: "malformed reply", fc: &fakeClient{visionReplies: []string{"I think they differ."}}},
		{name: "wrong json shape", fc: &fakeClient{visionReplies: []string{`["different"]`}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pages := imagePages(2)

			d := newTestPairClassifier(tt.fc).Compare(context.Background(), pages[0], pages[1])

			assert.Equal(t, models.BoundaryDecision{SameDocument: true, Confidence: 0.3, Reasoning: "Comparison failed"}, d)
		})
	}
}

func TestPairClassifier_TruncatesExcerpts(t *testing.T) {
	fc := &fakeClient{chatReplies: []string{verdict(true, 0.9)}}
	cfg := DefaultConfig()
	cfg.PairExcerptChars = 10
	c := NewPairClassifier(fc, cfg, zap.NewNop())

	long := "0123456789" + strings.Repeat("x", 50)
	pages := textPages(long, "")

	c.Compare(context.Background(), pages[0], pages[1])

	prompt := fc.chatCalls[0][1].Content
	assert.Contains(t, prompt, "Page 1 text:\n0123456789\n")
	assert.NotContains(t, prompt, "0123456789x")
	assert.Contains(t, prompt, "Page 2 text:\n(no text extracted)")
}
