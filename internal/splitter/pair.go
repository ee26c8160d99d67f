package splitter

import (
	"context"
	"fmt"
	"strings"

	"doc-splitter/internal/llm"
	"doc-splitter/internal/metrics"
	"doc-splitter/internal/models"

	"go.uber.org/zap"
)

const (
	pairModeVision = "vision"
	pairModeText   = "text"

	failedComparisonReason = "Comparison failed"
)

const pairSystemPrompt = `You compare two adjacent pages of a scanned PDF and decide whether they belong to the same document (one receipt, invoice or statement) or whether the second page starts a new document. Respond with a single JSON object and nothing else.`

// PairClassifier decides whether two adjacent pages belong to the same document.
type PairClassifier struct {
	client       llm.Client
	excerptChars int
	failedConf   float64
	logger       *zap.Logger
}

func NewPairClassifier(client llm.Client, cfg Config, logger *zap.Logger) *PairClassifier {
	cfg = cfg.withDefaults()
	return &PairClassifier{
		client:       client,
		excerptChars: cfg.PairExcerptChars,
		failedConf:   cfg.FailedPairConfidence,
		logger:       logger,
	}
}

type pairVerdict struct {
	SameDocument *bool    `json:"sameDocument"`
	Confidence   *float64 `json:"confidence"`
	Reasoning    *string  `json:"reasoning"`
}

// Compare asks the model about pages a and b, which the caller guarantees are adjacent.
// It never fails: any error becomes a low-confidence "same document" verdict.
// The returned decision carries no indices; the caller sets them.
func (c *PairClassifier) Compare(ctx context.Context, a, b models.Page) models.BoundaryDecision {
	mode := pairModeText
	if a.HasImage() && b.HasImage() {
		mode = pairModeVision
	}

	decision, err := c.compare(ctx, mode, a, b)
	if err != nil {
		c.logger.Warn("Page comparison failed, assuming same document",
			zap.Int("page_a", a.PageNumber),
			zap.Int("page_b", b.PageNumber),
			zap.String("mode", mode),
			zap.Error(err),
		)
		metrics.PairDecisionsTotal.WithLabelValues(mode, "failed").Inc()
		return models.BoundaryDecision{
			SameDocument: true,
			Confidence:   c.failedConf,
			Reasoning:    failedComparisonReason,
		}
	}

	verdict := "same"
	if !decision.SameDocument {
		verdict = "different"
	}
	metrics.PairDecisionsTotal.WithLabelValues(mode, verdict).Inc()

	c.logger.Debug("Pages compared",
		zap.Int("page_a", a.PageNumber),
		zap.Int("page_b", b.PageNumber),
		zap.String("mode", mode),
		zap.Bool("same_document", decision.SameDocument),
		zap.Float64("confidence", decision.Confidence),
	)
	return decision
}

func (c *PairClassifier) compare(ctx context.Context, mode string, a, b models.Page) (models.BoundaryDecision, error) {
	prompt := c.buildPrompt(mode, a, b)

	var raw string
	var err error
	if mode == pairModeVision {
		raw, err = c.client.ChatWithVision(ctx, prompt, [][]byte{a.Image, b.Image}, pairSystemPrompt)
	} else {
		raw, err = c.client.Chat(ctx, []llm.Message{
			{Role: llm.RoleSystem, Content: pairSystemPrompt},
			{Role: llm.RoleUser, Content: prompt},
		})
	}
	if err != nil {
		return models.BoundaryDecision{}, invocationError(err)
	}

	var v pairVerdict
	if err := ParseJSONResponse(raw, &v); err != nil {
		return models.BoundaryDecision{}, err
	}

	d := models.BoundaryDecision{SameDocument: true, Confidence: 0.5}
	if v.SameDocument != nil {
		d.SameDocument = *v.SameDocument
	}
	if v.Confidence != nil {
		d.Confidence = clamp01(*v.Confidence)
	}
	if v.Reasoning != nil {
		d.Reasoning = *v.Reasoning
	}
	return d, nil
}

func (c *PairClassifier) buildPrompt(mode string, a, b models.Page) string {
	var sb strings.Builder

	sb.WriteString("Do these two adjacent pages belong to the same document, or does the second page start a different document?\n\n")
	if mode == pairModeVision {
		fmt.Fprintf(&sb, "The first image is page %d, the second image is page %d. Their extracted text follows.\n\n", a.PageNumber, b.PageNumber)
	}
	fmt.Fprintf(&sb, "Page %d text:\n%s\n\n", a.PageNumber, c.excerpt(a.Content))
	fmt.Fprintf(&sb, "Page %d text:\n%s\n\n", b.PageNumber, c.excerpt(b.Content))
	sb.WriteString("Look at merchant names, dates, totals, invoice or receipt numbers, layout and continuation cues such as \"continued\" or \"page 2 of 3\". ")
	sb.WriteString("A shared expense report ID or report header is not evidence that two receipts are the same document.\n\n")
	sb.WriteString(`Respond with JSON only: {"sameDocument": true or false, "confidence": number between 0 and 1, "reasoning": "one short sentence"}`)

	return sb.String()
}

func (c *PairClassifier) excerpt(text string) string {
	cut, _ := truncateRunes(strings.TrimSpace(text), c.excerptChars)
	if cut == "" {
		return "(no text extracted)"
	}
	return cut
}
