package splitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"doc-splitter/internal/llm"
	"doc-splitter/internal/models"

	"go.uber.org/zap"
)

const truncationMarker = "\n... [truncated]"

// RawGroup is one group as proposed by the model, before validation.
type RawGroup struct {
	InvoiceNumber int      `json:"invoiceNumber"`
	Pages         []int    `json:"pages"`
	Confidence    *float64 `json:"confidence,omitempty"`
	Reasoning     string   `json:"reasoning,omitempty"`
}

// RawPartition is the model's proposed grouping of all pages.
type RawPartition struct {
	TotalInvoices int
	PageGroups    []RawGroup
}

// BatchClassifier asks the model for a complete partition in a single call.
// It is used when no page carries an image.
type BatchClassifier struct {
	client    llm.Client
	pageChars int
	logger    *zap.Logger
}

func NewBatchClassifier(client llm.Client, cfg Config, logger *zap.Logger) *BatchClassifier {
	cfg = cfg.withDefaults()
	return &BatchClassifier{
		client:    client,
		pageChars: cfg.BatchPageChars,
		logger:    logger,
	}
}

// Classify returns the model's partition. Errors are not recovered here.
func (c *BatchClassifier) Classify(ctx context.Context, pages []models.Page) (RawPartition, error) {
	system, err := c.client.PromptTemplate(llm.TemplateSplitSystem, map[string]any{
		"page_count": len(pages),
	})
	if err != nil {
		return RawPartition{}, fmt.Errorf("failed to render system prompt: %w", err)
	}
	user, err := c.client.PromptTemplate(llm.TemplateSplitUser, map[string]any{
		"page_count": len(pages),
		"pages":      c.renderPages(pages),
	})
	if err != nil {
		return RawPartition{}, fmt.Errorf("failed to render user prompt: %w", err)
	}

	raw, err := c.client.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: user},
	})
	if err != nil {
		return RawPartition{}, invocationError(err)
	}

	partition, err := parsePartition(raw)
	if err != nil {
		return RawPartition{}, err
	}

	c.logger.Info("Text classification completed",
		zap.Int("pages", len(pages)),
		zap.Int("groups", len(partition.PageGroups)),
		zap.Int("total_invoices", partition.TotalInvoices),
	)
	return partition, nil
}

func (c *BatchClassifier) renderPages(pages []models.Page) string {
	var sb strings.Builder
	for i, p := range pages {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "--- Page %d ---\n", p.PageNumber)
		text, cut := truncateRunes(strings.TrimSpace(p.Content), c.pageChars)
		sb.WriteString(text)
		if cut {
			sb.WriteString(truncationMarker)
		}
	}
	return sb.String()
}

// parsePartition decodes the reply and checks that totalInvoices is truthy and
// pageGroups is an array.
func parsePartition(raw string) (RawPartition, error) {
	var envelope struct {
		TotalInvoices any             `json:"totalInvoices"`
		PageGroups    json.RawMessage `json:"pageGroups"`
	}
	if err := ParseJSONResponse(raw, &envelope); err != nil {
		return RawPartition{}, err
	}

	total, ok := truthyCount(envelope.TotalInvoices)
	if !ok {
		return RawPartition{}, fmt.Errorf("totalInvoices missing or zero (%v): %w", envelope.TotalInvoices, ErrValidation)
	}

	groupsJSON := bytes.TrimSpace(envelope.PageGroups)
	if len(groupsJSON) == 0 || groupsJSON[0] != '[' {
		return RawPartition{}, fmt.Errorf("pageGroups is not an array: %w", ErrValidation)
	}

	var groups []RawGroup
	if err := json.Unmarshal(groupsJSON, &groups); err != nil {
		return RawPartition{}, fmt.Errorf("failed to decode pageGroups: %v: %w", err, ErrMalformedResponse)
	}

	return RawPartition{TotalInvoices: total, PageGroups: groups}, nil
}

// truthyCount interprets a loosely typed totalInvoices value.
func truthyCount(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		return int(t), t != 0
	case string:
		var n int
		if _, err := fmt.Sscanf(strings.TrimSpace(t), "%d", &n); err == nil {
			return n, n != 0
		}
		return 0, t != ""
	case bool:
		return 0, t
	case nil:
		return 0, false
	default:
		return 0, true
	}
}
