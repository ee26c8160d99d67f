package service

import (
	"strings"

	"doc-splitter/internal/models"
)

// sanitizeUTF8 drops invalid UTF-8 sequences, which PostgreSQL rejects in TEXT columns.
func sanitizeUTF8(s string) string {
	return strings.ToValidUTF8(s, "")
}

// sanitizePages returns pages with their text cleaned. OCR output of damaged scans
// often carries broken byte sequences that would otherwise end up in stored reasoning.
func sanitizePages(pages []models.Page) []models.Page {
	out := make([]models.Page, len(pages))
	for i, p := range pages {
		p.Content = sanitizeUTF8(p.Content)
		out[i] = p
	}
	return out
}
