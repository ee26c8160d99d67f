package dto

import (
	"time"

	"doc-splitter/internal/models"
)

// PageRequest is one page of an uploaded document. Image is base64 in JSON.
type PageRequest struct {
	PageNumber int    `json:"page_number"`
	Content    string `json:"content"`
	Image      []byte `json:"image,omitempty"`
}

type AnalyzeRequest struct {
	DocumentName string        `json:"document_name"`
	Pages        []PageRequest `json:"pages"`
}

type AnalysisResponse struct {
	ID           string                    `json:"id"`
	DocumentName string                    `json:"document_name"`
	PageCount    int                       `json:"page_count"`
	Strategy     string                    `json:"strategy"`
	Fallback     bool                      `json:"fallback"`
	Result       models.PageAnalysisResult `json:"result"`
	CreatedAt    string                    `json:"created_at"`
}

type AnalysisListResponse struct {
	Analyses []AnalysisResponse `json:"analyses"`
	Limit    int                `json:"limit"`
	Offset   int                `json:"offset"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func (r AnalyzeRequest) ToPages() []models.Page {
	pages := make([]models.Page, len(r.Pages))
	for i, p := range r.Pages {
		pages[i] = models.Page{PageNumber: p.PageNumber, Content: p.Content, Image: p.Image}
	}
	return pages
}

func NewAnalysisResponse(a *models.Analysis) AnalysisResponse {
	return AnalysisResponse{
		ID:           a.ID.String(),
		DocumentName: a.DocumentName,
		PageCount:    a.PageCount,
		Strategy:     string(a.Strategy),
		Fallback:     a.Fallback,
		Result:       a.Result,
		CreatedAt:    a.CreatedAt.Format(time.RFC3339),
	}
}
