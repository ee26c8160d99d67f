package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"doc-splitter/internal/models"
	"doc-splitter/internal/repository"
	"doc-splitter/internal/splitter"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidPages     = errors.New("invalid pages")
	ErrAnalysisNotFound = repository.ErrAnalysisNotFound
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// AnalysisStore persists analyses. *repository.AnalysisRepository implements it.
type AnalysisStore interface {
	Create(ctx context.Context, a *models.Analysis) error
	GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Analysis, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Analysis, error)
}

// PageSplitter is implemented by *splitter.Splitter.
type PageSplitter interface {
	Analyze(ctx context.Context, pages []models.Page) splitter.Outcome
}

type AnalysisService struct {
	splitter PageSplitter
	store    AnalysisStore
	logger   *zap.Logger
}

func NewAnalysisService(sp PageSplitter, store AnalysisStore, logger *zap.Logger) *AnalysisService {
	return &AnalysisService{
		splitter: sp,
		store:    store,
		logger:   logger,
	}
}

// Analyze splits the pages and stores the outcome for userID. A model failure is
// not an error here: the fallback partition is stored with Fallback set.
func (s *AnalysisService) Analyze(ctx context.Context, userID uuid.UUID, documentName string, pages []models.Page) (*models.Analysis, error) {
	if err := ValidatePages(pages); err != nil {
		return nil, err
	}

	out := s.splitter.Analyze(ctx, sanitizePages(pages))

	analysis := &models.Analysis{
		ID:           uuid.New(),
		UserID:       userID,
		DocumentName: sanitizeUTF8(documentName),
		PageCount:    len(pages),
		Strategy:     out.Strategy,
		Fallback:     out.Fallback,
		Result:       out.Result,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.store.Create(ctx, analysis); err != nil {
		s.logger.Error("Failed to store analysis",
			zap.String("analysis_id", analysis.ID.String()),
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to store analysis: %w", err)
	}

	s.logger.Info("Analysis stored",
		zap.String("analysis_id", analysis.ID.String()),
		zap.String("document", documentName),
		zap.Int("invoices", analysis.Result.TotalInvoices),
		zap.Bool("fallback", analysis.Fallback),
	)
	return analysis, nil
}

func (s *AnalysisService) Get(ctx context.Context, userID, id uuid.UUID) (*models.Analysis, error) {
	return s.store.GetByID(ctx, userID, id)
}

// List pages through the caller's analyses, newest first. limit is clamped to [1,100].
func (s *AnalysisService) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Analysis, error) {
	limit, offset = NormalizePaging(limit, offset)
	return s.store.ListByUser(ctx, userID, limit, offset)
}

// ValidatePages requires positive, unique page numbers.
func ValidatePages(pages []models.Page) error {
	seen := make(map[int]struct{}, len(pages))
	for _, p := range pages {
		if p.PageNumber < 1 {
			return fmt.Errorf("%w: page number %d must be positive", ErrInvalidPages, p.PageNumber)
		}
		if _, dup := seen[p.PageNumber]; dup {
			return fmt.Errorf("%w: page %d appears more than once", ErrInvalidPages, p.PageNumber)
		}
		seen[p.PageNumber] = struct{}{}
	}
	return nil
}

func NormalizePaging(limit, offset int) (int, int) {
	switch {
	case limit <= 0:
		limit = defaultListLimit
	case limit > maxListLimit:
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
