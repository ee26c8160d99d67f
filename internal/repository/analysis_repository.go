package repository

import (
	"context"
	"errors"
	"fmt"

	"doc-splitter/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var ErrAnalysisNotFound = errors.New("analysis not found")

var (
	analysisColumns = []string{"id", "user_id", "document_name", "page_count", "strategy", "fallback", "total_invoices", "created_at"}
	groupColumns    = []string{"analysis_id", "invoice_number", "pages", "confidence", "reasoning", "is_expensify_export", "expensify_confidence", "expensify_indicators", "expensify_reason"}
)

type AnalysisRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewAnalysisRepository(db *pgxpool.Pool, logger *zap.Logger) *AnalysisRepository {
	return &AnalysisRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores the analysis and its page groups in one transaction.
func (r *AnalysisRepository) Create(ctx context.Context, a *models.Analysis) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	sql, args, err := insertAnalysisQuery(a).ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to insert analysis: %w", err)
	}

	if len(a.Result.PageGroups) > 0 {
		sql, args, err = insertGroupsQuery(a.ID, a.Result.PageGroups).ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("failed to insert page groups: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit analysis: %w", err)
	}

	r.logger.Debug("Analysis stored",
		zap.String("analysis_id", a.ID.String()),
		zap.Int("groups", len(a.Result.PageGroups)),
	)
	return nil
}

// GetByID returns the analysis owned by userID, or ErrAnalysisNotFound.
func (r *AnalysisRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Analysis, error) {
	sql, args, err := selectAnalysisQuery(userID, id).ToSql()
	if err != nil {
		return nil, err
	}

	a, err := scanAnalysis(r.db.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAnalysisNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := r.attachGroups(ctx, []*models.Analysis{a}); err != nil {
		return nil, err
	}
	return a, nil
}

// ListByUser returns the newest analyses of userID first.
func (r *AnalysisRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Analysis, error) {
	sql, args, err := listAnalysesQuery(userID, limit, offset).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	analyses := []*models.Analysis{}
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachGroups(ctx, analyses); err != nil {
		return nil, err
	}
	return analyses, nil
}

func (r *AnalysisRepository) attachGroups(ctx context.Context, analyses []*models.Analysis) error {
	if len(analyses) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*models.Analysis, len(analyses))
	ids := make([]uuid.UUID, 0, len(analyses))
	for _, a := range analyses {
		a.Result.PageGroups = []models.PageGroup{}
		byID[a.ID] = a
		ids = append(ids, a.ID)
	}

	sql, args, err := selectGroupsQuery(ids).ToSql()
	if err != nil {
		return err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var analysisID uuid.UUID
		var g models.PageGroup
		if err := rows.Scan(
			&analysisID, &g.InvoiceNumber, &g.Pages, &g.Confidence, &g.Reasoning,
			&g.IsExpensifyExport, &g.ExpensifyConfidence, &g.ExpensifyIndicators, &g.ExpensifyReason,
		); err != nil {
			return err
		}
		if a, ok := byID[analysisID]; ok {
			a.Result.PageGroups = append(a.Result.PageGroups, g)
		}
	}
	return rows.Err()
}

func scanAnalysis(row pgx.Row) (*models.Analysis, error) {
	var a models.Analysis
	var strategy string
	if err := row.Scan(
		&a.ID, &a.UserID, &a.DocumentName, &a.PageCount, &strategy, &a.Fallback, &a.Result.TotalInvoices, &a.CreatedAt,
	); err != nil {
		return nil, err
	}
	a.Strategy = models.Strategy(strategy)
	return &a, nil
}

func insertAnalysisQuery(a *models.Analysis) squirrel.InsertBuilder {
	return squirrel.Insert("page_analyses").
		Columns(analysisColumns...).
		Values(a.ID, a.UserID, a.DocumentName, a.PageCount, string(a.Strategy), a.Fallback, a.Result.TotalInvoices, a.CreatedAt).
		PlaceholderFormat(squirrel.Dollar)
}

func insertGroupsQuery(analysisID uuid.UUID, groups []models.PageGroup) squirrel.InsertBuilder {
	query := squirrel.Insert("page_groups").
		Columns(groupColumns...).
		PlaceholderFormat(squirrel.Dollar)

	for _, g := range groups {
		indicators := g.ExpensifyIndicators
		if indicators == nil {
			indicators = []string{}
		}
		query = query.Values(
			analysisID, g.InvoiceNumber, g.Pages, g.Confidence, g.Reasoning,
			g.IsExpensifyExport, g.ExpensifyConfidence, indicators, g.ExpensifyReason,
		)
	}
	return query
}

func selectAnalysisQuery(userID, id uuid.UUID) squirrel.SelectBuilder {
	return squirrel.Select(analysisColumns...).
		From("page_analyses").
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Eq{"user_id": userID}).
		PlaceholderFormat(squirrel.Dollar)
}

func listAnalysesQuery(userID uuid.UUID, limit, offset int) squirrel.SelectBuilder {
	return squirrel.Select(analysisColumns...).
		From("page_analyses").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		PlaceholderFormat(squirrel.Dollar)
}

func selectGroupsQuery(ids []uuid.UUID) squirrel.SelectBuilder {
	return squirrel.Select(groupColumns...).
		From("page_groups").
		Where(squirrel.Eq{"analysis_id": ids}).
		OrderBy("analysis_id", "invoice_number").
		PlaceholderFormat(squirrel.Dollar)
}
