package handlers

import (
	"context"
	"errors"

	"doc-splitter/internal/dto"
	"doc-splitter/internal/models"
	"doc-splitter/internal/service"
	"doc-splitter/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AnalysisService is implemented by *service.AnalysisService.
type AnalysisService interface {
	Analyze(ctx context.Context, userID uuid.UUID, documentName string, pages []models.Page) (*models.Analysis, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*models.Analysis, error)
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Analysis, error)
}

type AnalysisHandler struct {
	analysisService AnalysisService
	logger          *zap.Logger
}

func NewAnalysisHandler(analysisService AnalysisService, logger *zap.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		analysisService: analysisService,
		logger:          logger,
	}
}

// CreateAnalysis splits an uploaded document into invoices.
// POST /api/v1/analyses
func (h *AnalysisHandler) CreateAnalysis(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "Unauthorized"})
	}

	var req dto.AnalyzeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "Invalid request body"})
	}

	analysis, err := h.analysisService.Analyze(c.UserContext(), userID, req.DocumentName, req.ToPages())
	if err != nil {
		if errors.Is(err, service.ErrInvalidPages) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
		}
		h.logger.Error("Failed to analyze document", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "Failed to analyze document"})
	}

	return c.Status(fiber.StatusCreated).JSON(dto.NewAnalysisResponse(analysis))
}

// GetAnalysis returns one stored analysis of the caller.
// GET /api/v1/analyses/:id
func (h *AnalysisHandler) GetAnalysis(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "Unauthorized"})
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "Invalid analysis ID"})
	}

	analysis, err := h.analysisService.Get(c.UserContext(), userID, id)
	if err != nil {
		if errors.Is(err, service.ErrAnalysisNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "Analysis not found"})
		}
		h.logger.Error("Failed to get analysis", zap.String("analysis_id", id.String()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "Failed to get analysis"})
	}

	return c.JSON(dto.NewAnalysisResponse(analysis))
}

// ListAnalyses returns the caller's analyses, newest first.
// GET /api/v1/analyses?limit=&offset=
func (h *AnalysisHandler) ListAnalyses(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "Unauthorized"})
	}

	limit, offset := service.NormalizePaging(c.QueryInt("limit", 0), c.QueryInt("offset", 0))

	analyses, err := h.analysisService.List(c.UserContext(), userID, limit, offset)
	if err != nil {
		h.logger.Error("Failed to list analyses", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "Failed to list analyses"})
	}

	resp := dto.AnalysisListResponse{
		Analyses: make([]dto.AnalysisResponse, 0, len(analyses)),
		Limit:    limit,
		Offset:   offset,
	}
	for _, a := range analyses {
		resp.Analyses = append(resp.Analyses, dto.NewAnalysisResponse(a))
	}
	return c.JSON(resp)
}
