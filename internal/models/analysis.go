package models

import (
	"time"

	"github.com/google/uuid"
)

type Strategy string

const (
	StrategyEmpty  Strategy = "empty"
	StrategySingle Strategy = "single"
	StrategyVision Strategy = "vision"
	StrategyText   Strategy = "text"
)

// Analysis is a persisted split of one uploaded document.
type Analysis struct {
	ID           uuid.UUID          `db:"id"`
	UserID       uuid.UUID          `db:"user_id"`
	DocumentName string             `db:"document_name"`
	PageCount    int                `db:"page_count"`
	Strategy     Strategy           `db:"strategy"`
	Fallback     bool               `db:"fallback"`
	Result       PageAnalysisResult `db:"-"`
	CreatedAt    time.Time          `db:"created_at"`
}
