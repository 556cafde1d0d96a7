package application

import (
	"time"

	"github.com/factory-platform/production-service/internal/domain"
)

// ConfirmStageCommand confirms completed quantity on a stage
type ConfirmStageCommand struct {
	StageID           string
	CompletedQuantity int
}

// TransferStageCommand moves quantity to an explicitly chosen station
type TransferStageCommand struct {
	StageID       string
	TargetStation domain.StationID
	// Quantity defaults to the stage's remaining plan when nil
	Quantity *int
}

// PostponeStageCommand shifts a stage deadline by one day
type PostponeStageCommand struct {
	StageID string
}

// HoldStageCommand marks a stage as explicitly held
type HoldStageCommand struct {
	StageID string
}

// CreateInitialStageCommand creates the aggregated first stage for an order
type CreateInitialStageCommand struct {
	OrderID  string
	Deadline *time.Time
}

// GetStageQuery retrieves a stage by ID
type GetStageQuery struct {
	StageID string
}

// ListOrderStagesQuery lists all stages of an order
type ListOrderStagesQuery struct {
	OrderID string
}

// AssignTaskCommand assigns a worker to a stage's plan
type AssignTaskCommand struct {
	StageID         string
	WorkerID        string
	Quantity        int
	CustomUnitPrice *float64
}

// ReportProgressCommand reports absolute completed and defective quantities
type ReportProgressCommand struct {
	TaskID            string
	CompletedQuantity int
	DefectiveQuantity int
	ExtraPenalty      *float64
}

// GetTaskQuery retrieves a task by ID
type GetTaskQuery struct {
	TaskID string
}

// GetWorkerBalanceQuery retrieves a worker's running balance
type GetWorkerBalanceQuery struct {
	WorkerID string
}

// ApproveDefectCommand approves a defect for rework
type ApproveDefectCommand struct {
	DefectID   string
	ReviewerID string
	Comment    string
	Deadline   *time.Time
}

// StartReworkCommand starts rework on an approved defect
type StartReworkCommand struct {
	DefectID string
	WorkerID string
}

// CompleteReworkCommand resolves an in-rework defect
type CompleteReworkCommand struct {
	DefectID          string
	CompletedQuantity int
	DefectiveQuantity int
}

// RejectDefectCommand rejects a pending defect
type RejectDefectCommand struct {
	DefectID   string
	ReviewerID string
	Comment    string
}

// ReplenishDefectCommand converts a pending defect into first-stage demand
type ReplenishDefectCommand struct {
	DefectID string
}

// GetDefectQuery retrieves a defect by ID
type GetDefectQuery struct {
	DefectID string
}

// ListDefectsQuery lists defects with optional filters
type ListDefectsQuery struct {
	Status   *domain.DefectStatus
	Station  *domain.StationID
	OrderID  *string
	WorkerID *string
}
