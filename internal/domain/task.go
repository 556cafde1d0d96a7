package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TaskAssignment is one worker's committed slice of a stage's plan, with
// its own completion, defect and earnings tracking.
type TaskAssignment struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	TaskID            string             `bson:"taskId" json:"taskId"`
	StageID           string             `bson:"stageId" json:"stageId"`
	OrderID           string             `bson:"orderId" json:"orderId"`
	WorkerID          string             `bson:"workerId" json:"workerId"`
	Station           StationID          `bson:"station" json:"station"`
	ProductID         string             `bson:"productId,omitempty" json:"productId,omitempty"`
	AssignedQuantity  int                `bson:"assignedQuantity" json:"assignedQuantity"`
	CompletedQuantity int                `bson:"completedQuantity" json:"completedQuantity"`
	DefectiveQuantity int                `bson:"defectiveQuantity" json:"defectiveQuantity"`
	CustomUnitPrice   *float64           `bson:"customUnitPrice,omitempty" json:"customUnitPrice,omitempty"`
	UnitPrice         float64            `bson:"unitPrice" json:"unitPrice"`
	PriceSource       PriceSource        `bson:"priceSource" json:"priceSource"`
	PenaltyRate       float64            `bson:"penaltyRate" json:"penaltyRate"`
	PenaltySource     PriceSource        `bson:"penaltySource" json:"penaltySource"`
	GrossPay          float64            `bson:"grossPay" json:"grossPay"`
	PenaltyTotal      float64            `bson:"penaltyTotal" json:"penaltyTotal"`
	ExtraPenalty      float64            `bson:"extraPenalty" json:"extraPenalty"`
	NetPay            float64            `bson:"netPay" json:"netPay"`
	IsRework          bool               `bson:"isRework" json:"isRework"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
	DomainEvents      []DomainEvent      `bson:"-" json:"-"`
}

// NewTaskAssignment creates a task assignment for a stage and worker.
func NewTaskAssignment(stage *Stage, workerID string, quantity int, customPrice *float64) *TaskAssignment {
	now := time.Now()
	t := &TaskAssignment{
		TaskID:           uuid.New().String(),
		StageID:          stage.StageID,
		OrderID:          stage.OrderID,
		WorkerID:         workerID,
		Station:          stage.Station,
		ProductID:        stage.ProductID,
		AssignedQuantity: quantity,
		CustomUnitPrice:  customPrice,
		IsRework:         stage.Sequence == ReworkSequence,
		CreatedAt:        now,
		UpdatedAt:        now,
		DomainEvents:     make([]DomainEvent, 0),
	}
	t.AddDomainEvent(&TaskAssignedEvent{
		TaskID:           t.TaskID,
		StageID:          t.StageID,
		WorkerID:         workerID,
		AssignedQuantity: quantity,
		AssignedAt:       now,
	})
	return t
}

// TopUp increases the assigned quantity by the clamped amount. A non-nil
// customPrice replaces the assignment's price override; nil leaves the
// existing one untouched.
func (t *TaskAssignment) TopUp(quantity int, customPrice *float64) {
	now := time.Now()
	t.AssignedQuantity += quantity
	if customPrice != nil {
		t.CustomUnitPrice = customPrice
	}
	t.UpdatedAt = now

	t.AddDomainEvent(&TaskAssignedEvent{
		TaskID:           t.TaskID,
		StageID:          t.StageID,
		WorkerID:         t.WorkerID,
		AssignedQuantity: t.AssignedQuantity,
		AssignedAt:       now,
	})
}

// SetProgress records the absolute completed and defective quantities and
// the cumulative extra penalty. It returns the positive deltas used for
// material depletion and defect creation.
func (t *TaskAssignment) SetProgress(completed, defective int, extraPenalty *float64) (completedDelta, defectiveDelta int, err error) {
	if completed < 0 || defective < 0 {
		return 0, 0, fmt.Errorf("%w: completed %d, defective %d", ErrInvalidQuantity, completed, defective)
	}
	if completed > t.AssignedQuantity {
		return 0, 0, fmt.Errorf("%w: assigned is %d, reported %d completed",
			ErrQuantityExceedsPlan, t.AssignedQuantity, completed)
	}

	completedDelta = completed - t.CompletedQuantity
	if completedDelta < 0 {
		completedDelta = 0
	}
	defectiveDelta = defective - t.DefectiveQuantity
	if defectiveDelta < 0 {
		defectiveDelta = 0
	}

	t.CompletedQuantity = completed
	t.DefectiveQuantity = defective
	if extraPenalty != nil {
		t.ExtraPenalty = *extraPenalty
	}
	t.UpdatedAt = time.Now()

	return completedDelta, defectiveDelta, nil
}

// Settle recomputes gross pay, penalty total and net pay from the current
// quantities and the resolved quote. The recompute is a full derivation, so
// repeating it with unchanged quantities yields identical figures.
func (t *TaskAssignment) Settle(quote PriceQuote, layerMultiplier int) {
	if layerMultiplier < 1 {
		layerMultiplier = 1
	}

	t.UnitPrice = quote.UnitPrice
	t.PriceSource = quote.Source
	t.PenaltyRate = quote.PenaltyRate
	t.PenaltySource = quote.PenaltySource

	if quote.ExactTotal != nil {
		t.GrossPay = Round1(*quote.ExactTotal)
	} else {
		t.GrossPay = Round1(float64(t.CompletedQuantity) * quote.UnitPrice * float64(layerMultiplier))
	}
	t.PenaltyTotal = Round1(float64(t.DefectiveQuantity)*quote.PenaltyRate + t.ExtraPenalty)
	t.NetPay = Round1(t.GrossPay - t.PenaltyTotal)
	t.UpdatedAt = time.Now()

	t.AddDomainEvent(&TaskSettledEvent{
		TaskID:            t.TaskID,
		StageID:           t.StageID,
		WorkerID:          t.WorkerID,
		CompletedQuantity: t.CompletedQuantity,
		DefectiveQuantity: t.DefectiveQuantity,
		GrossPay:          t.GrossPay,
		PenaltyTotal:      t.PenaltyTotal,
		NetPay:            t.NetPay,
		PriceSource:       string(t.PriceSource),
		SettledAt:         t.UpdatedAt,
	})
}

// AddDomainEvent adds a domain event
func (t *TaskAssignment) AddDomainEvent(event DomainEvent) {
	t.DomainEvents = append(t.DomainEvents, event)
}

// ClearDomainEvents clears all domain events
func (t *TaskAssignment) ClearDomainEvents() {
	t.DomainEvents = make([]DomainEvent, 0)
}

// GetDomainEvents returns all domain events
func (t *TaskAssignment) GetDomainEvents() []DomainEvent {
	return t.DomainEvents
}
