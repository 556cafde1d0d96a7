package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StageStatus is the lifecycle status of a production stage.
type StageStatus string

const (
	StageStatusInProgress StageStatus = "in_progress"
	StageStatusDone       StageStatus = "done"
	StageStatusPartial    StageStatus = "partial"
	StageStatusWaiting    StageStatus = "waiting"
)

// ReworkSequence marks stages spawned by approved defects. They sort after
// every regular pipeline position.
const ReworkSequence = 999

// Stage is the core routable unit: one slice of planned production work for
// an order at a station. A nil LineItemID marks an aggregated stage pooling
// an order's non-itemized remainder.
type Stage struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	StageID           string             `bson:"stageId" json:"stageId"`
	OrderID           string             `bson:"orderId" json:"orderId"`
	LineItemID        *string            `bson:"lineItemId,omitempty" json:"lineItemId,omitempty"`
	ProductID         string             `bson:"productId,omitempty" json:"productId,omitempty"`
	ItemClass         ItemClass          `bson:"itemClass" json:"itemClass"`
	Station           StationID          `bson:"station" json:"station"`
	Sequence          int                `bson:"sequence" json:"sequence"`
	ParallelGroup     string             `bson:"parallelGroup" json:"parallelGroup"`
	PlanQuantity      int                `bson:"planQuantity" json:"planQuantity"`
	CompletedQuantity int                `bson:"completedQuantity" json:"completedQuantity"`
	Status            StageStatus        `bson:"status" json:"status"`
	Deadline          *time.Time         `bson:"deadline,omitempty" json:"deadline,omitempty"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
	DomainEvents      []DomainEvent      `bson:"-" json:"-"`
}

// NewStage creates an itemized stage for one line item.
func NewStage(orderID, lineItemID, productID string, class ItemClass, station StationID, sequence int, group string, plan int, deadline *time.Time) *Stage {
	now := time.Now()
	s := &Stage{
		StageID:       uuid.New().String(),
		OrderID:       orderID,
		LineItemID:    &lineItemID,
		ProductID:     productID,
		ItemClass:     class,
		Station:       station,
		Sequence:      sequence,
		ParallelGroup: group,
		PlanQuantity:  plan,
		Status:        StageStatusInProgress,
		Deadline:      deadline,
		CreatedAt:     now,
		UpdatedAt:     now,
		DomainEvents:  make([]DomainEvent, 0),
	}
	s.AddDomainEvent(newStageCreatedEvent(s))
	return s
}

// NewAggregatedStage creates an aggregated stage with no line item
// reference, pooling quantity for the whole order at a station.
func NewAggregatedStage(orderID string, station StationID, sequence int, group string, plan int, deadline *time.Time) *Stage {
	now := time.Now()
	s := &Stage{
		StageID:       uuid.New().String(),
		OrderID:       orderID,
		ItemClass:     ClassRegular,
		Station:       station,
		Sequence:      sequence,
		ParallelGroup: group,
		PlanQuantity:  plan,
		Status:        StageStatusInProgress,
		Deadline:      deadline,
		CreatedAt:     now,
		UpdatedAt:     now,
		DomainEvents:  make([]DomainEvent, 0),
	}
	s.AddDomainEvent(newStageCreatedEvent(s))
	return s
}

// IsAggregated reports whether the stage has no line item reference.
func (s *Stage) IsAggregated() bool {
	return s.LineItemID == nil
}

// IsActive reports whether the stage still accepts work.
func (s *Stage) IsActive() bool {
	return s.Status == StageStatusInProgress
}

// Confirm records completed quantity and resolves the stage status. It
// returns the quantity to advance and the remainder to split into a sibling
// stage. A zero completed quantity is a no-op, not an error.
func (s *Stage) Confirm(completed int) (advance int, remainder int, err error) {
	if completed < 0 {
		return 0, 0, fmt.Errorf("%w: completed %d", ErrInvalidQuantity, completed)
	}
	if completed > s.PlanQuantity {
		return 0, 0, fmt.Errorf("%w: plan is %d, reported %d", ErrQuantityExceedsPlan, s.PlanQuantity, completed)
	}
	if !s.IsActive() {
		return 0, 0, fmt.Errorf("%w: status %s", ErrStageNotActive, s.Status)
	}
	if completed == 0 {
		return 0, 0, nil
	}

	now := time.Now()
	s.CompletedQuantity = completed
	if completed == s.PlanQuantity {
		s.Status = StageStatusDone
	} else {
		s.Status = StageStatusPartial
		remainder = s.PlanQuantity - completed
	}
	s.UpdatedAt = now

	s.AddDomainEvent(&StageConfirmedEvent{
		StageID:           s.StageID,
		OrderID:           s.OrderID,
		Station:           string(s.Station),
		Status:            string(s.Status),
		CompletedQuantity: completed,
		RemainderQuantity: remainder,
		ConfirmedAt:       now,
	})

	return completed, remainder, nil
}

// SplitRemainder creates the sibling stage carrying the uncompleted amount
// at the same station. The sibling starts fresh with no deadline.
func (s *Stage) SplitRemainder(remainder int) *Stage {
	sibling := &Stage{
		StageID:       uuid.New().String(),
		OrderID:       s.OrderID,
		LineItemID:    s.LineItemID,
		ProductID:     s.ProductID,
		ItemClass:     s.ItemClass,
		Station:       s.Station,
		Sequence:      s.Sequence,
		ParallelGroup: s.ParallelGroup,
		PlanQuantity:  remainder,
		Status:        StageStatusInProgress,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
		DomainEvents:  make([]DomainEvent, 0),
	}
	sibling.AddDomainEvent(newStageCreatedEvent(sibling))
	return sibling
}

// AddPlan merges quantity into the stage and reactivates it. Used by
// graph-driven advancement and by transfers into the aggregation station.
func (s *Stage) AddPlan(quantity int) {
	s.PlanQuantity += quantity
	s.Status = StageStatusInProgress
	s.UpdatedAt = time.Now()
}

// ReplacePlan overwrites the plan quantity and reactivates the stage. Used
// by manual transfers to non-aggregation stations.
func (s *Stage) ReplacePlan(quantity int) error {
	if quantity < s.CompletedQuantity {
		return fmt.Errorf("%w: completed is already %d, new plan %d", ErrQuantityExceedsPlan, s.CompletedQuantity, quantity)
	}
	s.PlanQuantity = quantity
	s.Status = StageStatusInProgress
	s.UpdatedAt = time.Now()
	return nil
}

// TransferOut moves quantity out of the stage to another station by a
// manual transfer. The plan shrinks by the moved amount; the stage closes
// only once no unfinished quantity is left behind, so a partial transfer
// keeps the rest in progress here.
func (s *Stage) TransferOut(quantity int, target StationID) error {
	if !s.IsActive() {
		return fmt.Errorf("%w: status %s", ErrStageNotActive, s.Status)
	}
	if quantity <= 0 {
		return fmt.Errorf("%w: transfer quantity %d", ErrInvalidQuantity, quantity)
	}
	remaining := s.PlanQuantity - s.CompletedQuantity
	if quantity > remaining {
		return fmt.Errorf("%w: remaining plan is %d, requested %d", ErrQuantityExceedsPlan, remaining, quantity)
	}

	now := time.Now()
	s.PlanQuantity -= quantity
	if s.PlanQuantity == s.CompletedQuantity {
		s.Status = StageStatusDone
	}
	s.UpdatedAt = now

	s.AddDomainEvent(&StageTransferredEvent{
		StageID:       s.StageID,
		OrderID:       s.OrderID,
		FromStation:   string(s.Station),
		ToStation:     string(target),
		Quantity:      quantity,
		Aggregated:    s.IsAggregated(),
		TransferredAt: now,
	})

	return nil
}

// Postpone shifts the deadline forward by one day.
func (s *Stage) Postpone() error {
	if s.Deadline == nil {
		return ErrNoDeadline
	}
	deadline := s.Deadline.Add(24 * time.Hour)
	s.Deadline = &deadline
	s.UpdatedAt = time.Now()

	s.AddDomainEvent(&StagePostponedEvent{
		StageID:     s.StageID,
		OrderID:     s.OrderID,
		Deadline:    deadline,
		PostponedAt: s.UpdatedAt,
	})

	return nil
}

// Hold marks the stage waiting so it is not auto-advanced.
func (s *Stage) Hold() error {
	if !s.IsActive() {
		return fmt.Errorf("%w: status %s", ErrStageNotActive, s.Status)
	}
	s.Status = StageStatusWaiting
	s.UpdatedAt = time.Now()

	s.AddDomainEvent(&StageHeldEvent{
		StageID: s.StageID,
		OrderID: s.OrderID,
		HeldAt:  s.UpdatedAt,
	})

	return nil
}

func newStageCreatedEvent(s *Stage) *StageCreatedEvent {
	lineItemID := ""
	if s.LineItemID != nil {
		lineItemID = *s.LineItemID
	}
	return &StageCreatedEvent{
		StageID:      s.StageID,
		OrderID:      s.OrderID,
		LineItemID:   lineItemID,
		Station:      string(s.Station),
		Sequence:     s.Sequence,
		PlanQuantity: s.PlanQuantity,
		Aggregated:   s.IsAggregated(),
		CreatedAt:    s.CreatedAt,
	}
}

// AddDomainEvent adds a domain event
func (s *Stage) AddDomainEvent(event DomainEvent) {
	s.DomainEvents = append(s.DomainEvents, event)
}

// ClearDomainEvents clears all domain events
func (s *Stage) ClearDomainEvents() {
	s.DomainEvents = make([]DomainEvent, 0)
}

// GetDomainEvents returns all domain events
func (s *Stage) GetDomainEvents() []DomainEvent {
	return s.DomainEvents
}
