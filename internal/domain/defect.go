package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefectStatus is the lifecycle status of a reported defect.
type DefectStatus string

const (
	DefectStatusPendingReview     DefectStatus = "pending_review"
	DefectStatusApprovedForRework DefectStatus = "approved_for_rework"
	DefectStatusInRework          DefectStatus = "in_rework"
	DefectStatusReworked          DefectStatus = "reworked"
	DefectStatusRejected          DefectStatus = "rejected"
)

// Defect is one reported quality failure linked to the originating task
// and worker. An approved defect owns one rework stage and, once work
// starts, one rework task.
type Defect struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	DefectID      string             `bson:"defectId" json:"defectId"`
	TaskID        string             `bson:"taskId" json:"taskId"`
	StageID       string             `bson:"stageId" json:"stageId"`
	OrderID       string             `bson:"orderId" json:"orderId"`
	WorkerID      string             `bson:"workerId" json:"workerId"`
	ProductID     string             `bson:"productId,omitempty" json:"productId,omitempty"`
	Station       StationID          `bson:"station" json:"station"`
	Quantity      int                `bson:"quantity" json:"quantity"`
	Status        DefectStatus       `bson:"status" json:"status"`
	ReviewerID    string             `bson:"reviewerId,omitempty" json:"reviewerId,omitempty"`
	Comment       string             `bson:"comment,omitempty" json:"comment,omitempty"`
	Deadline      *time.Time         `bson:"deadline,omitempty" json:"deadline,omitempty"`
	ReworkStageID *string            `bson:"reworkStageId,omitempty" json:"reworkStageId,omitempty"`
	ReworkTaskID  *string            `bson:"reworkTaskId,omitempty" json:"reworkTaskId,omitempty"`
	ReworkCost    float64            `bson:"reworkCost" json:"reworkCost"`
	Attempts      int                `bson:"attempts" json:"attempts"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
	DomainEvents  []DomainEvent      `bson:"-" json:"-"`
}

// NewDefect creates a pending defect from a settlement's defective delta.
func NewDefect(task *TaskAssignment, quantity int) *Defect {
	now := time.Now()
	d := &Defect{
		DefectID:     uuid.New().String(),
		TaskID:       task.TaskID,
		StageID:      task.StageID,
		OrderID:      task.OrderID,
		WorkerID:     task.WorkerID,
		ProductID:    task.ProductID,
		Station:      task.Station,
		Quantity:     quantity,
		Status:       DefectStatusPendingReview,
		CreatedAt:    now,
		UpdatedAt:    now,
		DomainEvents: make([]DomainEvent, 0),
	}
	d.AddDomainEvent(&DefectReportedEvent{
		DefectID:   d.DefectID,
		TaskID:     task.TaskID,
		OrderID:    task.OrderID,
		WorkerID:   task.WorkerID,
		Quantity:   quantity,
		ReportedAt: now,
	})
	return d
}

// Approve moves the defect to approved_for_rework.
func (d *Defect) Approve(reviewerID, comment string, deadline *time.Time) error {
	if d.Status != DefectStatusPendingReview {
		return fmt.Errorf("%w: cannot approve from %s", ErrInvalidDefectTransition, d.Status)
	}

	now := time.Now()
	d.Status = DefectStatusApprovedForRework
	d.ReviewerID = reviewerID
	d.Comment = comment
	d.Deadline = deadline
	d.UpdatedAt = now

	d.AddDomainEvent(&DefectApprovedEvent{
		DefectID:   d.DefectID,
		OrderID:    d.OrderID,
		ReviewerID: reviewerID,
		Quantity:   d.Quantity,
		ApprovedAt: now,
	})

	return nil
}

// AttachReworkStage links the rework stage created on approval.
func (d *Defect) AttachReworkStage(stageID string) {
	d.ReworkStageID = &stageID
	d.UpdatedAt = time.Now()
}

// StartRework moves the defect to in_rework and links the rework task.
func (d *Defect) StartRework(workerID, taskID string) error {
	if d.Status != DefectStatusApprovedForRework {
		return fmt.Errorf("%w: cannot start rework from %s", ErrInvalidDefectTransition, d.Status)
	}
	if d.ReworkTaskID != nil && *d.ReworkTaskID != taskID {
		return fmt.Errorf("%w: task %s", ErrDuplicateRework, *d.ReworkTaskID)
	}

	now := time.Now()
	d.Status = DefectStatusInRework
	d.ReworkTaskID = &taskID
	d.UpdatedAt = now

	d.AddDomainEvent(&DefectReworkStartedEvent{
		DefectID:  d.DefectID,
		WorkerID:  workerID,
		TaskID:    taskID,
		StartedAt: now,
	})

	return nil
}

// CompleteRework resolves an in_rework defect. Success requires positive
// completed quantity and zero defects; the rework task's net pay is
// recorded as the rework cost. A failed attempt loops back to review.
func (d *Defect) CompleteRework(completed, defective int, netPay float64) error {
	if d.Status != DefectStatusInRework {
		return fmt.Errorf("%w: cannot complete rework from %s", ErrInvalidDefectTransition, d.Status)
	}
	if completed < 0 || defective < 0 {
		return fmt.Errorf("%w: completed %d, defective %d", ErrInvalidQuantity, completed, defective)
	}

	now := time.Now()
	d.Attempts++
	if completed > 0 && defective == 0 {
		d.Status = DefectStatusReworked
		d.ReworkCost = netPay
		d.AddDomainEvent(&DefectReworkedEvent{
			DefectID:    d.DefectID,
			OrderID:     d.OrderID,
			ReworkCost:  netPay,
			Attempts:    d.Attempts,
			CompletedAt: now,
		})
	} else {
		d.Status = DefectStatusPendingReview
		d.ReworkTaskID = nil
	}
	d.UpdatedAt = now

	return nil
}

// Reject is terminal: no further transitions are permitted.
func (d *Defect) Reject(reviewerID, comment string) error {
	if d.Status != DefectStatusPendingReview {
		return fmt.Errorf("%w: cannot reject from %s", ErrInvalidDefectTransition, d.Status)
	}

	now := time.Now()
	d.Status = DefectStatusRejected
	d.ReviewerID = reviewerID
	d.Comment = comment
	d.UpdatedAt = now

	d.AddDomainEvent(&DefectRejectedEvent{
		DefectID:   d.DefectID,
		ReviewerID: reviewerID,
		RejectedAt: now,
	})

	return nil
}

// Replenish converts a pending defect's quantity straight into first-stage
// plan demand, skipping the rework pipeline.
func (d *Defect) Replenish() error {
	if d.Status != DefectStatusPendingReview {
		return fmt.Errorf("%w: cannot replenish from %s", ErrInvalidDefectTransition, d.Status)
	}

	now := time.Now()
	d.Status = DefectStatusReworked
	d.UpdatedAt = now

	d.AddDomainEvent(&DefectReplenishedEvent{
		DefectID:      d.DefectID,
		OrderID:       d.OrderID,
		Quantity:      d.Quantity,
		ReplenishedAt: now,
	})

	return nil
}

// AddDomainEvent adds a domain event
func (d *Defect) AddDomainEvent(event DomainEvent) {
	d.DomainEvents = append(d.DomainEvents, event)
}

// ClearDomainEvents clears all domain events
func (d *Defect) ClearDomainEvents() {
	d.DomainEvents = make([]DomainEvent, 0)
}

// GetDomainEvents returns all domain events
func (d *Defect) GetDomainEvents() []DomainEvent {
	return d.DomainEvents
}
