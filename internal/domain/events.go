package domain

import "time"

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// StageCreatedEvent is published when a production stage is created
type StageCreatedEvent struct {
	StageID      string    `json:"stageId"`
	OrderID      string    `json:"orderId"`
	LineItemID   string    `json:"lineItemId,omitempty"`
	Station      string    `json:"station"`
	Sequence     int       `json:"sequence"`
	PlanQuantity int       `json:"planQuantity"`
	Aggregated   bool      `json:"aggregated"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (e *StageCreatedEvent) EventType() string     { return "production.stage.created" }
func (e *StageCreatedEvent) OccurredAt() time.Time { return e.CreatedAt }

// StageConfirmedEvent is published when a stage's completed quantity is
// confirmed
type StageConfirmedEvent struct {
	StageID           string    `json:"stageId"`
	OrderID           string    `json:"orderId"`
	Station           string    `json:"station"`
	Status            string    `json:"status"`
	CompletedQuantity int       `json:"completedQuantity"`
	RemainderQuantity int       `json:"remainderQuantity"`
	ConfirmedAt       time.Time `json:"confirmedAt"`
}

func (e *StageConfirmedEvent) EventType() string     { return "production.stage.confirmed" }
func (e *StageConfirmedEvent) OccurredAt() time.Time { return e.ConfirmedAt }

// StageAdvancedEvent is published when completed quantity advances to the
// next station per the routing graph
type StageAdvancedEvent struct {
	StageID     string    `json:"stageId"`
	OrderID     string    `json:"orderId"`
	FromStation string    `json:"fromStation"`
	ToStation   string    `json:"toStation"`
	Quantity    int       `json:"quantity"`
	AdvancedAt  time.Time `json:"advancedAt"`
}

func (e *StageAdvancedEvent) EventType() string     { return "production.stage.advanced" }
func (e *StageAdvancedEvent) OccurredAt() time.Time { return e.AdvancedAt }

// StageTransferredEvent is published on a manual transfer to an explicitly
// chosen station
type StageTransferredEvent struct {
	StageID       string    `json:"stageId"`
	OrderID       string    `json:"orderId"`
	FromStation   string    `json:"fromStation"`
	ToStation     string    `json:"toStation"`
	Quantity      int       `json:"quantity"`
	Aggregated    bool      `json:"aggregated"`
	TransferredAt time.Time `json:"transferredAt"`
}

func (e *StageTransferredEvent) EventType() string     { return "production.stage.transferred" }
func (e *StageTransferredEvent) OccurredAt() time.Time { return e.TransferredAt }

// StagePostponedEvent is published when a stage deadline is shifted
type StagePostponedEvent struct {
	StageID     string    `json:"stageId"`
	OrderID     string    `json:"orderId"`
	Deadline    time.Time `json:"deadline"`
	PostponedAt time.Time `json:"postponedAt"`
}

func (e *StagePostponedEvent) EventType() string     { return "production.stage.postponed" }
func (e *StagePostponedEvent) OccurredAt() time.Time { return e.PostponedAt }

// StageHeldEvent is published when a stage is explicitly held
type StageHeldEvent struct {
	StageID string    `json:"stageId"`
	OrderID string    `json:"orderId"`
	HeldAt  time.Time `json:"heldAt"`
}

func (e *StageHeldEvent) EventType() string     { return "production.stage.held" }
func (e *StageHeldEvent) OccurredAt() time.Time { return e.HeldAt }

// OrderPackagedEvent is published when confirmed quantity at the final
// station is recorded as packaged output
type OrderPackagedEvent struct {
	OrderID    string    `json:"orderId"`
	LineItemID string    `json:"lineItemId"`
	Quantity   int       `json:"quantity"`
	PackagedAt time.Time `json:"packagedAt"`
}

func (e *OrderPackagedEvent) EventType() string     { return "production.order.packaged" }
func (e *OrderPackagedEvent) OccurredAt() time.Time { return e.PackagedAt }

// TaskAssignedEvent is published when a task is created or topped up
type TaskAssignedEvent struct {
	TaskID           string    `json:"taskId"`
	StageID          string    `json:"stageId"`
	WorkerID         string    `json:"workerId"`
	AssignedQuantity int       `json:"assignedQuantity"`
	AssignedAt       time.Time `json:"assignedAt"`
}

func (e *TaskAssignedEvent) EventType() string     { return "production.task.assigned" }
func (e *TaskAssignedEvent) OccurredAt() time.Time { return e.AssignedAt }

// TaskSettledEvent is published after every settlement recompute
type TaskSettledEvent struct {
	TaskID            string    `json:"taskId"`
	StageID           string    `json:"stageId"`
	WorkerID          string    `json:"workerId"`
	CompletedQuantity int       `json:"completedQuantity"`
	DefectiveQuantity int       `json:"defectiveQuantity"`
	GrossPay          float64   `json:"grossPay"`
	PenaltyTotal      float64   `json:"penaltyTotal"`
	NetPay            float64   `json:"netPay"`
	PriceSource       string    `json:"priceSource"`
	SettledAt         time.Time `json:"settledAt"`
}

func (e *TaskSettledEvent) EventType() string     { return "production.task.settled" }
func (e *TaskSettledEvent) OccurredAt() time.Time { return e.SettledAt }

// MaterialLowStockEvent is published when depletion could not cover the
// required quantity
type MaterialLowStockEvent struct {
	MaterialID string    `json:"materialId"`
	TaskID     string    `json:"taskId"`
	WorkerID   string    `json:"workerId"`
	Required   float64   `json:"required"`
	Depleted   float64   `json:"depleted"`
	OccurredOn time.Time `json:"occurredOn"`
}

func (e *MaterialLowStockEvent) EventType() string     { return "production.material.low-stock" }
func (e *MaterialLowStockEvent) OccurredAt() time.Time { return e.OccurredOn }

// DefectReportedEvent is published when a defective delta creates a defect
type DefectReportedEvent struct {
	DefectID   string    `json:"defectId"`
	TaskID     string    `json:"taskId"`
	OrderID    string    `json:"orderId"`
	WorkerID   string    `json:"workerId"`
	Quantity   int       `json:"quantity"`
	ReportedAt time.Time `json:"reportedAt"`
}

func (e *DefectReportedEvent) EventType() string     { return "production.defect.reported" }
func (e *DefectReportedEvent) OccurredAt() time.Time { return e.ReportedAt }

// DefectApprovedEvent is published when a defect is approved for rework
type DefectApprovedEvent struct {
	DefectID   string    `json:"defectId"`
	OrderID    string    `json:"orderId"`
	ReviewerID string    `json:"reviewerId"`
	Quantity   int       `json:"quantity"`
	ApprovedAt time.Time `json:"approvedAt"`
}

func (e *DefectApprovedEvent) EventType() string     { return "production.defect.approved" }
func (e *DefectApprovedEvent) OccurredAt() time.Time { return e.ApprovedAt }

// DefectReworkStartedEvent is published when rework begins
type DefectReworkStartedEvent struct {
	DefectID  string    `json:"defectId"`
	WorkerID  string    `json:"workerId"`
	TaskID    string    `json:"taskId"`
	StartedAt time.Time `json:"startedAt"`
}

func (e *DefectReworkStartedEvent) EventType() string     { return "production.defect.rework-started" }
func (e *DefectReworkStartedEvent) OccurredAt() time.Time { return e.StartedAt }

// DefectReworkedEvent is published on successful rework completion
type DefectReworkedEvent struct {
	DefectID    string    `json:"defectId"`
	OrderID     string    `json:"orderId"`
	ReworkCost  float64   `json:"reworkCost"`
	Attempts    int       `json:"attempts"`
	CompletedAt time.Time `json:"completedAt"`
}

func (e *DefectReworkedEvent) EventType() string     { return "production.defect.reworked" }
func (e *DefectReworkedEvent) OccurredAt() time.Time { return e.CompletedAt }

// DefectRejectedEvent is published when a defect is rejected
type DefectRejectedEvent struct {
	DefectID   string    `json:"defectId"`
	ReviewerID string    `json:"reviewerId"`
	RejectedAt time.Time `json:"rejectedAt"`
}

func (e *DefectRejectedEvent) EventType() string     { return "production.defect.rejected" }
func (e *DefectRejectedEvent) OccurredAt() time.Time { return e.RejectedAt }

// DefectReplenishedEvent is published when a defect's quantity is converted
// straight into first-stage plan demand
type DefectReplenishedEvent struct {
	DefectID      string    `json:"defectId"`
	OrderID       string    `json:"orderId"`
	Quantity      int       `json:"quantity"`
	ReplenishedAt time.Time `json:"replenishedAt"`
}

func (e *DefectReplenishedEvent) EventType() string     { return "production.defect.replenished" }
func (e *DefectReplenishedEvent) OccurredAt() time.Time { return e.ReplenishedAt }
