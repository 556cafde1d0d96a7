package application

import "time"

// StageDTO represents a production stage in responses
type StageDTO struct {
	StageID           string     `json:"stageId"`
	OrderID           string     `json:"orderId"`
	LineItemID        *string    `json:"lineItemId,omitempty"`
	ProductID         string     `json:"productId,omitempty"`
	ItemClass         string     `json:"itemClass"`
	Station           string     `json:"station"`
	Sequence          int        `json:"sequence"`
	ParallelGroup     string     `json:"parallelGroup"`
	PlanQuantity      int        `json:"planQuantity"`
	CompletedQuantity int        `json:"completedQuantity"`
	Status            string     `json:"status"`
	Aggregated        bool       `json:"aggregated"`
	Deadline          *time.Time `json:"deadline,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// TaskDTO represents a task assignment in responses
type TaskDTO struct {
	TaskID            string    `json:"taskId"`
	StageID           string    `json:"stageId"`
	OrderID           string    `json:"orderId"`
	WorkerID          string    `json:"workerId"`
	Station           string    `json:"station"`
	ProductID         string    `json:"productId,omitempty"`
	AssignedQuantity  int       `json:"assignedQuantity"`
	CompletedQuantity int       `json:"completedQuantity"`
	DefectiveQuantity int       `json:"defectiveQuantity"`
	UnitPrice         float64   `json:"unitPrice"`
	PriceSource       string    `json:"priceSource"`
	PenaltyRate       float64   `json:"penaltyRate"`
	GrossPay          float64   `json:"grossPay"`
	PenaltyTotal      float64   `json:"penaltyTotal"`
	ExtraPenalty      float64   `json:"extraPenalty"`
	NetPay            float64   `json:"netPay"`
	IsRework          bool      `json:"isRework"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// SettlementDTO is the result of a progress report: the recomputed task
// plus any non-fatal low-stock warnings raised during material depletion.
type SettlementDTO struct {
	Task             *TaskDTO `json:"task"`
	BalanceDelta     float64  `json:"balanceDelta"`
	DefectsCreated   int      `json:"defectsCreated"`
	LowStockWarnings []string `json:"lowStockWarnings,omitempty"`
}

// DefectDTO represents a defect in responses
type DefectDTO struct {
	DefectID      string     `json:"defectId"`
	TaskID        string     `json:"taskId"`
	StageID       string     `json:"stageId"`
	OrderID       string     `json:"orderId"`
	WorkerID      string     `json:"workerId"`
	ProductID     string     `json:"productId,omitempty"`
	Station       string     `json:"station"`
	Quantity      int        `json:"quantity"`
	Status        string     `json:"status"`
	ReviewerID    string     `json:"reviewerId,omitempty"`
	Comment       string     `json:"comment,omitempty"`
	Deadline      *time.Time `json:"deadline,omitempty"`
	ReworkStageID *string    `json:"reworkStageId,omitempty"`
	ReworkTaskID  *string    `json:"reworkTaskId,omitempty"`
	ReworkCost    float64    `json:"reworkCost"`
	Attempts      int        `json:"attempts"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// BalanceDTO represents a worker's running balance
type BalanceDTO struct {
	WorkerID string  `json:"workerId"`
	Balance  float64 `json:"balance"`
}
