package domain

import "context"

// StageRepository persists Stage aggregates.
type StageRepository interface {
	Save(ctx context.Context, stage *Stage) error
	FindByStageID(ctx context.Context, stageID string) (*Stage, error)
	// FindActive looks up the single in-progress stage for the routing key.
	// A nil lineItemID matches aggregated stages only.
	FindActive(ctx context.Context, orderID string, lineItemID *string, station StationID, group string) (*Stage, error)
	// FindFirstByOrder returns the order's stage with the lowest sequence.
	FindFirstByOrder(ctx context.Context, orderID string) (*Stage, error)
	// FindReworkStage returns the active rework stage for the order and
	// station, if any.
	FindReworkStage(ctx context.Context, orderID string, station StationID) (*Stage, error)
	ListByOrder(ctx context.Context, orderID string) ([]*Stage, error)
}

// TaskRepository persists TaskAssignment aggregates.
type TaskRepository interface {
	Save(ctx context.Context, task *TaskAssignment) error
	FindByTaskID(ctx context.Context, taskID string) (*TaskAssignment, error)
	FindByStageAndWorker(ctx context.Context, stageID, workerID string) (*TaskAssignment, error)
	// SumAssigned returns the total assigned quantity across all tasks of a
	// stage.
	SumAssigned(ctx context.Context, stageID string) (int, error)
	ListByStage(ctx context.Context, stageID string) ([]*TaskAssignment, error)
}

// DefectFilter narrows defect listings.
type DefectFilter struct {
	Status   *DefectStatus
	Station  *StationID
	OrderID  *string
	WorkerID *string
}

// DefectRepository persists Defect aggregates.
type DefectRepository interface {
	Save(ctx context.Context, defect *Defect) error
	FindByDefectID(ctx context.Context, defectID string) (*Defect, error)
	List(ctx context.Context, filter DefectFilter) ([]*Defect, error)
}

// OrderRepository reads and updates orders owned by the intake process.
type OrderRepository interface {
	Save(ctx context.Context, order *Order) error
	FindByOrderID(ctx context.Context, orderID string) (*Order, error)
}

// WorkerRepository is the narrow view of the worker directory the
// settlement engine needs: existence and the running balance.
type WorkerRepository interface {
	Exists(ctx context.Context, workerID string) (bool, error)
	Balance(ctx context.Context, workerID string) (float64, error)
	// ApplyBalanceDelta atomically adds the net-pay delta to the worker's
	// running balance.
	ApplyBalanceDelta(ctx context.Context, workerID string, delta float64) error
}

// MaterialRequirement is a per-unit consumption rate for one material.
type MaterialRequirement struct {
	MaterialID string
	Name       string
	PerUnit    float64
}

// MaterialCatalog resolves consumption rates for a product at a station.
type MaterialCatalog interface {
	Requirements(ctx context.Context, productID string, station StationID) ([]MaterialRequirement, error)
}

// DepletionResult reports how far a stock debit actually went.
type DepletionResult struct {
	MaterialID string
	Required   float64
	Depleted   float64
	Remaining  float64
}

// MaterialRepository debits the raw-material stock ledger. Deplete debits
// at most the available amount and reports the shortfall instead of
// failing.
type MaterialRepository interface {
	Deplete(ctx context.Context, materialID string, quantity float64) (DepletionResult, error)
}

// Transactor runs a function inside one transaction so multi-aggregate
// operations commit or roll back together.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
