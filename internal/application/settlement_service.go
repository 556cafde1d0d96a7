package application

import (
	"context"
	"fmt"

	"github.com/factory-platform/production-service/internal/domain"
	apperrors "github.com/factory-platform/production-service/pkg/errors"
	"github.com/factory-platform/production-service/pkg/logging"
)

// SettlementService handles task assignment and the piece-rate settlement
// recompute: pay, penalties, material depletion, defect creation and
// balance posting.
type SettlementService struct {
	tasks     domain.TaskRepository
	stages    domain.StageRepository
	orders    domain.OrderRepository
	defects   domain.DefectRepository
	workers   domain.WorkerRepository
	materials domain.MaterialRepository
	matCat    domain.MaterialCatalog
	resolver  *domain.PriceResolver
	graph     *domain.WorkshopGraph
	tx        domain.Transactor
	logger    *logging.Logger
}

// NewSettlementService creates a new SettlementService
func NewSettlementService(
	tasks domain.TaskRepository,
	stages domain.StageRepository,
	orders domain.OrderRepository,
	defects domain.DefectRepository,
	workers domain.WorkerRepository,
	materials domain.MaterialRepository,
	matCat domain.MaterialCatalog,
	resolver *domain.PriceResolver,
	graph *domain.WorkshopGraph,
	tx domain.Transactor,
	logger *logging.Logger,
) *SettlementService {
	return &SettlementService{
		tasks:     tasks,
		stages:    stages,
		orders:    orders,
		defects:   defects,
		workers:   workers,
		materials: materials,
		matCat:    matCat,
		resolver:  resolver,
		graph:     graph,
		tx:        tx,
		logger:    logger.WithComponent("settlement"),
	}
}

// AssignTask creates or tops up one worker's task on a stage. The
// requested quantity is clamped to the stage's remaining unassigned plan.
func (s *SettlementService) AssignTask(ctx context.Context, cmd AssignTaskCommand) (*TaskDTO, error) {
	if cmd.Quantity <= 0 {
		return nil, apperrors.ErrValidation(fmt.Sprintf("requested quantity must be positive, got %d", cmd.Quantity))
	}

	var task *domain.TaskAssignment

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		stage, err := s.stages.FindByStageID(ctx, cmd.StageID)
		if err != nil {
			return fmt.Errorf("failed to get stage: %w", err)
		}
		if stage == nil {
			return apperrors.ErrNotFoundWithID("stage", cmd.StageID)
		}
		if !stage.IsActive() {
			return apperrors.ErrStateTransition(
				fmt.Sprintf("stage %s is %s, not accepting assignments", stage.StageID, stage.Status))
		}

		exists, err := s.workers.Exists(ctx, cmd.WorkerID)
		if err != nil {
			return fmt.Errorf("failed to check worker: %w", err)
		}
		if !exists {
			return apperrors.ErrValidation(fmt.Sprintf("unknown worker %s", cmd.WorkerID))
		}

		assigned, err := s.tasks.SumAssigned(ctx, stage.StageID)
		if err != nil {
			return fmt.Errorf("failed to sum assignments: %w", err)
		}
		remaining := stage.PlanQuantity - assigned
		if remaining <= 0 {
			return mapDomainError(fmt.Errorf("%w: plan of %d", domain.ErrPlanFullyAssigned, stage.PlanQuantity))
		}

		quantity := cmd.Quantity
		if quantity > remaining {
			quantity = remaining
		}

		task, err = s.tasks.FindByStageAndWorker(ctx, stage.StageID, cmd.WorkerID)
		if err != nil {
			return fmt.Errorf("failed to look up task: %w", err)
		}
		if task != nil {
			task.TopUp(quantity, cmd.CustomUnitPrice)
		} else {
			task = domain.NewTaskAssignment(stage, cmd.WorkerID, quantity, cmd.CustomUnitPrice)
		}

		if err := s.tasks.Save(ctx, task); err != nil {
			return fmt.Errorf("failed to save task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Assigned task",
		"taskId", task.TaskID, "stageId", cmd.StageID, "workerId", cmd.WorkerID, "assigned", task.AssignedQuantity)
	return ToTaskDTO(task), nil
}

// ReportProgress records absolute quantities and runs the full settlement
// recompute in one transaction: price resolution, pay and penalty figures,
// material depletion against the positive completed delta, one pending
// defect per unit of defective increase, and the net-pay delta posted to
// the worker balance.
func (s *SettlementService) ReportProgress(ctx context.Context, cmd ReportProgressCommand) (*SettlementDTO, error) {
	if cmd.CompletedQuantity < 0 || cmd.DefectiveQuantity < 0 {
		return nil, apperrors.ErrValidation(fmt.Sprintf(
			"quantities must be non-negative, got completed %d, defective %d",
			cmd.CompletedQuantity, cmd.DefectiveQuantity))
	}

	var (
		task       *domain.TaskAssignment
		delta      float64
		warnings   []string
		newDefects int
	)

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		task, err = s.tasks.FindByTaskID(ctx, cmd.TaskID)
		if err != nil {
			return fmt.Errorf("failed to get task: %w", err)
		}
		if task == nil {
			return apperrors.ErrNotFoundWithID("task", cmd.TaskID)
		}

		stage, err := s.stages.FindByStageID(ctx, task.StageID)
		if err != nil {
			return fmt.Errorf("failed to get stage: %w", err)
		}
		if stage == nil {
			return apperrors.ErrNotFoundWithID("stage", task.StageID)
		}

		var order *domain.Order
		if stage.IsAggregated() || stage.Station == s.graph.LayerMultiplierStation() {
			order, err = s.orders.FindByOrderID(ctx, task.OrderID)
			if err != nil {
				return fmt.Errorf("failed to get order: %w", err)
			}
		}

		oldNetPay := task.NetPay

		completedDelta, defectiveDelta, err := task.SetProgress(
			cmd.CompletedQuantity, cmd.DefectiveQuantity, cmd.ExtraPenalty)
		if err != nil {
			return mapDomainError(err)
		}

		quote, err := s.resolver.Resolve(ctx, task, stage, order)
		if err != nil {
			return fmt.Errorf("failed to resolve price: %w", err)
		}

		task.Settle(quote, s.layerMultiplier(stage, order))

		if completedDelta > 0 {
			warnings, err = s.depleteMaterials(ctx, task, stage, completedDelta)
			if err != nil {
				return err
			}
		}

		for i := 0; i < defectiveDelta; i++ {
			defect := domain.NewDefect(task, 1)
			if err := s.defects.Save(ctx, defect); err != nil {
				return fmt.Errorf("failed to save defect: %w", err)
			}
		}
		newDefects = defectiveDelta

		delta = domain.Round1(task.NetPay - oldNetPay)
		if delta != 0 {
			if err := s.workers.ApplyBalanceDelta(ctx, task.WorkerID, delta); err != nil {
				return fmt.Errorf("failed to post balance delta: %w", err)
			}
		}

		if err := s.tasks.Save(ctx, task); err != nil {
			return fmt.Errorf("failed to save task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Settled task",
		"taskId", cmd.TaskID, "netPay", task.NetPay, "balanceDelta", delta,
		"priceSource", string(task.PriceSource), "lowStockWarnings", len(warnings))

	return &SettlementDTO{
		Task:             ToTaskDTO(task),
		BalanceDelta:     delta,
		DefectsCreated:   newDefects,
		LowStockWarnings: warnings,
	}, nil
}

// layerMultiplier resolves the paint layer count for stages at the
// designated multiplier station. Aggregated stages always use 1.
func (s *SettlementService) layerMultiplier(stage *domain.Stage, order *domain.Order) int {
	if stage.Station != s.graph.LayerMultiplierStation() || stage.IsAggregated() || order == nil {
		return 1
	}
	item, ok := order.LineItem(*stage.LineItemID)
	if !ok || item.PaintLayers < 1 {
		return 1
	}
	return item.PaintLayers
}

// depleteMaterials debits stock for the newly completed quantity. Shortage
// is a warning, never a settlement failure.
func (s *SettlementService) depleteMaterials(ctx context.Context, task *domain.TaskAssignment, stage *domain.Stage, completedDelta int) ([]string, error) {
	if stage.ProductID == "" {
		return nil, nil
	}

	requirements, err := s.matCat.Requirements(ctx, stage.ProductID, stage.Station)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve material requirements: %w", err)
	}

	var warnings []string
	for _, req := range requirements {
		required := req.PerUnit * float64(completedDelta)
		result, err := s.materials.Deplete(ctx, req.MaterialID, required)
		if err != nil {
			return nil, fmt.Errorf("failed to deplete material %s: %w", req.MaterialID, err)
		}
		if result.Depleted < result.Required {
			warning := fmt.Sprintf("material %s: required %.2f, depleted %.2f, stock exhausted",
				req.Name, result.Required, result.Depleted)
			warnings = append(warnings, warning)
			s.logger.Warn("Material stock insufficient",
				"materialId", req.MaterialID, "taskId", task.TaskID,
				"required", result.Required, "depleted", result.Depleted)

			task.AddDomainEvent(&domain.MaterialLowStockEvent{
				MaterialID: req.MaterialID,
				TaskID:     task.TaskID,
				WorkerID:   task.WorkerID,
				Required:   result.Required,
				Depleted:   result.Depleted,
				OccurredOn: task.UpdatedAt,
			})
		}
	}
	return warnings, nil
}

// GetTask retrieves a task by ID.
func (s *SettlementService) GetTask(ctx context.Context, query GetTaskQuery) (*TaskDTO, error) {
	task, err := s.tasks.FindByTaskID(ctx, query.TaskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if task == nil {
		return nil, apperrors.ErrNotFoundWithID("task", query.TaskID)
	}
	return ToTaskDTO(task), nil
}

// GetWorkerBalance retrieves a worker's running balance.
func (s *SettlementService) GetWorkerBalance(ctx context.Context, query GetWorkerBalanceQuery) (*BalanceDTO, error) {
	exists, err := s.workers.Exists(ctx, query.WorkerID)
	if err != nil {
		return nil, fmt.Errorf("failed to check worker: %w", err)
	}
	if !exists {
		return nil, apperrors.ErrNotFoundWithID("worker", query.WorkerID)
	}

	balance, err := s.workers.Balance(ctx, query.WorkerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return &BalanceDTO{WorkerID: query.WorkerID, Balance: balance}, nil
}
