package application

import (
	"context"
	"fmt"
	"time"

	"github.com/factory-platform/production-service/internal/domain"
	apperrors "github.com/factory-platform/production-service/pkg/errors"
	"github.com/factory-platform/production-service/pkg/logging"
)

// DefectService drives the defect rework lifecycle: review, rework staging,
// rework settlement and replenishment back into the pipeline.
type DefectService struct {
	defects    domain.DefectRepository
	stages     domain.StageRepository
	tasks      domain.TaskRepository
	settlement *SettlementService
	graph      *domain.WorkshopGraph
	tx         domain.Transactor
	logger     *logging.Logger
}

// NewDefectService creates a new DefectService
func NewDefectService(
	defects domain.DefectRepository,
	stages domain.StageRepository,
	tasks domain.TaskRepository,
	settlement *SettlementService,
	graph *domain.WorkshopGraph,
	tx domain.Transactor,
	logger *logging.Logger,
) *DefectService {
	return &DefectService{
		defects:    defects,
		stages:     stages,
		tasks:      tasks,
		settlement: settlement,
		graph:      graph,
		tx:         tx,
		logger:     logger.WithComponent("defects"),
	}
}

// ApproveDefect approves a pending defect for rework. The order's first
// stage plan grows by the defect quantity so lost units re-enter the
// pipeline as demand, and a rework stage at the defect's station is
// created or topped up.
func (s *DefectService) ApproveDefect(ctx context.Context, cmd ApproveDefectCommand) (*DefectDTO, error) {
	var defect *domain.Defect

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		defect, err = s.defects.FindByDefectID(ctx, cmd.DefectID)
		if err != nil {
			return fmt.Errorf("failed to get defect: %w", err)
		}
		if defect == nil {
			return apperrors.ErrNotFoundWithID("defect", cmd.DefectID)
		}

		if err := defect.Approve(cmd.ReviewerID, cmd.Comment, cmd.Deadline); err != nil {
			return mapDomainError(err)
		}

		if err := s.bumpFirstStagePlan(ctx, defect); err != nil {
			return err
		}

		rework, err := s.stages.FindReworkStage(ctx, defect.OrderID, defect.Station)
		if err != nil {
			return fmt.Errorf("failed to look up rework stage: %w", err)
		}
		if rework != nil {
			rework.AddPlan(defect.Quantity)
		} else {
			rework, err = s.newReworkStage(ctx, defect, cmd.Deadline)
			if err != nil {
				return err
			}
		}
		if err := s.stages.Save(ctx, rework); err != nil {
			return fmt.Errorf("failed to save rework stage: %w", err)
		}

		defect.AttachReworkStage(rework.StageID)
		if err := s.defects.Save(ctx, defect); err != nil {
			return fmt.Errorf("failed to save defect: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Approved defect for rework",
		"defectId", cmd.DefectID, "reviewerId", cmd.ReviewerID, "reworkStageId", *defect.ReworkStageID)
	return ToDefectDTO(defect), nil
}

// newReworkStage builds the dedicated rework stage for a defect. It
// inherits the originating stage's line item and class when still
// resolvable, and falls back to an aggregated stage otherwise.
func (s *DefectService) newReworkStage(ctx context.Context, defect *domain.Defect, deadline *time.Time) (*domain.Stage, error) {
	origin, err := s.stages.FindByStageID(ctx, defect.StageID)
	if err != nil {
		return nil, fmt.Errorf("failed to get originating stage: %w", err)
	}
	if origin == nil || origin.IsAggregated() {
		return domain.NewAggregatedStage(defect.OrderID, defect.Station,
			domain.ReworkSequence, "rework", defect.Quantity, deadline), nil
	}
	return domain.NewStage(defect.OrderID, *origin.LineItemID, origin.ProductID, origin.ItemClass,
		defect.Station, domain.ReworkSequence, "rework", defect.Quantity, deadline), nil
}

// StartRework creates or re-assigns the rework stage's task and moves the
// defect to in_rework.
func (s *DefectService) StartRework(ctx context.Context, cmd StartReworkCommand) (*DefectDTO, error) {
	var defect *domain.Defect

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		defect, err = s.defects.FindByDefectID(ctx, cmd.DefectID)
		if err != nil {
			return fmt.Errorf("failed to get defect: %w", err)
		}
		if defect == nil {
			return apperrors.ErrNotFoundWithID("defect", cmd.DefectID)
		}
		if defect.Status != domain.DefectStatusApprovedForRework {
			return mapDomainError(fmt.Errorf("%w: cannot start rework from %s",
				domain.ErrInvalidDefectTransition, defect.Status))
		}
		if defect.ReworkStageID == nil {
			return apperrors.ErrConflict(fmt.Sprintf("defect %s has no rework stage", cmd.DefectID))
		}

		taskDTO, err := s.settlement.AssignTask(ctx, AssignTaskCommand{
			StageID:  *defect.ReworkStageID,
			WorkerID: cmd.WorkerID,
			Quantity: defect.Quantity,
		})
		if err != nil {
			return err
		}

		if err := defect.StartRework(cmd.WorkerID, taskDTO.TaskID); err != nil {
			return mapDomainError(err)
		}
		if err := s.defects.Save(ctx, defect); err != nil {
			return fmt.Errorf("failed to save defect: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Started defect rework",
		"defectId", cmd.DefectID, "workerId", cmd.WorkerID, "taskId", *defect.ReworkTaskID)
	return ToDefectDTO(defect), nil
}

// CompleteRework settles the rework task with the reported quantities and
// resolves the defect: success records the task's net pay as rework cost,
// failure loops back to review.
func (s *DefectService) CompleteRework(ctx context.Context, cmd CompleteReworkCommand) (*DefectDTO, error) {
	var defect *domain.Defect

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		defect, err = s.defects.FindByDefectID(ctx, cmd.DefectID)
		if err != nil {
			return fmt.Errorf("failed to get defect: %w", err)
		}
		if defect == nil {
			return apperrors.ErrNotFoundWithID("defect", cmd.DefectID)
		}
		if defect.Status != domain.DefectStatusInRework {
			return mapDomainError(fmt.Errorf("%w: cannot complete rework from %s",
				domain.ErrInvalidDefectTransition, defect.Status))
		}

		netPay := 0.0
		if defect.ReworkTaskID != nil {
			settled, err := s.settlement.ReportProgress(ctx, ReportProgressCommand{
				TaskID:            *defect.ReworkTaskID,
				CompletedQuantity: cmd.CompletedQuantity,
				DefectiveQuantity: cmd.DefectiveQuantity,
			})
			if err != nil {
				return err
			}
			netPay = settled.Task.NetPay
		}

		if err := defect.CompleteRework(cmd.CompletedQuantity, cmd.DefectiveQuantity, netPay); err != nil {
			return mapDomainError(err)
		}
		if err := s.defects.Save(ctx, defect); err != nil {
			return fmt.Errorf("failed to save defect: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Completed defect rework",
		"defectId", cmd.DefectID, "status", string(defect.Status), "attempts", defect.Attempts)
	return ToDefectDTO(defect), nil
}

// RejectDefect rejects a pending defect. Rejection is final.
func (s *DefectService) RejectDefect(ctx context.Context, cmd RejectDefectCommand) (*DefectDTO, error) {
	var defect *domain.Defect

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		defect, err = s.defects.FindByDefectID(ctx, cmd.DefectID)
		if err != nil {
			return fmt.Errorf("failed to get defect: %w", err)
		}
		if defect == nil {
			return apperrors.ErrNotFoundWithID("defect", cmd.DefectID)
		}
		if err := defect.Reject(cmd.ReviewerID, cmd.Comment); err != nil {
			return mapDomainError(err)
		}
		if err := s.defects.Save(ctx, defect); err != nil {
			return fmt.Errorf("failed to save defect: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Rejected defect", "defectId", cmd.DefectID, "reviewerId", cmd.ReviewerID)
	return ToDefectDTO(defect), nil
}

// ReplenishDefect converts a pending defect's quantity straight into
// first-stage plan demand, skipping the rework pipeline.
func (s *DefectService) ReplenishDefect(ctx context.Context, cmd ReplenishDefectCommand) (*DefectDTO, error) {
	var defect *domain.Defect

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		defect, err = s.defects.FindByDefectID(ctx, cmd.DefectID)
		if err != nil {
			return fmt.Errorf("failed to get defect: %w", err)
		}
		if defect == nil {
			return apperrors.ErrNotFoundWithID("defect", cmd.DefectID)
		}
		if err := defect.Replenish(); err != nil {
			return mapDomainError(err)
		}
		if err := s.bumpFirstStagePlan(ctx, defect); err != nil {
			return err
		}
		if err := s.defects.Save(ctx, defect); err != nil {
			return fmt.Errorf("failed to save defect: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Replenished defect into plan", "defectId", cmd.DefectID, "quantity", defect.Quantity)
	return ToDefectDTO(defect), nil
}

// bumpFirstStagePlan grows the order's first stage plan by the defect
// quantity so lost units are represented as new pipeline demand.
func (s *DefectService) bumpFirstStagePlan(ctx context.Context, defect *domain.Defect) error {
	first, err := s.stages.FindFirstByOrder(ctx, defect.OrderID)
	if err != nil {
		return fmt.Errorf("failed to get first stage: %w", err)
	}
	if first == nil {
		return apperrors.ErrConflict(fmt.Sprintf("order %s has no production stages", defect.OrderID))
	}
	first.AddPlan(defect.Quantity)
	if err := s.stages.Save(ctx, first); err != nil {
		return fmt.Errorf("failed to save first stage: %w", err)
	}
	return nil
}

// GetDefect retrieves a defect by ID.
func (s *DefectService) GetDefect(ctx context.Context, query GetDefectQuery) (*DefectDTO, error) {
	defect, err := s.defects.FindByDefectID(ctx, query.DefectID)
	if err != nil {
		return nil, fmt.Errorf("failed to get defect: %w", err)
	}
	if defect == nil {
		return nil, apperrors.ErrNotFoundWithID("defect", query.DefectID)
	}
	return ToDefectDTO(defect), nil
}

// ListDefects lists defects with optional filters.
func (s *DefectService) ListDefects(ctx context.Context, query ListDefectsQuery) ([]*DefectDTO, error) {
	defects, err := s.defects.List(ctx, domain.DefectFilter{
		Status:   query.Status,
		Station:  query.Station,
		OrderID:  query.OrderID,
		WorkerID: query.WorkerID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list defects: %w", err)
	}
	return ToDefectDTOs(defects), nil
}
