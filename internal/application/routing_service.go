package application

import (
	"context"
	"fmt"

	"github.com/factory-platform/production-service/internal/domain"
	apperrors "github.com/factory-platform/production-service/pkg/errors"
	"github.com/factory-platform/production-service/pkg/logging"
)

// RoutingService handles production stage use cases: confirmation,
// advancement, transfers, postponing and holding.
type RoutingService struct {
	stages domain.StageRepository
	orders domain.OrderRepository
	graph  *domain.WorkshopGraph
	tx     domain.Transactor
	logger *logging.Logger
}

// NewRoutingService creates a new RoutingService
func NewRoutingService(
	stages domain.StageRepository,
	orders domain.OrderRepository,
	graph *domain.WorkshopGraph,
	tx domain.Transactor,
	logger *logging.Logger,
) *RoutingService {
	return &RoutingService{
		stages: stages,
		orders: orders,
		graph:  graph,
		tx:     tx,
		logger: logger.WithComponent("routing"),
	}
}

// ConfirmStage records completed quantity on a stage, splits the remainder
// into a sibling stage and advances the completed portion per the graph.
func (s *RoutingService) ConfirmStage(ctx context.Context, cmd ConfirmStageCommand) (*StageDTO, error) {
	var stage *domain.Stage

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		stage, err = s.stages.FindByStageID(ctx, cmd.StageID)
		if err != nil {
			return fmt.Errorf("failed to get stage: %w", err)
		}
		if stage == nil {
			return apperrors.ErrNotFoundWithID("stage", cmd.StageID)
		}

		advance, remainder, err := stage.Confirm(cmd.CompletedQuantity)
		if err != nil {
			return mapDomainError(err)
		}
		if advance == 0 {
			// Zero confirmation leaves the stage untouched
			return nil
		}

		if err := s.stages.Save(ctx, stage); err != nil {
			return fmt.Errorf("failed to save stage: %w", err)
		}

		if remainder > 0 {
			sibling := stage.SplitRemainder(remainder)
			if err := s.stages.Save(ctx, sibling); err != nil {
				return fmt.Errorf("failed to save remainder stage: %w", err)
			}
		}

		return s.advance(ctx, stage, advance)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Confirmed stage",
		"stageId", cmd.StageID, "completed", cmd.CompletedQuantity, "status", string(stage.Status))
	return ToStageDTO(stage), nil
}

// advance moves completed quantity to the next station per the routing
// graph, merging into an existing active destination stage. At the final
// station the quantity is recorded as packaged output instead.
func (s *RoutingService) advance(ctx context.Context, stage *domain.Stage, quantity int) error {
	next, hasNext, err := s.graph.NextStation(stage.Station, stage.ItemClass)
	if err != nil {
		return mapDomainError(err)
	}

	if !hasNext {
		order, err := s.orders.FindByOrderID(ctx, stage.OrderID)
		if err != nil {
			return fmt.Errorf("failed to get order: %w", err)
		}
		if order == nil {
			return apperrors.ErrNotFoundWithID("order", stage.OrderID)
		}
		order.RecordPackagedOutput(stage.LineItemID, quantity)
		if err := s.orders.Save(ctx, order); err != nil {
			return fmt.Errorf("failed to save order: %w", err)
		}
		return nil
	}

	dest, err := s.stages.FindActive(ctx, stage.OrderID, stage.LineItemID, next, stage.ParallelGroup)
	if err != nil {
		return fmt.Errorf("failed to look up destination stage: %w", err)
	}

	sequence := stage.Sequence + 1
	if pos, ok := s.graph.Position(next, stage.ItemClass); ok {
		sequence = pos
	}

	if dest == nil {
		if stage.IsAggregated() {
			dest = domain.NewAggregatedStage(stage.OrderID, next, sequence, stage.ParallelGroup, quantity, stage.Deadline)
		} else {
			dest = domain.NewStage(stage.OrderID, *stage.LineItemID, stage.ProductID, stage.ItemClass,
				next, sequence, stage.ParallelGroup, quantity, stage.Deadline)
		}
	} else {
		dest.AddPlan(quantity)
	}

	dest.AddDomainEvent(&domain.StageAdvancedEvent{
		StageID:     dest.StageID,
		OrderID:     stage.OrderID,
		FromStation: string(stage.Station),
		ToStation:   string(next),
		Quantity:    quantity,
		AdvancedAt:  dest.UpdatedAt,
	})

	if err := s.stages.Save(ctx, dest); err != nil {
		return fmt.Errorf("failed to save destination stage: %w", err)
	}
	return nil
}

// TransferStage moves quantity to an explicitly chosen station, bypassing
// the graph's default resolution. Without an explicit quantity the whole
// remaining plan moves; a partial quantity leaves the rest in progress at
// the source. Transfers into the final aggregation station accumulate into
// an aggregated stage; all other destinations have their plan replaced.
func (s *RoutingService) TransferStage(ctx context.Context, cmd TransferStageCommand) (*StageDTO, error) {
	var dest *domain.Stage

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		stage, err := s.stages.FindByStageID(ctx, cmd.StageID)
		if err != nil {
			return fmt.Errorf("failed to get stage: %w", err)
		}
		if stage == nil {
			return apperrors.ErrNotFoundWithID("stage", cmd.StageID)
		}

		if !s.graph.IsKnown(cmd.TargetStation) {
			return apperrors.ErrValidation(fmt.Sprintf("unknown station %s", cmd.TargetStation))
		}
		if !s.graph.AllowedFor(cmd.TargetStation, stage.ItemClass) {
			return mapDomainError(fmt.Errorf("%w: station %s, item class %s",
				domain.ErrStationNotAllowed, cmd.TargetStation, stage.ItemClass))
		}

		quantity := stage.PlanQuantity - stage.CompletedQuantity
		if cmd.Quantity != nil {
			quantity = *cmd.Quantity
		}

		if err := stage.TransferOut(quantity, cmd.TargetStation); err != nil {
			return mapDomainError(err)
		}
		if err := s.stages.Save(ctx, stage); err != nil {
			return fmt.Errorf("failed to save stage: %w", err)
		}

		sequence := stage.Sequence + 1
		if pos, ok := s.graph.Position(cmd.TargetStation, stage.ItemClass); ok {
			sequence = pos
		}

		if cmd.TargetStation == s.graph.FinalStation() {
			// Aggregation station: quantities accumulate by addition
			dest, err = s.stages.FindActive(ctx, stage.OrderID, nil, cmd.TargetStation, stage.ParallelGroup)
			if err != nil {
				return fmt.Errorf("failed to look up destination stage: %w", err)
			}
			if dest == nil {
				dest = domain.NewAggregatedStage(stage.OrderID, cmd.TargetStation, sequence, stage.ParallelGroup, quantity, nil)
			} else {
				dest.AddPlan(quantity)
			}
		} else {
			dest, err = s.stages.FindActive(ctx, stage.OrderID, stage.LineItemID, cmd.TargetStation, stage.ParallelGroup)
			if err != nil {
				return fmt.Errorf("failed to look up destination stage: %w", err)
			}
			if dest == nil {
				if stage.IsAggregated() {
					dest = domain.NewAggregatedStage(stage.OrderID, cmd.TargetStation, sequence, stage.ParallelGroup, quantity, nil)
				} else {
					dest = domain.NewStage(stage.OrderID, *stage.LineItemID, stage.ProductID, stage.ItemClass,
						cmd.TargetStation, sequence, stage.ParallelGroup, quantity, nil)
				}
			} else if err := dest.ReplacePlan(quantity); err != nil {
				return mapDomainError(err)
			}
		}

		dest.AddDomainEvent(&domain.StageTransferredEvent{
			StageID:       dest.StageID,
			OrderID:       stage.OrderID,
			FromStation:   string(stage.Station),
			ToStation:     string(cmd.TargetStation),
			Quantity:      quantity,
			Aggregated:    dest.IsAggregated(),
			TransferredAt: dest.UpdatedAt,
		})

		if err := s.stages.Save(ctx, dest); err != nil {
			return fmt.Errorf("failed to save destination stage: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Transferred stage",
		"stageId", cmd.StageID, "target", string(cmd.TargetStation), "destStageId", dest.StageID)
	return ToStageDTO(dest), nil
}

// PostponeStage shifts the stage deadline forward by one day.
func (s *RoutingService) PostponeStage(ctx context.Context, cmd PostponeStageCommand) (*StageDTO, error) {
	var stage *domain.Stage

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		stage, err = s.stages.FindByStageID(ctx, cmd.StageID)
		if err != nil {
			return fmt.Errorf("failed to get stage: %w", err)
		}
		if stage == nil {
			return apperrors.ErrNotFoundWithID("stage", cmd.StageID)
		}
		if err := stage.Postpone(); err != nil {
			return mapDomainError(err)
		}
		if err := s.stages.Save(ctx, stage); err != nil {
			return fmt.Errorf("failed to save stage: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Postponed stage", "stageId", cmd.StageID)
	return ToStageDTO(stage), nil
}

// HoldStage marks a stage waiting so it is not auto-advanced.
func (s *RoutingService) HoldStage(ctx context.Context, cmd HoldStageCommand) (*StageDTO, error) {
	var stage *domain.Stage

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		stage, err = s.stages.FindByStageID(ctx, cmd.StageID)
		if err != nil {
			return fmt.Errorf("failed to get stage: %w", err)
		}
		if stage == nil {
			return apperrors.ErrNotFoundWithID("stage", cmd.StageID)
		}
		if err := stage.Hold(); err != nil {
			return mapDomainError(err)
		}
		if err := s.stages.Save(ctx, stage); err != nil {
			return fmt.Errorf("failed to save stage: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Held stage", "stageId", cmd.StageID)
	return ToStageDTO(stage), nil
}

// CreateInitialStage creates the single aggregated stage at the initial
// station covering the order's total quantity. Order intake calls this
// once per order.
func (s *RoutingService) CreateInitialStage(ctx context.Context, cmd CreateInitialStageCommand) (*StageDTO, error) {
	var stage *domain.Stage

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		order, err := s.orders.FindByOrderID(ctx, cmd.OrderID)
		if err != nil {
			return fmt.Errorf("failed to get order: %w", err)
		}
		if order == nil {
			return apperrors.ErrNotFoundWithID("order", cmd.OrderID)
		}

		existing, err := s.stages.FindFirstByOrder(ctx, cmd.OrderID)
		if err != nil {
			return fmt.Errorf("failed to check existing stages: %w", err)
		}
		if existing != nil {
			return apperrors.ErrConflict(fmt.Sprintf("order %s already has production stages", cmd.OrderID))
		}

		total := order.TotalQuantity()
		if total <= 0 {
			return apperrors.ErrValidation(fmt.Sprintf("order %s has no quantity to produce", cmd.OrderID))
		}

		initial := s.graph.InitialStation(domain.ClassRegular)
		stage = domain.NewAggregatedStage(cmd.OrderID, initial, 0, "regular", total, cmd.Deadline)
		if err := s.stages.Save(ctx, stage); err != nil {
			return fmt.Errorf("failed to save stage: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Created initial stage", "orderId", cmd.OrderID, "stageId", stage.StageID, "plan", stage.PlanQuantity)
	return ToStageDTO(stage), nil
}

// GetStage retrieves a stage by ID.
func (s *RoutingService) GetStage(ctx context.Context, query GetStageQuery) (*StageDTO, error) {
	stage, err := s.stages.FindByStageID(ctx, query.StageID)
	if err != nil {
		return nil, fmt.Errorf("failed to get stage: %w", err)
	}
	if stage == nil {
		return nil, apperrors.ErrNotFoundWithID("stage", query.StageID)
	}
	return ToStageDTO(stage), nil
}

// ListOrderStages lists all stages of an order.
func (s *RoutingService) ListOrderStages(ctx context.Context, query ListOrderStagesQuery) ([]*StageDTO, error) {
	stages, err := s.stages.ListByOrder(ctx, query.OrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stages: %w", err)
	}
	return ToStageDTOs(stages), nil
}
