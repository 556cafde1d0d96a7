package application

import "github.com/factory-platform/production-service/internal/domain"

// ToStageDTO converts a domain Stage to StageDTO
func ToStageDTO(stage *domain.Stage) *StageDTO {
	if stage == nil {
		return nil
	}
	return &StageDTO{
		StageID:           stage.StageID,
		OrderID:           stage.OrderID,
		LineItemID:        stage.LineItemID,
		ProductID:         stage.ProductID,
		ItemClass:         string(stage.ItemClass),
		Station:           string(stage.Station),
		Sequence:          stage.Sequence,
		ParallelGroup:     stage.ParallelGroup,
		PlanQuantity:      stage.PlanQuantity,
		CompletedQuantity: stage.CompletedQuantity,
		Status:            string(stage.Status),
		Aggregated:        stage.IsAggregated(),
		Deadline:          stage.Deadline,
		CreatedAt:         stage.CreatedAt,
		UpdatedAt:         stage.UpdatedAt,
	}
}

// ToStageDTOs converts a slice of stages
func ToStageDTOs(stages []*domain.Stage) []*StageDTO {
	dtos := make([]*StageDTO, 0, len(stages))
	for _, stage := range stages {
		dtos = append(dtos, ToStageDTO(stage))
	}
	return dtos
}

// ToTaskDTO converts a domain TaskAssignment to TaskDTO
func ToTaskDTO(task *domain.TaskAssignment) *TaskDTO {
	if task == nil {
		return nil
	}
	return &TaskDTO{
		TaskID:            task.TaskID,
		StageID:           task.StageID,
		OrderID:           task.OrderID,
		WorkerID:          task.WorkerID,
		Station:           string(task.Station),
		ProductID:         task.ProductID,
		AssignedQuantity:  task.AssignedQuantity,
		CompletedQuantity: task.CompletedQuantity,
		DefectiveQuantity: task.DefectiveQuantity,
		UnitPrice:         task.UnitPrice,
		PriceSource:       string(task.PriceSource),
		PenaltyRate:       task.PenaltyRate,
		GrossPay:          task.GrossPay,
		PenaltyTotal:      task.PenaltyTotal,
		ExtraPenalty:      task.ExtraPenalty,
		NetPay:            task.NetPay,
		IsRework:          task.IsRework,
		CreatedAt:         task.CreatedAt,
		UpdatedAt:         task.UpdatedAt,
	}
}

// ToDefectDTO converts a domain Defect to DefectDTO
func ToDefectDTO(defect *domain.Defect) *DefectDTO {
	if defect == nil {
		return nil
	}
	return &DefectDTO{
		DefectID:      defect.DefectID,
		TaskID:        defect.TaskID,
		StageID:       defect.StageID,
		OrderID:       defect.OrderID,
		WorkerID:      defect.WorkerID,
		ProductID:     defect.ProductID,
		Station:       string(defect.Station),
		Quantity:      defect.Quantity,
		Status:        string(defect.Status),
		ReviewerID:    defect.ReviewerID,
		Comment:       defect.Comment,
		Deadline:      defect.Deadline,
		ReworkStageID: defect.ReworkStageID,
		ReworkTaskID:  defect.ReworkTaskID,
		ReworkCost:    defect.ReworkCost,
		Attempts:      defect.Attempts,
		CreatedAt:     defect.CreatedAt,
		UpdatedAt:     defect.UpdatedAt,
	}
}

// ToDefectDTOs converts a slice of defects
func ToDefectDTOs(defects []*domain.Defect) []*DefectDTO {
	dtos := make([]*DefectDTO, 0, len(defects))
	for _, defect := range defects {
		dtos = append(dtos, ToDefectDTO(defect))
	}
	return dtos
}
