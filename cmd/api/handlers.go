package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/factory-platform/production-service/internal/application"
	"github.com/factory-platform/production-service/internal/domain"
	"github.com/factory-platform/production-service/pkg/logging"
	"github.com/factory-platform/production-service/pkg/metrics"
	"github.com/factory-platform/production-service/pkg/middleware"
)

func getStageHandler(service *application.RoutingService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		query := application.GetStageQuery{StageID: c.Param("stageId")}

		stage, err := service.GetStage(c.Request.Context(), query)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, stage)
	}
}

func confirmStageHandler(service *application.RoutingService, logger *logging.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			CompletedQuantity int `json:"completedQuantity"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			responder.RespondBadRequest(err.Error())
			return
		}

		cmd := application.ConfirmStageCommand{
			StageID:           c.Param("stageId"),
			CompletedQuantity: req.CompletedQuantity,
		}

		stage, err := service.ConfirmStage(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		m.StagesConfirmed.WithLabelValues(stage.Status).Inc()
		if stage.Status == string(domain.StageStatusPartial) {
			m.StageRemainders.Inc()
		}

		c.JSON(http.StatusOK, stage)
	}
}

func transferStageHandler(service *application.RoutingService, logger *logging.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			TargetStation string `json:"targetStation" binding:"required"`
			Quantity      *int   `json:"quantity"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			responder.RespondBadRequest(err.Error())
			return
		}

		cmd := application.TransferStageCommand{
			StageID:       c.Param("stageId"),
			TargetStation: domain.StationID(req.TargetStation),
			Quantity:      req.Quantity,
		}

		stage, err := service.TransferStage(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		m.StagesTransferred.WithLabelValues(stage.Station).Inc()

		c.JSON(http.StatusOK, stage)
	}
}

func postponeStageHandler(service *application.RoutingService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		cmd := application.PostponeStageCommand{StageID: c.Param("stageId")}

		stage, err := service.PostponeStage(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, stage)
	}
}

func holdStageHandler(service *application.RoutingService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		cmd := application.HoldStageCommand{StageID: c.Param("stageId")}

		stage, err := service.HoldStage(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, stage)
	}
}

func createInitialStageHandler(service *application.RoutingService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			Deadline *time.Time `json:"deadline"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			responder.RespondBadRequest(err.Error())
			return
		}

		cmd := application.CreateInitialStageCommand{
			OrderID:  c.Param("orderId"),
			Deadline: req.Deadline,
		}

		stage, err := service.CreateInitialStage(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusCreated, stage)
	}
}

func listOrderStagesHandler(service *application.RoutingService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		query := application.ListOrderStagesQuery{OrderID: c.Param("orderId")}

		stages, err := service.ListOrderStages(c.Request.Context(), query)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, stages)
	}
}

func assignTaskHandler(service *application.SettlementService, logger *logging.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			StageID         string   `json:"stageId" binding:"required"`
			WorkerID        string   `json:"workerId" binding:"required"`
			Quantity        int      `json:"quantity" binding:"required"`
			CustomUnitPrice *float64 `json:"customUnitPrice"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			responder.RespondBadRequest(err.Error())
			return
		}

		cmd := application.AssignTaskCommand{
			StageID:         req.StageID,
			WorkerID:        req.WorkerID,
			Quantity:        req.Quantity,
			CustomUnitPrice: req.CustomUnitPrice,
		}

		task, err := service.AssignTask(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		m.TasksAssigned.Inc()

		c.JSON(http.StatusCreated, task)
	}
}

func getTaskHandler(service *application.SettlementService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		query := application.GetTaskQuery{TaskID: c.Param("taskId")}

		task, err := service.GetTask(c.Request.Context(), query)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, task)
	}
}

func reportProgressHandler(service *application.SettlementService, logger *logging.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			CompletedQuantity int      `json:"completedQuantity"`
			DefectiveQuantity int      `json:"defectiveQuantity"`
			ExtraPenalty      *float64 `json:"extraPenalty"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			responder.RespondBadRequest(err.Error())
			return
		}

		cmd := application.ReportProgressCommand{
			TaskID:            c.Param("taskId"),
			CompletedQuantity: req.CompletedQuantity,
			DefectiveQuantity: req.DefectiveQuantity,
			ExtraPenalty:      req.ExtraPenalty,
		}

		result, err := service.ReportProgress(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		m.TasksSettled.WithLabelValues(result.Task.PriceSource).Inc()
		if result.BalanceDelta != 0 {
			m.BalancePosted.Inc()
		}
		if result.DefectsCreated > 0 {
			m.DefectsReported.Add(float64(result.DefectsCreated))
		}
		for range result.LowStockWarnings {
			m.LowStockWarnings.Inc()
		}

		c.JSON(http.StatusOK, result)
	}
}

func getWorkerBalanceHandler(service *application.SettlementService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		query := application.GetWorkerBalanceQuery{WorkerID: c.Param("workerId")}

		balance, err := service.GetWorkerBalance(c.Request.Context(), query)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, balance)
	}
}

func getDefectHandler(service *application.DefectService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		query := application.GetDefectQuery{DefectID: c.Param("defectId")}

		defect, err := service.GetDefect(c.Request.Context(), query)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, defect)
	}
}

func listDefectsHandler(service *application.DefectService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		query := application.ListDefectsQuery{}
		if v := c.Query("status"); v != "" {
			status := domain.DefectStatus(v)
			query.Status = &status
		}
		if v := c.Query("stationId"); v != "" {
			station := domain.StationID(v)
			query.Station = &station
		}
		if v := c.Query("orderId"); v != "" {
			query.OrderID = &v
		}
		if v := c.Query("workerId"); v != "" {
			query.WorkerID = &v
		}

		defects, err := service.ListDefects(c.Request.Context(), query)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, defects)
	}
}

func approveDefectHandler(service *application.DefectService, logger *logging.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			ReviewerID string     `json:"reviewerId" binding:"required"`
			Comment    string     `json:"comment"`
			Deadline   *time.Time `json:"deadline"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			responder.RespondBadRequest(err.Error())
			return
		}

		cmd := application.ApproveDefectCommand{
			DefectID:   c.Param("defectId"),
			ReviewerID: req.ReviewerID,
			Comment:    req.Comment,
			Deadline:   req.Deadline,
		}

		defect, err := service.ApproveDefect(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		m.DefectTransitions.WithLabelValues(defect.Status).Inc()

		c.JSON(http.StatusOK, defect)
	}
}

func startReworkHandler(service *application.DefectService, logger *logging.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			WorkerID string `json:"workerId" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			responder.RespondBadRequest(err.Error())
			return
		}

		cmd := application.StartReworkCommand{
			DefectID: c.Param("defectId"),
			WorkerID: req.WorkerID,
		}

		defect, err := service.StartRework(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		m.DefectTransitions.WithLabelValues(defect.Status).Inc()

		c.JSON(http.StatusOK, defect)
	}
}

func completeReworkHandler(service *application.DefectService, logger *logging.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			CompletedQuantity int `json:"completedQuantity"`
			DefectiveQuantity int `json:"defectiveQuantity"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			responder.RespondBadRequest(err.Error())
			return
		}

		cmd := application.CompleteReworkCommand{
			DefectID:          c.Param("defectId"),
			CompletedQuantity: req.CompletedQuantity,
			DefectiveQuantity: req.DefectiveQuantity,
		}

		defect, err := service.CompleteRework(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		m.DefectTransitions.WithLabelValues(defect.Status).Inc()

		c.JSON(http.StatusOK, defect)
	}
}

func rejectDefectHandler(service *application.DefectService, logger *logging.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			ReviewerID string `json:"reviewerId" binding:"required"`
			Comment    string `json:"comment"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			responder.RespondBadRequest(err.Error())
			return
		}

		cmd := application.RejectDefectCommand{
			DefectID:   c.Param("defectId"),
			ReviewerID: req.ReviewerID,
			Comment:    req.Comment,
		}

		defect, err := service.RejectDefect(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		m.DefectTransitions.WithLabelValues(defect.Status).Inc()

		c.JSON(http.StatusOK, defect)
	}
}

func replenishDefectHandler(service *application.DefectService, logger *logging.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		cmd := application.ReplenishDefectCommand{DefectID: c.Param("defectId")}

		defect, err := service.ReplenishDefect(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		m.DefectTransitions.WithLabelValues(defect.Status).Inc()

		c.JSON(http.StatusOK, defect)
	}
}
