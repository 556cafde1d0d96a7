package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/factory-platform/production-service/internal/application"
	"github.com/factory-platform/production-service/internal/domain"
	"github.com/factory-platform/production-service/pkg/logging"
	"github.com/factory-platform/production-service/pkg/metrics"
)

type stubStageRepo struct {
	stages map[string]*domain.Stage
}

func (s *stubStageRepo) Save(_ context.Context, stage *domain.Stage) error {
	s.stages[stage.StageID] = stage
	stage.ClearDomainEvents()
	return nil
}

func (s *stubStageRepo) FindByStageID(_ context.Context, stageID string) (*domain.Stage, error) {
	return s.stages[stageID], nil
}

func (s *stubStageRepo) FindActive(_ context.Context, orderID string, lineItemID *string, station domain.StationID, group string) (*domain.Stage, error) {
	for _, st := range s.stages {
		if st.OrderID != orderID || st.Station != station || st.ParallelGroup != group || !st.IsActive() {
			continue
		}
		if lineItemID == nil && st.LineItemID == nil {
			return st, nil
		}
		if lineItemID != nil && st.LineItemID != nil && *lineItemID == *st.LineItemID {
			return st, nil
		}
	}
	return nil, nil
}

func (s *stubStageRepo) FindFirstByOrder(_ context.Context, orderID string) (*domain.Stage, error) {
	var first *domain.Stage
	for _, st := range s.stages {
		if st.OrderID != orderID {
			continue
		}
		if first == nil || st.Sequence < first.Sequence {
			first = st
		}
	}
	return first, nil
}

func (s *stubStageRepo) FindReworkStage(_ context.Context, orderID string, station domain.StationID) (*domain.Stage, error) {
	for _, st := range s.stages {
		if st.OrderID == orderID && st.Station == station && st.Sequence == domain.ReworkSequence && st.IsActive() {
			return st, nil
		}
	}
	return nil, nil
}

func (s *stubStageRepo) ListByOrder(_ context.Context, orderID string) ([]*domain.Stage, error) {
	var out []*domain.Stage
	for _, st := range s.stages {
		if st.OrderID == orderID {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

type stubTaskRepo struct {
	tasks map[string]*domain.TaskAssignment
}

func (s *stubTaskRepo) Save(_ context.Context, task *domain.TaskAssignment) error {
	s.tasks[task.TaskID] = task
	task.ClearDomainEvents()
	return nil
}

func (s *stubTaskRepo) FindByTaskID(_ context.Context, taskID string) (*domain.TaskAssignment, error) {
	return s.tasks[taskID], nil
}

func (s *stubTaskRepo) FindByStageAndWorker(_ context.Context, stageID, workerID string) (*domain.TaskAssignment, error) {
	for _, t := range s.tasks {
		if t.StageID == stageID && t.WorkerID == workerID {
			return t, nil
		}
	}
	return nil, nil
}

func (s *stubTaskRepo) SumAssigned(_ context.Context, stageID string) (int, error) {
	total := 0
	for _, t := range s.tasks {
		if t.StageID == stageID {
			total += t.AssignedQuantity
		}
	}
	return total, nil
}

func (s *stubTaskRepo) ListByStage(_ context.Context, stageID string) ([]*domain.TaskAssignment, error) {
	var out []*domain.TaskAssignment
	for _, t := range s.tasks {
		if t.StageID == stageID {
			out = append(out, t)
		}
	}
	return out, nil
}

type stubDefectRepo struct {
	defects map[string]*domain.Defect
}

func (s *stubDefectRepo) Save(_ context.Context, defect *domain.Defect) error {
	s.defects[defect.DefectID] = defect
	defect.ClearDomainEvents()
	return nil
}

func (s *stubDefectRepo) FindByDefectID(_ context.Context, defectID string) (*domain.Defect, error) {
	return s.defects[defectID], nil
}

func (s *stubDefectRepo) List(_ context.Context, filter domain.DefectFilter) ([]*domain.Defect, error) {
	var out []*domain.Defect
	for _, d := range s.defects {
		if filter.Status != nil && d.Status != *filter.Status {
			continue
		}
		if filter.Station != nil && d.Station != *filter.Station {
			continue
		}
		if filter.OrderID != nil && d.OrderID != *filter.OrderID {
			continue
		}
		if filter.WorkerID != nil && d.WorkerID != *filter.WorkerID {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

type stubOrderRepo struct {
	orders map[string]*domain.Order
}

func (s *stubOrderRepo) Save(_ context.Context, order *domain.Order) error {
	s.orders[order.OrderID] = order
	order.ClearDomainEvents()
	return nil
}

func (s *stubOrderRepo) FindByOrderID(_ context.Context, orderID string) (*domain.Order, error) {
	return s.orders[orderID], nil
}

type stubWorkerRepo struct {
	balances map[string]float64
}

func (s *stubWorkerRepo) Exists(_ context.Context, workerID string) (bool, error) {
	_, ok := s.balances[workerID]
	return ok, nil
}

func (s *stubWorkerRepo) Balance(_ context.Context, workerID string) (float64, error) {
	return s.balances[workerID], nil
}

func (s *stubWorkerRepo) ApplyBalanceDelta(_ context.Context, workerID string, delta float64) error {
	s.balances[workerID] += delta
	return nil
}

type stubMaterialRepo struct{}

func (stubMaterialRepo) Deplete(_ context.Context, materialID string, quantity float64) (domain.DepletionResult, error) {
	return domain.DepletionResult{MaterialID: materialID, Required: quantity, Depleted: quantity}, nil
}

type stubMaterialCatalog struct{}

func (stubMaterialCatalog) Requirements(_ context.Context, _ string, _ domain.StationID) ([]domain.MaterialRequirement, error) {
	return nil, nil
}

type stubPriceCatalog struct{}

func (stubPriceCatalog) ProductPrice(_ context.Context, _ string, _ domain.StationID) (domain.CatalogPrice, bool, error) {
	return domain.CatalogPrice{}, false, nil
}

func (stubPriceCatalog) StationDefault(_ context.Context, _ domain.StationID) (domain.CatalogPrice, bool, error) {
	return domain.CatalogPrice{}, false, nil
}

type nopTx struct{}

func (nopTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type testEnv struct {
	stages  *stubStageRepo
	tasks   *stubTaskRepo
	defects *stubDefectRepo
	orders  *stubOrderRepo
	workers *stubWorkerRepo
	router  *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		stages:  &stubStageRepo{stages: make(map[string]*domain.Stage)},
		tasks:   &stubTaskRepo{tasks: make(map[string]*domain.TaskAssignment)},
		defects: &stubDefectRepo{defects: make(map[string]*domain.Defect)},
		orders:  &stubOrderRepo{orders: make(map[string]*domain.Order)},
		workers: &stubWorkerRepo{balances: map[string]float64{"W-1": 0}},
	}

	logger := logging.New(logging.DefaultConfig("test"))
	m := metrics.New(metrics.DefaultConfig("test"))
	graph := domain.NewWorkshopGraph()
	resolver := domain.NewPriceResolver(stubPriceCatalog{}, 100.0, 50.0)
	tx := nopTx{}

	routing := application.NewRoutingService(env.stages, env.orders, graph, tx, logger)
	settlement := application.NewSettlementService(env.tasks, env.stages, env.orders, env.defects,
		env.workers, stubMaterialRepo{}, stubMaterialCatalog{}, resolver, graph, tx, logger)
	defectsSvc := application.NewDefectService(env.defects, env.stages, env.tasks, settlement, graph, tx, logger)

	router := gin.New()
	router.GET("/api/v1/stages/:stageId", getStageHandler(routing, logger))
	router.POST("/api/v1/stages/:stageId/confirm", confirmStageHandler(routing, logger, m))
	router.POST("/api/v1/stages/:stageId/transfer", transferStageHandler(routing, logger, m))
	router.POST("/api/v1/orders/:orderId/stages", createInitialStageHandler(routing, logger))
	router.GET("/api/v1/orders/:orderId/stages", listOrderStagesHandler(routing, logger))
	router.POST("/api/v1/tasks", assignTaskHandler(settlement, logger, m))
	router.GET("/api/v1/tasks/:taskId", getTaskHandler(settlement, logger))
	router.POST("/api/v1/tasks/:taskId/progress", reportProgressHandler(settlement, logger, m))
	router.GET("/api/v1/workers/:workerId/balance", getWorkerBalanceHandler(settlement, logger))
	router.GET("/api/v1/defects", listDefectsHandler(defectsSvc, logger))
	router.POST("/api/v1/defects/:defectId/approve", approveDefectHandler(defectsSvc, logger, m))
	env.router = router
	return env
}

func requestJSON(t *testing.T, router *gin.Engine, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func seedStage(env *testEnv, plan int) *domain.Stage {
	stage := domain.NewStage("ORD-1", "LI-1", "P-1", domain.ClassRegular,
		domain.StationCutting, 0, "regular", plan, nil)
	env.stages.stages[stage.StageID] = stage
	stage.ClearDomainEvents()
	return stage
}

func TestCreateInitialStageHandler(t *testing.T) {
	env := newTestEnv(t)
	env.orders.orders["ORD-1"] = &domain.Order{
		OrderID:   "ORD-1",
		LineItems: []domain.LineItem{{LineItemID: "LI-1", ProductID: "P-1", Quantity: 10}},
	}

	resp := requestJSON(t, env.router, http.MethodPost, "/api/v1/orders/ORD-1/stages", map[string]any{})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var stage application.StageDTO
	if err := json.Unmarshal(resp.Body.Bytes(), &stage); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if stage.Station != string(domain.StationCutting) || stage.PlanQuantity != 10 {
		t.Fatalf("unexpected stage: %+v", stage)
	}
}

func TestCreateInitialStageHandler_UnknownOrder(t *testing.T) {
	env := newTestEnv(t)

	resp := requestJSON(t, env.router, http.MethodPost, "/api/v1/orders/ORD-404/stages", map[string]any{})
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestConfirmStageHandler(t *testing.T) {
	env := newTestEnv(t)
	env.orders.orders["ORD-1"] = &domain.Order{OrderID: "ORD-1"}
	stage := seedStage(env, 10)

	resp := requestJSON(t, env.router, http.MethodPost,
		"/api/v1/stages/"+stage.StageID+"/confirm", map[string]any{"completedQuantity": 10})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var dto application.StageDTO
	if err := json.Unmarshal(resp.Body.Bytes(), &dto); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if dto.Status != string(domain.StageStatusDone) {
		t.Fatalf("expected done, got %s", dto.Status)
	}
}

func TestConfirmStageHandler_Validation(t *testing.T) {
	env := newTestEnv(t)
	stage := seedStage(env, 10)

	resp := requestJSON(t, env.router, http.MethodPost,
		"/api/v1/stages/"+stage.StageID+"/confirm", map[string]any{"completedQuantity": -1})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestGetStageHandler_NotFound(t *testing.T) {
	env := newTestEnv(t)

	resp := requestJSON(t, env.router, http.MethodGet, "/api/v1/stages/missing", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestTransferStageHandler_UnknownStation(t *testing.T) {
	env := newTestEnv(t)
	stage := seedStage(env, 10)

	resp := requestJSON(t, env.router, http.MethodPost,
		"/api/v1/stages/"+stage.StageID+"/transfer", map[string]any{"targetStation": "smelting"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestAssignAndProgressHandlers(t *testing.T) {
	env := newTestEnv(t)
	stage := seedStage(env, 10)

	assignResp := requestJSON(t, env.router, http.MethodPost, "/api/v1/tasks", map[string]any{
		"stageId":  stage.StageID,
		"workerId": "W-1",
		"quantity": 10,
	})
	if assignResp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", assignResp.Code, assignResp.Body.String())
	}

	var task application.TaskDTO
	if err := json.Unmarshal(assignResp.Body.Bytes(), &task); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	progressResp := requestJSON(t, env.router, http.MethodPost,
		"/api/v1/tasks/"+task.TaskID+"/progress",
		map[string]any{"completedQuantity": 10, "defectiveQuantity": 2})
	if progressResp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", progressResp.Code, progressResp.Body.String())
	}

	var result application.SettlementDTO
	if err := json.Unmarshal(progressResp.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	// Fallback rate 100.0 with penalty 50.0 per defective unit
	if result.Task.NetPay != 900.0 {
		t.Fatalf("expected net pay 900.0, got %v", result.Task.NetPay)
	}
	if result.DefectsCreated != 2 {
		t.Fatalf("expected 2 defects, got %d", result.DefectsCreated)
	}

	balanceResp := requestJSON(t, env.router, http.MethodGet, "/api/v1/workers/W-1/balance", nil)
	if balanceResp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", balanceResp.Code)
	}
	var balance application.BalanceDTO
	if err := json.Unmarshal(balanceResp.Body.Bytes(), &balance); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if balance.Balance != 900.0 {
		t.Fatalf("expected balance 900.0, got %v", balance.Balance)
	}
}

func TestAssignTaskHandler_UnknownWorker(t *testing.T) {
	env := newTestEnv(t)
	stage := seedStage(env, 10)

	resp := requestJSON(t, env.router, http.MethodPost, "/api/v1/tasks", map[string]any{
		"stageId":  stage.StageID,
		"workerId": "W-404",
		"quantity": 5,
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestListDefectsHandler_StatusFilter(t *testing.T) {
	env := newTestEnv(t)
	stage := seedStage(env, 10)
	task := domain.NewTaskAssignment(stage, "W-1", 10, nil)
	env.tasks.tasks[task.TaskID] = task
	defect := domain.NewDefect(task, 1)
	defect.ClearDomainEvents()
	env.defects.defects[defect.DefectID] = defect

	resp := requestJSON(t, env.router, http.MethodGet, "/api/v1/defects?status=pending_review", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var defects []application.DefectDTO
	if err := json.Unmarshal(resp.Body.Bytes(), &defects); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(defects) != 1 {
		t.Fatalf("expected 1 defect, got %d", len(defects))
	}

	emptyResp := requestJSON(t, env.router, http.MethodGet, "/api/v1/defects?status=rejected", nil)
	var empty []application.DefectDTO
	if err := json.Unmarshal(emptyResp.Body.Bytes(), &empty); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no defects, got %d", len(empty))
	}
}

func TestApproveDefectHandler(t *testing.T) {
	env := newTestEnv(t)
	first := seedStage(env, 10)
	task := domain.NewTaskAssignment(first, "W-1", 10, nil)
	env.tasks.tasks[task.TaskID] = task
	defect := domain.NewDefect(task, 4)
	defect.ClearDomainEvents()
	env.defects.defects[defect.DefectID] = defect

	resp := requestJSON(t, env.router, http.MethodPost,
		"/api/v1/defects/"+defect.DefectID+"/approve", map[string]any{"reviewerId": "SUP-1"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var dto application.DefectDTO
	if err := json.Unmarshal(resp.Body.Bytes(), &dto); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if dto.Status != string(domain.DefectStatusApprovedForRework) {
		t.Fatalf("expected approved_for_rework, got %s", dto.Status)
	}
	if first.PlanQuantity != 14 {
		t.Fatalf("expected first stage plan 14, got %d", first.PlanQuantity)
	}
}
