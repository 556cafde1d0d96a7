package application

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/factory-platform/production-service/internal/domain"
	"github.com/factory-platform/production-service/pkg/logging"
)

// passTx runs the function directly, standing in for a Mongo session.
type passTx struct{}

func (passTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memStageRepo struct {
	mu     sync.Mutex
	stages map[string]*domain.Stage
}

func newMemStageRepo() *memStageRepo {
	return &memStageRepo{stages: make(map[string]*domain.Stage)}
}

func (r *memStageRepo) Save(_ context.Context, stage *domain.Stage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages[stage.StageID] = stage
	stage.ClearDomainEvents()
	return nil
}

func (r *memStageRepo) FindByStageID(_ context.Context, stageID string) (*domain.Stage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stages[stageID], nil
}

func (r *memStageRepo) FindActive(_ context.Context, orderID string, lineItemID *string, station domain.StationID, group string) (*domain.Stage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.stages {
		if s.OrderID != orderID || s.Station != station || s.ParallelGroup != group || !s.IsActive() {
			continue
		}
		if lineItemID == nil && s.LineItemID == nil {
			return s, nil
		}
		if lineItemID != nil && s.LineItemID != nil && *lineItemID == *s.LineItemID {
			return s, nil
		}
	}
	return nil, nil
}

func (r *memStageRepo) FindFirstByOrder(_ context.Context, orderID string) (*domain.Stage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var first *domain.Stage
	for _, s := range r.stages {
		if s.OrderID != orderID {
			continue
		}
		if first == nil || s.Sequence < first.Sequence {
			first = s
		}
	}
	return first, nil
}

func (r *memStageRepo) FindReworkStage(_ context.Context, orderID string, station domain.StationID) (*domain.Stage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.stages {
		if s.OrderID == orderID && s.Station == station && s.Sequence == domain.ReworkSequence && s.IsActive() {
			return s, nil
		}
	}
	return nil, nil
}

func (r *memStageRepo) ListByOrder(_ context.Context, orderID string) ([]*domain.Stage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Stage
	for _, s := range r.stages {
		if s.OrderID == orderID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

func (r *memStageRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stages)
}

type memTaskRepo struct {
	mu    sync.Mutex
	tasks map[string]*domain.TaskAssignment
}

func newMemTaskRepo() *memTaskRepo {
	return &memTaskRepo{tasks: make(map[string]*domain.TaskAssignment)}
}

func (r *memTaskRepo) Save(_ context.Context, task *domain.TaskAssignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[task.TaskID] = task
	task.ClearDomainEvents()
	return nil
}

func (r *memTaskRepo) FindByTaskID(_ context.Context, taskID string) (*domain.TaskAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tasks[taskID], nil
}

func (r *memTaskRepo) FindByStageAndWorker(_ context.Context, stageID, workerID string) (*domain.TaskAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tasks {
		if t.StageID == stageID && t.WorkerID == workerID {
			return t, nil
		}
	}
	return nil, nil
}

func (r *memTaskRepo) SumAssigned(_ context.Context, stageID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := 0
	for _, t := range r.tasks {
		if t.StageID == stageID {
			sum += t.AssignedQuantity
		}
	}
	return sum, nil
}

func (r *memTaskRepo) ListByStage(_ context.Context, stageID string) ([]*domain.TaskAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.TaskAssignment
	for _, t := range r.tasks {
		if t.StageID == stageID {
			out = append(out, t)
		}
	}
	return out, nil
}

type memDefectRepo struct {
	mu      sync.Mutex
	defects map[string]*domain.Defect
}

func newMemDefectRepo() *memDefectRepo {
	return &memDefectRepo{defects: make(map[string]*domain.Defect)}
}

func (r *memDefectRepo) Save(_ context.Context, defect *domain.Defect) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defects[defect.DefectID] = defect
	defect.ClearDomainEvents()
	return nil
}

func (r *memDefectRepo) FindByDefectID(_ context.Context, defectID string) (*domain.Defect, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.defects[defectID], nil
}

func (r *memDefectRepo) List(_ context.Context, filter domain.DefectFilter) ([]*domain.Defect, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Defect
	for _, d := range r.defects {
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

func (r *memDefectRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.defects)
}

type memOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: make(map[string]*domain.Order)}
}

func (r *memOrderRepo) Save(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.OrderID] = order
	order.ClearDomainEvents()
	return nil
}

func (r *memOrderRepo) FindByOrderID(_ context.Context, orderID string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.orders[orderID], nil
}

type memWorkerRepo struct {
	mu       sync.Mutex
	balances map[string]float64
}

func newMemWorkerRepo(workerIDs ...string) *memWorkerRepo {
	r := &memWorkerRepo{balances: make(map[string]float64)}
	for _, id := range workerIDs {
		r.balances[id] = 0
	}
	return r
}

func (r *memWorkerRepo) Exists(_ context.Context, workerID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.balances[workerID]
	return ok, nil
}

func (r *memWorkerRepo) Balance(_ context.Context, workerID string) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.balances[workerID], nil
}

func (r *memWorkerRepo) ApplyBalanceDelta(_ context.Context, workerID string, delta float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[workerID] += delta
	return nil
}

type memMaterialRepo struct {
	mu    sync.Mutex
	stock map[string]float64
}

func newMemMaterialRepo() *memMaterialRepo {
	return &memMaterialRepo{stock: make(map[string]float64)}
}

func (r *memMaterialRepo) Deplete(_ context.Context, materialID string, quantity float64) (domain.DepletionResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	available := r.stock[materialID]
	depleted := quantity
	if depleted > available {
		depleted = available
	}
	r.stock[materialID] = available - depleted
	return domain.DepletionResult{
		MaterialID: materialID,
		Required:   quantity,
		Depleted:   depleted,
		Remaining:  available - depleted,
	}, nil
}

type memMaterialCatalog struct {
	requirements map[string][]domain.MaterialRequirement
}

func newMemMaterialCatalog() *memMaterialCatalog {
	return &memMaterialCatalog{requirements: make(map[string][]domain.MaterialRequirement)}
}

func (c *memMaterialCatalog) set(productID string, station domain.StationID, reqs ...domain.MaterialRequirement) {
	c.requirements[productID+"/"+string(station)] = reqs
}

func (c *memMaterialCatalog) Requirements(_ context.Context, productID string, station domain.StationID) ([]domain.MaterialRequirement, error) {
	return c.requirements[productID+"/"+string(station)], nil
}

type memPriceCatalog struct {
	productPrices   map[string]domain.CatalogPrice
	stationDefaults map[domain.StationID]domain.CatalogPrice
}

func newMemPriceCatalog() *memPriceCatalog {
	return &memPriceCatalog{
		productPrices:   make(map[string]domain.CatalogPrice),
		stationDefaults: make(map[domain.StationID]domain.CatalogPrice),
	}
}

func (c *memPriceCatalog) ProductPrice(_ context.Context, productID string, station domain.StationID) (domain.CatalogPrice, bool, error) {
	price, ok := c.productPrices[productID+"/"+string(station)]
	return price, ok, nil
}

func (c *memPriceCatalog) StationDefault(_ context.Context, station domain.StationID) (domain.CatalogPrice, bool, error) {
	price, ok := c.stationDefaults[station]
	return price, ok, nil
}

// fixture bundles the in-memory collaborators behind all three services.
type fixture struct {
	stages    *memStageRepo
	tasks     *memTaskRepo
	defects   *memDefectRepo
	orders    *memOrderRepo
	workers   *memWorkerRepo
	materials *memMaterialRepo
	matCat    *memMaterialCatalog
	priceCat  *memPriceCatalog
	graph     *domain.WorkshopGraph

	routing    *RoutingService
	settlement *SettlementService
	defectsSvc *DefectService
}

func newFixture(workerIDs ...string) *fixture {
	logger := logging.New(logging.DefaultConfig("test"))
	f := &fixture{
		stages:    newMemStageRepo(),
		tasks:     newMemTaskRepo(),
		defects:   newMemDefectRepo(),
		orders:    newMemOrderRepo(),
		workers:   newMemWorkerRepo(workerIDs...),
		materials: newMemMaterialRepo(),
		matCat:    newMemMaterialCatalog(),
		priceCat:  newMemPriceCatalog(),
		graph:     domain.NewWorkshopGraph(),
	}
	resolver := domain.NewPriceResolver(f.priceCat, 100.0, 50.0)
	tx := passTx{}

	f.routing = NewRoutingService(f.stages, f.orders, f.graph, tx, logger)
	f.settlement = NewSettlementService(f.tasks, f.stages, f.orders, f.defects, f.workers,
		f.materials, f.matCat, resolver, f.graph, tx, logger)
	f.defectsSvc = NewDefectService(f.defects, f.stages, f.tasks, f.settlement, f.graph, tx, logger)
	return f
}

func hasWarningContaining(warnings []string, substr string) bool {
	for _, w := range warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}
