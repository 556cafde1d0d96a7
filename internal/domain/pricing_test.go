package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCatalog is a PriceCatalog backed by maps
type stubCatalog struct {
	productPrices   map[string]CatalogPrice
	stationDefaults map[StationID]CatalogPrice
}

func (c *stubCatalog) ProductPrice(_ context.Context, productID string, station StationID) (CatalogPrice, bool, error) {
	price, ok := c.productPrices[productID+"/"+string(station)]
	return price, ok, nil
}

func (c *stubCatalog) StationDefault(_ context.Context, station StationID) (CatalogPrice, bool, error) {
	price, ok := c.stationDefaults[station]
	return price, ok, nil
}

func newStubCatalog() *stubCatalog {
	return &stubCatalog{
		productPrices:   make(map[string]CatalogPrice),
		stationDefaults: make(map[StationID]CatalogPrice),
	}
}

// TestResolveOverride tests that a custom assignment price wins
func TestResolveOverride(t *testing.T) {
	catalog := newStubCatalog()
	catalog.productPrices["PROD-001/cutting"] = CatalogPrice{UnitPrice: 80.0, PenaltyRate: 40.0}
	resolver := NewPriceResolver(catalog, 100.0, 50.0)

	stage := newTestStage(10)
	custom := 120.0
	task := NewTaskAssignment(stage, "WORKER-001", 10, &custom)

	quote, err := resolver.Resolve(context.Background(), task, stage, nil)
	require.NoError(t, err)
	assert.Equal(t, PriceSourceOverride, quote.Source)
	assert.Equal(t, 120.0, quote.UnitPrice)
	// Penalty still resolves through the catalog
	assert.Equal(t, 40.0, quote.PenaltyRate)
}

// TestResolveProductStation tests the per-product price
func TestResolveProductStation(t *testing.T) {
	catalog := newStubCatalog()
	catalog.productPrices["PROD-001/cutting"] = CatalogPrice{UnitPrice: 75.0, PenaltyRate: 30.0}
	resolver := NewPriceResolver(catalog, 100.0, 50.0)

	stage := newTestStage(10)
	task := NewTaskAssignment(stage, "WORKER-001", 10, nil)

	quote, err := resolver.Resolve(context.Background(), task, stage, nil)
	require.NoError(t, err)
	assert.Equal(t, PriceSourceProductStation, quote.Source)
	assert.Equal(t, 75.0, quote.UnitPrice)
	assert.Equal(t, 30.0, quote.PenaltyRate)
	assert.Nil(t, quote.ExactTotal)
}

// TestResolveStationDefault tests the station-level fallback
func TestResolveStationDefault(t *testing.T) {
	catalog := newStubCatalog()
	catalog.stationDefaults[StationCutting] = CatalogPrice{UnitPrice: 60.0, PenaltyRate: 20.0}
	resolver := NewPriceResolver(catalog, 100.0, 50.0)

	stage := newTestStage(10)
	task := NewTaskAssignment(stage, "WORKER-001", 10, nil)

	quote, err := resolver.Resolve(context.Background(), task, stage, nil)
	require.NoError(t, err)
	assert.Equal(t, PriceSourceStationDefault, quote.Source)
	assert.Equal(t, 60.0, quote.UnitPrice)
	assert.Equal(t, 20.0, quote.PenaltyRate)
}

// TestResolveFallback tests the hardcoded base rates
func TestResolveFallback(t *testing.T) {
	resolver := NewPriceResolver(newStubCatalog(), 100.0, 50.0)

	stage := newTestStage(10)
	task := NewTaskAssignment(stage, "WORKER-001", 10, nil)

	quote, err := resolver.Resolve(context.Background(), task, stage, nil)
	require.NoError(t, err)
	assert.Equal(t, PriceSourceFallback, quote.Source)
	assert.Equal(t, 100.0, quote.UnitPrice)
	assert.Equal(t, PriceSourceFallback, quote.PenaltySource)
	assert.Equal(t, 50.0, quote.PenaltyRate)
}

// TestResolveAggregatedWalk tests the line item walk for aggregated stages
func TestResolveAggregatedWalk(t *testing.T) {
	catalog := newStubCatalog()
	catalog.productPrices["PROD-A/cutting"] = CatalogPrice{UnitPrice: 10.0}
	catalog.productPrices["PROD-B/cutting"] = CatalogPrice{UnitPrice: 20.0}
	resolver := NewPriceResolver(catalog, 100.0, 50.0)

	order := &Order{
		OrderID: "ORD-001",
		LineItems: []LineItem{
			{LineItemID: "ITEM-A", ProductID: "PROD-A", Quantity: 5},
			{LineItemID: "ITEM-B", ProductID: "PROD-B", Quantity: 10},
		},
	}
	stage := NewAggregatedStage("ORD-001", StationCutting, 0, "regular", 15, nil)
	task := NewTaskAssignment(stage, "WORKER-001", 15, nil)
	_, _, err := task.SetProgress(8, 0, nil)
	require.NoError(t, err)

	quote, err := resolver.Resolve(context.Background(), task, stage, order)
	require.NoError(t, err)
	assert.Equal(t, PriceSourceAggregatedWalk, quote.Source)
	require.NotNil(t, quote.ExactTotal)
	// 5 units of PROD-A at 10 then 3 of PROD-B at 20
	assert.Equal(t, 110.0, *quote.ExactTotal)
}

// TestResolveAggregatedWalkFallbackUnits tests units beyond itemized totals
func TestResolveAggregatedWalkFallbackUnits(t *testing.T) {
	catalog := newStubCatalog()
	catalog.productPrices["PROD-A/cutting"] = CatalogPrice{UnitPrice: 10.0}
	resolver := NewPriceResolver(catalog, 100.0, 50.0)

	order := &Order{
		OrderID:   "ORD-001",
		LineItems: []LineItem{{LineItemID: "ITEM-A", ProductID: "PROD-A", Quantity: 2}},
	}
	stage := NewAggregatedStage("ORD-001", StationCutting, 0, "regular", 5, nil)
	task := NewTaskAssignment(stage, "WORKER-001", 5, nil)
	_, _, err := task.SetProgress(4, 0, nil)
	require.NoError(t, err)

	quote, err := resolver.Resolve(context.Background(), task, stage, order)
	require.NoError(t, err)
	require.NotNil(t, quote.ExactTotal)
	// 2 units at 10 plus 2 units at the base rate
	assert.Equal(t, 220.0, *quote.ExactTotal)
}
