package domain

import "context"

// PriceSource tags which resolver produced a quote, recorded on the task
// for audit.
type PriceSource string

const (
	PriceSourceOverride       PriceSource = "override"
	PriceSourceProductStation PriceSource = "product_station"
	PriceSourceAggregatedWalk PriceSource = "aggregated_walk"
	PriceSourceStationDefault PriceSource = "station_default"
	PriceSourceFallback       PriceSource = "fallback"
)

// PriceQuote is the outcome of price resolution for one settlement. When
// ExactTotal is set the gross-pay formula uses it directly instead of
// quantity times unit price.
type PriceQuote struct {
	UnitPrice     float64
	PenaltyRate   float64
	Source        PriceSource
	PenaltySource PriceSource
	ExactTotal    *float64
}

// CatalogPrice is a price catalog entry: pay per unit and penalty per
// defective unit.
type CatalogPrice struct {
	UnitPrice   float64
	PenaltyRate float64
}

// PriceCatalog resolves prices from the external pricing collaborator.
type PriceCatalog interface {
	// ProductPrice returns the price for a product at a station.
	ProductPrice(ctx context.Context, productID string, station StationID) (CatalogPrice, bool, error)
	// StationDefault returns the station-level default price.
	StationDefault(ctx context.Context, station StationID) (CatalogPrice, bool, error)
}

// PriceResolver walks the resolution cascade in fixed priority order:
// assignment override, product-at-station price, aggregated line item walk,
// station default, hardcoded fallback.
type PriceResolver struct {
	catalog         PriceCatalog
	baseRate        float64
	basePenaltyRate float64
}

// NewPriceResolver creates a resolver over a catalog with fallback rates.
func NewPriceResolver(catalog PriceCatalog, baseRate, basePenaltyRate float64) *PriceResolver {
	return &PriceResolver{
		catalog:         catalog,
		baseRate:        baseRate,
		basePenaltyRate: basePenaltyRate,
	}
}

// Resolve produces the quote for settling a task against its stage. The
// order parameter is required only for aggregated stages; it may be nil
// otherwise. Resolution never fails outright: a missing price falls through
// to the fallback rate, and the recorded source flags it for audit.
func (r *PriceResolver) Resolve(ctx context.Context, task *TaskAssignment, stage *Stage, order *Order) (PriceQuote, error) {
	penaltyRate, penaltySource, err := r.resolvePenalty(ctx, stage)
	if err != nil {
		return PriceQuote{}, err
	}

	if task.CustomUnitPrice != nil {
		return PriceQuote{
			UnitPrice:     *task.CustomUnitPrice,
			Source:        PriceSourceOverride,
			PenaltyRate:   penaltyRate,
			PenaltySource: penaltySource,
		}, nil
	}

	if !stage.IsAggregated() && stage.ProductID != "" {
		price, ok, err := r.catalog.ProductPrice(ctx, stage.ProductID, stage.Station)
		if err != nil {
			return PriceQuote{}, err
		}
		if ok {
			return PriceQuote{
				UnitPrice:     price.UnitPrice,
				Source:        PriceSourceProductStation,
				PenaltyRate:   penaltyRate,
				PenaltySource: penaltySource,
			}, nil
		}
	}

	if stage.IsAggregated() && order != nil {
		total, err := r.walkLineItems(ctx, order, stage.Station, task.CompletedQuantity)
		if err != nil {
			return PriceQuote{}, err
		}
		return PriceQuote{
			Source:        PriceSourceAggregatedWalk,
			ExactTotal:    &total,
			PenaltyRate:   penaltyRate,
			PenaltySource: penaltySource,
		}, nil
	}

	price, ok, err := r.catalog.StationDefault(ctx, stage.Station)
	if err != nil {
		return PriceQuote{}, err
	}
	if ok {
		return PriceQuote{
			UnitPrice:     price.UnitPrice,
			Source:        PriceSourceStationDefault,
			PenaltyRate:   penaltyRate,
			PenaltySource: penaltySource,
		}, nil
	}

	return PriceQuote{
		UnitPrice:     r.baseRate,
		Source:        PriceSourceFallback,
		PenaltyRate:   penaltyRate,
		PenaltySource: penaltySource,
	}, nil
}

// walkLineItems computes the exact total value of completed units on an
// aggregated stage by consuming them against the order's line items in
// order, each at its own product price. Consumption order is deterministic
// but attributes units to items arbitrarily when products share a stage;
// the documented behavior is kept as is.
func (r *PriceResolver) walkLineItems(ctx context.Context, order *Order, station StationID, completed int) (float64, error) {
	total := 0.0
	remaining := completed
	for _, item := range order.LineItems {
		if remaining <= 0 {
			break
		}
		consumed := item.Quantity
		if consumed > remaining {
			consumed = remaining
		}

		unitPrice := r.baseRate
		price, ok, err := r.catalog.ProductPrice(ctx, item.ProductID, station)
		if err != nil {
			return 0, err
		}
		if ok {
			unitPrice = price.UnitPrice
		}

		total += float64(consumed) * unitPrice
		remaining -= consumed
	}
	// Units beyond the itemized quantities still earn the fallback rate
	if remaining > 0 {
		total += float64(remaining) * r.baseRate
	}
	return total, nil
}

func (r *PriceResolver) resolvePenalty(ctx context.Context, stage *Stage) (float64, PriceSource, error) {
	if !stage.IsAggregated() && stage.ProductID != "" {
		price, ok, err := r.catalog.ProductPrice(ctx, stage.ProductID, stage.Station)
		if err != nil {
			return 0, "", err
		}
		if ok && price.PenaltyRate > 0 {
			return price.PenaltyRate, PriceSourceProductStation, nil
		}
	}

	price, ok, err := r.catalog.StationDefault(ctx, stage.Station)
	if err != nil {
		return 0, "", err
	}
	if ok && price.PenaltyRate > 0 {
		return price.PenaltyRate, PriceSourceStationDefault, nil
	}

	return r.basePenaltyRate, PriceSourceFallback, nil
}
