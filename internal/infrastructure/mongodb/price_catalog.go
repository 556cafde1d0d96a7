package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/factory-platform/production-service/internal/domain"
)

type priceRuleDocument struct {
	ProductID   string  `bson:"productId,omitempty"`
	Station     string  `bson:"station"`
	UnitPrice   float64 `bson:"unitPrice"`
	PenaltyRate float64 `bson:"penaltyRate"`
}

// PriceCatalog resolves piece-rate prices from two collections: per-product
// rules keyed by product and station, and station-wide defaults keyed by
// station alone.
type PriceCatalog struct {
	productPrices   *mongo.Collection
	stationDefaults *mongo.Collection
}

func NewPriceCatalog(db *mongo.Database) *PriceCatalog {
	catalog := &PriceCatalog{
		productPrices:   db.Collection("product_prices"),
		stationDefaults: db.Collection("station_prices"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	catalog.ensureIndexes(ctx)

	return catalog
}

func (c *PriceCatalog) ensureIndexes(ctx context.Context) {
	c.productPrices.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "productId", Value: 1}, {Key: "station", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	c.stationDefaults.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "station", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
}

func (c *PriceCatalog) ProductPrice(ctx context.Context, productID string, station domain.StationID) (domain.CatalogPrice, bool, error) {
	var doc priceRuleDocument
	err := c.productPrices.FindOne(ctx, bson.M{"productId": productID, "station": station}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return domain.CatalogPrice{}, false, nil
	}
	if err != nil {
		return domain.CatalogPrice{}, false, fmt.Errorf("failed to look up product price: %w", err)
	}
	return domain.CatalogPrice{UnitPrice: doc.UnitPrice, PenaltyRate: doc.PenaltyRate}, true, nil
}

func (c *PriceCatalog) StationDefault(ctx context.Context, station domain.StationID) (domain.CatalogPrice, bool, error) {
	var doc priceRuleDocument
	err := c.stationDefaults.FindOne(ctx, bson.M{"station": station}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return domain.CatalogPrice{}, false, nil
	}
	if err != nil {
		return domain.CatalogPrice{}, false, fmt.Errorf("failed to look up station price: %w", err)
	}
	return domain.CatalogPrice{UnitPrice: doc.UnitPrice, PenaltyRate: doc.PenaltyRate}, true, nil
}
