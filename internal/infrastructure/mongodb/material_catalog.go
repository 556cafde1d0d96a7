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

type materialRequirementDocument struct {
	ProductID string `bson:"productId"`
	Station   string `bson:"station"`
	Materials []struct {
		MaterialID string  `bson:"materialId"`
		Name       string  `bson:"name"`
		PerUnit    float64 `bson:"perUnit"`
	} `bson:"materials"`
}

// MaterialCatalog maps a product and station to the materials one produced
// unit consumes.
type MaterialCatalog struct {
	collection *mongo.Collection
}

func NewMaterialCatalog(db *mongo.Database) *MaterialCatalog {
	catalog := &MaterialCatalog{collection: db.Collection("material_requirements")}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	catalog.ensureIndexes(ctx)

	return catalog
}

func (c *MaterialCatalog) ensureIndexes(ctx context.Context) {
	c.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "productId", Value: 1}, {Key: "station", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
}

func (c *MaterialCatalog) Requirements(ctx context.Context, productID string, station domain.StationID) ([]domain.MaterialRequirement, error) {
	var doc materialRequirementDocument
	err := c.collection.FindOne(ctx, bson.M{"productId": productID, "station": station}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up material requirements: %w", err)
	}

	requirements := make([]domain.MaterialRequirement, 0, len(doc.Materials))
	for _, m := range doc.Materials {
		requirements = append(requirements, domain.MaterialRequirement{
			MaterialID: m.MaterialID,
			Name:       m.Name,
			PerUnit:    m.PerUnit,
		})
	}
	return requirements, nil
}
