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

type materialDocument struct {
	MaterialID string    `bson:"materialId"`
	Name       string    `bson:"name,omitempty"`
	Quantity   float64   `bson:"quantity"`
	Unit       string    `bson:"unit,omitempty"`
	UpdatedAt  time.Time `bson:"updatedAt"`
}

type MaterialRepository struct {
	collection *mongo.Collection
}

func NewMaterialRepository(db *mongo.Database) *MaterialRepository {
	repo := &MaterialRepository{collection: db.Collection("materials")}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	repo.ensureIndexes(ctx)

	return repo
}

func (r *MaterialRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "materialId", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

// Deplete debits up to quantity from the material's stock. Stock never goes
// negative; the result reports how much was actually debited so callers can
// raise a shortage warning.
func (r *MaterialRepository) Deplete(ctx context.Context, materialID string, quantity float64) (domain.DepletionResult, error) {
	filter := bson.M{"materialId": materialID}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"quantity":  bson.M{"$max": bson.A{0, bson.M{"$subtract": bson.A{"$quantity", quantity}}}},
			"updatedAt": time.Now(),
		}}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)

	var before materialDocument
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&before)
	if err == mongo.ErrNoDocuments {
		// Unknown material counts as zero stock.
		return domain.DepletionResult{
			MaterialID: materialID,
			Required:   quantity,
		}, nil
	}
	if err != nil {
		return domain.DepletionResult{}, fmt.Errorf("failed to deplete material %s: %w", materialID, err)
	}

	depleted := quantity
	if before.Quantity < quantity {
		depleted = before.Quantity
	}
	return domain.DepletionResult{
		MaterialID: materialID,
		Required:   quantity,
		Depleted:   depleted,
		Remaining:  before.Quantity - depleted,
	}, nil
}
