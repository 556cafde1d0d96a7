package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// workerDocument is the worker directory entry this service maintains. The
// full worker profile is owned by the HR system; only identity and the
// running piece-rate balance live here.
type workerDocument struct {
	WorkerID  string    `bson:"workerId"`
	Name      string    `bson:"name,omitempty"`
	Balance   float64   `bson:"balance"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

type WorkerRepository struct {
	collection *mongo.Collection
}

func NewWorkerRepository(db *mongo.Database) *WorkerRepository {
	repo := &WorkerRepository{collection: db.Collection("workers")}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	repo.ensureIndexes(ctx)

	return repo
}

func (r *WorkerRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "workerId", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

func (r *WorkerRepository) Exists(ctx context.Context, workerID string) (bool, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"workerId": workerID})
	if err != nil {
		return false, fmt.Errorf("failed to check worker: %w", err)
	}
	return count > 0, nil
}

func (r *WorkerRepository) Balance(ctx context.Context, workerID string) (float64, error) {
	var doc workerDocument
	err := r.collection.FindOne(ctx, bson.M{"workerId": workerID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get worker balance: %w", err)
	}
	return doc.Balance, nil
}

// ApplyBalanceDelta adds the settlement delta to the running balance with a
// single atomic increment.
func (r *WorkerRepository) ApplyBalanceDelta(ctx context.Context, workerID string, delta float64) error {
	filter := bson.M{"workerId": workerID}
	update := bson.M{
		"$inc": bson.M{"balance": delta},
		"$set": bson.M{"updatedAt": time.Now()},
	}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to apply balance delta: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("worker %s not found", workerID)
	}
	return nil
}
