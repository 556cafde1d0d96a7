package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/factory-platform/production-service/internal/domain"
	"github.com/factory-platform/production-service/pkg/cloudevents"
	"github.com/factory-platform/production-service/pkg/kafka"
	"github.com/factory-platform/production-service/pkg/outbox"
	outboxMongo "github.com/factory-platform/production-service/pkg/outbox/mongodb"
)

type StageRepository struct {
	collection   *mongo.Collection
	outboxRepo   *outboxMongo.OutboxRepository
	eventFactory *cloudevents.EventFactory
}

func NewStageRepository(db *mongo.Database, eventFactory *cloudevents.EventFactory) *StageRepository {
	repo := &StageRepository{
		collection:   db.Collection("stages"),
		outboxRepo:   outboxMongo.NewOutboxRepository(db),
		eventFactory: eventFactory,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	repo.ensureIndexes(ctx)
	_ = repo.outboxRepo.EnsureIndexes(ctx)

	return repo
}

func (r *StageRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "stageId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "orderId", Value: 1}, {Key: "sequence", Value: 1}}},
		{Keys: bson.D{{Key: "orderId", Value: 1}, {Key: "station", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

// Save upserts the stage and writes its pending domain events to the outbox
// with the same context, so both land in the caller's transaction.
func (r *StageRepository) Save(ctx context.Context, stage *domain.Stage) error {
	stage.UpdatedAt = time.Now()

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"stageId": stage.StageID}
	if _, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": stage}, opts); err != nil {
		return fmt.Errorf("failed to save stage: %w", err)
	}

	if err := r.saveEvents(ctx, stage); err != nil {
		return err
	}
	stage.ClearDomainEvents()
	return nil
}

func (r *StageRepository) saveEvents(ctx context.Context, stage *domain.Stage) error {
	domainEvents := stage.GetDomainEvents()
	if len(domainEvents) == 0 {
		return nil
	}

	outboxEvents := make([]*outbox.OutboxEvent, 0, len(domainEvents))
	for _, event := range domainEvents {
		var cloudEvent *cloudevents.CloudEvent
		switch e := event.(type) {
		case *domain.StageCreatedEvent:
			cloudEvent = r.eventFactory.CreateEvent(ctx, e.EventType(), "stage/"+e.StageID, e)
		case *domain.StageConfirmedEvent:
			cloudEvent = r.eventFactory.CreateEvent(ctx, e.EventType(), "stage/"+e.StageID, e)
		case *domain.StageAdvancedEvent:
			cloudEvent = r.eventFactory.CreateEvent(ctx, e.EventType(), "stage/"+e.StageID, e)
		case *domain.StageTransferredEvent:
			cloudEvent = r.eventFactory.CreateEvent(ctx, e.EventType(), "stage/"+e.StageID, e)
		case *domain.StagePostponedEvent:
			cloudEvent = r.eventFactory.CreateEvent(ctx, e.EventType(), "stage/"+e.StageID, e)
		case *domain.StageHeldEvent:
			cloudEvent = r.eventFactory.CreateEvent(ctx, e.EventType(), "stage/"+e.StageID, e)
		default:
			continue
		}

		outboxEvent, err := outbox.NewOutboxEventFromCloudEvent(
			stage.StageID, "Stage", kafka.Topics.StageEvents, cloudEvent)
		if err != nil {
			return fmt.Errorf("failed to create outbox event: %w", err)
		}
		outboxEvents = append(outboxEvents, outboxEvent)
	}

	if len(outboxEvents) > 0 {
		if err := r.outboxRepo.SaveAll(ctx, outboxEvents); err != nil {
			return fmt.Errorf("failed to save outbox events: %w", err)
		}
	}
	return nil
}

func (r *StageRepository) FindByStageID(ctx context.Context, stageID string) (*domain.Stage, error) {
	var stage domain.Stage
	err := r.collection.FindOne(ctx, bson.M{"stageId": stageID}).Decode(&stage)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &stage, err
}

func (r *StageRepository) FindActive(ctx context.Context, orderID string, lineItemID *string, station domain.StationID, group string) (*domain.Stage, error) {
	filter := bson.M{
		"orderId":       orderID,
		"station":       station,
		"parallelGroup": group,
		"status":        domain.StageStatusInProgress,
	}
	if lineItemID == nil {
		filter["lineItemId"] = bson.M{"$exists": false}
	} else {
		filter["lineItemId"] = *lineItemID
	}

	var stage domain.Stage
	err := r.collection.FindOne(ctx, filter).Decode(&stage)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &stage, err
}

func (r *StageRepository) FindFirstByOrder(ctx context.Context, orderID string) (*domain.Stage, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "sequence", Value: 1}})
	var stage domain.Stage
	err := r.collection.FindOne(ctx, bson.M{"orderId": orderID}, opts).Decode(&stage)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &stage, err
}

func (r *StageRepository) FindReworkStage(ctx context.Context, orderID string, station domain.StationID) (*domain.Stage, error) {
	filter := bson.M{
		"orderId":  orderID,
		"station":  station,
		"sequence": domain.ReworkSequence,
		"status":   domain.StageStatusInProgress,
	}
	var stage domain.Stage
	err := r.collection.FindOne(ctx, filter).Decode(&stage)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &stage, err
}

func (r *StageRepository) ListByOrder(ctx context.Context, orderID string) ([]*domain.Stage, error) {
	opts := options.Find().SetSort(bson.D{{Key: "sequence", Value: 1}, {Key: "createdAt", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"orderId": orderID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var stages []*domain.Stage
	err = cursor.All(ctx, &stages)
	return stages, err
}
