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

type TaskRepository struct {
	collection   *mongo.Collection
	outboxRepo   *outboxMongo.OutboxRepository
	eventFactory *cloudevents.EventFactory
}

func NewTaskRepository(db *mongo.Database, eventFactory *cloudevents.EventFactory) *TaskRepository {
	repo := &TaskRepository{
		collection:   db.Collection("task_assignments"),
		outboxRepo:   outboxMongo.NewOutboxRepository(db),
		eventFactory: eventFactory,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	repo.ensureIndexes(ctx)

	return repo
}

func (r *TaskRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "taskId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "stageId", Value: 1}, {Key: "workerId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "workerId", Value: 1}}},
		{Keys: bson.D{{Key: "orderId", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

func (r *TaskRepository) Save(ctx context.Context, task *domain.TaskAssignment) error {
	task.UpdatedAt = time.Now()

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"taskId": task.TaskID}
	if _, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": task}, opts); err != nil {
		return fmt.Errorf("failed to save task assignment: %w", err)
	}

	if err := r.saveEvents(ctx, task); err != nil {
		return err
	}
	task.ClearDomainEvents()
	return nil
}

func (r *TaskRepository) saveEvents(ctx context.Context, task *domain.TaskAssignment) error {
	domainEvents := task.GetDomainEvents()
	if len(domainEvents) == 0 {
		return nil
	}

	outboxEvents := make([]*outbox.OutboxEvent, 0, len(domainEvents))
	for _, event := range domainEvents {
		var cloudEvent *cloudevents.CloudEvent
		topic := kafka.Topics.SettlementEvents
		switch e := event.(type) {
		case *domain.TaskAssignedEvent:
			cloudEvent = r.eventFactory.CreateEvent(ctx, e.EventType(), "task/"+e.TaskID, e)
		case *domain.TaskSettledEvent:
			cloudEvent = r.eventFactory.CreateEvent(ctx, e.EventType(), "task/"+e.TaskID, e)
		case *domain.MaterialLowStockEvent:
			// Stock shortages belong to the inventory stream, not payroll.
			cloudEvent = r.eventFactory.CreateEvent(ctx, e.EventType(), "material/"+e.MaterialID, e)
			topic = kafka.Topics.InventoryEvents
		default:
			continue
		}

		outboxEvent, err := outbox.NewOutboxEventFromCloudEvent(
			task.TaskID, "TaskAssignment", topic, cloudEvent)
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

func (r *TaskRepository) FindByTaskID(ctx context.Context, taskID string) (*domain.TaskAssignment, error) {
	var task domain.TaskAssignment
	err := r.collection.FindOne(ctx, bson.M{"taskId": taskID}).Decode(&task)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &task, err
}

func (r *TaskRepository) FindByStageAndWorker(ctx context.Context, stageID, workerID string) (*domain.TaskAssignment, error) {
	var task domain.TaskAssignment
	err := r.collection.FindOne(ctx, bson.M{"stageId": stageID, "workerId": workerID}).Decode(&task)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &task, err
}

func (r *TaskRepository) SumAssigned(ctx context.Context, stageID string) (int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"stageId": stageID}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$assignedQuantity"},
		}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to sum assigned quantity: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total int `bson:"total"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return 0, err
	}
	if len(results) == 0 {
		return 0, nil
	}
	return results[0].Total, nil
}

func (r *TaskRepository) ListByStage(ctx context.Context, stageID string) ([]*domain.TaskAssignment, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"stageId": stageID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var tasks []*domain.TaskAssignment
	err = cursor.All(ctx, &tasks)
	return tasks, err
}
