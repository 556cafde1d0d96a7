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

type DefectRepository struct {
	collection   *mongo.Collection
	outboxRepo   *outboxMongo.OutboxRepository
	eventFactory *cloudevents.EventFactory
}

func NewDefectRepository(db *mongo.Database, eventFactory *cloudevents.EventFactory) *DefectRepository {
	repo := &DefectRepository{
		collection:   db.Collection("defects"),
		outboxRepo:   outboxMongo.NewOutboxRepository(db),
		eventFactory: eventFactory,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	repo.ensureIndexes(ctx)

	return repo
}

func (r *DefectRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "defectId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "orderId", Value: 1}}},
		{Keys: bson.D{{Key: "workerId", Value: 1}}},
		{Keys: bson.D{{Key: "station", Value: 1}, {Key: "status", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

func (r *DefectRepository) Save(ctx context.Context, defect *domain.Defect) error {
	defect.UpdatedAt = time.Now()

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"defectId": defect.DefectID}
	if _, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": defect}, opts); err != nil {
		return fmt.Errorf("failed to save defect: %w", err)
	}

	if err := r.saveEvents(ctx, defect); err != nil {
		return err
	}
	defect.ClearDomainEvents()
	return nil
}

func (r *DefectRepository) saveEvents(ctx context.Context, defect *domain.Defect) error {
	domainEvents := defect.GetDomainEvents()
	if len(domainEvents) == 0 {
		return nil
	}

	outboxEvents := make([]*outbox.OutboxEvent, 0, len(domainEvents))
	for _, event := range domainEvents {
		var cloudEvent *cloudevents.CloudEvent
		switch e := event.(type) {
		case *domain.DefectReportedEvent:
			cloudEvent = r.eventFactory.CreateEvent(ctx, e.EventType(), "defect/"+e.DefectID, e)
		case *domain.DefectApprovedEvent:
			cloudEvent = r.eventFactory.CreateEvent(ctx, e.EventType(), "defect/"+e.DefectID, e)
		case *domain.DefectReworkStartedEvent:
			cloudEvent = r.eventFactory.CreateEvent(ctx, e.EventType(), "defect/"+e.DefectID, e)
		case *domain.DefectReworkedEvent:
			cloudEvent = r.eventFactory.CreateEvent(ctx, e.EventType(), "defect/"+e.DefectID, e)
		case *domain.DefectRejectedEvent:
			cloudEvent = r.eventFactory.CreateEvent(ctx, e.EventType(), "defect/"+e.DefectID, e)
		case *domain.DefectReplenishedEvent:
			cloudEvent = r.eventFactory.CreateEvent(ctx, e.EventType(), "defect/"+e.DefectID, e)
		default:
			continue
		}

		outboxEvent, err := outbox.NewOutboxEventFromCloudEvent(
			defect.DefectID, "Defect", kafka.Topics.DefectEvents, cloudEvent)
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

func (r *DefectRepository) FindByDefectID(ctx context.Context, defectID string) (*domain.Defect, error) {
	var defect domain.Defect
	err := r.collection.FindOne(ctx, bson.M{"defectId": defectID}).Decode(&defect)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &defect, err
}

func (r *DefectRepository) List(ctx context.Context, filter domain.DefectFilter) ([]*domain.Defect, error) {
	query := bson.M{}
	if filter.Status != nil {
		query["status"] = *filter.Status
	}
	if filter.Station != nil {
		query["station"] = *filter.Station
	}
	if filter.OrderID != nil {
		query["orderId"] = *filter.OrderID
	}
	if filter.WorkerID != nil {
		query["workerId"] = *filter.WorkerID
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var defects []*domain.Defect
	err = cursor.All(ctx, &defects)
	return defects, err
}
