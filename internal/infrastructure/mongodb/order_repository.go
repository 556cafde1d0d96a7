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

type OrderRepository struct {
	collection   *mongo.Collection
	outboxRepo   *outboxMongo.OutboxRepository
	eventFactory *cloudevents.EventFactory
}

func NewOrderRepository(db *mongo.Database, eventFactory *cloudevents.EventFactory) *OrderRepository {
	repo := &OrderRepository{
		collection:   db.Collection("orders"),
		outboxRepo:   outboxMongo.NewOutboxRepository(db),
		eventFactory: eventFactory,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	repo.ensureIndexes(ctx)

	return repo
}

func (r *OrderRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "orderId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "lineItems.productId", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

func (r *OrderRepository) Save(ctx context.Context, order *domain.Order) error {
	order.UpdatedAt = time.Now()

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"orderId": order.OrderID}
	if _, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": order}, opts); err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}

	if err := r.saveEvents(ctx, order); err != nil {
		return err
	}
	order.ClearDomainEvents()
	return nil
}

func (r *OrderRepository) saveEvents(ctx context.Context, order *domain.Order) error {
	domainEvents := order.GetDomainEvents()
	if len(domainEvents) == 0 {
		return nil
	}

	outboxEvents := make([]*outbox.OutboxEvent, 0, len(domainEvents))
	for _, event := range domainEvents {
		e, ok := event.(*domain.OrderPackagedEvent)
		if !ok {
			continue
		}
		cloudEvent := r.eventFactory.CreateEvent(ctx, e.EventType(), "order/"+e.OrderID, e)

		outboxEvent, err := outbox.NewOutboxEventFromCloudEvent(
			order.OrderID, "Order", kafka.Topics.StageEvents, cloudEvent)
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

func (r *OrderRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.Order, error) {
	var order domain.Order
	err := r.collection.FindOne(ctx, bson.M{"orderId": orderID}).Decode(&order)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &order, err
}
