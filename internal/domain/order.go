package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LineItem is one product position of an order.
type LineItem struct {
	LineItemID  string    `bson:"lineItemId" json:"lineItemId"`
	ProductID   string    `bson:"productId" json:"productId"`
	ProductName string    `bson:"productName" json:"productName"`
	Class       ItemClass `bson:"class" json:"class"`
	Quantity    int       `bson:"quantity" json:"quantity"`
	PaintLayers int       `bson:"paintLayers" json:"paintLayers"`
	Size        string    `bson:"size,omitempty" json:"size,omitempty"`
	Color       string    `bson:"color,omitempty" json:"color,omitempty"`
	PackagedQty int       `bson:"packagedQty" json:"packagedQty"`
}

// Order is the customer request that owns line items. Quantities are
// immutable once production stages exist; the routing engine only reads
// them and records packaged output.
type Order struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	OrderID      string             `bson:"orderId" json:"orderId"`
	CustomerName string             `bson:"customerName" json:"customerName"`
	LineItems    []LineItem         `bson:"lineItems" json:"lineItems"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
	DomainEvents []DomainEvent      `bson:"-" json:"-"`
}

// TotalQuantity is the sum of all line item quantities.
func (o *Order) TotalQuantity() int {
	total := 0
	for _, item := range o.LineItems {
		total += item.Quantity
	}
	return total
}

// LineItem finds a line item by ID.
func (o *Order) LineItem(lineItemID string) (*LineItem, bool) {
	for i := range o.LineItems {
		if o.LineItems[i].LineItemID == lineItemID {
			return &o.LineItems[i], true
		}
	}
	return nil, false
}

// RecordPackagedOutput accumulates finished quantity on a line item after
// confirmation at the final station. A nil lineItemID attributes the output
// to the order as a whole and leaves line items untouched.
func (o *Order) RecordPackagedOutput(lineItemID *string, quantity int) {
	now := time.Now()
	subject := o.OrderID
	if lineItemID != nil {
		if item, ok := o.LineItem(*lineItemID); ok {
			item.PackagedQty += quantity
			subject = *lineItemID
		}
	}
	o.UpdatedAt = now

	o.AddDomainEvent(&OrderPackagedEvent{
		OrderID:    o.OrderID,
		LineItemID: subject,
		Quantity:   quantity,
		PackagedAt: now,
	})
}

// AddDomainEvent adds a domain event
func (o *Order) AddDomainEvent(event DomainEvent) {
	o.DomainEvents = append(o.DomainEvents, event)
}

// ClearDomainEvents clears all domain events
func (o *Order) ClearDomainEvents() {
	o.DomainEvents = make([]DomainEvent, 0)
}

// GetDomainEvents returns all domain events
func (o *Order) GetDomainEvents() []DomainEvent {
	return o.DomainEvents
}
