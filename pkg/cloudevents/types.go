package cloudevents

import (
	"time"
)

// Event type constants for production domain events.
const (
	// Stage events
	StageCreated     = "production.stage.created"
	StageConfirmed   = "production.stage.confirmed"
	StageAdvanced    = "production.stage.advanced"
	StageTransferred = "production.stage.transferred"
	StagePostponed   = "production.stage.postponed"
	StageHeld        = "production.stage.held"

	// Settlement events
	TaskAssigned = "production.task.assigned"
	TaskSettled  = "production.task.settled"

	// Inventory events
	MaterialLowStock = "production.material.low-stock"

	// Order events
	OrderPackaged = "production.order.packaged"

	// Defect events
	DefectReported      = "production.defect.reported"
	DefectApproved      = "production.defect.approved"
	DefectReworkStarted = "production.defect.rework-started"
	DefectReworked      = "production.defect.reworked"
	DefectRejected      = "production.defect.rejected"
	DefectReplenished   = "production.defect.replenished"
)

// CloudEvent follows the CloudEvents 1.0 envelope for production events.
type CloudEvent struct {
	SpecVersion     string                 `json:"specversion" bson:"specversion"`
	Type            string                 `json:"type" bson:"type"`
	Source          string                 `json:"source" bson:"source"`
	Subject         string                 `json:"subject,omitempty" bson:"subject,omitempty"`
	ID              string                 `json:"id" bson:"id"`
	Time            time.Time              `json:"time" bson:"time"`
	DataContentType string                 `json:"datacontenttype" bson:"datacontenttype"`
	Data            interface{}            `json:"data" bson:"data"`
	Extensions      map[string]interface{} `json:"extensions,omitempty" bson:"extensions,omitempty"`
}
