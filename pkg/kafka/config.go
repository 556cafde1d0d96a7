package kafka

import (
	"time"
)

// Config holds Kafka configuration
type Config struct {
	Brokers  []string
	ClientID string

	// Producer settings
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int // 0: no ack, 1: leader ack, -1: all replicas ack
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Brokers:      []string{"localhost:9092"},
		ClientID:     "production-service",
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: -1,
	}
}

// Topics contains the production-service Kafka topic names.
var Topics = struct {
	StageEvents      string
	SettlementEvents string
	DefectEvents     string
	InventoryEvents  string
}{
	StageEvents:      "production.stage.events",
	SettlementEvents: "production.settlement.events",
	DefectEvents:     "production.defect.events",
	InventoryEvents:  "production.inventory.events",
}
