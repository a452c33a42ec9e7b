package kafka

import "time"

// Config carries the broker settings shared by producers and consumers.
// RequiredAcks follows the kafka convention: 0 fire-and-forget, 1 leader
// only, -1 all in-sync replicas.
type Config struct {
	Brokers       []string
	ConsumerGroup string
	ClientID      string

	// Producer side
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int

	// Consumer side
	MinBytes      int
	MaxBytes      int
	MaxWait       time.Duration
	CommitTimeout time.Duration
}

// DefaultConfig targets a single local broker with full acks and small
// batches so events surface promptly during development.
func DefaultConfig() *Config {
	return &Config{
		Brokers:       []string{"localhost:9092"},
		ConsumerGroup: "import-schedule-service",
		ClientID:      "import-schedule",

		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: -1,

		MinBytes:      1,
		MaxBytes:      10e6,
		MaxWait:       500 * time.Millisecond,
		CommitTimeout: 5 * time.Second,
	}
}

// Topics names the streams the import-schedule service publishes to and
// consumes from. Shipment events are keyed by shipment ID, so per-shipment
// ordering holds within a partition.
var Topics = struct {
	ShipmentEvents     string
	WarehouseEvents    string
	NotificationEvents string
}{
	ShipmentEvents:     "imports.shipment.events",
	WarehouseEvents:    "imports.warehouse.events",
	NotificationEvents: "imports.notification.events",
}
