package types

// PubSubType defines the type of pubsub implementation
type PubSubType string

const (
	// MemoryPubSub uses in-memory implementation
	MemoryPubSub PubSubType = "memory"

	// KafkaPubSub uses Kafka implementation
	KafkaPubSub PubSubType = "kafka"
)

// NotificationSinkType selects where invoice notifications are delivered
type NotificationSinkType string

const (
	NotificationSinkPubSub  NotificationSinkType = "pubsub"
	NotificationSinkWebhook NotificationSinkType = "webhook"
)

// LockBackend selects the lease store guarding invoicing runs
type LockBackend string

const (
	// LockBackendMemory is only safe for single process deployments
	LockBackendMemory   LockBackend = "memory"
	LockBackendPostgres LockBackend = "postgres"
	LockBackendDynamoDB LockBackend = "dynamodb"
)
