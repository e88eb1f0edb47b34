package types

// OutboxStatus is the delivery state of an outbox message
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusDelivered OutboxStatus = "delivered"
	// OutboxStatusFailed messages exhausted their attempts and need operator attention
	OutboxStatusFailed OutboxStatus = "failed"
)

// NotificationEventType names the event carried by an invoice notification
type NotificationEventType string

const (
	NotificationEventInvoiceCreated NotificationEventType = "invoice.created"
)
