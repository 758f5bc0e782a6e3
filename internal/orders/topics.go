package orders

const (
	TopicOrderCreated       = "order.created"
	TopicOrderStatusChanged = "order.status.changed"
)

// TopicFor maps an event type to its topic.
func TopicFor(eventType string) string {
	if eventType == EventOrderCreated {
		return TopicOrderCreated
	}
	return TopicOrderStatusChanged
}

// Partition key = order id, so every event of one order keeps its order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
