package events

// Event is anything published on the event bus.
type Event interface {
	Type() string
}

// EventType represents the type of an event in the system.
type EventType string

// Purchase lifecycle events
const (
	EventTypePurchaseCreated  EventType = "Purchase.Created"
	EventTypePurchasePaid     EventType = "Purchase.Paid"
	EventTypePurchaseFailed   EventType = "Purchase.Failed"
	EventTypePurchaseRefunded EventType = "Purchase.Refunded"
)

// String returns the string representation of the event type.
func (et EventType) String() string {
	return string(et)
}

// EventTypes maps each event type to a constructor used when decoding events
// read back from a broker.
var EventTypes = map[EventType]func() Event{
	EventTypePurchaseCreated:  func() Event { return &PurchaseCreated{} },
	EventTypePurchasePaid:     func() Event { return &PurchasePaid{} },
	EventTypePurchaseFailed:   func() Event { return &PurchaseFailed{} },
	EventTypePurchaseRefunded: func() Event { return &PurchaseRefunded{} },
}
