package eventbus

import (
	"errors"
	"fmt"
	"strings"

	"github.com/amirasaad/tripledger/pkg/domain/events"
)

var errUnknownEventType = errors.New("unknown event type")

const defaultTopicPrefix = "tripledger.events"

// streamNameFor returns the Redis stream for the event type,
// e.g. "events:purchase:paid".
func streamNameFor(eventType events.EventType) string {
	return nameFor("events", eventType)
}

// dlqStreamName returns the DLQ stream name for the given event type.
func dlqStreamName(eventType events.EventType) string {
	return nameFor("dlq", eventType)
}

// groupNameFor returns the Redis consumer group name for the event type.
func groupNameFor(group string, eventType events.EventType) string {
	return nameFor(group, eventType)
}

func nameFor(prefix string, eventType events.EventType) string {
	parts := strings.Split(eventType.String(), ".")
	if len(parts) == 2 {
		return fmt.Sprintf(
			"%s:%s:%s",
			prefix,
			strings.ToLower(parts[0]),
			strings.ToLower(parts[1]))
	}
	return fmt.Sprintf("%s:%s", prefix, strings.ToLower(eventType.String()))
}

func topicNameFor(prefix string, eventType events.EventType) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultTopicPrefix
	}
	return fmt.Sprintf("%s.%s", prefix, strings.ToLower(eventType.String()))
}

func dlqTopicNameFor(prefix string, eventType events.EventType) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultTopicPrefix
	}
	return fmt.Sprintf("%s.dlq.%s", prefix, strings.ToLower(eventType.String()))
}

func parseBrokers(brokers string) []string {
	parts := strings.Split(brokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
