package mqtt

import (
	"fmt"
	"strings"
)

// Topic layout of the resolver bus.
//
//	graylogic/event/<subject>                 events, subject without "event."
//	graylogic/request/<service>/<request_id>  requests to a service
//	graylogic/response/<service>/<request_id> responses from a service
//	graylogic/broadcast/discover              discovery broadcast
//	graylogic/system/status                   retained online/offline status
const (
	// TopicPrefix is the root of every Gray Logic topic.
	TopicPrefix = "graylogic"

	// TopicPrefixEvent is the base for all event topics.
	TopicPrefixEvent = TopicPrefix + "/event"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = TopicPrefix + "/system"

	// EventSubjectPrefix is stripped from event subjects to build topics.
	EventSubjectPrefix = "event."

	// ServiceResolver is the service name used in request/response topics.
	ServiceResolver = "resolver"
)

// Topics provides builders for Gray Logic MQTT topics.
//
//	topic := mqtt.Topics{}.Event("event.system.roomnamechanged")
//	// Returns: "graylogic/event/system.roomnamechanged"
type Topics struct{}

// Event returns the topic carrying an event subject.
//
// Example: graylogic/event/device.announce
func (Topics) Event(subject string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixEvent, strings.TrimPrefix(subject, EventSubjectPrefix))
}

// Request returns the topic for a request to a service.
//
// Example: graylogic/request/resolver/req-abc123
func (Topics) Request(service, requestID string) string {
	return fmt.Sprintf("%s/request/%s/%s", TopicPrefix, service, requestID)
}

// Response returns the topic for a service's response to a request.
//
// Example: graylogic/response/resolver/req-abc123
func (Topics) Response(service, requestID string) string {
	return fmt.Sprintf("%s/response/%s/%s", TopicPrefix, service, requestID)
}

// BroadcastDiscover returns the topic drivers listen on for discovery.
//
// Example: graylogic/broadcast/discover
func (Topics) BroadcastDiscover() string {
	return TopicPrefix + "/broadcast/discover"
}

// SystemStatus returns the system status topic.
//
// Example: graylogic/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// AllEvents returns a pattern matching every event topic.
//
// Pattern: graylogic/event/+
func (Topics) AllEvents() string {
	return TopicPrefixEvent + "/+"
}

// AllRequests returns a pattern matching every request to a service.
//
// Pattern: graylogic/request/resolver/+
func (Topics) AllRequests(service string) string {
	return fmt.Sprintf("%s/request/%s/+", TopicPrefix, service)
}

// SubjectFromTopic maps an event topic back to its subject. It reports
// false for topics outside the event tree.
//
// Example: graylogic/event/device.announce -> event.device.announce
func SubjectFromTopic(topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, TopicPrefixEvent+"/")
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return EventSubjectPrefix + rest, true
}

// LastSegment returns the part of a topic after its final slash.
func LastSegment(topic string) string {
	if i := strings.LastIndexByte(topic, '/'); i >= 0 {
		return topic[i+1:]
	}
	return topic
}
