package resolver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nerrad567/gray-logic-resolver/internal/bus"
	"github.com/nerrad567/gray-logic-resolver/internal/infrastructure/mqtt"
)

// Attach subscribes the resolver to events and to its request topic.
// Bus handlers only parse messages and hand them to the reactor, so ctx
// must outlive the subscriptions.
func (r *Resolver) Attach(ctx context.Context) error {
	if r.bus == nil {
		return fmt.Errorf("resolver has no bus")
	}
	topics := mqtt.Topics{}

	if err := r.bus.Subscribe(topics.AllEvents(), qos, func(topic string, payload []byte) {
		r.onEventMessage(ctx, topic, payload)
	}); err != nil {
		return fmt.Errorf("subscribing to events: %w", err)
	}

	if err := r.bus.Subscribe(topics.AllRequests(mqtt.ServiceResolver), qos, func(topic string, payload []byte) {
		r.onRequestMessage(ctx, topic, payload)
	}); err != nil {
		return fmt.Errorf("subscribing to requests: %w", err)
	}

	r.logger.Info("resolver attached to bus", "uuid", r.uuid)
	return nil
}

// Labels for messages dropped on a full reactor queue.
const (
	dropEvent   = "event"
	dropRequest = "request"
)

func (r *Resolver) onEventMessage(ctx context.Context, topic string, payload []byte) {
	subject, ok := mqtt.SubjectFromTopic(topic)
	if !ok {
		r.logger.Debug("ignoring message outside the event tree", "topic", topic)
		return
	}
	ev, err := bus.ParseEvent(subject, payload)
	if err != nil {
		r.logger.Warn("dropping malformed event", "topic", topic, "error", err)
		return
	}
	if ctx.Err() != nil {
		return
	}
	if !r.TryEnqueue(func(ctx context.Context) {
		_ = r.HandleEvent(ctx, ev)
	}) {
		r.metrics.MessageDropped(dropEvent)
		r.logger.Warn("reactor queue full, event dropped", "subject", subject)
	}
}

func (r *Resolver) onRequestMessage(ctx context.Context, topic string, payload []byte) {
	req, parseErr := bus.ParseRequest(payload, mqtt.LastSegment(topic))
	if req.RequestID == "" {
		req.RequestID = mqtt.LastSegment(topic)
	}
	if ctx.Err() != nil {
		return
	}

	if !r.TryEnqueue(func(ctx context.Context) {
		var resp bus.Response
		if parseErr != nil {
			resp = bus.NewErrorResponse(req.RequestID, bus.ErrCodeInvalidParameters, parseErr.Error(), r.now())
		} else {
			resp = r.HandleRequest(ctx, req)
		}
		r.respond(resp)
	}) {
		r.metrics.MessageDropped(dropRequest)
		r.logger.Warn("reactor queue full, request dropped", "request_id", req.RequestID, "command", req.Command)
	}
}

// respond publishes resp on the request's response topic. A response that
// cannot be encoded is replaced by a FAILED one so the caller still gets
// an answer.
func (r *Resolver) respond(resp bus.Response) {
	topic := mqtt.Topics{}.Response(mqtt.ServiceResolver, resp.RequestID)
	payload, err := json.Marshal(resp)
	if err != nil {
		r.logger.Error("failed to encode response", "request_id", resp.RequestID, "error", err)
		payload, err = json.Marshal(bus.NewErrorResponse(resp.RequestID, bus.ErrCodeFailed, "response could not be encoded", r.now()))
		if err != nil {
			return
		}
	}
	if err := r.publishRaw(topic, payload); err != nil {
		r.logger.Error("failed to publish response", "request_id", resp.RequestID, "error", err)
	}
}
