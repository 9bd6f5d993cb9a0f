package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"checkout-builder/internal/models"
	"checkout-builder/internal/util"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventSink receives encoded events keyed for partitioning
type EventSink interface {
	PublishEvent(ctx context.Context, key string, event interface{}) error
}

// EventPublisher handles publishing row change events
type EventPublisher struct {
	sink EventSink
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(sink EventSink) *EventPublisher {
	return &EventPublisher{sink: sink}
}

// NewChangeEvent builds a change event for a row; record may be nil for deletes
func NewChangeEvent(table, action, recordID, channelKey, userID string, record interface{}) (*models.ChangeEvent, error) {
	event := &models.ChangeEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeRowChanged,
			Timestamp: time.Now().UTC(),
		},
		Table:      table,
		Action:     action,
		RecordID:   recordID,
		ChannelKey: channelKey,
		UserID:     userID,
	}

	if record != nil {
		raw, err := json.Marshal(record)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s record: %w", table, err)
		}
		event.Record = raw
	}
	return event, nil
}

// PublishChange publishes a change event keyed by its channel
func (ep *EventPublisher) PublishChange(ctx context.Context, event *models.ChangeEvent) error {
	if err := ep.sink.PublishEvent(ctx, event.Channel(), event); err != nil {
		return err
	}
	util.ChangeEventsPublishedTotal.WithLabelValues(event.Table, event.Action).Inc()
	return nil
}

// EventHandler decodes change feed messages and hands them to the hub
type EventHandler struct {
	hub    *Hub
	logger *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler(hub *Hub) *EventHandler {
	return &EventHandler{hub: hub, logger: util.GetLogger()}
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypeRowChanged:
		var event models.ChangeEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			return fmt.Errorf("failed to unmarshal change event: %w", err)
		}
		n := eh.hub.Dispatch(&event)
		eh.logger.Debug("Dispatched change event",
			zap.String("event_id", event.EventID),
			zap.String("channel", event.Channel()),
			zap.Int("subscribers", n),
		)

	default:
		eh.logger.Warn("Unhandled event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}
