package worker

import (
	"context"

	"checkout-builder/internal/broker"
	"checkout-builder/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Source yields change feed messages until ctx is cancelled
type Source interface {
	StartConsuming(ctx context.Context, handler broker.MessageHandler) error
	Close() error
}

// ChangeFeedWorker reads the change topic and fans events out through the hub
type ChangeFeedWorker struct {
	source       Source
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewChangeFeedWorker creates a new change feed worker
func NewChangeFeedWorker(source Source, hub *broker.Hub) *ChangeFeedWorker {
	return &ChangeFeedWorker{
		source:       source,
		eventHandler: broker.NewEventHandler(hub),
		logger:       util.GetLogger(),
	}
}

// Start starts the worker and blocks until ctx is done
func (w *ChangeFeedWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting change feed worker")
	return w.source.StartConsuming(ctx, w.handle)
}

func (w *ChangeFeedWorker) handle(ctx context.Context, msg kafka.Message) error {
	ctx, span := util.StartSpan(ctx, "ChangeFeedWorker.handle")
	defer span.End()

	return util.RecordError(span, w.eventHandler.HandleMessage(ctx, msg))
}

// Stop stops the worker
func (w *ChangeFeedWorker) Stop() error {
	w.logger.Info("Stopping change feed worker")
	return w.source.Close()
}
