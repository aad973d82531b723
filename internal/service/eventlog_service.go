package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/campus360/incidencias-service/internal/events"
)

// EventLogService writes a structured log line for every domain event. It is
// the only event consumer in this service; outbound notifications belong to a
// separate system.
type EventLogService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewEventLogService creates the service.
func NewEventLogService(dispatcher events.Dispatcher, logger *zap.Logger) *EventLogService {
	return &EventLogService{dispatcher: dispatcher, logger: logger}
}

// RegisterHandlers subscribes to all event types.
func (s *EventLogService) RegisterHandlers() {
	if s.dispatcher == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventIncidenciaCreated,
		events.EventResponsibleAssigned,
		events.EventStateChanged,
		events.EventIncidenciaUpdated,
		events.EventCommentAdded,
		events.EventAttachmentAdded,
		events.EventIncidenciaDeleted,
	} {
		s.dispatcher.Subscribe(eventType, s.logEvent)
	}
}

func (s *EventLogService) logEvent(ctx context.Context, event events.Event) error {
	s.logger.Info("domain event",
		zap.String("event_type", string(event.Type)),
		zap.String("incidencia_id", event.IncidenciaID),
		zap.String("actor_id", event.Actor.SubjectID),
		zap.Any("payload", event.Payload),
	)
	return nil
}
