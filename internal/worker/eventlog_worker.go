package worker

import (
	"github.com/campus360/incidencias-service/internal/service"
)

// StartEventLogWorker registers the event log handlers.
func StartEventLogWorker(eventLog *service.EventLogService) {
	if eventLog == nil {
		return
	}
	eventLog.RegisterHandlers()
}
