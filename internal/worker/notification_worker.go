package worker

import (
	"github.com/agencyiq/agency-service/internal/events"
	"github.com/agencyiq/agency-service/internal/service"
)

// StartNotificationWorker wires notification handlers to the dispatcher.
func StartNotificationWorker(notifications *service.NotificationService, dispatcher events.Dispatcher) {
	if notifications == nil || dispatcher == nil {
		return
	}
	notifications.Register(dispatcher)
}
