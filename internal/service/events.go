package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/agencyiq/agency-service/internal/auth"
	"github.com/agencyiq/agency-service/internal/domain"
	"github.com/agencyiq/agency-service/internal/events"
)

// publish stamps identity and time onto the event before dispatching.
// Dispatch failures never propagate to the caller.
func publish(ctx context.Context, d events.Dispatcher, event events.Event) {
	if d == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = d.Publish(ctx, event)
}

func ownerActor() events.Actor {
	return events.Actor{Type: domain.SubjectTypeOwner}
}

func staffActor(staffID string) events.Actor {
	return events.Actor{Type: domain.SubjectTypeStaff, StaffID: &staffID}
}

func principalActor(p *auth.Principal) events.Actor {
	if p != nil && p.Staff != nil {
		return staffActor(p.Staff.ID)
	}
	return ownerActor()
}
