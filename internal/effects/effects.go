package effects

import (
	"context"
)

// Effects queues the collaborators' calls on the dispatcher. Every method
// returns immediately.
type Effects struct {
	d        *Dispatcher
	notifier Notifier
	payments Payments
	rooms    Rooms
}

func New(d *Dispatcher, notifier Notifier, payments Payments, rooms Rooms) *Effects {
	return &Effects{d: d, notifier: notifier, payments: payments, rooms: rooms}
}

func (e *Effects) Notify(sessionID, userID string, event Event, payload any) {
	e.d.Dispatch(Job{
		Name:      "notify:" + string(event),
		SessionID: sessionID,
		Run: func(ctx context.Context) error {
			return e.notifier.Notify(ctx, userID, event, payload)
		},
	})
}

func (e *Effects) Charge(sessionID string, amountCents int64, currency string) {
	e.d.Dispatch(Job{
		Name:      "charge",
		SessionID: sessionID,
		Run: func(ctx context.Context) error {
			return e.payments.Charge(ctx, sessionID, amountCents, currency)
		},
	})
}

func (e *Effects) Refund(sessionID string, amountCents int64, percentage int) {
	if amountCents <= 0 {
		return
	}
	e.d.Dispatch(Job{
		Name:      "refund",
		SessionID: sessionID,
		Run: func(ctx context.Context) error {
			return e.payments.Refund(ctx, sessionID, amountCents, percentage)
		},
	})
}

func (e *Effects) ProvisionRoom(sessionID string) {
	e.d.Dispatch(Job{
		Name:      "provision_room",
		SessionID: sessionID,
		Run: func(ctx context.Context) error {
			return e.rooms.ProvisionRoom(ctx, sessionID)
		},
	})
}
