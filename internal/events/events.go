// Package events broadcasts task state changes to external subscribers.
package events

import (
	"context"
	"time"
)

// Event is a task state change.
type Event struct {
	TaskID    string    `json:"taskId"`
	Status    string    `json:"status"`
	Progress  int       `json:"progress"`
	Stage     string    `json:"stage"`
	Code      int       `json:"code"`
	Detail    string    `json:"detail,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Publisher delivers events. Publish must not block on I/O.
type Publisher interface {
	Publish(ctx context.Context, e Event)
	// Run delivers queued events until ctx is done.
	Run(ctx context.Context)
	Close() error
}

type nopPublisher struct{}

// NewNop returns a Publisher that drops every event.
func NewNop() Publisher { return nopPublisher{} }

func (nopPublisher) Publish(context.Context, Event) {}

func (nopPublisher) Run(ctx context.Context) { <-ctx.Done() }

func (nopPublisher) Close() error { return nil }
