package keyboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Publisher delivers named events to the UI. Publish reports false when
// the event could not be queued.
type Publisher interface {
	Publish(event, payload string) bool
}

// Emitter drains the bridge and republishes every payload on EventName
type Emitter struct {
	bridge    *Bridge
	publisher Publisher
	onDropped func(payload string)
}

// NewEmitter creates an emitter reading from bridge
func NewEmitter(bridge *Bridge, publisher Publisher) (*Emitter, error) {
	if bridge == nil {
		return nil, errors.New("emitter requires a bridge")
	}
	if publisher == nil {
		return nil, errors.New("emitter requires a publisher")
	}

	return &Emitter{
		bridge:    bridge,
		publisher: publisher,
	}, nil
}

// OnDropped registers fn to be called for every payload the publisher
// refused. Call it before Run.
func (e *Emitter) OnDropped(fn func(payload string)) {
	e.onDropped = fn
}

// Run publishes payloads until ctx is cancelled. The bridge is closed on
// return so later sends are dropped instead of piling up.
func (e *Emitter) Run(ctx context.Context) error {
	if e.bridge.Closed() {
		return fmt.Errorf("emitter started on a closed bridge: %w", ErrBridgeClosed)
	}
	defer e.bridge.Close()

	slog.Debug("Keyboard emitter running", "event", EventName)

	for {
		payload, err := e.bridge.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				slog.Debug("Keyboard emitter stopped")
				return nil
			}
			return fmt.Errorf("emitter receive failed: %w", err)
		}

		if !e.publisher.Publish(EventName, payload) && e.onDropped != nil {
			e.onDropped(payload)
		}
	}
}
