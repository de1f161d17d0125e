package pipeline

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/asktra-labs/asktra/internal/model"
)

// EventType discriminates streamed pipeline events.
type EventType string

const (
	// EventStep carries one progress message.
	EventStep EventType = "step"
	// EventResult carries the final result. Terminal.
	EventResult EventType = "result"
	// EventError carries a failure description. Terminal.
	EventError EventType = "error"
)

// Event is one streamed pipeline event. Message is set for step and error
// events, Result for result events.
type Event struct {
	Type    EventType
	Message string
	Result  *model.AskResult
}

// AskStream runs the same five stages as Ask, emitting progress events along
// the way. Exactly one terminal event (result or error) is emitted, then the
// stream ends. The returned error mirrors the error event for logging.
func (p *Pipeline) AskStream(ctx context.Context, req AskRequest, emit func(Event)) error {
	result, err := p.run(ctx, req, func(msg string) {
		emit(Event{Type: EventStep, Message: msg})
	})
	if err != nil {
		emit(Event{Type: EventError, Message: eris.Cause(err).Error()})
		return err
	}
	emit(Event{Type: EventResult, Result: result})
	return nil
}
