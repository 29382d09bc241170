package stream

import (
	"context"
	"fmt"
	"time"
)

// StepKind discriminates the orchestrator's internal steps.
type StepKind int

const (
	// StepToken is an incremental text fragment from the model.
	StepToken StepKind = iota
	// StepToolStart marks a tool call selected for dispatch.
	StepToolStart
	// StepToolEnd marks a tool call's result content.
	StepToolEnd
	// StepComplete marks normal run termination.
	StepComplete
	// StepError marks fatal run termination.
	StepError
)

// Step is one internal orchestrator occurrence, produced strictly in
// execution order on the step channel.
type Step struct {
	Kind    StepKind
	Text    string
	Tool    string
	CallID  string
	Content string
	Reason  string
	Err     error
}

// Translate consumes the orchestrator's step channel and emits client events
// in the same order, one event per step, on a channel buffered with the given
// size so a slow consumer does not stall tool execution. Exactly one terminal
// event is emitted per run: steps after the first terminal step are dropped,
// and a step channel that closes without one yields an error event. A
// cancelled context marks the consumer as gone: remaining steps are drained
// and discarded so the producer is never blocked by an abandoned channel.
func Translate(ctx context.Context, runID string, steps <-chan Step, buffer int) <-chan Event {
	if buffer < 1 {
		buffer = 1
	}
	events := make(chan Event, buffer)

	go func() {
		defer close(events)

		for step := range steps {
			ev := translateStep(runID, step)
			select {
			case events <- ev:
			case <-ctx.Done():
				for range steps {
				}
				return
			}
			if ev.Terminal() {
				for range steps {
				}
				return
			}
		}

		select {
		case events <- Event{
			Type:      EventError,
			RunID:     runID,
			Content:   "run ended without a terminal step",
			Timestamp: time.Now().UTC(),
		}:
		case <-ctx.Done():
		}
	}()

	return events
}

func translateStep(runID string, step Step) Event {
	ev := Event{RunID: runID, Timestamp: time.Now().UTC()}

	switch step.Kind {
	case StepToken:
		ev.Type = EventToken
		ev.Content = step.Text
	case StepToolStart:
		ev.Type = EventToolStart
		ev.Tool = step.Tool
		ev.CallID = step.CallID
	case StepToolEnd:
		ev.Type = EventToolEnd
		ev.Tool = step.Tool
		ev.CallID = step.CallID
		ev.Content = step.Content
	case StepComplete:
		ev.Type = EventComplete
		ev.Content = step.Text
		ev.Reason = step.Reason
	case StepError:
		ev.Type = EventError
		if step.Err != nil {
			ev.Content = step.Err.Error()
		} else {
			ev.Content = step.Content
		}
	default:
		ev.Type = EventError
		ev.Content = fmt.Sprintf("unknown step kind %d", step.Kind)
	}

	return ev
}
