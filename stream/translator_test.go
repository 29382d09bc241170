package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(events <-chan Event) []Event {
	var out []Event
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

func TestTranslatePreservesOrder(t *testing.T) {
	steps := make(chan Step, 16)
	steps <- Step{Kind: StepToken, Text: "Hel"}
	steps <- Step{Kind: StepToken, Text: "lo"}
	steps <- Step{Kind: StepToolStart, Tool: "write", CallID: "c1"}
	steps <- Step{Kind: StepToolEnd, Tool: "write", CallID: "c1", Content: "Data recorded: starter_kit = mouse"}
	steps <- Step{Kind: StepComplete, Text: "All set!", Reason: ReasonAnswer}
	close(steps)

	events := collect(Translate(context.Background(), "run-1", steps, 16))
	require.Len(t, events, 5)

	assert.Equal(t, EventToken, events[0].Type)
	assert.Equal(t, "Hel", events[0].Content)
	assert.Equal(t, EventToken, events[1].Type)
	assert.Equal(t, EventToolStart, events[2].Type)
	assert.Equal(t, "write", events[2].Tool)
	assert.Equal(t, "c1", events[2].CallID)
	assert.Equal(t, EventToolEnd, events[3].Type)
	assert.Equal(t, "Data recorded: starter_kit = mouse", events[3].Content)
	assert.Equal(t, EventComplete, events[4].Type)
	assert.Equal(t, "All set!", events[4].Content)
	assert.Equal(t, ReasonAnswer, events[4].Reason)

	for _, ev := range events {
		assert.Equal(t, "run-1", ev.RunID)
		assert.False(t, ev.Timestamp.IsZero())
	}
}

func TestTranslateExactlyOneTerminalEvent(t *testing.T) {
	steps := make(chan Step, 8)
	steps <- Step{Kind: StepComplete, Text: "done", Reason: ReasonAnswer}
	steps <- Step{Kind: StepToken, Text: "stray"}
	steps <- Step{Kind: StepError, Err: errors.New("stray error")}
	close(steps)

	events := collect(Translate(context.Background(), "run-1", steps, 8))
	require.Len(t, events, 1)
	assert.Equal(t, EventComplete, events[0].Type)
}

func TestTranslateToolFailureContentIsNotError(t *testing.T) {
	steps := make(chan Step, 8)
	steps <- Step{Kind: StepToolStart, Tool: "export", CallID: "c1"}
	steps <- Step{Kind: StepToolEnd, Tool: "export", CallID: "c1", Content: "missing: employee_id"}
	steps <- Step{Kind: StepComplete, Text: "I still need your employee id.", Reason: ReasonAnswer}
	close(steps)

	events := collect(Translate(context.Background(), "run-1", steps, 8))
	require.Len(t, events, 3)
	assert.Equal(t, EventToolEnd, events[1].Type)
	assert.Equal(t, "missing: employee_id", events[1].Content)
}

func TestTranslateErrorStep(t *testing.T) {
	steps := make(chan Step, 2)
	steps <- Step{Kind: StepError, Err: errors.New("checkpoint append failed")}
	close(steps)

	events := collect(Translate(context.Background(), "run-1", steps, 2))
	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Type)
	assert.Contains(t, events[0].Content, "checkpoint append failed")
	assert.True(t, events[0].Terminal())
}

func TestTranslateCancelledConsumerDoesNotBlockProducer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	steps := make(chan Step)

	events := Translate(ctx, "run-1", steps, 1)

	steps <- Step{Kind: StepToken, Text: "a"}
	steps <- Step{Kind: StepToken, Text: "b"} // fills the event buffer
	cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			steps <- Step{Kind: StepToken, Text: "c"}
		}
		steps <- Step{Kind: StepComplete, Text: "done", Reason: ReasonAnswer}
		close(steps)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("producer blocked after the consumer cancelled")
	}

	// The event channel still closes once the steps are drained.
	for range events {
	}
}

func TestTranslateMissingTerminalBecomesError(t *testing.T) {
	steps := make(chan Step, 2)
	steps <- Step{Kind: StepToken, Text: "partial"}
	close(steps)

	events := collect(Translate(context.Background(), "run-1", steps, 2))
	require.Len(t, events, 2)
	assert.Equal(t, EventError, events[1].Type)
}
