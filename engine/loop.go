package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pablo-lozano-martin/genesis-sub004/core"
	"github.com/pablo-lozano-martin/genesis-sub004/model"
	"github.com/pablo-lozano-martin/genesis-sub004/stream"
	"github.com/pablo-lozano-martin/genesis-sub004/tool"
)

// DefaultInstructions is the system prompt driving the onboarding agent.
const DefaultInstructions = `You are an onboarding assistant for Orbio. Your role is to guide new employees through the onboarding process in a friendly, conversational way.

Your responsibilities:
1. Collect required information: employee_name, employee_id, starter_kit (mouse/keyboard/backpack)
2. Optionally collect: dietary_restrictions, meeting_scheduled
3. Answer user questions about Orbio using the search tool
4. Complete onboarding by calling the export tool (THE ONLY WAY TO FINALIZE)

Tools available:
- read: Check what fields have been collected
- write: Save collected data (handles validation)
- search: Answer questions about Orbio policies and benefits
- export: CALL THIS to complete onboarding (do NOT use search or write for finalization)

Conversation flow:
1. Greet the user warmly
2. Guide them through providing required information naturally
3. Use read to check what has been collected
4. If write returns a validation error, extract the correct format and retry
5. Answer any questions using search
6. When all required fields are collected, summarize the data and ask the user to confirm
7. If the user confirms, IMMEDIATELY call the export tool

Important:
- Be proactive and guide the conversation
- Don't make it feel like filling out a form
- If validation fails more than 3 times, ask the user for help`

// guardStopMessage is force-appended when the iteration budget runs out.
const guardStopMessage = "I had to pause here because this conversation took more steps than expected. " +
	"Your information so far has been saved. Please send another message to continue."

// run drives one agent run to a terminal step. Every state mutation is
// committed through the checkpoint store before the run proceeds; a
// PersistenceError aborts immediately with no further appends.
func (e *Engine) run(
	ctx context.Context,
	runID string,
	state *core.ConversationState,
	text string,
	steps chan<- stream.Step,
	errorsCh chan<- error,
) {
	start := time.Now()
	logger := e.logger

	state.Budget = e.maxIterations
	state.AppendMessage(core.HumanMessage{Text: text})
	if err := e.commit(state); err != nil {
		e.fatal(ctx, steps, errorsCh, err)
		return
	}

	iterations := 0
	for state.Budget > 0 {
		if ctx.Err() != nil {
			e.fatal(ctx, steps, errorsCh, ctx.Err())
			return
		}

		state.Budget--
		iterations++

		resp, err := e.reason(ctx, state, steps)
		if err != nil {
			e.fatal(ctx, steps, errorsCh, fmt.Errorf("generation failed: %w", err))
			return
		}

		if len(resp.ToolCalls) == 0 {
			state.AppendMessage(core.AssistantMessage{Text: resp.Text})
			if err := e.commit(state); err != nil {
				e.fatal(ctx, steps, errorsCh, err)
				return
			}
			emit(ctx, steps, stream.Step{Kind: stream.StepComplete, Text: resp.Text, Reason: stream.ReasonAnswer})
			logger.Info("engine.run.complete", "session_id", state.SessionID, "run_id", runID,
				"iterations", iterations, "duration_ms", time.Since(start).Milliseconds())
			return
		}

		state.AppendMessage(core.AssistantMessage{Text: resp.Text, ToolCalls: resp.ToolCalls})
		if err := e.commit(state); err != nil {
			e.fatal(ctx, steps, errorsCh, err)
			return
		}

		// Tool calls run strictly in order; parallel dispatch would make
		// patch application nondeterministic.
		for _, call := range resp.ToolCalls {
			if ctx.Err() != nil {
				e.fatal(ctx, steps, errorsCh, ctx.Err())
				return
			}

			emit(ctx, steps, stream.Step{Kind: stream.StepToolStart, Tool: call.Name, CallID: call.ID})

			inv := &tool.Invocation{
				State:   state.Clone(),
				Fields:  e.fields,
				Vectors: e.vectors,
				Model:   e.generator,
				Exports: e.exports,
				Logger:  logger,
			}
			result := e.tools.Dispatch(ctx, inv, call)

			emit(ctx, steps, stream.Step{Kind: stream.StepToolEnd, Tool: call.Name, CallID: call.ID, Content: result.Content})

			state.AppendMessage(core.ToolMessage{CallID: call.ID, Content: result.Content})
			state.MergeFields(result.Patch)
			if err := e.commit(state); err != nil {
				e.fatal(ctx, steps, errorsCh, err)
				return
			}
		}
	}

	// Iteration guard tripped before a final answer.
	state.AppendMessage(core.AssistantMessage{Text: guardStopMessage})
	if err := e.commit(state); err != nil {
		e.fatal(ctx, steps, errorsCh, err)
		return
	}
	emit(ctx, steps, stream.Step{Kind: stream.StepComplete, Text: guardStopMessage, Reason: stream.ReasonGuard})
	logger.Warn("engine.run.guard_stop", "session_id", state.SessionID, "run_id", runID,
		"iterations", iterations, "duration_ms", time.Since(start).Milliseconds())
}

// reason performs one generation call, forwarding partial text as token steps
// and returning the final response.
func (e *Engine) reason(
	ctx context.Context,
	state *core.ConversationState,
	steps chan<- stream.Step,
) (model.Response, error) {
	respCh, errCh := e.generator.Generate(ctx, model.Request{
		Instructions: e.instructions,
		Messages:     state.Messages,
		Tools:        e.tools.Definitions(),
		Stream:       true,
	})

	var final model.Response
	finalSeen := false
	for resp := range respCh {
		if resp.Partial {
			if resp.Text != "" {
				emit(ctx, steps, stream.Step{Kind: stream.StepToken, Text: resp.Text})
			}
			continue
		}
		final = resp
		finalSeen = true
	}
	if err, ok := <-errCh; ok && err != nil {
		return model.Response{}, err
	}
	if !finalSeen {
		return model.Response{}, errors.New("provider closed the stream without a final response")
	}
	return final, nil
}

// commit appends the current state as a new checkpoint.
func (e *Engine) commit(state *core.ConversationState) error {
	_, err := e.checkpoints.Append(state.SessionID, state)
	return err
}

// fatal records a terminal failure on both channels. The error channel is
// buffered so the send never blocks the loop goroutine.
func (e *Engine) fatal(ctx context.Context, steps chan<- stream.Step, errorsCh chan<- error, err error) {
	var perr *core.PersistenceError
	if errors.As(err, &perr) {
		e.logger.Error("engine.run.persistence", "session_id", perr.SessionID, "op", perr.Op, "error", err.Error())
	} else {
		e.logger.Error("engine.run.fatal", "error", err.Error())
	}

	emit(ctx, steps, stream.Step{Kind: stream.StepError, Err: err})
	select {
	case errorsCh <- err:
	default:
	}
}

// emit forwards a step unless the caller has disconnected. After ctx is
// cancelled steps are discarded so the loop can never block on a channel
// nobody drains and always reaches its next cancellation check.
func emit(ctx context.Context, steps chan<- stream.Step, s stream.Step) {
	select {
	case steps <- s:
	case <-ctx.Done():
	}
}
