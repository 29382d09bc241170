package core

import "encoding/json"

// ConversationState is the full mutable state of one onboarding session. It is
// only ever mutated by the orchestrator between checkpoint appends; stores
// hand out clones so callers can never alias persisted state.
//
// Seq is the sequence number of the checkpoint this state was loaded from
// (zero when no checkpoint exists yet). It doubles as the optimistic
// concurrency token for CheckpointStore.Append.
type ConversationState struct {
	SessionID string         `json:"session_id"`
	OwnerID   string         `json:"owner_id"`
	Messages  []Message      `json:"-"`
	Fields    map[string]any `json:"fields"`
	Budget    int            `json:"budget"`
	Summary   string         `json:"summary,omitempty"`
	Seq       int64          `json:"-"`
}

// NewConversationState creates an empty state for a session with the given
// iteration budget.
func NewConversationState(sessionID, ownerID string, budget int) *ConversationState {
	return &ConversationState{
		SessionID: sessionID,
		OwnerID:   ownerID,
		Messages:  []Message{},
		Fields:    map[string]any{},
		Budget:    budget,
	}
}

// AppendMessage adds a message to the ordered history.
func (s *ConversationState) AppendMessage(m Message) {
	s.Messages = append(s.Messages, m)
}

// MergeFields applies a tool-issued patch to the field map. The reserved key
// "summary" routes to the Summary attribute instead.
func (s *ConversationState) MergeFields(patch map[string]any) {
	if len(patch) == 0 {
		return
	}
	if s.Fields == nil {
		s.Fields = map[string]any{}
	}
	for k, v := range patch {
		if k == "summary" {
			if text, ok := v.(string); ok {
				s.Summary = text
				continue
			}
		}
		s.Fields[k] = v
	}
}

// Field returns the collected value for a field name. The second return is
// false when the field has not been collected yet.
func (s *ConversationState) Field(name string) (any, bool) {
	v, ok := s.Fields[name]
	return v, ok
}

// Clone returns a deep copy safe for independent mutation. Message values are
// immutable so the slice copy is sufficient.
func (s *ConversationState) Clone() *ConversationState {
	clone := &ConversationState{
		SessionID: s.SessionID,
		OwnerID:   s.OwnerID,
		Messages:  make([]Message, len(s.Messages)),
		Fields:    make(map[string]any, len(s.Fields)),
		Budget:    s.Budget,
		Summary:   s.Summary,
		Seq:       s.Seq,
	}
	copy(clone.Messages, s.Messages)
	for k, v := range s.Fields {
		clone.Fields[k] = v
	}
	return clone
}

// stateEnvelope mirrors ConversationState with messages in their type-tagged
// wire form.
type stateEnvelope struct {
	SessionID string            `json:"session_id"`
	OwnerID   string            `json:"owner_id"`
	Messages  []messageEnvelope `json:"messages"`
	Fields    map[string]any    `json:"fields"`
	Budget    int               `json:"budget"`
	Summary   string            `json:"summary,omitempty"`
}

// MarshalJSON implements json.Marshaler, tagging each message variant so the
// sequence survives a round trip through durable storage.
func (s *ConversationState) MarshalJSON() ([]byte, error) {
	envs := make([]messageEnvelope, 0, len(s.Messages))
	for _, m := range s.Messages {
		env, err := encodeMessage(m)
		if err != nil {
			return nil, err
		}
		envs = append(envs, env)
	}
	return json.Marshal(stateEnvelope{
		SessionID: s.SessionID,
		OwnerID:   s.OwnerID,
		Messages:  envs,
		Fields:    s.Fields,
		Budget:    s.Budget,
		Summary:   s.Summary,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *ConversationState) UnmarshalJSON(data []byte) error {
	var env stateEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	msgs := make([]Message, 0, len(env.Messages))
	for _, me := range env.Messages {
		m, err := decodeMessage(me)
		if err != nil {
			return err
		}
		msgs = append(msgs, m)
	}
	s.SessionID = env.SessionID
	s.OwnerID = env.OwnerID
	s.Messages = msgs
	s.Fields = env.Fields
	if s.Fields == nil {
		s.Fields = map[string]any{}
	}
	s.Budget = env.Budget
	s.Summary = env.Summary
	return nil
}
