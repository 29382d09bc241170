// Package core provides the foundational domain types and interfaces shared by
// the onboarding agent engine. It defines:
//
//   - Messages (the closed set of conversation turn variants)
//   - ConversationState (session-scoped messages, collected fields, budget)
//   - Checkpoints (the immutable, linear state lineage per session)
//   - ToolCall / ToolResult (the contract between model and tools)
//   - Documents and retrieval results for the knowledge base
//   - Export artifacts produced when onboarding completes
//   - Pluggable stores for checkpoints, vectors and export artifacts
//
// The package intentionally keeps implementation concerns (persistence, loop
// orchestration, concrete tools) out of scope, exposing small interfaces to
// enable custom backends and extensions.
package core
