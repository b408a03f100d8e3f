// Package core provides the foundational domain types and interfaces shared
// by the assistant packages. It defines:
//
//   - Messages and tool calls (the conversation data model)
//   - The error taxonomy of the agent loop (tool, model and guard errors)
//   - The CheckpointStore contract for durable thread history
//   - StepLimiter, the per-run cycle guard
//
// Implementation concerns (gateways, persistence backends, the loop itself)
// live in other packages so this one stays dependency free.
package core
