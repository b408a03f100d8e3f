// Package agent implements the tool-calling agent loop and the adapter that
// exposes a whole agent as a tool of another agent.
//
// Execution model:
//   - Run queries the model gateway with the system prompt, the full history
//     and the tool definitions. A final answer ends the run; a tool request
//     is appended as one assistant message, every call is executed through
//     flow.Executor and one tool message per call is appended in call order.
//   - Unknown tools, invalid arguments and tool failures are fed back to the
//     model as tool results. Protocol errors and exhausted retries of an
//     unavailable gateway end the run with an error and no result.
//   - A step limiter bounds the number of cycles; when it trips the run ends
//     with an explicit step-limit answer instead of another gateway call.
//   - AsTool wraps an Agent as a tool with schema {request: string}. Each
//     call runs on a fresh history and only the final answer crosses back.
//     Delegation depth travels in the context and is capped.
package agent
