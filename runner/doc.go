// Package runner drives supervisor turns over persisted threads.
//
// A turn loads the thread's history from a core.CheckpointStore, appends
// the user message, runs the agent loop and saves the entire resulting
// history back under the same thread id. Turns on the same thread are
// serialized; turns on different threads are independent. A turn that
// fails or is canceled saves nothing, so a crash loses only the turn in
// progress.
package runner
