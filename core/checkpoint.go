package core

import "context"

// CheckpointStore persists conversation histories keyed by thread id so a
// supervising agent keeps its memory across independent turns.
//
// Contract:
//   - Load returns an empty (nil) history for unseen thread ids
//   - Save replaces the whole history for the thread in one step; there is
//     no partial or incremental save
//   - Implementations must be safe for concurrent use; serializing turns on
//     the same thread is the caller's job
type CheckpointStore interface {
	Load(ctx context.Context, threadID string) ([]Message, error)
	Save(ctx context.Context, threadID string, history []Message) error
}
