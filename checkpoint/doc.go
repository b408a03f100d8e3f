// Package checkpoint persists conversation histories keyed by thread id.
//
// Every backend stores the entire history of a thread as one versioned JSON
// envelope and replaces it atomically on Save, so a crash mid-turn never
// leaves a partially written thread. Load of an unseen thread returns an
// empty history. Histories are never pruned.
//
// Backends: InMemoryStore (process local), SQLiteStore (modernc.org/sqlite)
// and RedisStore (go-redis). Open selects one from Options.
package checkpoint
