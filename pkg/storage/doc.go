/*
Package storage provides BoltDB-backed persistence for scheduler state.

The registry itself is an in-memory view rebuilt from heartbeats, so only
state that cannot be re-learned from workers is stored here: the
worker group allowlists an operator configured, and the history of finished
workflow runs.

# Architecture

	┌──────────────────── BOLTDB STORAGE ─────────────────────┐
	│                                                          │
	│  BoltStore                                               │
	│   - File: <dataDir>/burrow.db                            │
	│   - Reads: db.View()    Writes: db.Update()              │
	│                                                          │
	│  Buckets (JSON values)                                   │
	│   ┌──────────────────────────────────────────┐           │
	│   │ worker_groups   key: group name           │           │
	│   │ runs            key: run ID               │           │
	│   └──────────────────────────────────────────┘           │
	└──────────────────────────────────────────────────────────┘

Saving a key that exists replaces it. Deleting a missing key is not an
error. Lookups of missing keys return an error wrapping ErrNotFound.

# Usage

	store, err := storage.NewBoltStore(cfg.Server.DataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	groups, err := store.ListWorkerGroups()
	if err != nil {
		return err
	}
	reg.OnWorkerGroupChange(groups)

BoltDB holds an exclusive file lock, so only one process may open a data
directory at a time.
*/
package storage
