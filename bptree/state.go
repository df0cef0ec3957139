package bptree

import (
	"sync"
)

// dbState is the immutable, process-resident snapshot every
// transaction reads atomically at construction (spec.md §3's
// "Database state"). Replacing it is the only mutation; nothing ever
// edits a dbState in place, per spec.md §9's "atomic state cell"
// design note.
type dbState struct {
	rootID      NodeID
	idCounter   NodeID
	manifest    manifestSnapshot
	nodesOffset int64
}

// registry is the process-wide "open-databases" map from spec.md §5,
// mutated under its own mutex the way the teacher's package-level
// globals are (conuredb-conuredb has no equivalent, since it never
// supports reopening by path — this generalizes spec.md §4.2's
// "if a database is already open for path, close it and reopen").
var registry = struct {
	mu sync.Mutex
	dbs map[string]*DB
}{dbs: make(map[string]*DB)}

func registryLookup(path string) (*DB, bool) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	db, ok := registry.dbs[path]
	return db, ok
}

func registryStore(path string, db *DB) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.dbs[path] = db
}

func registryDelete(path string) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	delete(registry.dbs, path)
}
