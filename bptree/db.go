package bptree

import (
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/hashicorp/go-hclog"
)

// DB is one open database: the append-only manifest and nodes files,
// the bounded node cache, and the atomically-swapped state cell.
// Readers and writers only ever touch an immutable snapshot of state
// plus their own local dirty-nodes overlay (spec.md §5).
type DB struct {
	path string

	manifestFile *appendFile
	nodesFile    *appendFile
	nodesReader  *randomReader

	codec        Codec
	cache        *nodeCache
	metrics      *engineMetrics
	logger       hclog.Logger
	syncOnCommit bool

	state     atomic.Pointer[dbState]
	writeLock chan struct{} // 1-buffered channel used as a non-reentrant mutex
	closed    atomic.Bool
}

// Open opens (or idempotently reopens) the database rooted at path.
// Per spec.md §4.2: if a database is already open for path, it is
// closed and reopened rather than returning the existing handle.
func Open(path string, opts ...Option) (*DB, error) {
	if existing, ok := registryLookup(path); ok {
		_ = existing.Close()
	}

	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg = cfg.withDefaults()
	if cfg.logger == nil {
		cfg.logger = newLogger(path)
	}

	info, err := os.Stat(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, newErr("open", KindIoFailure, err)
		}
		if mkErr := os.MkdirAll(path, 0o755); mkErr != nil {
			return nil, newErr("open", KindIoFailure, mkErr)
		}
	} else if !info.IsDir() {
		return nil, newErr("open", KindInvalidDatabase, nil)
	}

	manifestPath := filepath.Join(path, "manifest")
	nodesPath := filepath.Join(path, "nodes")

	manifestFile, err := openAppendFile(manifestPath)
	if err != nil {
		return nil, err
	}
	nodesFile, err := openAppendFile(nodesPath)
	if err != nil {
		_ = manifestFile.close()
		return nil, err
	}
	nodesReader, err := openRandomReader(nodesPath)
	if err != nil {
		_ = manifestFile.close()
		_ = nodesFile.close()
		return nil, err
	}

	st, err := initOrReplay(manifestFile)
	if err != nil {
		_ = manifestFile.close()
		_ = nodesFile.close()
		_ = nodesReader.close()
		return nil, err
	}

	nodesOffset, err := nodesFile.size()
	if err != nil {
		_ = manifestFile.close()
		_ = nodesFile.close()
		_ = nodesReader.close()
		return nil, err
	}
	st.nodesOffset = nodesOffset

	m := newEngineMetrics(cfg.sink, path)
	cache, err := newNodeCache(cfg.CacheSize, m)
	if err != nil {
		_ = manifestFile.close()
		_ = nodesFile.close()
		_ = nodesReader.close()
		return nil, err
	}

	db := &DB{
		path:         path,
		manifestFile: manifestFile,
		nodesFile:    nodesFile,
		nodesReader:  nodesReader,
		codec:        newMsgpackCodec(),
		cache:        cache,
		metrics:      m,
		logger:       cfg.logger,
		syncOnCommit: cfg.SyncOnCommit,
		writeLock:    make(chan struct{}, 1),
	}
	db.state.Store(st)

	registryStore(path, db)
	db.logger.Debug("opened", "root_id", st.rootID, "id_counter", st.idCounter)
	return db, nil
}

// initOrReplay writes a fresh header for an empty manifest file, or
// replays an existing one and validates its header against this
// build's constants.
func initOrReplay(manifestFile *appendFile) (*dbState, error) {
	size, err := manifestFile.size()
	if err != nil {
		return nil, err
	}

	if size == 0 {
		if err := writeHeader(manifestFile.file); err != nil {
			return nil, err
		}
		return &dbState{rootID: 1, idCounter: 1, manifest: newManifestSnapshot()}, nil
	}

	if err := readAndValidateHeader(manifestFile.file); err != nil {
		return nil, err
	}

	data, err := manifestFile.readAll()
	if err != nil {
		return nil, err
	}
	replay := replayManifest(data[headerSize:])
	return &dbState{
		rootID:    replay.rootID,
		idCounter: replay.idCounter,
		manifest:  replay.manifest,
	}, nil
}

// Close marks the database closed, closes every file handle, and
// deregisters it so a later Open(path) starts fresh.
func (db *DB) Close() error {
	if !db.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	registryDelete(db.path)

	var firstErr error
	for _, closeFn := range []func() error{db.manifestFile.close, db.nodesFile.close, db.nodesReader.close} {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	db.logger.Debug("closed")
	return firstErr
}

func (db *DB) snapshot() *dbState {
	return db.state.Load()
}

// acquireWriteLock and releaseWriteLock serialize commits (spec.md
// §5: "Writers hold the database's write-lock for the full duration
// of commit").
func (db *DB) acquireWriteLock() {
	db.writeLock <- struct{}{}
}

func (db *DB) releaseWriteLock() {
	<-db.writeLock
}
