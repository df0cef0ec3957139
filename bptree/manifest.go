package bptree

import (
	"encoding/binary"
	"io"
	"os"

	iradix "github.com/hashicorp/go-immutable-radix"
)

const (
	// fileTypeTag identifies a manifest file as belonging to this engine.
	fileTypeTag uint64 = 14404350
	// fileVersionTag is the on-disk format version this build writes.
	fileVersionTag uint32 = 1

	// headerSize is fileTypeTag(8) + fileVersionTag(4) + order(4).
	headerSize = 16
	// manifestRecordSize is id(8) + payload(8).
	manifestRecordSize = 16

	// tombstonePayload marks a manifest record as "this id was deleted
	// by the transaction that wrote this record".
	tombstonePayload uint64 = ^uint64(0)
)

// idKey turns a NodeID into the big-endian byte key the immutable radix
// tree indexes on.
func idKey(id NodeID) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(id))
	return b[:]
}

// manifestSnapshot is the immutable id -> offset mapping captured by a
// transaction at construction time (spec.md §9: "persistent
// collections ... copy-on-write mappings"). Built on
// hashicorp/go-immutable-radix so every commit's delta produces a new
// root while older snapshots keep seeing their own unchanged view.
type manifestSnapshot struct {
	tree *iradix.Tree
}

func newManifestSnapshot() manifestSnapshot {
	return manifestSnapshot{tree: iradix.New()}
}

func (m manifestSnapshot) get(id NodeID) (uint64, bool) {
	v, ok := m.tree.Get(idKey(id))
	if !ok {
		return 0, false
	}
	return v.(uint64), true
}

// withDelta applies a batch of manifest records (offset inserts and
// tombstone deletes) and returns the resulting snapshot, leaving the
// receiver untouched.
func (m manifestSnapshot) withDelta(delta []manifestRecord) manifestSnapshot {
	txn := m.tree.Txn()
	for _, rec := range delta {
		if rec.payload == tombstonePayload {
			txn.Delete(idKey(rec.id))
			continue
		}
		txn.Insert(idKey(rec.id), rec.payload)
	}
	return manifestSnapshot{tree: txn.Commit()}
}

// manifestRecord is one 16-byte (id, payload) record, either a root
// pointer (id == 0), a tombstone (payload == tombstonePayload), or an
// offset update.
type manifestRecord struct {
	id      NodeID
	payload uint64
}

func encodeManifestRecord(rec manifestRecord) []byte {
	var b [manifestRecordSize]byte
	binary.BigEndian.PutUint64(b[0:8], uint64(rec.id))
	binary.BigEndian.PutUint64(b[8:16], rec.payload)
	return b[:]
}

// replayState is the result of replaying a manifest file from scratch.
type replayState struct {
	rootID    NodeID
	idCounter NodeID
	manifest  manifestSnapshot
}

// replayManifest reads body (the manifest file's bytes after the
// header) and reconstructs (root-id, id-counter, id->offset). A
// trailing chunk shorter than 16 bytes is a torn write and is ignored
// (spec.md §9(iii)).
func replayManifest(body []byte) replayState {
	st := replayState{rootID: 1, idCounter: 1, manifest: newManifestSnapshot()}
	txn := st.manifest.tree.Txn()

	for len(body) >= manifestRecordSize {
		chunk := body[:manifestRecordSize]
		body = body[manifestRecordSize:]

		id := NodeID(binary.BigEndian.Uint64(chunk[0:8]))
		payload := binary.BigEndian.Uint64(chunk[8:16])

		if id == 0 {
			st.rootID = NodeID(payload)
			if NodeID(payload) > st.idCounter {
				st.idCounter = NodeID(payload)
			}
			continue
		}

		if payload == tombstonePayload {
			txn.Delete(idKey(id))
		} else {
			txn.Insert(idKey(id), payload)
		}
		if id > st.idCounter {
			st.idCounter = id
		}
	}

	st.manifest = manifestSnapshot{tree: txn.Commit()}
	return st
}

// readAndValidateHeader reads the fixed 16-byte header and checks it
// against this build's constants.
func readAndValidateHeader(f *os.File) error {
	head := make([]byte, headerSize)
	n, err := f.ReadAt(head, 0)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return newErr("open", KindIoFailure, err)
	}
	if n < headerSize {
		return newErr("open", KindInvalidDatabase, nil)
	}

	tag := binary.BigEndian.Uint64(head[0:8])
	if tag != fileTypeTag {
		return newErr("open", KindInvalidDatabase, nil)
	}
	version := binary.BigEndian.Uint32(head[8:12])
	if version != fileVersionTag {
		return newErr("open", KindIncompatibleVersion, nil)
	}
	order := binary.BigEndian.Uint32(head[12:16])
	if order != uint32(Order) {
		return newErr("open", KindOrderMismatch, nil)
	}
	return nil
}

// writeHeader writes the fixed 16-byte header for a brand new manifest
// file.
func writeHeader(f *os.File) error {
	var head [headerSize]byte
	binary.BigEndian.PutUint64(head[0:8], fileTypeTag)
	binary.BigEndian.PutUint32(head[8:12], fileVersionTag)
	binary.BigEndian.PutUint32(head[12:16], uint32(Order))
	_, err := f.Write(head[:])
	if err != nil {
		return newErr("open", KindIoFailure, err)
	}
	return nil
}
