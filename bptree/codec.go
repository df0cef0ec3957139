package bptree

import (
	"bytes"

	msgpack "github.com/hashicorp/go-msgpack/v2/codec"
)

// Codec is the pluggable freeze/thaw collaborator spec.md §1 describes:
// "any deterministic encoder with a fast decompressor suffices". The
// engine uses it to turn a Node into its on-disk payload and back. Open
// always uses the msgpack implementation below; no Option selects a
// different Codec.
type Codec interface {
	Freeze(n *Node) ([]byte, error)
	Thaw(data []byte) (*Node, error)
}

// msgpackCodec is the default Codec, built on the teacher's own
// dependency graph (go-msgpack is pulled in transitively by raft's log
// encoding there; here it does the engine's node encoding directly).
type msgpackCodec struct {
	handle *msgpack.MsgpackHandle
}

func newMsgpackCodec() *msgpackCodec {
	h := &msgpack.MsgpackHandle{}
	h.RawToString = false
	return &msgpackCodec{handle: h}
}

// wireNode is the msgpack-serializable shape of a Node. Encoding goes
// through this plain struct so that each record carries HasKey/HasValue
// flags recording whether its key and value slices were nil.
type wireNode struct {
	ID      uint64
	Type    uint8
	Records []wireRecord
	Next    uint64
}

type wireRecord struct {
	Key      []byte
	HasKey   bool
	Value    []byte
	HasValue bool
	Child    uint64
}

func (c *msgpackCodec) Freeze(n *Node) ([]byte, error) {
	w := wireNode{ID: uint64(n.ID), Type: uint8(n.Type), Next: uint64(n.Next)}
	w.Records = make([]wireRecord, len(n.Records))
	for i, r := range n.Records {
		w.Records[i] = wireRecord{
			Key:      r.Key,
			HasKey:   r.Key != nil,
			Value:    r.Value,
			HasValue: r.Value != nil,
			Child:    uint64(r.Child),
		}
	}

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf, c.handle)
	if err := enc.Encode(&w); err != nil {
		return nil, newErr("codec.freeze", KindCodecFailure, err)
	}
	return buf.Bytes(), nil
}

func (c *msgpackCodec) Thaw(data []byte) (*Node, error) {
	var w wireNode
	dec := msgpack.NewDecoder(bytes.NewReader(data), c.handle)
	if err := dec.Decode(&w); err != nil {
		return nil, newErr("codec.thaw", KindCodecFailure, err)
	}

	n := &Node{
		ID:   NodeID(w.ID),
		Type: NodeType(w.Type),
		Next: NodeID(w.Next),
	}
	n.Records = make([]Record, len(w.Records))
	for i, r := range w.Records {
		rec := Record{Child: NodeID(r.Child)}
		if r.HasKey {
			rec.Key = r.Key
		}
		if r.HasValue {
			rec.Value = r.Value
		}
		n.Records[i] = rec
	}
	return n, nil
}
