package bptree

// insertOutcome is the tagged variant spec.md §9 calls for: either an
// ordinary updated txn, or a split record the caller must incorporate
// into its own node.
type insertOutcome struct {
	split   bool
	splitKey []byte
	leftID  NodeID
	rightID NodeID
}

// Insert adds or replaces key -> value (spec.md §4.7).
func (t *Txn) Insert(key, value []byte) error {
	if t.readOnly {
		return ErrReadOnly
	}
	outcome, err := t.insertInto(t.rootID, key, value)
	if err != nil {
		return err
	}
	if outcome.split {
		newRootID := t.nextID()
		root := newInternal(newRootID)
		root.Records = []Record{
			{Key: nil, Child: outcome.leftID},
			{Key: outcome.splitKey, Child: outcome.rightID},
		}
		t.putNode(root)
		t.setRoot(newRootID)
	}
	return nil
}

// insertInto inserts into the subtree rooted at id, returning either a
// no-split outcome or a split record for the caller to incorporate.
func (t *Txn) insertInto(id NodeID, key, value []byte) (insertOutcome, error) {
	node, err := t.getNode(id)
	if err != nil {
		return insertOutcome{}, err
	}

	if node.Type == LeafNode {
		return t.insertLeaf(node, key, value)
	}
	return t.insertInternal(node, key, value)
}

func (t *Txn) insertLeaf(leaf *Node, key, value []byte) (insertOutcome, error) {
	working := leaf.clone()
	working.insertSorted(Record{Key: key, Value: value})

	if len(working.Records) < Order {
		t.putNode(working)
		return insertOutcome{}, nil
	}
	return t.splitLeaf(working)
}

// splitLeaf splits an overflowing leaf: the lower half keeps the
// original id, the upper half gets a fresh id and becomes its Next
// link (spec.md §4.7).
func (t *Txn) splitLeaf(node *Node) (insertOutcome, error) {
	pos := ceilDiv(len(node.Records), 2)
	rightID := t.nextID()

	right := newLeaf(rightID)
	right.Records = append([]Record{}, node.Records[pos:]...)
	right.Next = node.Next

	left := node
	left.Records = node.Records[:pos]
	left.Next = rightID

	t.putNode(left)
	t.putNode(right)

	t.db.metrics.split("leaf")
	return insertOutcome{split: true, splitKey: right.Records[0].Key, leftID: left.ID, rightID: rightID}, nil
}

func (t *Txn) insertInternal(node *Node, key, value []byte) (insertOutcome, error) {
	pos := node.matchingChildPos(key)
	childID := node.Records[pos].Child

	childOutcome, err := t.insertInto(childID, key, value)
	if err != nil {
		return insertOutcome{}, err
	}

	if !childOutcome.split {
		return insertOutcome{}, nil
	}

	working := node.clone()
	working.insertSorted(Record{Key: childOutcome.splitKey, Child: childOutcome.rightID})

	// Kept at <= Order per spec.md §4.7's literal wording, so a
	// non-root internal can transiently hold Order (32) records
	// before the next insert pushes it over and splits it.
	if len(working.Records) <= Order {
		t.putNode(working)
		return insertOutcome{}, nil
	}
	return t.splitInternal(working)
}

// splitInternal splits an overflowing internal node. The median record
// is promoted as the split key; the right half's first key becomes the
// sentinel, since its subtree already covers everything >= split-key
// (spec.md §4.7).
func (t *Txn) splitInternal(node *Node) (insertOutcome, error) {
	pos := ceilDiv(len(node.Records), 2)
	splitKey := node.Records[pos].Key
	rightID := t.nextID()

	right := newInternal(rightID)
	right.Records = append([]Record{}, node.Records[pos:]...)
	right.Records[0] = Record{Key: nil, Child: right.Records[0].Child}

	left := node
	left.Records = node.Records[:pos]

	t.putNode(left)
	t.putNode(right)

	t.db.metrics.split("internal")
	return insertOutcome{split: true, splitKey: splitKey, leftID: left.ID, rightID: rightID}, nil
}

func ceilDiv(n, d int) int {
	return (n + d - 1) / d
}
