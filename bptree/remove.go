package bptree

// removeOutcome is the tagged variant spec.md §9 calls for on the
// remove path: either an ordinary updated txn, or a signal that the
// node returned underflowed and its parent must rebalance it.
type removeOutcome struct {
	needsCombine bool
	node         *Node
}

// Remove deletes key if present. Removing an absent key is a no-op
// (spec.md §9(ii)): it neither errors nor triggers any rebalancing.
func (t *Txn) Remove(key []byte) error {
	if t.readOnly {
		return ErrReadOnly
	}
	outcome, err := t.removeFrom(t.rootID, key)
	if err != nil {
		return err
	}
	if !outcome.needsCombine {
		return nil
	}

	// The root is exempt from the floor(order/2) minimum (spec.md §3):
	// an underflowing root just stays the root, unless it is an
	// internal node collapsed down to a single child, in which case
	// that child becomes the new root (spec.md §4.8).
	if outcome.node.Type == InternalNode && len(outcome.node.Records) == 1 {
		newRootID := outcome.node.Records[0].Child
		t.deleteNode(outcome.node.ID)
		t.setRoot(newRootID)
	}
	return nil
}

func (t *Txn) removeFrom(id NodeID, key []byte) (removeOutcome, error) {
	node, err := t.getNode(id)
	if err != nil {
		return removeOutcome{}, err
	}
	if node.Type == LeafNode {
		return t.removeLeaf(node, key)
	}
	return t.removeInternal(node, key)
}

func (t *Txn) removeLeaf(leaf *Node, key []byte) (removeOutcome, error) {
	pos, ok := leaf.find(key)
	if !ok {
		return removeOutcome{}, nil
	}

	working := leaf.clone()
	working.removeAt(pos)
	t.putNode(working)

	if len(working.Records) >= MinRecords {
		return removeOutcome{}, nil
	}
	return removeOutcome{needsCombine: true, node: working}, nil
}

func (t *Txn) removeInternal(node *Node, key []byte) (removeOutcome, error) {
	pos := node.matchingChildPos(key)
	childID := node.Records[pos].Child

	childOutcome, err := t.removeFrom(childID, key)
	if err != nil {
		return removeOutcome{}, err
	}
	if !childOutcome.needsCombine {
		return removeOutcome{}, nil
	}
	return t.combineChildren(node, childOutcome.node)
}

// combineChildren implements spec.md §4.8's decision table: prefer
// redistributing from whichever sibling has spare records, otherwise
// merge with whichever sibling is exactly at the floor.
func (t *Txn) combineChildren(parent *Node, focal *Node) (removeOutcome, error) {
	pos := -1
	for i, r := range parent.Records {
		if r.Child == focal.ID {
			pos = i
			break
		}
	}
	if pos < 0 {
		return removeOutcome{}, newErr("combine_children", KindCorruptState, nil)
	}

	// A non-root parent always retains >= MinRecords records, so it
	// always has at least one sibling; a single-record parent only
	// happens at the root, where b+remove's caller collapses instead.
	if len(parent.Records) == 1 {
		return removeOutcome{needsCombine: true, node: focal}, nil
	}

	var left, right *Node
	var leftKey, rightKey []byte
	if pos > 0 {
		sib, err := t.getNode(parent.Records[pos-1].Child)
		if err != nil {
			return removeOutcome{}, err
		}
		left, leftKey = sib, parent.Records[pos].Key
	}
	if pos < len(parent.Records)-1 {
		sib, err := t.getNode(parent.Records[pos+1].Child)
		if err != nil {
			return removeOutcome{}, err
		}
		right, rightKey = sib, parent.Records[pos+1].Key
	}

	working := parent.clone()

	switch {
	case right != nil && len(right.Records) > MinRecords:
		distributedBy := t.redistribute(rightKey, focal, right)
		working.removeRecordByKey(rightKey)
		working.insertSorted(Record{Key: distributedBy, Child: right.ID})
		t.db.metrics.redistribute("right")

	case left != nil && len(left.Records) > MinRecords:
		distributedBy := t.redistribute(leftKey, left, focal)
		working.removeRecordByKey(leftKey)
		working.insertSorted(Record{Key: distributedBy, Child: focal.ID})
		t.db.metrics.redistribute("left")

	case right != nil && len(right.Records) == MinRecords:
		t.merge(rightKey, focal, right)
		working.removeRecordByKey(rightKey)
		t.db.metrics.merge("right")

	default:
		t.merge(leftKey, left, focal)
		working.removeRecordByKey(leftKey)
		t.db.metrics.merge("left")
	}

	t.putNode(working)
	if len(working.Records) < MinRecords {
		return removeOutcome{needsCombine: true, node: working}, nil
	}
	return removeOutcome{}, nil
}

// combineRecords concatenates left and right's records. For internal
// nodes, right's leading sentinel record is first renamed to midKey
// (restoring its real separator) since the two subtrees are about to
// share one set of records (spec.md §4.8).
func combineRecords(midKey []byte, left, right *Node) []Record {
	rightRecords := right.Records
	if left.Type == InternalNode {
		rightRecords = append([]Record{}, right.Records...)
		rightRecords[0] = Record{Key: midKey, Child: rightRecords[0].Child}
	}
	combined := make([]Record, 0, len(left.Records)+len(rightRecords))
	combined = append(combined, left.Records...)
	combined = append(combined, rightRecords...)
	return combined
}

// redistribute rebuilds left and right from their combined records
// split back in half, marks both dirty, and returns the new separator
// key the caller should install between them (spec.md §4.8).
func (t *Txn) redistribute(midKey []byte, left, right *Node) []byte {
	combined := combineRecords(midKey, left, right)
	pos := ceilDiv(len(combined), 2)

	leftHalf := combined[:pos]
	rightHalf := append([]Record{}, combined[pos:]...)
	splitKey := rightHalf[0].Key
	if left.Type == InternalNode {
		rightHalf[0] = Record{Key: nil, Child: rightHalf[0].Child}
	}

	newLeft := left.clone()
	newLeft.Records = leftHalf
	newRight := right.clone()
	newRight.Records = rightHalf

	t.putNode(newLeft)
	t.putNode(newRight)
	return splitKey
}

// merge folds right into left (left keeps its id; right is
// tombstoned). Leaf Next links are relinked across the removed node.
func (t *Txn) merge(midKey []byte, left, right *Node) {
	combined := combineRecords(midKey, left, right)
	newLeft := left.clone()
	newLeft.Records = combined
	if newLeft.Type == LeafNode {
		newLeft.Next = right.Next
	}
	t.putNode(newLeft)
	t.deleteNode(right.ID)
}

// removeRecordByKey removes the first record whose key matches k.
func (n *Node) removeRecordByKey(k []byte) {
	for i, r := range n.Records {
		if compareKeys(r.Key, k) == 0 {
			n.removeAt(i)
			return
		}
	}
}
