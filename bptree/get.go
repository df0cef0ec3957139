package bptree

// Get descends from the root to the matching leaf and returns the
// value for k, if present (spec.md §4.5).
func (t *Txn) Get(key []byte) ([]byte, bool, error) {
	leaf, err := t.matchingLeaf(t.rootID, key)
	if err != nil {
		return nil, false, err
	}
	if pos, ok := leaf.find(key); ok {
		return leaf.Records[pos].Value, true, nil
	}
	return nil, false, nil
}

// matchingLeaf walks from the node at id down to the leaf that would
// contain k (spec.md §4.4: matching-leaf).
func (t *Txn) matchingLeaf(id NodeID, key []byte) (*Node, error) {
	node, err := t.getNode(id)
	if err != nil {
		return nil, err
	}
	for node.Type == InternalNode {
		pos := node.matchingChildPos(key)
		child := node.Records[pos].Child
		node, err = t.getNode(child)
		if err != nil {
			return nil, err
		}
	}
	return node, nil
}

// rightmostLeaf walks from the node at id down its last child at every
// level, reaching the leaf that covers +infinity. Used by Seek when
// end == nil, since matchingLeaf(id, nil) would instead collapse to
// the leftmost leaf (nil sorts as the internal-node sentinel key).
func (t *Txn) rightmostLeaf(id NodeID) (*Node, error) {
	node, err := t.getNode(id)
	if err != nil {
		return nil, err
	}
	for node.Type == InternalNode {
		child := node.Records[len(node.Records)-1].Child
		node, err = t.getNode(child)
		if err != nil {
			return nil, err
		}
	}
	return node, nil
}
