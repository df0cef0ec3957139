package bptree

// Pair is one key/value result from Seek.
type Pair struct {
	Key   []byte
	Value []byte
}

// Seek returns every (key, value) pair with start <= key <= end, in
// ascending order, following leaf Next links across leaf boundaries
// (spec.md §4.6). A limit <= 0 means unbounded. A nil start means
// unbounded below (-infinity); a nil end means unbounded above
// (+infinity) — matchingLeaf would otherwise collapse a nil key to
// the leftmost leaf, so the end side is resolved via rightmostLeaf
// instead whenever end is nil.
func (t *Txn) Seek(start, end []byte, limit int) ([]Pair, error) {
	startLeaf, err := t.matchingLeaf(t.rootID, start)
	if err != nil {
		return nil, err
	}

	var endLeaf *Node
	useHi := end != nil
	if useHi {
		endLeaf, err = t.matchingLeaf(t.rootID, end)
	} else {
		endLeaf, err = t.rightmostLeaf(t.rootID)
	}
	if err != nil {
		return nil, err
	}

	var results []Pair
	appendInRange := func(n *Node, lo, hi []byte, useLo, useHi bool) {
		for _, r := range n.Records {
			if useLo && compareKeys(r.Key, lo) < 0 {
				continue
			}
			if useHi && compareKeys(r.Key, hi) > 0 {
				continue
			}
			results = append(results, Pair{Key: r.Key, Value: r.Value})
		}
	}

	if startLeaf.ID == endLeaf.ID {
		appendInRange(startLeaf, start, end, true, useHi)
		return truncate(results, limit), nil
	}

	appendInRange(startLeaf, start, nil, true, false)
	cur := startLeaf
	for cur.Next != 0 {
		next, err := t.getNode(cur.Next)
		if err != nil {
			return nil, err
		}
		if next.ID == endLeaf.ID {
			appendInRange(next, nil, end, false, useHi)
			break
		}
		appendInRange(next, nil, nil, false, false)
		cur = next
		if limit > 0 && len(results) >= limit {
			break
		}
	}

	return truncate(results, limit), nil
}

func truncate(pairs []Pair, limit int) []Pair {
	if limit > 0 && len(pairs) > limit {
		return pairs[:limit]
	}
	return pairs
}
