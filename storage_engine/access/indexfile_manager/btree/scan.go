package btree

import (
	"github.com/pkg/errors"

	"PrefixDB/types"
)

/*
Scan engine: a stateful cursor over the leaf sibling chain.

StartScan descends to the leaf where the range can begin and positions
the cursor on the first matching entry; the cursor then holds exactly
one pinned leaf until the scan ends. ScanNext emits the current entry
and advances, following rightSibPageNo across leaves.

The descent is a lower-bound search on lowVal, not the insert descent:
under GTE, a router key equal to lowVal sends the scan one child further
right (equal keys may live right of their router), except at the last
router key where the plain greater-than rule applies.
*/

// StartScan begins a range scan over [lowVal, highVal] under the given
// operators. An already-active scan is ended first. An empty range in
// the tree raises types.ErrNoSuchKeyFound.
func (ix *BTreeIndex) StartScan(lowVal types.Key, lowOp types.Operator, highVal types.Key, highOp types.Operator) error {
	if ix.scan.state != scanInactive {
		if err := ix.EndScan(); err != nil {
			return err
		}
	}

	if lowVal.Compare(highVal) > 0 {
		return errors.Wrapf(types.ErrBadScanRange, "low %q > high %q", lowVal.String(), highVal.String())
	}
	if lowOp != types.GT && lowOp != types.GTE {
		return errors.Wrapf(types.ErrBadOpcodes, "low operator %s", lowOp)
	}
	if highOp != types.LT && highOp != types.LTE {
		return errors.Wrapf(types.ErrBadOpcodes, "high operator %s", highOp)
	}

	if ix.rootPageNum == types.InvalidPageNumber {
		return errors.Wrap(types.ErrNoSuchKeyFound, "index is empty")
	}

	ix.scan.state = scanExhausted // active, not yet positioned
	ix.scan.nextEntry = 0
	ix.scan.currentPageNum = types.InvalidPageNumber
	ix.scan.lowVal = lowVal
	ix.scan.highVal = highVal
	ix.scan.lowOp = lowOp
	ix.scan.highOp = highOp

	return ix.findInSubtree(ix.rootPageNum)
}

// findInSubtree descends toward the starting leaf for lowVal, then
// positions the cursor on the first matching entry. No match in range
// ends the scan and raises types.ErrNoSuchKeyFound.
func (ix *BTreeIndex) findInSubtree(pid types.PageId) error {
	curr, err := ix.readNonLeafNode(pid)
	if err != nil {
		return err
	}
	numKeys := curr.length()

	i := 0
	for ; i < numKeys; i++ {
		c := curr.key(i).Compare(ix.scan.lowVal)
		if ix.scan.lowOp == types.GT {
			if c > 0 {
				break
			}
		} else {
			// GTE: an equal router key sends us one child further
			// right, except at the last position.
			if i == numKeys-1 {
				if c > 0 {
					break
				}
			} else {
				if c == 0 {
					i++
					break
				} else if c > 0 {
					break
				}
			}
		}
	}

	if curr.level() != 1 {
		child := curr.child(i)
		if err := ix.unpin(pid, false); err != nil {
			return err
		}
		return ix.findInSubtree(child)
	}

	// The chosen child is a leaf: pin it and look for the first match.
	leafPid := curr.child(i)
	if err := ix.unpin(pid, false); err != nil {
		return err
	}
	leaf, err := ix.readLeafNode(leafPid)
	if err != nil {
		return err
	}
	ix.scan.currentPageNum = leafPid
	ix.scan.currentLeaf = leaf
	ix.scan.state = scanPositioned

	found, err := ix.findInLeaf()
	if err != nil {
		return err
	}
	if !found {
		s := ix.scan
		if err := ix.EndScan(); err != nil {
			return err
		}
		return errors.Wrapf(types.ErrNoSuchKeyFound, "range (%q %s, %q %s)",
			s.lowVal.String(), s.lowOp, s.highVal.String(), s.highOp)
	}
	return nil
}

// findInLeaf walks the sibling chain from the cursor's leaf until an
// entry matches the range. A key above highVal before any match, or a
// missing right sibling, means no match; the cursor keeps its last leaf
// pinned for EndScan to release.
func (ix *BTreeIndex) findInLeaf() (bool, error) {
	for {
		leaf := ix.scan.currentLeaf
		numKeys := leaf.length()
		for i := 0; i < numKeys; i++ {
			key := leaf.key(i)
			if ix.matchRange(key) {
				ix.scan.nextEntry = i
				return true, nil
			}
			if key.Compare(ix.scan.highVal) > 0 {
				return false, nil
			}
		}

		// Leaf exhausted (possibly empty, like the bootstrap left
		// leaf): jump to the right sibling.
		sib := leaf.rightSib()
		if sib == types.InvalidPageNumber {
			return false, nil
		}
		if err := ix.unpin(ix.scan.currentPageNum, false); err != nil {
			return false, err
		}
		next, err := ix.readLeafNode(sib)
		if err != nil {
			ix.scan.state = scanExhausted
			ix.scan.currentPageNum = types.InvalidPageNumber
			return false, err
		}
		ix.scan.currentPageNum = sib
		ix.scan.currentLeaf = next
	}
}

// matchRange is the range predicate over both bounds.
func (ix *BTreeIndex) matchRange(key types.Key) bool {
	var lowFit, highFit bool
	if ix.scan.lowOp == types.GT {
		lowFit = key.Compare(ix.scan.lowVal) > 0
	} else {
		lowFit = key.Compare(ix.scan.lowVal) >= 0
	}
	if ix.scan.highOp == types.LT {
		highFit = key.Compare(ix.scan.highVal) < 0
	} else {
		highFit = key.Compare(ix.scan.highVal) <= 0
	}
	return lowFit && highFit
}

// ScanNext emits the record id at the cursor and advances. Past the last
// matching entry the scan is ended and types.ErrIndexScanCompleted
// raised.
func (ix *BTreeIndex) ScanNext(rid *types.RecordId) error {
	if ix.scan.state == scanInactive {
		return errors.Wrap(types.ErrScanNotInitialized, "scanNext")
	}

	if ix.scan.state != scanPositioned || !ix.matchRange(ix.scan.currentLeaf.key(ix.scan.nextEntry)) {
		if err := ix.EndScan(); err != nil {
			return err
		}
		return errors.Wrap(types.ErrIndexScanCompleted, "scanNext")
	}

	*rid = ix.scan.currentLeaf.rid(ix.scan.nextEntry)

	// Advance: either within the leaf or across the sibling chain.
	if ix.scan.nextEntry == ix.scan.currentLeaf.length()-1 {
		sib := ix.scan.currentLeaf.rightSib()
		if err := ix.unpin(ix.scan.currentPageNum, false); err != nil {
			return err
		}
		if sib == types.InvalidPageNumber {
			ix.scan.state = scanExhausted
			ix.scan.currentPageNum = types.InvalidPageNumber
			ix.scan.currentLeaf = leafNode{}
		} else {
			leaf, err := ix.readLeafNode(sib)
			if err != nil {
				ix.scan.state = scanExhausted
				ix.scan.currentPageNum = types.InvalidPageNumber
				return err
			}
			ix.scan.currentPageNum = sib
			ix.scan.currentLeaf = leaf
			ix.scan.nextEntry = 0
		}
	} else {
		ix.scan.nextEntry++
	}
	return nil
}

// EndScan releases the cursor's pinned leaf and clears the scan state.
func (ix *BTreeIndex) EndScan() error {
	if ix.scan.state == scanInactive {
		return errors.Wrap(types.ErrScanNotInitialized, "endScan")
	}
	if ix.scan.state == scanPositioned {
		if err := ix.unpin(ix.scan.currentPageNum, false); err != nil {
			return err
		}
	}
	ix.scan = scanCursor{}
	return nil
}
