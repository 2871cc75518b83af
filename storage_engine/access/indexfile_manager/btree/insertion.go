package btree

import (
	"go.uber.org/zap"

	"PrefixDB/types"
)

/*
Insertion engine: recursive descent with split and middle-key promotion.

insertInSubtree descends from an internal node to the child covering the
key, inserts, and absorbs any (key, new page) pair a child split pushed
up. A full internal node splits in turn; when the split node is the root
a new root of level+1 is grown and the meta page rewritten.

Leaf splits copy the new right leaf's first key up; internal splits move
the middle key up, removing it from the children. The two promotion
branches are deliberately kept separate — they differ in which key is
promoted and how the boundary child pointer crosses over.
*/

// InsertEntry inserts one (key, rid) pair.
func (ix *BTreeIndex) InsertEntry(key types.Key, rid types.RecordId) error {
	if ix.rootPageNum == types.InvalidPageNumber {
		return ix.bootstrap(key, rid)
	}
	_, _, err := ix.insertInSubtree(ridKeyPair{rid: rid, key: key}, ix.rootPageNum)
	return err
}

// bootstrap handles the very first insert: a level-1 root over two
// leaves, with the key placed only in the right leaf. The left leaf
// stays empty; later keys below the first router key land there under
// the descent rule.
func (ix *BTreeIndex) bootstrap(key types.Key, rid types.RecordId) error {
	rootPid, root, err := ix.allocateNonLeafNode()
	if err != nil {
		return err
	}
	root.setLevel(1)
	if err := ix.setRoot(rootPid); err != nil {
		_ = ix.unpin(rootPid, true)
		return err
	}
	root.setKey(0, key)

	leftPid, left, err := ix.allocateLeafNode()
	if err != nil {
		_ = ix.unpin(rootPid, true)
		return err
	}
	rightPid, right, err := ix.allocateLeafNode()
	if err != nil {
		_ = ix.unpin(rootPid, true)
		_ = ix.unpin(leftPid, true)
		return err
	}

	left.setRightSib(rightPid)
	root.setChild(0, leftPid)
	root.setChild(1, rightPid)
	right.setKey(0, key)
	right.setRid(0, rid)

	ix.log.Debug("bootstrapped tree",
		zap.String("index", ix.indexName),
		zap.Uint32("root", uint32(rootPid)))

	if err := ix.unpin(rootPid, true); err != nil {
		return err
	}
	if err := ix.unpin(leftPid, true); err != nil {
		return err
	}
	return ix.unpin(rightPid, true)
}

// insertInSubtree inserts krid below the internal node at pageNum.
// Returns (true, promoted pair) when this node itself split and the
// caller must absorb the promotion; the root case is resolved here.
func (ix *BTreeIndex) insertInSubtree(krid ridKeyPair, pageNum types.PageId) (bool, pageKeyPair, error) {
	curr, err := ix.readNonLeafNode(pageNum)
	if err != nil {
		return false, pageKeyPair{}, err
	}
	currLen := curr.length()

	// Descent rule: strictly-less goes left of the first key, greater-
	// or-equal of the last key goes right of it, otherwise the covering
	// middle child.
	childIdx := currLen
	if krid.key.Compare(curr.key(0)) < 0 {
		childIdx = 0
	} else if krid.key.Compare(curr.key(currLen-1)) >= 0 {
		childIdx = currLen
	} else {
		for i := 0; i < currLen-1; i++ {
			if curr.key(i).Compare(krid.key) <= 0 && krid.key.Compare(curr.key(i+1)) < 0 {
				childIdx = i + 1
				break
			}
		}
	}
	childPid := curr.child(childIdx)

	var split bool
	var splitKey pageKeyPair
	if curr.level() == 1 {
		split, splitKey, err = ix.insertInLeaf(krid, childPid)
	} else {
		split, splitKey, err = ix.insertInSubtree(krid, childPid)
	}
	if err != nil {
		_ = ix.unpin(pageNum, false)
		return false, pageKeyPair{}, err
	}

	if !split {
		return false, pageKeyPair{}, ix.unpin(pageNum, false)
	}

	// A child pushed up (key, new right page).
	if !curr.full() {
		ix.insertInRoomyNonLeaf(curr, splitKey)
		return false, pageKeyPair{}, ix.unpin(pageNum, true)
	}

	return ix.splitNonLeaf(curr, pageNum, splitKey)
}

// splitNonLeaf splits the full internal node curr, absorbs splitKey into
// the correct half, and either grows a new root or pushes the middle key
// up to the caller.
func (ix *BTreeIndex) splitNonLeaf(curr nonLeafNode, pageNum types.PageId, splitKey pageKeyPair) (bool, pageKeyPair, error) {
	newPageNum, newNode, err := ix.allocateNonLeafNode()
	if err != nil {
		_ = ix.unpin(pageNum, false)
		return false, pageKeyPair{}, err
	}
	newNode.setLevel(curr.level())

	// Move the upper half [M/2, M) into the new node, zeroing the
	// vacated slots so the occupancy prefix stays dense.
	half := ix.nonLeafCap / 2
	temp := curr.child(half)
	i := half
	for ; i < ix.nonLeafCap; i++ {
		newNode.setKey(i-half, curr.key(i))
		newNode.setChild(i-half, temp)
		curr.clearKey(i)
		temp = curr.child(i + 1)
		curr.setChild(i+1, types.InvalidPageNumber)
	}
	newNode.setChild(i-half, temp)

	// The two promotion branches are not symmetric; keep them apart.
	var midKey types.Key
	if splitKey.key.Compare(newNode.key(0)) < 0 {
		midKey = ix.promoteFromLeft(curr, newNode, splitKey)
	} else {
		midKey = ix.promoteFromRight(newNode, splitKey)
	}

	if pageNum == ix.rootPageNum {
		// Root split: grow a new root one level up.
		newRootPid, newRoot, err := ix.allocateNonLeafNode()
		if err != nil {
			_ = ix.unpin(pageNum, true)
			_ = ix.unpin(newPageNum, true)
			return false, pageKeyPair{}, err
		}
		newRoot.setLevel(curr.level() + 1)
		newRoot.setKey(0, midKey)
		newRoot.setChild(0, pageNum)
		newRoot.setChild(1, newPageNum)
		if err := ix.setRoot(newRootPid); err != nil {
			_ = ix.unpin(newRootPid, true)
			_ = ix.unpin(pageNum, true)
			_ = ix.unpin(newPageNum, true)
			return false, pageKeyPair{}, err
		}

		ix.log.Debug("root split",
			zap.String("index", ix.indexName),
			zap.Uint32("newRoot", uint32(newRootPid)),
			zap.Int("level", newRoot.level()))

		if err := ix.unpin(newRootPid, true); err != nil {
			_ = ix.unpin(pageNum, true)
			_ = ix.unpin(newPageNum, true)
			return false, pageKeyPair{}, err
		}
		splitKey = pageKeyPair{}
	} else {
		splitKey = pageKeyPair{key: midKey, pageNo: newPageNum}
	}

	if err := ix.unpin(pageNum, true); err != nil {
		_ = ix.unpin(newPageNum, true)
		return false, pageKeyPair{}, err
	}
	if err := ix.unpin(newPageNum, true); err != nil {
		return false, pageKeyPair{}, err
	}
	return true, splitKey, nil
}

// promoteFromLeft inserts splitKey into the old (left) node, which has
// room after the move. The promoted middle key is the left node's last
// key, which is removed; its trailing child pointer crosses over to
// become the new node's leftmost child.
func (ix *BTreeIndex) promoteFromLeft(curr, newNode nonLeafNode, splitKey pageKeyPair) types.Key {
	ix.insertInRoomyNonLeaf(curr, splitKey)
	currLen := curr.length()
	midKey := curr.key(currLen - 1)
	curr.clearKey(currLen - 1)
	newNode.setChild(0, curr.child(currLen))
	curr.setChild(currLen, types.InvalidPageNumber)
	return midKey
}

// promoteFromRight inserts splitKey into the new (right) node. The
// promoted middle key is the new node's first key; the node is then
// shifted one slot left to remove it. The shift also drops the new
// node's leftmost child, the copy of the old node's last child, which
// stays with the old node.
func (ix *BTreeIndex) promoteFromRight(newNode nonLeafNode, splitKey pageKeyPair) types.Key {
	ix.insertInRoomyNonLeaf(newNode, splitKey)
	midKey := newNode.key(0)
	newLen := newNode.length()
	for i := 0; i < newLen; i++ {
		newNode.setKey(i, newNode.key(i+1))
		newNode.setChild(i, newNode.child(i+1))
	}
	newNode.clearKey(newLen - 1)
	newNode.setChild(newLen, types.InvalidPageNumber)
	return midKey
}

// insertInRoomyNonLeaf places (key, child) into a non-full internal
// node in ascending key order. The new child pointer lands immediately
// right of its key; the leftmost pointer is never displaced.
func (ix *BTreeIndex) insertInRoomyNonLeaf(node nonLeafNode, pageKey pageKeyPair) {
	for i := 0; i < node.cap; i++ {
		if node.child(i+1) == types.InvalidPageNumber {
			node.setKey(i, pageKey.key)
			node.setChild(i+1, pageKey.pageNo)
			return
		}
		if node.key(i).Compare(pageKey.key) >= 0 {
			for j := node.cap - 2; j >= i; j-- {
				node.setKey(j+1, node.key(j))
				node.setChild(j+2, node.child(j+1))
			}
			node.setKey(i, pageKey.key)
			node.setChild(i+1, pageKey.pageNo)
			return
		}
	}
}
