package btree

import (
	"PrefixDB/types"
)

/*
Leaf-level insertion. A full leaf splits by moving its upper half into a
new right sibling, threading the sibling chain, and copying the new
leaf's first key up to the parent (copy-up, not move-up: the key stays
in the leaf).
*/

// insertInLeaf inserts krid into the leaf at pageNum, splitting when
// full. Returns (true, copied-up pair) on split.
func (ix *BTreeIndex) insertInLeaf(krid ridKeyPair, pageNum types.PageId) (bool, pageKeyPair, error) {
	curr, err := ix.readLeafNode(pageNum)
	if err != nil {
		return false, pageKeyPair{}, err
	}

	if !curr.full() {
		ix.insertInRoomyLeaf(curr, krid)
		return false, pageKeyPair{}, ix.unpin(pageNum, true)
	}

	// Split: upper half [L/2, L) moves into a new right sibling.
	newPageNum, newLeaf, err := ix.allocateLeafNode()
	if err != nil {
		_ = ix.unpin(pageNum, false)
		return false, pageKeyPair{}, err
	}

	half := ix.leafCap / 2
	for i := half; i < ix.leafCap; i++ {
		newLeaf.setKey(i-half, curr.key(i))
		newLeaf.setRid(i-half, curr.rid(i))
		curr.clearEntry(i)
	}

	// Route the incoming pair by the new leaf's first key.
	if krid.key.Compare(newLeaf.key(0)) < 0 {
		ix.insertInRoomyLeaf(curr, krid)
	} else {
		ix.insertInRoomyLeaf(newLeaf, krid)
	}

	// Thread the sibling chain: curr -> new -> curr's old sibling.
	newLeaf.setRightSib(curr.rightSib())
	curr.setRightSib(newPageNum)

	splitKey := pageKeyPair{pageNo: newPageNum, key: newLeaf.key(0)}

	if err := ix.unpin(pageNum, true); err != nil {
		_ = ix.unpin(newPageNum, true)
		return false, pageKeyPair{}, err
	}
	if err := ix.unpin(newPageNum, true); err != nil {
		return false, pageKeyPair{}, err
	}
	return true, splitKey, nil
}

// insertInRoomyLeaf places (key, rid) into a leaf with free space,
// keeping keys ascending: append at the first free slot, or shift the
// suffix right and insert in place.
func (ix *BTreeIndex) insertInRoomyLeaf(leaf leafNode, krid ridKeyPair) {
	for i := 0; i < leaf.cap; i++ {
		if !leaf.rid(i).Valid() {
			leaf.setKey(i, krid.key)
			leaf.setRid(i, krid.rid)
			return
		}
		if leaf.key(i).Compare(krid.key) >= 0 {
			for j := leaf.cap - 2; j >= i; j-- {
				leaf.setKey(j+1, leaf.key(j))
				leaf.setRid(j+1, leaf.rid(j))
			}
			leaf.setKey(i, krid.key)
			leaf.setRid(i, krid.rid)
			return
		}
	}
}
