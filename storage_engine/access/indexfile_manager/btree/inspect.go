package btree

import (
	"fmt"
	"io"

	"PrefixDB/types"
)

/*
Tree inspection for debugging. DumpTree walks every node with symmetric
read/unpin pairs and never mutates pin state beyond that.
*/

// DumpTree writes a human-readable dump of the whole tree to w.
func (ix *BTreeIndex) DumpTree(w io.Writer) error {
	fmt.Fprintf(w, "====BEGIN TREE %s====\n", ix.indexName)
	if ix.rootPageNum == types.InvalidPageNumber {
		fmt.Fprintf(w, "\t(empty tree)\n")
	} else {
		if err := ix.dumpSubtree(w, ix.rootPageNum); err != nil {
			return err
		}
	}
	fmt.Fprintf(w, "====END TREE %s====\n", ix.indexName)
	return nil
}

func (ix *BTreeIndex) dumpSubtree(w io.Writer, pageNum types.PageId) error {
	node, err := ix.readNonLeafNode(pageNum)
	if err != nil {
		return err
	}
	numKeys := node.length()

	fmt.Fprintf(w, "***NON-LEAF***\tlevel: %d, pageId: %d, length: %d\n", node.level(), pageNum, numKeys)
	for i := 0; i < numKeys; i++ {
		fmt.Fprintf(w, " {%d} | (%s) |", node.child(i), node.key(i).String())
	}
	fmt.Fprintf(w, " {%d}\n", node.child(numKeys))

	for i := 0; i <= numKeys; i++ {
		if node.level() == 1 {
			if err := ix.dumpLeaf(w, node.child(i)); err != nil {
				_ = ix.unpin(pageNum, false)
				return err
			}
		} else {
			if err := ix.dumpSubtree(w, node.child(i)); err != nil {
				_ = ix.unpin(pageNum, false)
				return err
			}
		}
	}

	return ix.unpin(pageNum, false)
}

func (ix *BTreeIndex) dumpLeaf(w io.Writer, pageNum types.PageId) error {
	leaf, err := ix.readLeafNode(pageNum)
	if err != nil {
		return err
	}
	numKeys := leaf.length()

	fmt.Fprintf(w, "\t***LEAF***\tpageId: %d, rightSibPageNo: %d, length: %d\n", pageNum, leaf.rightSib(), numKeys)
	if numKeys == 0 {
		fmt.Fprintf(w, "\t(empty)\n")
	} else {
		fmt.Fprintf(w, "\t")
		for i := 0; i < numKeys; i++ {
			rid := leaf.rid(i)
			fmt.Fprintf(w, "(%s, [%d, %d]) | ", leaf.key(i).String(), rid.PageNumber, rid.SlotNumber)
		}
		fmt.Fprintf(w, "\n")
	}

	return ix.unpin(pageNum, false)
}
