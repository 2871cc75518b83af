package btree

import (
	"bytes"
	"encoding/binary"

	"PrefixDB/types"
)

/*
Typed overlays over raw pinned pages.

A node overlay borrows the buffer pool frame and reads/writes fields at
fixed little-endian offsets, so every mutation lands directly in the
frame and is persisted by UnpinPage(dirty). The overlay is only valid
while its page is pinned.

Leaf page layout (capacity L):

	0..4    rightSibPageNo  uint32
	4..     L entries of [ key 10B | ridPageNo uint32 | ridSlot uint16 | 2B reserved ]

NonLeaf page layout (capacity M):

	0..4        level  int32
	4..4+M*10   keyArray, 10B each
	4+M*10..    pageNoArray, (M+1) uint32

Meta page layout (page 1):

	0..20   relationName, NUL-padded
	20..24  attrByteOffset  uint32
	24..28  rootPageNo      uint32
	28..32  version         uint32
	32..36  leafCapacity    uint32
	36..40  nonLeafCapacity uint32

A freshly allocated page is zero-filled, which decodes as an empty node:
no sibling, every rid invalid, level 0, every child invalid.
*/

const (
	leafEntrySize     = types.KeySize + types.RecordIdSize
	leafHeaderSize    = 4
	nonLeafKeyBase    = 4
	metaAttrOffset    = 20
	metaRootOffset    = 24
	metaVersionOff    = 28
	metaLeafCapOff    = 32
	metaNonLeafCapOff = 36
)

// ############################################# LEAF NODE #############################################

type leafNode struct {
	data []byte
	cap  int
}

func (l leafNode) entryOff(i int) int {
	return leafHeaderSize + i*leafEntrySize
}

func (l leafNode) rightSib() types.PageId {
	return types.PageId(binary.LittleEndian.Uint32(l.data[0:4]))
}

func (l leafNode) setRightSib(pid types.PageId) {
	binary.LittleEndian.PutUint32(l.data[0:4], uint32(pid))
}

func (l leafNode) key(i int) types.Key {
	var k types.Key
	copy(k[:], l.data[l.entryOff(i):])
	return k
}

func (l leafNode) setKey(i int, k types.Key) {
	copy(l.data[l.entryOff(i):], k[:])
}

func (l leafNode) rid(i int) types.RecordId {
	off := l.entryOff(i) + types.KeySize
	return types.RecordId{
		PageNumber: types.PageId(binary.LittleEndian.Uint32(l.data[off : off+4])),
		SlotNumber: types.SlotId(binary.LittleEndian.Uint16(l.data[off+4 : off+6])),
	}
}

func (l leafNode) setRid(i int, rid types.RecordId) {
	off := l.entryOff(i) + types.KeySize
	binary.LittleEndian.PutUint32(l.data[off:off+4], uint32(rid.PageNumber))
	binary.LittleEndian.PutUint16(l.data[off+4:off+6], uint16(rid.SlotNumber))
}

// clearEntry writes the zero-filled sentinel back into slot i so the
// occupancy prefix stays dense.
func (l leafNode) clearEntry(i int) {
	off := l.entryOff(i)
	for b := off; b < off+leafEntrySize; b++ {
		l.data[b] = 0
	}
}

// length is the index of the first free rid slot.
func (l leafNode) length() int {
	for i := 0; i < l.cap; i++ {
		if !l.rid(i).Valid() {
			return i
		}
	}
	return l.cap
}

// full reports whether the last rid slot is occupied.
func (l leafNode) full() bool {
	return l.rid(l.cap - 1).Valid()
}

// ############################################# NON-LEAF NODE #############################################

type nonLeafNode struct {
	data []byte
	cap  int
}

func (n nonLeafNode) keyOff(i int) int {
	return nonLeafKeyBase + i*types.KeySize
}

func (n nonLeafNode) childOff(i int) int {
	return nonLeafKeyBase + n.cap*types.KeySize + i*4
}

func (n nonLeafNode) level() int {
	return int(int32(binary.LittleEndian.Uint32(n.data[0:4])))
}

func (n nonLeafNode) setLevel(level int) {
	binary.LittleEndian.PutUint32(n.data[0:4], uint32(int32(level)))
}

func (n nonLeafNode) key(i int) types.Key {
	var k types.Key
	copy(k[:], n.data[n.keyOff(i):])
	return k
}

func (n nonLeafNode) setKey(i int, k types.Key) {
	copy(n.data[n.keyOff(i):], k[:])
}

func (n nonLeafNode) clearKey(i int) {
	off := n.keyOff(i)
	for b := off; b < off+types.KeySize; b++ {
		n.data[b] = 0
	}
}

// child returns pageNoArray[i], i in [0, cap].
func (n nonLeafNode) child(i int) types.PageId {
	off := n.childOff(i)
	return types.PageId(binary.LittleEndian.Uint32(n.data[off : off+4]))
}

func (n nonLeafNode) setChild(i int, pid types.PageId) {
	off := n.childOff(i)
	binary.LittleEndian.PutUint32(n.data[off:off+4], uint32(pid))
}

// length counts router keys: the first i in 1..cap with pageNoArray[i]
// unoccupied ends the dense prefix.
func (n nonLeafNode) length() int {
	for i := 1; i <= n.cap; i++ {
		if n.child(i) == types.InvalidPageNumber {
			return i - 1
		}
	}
	return n.cap
}

// full reports whether the last child slot is occupied.
func (n nonLeafNode) full() bool {
	return n.child(n.cap) != types.InvalidPageNumber
}

// ############################################# META PAGE #############################################

type metaPage struct {
	data []byte
}

func (m metaPage) relationName() string {
	return string(bytes.TrimRight(m.data[:relationNameSize], "\x00"))
}

func (m metaPage) setRelationName(name string) {
	for i := 0; i < relationNameSize; i++ {
		m.data[i] = 0
	}
	copy(m.data[:relationNameSize], name)
}

func (m metaPage) attrByteOffset() int {
	return int(binary.LittleEndian.Uint32(m.data[metaAttrOffset:]))
}

func (m metaPage) setAttrByteOffset(off int) {
	binary.LittleEndian.PutUint32(m.data[metaAttrOffset:], uint32(off))
}

func (m metaPage) rootPageNo() types.PageId {
	return types.PageId(binary.LittleEndian.Uint32(m.data[metaRootOffset:]))
}

func (m metaPage) setRootPageNo(pid types.PageId) {
	binary.LittleEndian.PutUint32(m.data[metaRootOffset:], uint32(pid))
}

func (m metaPage) version() uint32 {
	return binary.LittleEndian.Uint32(m.data[metaVersionOff:])
}

func (m metaPage) setVersion(v uint32) {
	binary.LittleEndian.PutUint32(m.data[metaVersionOff:], v)
}

func (m metaPage) leafCapacity() int {
	return int(binary.LittleEndian.Uint32(m.data[metaLeafCapOff:]))
}

func (m metaPage) setLeafCapacity(c int) {
	binary.LittleEndian.PutUint32(m.data[metaLeafCapOff:], uint32(c))
}

func (m metaPage) nonLeafCapacity() int {
	return int(binary.LittleEndian.Uint32(m.data[metaNonLeafCapOff:]))
}

func (m metaPage) setNonLeafCapacity(c int) {
	binary.LittleEndian.PutUint32(m.data[metaNonLeafCapOff:], uint32(c))
}
