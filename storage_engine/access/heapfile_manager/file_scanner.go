package heapfile

import (
	"github.com/pkg/errors"

	"PrefixDB/types"
)

// FileScanner streams every record of a heap file in (page, slot) order.
// End of stream is types.ErrEndOfFile.
//
// Usage mirrors the index bulk build:
//
//	scanner, err := hfm.NewScanner("relA")
//	var rid types.RecordId
//	for scanner.ScanNext(&rid) == nil {
//		record, _ := scanner.GetRecord()
//		...
//	}
type FileScanner struct {
	hf       *HeapFile
	pageNo   uint32
	page     []byte
	nextSlot types.SlotId
	current  []byte
	done     bool
}

// NewFileScanner positions a scanner before the first record of hf.
func NewFileScanner(hf *HeapFile) *FileScanner {
	return &FileScanner{hf: hf}
}

// ScanNext advances to the next record and writes its locator into rid.
// Returns types.ErrEndOfFile when the relation is exhausted.
func (s *FileScanner) ScanNext(rid *types.RecordId) error {
	if s.done {
		return errors.Wrapf(types.ErrEndOfFile, "relation %s", s.hf.RelationName())
	}

	for {
		if s.page == nil {
			s.pageNo++
			if s.pageNo > s.hf.NumPages() {
				s.done = true
				return errors.Wrapf(types.ErrEndOfFile, "relation %s", s.hf.RelationName())
			}
			page, err := s.hf.readPage(s.pageNo)
			if err != nil {
				return err
			}
			s.page = page
			s.nextSlot = 0
		}

		header := readPageHeader(s.page)
		for uint16(s.nextSlot) < header.SlotCount {
			slot := readSlot(s.page, s.nextSlot)
			slotIndex := s.nextSlot
			s.nextSlot++
			if slot == nil || slot.Offset == 0 || slot.Length == 0 {
				continue
			}
			s.current = s.page[slot.Offset : slot.Offset+slot.Length]
			rid.PageNumber = types.PageId(s.pageNo)
			rid.SlotNumber = slotIndex
			return nil
		}

		// Page exhausted, move on.
		s.page = nil
	}
}

// GetRecord returns the record at the scanner's current position.
func (s *FileScanner) GetRecord() ([]byte, error) {
	if s.current == nil {
		return nil, errors.New("GetRecord: scanner not positioned; call ScanNext first")
	}
	return s.current, nil
}
