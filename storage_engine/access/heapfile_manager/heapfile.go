package heapfile

import (
	"encoding/binary"
	"os"

	"github.com/pkg/errors"

	"PrefixDB/types"
)

/*
Page-level operations of a heap file.

Page layout:

	[ header 32B | record data grows forward ... free ... slot directory grows backward ]

Slot i lives at PageSize - (i+1)*SlotSize. A record's RecordId is
(pageNo, slotIndex); pages are numbered from 1 so the zero RecordId stays
the "absent" sentinel.
*/

func readPageHeader(page []byte) PageHeader {
	return PageHeader{
		PageNo:     binary.LittleEndian.Uint32(page[0:4]),
		FreePtr:    binary.LittleEndian.Uint16(page[4:6]),
		NumRecords: binary.LittleEndian.Uint16(page[6:8]),
		IsPageFull: binary.LittleEndian.Uint16(page[8:10]),
		SlotCount:  binary.LittleEndian.Uint16(page[10:12]),
		FreeBytes:  binary.LittleEndian.Uint16(page[12:14]),
	}
}

func writePageHeader(page []byte, h *PageHeader) {
	binary.LittleEndian.PutUint32(page[0:4], h.PageNo)
	binary.LittleEndian.PutUint16(page[4:6], h.FreePtr)
	binary.LittleEndian.PutUint16(page[6:8], h.NumRecords)
	binary.LittleEndian.PutUint16(page[8:10], h.IsPageFull)
	binary.LittleEndian.PutUint16(page[10:12], h.SlotCount)
	binary.LittleEndian.PutUint16(page[12:14], h.FreeBytes)
}

func readSlot(page []byte, slotIndex types.SlotId) *Slot {
	header := readPageHeader(page)
	if uint16(slotIndex) >= header.SlotCount {
		return nil
	}
	base := PageSize - (int(slotIndex)+1)*SlotSize
	return &Slot{
		Offset: binary.LittleEndian.Uint16(page[base : base+2]),
		Length: binary.LittleEndian.Uint16(page[base+2 : base+4]),
	}
}

func writeSlot(page []byte, slotIndex types.SlotId, s Slot) {
	base := PageSize - (int(slotIndex)+1)*SlotSize
	binary.LittleEndian.PutUint16(page[base:base+2], s.Offset)
	binary.LittleEndian.PutUint16(page[base+2:base+4], s.Length)
}

func freeSpace(h PageHeader) uint16 {
	slotDirStart := uint16(PageSize - int(h.SlotCount)*SlotSize)
	if h.FreePtr > slotDirStart {
		return 0
	}
	return slotDirStart - h.FreePtr
}

// initializePage appends a fresh page with an empty slot directory.
func (hf *HeapFile) initializePage(pageNo uint32) error {
	page := make([]byte, PageSize)
	header := PageHeader{
		PageNo:    pageNo,
		FreePtr:   PageHeaderSize,
		FreeBytes: PageSize - PageHeaderSize,
	}
	writePageHeader(page, &header)

	offset := int64(pageNo-1) * PageSize
	if _, err := hf.file.WriteAt(page, offset); err != nil {
		return errors.Wrapf(err, "failed to initialize page %d of %s", pageNo, hf.path)
	}
	hf.numPages = pageNo
	return nil
}

func (hf *HeapFile) readPage(pageNo uint32) ([]byte, error) {
	if pageNo == 0 || pageNo > hf.numPages {
		return nil, errors.Wrapf(types.ErrPageNotFound, "heap page %d of %s", pageNo, hf.path)
	}
	page := make([]byte, PageSize)
	offset := int64(pageNo-1) * PageSize
	if _, err := hf.file.ReadAt(page, offset); err != nil {
		return nil, errors.Wrapf(err, "failed to read heap page %d of %s", pageNo, hf.path)
	}
	return page, nil
}

func (hf *HeapFile) writePage(pageNo uint32, page []byte) error {
	offset := int64(pageNo-1) * PageSize
	if _, err := hf.file.WriteAt(page, offset); err != nil {
		return errors.Wrapf(err, "failed to write heap page %d of %s", pageNo, hf.path)
	}
	return nil
}

// InsertRecord appends a record and returns its RecordId. Insertion is
// first-fit on the tail page: once a page cannot take the record it is
// marked full and a new page is started.
func (hf *HeapFile) InsertRecord(record []byte) (types.RecordId, error) {
	hf.mu.Lock()
	defer hf.mu.Unlock()

	recordLen := uint16(len(record))
	maxRecordSize := uint16(PageSize - PageHeaderSize - SlotSize)
	if len(record) == 0 || recordLen > maxRecordSize {
		return types.RecordId{}, errors.Errorf("record size %d out of range (max %d)", len(record), maxRecordSize)
	}

	if hf.numPages == 0 {
		if err := hf.initializePage(1); err != nil {
			return types.RecordId{}, err
		}
	}

	pageNo := hf.numPages
	page, err := hf.readPage(pageNo)
	if err != nil {
		return types.RecordId{}, err
	}

	header := readPageHeader(page)
	if header.IsPageFull != 0 || freeSpace(header) < recordLen+SlotSize {
		header.IsPageFull = 1
		writePageHeader(page, &header)
		if err := hf.writePage(pageNo, page); err != nil {
			return types.RecordId{}, err
		}

		pageNo++
		if err := hf.initializePage(pageNo); err != nil {
			return types.RecordId{}, err
		}
		if page, err = hf.readPage(pageNo); err != nil {
			return types.RecordId{}, err
		}
		header = readPageHeader(page)
	}

	// Write record bytes at FreePtr and register the slot.
	copy(page[header.FreePtr:header.FreePtr+recordLen], record)
	slotIndex := types.SlotId(header.SlotCount)
	writeSlot(page, slotIndex, Slot{Offset: header.FreePtr, Length: recordLen})

	header.FreePtr += recordLen
	header.NumRecords++
	header.SlotCount++
	header.FreeBytes = freeSpace(header)
	if header.FreeBytes < recordLen+SlotSize {
		header.IsPageFull = 1
	}
	writePageHeader(page, &header)

	if err := hf.writePage(pageNo, page); err != nil {
		return types.RecordId{}, err
	}

	return types.RecordId{PageNumber: types.PageId(pageNo), SlotNumber: slotIndex}, nil
}

// GetRecord returns the record bytes at rid.
func (hf *HeapFile) GetRecord(rid types.RecordId) ([]byte, error) {
	hf.mu.Lock()
	defer hf.mu.Unlock()

	page, err := hf.readPage(uint32(rid.PageNumber))
	if err != nil {
		return nil, err
	}

	slot := readSlot(page, rid.SlotNumber)
	if slot == nil || slot.Offset == 0 || slot.Length == 0 {
		return nil, errors.Wrapf(types.ErrInvalidSlot, "slot %d of heap page %d", rid.SlotNumber, rid.PageNumber)
	}

	record := make([]byte, slot.Length)
	copy(record, page[slot.Offset:slot.Offset+slot.Length])
	return record, nil
}

// NumPages returns the number of pages in the relation file.
func (hf *HeapFile) NumPages() uint32 {
	hf.mu.Lock()
	defer hf.mu.Unlock()
	return hf.numPages
}

// Close closes the underlying file handle.
func (hf *HeapFile) Close() error {
	hf.mu.Lock()
	defer hf.mu.Unlock()
	return hf.file.Close()
}

func openHeapFile(relationName, path string, create bool) (*HeapFile, error) {
	flags := os.O_RDWR
	if create {
		flags |= os.O_CREATE | os.O_EXCL
	}
	file, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(types.ErrFileNotFound, "no heap file for relation %s at %s", relationName, path)
		}
		if os.IsExist(err) {
			return nil, errors.Wrapf(types.ErrFileExists, "heap file for relation %s at %s", relationName, path)
		}
		return nil, errors.Wrapf(err, "failed to open heap file %s", path)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errors.Wrapf(err, "failed to stat heap file %s", path)
	}

	return &HeapFile{
		relationName: relationName,
		path:         path,
		file:         file,
		numPages:     uint32(stat.Size() / PageSize),
	}, nil
}
