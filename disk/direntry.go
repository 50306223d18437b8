package disk

import "strings"

// DirEntry wraps one 32-byte CP/M directory entry. It keeps a private copy
// of the entry bytes plus the position it was read from, so a mutated entry
// can be published back into the image as a whole record at a fixed offset.
//
// Layout:
//
//	0     user number (0xE5 = free slot)
//	1-8   filename, space padded
//	9-11  extension, space padded
//	12    extent number, low 5 bits
//	13    S1 (reserved)
//	14    extent number, high bits
//	15    record count, 0-128
//	16-31 allocation map, 8 x uint16 little-endian block numbers
type DirEntry struct {
	Data   [CPM_DIR_ENTRY_SIZE]byte
	index  int
	offset int
}

func (de *DirEntry) SetData(data []byte, index, offset int) {
	de.index = index
	de.offset = offset
	copy(de.Data[:], data)
}

func (de *DirEntry) Index() int {
	return de.index
}

func (de *DirEntry) IsFree() bool {
	return de.Data[0] == CPM_FREE_ENTRY
}

func (de *DirEntry) User() int {
	return int(de.Data[0])
}

func (de *DirEntry) SetUser(u int) {
	de.Data[0] = byte(u)
}

func (de *DirEntry) NameBytes() []byte {
	return de.Data[1:9]
}

func (de *DirEntry) ExtBytes() []byte {
	return de.Data[9:12]
}

// SetNameExt stores an already normalized 8 char name and 3 char extension.
func (de *DirEntry) SetNameExt(name, ext string) {
	copy(de.Data[1:9], name)
	copy(de.Data[9:12], ext)
}

// NameUnadorned gives back the dotted form, e.g. "R8.COM", with padding
// stripped and a bare name when the extension is blank.
func (de *DirEntry) NameUnadorned() string {
	name := strings.TrimRight(string(de.NameBytes()), " ")
	ext := strings.TrimRight(string(de.ExtBytes()), " ")
	if ext == "" {
		return name
	}
	return name + "." + ext
}

// ExtentNumber reassembles the extent sequence from its low/high split.
func (de *DirEntry) ExtentNumber() int {
	return int(de.Data[12]&0x1F) | int(de.Data[14]&0x3F)<<5
}

func (de *DirEntry) SetExtentNumber(seq int) {
	de.Data[12] = byte(seq & 0x1F)
	de.Data[14] = byte((seq >> 5) & 0x3F)
}

func (de *DirEntry) RecordCount() int {
	return int(de.Data[15])
}

func (de *DirEntry) SetRecordCount(rc int) {
	de.Data[15] = byte(rc)
}

// BlockPtr reads allocation map slot i (0-7) as a block number.
func (de *DirEntry) BlockPtr(i int) int {
	return int(de.Data[16+i*2]) + 256*int(de.Data[17+i*2])
}

func (de *DirEntry) SetBlockPtr(i int, block int) {
	de.Data[16+i*2] = byte(block & 0xff)
	de.Data[17+i*2] = byte(block >> 8)
}

// Blocks lists the nonzero allocation map entries in slot order.
func (de *DirEntry) Blocks() []int {
	var out []int
	for i := 0; i < CPM_BLOCKS_PER_EXTENT; i++ {
		if b := de.BlockPtr(i); b != 0 {
			out = append(out, b)
		}
	}
	return out
}

// Publish writes the entry bytes back into the image buffer.
func (de *DirEntry) Publish(img *Image) {
	copy(img.Data[de.offset:de.offset+CPM_DIR_ENTRY_SIZE], de.Data[:])
	img.Modified = true
}

// GetDirEntry reads directory entry i from the image.
func (img *Image) GetDirEntry(i int) *DirEntry {
	offset := img.Format.DirOffset() + i*CPM_DIR_ENTRY_SIZE
	de := &DirEntry{}
	de.SetData(img.Data[offset:offset+CPM_DIR_ENTRY_SIZE], i, offset)
	return de
}
