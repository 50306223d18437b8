package disk

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/ioutil"
	"os"
)

const SECTOR_SIZE = 512

const CPM_RECORD_SIZE = 128
const CPM_BLOCK_SIZE = 4096
const CPM_DIR_ENTRY_SIZE = 32
const CPM_FREE_ENTRY = 0xE5
const CPM_EOF_BYTE = 0x1A
const CPM_MAX_USER = 32
const CPM_BLOCKS_PER_EXTENT = 8
const CPM_RECORDS_PER_EXTENT = 128

const HD1K_SECTORS_PER_TRACK = 32
const HD1K_BOOT_TRACKS = 1
const HD1K_DIR_ENTRIES = 512
const HD1K_DIR_OFFSET = HD1K_BOOT_TRACKS * HD1K_SECTORS_PER_TRACK * SECTOR_SIZE
const HD1K_MIN_BYTES = HD1K_DIR_OFFSET + HD1K_DIR_ENTRIES*CPM_DIR_ENTRY_SIZE

const COMBO_PREFIX_BYTES = 1048576
const COMBO_SLICE_BYTES = 8388608
const COMBO_SECTORS_PER_TRACK = 16
const COMBO_BOOT_TRACKS = 2
const COMBO_DIR_ENTRIES = 1024
const COMBO_DIR_BLOCKS = 8
const COMBO_DIR_OFFSET = COMBO_PREFIX_BYTES + COMBO_BOOT_TRACKS*COMBO_SECTORS_PER_TRACK*SECTOR_SIZE
const COMBO_BLOCKS_PER_SLICE = COMBO_SLICE_BYTES / CPM_BLOCK_SIZE
const COMBO_MIN_BYTES = COMBO_PREFIX_BYTES + COMBO_SLICE_BYTES

var ErrUnsupportedGeometry = errors.New("image too small for disk format")

func Checksum(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

type DiskFormatID int

const (
	DF_NONE DiskFormatID = iota
	DF_HD1K
	DF_HD1K_COMBO
)

type DiskFormat struct {
	ID DiskFormatID
}

func GetDiskFormat(id DiskFormatID) DiskFormat {
	return DiskFormat{ID: id}
}

func (df DiskFormat) String() string {
	switch df.ID {
	case DF_HD1K:
		return "RomWBW hd1k"
	case DF_HD1K_COMBO:
		return "RomWBW hd1k combo (slice 0)"
	}
	return "Unrecognized"
}

func (df DiskFormat) SectorSize() int {
	return SECTOR_SIZE
}

func (df DiskFormat) SPT() int {
	switch df.ID {
	case DF_HD1K:
		return HD1K_SECTORS_PER_TRACK
	case DF_HD1K_COMBO:
		return COMBO_SECTORS_PER_TRACK
	}
	return 0
}

func (df DiskFormat) BlockSize() int {
	return CPM_BLOCK_SIZE
}

func (df DiskFormat) DirEntries() int {
	switch df.ID {
	case DF_HD1K:
		return HD1K_DIR_ENTRIES
	case DF_HD1K_COMBO:
		return COMBO_DIR_ENTRIES
	}
	return 0
}

func (df DiskFormat) BootTracks() int {
	switch df.ID {
	case DF_HD1K:
		return HD1K_BOOT_TRACKS
	case DF_HD1K_COMBO:
		return COMBO_BOOT_TRACKS
	}
	return 0
}

func (df DiskFormat) DirOffset() int {
	switch df.ID {
	case DF_HD1K:
		return HD1K_DIR_OFFSET
	case DF_HD1K_COMBO:
		return COMBO_DIR_OFFSET
	}
	return 0
}

// DataOffset is the byte position of block 0. On hd1k disks block numbers
// count from the start of the non-boot area, so block 0 sits at the
// directory's own offset. On combo disks they count from the start of
// slice 0, directly after the 1MB prefix.
func (df DiskFormat) DataOffset() int {
	switch df.ID {
	case DF_HD1K:
		return HD1K_DIR_OFFSET
	case DF_HD1K_COMBO:
		return COMBO_PREFIX_BYTES
	}
	return 0
}

// ReservedBlocks is the count of low block numbers that belong to the
// directory itself and must never be handed to file data.
func (df DiskFormat) ReservedBlocks() int {
	switch df.ID {
	case DF_HD1K_COMBO:
		return COMBO_DIR_BLOCKS
	}
	return 0
}

func (df DiskFormat) MinBytes() int {
	switch df.ID {
	case DF_HD1K:
		return HD1K_MIN_BYTES
	case DF_HD1K_COMBO:
		return COMBO_MIN_BYTES
	}
	return 0
}

// IdentifyFormat guesses the disk format from the image length alone.
// Anything big enough to hold a combo prefix plus a full slice is treated
// as combo, everything else as a plain hd1k disk.
func IdentifyFormat(length int) DiskFormat {
	if length >= COMBO_MIN_BYTES {
		return GetDiskFormat(DF_HD1K_COMBO)
	}
	return GetDiskFormat(DF_HD1K)
}

type Image struct {
	Data     []byte
	Format   DiskFormat
	Filename string
	Modified bool
}

func NewImage(filename string, format DiskFormat) (*Image, error) {

	f, e := os.Open(filename)
	if e != nil {
		return nil, e
	}
	data, e := ioutil.ReadAll(f)
	f.Close()
	if e != nil {
		return nil, e
	}

	return NewImageBin(data, format, filename)

}

func NewImageBin(data []byte, format DiskFormat, filename string) (*Image, error) {

	if format.ID == DF_NONE {
		format = IdentifyFormat(len(data))
	}

	if len(data) < format.MinBytes() {
		return nil, fmt.Errorf("%w: %s needs at least %d bytes, image has %d",
			ErrUnsupportedGeometry, format, format.MinBytes(), len(data))
	}

	img := &Image{
		Data:     data,
		Format:   format,
		Filename: filename,
	}

	return img, nil

}

// MaxBlocks is the highest block count the image can address: the fixed
// slice size for combo disks, and whatever fits between the data offset
// and the end of the buffer for hd1k.
func (img *Image) MaxBlocks() int {
	if img.Format.ID == DF_HD1K_COMBO {
		return COMBO_BLOCKS_PER_SLICE
	}
	return (len(img.Data) - img.Format.DataOffset()) / img.Format.BlockSize()
}

// BlockOffset returns the byte position of a data block.
func (img *Image) BlockOffset(block int) int {
	return img.Format.DataOffset() + block*img.Format.BlockSize()
}

func (img *Image) ChecksumDisk() string {
	return Checksum(img.Data)
}

// WriteBack flushes the whole buffer to the file the image was read from.
func (img *Image) WriteBack() error {
	if img.Filename == "" {
		return errors.New("image has no backing file")
	}
	return ioutil.WriteFile(img.Filename, img.Data, 0644)
}
