package disk

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrInvalidFilename = errors.New("invalid CP/M filename")

// NormalizeFileName folds a host filename into the fixed 8+3 directory
// fields: uppercase, split on the last dot, truncated and space padded.
// A name with no dot gets a blank extension rather than an error; a name
// with an empty base ("" or ".COM") is rejected.
func NormalizeFileName(filename string) (name string, ext string, err error) {

	upper := strings.ToUpper(filename)

	if idx := strings.LastIndex(upper, "."); idx >= 0 {
		name = upper[:idx]
		ext = upper[idx+1:]
	} else {
		name = upper
	}

	if name == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}

	if len(name) > 8 {
		name = name[:8]
	}
	if len(ext) > 3 {
		ext = ext[:3]
	}

	name = name + strings.Repeat(" ", 8-len(name))
	ext = ext + strings.Repeat(" ", 3-len(ext))

	return name, ext, nil
}

// CPMWriteFile injects a file into the image: data blocks at their computed
// offsets, one directory entry per extent of up to 8 blocks. The allocation
// state is derived fresh from the directory, so a sequence of calls sees
// each earlier file's blocks as used.
//
// Blocks and directory slots are both secured before the first byte of the
// buffer is touched; a file that cannot fit leaves the image unchanged.
func (img *Image) CPMWriteFile(filename string, data []byte, user int) error {

	name, ext, err := NormalizeFileName(filename)
	if err != nil {
		return err
	}

	records := (len(data) + CPM_RECORD_SIZE - 1) / CPM_RECORD_SIZE
	blocks := (len(data) + img.Format.BlockSize() - 1) / img.Format.BlockSize()
	if blocks == 0 {
		// an empty file still owns one block and one entry
		blocks = 1
	}

	alloc := img.NewBlockAllocator()
	allocated := make([]int, 0, blocks)
	for i := 0; i < blocks; i++ {
		b, err := alloc.Allocate()
		if err != nil {
			return err
		}
		allocated = append(allocated, b)
	}

	extents := (blocks + CPM_BLOCKS_PER_EXTENT - 1) / CPM_BLOCKS_PER_EXTENT
	scanner := img.NewDirScanner()
	slots := make([]*DirEntry, 0, extents)
	for i := 0; i < extents; i++ {
		de, err := scanner.NextFree()
		if err != nil {
			return err
		}
		slots = append(slots, de)
	}

	bs := img.Format.BlockSize()
	for i, block := range allocated {
		offset := img.BlockOffset(block)
		start := i * bs
		end := start + bs
		if end > len(data) {
			end = len(data)
		}
		n := copy(img.Data[offset:offset+bs], data[start:end])
		for j := n; j < bs; j++ {
			img.Data[offset+j] = CPM_EOF_BYTE
		}
	}
	img.Modified = true

	for seq := 0; seq < extents; seq++ {
		first := seq * CPM_BLOCKS_PER_EXTENT
		last := first + CPM_BLOCKS_PER_EXTENT
		if last > blocks {
			last = blocks
		}

		rc := records - first*(bs/CPM_RECORD_SIZE)
		if rc > CPM_RECORDS_PER_EXTENT {
			rc = CPM_RECORDS_PER_EXTENT
		}

		de := slots[seq]
		de.Data = [CPM_DIR_ENTRY_SIZE]byte{}
		de.SetUser(user)
		de.SetNameExt(name, ext)
		de.SetExtentNumber(seq)
		de.SetRecordCount(rc)
		for i, block := range allocated[first:last] {
			de.SetBlockPtr(i, block)
		}
		de.Publish(img)
	}

	return nil
}

type cpmExtent struct {
	records int
	blocks  []int
}

// CPMFileInfo describes one file assembled from its directory extents.
// Records is the sum of the per-extent record counts; since a record count
// caps at 128 it undercounts files above 16K, the way the directory itself
// does.
type CPMFileInfo struct {
	User    int
	Name    string
	Extents int
	Records int
	Blocks  []int
	extents []cpmExtent
}

// Size is the block-granular space the file occupies, which is what CP/M
// itself reports; the true byte length is not recoverable from the
// directory alone.
func (fi CPMFileInfo) Size() int {
	return len(fi.Blocks) * CPM_BLOCK_SIZE
}

// CPMGetCatalog scans the directory and groups live entries into files,
// extents ordered by sequence number.
func (img *Image) CPMGetCatalog() []CPMFileInfo {

	type extent struct {
		seq int
		de  *DirEntry
	}

	byFile := make(map[string][]extent)
	var order []string

	for i := 0; i < img.Format.DirEntries(); i++ {
		de := img.GetDirEntry(i)
		if de.IsFree() || de.User() >= CPM_MAX_USER {
			continue
		}
		key := fmt.Sprintf("%d:%s", de.User(), de.NameUnadorned())
		if _, seen := byFile[key]; !seen {
			order = append(order, key)
		}
		byFile[key] = append(byFile[key], extent{seq: de.ExtentNumber(), de: de})
	}

	var out []CPMFileInfo
	for _, key := range order {
		exts := byFile[key]
		sort.Slice(exts, func(a, b int) bool { return exts[a].seq < exts[b].seq })

		fi := CPMFileInfo{
			User:    exts[0].de.User(),
			Name:    exts[0].de.NameUnadorned(),
			Extents: len(exts),
		}
		for _, x := range exts {
			fi.Records += x.de.RecordCount()
			fi.Blocks = append(fi.Blocks, x.de.Blocks()...)
			fi.extents = append(fi.extents, cpmExtent{
				records: x.de.RecordCount(),
				blocks:  x.de.Blocks(),
			})
		}
		out = append(out, fi)
	}

	return out
}

// CPMReadFile reconstructs a file's content from its blocks. A final
// extent with a record count below 128 is trimmed to that count; a count
// of 128 means the extent is full and every block it references belongs
// to the file, since the stored count cannot exceed 128 no matter how many
// records the blocks actually hold. Exists for free space auditing and
// round-trip checks; this tool is not a general CP/M reader.
func (img *Image) CPMReadFile(fi CPMFileInfo) []byte {

	bs := img.Format.BlockSize()
	var out []byte

	for i, x := range fi.extents {
		chunk := make([]byte, 0, len(x.blocks)*bs)
		for _, block := range x.blocks {
			offset := img.BlockOffset(block)
			chunk = append(chunk, img.Data[offset:offset+bs]...)
		}
		if i == len(fi.extents)-1 && x.records < CPM_RECORDS_PER_EXTENT {
			if max := x.records * CPM_RECORD_SIZE; len(chunk) > max {
				chunk = chunk[:max]
			}
		}
		out = append(out, chunk...)
	}

	return out
}
