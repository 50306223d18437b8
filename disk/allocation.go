package disk

import "errors"

var ErrDirectoryFull = errors.New("no free directory entry")
var ErrNoFreeBlocks = errors.New("no free blocks")

// DirScanner walks the directory region from entry 0 upward handing out
// free (0xE5) slots one at a time. Slots it has handed out are not offered
// again, so multiple extents of one file land in distinct entries even
// before any of them has been published.
type DirScanner struct {
	img  *Image
	next int
}

func (img *Image) NewDirScanner() *DirScanner {
	return &DirScanner{img: img}
}

// NextFree returns the lowest-indexed free directory entry not yet handed
// out by this scanner, or ErrDirectoryFull once the directory is exhausted.
func (s *DirScanner) NextFree() (*DirEntry, error) {
	for s.next < s.img.Format.DirEntries() {
		de := s.img.GetDirEntry(s.next)
		s.next++
		if de.IsFree() {
			return de, nil
		}
	}
	return nil, ErrDirectoryFull
}

// BlockAllocator hands out data block numbers for new file content. The
// two disk formats allocate differently, but both promise never to return
// a block referenced by a live directory entry or by an earlier Allocate
// call on the same allocator.
type BlockAllocator interface {
	Allocate() (int, error)
}

// maxBlockAllocator implements the hd1k policy: blocks are handed out in a
// strictly increasing sequence starting one past the highest block number
// any live entry references. Gaps left by deleted files are never reused;
// that matches the reference tool's output and must stay that way.
type maxBlockAllocator struct {
	next  int
	limit int
}

func (a *maxBlockAllocator) Allocate() (int, error) {
	if a.next >= a.limit {
		return 0, ErrNoFreeBlocks
	}
	b := a.next
	a.next++
	return b, nil
}

// usedSetAllocator implements the combo policy: every nonzero pointer of
// every live entry with a plausible user number is collected into a used
// set, pre-seeded with the directory's own reserved blocks, and the lowest
// block absent from the set wins.
type usedSetAllocator struct {
	used  map[int]bool
	first int
	limit int
}

func (a *usedSetAllocator) Allocate() (int, error) {
	for b := a.first; b < a.limit; b++ {
		if !a.used[b] {
			a.used[b] = true
			return b, nil
		}
	}
	return 0, ErrNoFreeBlocks
}

// MaxUsedBlock scans every live entry's allocation map and reports the
// highest block number seen. Pointer values of 0xFFFF and above are sentinel
// padding and ignored. Returns 0 for an empty directory.
func (img *Image) MaxUsedBlock() int {
	max := 0
	for i := 0; i < img.Format.DirEntries(); i++ {
		de := img.GetDirEntry(i)
		if de.IsFree() {
			continue
		}
		for j := 0; j < CPM_BLOCKS_PER_EXTENT; j++ {
			b := de.BlockPtr(j)
			if b > max && b < 0xFFFF {
				max = b
			}
		}
	}
	return max
}

// UsedBlocks collects every block referenced by a live entry carrying a
// plausible user number, plus the directory's own reserved block range.
func (img *Image) UsedBlocks() map[int]bool {
	used := make(map[int]bool)
	for b := 0; b < img.Format.ReservedBlocks(); b++ {
		used[b] = true
	}
	for i := 0; i < img.Format.DirEntries(); i++ {
		de := img.GetDirEntry(i)
		if de.IsFree() || de.User() >= CPM_MAX_USER {
			continue
		}
		for j := 0; j < CPM_BLOCKS_PER_EXTENT; j++ {
			if b := de.BlockPtr(j); b != 0 {
				used[b] = true
			}
		}
	}
	return used
}

// NewBlockAllocator derives a fresh allocation state from the directory as
// it stands right now. Blocks written by earlier files in a batch are
// visible because their entries are already published.
func (img *Image) NewBlockAllocator() BlockAllocator {
	switch img.Format.ID {
	case DF_HD1K_COMBO:
		return &usedSetAllocator{
			used:  img.UsedBlocks(),
			first: img.Format.ReservedBlocks(),
			limit: img.MaxBlocks(),
		}
	default:
		return &maxBlockAllocator{
			next:  img.MaxUsedBlock() + 1,
			limit: img.MaxBlocks(),
		}
	}
}

// FreeCounts reports free directory entries and free data blocks, for the
// free space report. For hd1k the block figure honours the monotonic
// allocation policy: gaps below the high-water mark do not count as free.
func (img *Image) FreeCounts() (entries int, blocks int) {
	for i := 0; i < img.Format.DirEntries(); i++ {
		if img.GetDirEntry(i).IsFree() {
			entries++
		}
	}
	switch img.Format.ID {
	case DF_HD1K_COMBO:
		used := img.UsedBlocks()
		for b := img.Format.ReservedBlocks(); b < img.MaxBlocks(); b++ {
			if !used[b] {
				blocks++
			}
		}
	default:
		blocks = img.MaxBlocks() - (img.MaxUsedBlock() + 1)
		if blocks < 0 {
			blocks = 0
		}
	}
	return entries, blocks
}
