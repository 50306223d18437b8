package disk

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalizeFileName(t *testing.T) {

	cases := []struct {
		in        string
		name, ext string
		fail      bool
	}{
		{in: "r8.com", name: "R8      ", ext: "COM"},
		{in: "W8.COM", name: "W8      ", ext: "COM"},
		{in: "noext", name: "NOEXT   ", ext: "   "},
		{in: "verylongname.extension", name: "VERYLONG", ext: "EXT"},
		{in: "a.b.c", name: "A.B     ", ext: "C  "},
		{in: ".com", fail: true},
		{in: "", fail: true},
	}

	for _, c := range cases {
		name, ext, err := NormalizeFileName(c.in)
		if c.fail {
			if !errors.Is(err, ErrInvalidFilename) {
				t.Errorf("%q: got %v, want ErrInvalidFilename", c.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: unexpected error %v", c.in, err)
			continue
		}
		if name != c.name || ext != c.ext {
			t.Errorf("%q: got %q/%q, want %q/%q", c.in, name, ext, c.name, c.ext)
		}
	}
}

func TestWriteSmallFileHD1K(t *testing.T) {

	img := newBlankImage(t, DF_HD1K, 256*1024)

	content := bytes.Repeat([]byte{0x42}, 300)
	if err := img.CPMWriteFile("R8.COM", content, 0); err != nil {
		t.Fatal(err)
	}

	de := img.GetDirEntry(0)
	if de.IsFree() {
		t.Fatal("entry 0 still free after write")
	}
	if de.User() != 0 {
		t.Errorf("user: got %d, want 0", de.User())
	}
	if de.NameUnadorned() != "R8.COM" {
		t.Errorf("name: got %q", de.NameUnadorned())
	}
	if de.RecordCount() != 3 {
		t.Errorf("record count: got %d, want 3 (ceil(300/128))", de.RecordCount())
	}

	// empty disk, max-block policy: first allocation is block 1
	wantMap := []int{1, 0, 0, 0, 0, 0, 0, 0}
	gotMap := make([]int, 8)
	for i := range gotMap {
		gotMap[i] = de.BlockPtr(i)
	}
	if diff := cmp.Diff(wantMap, gotMap); diff != "" {
		t.Errorf("allocation map mismatch (-want +got):\n%s", diff)
	}

	offset := img.BlockOffset(1)
	if !bytes.Equal(img.Data[offset:offset+300], content) {
		t.Error("block content does not match file content")
	}
	pad := img.Data[offset+300 : offset+CPM_BLOCK_SIZE]
	if len(pad) != 3796 {
		t.Fatalf("pad length %d, want 3796", len(pad))
	}
	for i, v := range pad {
		if v != CPM_EOF_BYTE {
			t.Fatalf("pad byte %d is 0x%02X, want 0x1A", i, v)
		}
	}
}

func TestWriteEmptyFile(t *testing.T) {

	img := newBlankImage(t, DF_HD1K, 256*1024)

	if err := img.CPMWriteFile("EMPTY.DAT", nil, 0); err != nil {
		t.Fatal(err)
	}

	de := img.GetDirEntry(0)
	if de.IsFree() {
		t.Fatal("empty file still owns a directory entry")
	}
	if de.RecordCount() != 0 {
		t.Errorf("record count: got %d, want 0", de.RecordCount())
	}
	if got := de.Blocks(); len(got) != 1 {
		t.Errorf("empty file still owns one block, got %v", got)
	}

	offset := img.BlockOffset(de.BlockPtr(0))
	for i := 0; i < CPM_BLOCK_SIZE; i++ {
		if img.Data[offset+i] != CPM_EOF_BYTE {
			t.Fatalf("byte %d of empty file block is 0x%02X, want 0x1A", i, img.Data[offset+i])
		}
	}
}

// catalogFile looks a single file up in the directory listing.
func catalogFile(t *testing.T, img *Image, name string) CPMFileInfo {
	t.Helper()

	for _, fi := range img.CPMGetCatalog() {
		if fi.Name == name {
			return fi
		}
	}
	t.Fatalf("%s not in catalog", name)
	return CPMFileInfo{}
}

func TestWriteTwoExtentsCombo(t *testing.T) {

	img := newPopulatedImage(t, DF_HD1K_COMBO, COMBO_MIN_BYTES)

	content := make([]byte, 40000)
	for i := range content {
		content[i] = byte(i)
	}
	if err := img.CPMWriteFile("BIG.BIN", content, 0); err != nil {
		t.Fatal(err)
	}

	// ceil(40000/4096) = 10 blocks = extent of 8 plus extent of 2,
	// landing in the first two free slots after the system entry
	e0 := img.GetDirEntry(1)
	e1 := img.GetDirEntry(2)

	if e0.ExtentNumber() != 0 || e1.ExtentNumber() != 1 {
		t.Errorf("extent sequence: got %d, %d", e0.ExtentNumber(), e1.ExtentNumber())
	}
	if e0.RecordCount() != 128 {
		t.Errorf("extent 0 record count: got %d, want 128", e0.RecordCount())
	}
	if want := (40000 - 8*4096 + 127) / 128; e1.RecordCount() != want {
		t.Errorf("extent 1 record count: got %d, want %d", e1.RecordCount(), want)
	}

	if diff := cmp.Diff([]int{12, 13, 14, 15, 16, 17, 18, 19}, e0.Blocks()); diff != "" {
		t.Errorf("extent 0 blocks (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{20, 21}, e1.Blocks()); diff != "" {
		t.Errorf("extent 1 blocks (-want +got):\n%s", diff)
	}

	offset := img.BlockOffset(12)
	if !bytes.Equal(img.Data[offset:offset+4096], content[:4096]) {
		t.Error("first block content mismatch")
	}

	back := img.CPMReadFile(catalogFile(t, img, "BIG.BIN"))
	if len(back) < len(content) {
		t.Fatalf("read back %d bytes, want at least %d", len(back), len(content))
	}
	if !bytes.Equal(back[:len(content)], content) {
		t.Error("multi-extent read back mismatch")
	}
}

func TestExtentCountManyBlocks(t *testing.T) {

	img := newPopulatedImage(t, DF_HD1K_COMBO, COMBO_MIN_BYTES)

	// 17 blocks -> 3 directory entries
	content := make([]byte, 17*4096)
	if err := img.CPMWriteFile("HUGE.BIN", content, 0); err != nil {
		t.Fatal(err)
	}

	fi := catalogFile(t, img, "HUGE.BIN")
	if fi.Extents != 3 {
		t.Errorf("extents: got %d, want 3", fi.Extents)
	}
	// the on-disk record count caps at 128 per extent, so the catalog
	// figure is 128+128+32 for 17 blocks
	if fi.Records != 288 {
		t.Errorf("records: got %d, want 288", fi.Records)
	}
}

func TestBatchNeverReusesBlocks(t *testing.T) {

	for _, id := range []DiskFormatID{DF_HD1K, DF_HD1K_COMBO} {

		size := 256 * 1024
		if id == DF_HD1K_COMBO {
			size = COMBO_MIN_BYTES
		}
		img := newPopulatedImage(t, id, size)

		seen := make(map[int]string)
		for _, name := range []string{"ONE.COM", "TWO.COM", "THREE.COM"} {
			if err := img.CPMWriteFile(name, bytes.Repeat([]byte{1}, 5000), 0); err != nil {
				t.Fatal(err)
			}
		}

		for _, fi := range img.CPMGetCatalog() {
			for _, b := range fi.Blocks {
				if owner, dup := seen[b]; dup {
					t.Errorf("%s: block %d allocated to both %s and %s", img.Format, b, owner, fi.Name)
				}
				seen[b] = fi.Name
			}
		}
	}
}

func TestRoundTrip(t *testing.T) {

	img := newPopulatedImage(t, DF_HD1K_COMBO, COMBO_MIN_BYTES)

	content := make([]byte, 10000)
	for i := range content {
		content[i] = byte(i * 7)
	}
	if err := img.CPMWriteFile("LOOP.BIN", content, 0); err != nil {
		t.Fatal(err)
	}

	back := img.CPMReadFile(catalogFile(t, img, "LOOP.BIN"))
	if len(back) < len(content) {
		t.Fatalf("read back %d bytes, want at least %d", len(back), len(content))
	}
	if diff := cmp.Diff(content, back[:len(content)]); diff != "" {
		t.Errorf("content mismatch (-want +got):\n%s", diff)
	}
	for i := len(content); i < len(back); i++ {
		if back[i] != CPM_EOF_BYTE {
			t.Fatalf("trailing byte %d is 0x%02X, want 0x1A", i, back[i])
		}
	}
}

func TestRoundTripFullFinalExtent(t *testing.T) {

	img := newPopulatedImage(t, DF_HD1K_COMBO, COMBO_MIN_BYTES)

	// 20000 bytes is 5 blocks in a single extent whose stored record
	// count caps at 128; a read back trimmed to 128 records would lose
	// everything past 16K
	content := make([]byte, 20000)
	for i := range content {
		content[i] = byte(i * 3)
	}
	if err := img.CPMWriteFile("CAP.BIN", content, 0); err != nil {
		t.Fatal(err)
	}

	back := img.CPMReadFile(catalogFile(t, img, "CAP.BIN"))
	if len(back) < len(content) {
		t.Fatalf("read back %d bytes, want at least %d", len(back), len(content))
	}
	if diff := cmp.Diff(content, back[:len(content)]); diff != "" {
		t.Errorf("content mismatch (-want +got):\n%s", diff)
	}
	for i := len(content); i < len(back); i++ {
		if back[i] != CPM_EOF_BYTE {
			t.Fatalf("trailing byte %d is 0x%02X, want 0x1A", i, back[i])
		}
	}
}

func TestDirectoryFullLeavesImageUntouched(t *testing.T) {

	img := newBlankImage(t, DF_HD1K, 256*1024)

	for i := 0; i < img.Format.DirEntries(); i++ {
		publishEntry(t, img, i, 0, "FILLER  ", "BIN", []int{1})
	}

	before := img.ChecksumDisk()

	err := img.CPMWriteFile("NEW.COM", []byte{1, 2, 3}, 0)
	if !errors.Is(err, ErrDirectoryFull) {
		t.Fatalf("got %v, want ErrDirectoryFull", err)
	}
	if img.ChecksumDisk() != before {
		t.Error("image mutated by a failed write")
	}
}

func TestNoFreeBlocksLeavesImageUntouched(t *testing.T) {

	img := newBlankImage(t, DF_HD1K, HD1K_MIN_BYTES+2*CPM_BLOCK_SIZE)

	before := img.ChecksumDisk()

	// far more blocks than the image can hold
	err := img.CPMWriteFile("FAT.BIN", make([]byte, 64*CPM_BLOCK_SIZE), 0)
	if !errors.Is(err, ErrNoFreeBlocks) {
		t.Fatalf("got %v, want ErrNoFreeBlocks", err)
	}
	if img.ChecksumDisk() != before {
		t.Error("image mutated by a failed write")
	}
}

func TestWriteUserNumber(t *testing.T) {

	img := newPopulatedImage(t, DF_HD1K_COMBO, COMBO_MIN_BYTES)

	if err := img.CPMWriteFile("MINE.TXT", []byte("hello"), 5); err != nil {
		t.Fatal(err)
	}

	de := img.GetDirEntry(1)
	if de.User() != 5 {
		t.Errorf("user: got %d, want 5", de.User())
	}

	if fi := catalogFile(t, img, "MINE.TXT"); fi.User != 5 {
		t.Errorf("catalog user: got %d, want 5", fi.User)
	}
}

func TestInvalidFilenameWritesNothing(t *testing.T) {

	img := newBlankImage(t, DF_HD1K, 256*1024)
	before := img.ChecksumDisk()

	err := img.CPMWriteFile(".COM", []byte{1}, 0)
	if !errors.Is(err, ErrInvalidFilename) {
		t.Fatalf("got %v, want ErrInvalidFilename", err)
	}
	if img.ChecksumDisk() != before {
		t.Error("image mutated by a failed write")
	}
}
