package disk

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDirEntryLayout(t *testing.T) {

	de := &DirEntry{}
	de.SetUser(3)
	de.SetNameExt("R8      ", "COM")
	de.SetExtentNumber(0)
	de.SetRecordCount(3)
	de.SetBlockPtr(0, 0x1234)

	want := [CPM_DIR_ENTRY_SIZE]byte{
		3,
		'R', '8', ' ', ' ', ' ', ' ', ' ', ' ',
		'C', 'O', 'M',
		0, 0, 0,
		3,
		0x34, 0x12, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0,
	}

	if diff := cmp.Diff(want, de.Data); diff != "" {
		t.Errorf("entry bytes mismatch (-want +got):\n%s", diff)
	}

	if de.NameUnadorned() != "R8.COM" {
		t.Errorf("NameUnadorned: got %q", de.NameUnadorned())
	}
	if de.BlockPtr(0) != 0x1234 {
		t.Errorf("BlockPtr round trip: got %d", de.BlockPtr(0))
	}
}

func TestDirEntryExtentSplit(t *testing.T) {

	// the sequence number splits into 5 low bits (byte 12) and 6 high
	// bits (byte 14)
	for _, seq := range []int{0, 1, 31, 32, 33, 100, 2047} {
		de := &DirEntry{}
		de.SetExtentNumber(seq)

		if de.Data[12] != byte(seq&0x1F) {
			t.Errorf("seq %d: byte 12 = %d, want %d", seq, de.Data[12], seq&0x1F)
		}
		if de.Data[14] != byte((seq>>5)&0x3F) {
			t.Errorf("seq %d: byte 14 = %d, want %d", seq, de.Data[14], (seq>>5)&0x3F)
		}
		if de.ExtentNumber() != seq {
			t.Errorf("seq %d: round trip gave %d", seq, de.ExtentNumber())
		}
	}
}

func TestDirEntryFree(t *testing.T) {

	img := newBlankImage(t, DF_HD1K, 256*1024)

	de := img.GetDirEntry(0)
	if !de.IsFree() {
		t.Fatal("blank directory entry 0 should be free")
	}

	de.Data = [CPM_DIR_ENTRY_SIZE]byte{}
	de.SetUser(0)
	de.SetNameExt("HELLO   ", "TXT")
	de.Publish(img)

	if img.GetDirEntry(0).IsFree() {
		t.Error("published entry still reads as free")
	}
	if img.GetDirEntry(1).IsFree() != true {
		t.Error("neighbouring entry clobbered")
	}
	if !img.Modified {
		t.Error("publish should mark the image modified")
	}
}

func TestDirEntryBlocks(t *testing.T) {

	de := &DirEntry{}
	de.SetBlockPtr(0, 9)
	de.SetBlockPtr(1, 10)

	if diff := cmp.Diff([]int{9, 10}, de.Blocks()); diff != "" {
		t.Errorf("Blocks mismatch (-want +got):\n%s", diff)
	}
}
