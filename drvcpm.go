package main

import (
	"fmt"
	"io/ioutil"
	"path/filepath"

	"github.com/paleotronic/cpm8/disk"
	"github.com/paleotronic/cpm8/loggy"
)

// putFiles adds each host file to the image in order, halting on the first
// failure. The image buffer is only flushed to storage by the caller, and
// only after every file succeeded.
func putFiles(img *disk.Image, files []string, user int) error {

	l := loggy.Get(0)

	fmt.Printf("Disk size: %d bytes (%s)\n", len(img.Data), img.Format)
	fmt.Printf("Directory at offset: 0x%X\n", img.Format.DirOffset())
	if img.Format.ID == disk.DF_HD1K {
		fmt.Printf("Max used block: %d\n", img.MaxUsedBlock())
	}

	for _, p := range files {

		name := filepath.Base(p)

		data, err := ioutil.ReadFile(p)
		if err != nil {
			return err
		}

		records := (len(data) + disk.CPM_RECORD_SIZE - 1) / disk.CPM_RECORD_SIZE
		blocks := (len(data) + img.Format.BlockSize() - 1) / img.Format.BlockSize()
		if blocks == 0 {
			blocks = 1
		}

		fmt.Printf("Adding %s: %d bytes, %d records, %d blocks\n", name, len(data), records, blocks)
		l.Logf("put %s (%d bytes, user %d) -> %s", name, len(data), user, img.Filename)

		if err := img.CPMWriteFile(name, data, user); err != nil {
			l.Errorf("put %s failed: %s", name, err.Error())
			return fmt.Errorf("failed to add %s: %w", name, err)
		}
	}

	return nil
}

func printCatalog(img *disk.Image) {

	files := img.CPMGetCatalog()

	fmt.Printf("Directory of %s (%s):\n\n", filepath.Base(img.Filename), img.Format)

	if len(files) == 0 {
		fmt.Println("No files")
		return
	}

	fmt.Printf("%-3s %-12s %8s %7s %7s\n", "Usr", "Name", "Records", "Extents", "Size")
	for _, fi := range files {
		fmt.Printf("%-3d %-12s %8d %7d %6dK\n", fi.User, fi.Name, fi.Records, fi.Extents, (fi.Size()+1023)/1024)
	}
	fmt.Printf("\n%d file(s)\n", len(files))
}

func printFree(img *disk.Image) {

	entries, blocks := img.FreeCounts()

	fmt.Printf("%s (%s)\n", filepath.Base(img.Filename), img.Format)
	fmt.Printf("Free directory entries: %d of %d\n", entries, img.Format.DirEntries())
	fmt.Printf("Free blocks: %d (%dK)\n", blocks, blocks*img.Format.BlockSize()/1024)
}

func printInfo(img *disk.Image) {

	fmt.Printf("Image:       %s\n", img.Filename)
	fmt.Printf("Format:      %s\n", img.Format)
	fmt.Printf("Size:        %d bytes\n", len(img.Data))
	fmt.Printf("Sector size: %d\n", img.Format.SectorSize())
	fmt.Printf("Sectors/trk: %d\n", img.Format.SPT())
	fmt.Printf("Block size:  %d\n", img.Format.BlockSize())
	fmt.Printf("Dir entries: %d at 0x%X\n", img.Format.DirEntries(), img.Format.DirOffset())
	fmt.Printf("Boot tracks: %d\n", img.Format.BootTracks())
	fmt.Printf("Max blocks:  %d\n", img.MaxBlocks())
	if img.Format.ID == disk.DF_HD1K {
		fmt.Printf("Max used:    %d\n", img.MaxUsedBlock())
	}
	fmt.Printf("SHA256:      %s\n", img.ChecksumDisk())
}
