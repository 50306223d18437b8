package main

/*
CPM8 is a command line tool for pushing files into RomWBW-style CP/M hard
disk images without reformatting them. It speaks two layouts: the plain
hd1k disk, and the "combo" image that carries a 1MB prefix followed by 8MB
slices (only slice 0 is written).

Files are injected by claiming free directory entries and data blocks
directly, so images that are already populated keep their contents.
*/

import (
	"fmt"
	"os"
	"path"
	"runtime"
	"runtime/debug"

	"github.com/spf13/pflag"

	"github.com/paleotronic/cpm8/disk"
	"github.com/paleotronic/cpm8/loggy"
	"github.com/paleotronic/cpm8/panic"
)

func usage() {
	fmt.Printf(`%s <options> <image> [<file> ...]

Adds the named files to a CP/M hd1k or hd1k combo disk image, writing the
image back in place. With no files, use --catalog, --free or --shell.

`, path.Base(os.Args[0]))
	pflag.PrintDefaults()
}

func binpath() string {

	if runtime.GOOS == "windows" {
		return os.Getenv("USERPROFILE") + "/CPM8"
	}
	return os.Getenv("HOME") + "/CPM8"

}

func init() {
	loggy.LogFolder = binpath() + "/logs/"
}

var combo = pflag.Bool("combo", false, "Treat image as hd1k combo (1MB prefix + 8MB slices)")
var plain = pflag.Bool("hd1k", false, "Treat image as plain hd1k")
var userNumber = pflag.Int("user", 0, "CP/M user number for new files")
var verbose = pflag.BoolP("verbose", "v", false, "Log to stderr")
var catalog = pflag.Bool("catalog", false, "List image directory and exit")
var freeSpace = pflag.Bool("free", false, "Report free space and exit")
var shell = pflag.Bool("shell", false, "Start interactive mode")

func banner() {
	os.Stderr.WriteString("CPM8 - CP/M hd1k disk image injector\n\n")
}

func selectedFormat() disk.DiskFormat {
	switch {
	case *combo:
		return disk.GetDiskFormat(disk.DF_HD1K_COMBO)
	case *plain:
		return disk.GetDiskFormat(disk.DF_HD1K)
	}
	// unspecified: let the image length decide
	return disk.GetDiskFormat(disk.DF_NONE)
}

func main() {

	banner()

	pflag.Usage = usage
	pflag.Parse()

	loggy.ECHO = *verbose

	args := pflag.Args()

	if *shell {
		var img *disk.Image
		var err error
		if len(args) > 0 {
			img, err = disk.NewImage(args[0], selectedFormat())
			if err != nil {
				os.Stderr.WriteString("Error: " + err.Error() + "\n")
				os.Exit(1)
			}
		}
		shellDo(img)
		os.Exit(0)
	}

	if len(args) < 1 {
		usage()
		os.Exit(1)
	}

	if *userNumber < 0 || *userNumber >= disk.CPM_MAX_USER {
		os.Stderr.WriteString("Error: user number must be 0-31\n")
		os.Exit(1)
	}

	img, err := disk.NewImage(args[0], selectedFormat())
	if err != nil {
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
		os.Exit(2)
	}

	if *catalog {
		printCatalog(img)
		return
	}

	if *freeSpace {
		printFree(img)
		return
	}

	if len(args) < 2 {
		usage()
		os.Exit(1)
	}

	rc := 0

	panic.Do(
		func() {
			if err := putFiles(img, args[1:], *userNumber); err != nil {
				os.Stderr.WriteString("Error: " + err.Error() + "\n")
				rc = 2
				return
			}
			if err := img.WriteBack(); err != nil {
				os.Stderr.WriteString("Error writing image: " + err.Error() + "\n")
				rc = 2
				return
			}
			fmt.Printf("Successfully updated %s\n", img.Filename)
		},
		func(r interface{}) {
			loggy.Get(0).Errorf("Error processing image: %s", args[0])
			loggy.Get(0).Errorf(string(debug.Stack()))
			os.Stderr.WriteString(fmt.Sprintf("Error processing image: %v\n", r))
			rc = 3
		},
	)

	os.Exit(rc)
}
