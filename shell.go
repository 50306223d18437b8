package main

import (
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/paleotronic/cpm8/disk"
	"github.com/paleotronic/cpm8/loggy"
)

const MAXVOL = 4

var commandList map[string]*shellCommand
var commandVolumes [MAXVOL]*disk.Image
var commandTarget int = -1

func mountImage(img *disk.Image) (int, error) {

	var fr []int

	for i, d := range commandVolumes {
		if d == nil {
			fr = append(fr, i)
		} else if img.Filename == d.Filename {
			return i, nil
		}
	}

	if len(fr) == 0 {
		return -1, errors.New("No free slots")
	}

	commandVolumes[fr[0]] = img

	return fr[0], nil

}

// smartSplit breaks a command line into a verb and its arguments. Double
// quoted runs keep their spaces, as does any character after a backslash.
func smartSplit(line string) (string, []string) {

	var words []string
	var word strings.Builder
	var quoted, escaped bool

	flush := func() {
		if word.Len() > 0 {
			words = append(words, word.String())
			word.Reset()
		}
	}

	for _, ch := range line {
		switch {
		case escaped:
			word.WriteRune(ch)
			escaped = false
		case ch == '\\' && !quoted:
			escaped = true
		case ch == '"':
			quoted = !quoted
			flush()
		case ch == ' ' && !quoted:
			flush()
		default:
			word.WriteRune(ch)
		}
	}
	flush()

	if len(words) == 0 {
		return "", nil
	}

	return words[0], words[1:]
}

func getPrompt(t int) string {

	if t == -1 || commandVolumes[t] == nil {
		return "cpm:<no mount>> "
	}

	return fmt.Sprintf("cpm:%d:%s> ", t, filepath.Base(commandVolumes[t].Filename))
}

type shellCommand struct {
	Name             string
	Description      string
	MinArgs, MaxArgs int
	Code             func(args []string) int
	NeedsMount       bool
	Text             []string
}

type shellCompleter struct {
}

func (sc *shellCompleter) Do(line []rune, pos int) ([][]rune, int) {

	chunk := strings.ToLower(string(line[:pos]))

	var out [][]rune
	for name := range commandList {
		if strings.HasPrefix(name, chunk) {
			out = append(out, []rune(name[len(chunk):]))
		}
	}

	return out, len(chunk)
}

func init() {
	commandList = map[string]*shellCommand{
		"mount": &shellCommand{
			Name:        "mount",
			Description: "Mount a disk image",
			MinArgs:     1,
			MaxArgs:     2,
			Code:        shellMount,
			NeedsMount:  false,
			Text: []string{
				"mount <image> [hd1k|combo]",
				"",
				"Without a format the image length decides.",
			},
		},
		"unmount": &shellCommand{
			Name:        "unmount",
			Description: "Unmount current disk image",
			MinArgs:     0,
			MaxArgs:     0,
			Code:        shellUnmount,
			NeedsMount:  true,
		},
		"target": &shellCommand{
			Name:        "target",
			Description: "Switch to a mounted slot",
			MinArgs:     1,
			MaxArgs:     1,
			Code:        shellTarget,
			NeedsMount:  false,
		},
		"info": &shellCommand{
			Name:        "info",
			Description: "Show geometry of the mounted image",
			MinArgs:     0,
			MaxArgs:     0,
			Code:        shellInfo,
			NeedsMount:  true,
		},
		"cat": &shellCommand{
			Name:        "cat",
			Description: "List directory of the mounted image",
			MinArgs:     0,
			MaxArgs:     0,
			Code:        shellCat,
			NeedsMount:  true,
		},
		"free": &shellCommand{
			Name:        "free",
			Description: "Report free directory entries and blocks",
			MinArgs:     0,
			MaxArgs:     0,
			Code:        shellFree,
			NeedsMount:  true,
		},
		"put": &shellCommand{
			Name:        "put",
			Description: "Add a host file to the mounted image",
			MinArgs:     1,
			MaxArgs:     2,
			Code:        shellPut,
			NeedsMount:  true,
			Text: []string{
				"put <file> [user]",
				"",
				"Adds the file under the given CP/M user number (default 0)",
				"and writes the image back in place.",
			},
		},
		"help": &shellCommand{
			Name:        "help",
			Description: "Show help",
			MinArgs:     0,
			MaxArgs:     1,
			Code:        shellHelp,
			NeedsMount:  false,
		},
		"quit": &shellCommand{
			Name:        "quit",
			Description: "Leave the shell",
			MinArgs:     0,
			MaxArgs:     0,
			Code:        shellQuit,
			NeedsMount:  false,
		},
	}
}

func shellProcess(line string) int {
	line = strings.TrimSpace(line)

	verb, args := smartSplit(line)

	if verb != "" {
		verb = strings.ToLower(verb)
		command, ok := commandList[verb]
		if ok {
			fmt.Println()
			var cok = true
			if command.MinArgs != -1 {
				if len(args) < command.MinArgs {
					os.Stderr.WriteString(fmt.Sprintf("%s expects at least %d arguments\n", verb, command.MinArgs))
					cok = false
				}
			}
			if command.MaxArgs != -1 {
				if len(args) > command.MaxArgs {
					os.Stderr.WriteString(fmt.Sprintf("%s expects at most %d arguments\n", verb, command.MaxArgs))
					cok = false
				}
			}
			if command.NeedsMount {
				if commandTarget == -1 || commandVolumes[commandTarget] == nil {
					os.Stderr.WriteString(fmt.Sprintf("%s only works on mounted disks\n", verb))
					cok = false
				}
			}
			if cok {
				r := command.Code(args)
				fmt.Println()
				return r
			} else {
				return -1
			}
		} else {
			os.Stderr.WriteString(fmt.Sprintf("Unrecognized command: %s\n", verb))
			return -1
		}
	}

	return 0
}

func shellDo(img *disk.Image) {

	if img != nil {
		slotid, err := mountImage(img)
		if err == nil {
			commandTarget = slotid
		}
	}

	ac := &shellCompleter{}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:                 getPrompt(commandTarget),
		HistoryFile:            binpath() + "/.shell_history",
		DisableAutoSaveHistory: false,
		AutoComplete:           ac,
	})
	if err != nil {
		os.Exit(2)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			break
		}

		r := shellProcess(line)
		if r == 999 {
			return
		}

		rl.SetPrompt(getPrompt(commandTarget))
	}

}

func shellMount(args []string) int {

	format := disk.GetDiskFormat(disk.DF_NONE)
	if len(args) == 2 {
		switch strings.ToLower(args[1]) {
		case "hd1k":
			format = disk.GetDiskFormat(disk.DF_HD1K)
		case "combo":
			format = disk.GetDiskFormat(disk.DF_HD1K_COMBO)
		default:
			os.Stderr.WriteString("Unknown format: " + args[1] + "\n")
			return -1
		}
	}

	img, err := disk.NewImage(args[0], format)
	if err != nil {
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
		return -1
	}

	slotid, err := mountImage(img)
	if err != nil {
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
		return -1
	}

	commandTarget = slotid
	os.Stderr.WriteString(fmt.Sprintf("mounted disk in slot %d\n", slotid))

	return 0
}

func shellUnmount(args []string) int {

	if commandVolumes[commandTarget] != nil {
		commandVolumes[commandTarget] = nil
		os.Stderr.WriteString("Unmounted volume\n")
	}

	return 0
}

func shellTarget(args []string) int {

	slot, err := strconv.Atoi(args[0])
	if err != nil || slot < 0 || slot >= MAXVOL {
		os.Stderr.WriteString("target expects a slot number 0-" + strconv.Itoa(MAXVOL-1) + "\n")
		return -1
	}

	if commandVolumes[slot] == nil {
		os.Stderr.WriteString("Nothing mounted in that slot\n")
		return -1
	}

	commandTarget = slot

	return 0
}

func shellInfo(args []string) int {
	printInfo(commandVolumes[commandTarget])
	return 0
}

func shellCat(args []string) int {
	printCatalog(commandVolumes[commandTarget])
	return 0
}

func shellFree(args []string) int {
	printFree(commandVolumes[commandTarget])
	return 0
}

func shellPut(args []string) int {

	img := commandVolumes[commandTarget]

	user := 0
	if len(args) == 2 {
		u, err := strconv.Atoi(args[1])
		if err != nil || u < 0 || u >= disk.CPM_MAX_USER {
			os.Stderr.WriteString("put expects a user number 0-31\n")
			return -1
		}
		user = u
	}

	name := filepath.Base(args[0])

	data, err := ioutil.ReadFile(args[0])
	if err != nil {
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
		return -1
	}

	if err := img.CPMWriteFile(name, data, user); err != nil {
		loggy.Get(0).Errorf("put %s failed: %s", name, err.Error())
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
		return -1
	}

	if err := img.WriteBack(); err != nil {
		os.Stderr.WriteString("Error writing image: " + err.Error() + "\n")
		return -1
	}

	fmt.Printf("Added %s: %d bytes\n", name, len(data))

	return 0
}

func shellHelp(args []string) int {

	if len(args) == 1 {
		command, ok := commandList[strings.ToLower(args[0])]
		if !ok {
			os.Stderr.WriteString("Unrecognized command: " + args[0] + "\n")
			return -1
		}
		if len(command.Text) > 0 {
			for _, line := range command.Text {
				fmt.Println(line)
			}
		} else {
			fmt.Printf("%-10s %s\n", command.Name, command.Description)
		}
		return 0
	}

	var names []string
	for name := range commandList {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Printf("%-10s %s\n", name, commandList[name].Description)
	}

	return 0
}

func shellQuit(args []string) int {
	return 999
}
