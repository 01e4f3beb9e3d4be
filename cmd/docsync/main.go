// docsync REPL: eyeball what the sync engine would do for a pair of
// files. Not part of the engine contract; the engine itself has no CLI.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ergochat/readline"

	"github.com/danielsimonjr/docsync"
	"github.com/danielsimonjr/docsync/delta"
)

var completer = readline.NewPrefixCompleter(
	readline.PcItem("help"),
	readline.PcItem("delta"),
	readline.PcItem("savings"),
	readline.PcItem("roundtrip"),
	readline.PcItem("checksum"),
	readline.PcItem("exit"),
	readline.PcItem("quit"),
)

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

var ErrBadArgs = errors.New("usage: <command> <old-file> <new-file> [chunk-size]")

func load(args []string) (oldData, newData []byte, err error) {
	if len(args) < 2 {
		return nil, nil, ErrBadArgs
	}
	if oldData, err = os.ReadFile(args[0]); err != nil {
		return
	}
	newData, err = os.ReadFile(args[1])
	return
}

func cmdDelta(args []string) error {
	oldData, newData, err := load(args)
	if err != nil {
		return err
	}
	ops := delta.Calculate(oldData, newData, nil)
	for i, op := range ops {
		fmt.Printf("%3d %c off=%d len=%d data=%d\n", i, op.Type, op.Offset, op.Length, len(op.Data))
	}
	fmt.Printf("%d ops, %d serialized bytes\n", len(ops), len(delta.Serialize(ops)))
	return nil
}

func cmdSavings(args []string) error {
	oldData, newData, err := load(args)
	if err != nil {
		return err
	}
	ops := delta.Calculate(oldData, newData, nil)
	s := delta.CalculateSavings(ops, len(newData), nil)
	fmt.Printf("delta=%d full=%d ratio=%.3f recommended=%v\n",
		s.DeltaSize, s.FullSize, s.Ratio, s.Recommended)
	return nil
}

func cmdRoundtrip(args []string) error {
	oldData, newData, err := load(args)
	if err != nil {
		return err
	}
	opts := delta.Options{}
	if len(args) > 2 {
		size, err := strconv.Atoi(args[2])
		if err != nil {
			return err
		}
		opts.MaxChunkSize = size
	}
	ops := delta.Calculate(oldData, newData, &opts)
	chunks := delta.Split("repl", ops, 1, 2, len(newData), &opts)
	res, err := delta.ApplyChunks(oldData, 1, chunks, nil)
	if err != nil {
		return err
	}
	ok := docsync.ContentChecksum(res.NewData) == docsync.ContentChecksum(newData)
	fmt.Printf("%d chunks, version %d, round-trip ok: %v\n", len(chunks), res.NewVersion, ok)
	return nil
}

func cmdChecksum(args []string) error {
	if len(args) < 1 {
		return ErrBadArgs
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	fmt.Println(docsync.ContentChecksum(data))
	return nil
}

func help() {
	fmt.Println("commands:")
	fmt.Println("  delta <old> <new>                 show the delta between two files")
	fmt.Println("  savings <old> <new>               delta-vs-full transfer decision")
	fmt.Println("  roundtrip <old> <new> [size]      chunk, apply, verify")
	fmt.Println("  checksum <file>                   document content checksum")
	fmt.Println("  exit")
}

func main() {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "◌ ",
		HistoryFile:     ".docsync_cmd_log.txt",
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer rl.Close()
	rl.CaptureExitSignal()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]
		switch cmd {
		case "help":
			help()
		case "delta":
			err = cmdDelta(args)
		case "savings":
			err = cmdSavings(args)
		case "roundtrip":
			err = cmdRoundtrip(args)
		case "checksum":
			err = cmdChecksum(args)
		case "exit", "quit":
			return
		default:
			err = fmt.Errorf("unknown command %q, try help", cmd)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}
