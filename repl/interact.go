package repl

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"

	"github.com/leftmike/sqlscope/catalog"
	"github.com/leftmike/sqlscope/flags"
	"github.com/leftmike/sqlscope/parser"
)

const (
	historyFile = ".sqlscope_history"
)

type lineReader struct {
	line *liner.State
	r    *strings.Reader
}

func (lr *lineReader) ReadRune() (r rune, size int, err error) {
	for {
		if lr.r == nil {
			s, err := lr.line.Prompt("sqlscope: ")
			if err != nil {
				return 0, 0, err
			}
			lr.line.AppendHistory(s)
			lr.r = strings.NewReader(s + "\n")
		}

		r, sz, err := lr.r.ReadRune()
		if err == io.EOF {
			lr.r = nil
		} else if err != nil {
			return 0, 0, err
		} else {
			return r, sz, nil
		}
	}
}

// Interact validates queries typed at the console until end of input; line history is kept
// in .sqlscope_history.
func Interact(cat *catalog.Catalog, flgs flags.Flags) {
	line := liner.NewLiner()
	defer line.Close()

	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}

	ReplSQL(cat, flgs, parser.NewParser(&lineReader{line: line}, "console"), os.Stdout)

	if f, err := os.Create(historyFile); err != nil {
		fmt.Fprintf(os.Stderr, "sqlscope: error writing history file, %s: %s\n", historyFile,
			err)
	} else {
		line.WriteHistory(f)
		f.Close()
	}
}
