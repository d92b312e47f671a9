package sql

import (
	"fmt"
)

type Position struct {
	Filename string
	Line     int
	Column   int
}

func (pos Position) String() string {
	s := pos.Filename
	if pos.Line > 0 {
		s += fmt.Sprintf(":%d:%d", pos.Line, pos.Column)
	}
	return s
}

func (pos Position) IsValid() bool {
	return pos.Line > 0
}
