package token

import (
	"fmt"
)

const (
	EOF = -(iota + 1)
	EndOfStatement
	Error
	Identifier
	Reserved
	String
	Integer
	Float

	BarBar
	LessEqual
	LessGreater
	GreaterEqual
	EqualEqual
	BangEqual
)

const (
	Comma    = ','
	Dot      = '.'
	LParen   = '('
	RParen   = ')'
	LBracket = '['
	RBracket = ']'
)

const (
	Minus   = '-'
	Plus    = '+'
	Star    = '*'
	Slash   = '/'
	Percent = '%'
	Equal   = '='
	Less    = '<'
	Greater = '>'
	Bar     = '|'
	Bang    = '!'
)

var names = map[rune]string{
	EOF:            "end of file",
	EndOfStatement: "end of statement",
	Error:          "error",
	Identifier:     "identifier",
	Reserved:       "reserved identifier",
	String:         "string",
	Integer:        "integer",
	Float:          "float",
}

var operators = map[rune]string{
	BarBar:       "||",
	LessEqual:    "<=",
	LessGreater:  "<>",
	GreaterEqual: ">=",
	EqualEqual:   "==",
	BangEqual:    "!=",
}

var (
	opRunes = map[rune]bool{
		'-': true, '+': true, '*': true, '/': true, '%': true, '=': true, '<': true,
		'>': true, '|': true, '!': true,
	}
	Operators = map[string]rune{}
)

func IsOpRune(r rune) bool {
	_, ok := opRunes[r]
	return ok
}

func Format(r rune) string {
	if r > 0 {
		return fmt.Sprintf("rune %c", r)
	}
	if s, ok := operators[r]; ok {
		return s
	}
	if s, ok := names[r]; ok {
		return s
	}
	return fmt.Sprintf("token %d", r)
}

func init() {
	for r, s := range operators {
		Operators[s] = r
	}
}
