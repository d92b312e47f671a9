package flags

import (
	"sort"
	"strings"

	"github.com/spf13/pflag"
)

type Flag int

const (
	GroupByAlias Flag = iota
	GroupByOrdinal
	HavingAlias
	OrderByAlias
	OrderByOrdinal
)

type flagDefault struct {
	flag  Flag
	def   bool
	usage string
}

var (
	defaultFlags = map[string]flagDefault{
		"group_by_alias": {GroupByAlias, true,
			"allow GROUP BY to refer to select list aliases"},
		"group_by_ordinal": {GroupByOrdinal, true,
			"allow GROUP BY to refer to select list items by position"},
		"having_alias": {HavingAlias, true,
			"allow HAVING to refer to select list aliases"},
		"order_by_alias": {OrderByAlias, true,
			"allow ORDER BY to refer to select list aliases"},
		"order_by_ordinal": {OrderByOrdinal, true,
			"allow ORDER BY to refer to select list items by position"},
	}
)

func LookupFlag(nam string) (Flag, bool) {
	fd, ok := defaultFlags[strings.ToLower(nam)]
	return fd.flag, ok
}

// ListFlags calls fn for each flag in name order.
func ListFlags(fn func(nam string, f Flag)) {
	var names []string
	for nam := range defaultFlags {
		names = append(names, nam)
	}
	sort.Strings(names)

	for _, nam := range names {
		fn(nam, defaultFlags[nam].flag)
	}
}

type Flags []bool

func (flgs Flags) GetFlag(f Flag) bool {
	return flgs[f]
}

func (flgs Flags) SetFlag(f Flag, b bool) {
	flgs[f] = b
}

// Bind registers every flag as a boolean command line flag and returns the flags which
// will be set when fs is parsed.
func Bind(fs *pflag.FlagSet) Flags {
	flgs := make([]bool, len(defaultFlags))
	for nam, fd := range defaultFlags {
		fs.BoolVar(&flgs[fd.flag], nam, fd.def, fd.usage)
	}
	return flgs
}

func Default() Flags {
	flgs := make([]bool, len(defaultFlags))
	for _, fd := range defaultFlags {
		flgs[fd.flag] = fd.def
	}
	return flgs
}
