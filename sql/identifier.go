package sql

import (
	"strings"
	"sync"
)

type Identifier int

const MaxIdentifier = 128

const (
	ABS Identifier = iota + 1
	AVG
	BIGINT
	BOOL
	BOOLEAN
	CARDINALITY
	CHAR
	CHAR_LENGTH
	COALESCE
	COLLECT
	COUNT
	DOUBLE
	INT
	INTEGER
	LOWER
	MAX
	MIN
	ROW
	SMALLINT
	SUM
	TEXT
	UPPER
	VARCHAR
)

const (
	AND Identifier = -(iota + 1)
	AS
	ASC
	BY
	CROSS
	DESC
	DISTINCT
	EXISTS
	FALSE
	FROM
	GROUP
	HAVING
	INNER
	JOIN
	LATERAL
	LEFT
	MULTISET
	NOT
	NULL
	ON
	OR
	ORDER
	SELECT
	TRUE
	USING
	WHERE
)

var knownIdentifiers = map[string]Identifier{
	"abs":         ABS,
	"avg":         AVG,
	"bigint":      BIGINT,
	"bool":        BOOL,
	"boolean":     BOOLEAN,
	"cardinality": CARDINALITY,
	"char":        CHAR,
	"char_length": CHAR_LENGTH,
	"coalesce":    COALESCE,
	"collect":     COLLECT,
	"count":       COUNT,
	"double":      DOUBLE,
	"int":         INT,
	"integer":     INTEGER,
	"lower":       LOWER,
	"max":         MAX,
	"min":         MIN,
	"row":         ROW,
	"smallint":    SMALLINT,
	"sum":         SUM,
	"text":        TEXT,
	"upper":       UPPER,
	"varchar":     VARCHAR,
}

var knownKeywords = map[string]Identifier{
	"AND":      AND,
	"AS":       AS,
	"ASC":      ASC,
	"BY":       BY,
	"CROSS":    CROSS,
	"DESC":     DESC,
	"DISTINCT": DISTINCT,
	"EXISTS":   EXISTS,
	"FALSE":    FALSE,
	"FROM":     FROM,
	"GROUP":    GROUP,
	"HAVING":   HAVING,
	"INNER":    INNER,
	"JOIN":     JOIN,
	"LATERAL":  LATERAL,
	"LEFT":     LEFT,
	"MULTISET": MULTISET,
	"NOT":      NOT,
	"NULL":     NULL,
	"ON":       ON,
	"OR":       OR,
	"ORDER":    ORDER,
	"SELECT":   SELECT,
	"TRUE":     TRUE,
	"USING":    USING,
	"WHERE":    WHERE,
}

var (
	mutex          sync.RWMutex
	lastIdentifier = Identifier(9999)
	identifiers    = make(map[string]Identifier)
	keywords       = make(map[string]Identifier)
	names          = make(map[Identifier]string)
)

func lookup(s string) (Identifier, bool) {
	mutex.RLock()
	defer mutex.RUnlock()

	id, found := identifiers[s]
	return id, found
}

func intern(s string) Identifier {
	if id, found := lookup(s); found {
		return id
	}

	mutex.Lock()
	defer mutex.Unlock()

	if id, found := identifiers[s]; found {
		return id
	}
	lastIdentifier += 1
	identifiers[s] = lastIdentifier
	names[lastIdentifier] = s
	return lastIdentifier
}

// ID returns the identifier for s, which is expected to be lowercase.
func ID(s string) Identifier {
	if len(s) > MaxIdentifier {
		s = s[:MaxIdentifier]
	}
	return intern(s)
}

// UnquotedID folds s to lowercase unless it is a keyword.
func UnquotedID(s string) Identifier {
	if len(s) > MaxIdentifier {
		s = s[:MaxIdentifier]
	}

	if id, found := keywords[strings.ToUpper(s)]; found {
		return id
	}
	return intern(strings.ToLower(s))
}

// QuotedID keeps the case of s and never returns a keyword.
func QuotedID(s string) Identifier {
	if len(s) > MaxIdentifier {
		s = s[:MaxIdentifier]
	}
	return intern(s)
}

func (id Identifier) String() string {
	mutex.RLock()
	defer mutex.RUnlock()

	return names[id]
}

func (id Identifier) IsReserved() bool {
	return id < 0
}

// EqualFold reports whether the two identifiers are the same ignoring case.
func (id Identifier) EqualFold(id2 Identifier) bool {
	return id == id2 || strings.EqualFold(id.String(), id2.String())
}

func init() {
	for s, id := range knownIdentifiers {
		identifiers[s] = id
		names[id] = s
	}
	for s, id := range knownKeywords {
		keywords[s] = id
		names[id] = s
	}
}
