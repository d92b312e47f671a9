package validate

import (
	"github.com/cockroachdb/errors"

	"github.com/leftmike/sqlscope/expr"
	"github.com/leftmike/sqlscope/sql"
)

type MonikerType int

const (
	ColumnMoniker MonikerType = iota
)

func (mt MonikerType) String() string {
	return "column"
}

// Moniker presents a resolved identifier to hint and completion consumers.
type Moniker struct {
	ref *expr.Ref
}

func NewMoniker(ref *expr.Ref) (*Moniker, error) {
	if ref == nil {
		return nil, errors.Mark(errors.New("moniker: identifier must not be nil"),
			ErrNullReference)
	}
	return &Moniker{ref: ref}, nil
}

// Type is always ColumnMoniker.
func (m *Moniker) Type() MonikerType {
	return ColumnMoniker
}

// FullyQualifiedNames returns the names of the wrapped identifier; the slice is shared and
// must not be modified.
func (m *Moniker) FullyQualifiedNames() []sql.Identifier {
	return m.ref.Names
}

func (m *Moniker) ID() string {
	return m.ref.String()
}

func (m *Moniker) String() string {
	return m.ref.String()
}
