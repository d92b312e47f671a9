package sql

import (
	"fmt"
	"math"
	"strings"
)

const (
	MaxColumnSize = math.MaxUint32 - 1
)

type Field struct {
	Name Identifier
	Type ColumnType
}

type ColumnType struct {
	Type DataType

	// Size of the column in bytes for integers and in characters for character columns
	Size  uint32
	Fixed bool // fixed sized character column

	NotNull bool // not allowed to be NULL

	Fields []Field      // RowType
	Elem   *ColumnType // MultisetType
}

var (
	UnknownColType    = ColumnType{Type: UnknownType}
	Int32ColType      = ColumnType{Type: IntegerType, Size: 4, NotNull: true}
	Int64ColType      = ColumnType{Type: IntegerType, Size: 8, NotNull: true}
	NullInt64ColType  = ColumnType{Type: IntegerType, Size: 8}
	BoolColType       = ColumnType{Type: BooleanType, NotNull: true}
	NullBoolColType   = ColumnType{Type: BooleanType}
	FloatColType      = ColumnType{Type: FloatType, Size: 8, NotNull: true}
	StringColType     = ColumnType{Type: StringType, Size: MaxColumnSize, NotNull: true}
	NullStringColType = ColumnType{Type: StringType, Size: MaxColumnSize}
)

// RowOf returns a row type made up of fields.
func RowOf(fields ...Field) ColumnType {
	return ColumnType{Type: RowType, Fields: fields, NotNull: true}
}

// MultisetOf returns a multiset type with elements of type elem.
func MultisetOf(elem ColumnType) ColumnType {
	return ColumnType{Type: MultisetType, Elem: &elem, NotNull: true}
}

func (ct ColumnType) DataType() string {
	switch ct.Type {
	case UnknownType:
		return "UNKNOWN"
	case BooleanType:
		return "BOOL"
	case StringType:
		if ct.Fixed {
			return fmt.Sprintf("CHAR(%d)", ct.Size)
		} else if ct.Size == MaxColumnSize || ct.Size == 0 {
			return "TEXT"
		} else {
			return fmt.Sprintf("VARCHAR(%d)", ct.Size)
		}
	case FloatType:
		return "DOUBLE"
	case IntegerType:
		switch ct.Size {
		case 2:
			return "SMALLINT"
		case 8:
			return "BIGINT"
		}
		return "INT"
	case RowType:
		var b strings.Builder
		b.WriteString("ROW(")
		for fdx, f := range ct.Fields {
			if fdx > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s %s", f.Name, f.Type.DataType())
		}
		b.WriteByte(')')
		return b.String()
	case MultisetType:
		return ct.Elem.DataType() + " MULTISET"
	}
	return ""
}

func (ct ColumnType) String() string {
	if ct.NotNull && ct.Type != RowType && ct.Type != MultisetType {
		return ct.DataType() + " NOT NULL"
	}
	return ct.DataType()
}

// Field returns the index and the field named nam of a row type.
func (ct ColumnType) Field(nam Identifier) (int, Field, bool) {
	if ct.Type != RowType {
		return -1, Field{}, false
	}
	for fdx, f := range ct.Fields {
		if f.Name == nam {
			return fdx, f, true
		}
	}
	return -1, Field{}, false
}

// FieldFold is Field ignoring the case of nam.
func (ct ColumnType) FieldFold(nam Identifier) (Field, bool) {
	if ct.Type != RowType {
		return Field{}, false
	}
	for _, f := range ct.Fields {
		if f.Name.EqualFold(nam) {
			return f, true
		}
	}
	return Field{}, false
}

// Nullable returns ct with NotNull cleared; a row type keeps its shape but every field
// becomes nullable (the outer side of a LEFT JOIN).
func (ct ColumnType) Nullable() ColumnType {
	if ct.Type == RowType {
		fields := make([]Field, len(ct.Fields))
		for fdx, f := range ct.Fields {
			fields[fdx] = Field{Name: f.Name, Type: f.Type.Nullable()}
		}
		return ColumnType{Type: RowType, Fields: fields, NotNull: ct.NotNull}
	}
	ct.NotNull = false
	return ct
}

// Equal compares two types including field names, but not nullability.
func (ct ColumnType) Equal(ct2 ColumnType) bool {
	if ct.Type != ct2.Type || ct.Size != ct2.Size || ct.Fixed != ct2.Fixed {
		return false
	}
	switch ct.Type {
	case RowType:
		if len(ct.Fields) != len(ct2.Fields) {
			return false
		}
		for fdx := range ct.Fields {
			if ct.Fields[fdx].Name != ct2.Fields[fdx].Name ||
				!ct.Fields[fdx].Type.Equal(ct2.Fields[fdx].Type) {
				return false
			}
		}
	case MultisetType:
		return ct.Elem.Equal(*ct2.Elem)
	}
	return true
}
