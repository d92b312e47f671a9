package sql

type DataType int

const (
	UnknownType DataType = iota
	BooleanType
	StringType
	FloatType
	IntegerType
	RowType
	MultisetType
)

func (dt DataType) String() string {
	switch dt {
	case UnknownType:
		return "UNKNOWN"
	case BooleanType:
		return "BOOL"
	case StringType:
		return "STRING"
	case FloatType:
		return "DOUBLE"
	case IntegerType:
		return "INTEGER"
	case RowType:
		return "ROW"
	case MultisetType:
		return "MULTISET"
	}

	return ""
}

func (dt DataType) IsNumeric() bool {
	return dt == IntegerType || dt == FloatType
}
