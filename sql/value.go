package sql

import (
	"fmt"
	"strings"
)

const (
	NullString  = "NULL"
	TrueString  = "true"
	FalseString = "false"
)

type Value interface {
	fmt.Stringer

	// ColumnType is the type of a literal of this value.
	ColumnType() ColumnType
}

type BoolValue bool

func (b BoolValue) String() string {
	if b {
		return TrueString
	}
	return FalseString
}

func (_ BoolValue) ColumnType() ColumnType {
	return BoolColType
}

type Int64Value int64

func (i Int64Value) String() string {
	return fmt.Sprintf("%v", int64(i))
}

func (_ Int64Value) ColumnType() ColumnType {
	return Int64ColType
}

type Float64Value float64

func (d Float64Value) String() string {
	return fmt.Sprintf("%v", float64(d))
}

func (_ Float64Value) ColumnType() ColumnType {
	return FloatColType
}

type StringValue string

func (s StringValue) String() string {
	return fmt.Sprintf("'%s'", strings.ReplaceAll(string(s), "'", "''"))
}

func (s StringValue) ColumnType() ColumnType {
	return ColumnType{Type: StringType, Size: uint32(len(s)), Fixed: true, NotNull: true}
}

func Format(v Value) string {
	if v == nil {
		return NullString
	}

	return v.String()
}

// TypeOf returns the type of a literal value; NULL has an unknown type.
func TypeOf(v Value) ColumnType {
	if v == nil {
		return UnknownColType
	}
	return v.ColumnType()
}
