package validate

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrNameNotFound: no binding was found anywhere along the scope chain.
	ErrNameNotFound = errors.New("name not found")

	// ErrUnknownIdentifier: a GROUP BY expression is neither a select list alias nor a
	// visible column.
	ErrUnknownIdentifier = errors.New("unknown identifier")

	// ErrAmbiguousName: a name matches more than one visible relation or alias at the same
	// level.
	ErrAmbiguousName = errors.New("ambiguous name")

	ErrNullPath      = errors.New("null path")
	ErrNullReference = errors.New("null reference")

	ErrTypeMismatch    = errors.New("type mismatch")
	ErrUnknownFunction = errors.New("unknown function")
	ErrInvalidQuery    = errors.New("invalid query")
)

func nameNotFound(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrNameNotFound)
}

func ambiguousName(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrAmbiguousName)
}

func typeMismatch(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrTypeMismatch)
}

func invalidQuery(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrInvalidQuery)
}

// unknownIdentifier marks a resolution failure in GROUP BY; the original error is kept so
// that it still matches ErrNameNotFound.
func unknownIdentifier(err error, name interface{}) error {
	return errors.Mark(
		errors.WithDetailf(err, "%s is neither a select list alias nor a visible column", name),
		ErrUnknownIdentifier)
}
