package relay

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidLength = errors.New("invalid length")
	ErrInvalidValue  = errors.New("invalid value")
)

// ParseError 报文解析错误
// Kind 为 ErrInvalidLength 时 Expected/Actual 有效；为 ErrInvalidValue 时 Msg 有效
type ParseError struct {
	Kind     error
	Expected int
	Actual   int
	Msg      string
}

func newInvalidLength(expected, actual int) *ParseError {
	return &ParseError{Kind: ErrInvalidLength, Expected: expected, Actual: actual}
}

func newInvalidValue(format string, args ...interface{}) *ParseError {
	return &ParseError{Kind: ErrInvalidValue, Msg: fmt.Sprintf(format, args...)}
}

func (e *ParseError) Error() string {
	if e.Kind == ErrInvalidLength {
		return fmt.Sprintf("invalid length: expected at least %d bytes, got %d", e.Expected, e.Actual)
	}
	return fmt.Sprintf("invalid value: %s", e.Msg)
}

// Is 支持 errors.Is(err, ErrInvalidLength) 这类判断
func (e *ParseError) Is(target error) bool {
	return target == e.Kind
}
