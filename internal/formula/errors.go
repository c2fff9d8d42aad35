package formula

import "fmt"

// ErrParse matches any *ParseError via errors.Is.
var ErrParse = &ParseError{}

// ParseError reports a spelling that cannot be resolved against the vocabulary.
type ParseError struct {
	Token    string
	Position int
	Reason   string
}

func (e *ParseError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "unknown token"
	}
	if e.Token == "" {
		return fmt.Sprintf("parse error at %d: %s", e.Position, reason)
	}
	return fmt.Sprintf("parse error at %d: %s %q", e.Position, reason, e.Token)
}

func (e *ParseError) Is(target error) bool {
	_, ok := target.(*ParseError)
	return ok
}
