package parser

import (
	"errors"
	"fmt"
	"strings"

	"framesight/internal/model"
)

var (
	// ErrNoNodes means no joint/coordinate rows survived parsing.
	ErrNoNodes = errors.New("no nodes found")
	// ErrNoMembers means every member strategy, including the proximity
	// graph, produced nothing.
	ErrNoMembers = errors.New("no members found")
)

// ParseError is the single fatal failure mode of the parser. It names
// the detected dialect, the last section reached, and every strategy
// exhausted, so the caller can show what was actually attempted.
type ParseError struct {
	Dialect     model.Dialect
	LastSection string
	Strategies  []string
	Err         error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("parse failed (%s dialect, last section %s): %v",
		e.Dialect, e.LastSection, e.Err)
	if len(e.Strategies) > 0 {
		msg += fmt.Sprintf("; strategies exhausted: %s", strings.Join(e.Strategies, ", "))
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }
