// Package backend defines the contract shared by the guide's fetch
// backends and the policy helpers they have in common.
package backend

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/runnerr0/tvguide/internal/guide"
	"github.com/runnerr0/tvguide/internal/provider"
)

// Kind names a backend implementation.
type Kind string

const (
	KindHTML        Kind = "html"
	KindXMLTVFile   Kind = "xmltv-file"
	KindXMLTVRemote Kind = "xmltv-remote"
)

// Kinds lists every known backend kind.
var Kinds = []Kind{KindHTML, KindXMLTVFile, KindXMLTVRemote}

// ParseKind validates s as a backend kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown backend %q (want one of %v)", s, Kinds)
}

// Backend fetches guide data from one source into the store. Every method
// blocks until the operation finished and returns nil or an *Error.
type Backend interface {
	Kind() Kind
	// Synchronous reports whether operations complete without network I/O.
	Synchronous() bool

	FetchGroups(ctx context.Context) error
	FetchGroup(ctx context.Context, id guide.GroupID) error
	FetchProgram(ctx context.Context, ch guide.ChannelID) error
	FetchProgramDescription(ctx context.Context, id guide.ProgramID, force bool) error
	// FetchImage downloads url into the image cache and returns ImagePath(url).
	FetchImage(ctx context.Context, url string) (string, error)
	ImagePath(url string) string
}

// Error codes that are not HTTP statuses.
const (
	CodeNetwork     = -1
	CodeIO          = -2
	CodeNotFound    = -3
	CodeUnsupported = -4
)

// Error is the failure payload of a fetch operation. Code is the HTTP
// status for status failures, otherwise one of the Code constants.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch failed (%d): %s", e.Code, e.Message)
}

// Errorf builds an *Error.
func Errorf(code int, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// FromTransport converts a provider error into an *Error. A nil err
// yields nil.
func FromTransport(err error) error {
	if err == nil {
		return nil
	}
	var be *Error
	if errors.As(err, &be) {
		return be
	}
	var se *provider.StatusError
	if errors.As(err, &se) {
		return &Error{Code: se.Code, Message: se.Error()}
	}
	var pe *fs.PathError
	if errors.As(err, &pe) || errors.Is(err, provider.ErrTooLarge) {
		return &Error{Code: CodeIO, Message: err.Error()}
	}
	return &Error{Code: CodeNetwork, Message: err.Error()}
}

// IsStatus reports whether err carries HTTP status code.
func IsStatus(err error, code int) bool {
	var be *Error
	return errors.As(err, &be) && be.Code == code
}
