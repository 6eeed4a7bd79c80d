// Package guide holds the identifier types and entity records shared by the
// store, the fetch backends and the presentation caches.
package guide

import (
	"strconv"
	"time"
)

// GroupID identifies a provider-defined collection of channels.
type GroupID string

// ChannelID identifies a single broadcast channel.
type ChannelID string

// ProgramID identifies one scheduled broadcast on a channel.
type ProgramID string

func (id GroupID) String() string   { return string(id) }
func (id ChannelID) String() string { return string(id) }
func (id ProgramID) String() string { return string(id) }

// IsZero reports whether id is the empty "no id" sentinel.
func (id GroupID) IsZero() bool   { return id == "" }
func (id ChannelID) IsZero() bool { return id == "" }
func (id ProgramID) IsZero() bool { return id == "" }

// NewProgramID derives the program id from its channel and start time:
// "<channel>_<start epoch seconds>". Two fetches of the same slot always
// collapse onto the same row.
func NewProgramID(ch ChannelID, start time.Time) ProgramID {
	return ProgramID(string(ch) + "_" + strconv.FormatInt(start.Unix(), 10))
}

// ChannelIDs converts raw strings, e.g. from command line arguments.
func ChannelIDs(raw []string) []ChannelID {
	ids := make([]ChannelID, 0, len(raw))
	for _, r := range raw {
		ids = append(ids, ChannelID(r))
	}
	return ids
}
