package coordinator

import (
	"github.com/runnerr0/tvguide/internal/backend"
	"github.com/runnerr0/tvguide/internal/guide"
)

// Op names an asynchronous fetch operation.
type Op string

const (
	OpFetchGroups      Op = "fetch-groups"
	OpFetchGroup       Op = "fetch-group"
	OpFetchProgram     Op = "fetch-program"
	OpFetchDescription Op = "fetch-description"
	OpFetchImage       Op = "fetch-image"
)

// Event is delivered to subscribers. It is one of the Event* types below.
type Event interface {
	event()
}

// EventFetchSucceeded is the terminal event of a successful operation.
type EventFetchSucceeded struct {
	ID     string
	Op     Op
	Target string
	// Result holds the image path for OpFetchImage.
	Result string
}

// EventFetchFailed is the terminal event of a failed operation.
type EventFetchFailed struct {
	ID     string
	Op     Op
	Target string
	Err    *backend.Error
}

// EventGroupAdded reports a newly stored group.
type EventGroupAdded struct{ Group guide.GroupID }

// EventChannelAdded reports a newly stored channel.
type EventChannelAdded struct{ Channel guide.ChannelID }

// EventChannelChanged reports a channel that became or stopped being a
// favorite.
type EventChannelChanged struct {
	Channel  guide.ChannelID
	Favorite bool
}

// EventFavoritesUpdated reports a new favorite order.
type EventFavoritesUpdated struct{}

// EventProgramsAdded reports Count new programs of Channel.
type EventProgramsAdded struct {
	Channel guide.ChannelID
	Count   int
}

// EventProgramUpdated reports a program whose description changed.
type EventProgramUpdated struct{ Program guide.ProgramID }

// EventStoreReset reports that the schema was dropped and recreated.
type EventStoreReset struct{}

func (EventFetchSucceeded) event()   {}
func (EventFetchFailed) event()      {}
func (EventGroupAdded) event()       {}
func (EventChannelAdded) event()     {}
func (EventChannelChanged) event()   {}
func (EventFavoritesUpdated) event() {}
func (EventProgramsAdded) event()    {}
func (EventProgramUpdated) event()   {}
func (EventStoreReset) event()       {}
