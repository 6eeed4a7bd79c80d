package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/runnerr0/tvguide/internal/guide"
)

// Execute implements the go-flags Commander interface for GroupsCommand.
func (c *GroupsCommand) Execute(args []string) error {
	return withApp(c.globals, c.app, c.run)
}

func (c *GroupsCommand) run(ctx context.Context, a *app) error {
	var (
		groups []guide.GroupRecord
		err    error
	)
	if c.Channel != "" {
		groups, err = a.store.ChannelGroups(ctx, guide.ChannelID(c.Channel))
	} else {
		groups, err = a.caches.Groups.Get(ctx)
	}
	if err != nil {
		return fmt.Errorf("list groups: %w", err)
	}

	if jsonOutput(c.globals) {
		if groups == nil {
			groups = []guide.GroupRecord{}
		}
		return printJSON(groups)
	}
	if len(groups) == 0 {
		fmt.Println("No groups. Run 'tvguide fetch groups' first.")
		return nil
	}
	for _, g := range groups {
		fmt.Printf("%-24s %s\n", g.ID, g.Name)
	}
	return nil
}

// Execute implements the go-flags Commander interface for ChannelsCommand.
func (c *ChannelsCommand) Execute(args []string) error {
	return withApp(c.globals, c.app, c.run)
}

func (c *ChannelsCommand) run(ctx context.Context, a *app) error {
	list := a.caches.Channels
	if c.Favorites {
		list = a.caches.Favorites
	}
	channels, err := list.Get(ctx)
	if err != nil {
		return fmt.Errorf("list channels: %w", err)
	}

	if jsonOutput(c.globals) {
		if channels == nil {
			channels = []guide.ChannelRecord{}
		}
		return printJSON(channels)
	}
	if len(channels) == 0 {
		fmt.Println("No channels.")
		return nil
	}
	for _, ch := range channels {
		fmt.Printf("%-24s %s\n", ch.ID, ch.Name)
	}
	return nil
}

// Execute implements the go-flags Commander interface for ProgramsCommand.
func (c *ProgramsCommand) Execute(args []string) error {
	if c.Channel == "" {
		return fmt.Errorf("--channel is required")
	}
	var window time.Duration
	if c.Next != "" {
		d, err := parseDuration(c.Next)
		if err != nil {
			return err
		}
		window = d
	}
	return withApp(c.globals, c.app, func(ctx context.Context, a *app) error {
		return c.run(ctx, a, window, time.Now())
	})
}

func (c *ProgramsCommand) run(ctx context.Context, a *app, window time.Duration, now time.Time) error {
	programs, err := a.caches.Programs(guide.ChannelID(c.Channel)).Get(ctx)
	if err != nil {
		return fmt.Errorf("list programs: %w", err)
	}
	if window > 0 {
		programs = upcoming(programs, now, window)
	}

	if jsonOutput(c.globals) {
		if programs == nil {
			programs = []guide.ProgramRecord{}
		}
		return printJSON(programs)
	}
	if len(programs) == 0 {
		fmt.Printf("No programs for %s.\n", c.Channel)
		return nil
	}
	for _, p := range programs {
		title := p.Title
		if p.Subtitle != "" {
			title += " - " + p.Subtitle
		}
		line := fmt.Sprintf("%s  %s  %s", formatTime(p.Start), p.Stop.Local().Format("15:04"), title)
		if len(p.Categories) > 0 {
			line += "  [" + strings.Join(p.Categories, ", ") + "]"
		}
		fmt.Println(line)
	}
	return nil
}

// upcoming keeps programs running at now or starting before now+window.
func upcoming(programs []guide.ProgramRecord, now time.Time, window time.Duration) []guide.ProgramRecord {
	end := now.Add(window)
	var out []guide.ProgramRecord
	for _, p := range programs {
		if p.Stop.After(now) && p.Start.Before(end) {
			out = append(out, p)
		}
	}
	return out
}
