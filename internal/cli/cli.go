package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Status   *StatusCommand
	Groups   *GroupsCommand
	Channels *ChannelsCommand
	Programs *ProgramsCommand

	FavoriteAdd    *FavoriteAddCommand
	FavoriteRemove *FavoriteRemoveCommand
	FavoriteSort   *FavoriteSortCommand
	FavoriteClear  *FavoriteClearCommand
	FavoriteList   *FavoriteListCommand

	FetchGroups      *FetchGroupsCommand
	FetchGroup       *FetchGroupCommand
	FetchPrograms    *FetchProgramsCommand
	FetchFavorites   *FetchFavoritesCommand
	FetchDescription *FetchDescriptionCommand
	FetchImage       *FetchImageCommand

	Cleanup *CleanupCommand
	Reset   *ResetCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "tvguide"
	parser.LongDescription = "Aggregate TV channel and program guide data into a local database."

	g := &globals
	cmds := &commands{
		Status:   &StatusCommand{globals: g, version: version},
		Groups:   &GroupsCommand{globals: g},
		Channels: &ChannelsCommand{globals: g},
		Programs: &ProgramsCommand{globals: g},

		FavoriteAdd:    &FavoriteAddCommand{globals: g},
		FavoriteRemove: &FavoriteRemoveCommand{globals: g},
		FavoriteSort:   &FavoriteSortCommand{globals: g},
		FavoriteClear:  &FavoriteClearCommand{globals: g},
		FavoriteList:   &FavoriteListCommand{globals: g},

		FetchGroups:      &FetchGroupsCommand{globals: g},
		FetchGroup:       &FetchGroupCommand{globals: g},
		FetchPrograms:    &FetchProgramsCommand{globals: g},
		FetchFavorites:   &FetchFavoritesCommand{globals: g},
		FetchDescription: &FetchDescriptionCommand{globals: g},
		FetchImage:       &FetchImageCommand{globals: g},

		Cleanup: &CleanupCommand{globals: g},
		Reset:   &ResetCommand{globals: g},
	}

	parser.AddCommand("status", "Show database statistics", "Show database statistics, the active backend and configuration summary.", cmds.Status)
	parser.AddCommand("groups", "List groups", "List stored groups, optionally only those containing a channel.", cmds.Groups)
	parser.AddCommand("channels", "List channels", "List stored channels, optionally only favorites.", cmds.Channels)
	parser.AddCommand("programs", "List programs of a channel", "List the stored programs of a channel ordered by start.", cmds.Programs)

	fav, _ := parser.AddCommand("favorite", "Manage favorites", "Add, remove, reorder, clear or list favorite channels.", &FavoriteCommand{})
	fav.AddCommand("add", "Add favorites", "Append channels to the end of the favorite list.", cmds.FavoriteAdd)
	fav.AddCommand("remove", "Remove favorites", "Remove channels from the favorite list.", cmds.FavoriteRemove)
	fav.AddCommand("sort", "Reorder favorites", "Set a new favorite order. The channels must be exactly the current favorites.", cmds.FavoriteSort)
	fav.AddCommand("clear", "Remove all favorites", "Remove all favorites.", cmds.FavoriteClear)
	fav.AddCommand("list", "List favorites", "List favorite channel IDs in order.", cmds.FavoriteList)

	fetch, _ := parser.AddCommand("fetch", "Fetch guide data", "Fetch guide data from the configured backend into the database.", &FetchCommand{})
	fetch.AddCommand("groups", "Fetch groups", "Fetch the group list.", cmds.FetchGroups)
	fetch.AddCommand("group", "Fetch channels of groups", "Fetch the channels of the given groups.", cmds.FetchGroup)
	fetch.AddCommand("programs", "Fetch programs of channels", "Fetch tomorrow's, today's and yesterday's programs of the given channels.", cmds.FetchPrograms)
	fetch.AddCommand("favorites", "Fetch programs of favorites", "Fetch the programs of every favorite channel.", cmds.FetchFavorites)
	fetch.AddCommand("description", "Fetch program descriptions", "Fetch the descriptions of the given programs.", cmds.FetchDescription)
	fetch.AddCommand("image", "Fetch images", "Download images into the image cache and print their paths.", cmds.FetchImage)

	parser.AddCommand("cleanup", "Drop old programs", "Drop programs outside the retention window.", cmds.Cleanup)
	parser.AddCommand("reset", "Delete ALL guide data", "Drop and recreate the database schema. Destructive operation with safety prompt.", cmds.Reset)

	return parser, &globals, cmds
}

// Run is the main entry point for the tvguide CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// Handle --version before parser (go-flags requires a subcommand, but
	// --version is valid without one).
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("tvguide %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	return nil
}
