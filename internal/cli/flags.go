package cli

import "io"

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:""`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable verbose output"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// StatusCommand shows database statistics and the active backend.
type StatusCommand struct {
	globals *GlobalFlags
	version string
	app     *app // injectable for testing; nil means open from config
}

// GroupsCommand lists groups, optionally those of one channel.
type GroupsCommand struct {
	Channel string `long:"channel" description:"Only groups containing this channel"`

	globals *GlobalFlags
	app     *app
}

// ChannelsCommand lists channels.
type ChannelsCommand struct {
	Favorites bool `long:"favorites" description:"Only favorites, in favorite order"`

	globals *GlobalFlags
	app     *app
}

// ProgramsCommand lists the stored programs of a channel.
type ProgramsCommand struct {
	Channel string `long:"channel" description:"Channel ID (required)"`
	Next    string `long:"next" description:"Only programs running now or starting within duration (e.g., 6h, 1d)"`

	globals *GlobalFlags
	app     *app
}

// FavoriteCommand groups the favorite subcommands.
type FavoriteCommand struct{}

// FavoriteAddCommand appends channels to the favorites.
type FavoriteAddCommand struct {
	globals *GlobalFlags
	app     *app
}

// FavoriteRemoveCommand removes channels from the favorites.
type FavoriteRemoveCommand struct {
	globals *GlobalFlags
	app     *app
}

// FavoriteSortCommand reorders the favorites.
type FavoriteSortCommand struct {
	globals *GlobalFlags
	app     *app
}

// FavoriteClearCommand removes all favorites.
type FavoriteClearCommand struct {
	globals *GlobalFlags
	app     *app
}

// FavoriteListCommand lists favorites in order.
type FavoriteListCommand struct {
	globals *GlobalFlags
	app     *app
}

// FetchCommand groups the fetch subcommands.
type FetchCommand struct{}

// FetchGroupsCommand fetches the group list.
type FetchGroupsCommand struct {
	globals *GlobalFlags
	app     *app
}

// FetchGroupCommand fetches the channels of groups.
type FetchGroupCommand struct {
	globals *GlobalFlags
	app     *app
}

// FetchProgramsCommand fetches the programs of channels.
type FetchProgramsCommand struct {
	globals *GlobalFlags
	app     *app
}

// FetchFavoritesCommand fetches the programs of all favorites.
type FetchFavoritesCommand struct {
	globals *GlobalFlags
	app     *app
}

// FetchDescriptionCommand fetches program descriptions.
type FetchDescriptionCommand struct {
	Force bool `long:"force" description:"Fetch again even if already fetched"`

	globals *GlobalFlags
	app     *app
}

// FetchImageCommand downloads images into the image cache.
type FetchImageCommand struct {
	globals *GlobalFlags
	app     *app
}

// CleanupCommand drops programs outside the retention window.
type CleanupCommand struct {
	globals *GlobalFlags
	app     *app
}

// ResetCommand drops all cached guide data with safety confirmation.
type ResetCommand struct {
	Force bool `long:"force" description:"Skip safety confirmation prompt"`

	globals *GlobalFlags
	app     *app
	stdin   io.Reader // confirmation input; nil means os.Stdin
}
