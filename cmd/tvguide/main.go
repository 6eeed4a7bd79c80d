// Command tvguide aggregates TV channel and program guide data from a
// scraped website or XMLTV sources into a local SQLite database.
package main

import (
	"os"

	"github.com/runnerr0/tvguide/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := cli.Run(version); err != nil {
		os.Exit(1)
	}
}
