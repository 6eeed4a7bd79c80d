package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/runnerr0/tvguide/internal/storage"
)

// Execute implements the go-flags Commander interface for ResetCommand.
func (c *ResetCommand) Execute(args []string) error {
	if !c.Force {
		if err := c.confirm(); err != nil {
			return err
		}
	}
	return withApp(c.globals, c.app, c.run)
}

func (c *ResetCommand) confirm() error {
	fmt.Println("⚠ WARNING: This will permanently delete ALL guide data.")
	fmt.Println("  - All groups and channels")
	fmt.Println("  - All favorites")
	fmt.Println("  - All programs")
	fmt.Println()
	fmt.Print(`Type "RESET" to confirm: `)

	var in io.Reader = os.Stdin
	if c.stdin != nil {
		in = c.stdin
	}
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return fmt.Errorf("aborted: no input received")
	}
	if strings.TrimSpace(scanner.Text()) != "RESET" {
		return fmt.Errorf("aborted: confirmation text did not match")
	}
	return nil
}

func (c *ResetCommand) run(ctx context.Context, a *app) error {
	a.coord.Wait()
	if err := a.store.Reset(ctx); err != nil {
		return fmt.Errorf("reset failed: %w", err)
	}
	kind := string(a.coord.Backend().Kind())
	if err := a.store.SetSetting(ctx, storage.SettingBackend, kind); err != nil {
		return fmt.Errorf("record backend: %w", err)
	}

	if jsonOutput(c.globals) {
		return printJSON(map[string]any{
			"reset":   true,
			"backend": kind,
		})
	}
	fmt.Println("Reset all guide data. The database is empty.")
	return nil
}
