package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"attackreg/internal/app"
	"attackreg/internal/blacklist"
	"attackreg/internal/flags"
)

func main() {
	app.Main(&cli.App{
		Name:   "blacklist-sync",
		Usage:  "Mirror the on-chain attack records into a local blacklist",
		Flags:  append(flags.ReadFlags, flags.OnceFlag, flags.IntervalFlag),
		Action: runSync,
	})
}

func runSync(c *cli.Context) error {
	env, err := app.Setup(c, app.Options{})
	if err != nil {
		return err
	}
	defer env.Close()

	opts := []blacklist.Option{blacklist.WithLogger(env.Logger)}
	if env.DB != nil {
		opts = append(opts, blacklist.WithPersister(env.DB))
	}
	s := blacklist.NewSyncer(env.Registry, opts...)

	if !c.Bool(flags.OnceFlag.Name) {
		err := s.Run(c.Context, c.Duration(flags.IntervalFlag.Name))
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	n, err := s.Refresh(c.Context)
	if err != nil {
		return err
	}
	out := c.App.Writer
	fmt.Fprintf(out, "Blacklist updated with %d attacks.\n", n)
	for _, e := range s.Snapshot() {
		fmt.Fprintf(out, " Attack %d:\n", e.Index)
		fmt.Fprintf(out, "   IP: %s\n", e.IP)
		fmt.Fprintf(out, "   Attack Type: %s\n", e.Type)
		fmt.Fprintf(out, "   Timestamp: %d\n", e.Timestamp.Unix())
		fmt.Fprintln(out, strings.Repeat("-", 40))
	}
	return nil
}
