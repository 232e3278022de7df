package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"attackreg/internal/app"
	"attackreg/internal/flags"
)

func main() {
	app.Main(&cli.App{
		Name:      "attacks-by-type",
		Usage:     "Print every attack record of the given type",
		ArgsUsage: "<attack_type>",
		Flags:     flags.ReadFlags,
		Action:    attacksByType,
	})
}

func attacksByType(c *cli.Context) error {
	if err := app.RequireArgs(c, 1); err != nil {
		return err
	}

	env, err := app.Setup(c, app.Options{})
	if err != nil {
		return err
	}
	defer env.Close()

	attacks, err := env.Registry.AttacksByType(c.Context, c.Args().First())
	if err != nil {
		return err
	}

	out := c.App.Writer
	fmt.Fprintf(out, "Number of Registered Attacks: %d\n", len(attacks))
	for i, a := range attacks {
		fmt.Fprintf(out, "Attack %d:\n", i)
		fmt.Fprintf(out, "IP: %s\n", a.IP)
		fmt.Fprintf(out, "Attack type: %s\n", a.Type)
		fmt.Fprintf(out, "Timestamp: %s\n", a.Timestamp)
	}
	return nil
}
