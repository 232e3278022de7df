package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"attackreg/internal/app"
	"attackreg/internal/flags"
)

func main() {
	app.Main(&cli.App{
		Name:   "total-attacks",
		Usage:  "Print the number of registered attacks",
		Flags:  flags.ReadFlags,
		Action: totalAttacks,
	})
}

func totalAttacks(c *cli.Context) error {
	env, err := app.Setup(c, app.Options{})
	if err != nil {
		return err
	}
	defer env.Close()

	total, err := env.Registry.TotalAttacks(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Number of Registered Attacks: %s\n", total)
	return nil
}
