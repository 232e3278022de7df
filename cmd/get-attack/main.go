package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"attackreg/internal/app"
	"attackreg/internal/flags"
	"attackreg/internal/registry"
)

var recordFlag = &cli.BoolFlag{
	Name:  "record",
	Usage: "Read the public records(index) array instead of getAttack(index)",
}

func main() {
	app.Main(&cli.App{
		Name:      "get-attack",
		Usage:     "Print the attack record at the given index",
		ArgsUsage: "<index>",
		Flags:     append(flags.ReadFlags, recordFlag),
		Action:    getAttack,
	})
}

func getAttack(c *cli.Context) error {
	if err := app.RequireArgs(c, 1); err != nil {
		return err
	}
	index, err := app.ParseIndex(c, c.Args().First())
	if err != nil {
		return err
	}

	env, err := app.Setup(c, app.Options{})
	if err != nil {
		return err
	}
	defer env.Close()

	var a registry.Attack
	if c.Bool(recordFlag.Name) {
		a, err = env.Registry.Record(c.Context, index)
	} else {
		a, err = env.Registry.Attack(c.Context, index)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "IP: %s\n", a.IP)
	fmt.Fprintf(c.App.Writer, "Attack type: %s\n", a.Type)
	fmt.Fprintf(c.App.Writer, "Timestamp: %s\n", a.Timestamp)
	return nil
}
