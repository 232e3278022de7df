package main

import (
	"context"

	"github.com/urfave/cli/v2"

	"attackreg/internal/app"
	"attackreg/internal/flags"
	"attackreg/internal/registry"
	"attackreg/internal/submitter"
)

func main() {
	app.Main(&cli.App{
		Name:      "delete-attack",
		Usage:     "Delete the attack record at the given index",
		ArgsUsage: "<index>",
		Flags:     flags.WriteFlags,
		Action:    deleteAttack,
	})
}

func deleteAttack(c *cli.Context) error {
	if err := app.RequireArgs(c, 1); err != nil {
		return err
	}
	index, err := app.ParseIndex(c, c.Args().First())
	if err != nil {
		return err
	}

	return app.RunWrite(c, "Attack deleted successfully", func(ctx context.Context, reg *registry.Registry) (*submitter.Result, error) {
		return reg.DeleteAttack(ctx, index)
	})
}
