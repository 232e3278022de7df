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
		Name:      "delete-attacks-by-type",
		Usage:     "Delete every attack record of the given type",
		ArgsUsage: "<attack_type>",
		Flags:     flags.WriteFlags,
		Action:    deleteAttacksByType,
	})
}

func deleteAttacksByType(c *cli.Context) error {
	if err := app.RequireArgs(c, 1); err != nil {
		return err
	}
	attackType := c.Args().First()

	return app.RunWrite(c, "Attacks of type "+attackType+" deleted successfully", func(ctx context.Context, reg *registry.Registry) (*submitter.Result, error) {
		return reg.DeleteAttacksByType(ctx, attackType)
	})
}
