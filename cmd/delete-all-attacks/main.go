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
		Name:   "delete-all-attacks",
		Usage:  "Delete every attack record in the registry contract",
		Flags:  flags.WriteFlags,
		Action: deleteAll,
	})
}

func deleteAll(c *cli.Context) error {
	return app.RunWrite(c, "All attacks deleted successfully", func(ctx context.Context, reg *registry.Registry) (*submitter.Result, error) {
		return reg.DeleteAllAttacks(ctx)
	})
}
