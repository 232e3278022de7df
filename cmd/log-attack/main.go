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
		Name:      "log-attack",
		Usage:     "Record a detected attack in the registry contract",
		ArgsUsage: "<ip_address> <attack_type>",
		Flags:     append(flags.WriteFlags, flags.TypeTrackingFlag),
		Action:    logAttack,
	})
}

func logAttack(c *cli.Context) error {
	if err := app.RequireArgs(c, 2); err != nil {
		return err
	}
	ip, attackType := c.Args().Get(0), c.Args().Get(1)

	return app.RunWrite(c, "Attack logged successfully", func(ctx context.Context, reg *registry.Registry) (*submitter.Result, error) {
		if c.Bool(flags.TypeTrackingFlag.Name) {
			return reg.LogAttackWithTypeTracking(ctx, ip, attackType)
		}
		return reg.LogAttack(ctx, ip, attackType)
	})
}
