package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"

	"attackreg/internal/app"
	"attackreg/internal/flags"
	"attackreg/internal/submitter"
)

func main() {
	app.Main(&cli.App{
		Name:      "tx-status",
		Usage:     "Re-query a submission whose confirmation timed out (never resubmits)",
		ArgsUsage: "<tx_id>",
		Flags:     append(flags.ReadFlags, flags.PendingFlag),
		Action:    txStatus,
	})
}

func txStatus(c *cli.Context) error {
	pending := c.Bool(flags.PendingFlag.Name)
	if !pending {
		if err := app.RequireArgs(c, 1); err != nil {
			return err
		}
	}

	env, err := app.Setup(c, app.Options{})
	if err != nil {
		return err
	}
	defer env.Close()

	var ids []string
	if pending {
		if env.Journal == nil {
			return fmt.Errorf("--%s needs a journal database (set DB_PATH or --%s)", flags.PendingFlag.Name, flags.DBPathFlag.Name)
		}
		subs, err := env.Journal.Pending(c.Context)
		if err != nil {
			return err
		}
		for _, s := range subs {
			ids = append(ids, s.TxID)
		}
	} else {
		ids = []string{c.Args().First()}
	}

	for _, raw := range ids {
		if len(common.FromHex(raw)) != common.HashLength {
			return fmt.Errorf("invalid transaction id %q", raw)
		}
		txID := common.HexToHash(raw)

		r, err := env.Submitter.Status(c.Context, txID)
		if err != nil {
			return err
		}
		status := submitter.StatusSent
		var block uint64
		switch {
		case r == nil:
			fmt.Fprintf(c.App.Writer, "%s: pending\n", txID.Hex())
		case r.Success():
			status, block = submitter.StatusConfirmed, r.BlockNumber
			fmt.Fprintf(c.App.Writer, "%s: confirmed in block %d, gas used %d\n", txID.Hex(), r.BlockNumber, r.GasUsed)
		default:
			status, block = submitter.StatusReverted, r.BlockNumber
			fmt.Fprintf(c.App.Writer, "%s: reverted in block %d\n", txID.Hex(), r.BlockNumber)
		}

		if env.Journal != nil && r != nil {
			if err := env.Journal.UpdateStatus(c.Context, txID.Hex(), status, block); err != nil {
				env.Logger.Debug().Err(err).Str("tx_id", txID.Hex()).Msg("submission not in journal")
			}
		}
	}
	return nil
}
