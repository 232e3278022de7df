package app

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"

	txerrors "attackreg/internal/errors"
	"attackreg/internal/registry"
	"attackreg/internal/submitter"
)

// WriteFunc 对合约发起一次写调用
type WriteFunc func(ctx context.Context, reg *registry.Registry) (*submitter.Result, error)

// RunWrite 执行写调用并按固定格式输出：
//
//	Estimated gas result: totalGas: <n>
//	Transaction sent, ID: <tx id>
//	Transaction confirmed: block <n>, gas used <n>
//	<done>
func RunWrite(c *cli.Context, done string, call WriteFunc) error {
	out := c.App.Writer
	env, err := Setup(c, Options{
		WithSender: true,
		OnSent: func(txID common.Hash, gas uint64) {
			fmt.Fprintf(out, "Estimated gas result: totalGas: %d\n", gas)
			fmt.Fprintf(out, "Transaction sent, ID: %s\n", txID.Hex())
		},
	})
	if err != nil {
		return err
	}
	defer env.Close()

	res, err := call(c.Context, env.Registry)
	if err != nil {
		if id := txerrors.TxIDOf(err); id != "" {
			fmt.Fprintf(c.App.ErrWriter, "Outcome unknown, re-check with: tx-status %s\n", id)
		}
		return err
	}

	fmt.Fprintf(out, "Transaction confirmed: block %d, gas used %d\n", res.Receipt.BlockNumber, res.Receipt.GasUsed)
	if !res.Receipt.Success() {
		return fmt.Errorf("transaction %s reverted on chain", res.TxID.Hex())
	}

	events, err := env.Registry.Events(res.Receipt)
	if err != nil {
		env.Logger.Warn().Err(err).Msg("decode receipt events failed")
	}
	for _, ev := range events {
		env.Logger.Info().
			Str("event", ev.Name).
			Str("ip", ev.IP).
			Str("attack_type", ev.Type).
			Str("tx_id", ev.TxID.Hex()).
			Msg("contract event")
	}

	fmt.Fprintln(out, done)
	return nil
}
