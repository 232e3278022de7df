package app

import (
	"errors"
	"flag"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// cliContext 不经过 RunContext 构造上下文，避免 cli.Exit 触发 os.Exit
func cliContext(t *testing.T, name, argsUsage string, args ...string) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet(name, flag.ContinueOnError)
	require.NoError(t, set.Parse(args))
	return cli.NewContext(&cli.App{Name: name, ArgsUsage: argsUsage}, set, nil)
}

func requireExit(t *testing.T, err error) cli.ExitCoder {
	t.Helper()
	var exit cli.ExitCoder
	require.True(t, errors.As(err, &exit), "expected cli.ExitCoder, got %v", err)
	assert.Equal(t, 1, exit.ExitCode())
	return exit
}

func TestRequireArgsPrintsUsage(t *testing.T) {
	c := cliContext(t, "log-attack", "<ip_address> <attack_type>", "1.1.1.1")

	exit := requireExit(t, RequireArgs(c, 2))
	assert.Equal(t, "Usage: log-attack <ip_address> <attack_type>", exit.Error())

	c = cliContext(t, "log-attack", "<ip_address> <attack_type>", "1.1.1.1", "Prueba")
	assert.NoError(t, RequireArgs(c, 2))
}

func TestParseIndex(t *testing.T) {
	c := cliContext(t, "delete-attack", "<index>")

	for _, bad := range []string{"abc", "-1", "1.5", ""} {
		_, err := ParseIndex(c, bad)
		exit := requireExit(t, err)
		assert.Contains(t, exit.Error(), "Usage: delete-attack <index>", "input %q", bad)
	}

	n, err := ParseIndex(c, "42")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(42), n)
}
