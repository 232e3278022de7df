package app

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
)

// Main 运行命令，收到 SIGINT/SIGTERM 时取消 context；任何错误写到 stderr 并以 1 退出
func Main(a *cli.App) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := a.RunContext(ctx, os.Args)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// RequireArgs 参数不足时打印用法并以 1 退出
func RequireArgs(c *cli.Context, n int) error {
	if c.NArg() < n {
		return Usage(c)
	}
	return nil
}

func Usage(c *cli.Context) error {
	return cli.Exit(fmt.Sprintf("Usage: %s %s", c.App.Name, c.App.ArgsUsage), 1)
}

// ParseIndex 解析非负十进制下标
func ParseIndex(c *cli.Context, s string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok || n.Sign() < 0 {
		return nil, cli.Exit(fmt.Sprintf("invalid index %q\nUsage: %s %s", s, c.App.Name, c.App.ArgsUsage), 1)
	}
	return n, nil
}
