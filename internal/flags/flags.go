package flags

import (
	"time"

	"github.com/urfave/cli/v2"
)

// 命令行参数优先于同名环境变量；私钥本身不提供命令行参数，避免出现在 shell 历史里
var (
	EnvFileFlag = &cli.StringFlag{
		Name:  "env-file",
		Usage: "Path of the .env file to load",
		Value: ".env",
	}

	NodeURLFlag = &cli.StringFlag{
		Name:  "node-url",
		Usage: "JSON-RPC endpoint (overrides NODE_URL)",
	}

	ContractFlag = &cli.StringFlag{
		Name:  "contract",
		Usage: "Attack registry contract address (overrides CONTRACT_ADDRESS)",
	}

	ChainIDFlag = &cli.Uint64Flag{
		Name:  "chain-id",
		Usage: "Chain ID (decimal). If not set, queries RPC.",
	}

	KeyFileFlag = &cli.StringFlag{
		Name:  "key-file",
		Usage: "File holding the sender's hex private key (overrides SENDER_PRIVATE_KEY, SENDER_PRIVATE_KEY_FILE and SENDER_KEYSTORE)",
	}

	KeystoreFlag = &cli.StringFlag{
		Name:  "keystore",
		Usage: "Encrypted keystore JSON of the sender (overrides SENDER_PRIVATE_KEY, SENDER_PRIVATE_KEY_FILE and SENDER_KEYSTORE)",
	}

	KeystorePasswordFileFlag = &cli.StringFlag{
		Name:  "keystore-password-file",
		Usage: "File holding the keystore passphrase (overrides SENDER_KEYSTORE_PASSWORD_FILE)",
	}

	PollIntervalFlag = &cli.DurationFlag{
		Name:  "poll-interval",
		Usage: "Interval between receipt polls (overrides POLL_INTERVAL)",
		Value: 2 * time.Second,
	}

	MaxPollsFlag = &cli.IntFlag{
		Name:  "max-polls",
		Usage: "Receipt polls before reporting an unknown outcome (overrides MAX_POLL_ATTEMPTS)",
		Value: 60,
	}

	RetryFlag = &cli.IntFlag{
		Name:  "retry",
		Usage: "Attempts for transient network failures (overrides RETRY_ATTEMPTS)",
		Value: 3,
	}

	LogLevelFlag = &cli.StringFlag{
		Name:    "log-level",
		Aliases: []string{"l"},
		Usage:   "Set log level (debug, info, warn, error)",
		Value:   "info",
	}

	LogFormatFlag = &cli.StringFlag{
		Name:  "log-format",
		Usage: "Log output format (console, json)",
		Value: "console",
	}

	DBPathFlag = &cli.StringFlag{
		Name:  "db",
		Usage: "SQLite file for the submission journal and blacklist cache (overrides DB_PATH)",
	}

	OnceFlag = &cli.BoolFlag{
		Name:  "once",
		Usage: "Refresh a single time and exit",
	}

	IntervalFlag = &cli.DurationFlag{
		Name:  "interval",
		Usage: "Time between blacklist refreshes",
		Value: 10 * time.Second,
	}

	TypeTrackingFlag = &cli.BoolFlag{
		Name:  "track-type",
		Usage: "Use logAttackWithTypeTracking instead of logAttack",
	}

	PendingFlag = &cli.BoolFlag{
		Name:  "pending",
		Usage: "Re-check every journaled submission whose outcome is still unknown",
	}

	// ReadFlags 只读命令
	ReadFlags = []cli.Flag{
		EnvFileFlag,
		NodeURLFlag,
		ContractFlag,
		ChainIDFlag,
		LogLevelFlag,
		LogFormatFlag,
		DBPathFlag,
	}

	// WriteFlags 需要签名的命令
	WriteFlags = append(append([]cli.Flag{}, ReadFlags...),
		KeyFileFlag,
		KeystoreFlag,
		KeystorePasswordFileFlag,
		PollIntervalFlag,
		MaxPollsFlag,
		RetryFlag,
	)
)
