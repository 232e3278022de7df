// Package app 为各个命令装配配置、日志、链客户端、钱包和存储
package app

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"attackreg/internal/chain/evm"
	"attackreg/internal/config"
	txerrors "attackreg/internal/errors"
	"attackreg/internal/flags"
	"attackreg/internal/logger"
	"attackreg/internal/registry"
	"attackreg/internal/store"
	"attackreg/internal/submitter"
	"attackreg/internal/wallet"
)

// envFlags 环境变量 -> 覆盖它的命令行参数
var envFlags = map[string]string{
	config.EnvNodeURL:               flags.NodeURLFlag.Name,
	config.EnvContractAddress:       flags.ContractFlag.Name,
	config.EnvChainID:               flags.ChainIDFlag.Name,
	config.EnvSenderPrivateKeyFile:  flags.KeyFileFlag.Name,
	config.EnvSenderKeystore:        flags.KeystoreFlag.Name,
	config.EnvSenderKeystorePwdFile: flags.KeystorePasswordFileFlag.Name,
	config.EnvPollInterval:          flags.PollIntervalFlag.Name,
	config.EnvMaxPollAttempts:       flags.MaxPollsFlag.Name,
	config.EnvRetryAttempts:         flags.RetryFlag.Name,
	config.EnvLogLevel:              flags.LogLevelFlag.Name,
	config.EnvLogFormat:             flags.LogFormatFlag.Name,
	config.EnvDBPath:                flags.DBPathFlag.Name,
}

// Env 一个命令运行所需的全部依赖
type Env struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Chain     *evm.Client
	Encoder   *registry.ABIEncoder
	Registry  *registry.Registry
	Submitter *submitter.Submitter
	DB        *store.DB // 未配置 DB_PATH 时为 nil
	Journal   *store.Journal
	Sender    common.Address
}

type Options struct {
	// WithSender 加载发送方凭据，写操作需要
	WithSender bool
	OnSent     func(txID common.Hash, gas uint64)
}

// senderSources 互斥的凭据来源；命令行指定了任意一个时，环境变量里的其余来源被忽略
var senderSources = []string{
	config.EnvSenderPrivateKey,
	config.EnvSenderPrivateKeyFile,
	config.EnvSenderKeystore,
}

// LoadConfig 先加载 .env，再按 命令行参数 > 环境变量 读取配置
func LoadConfig(c *cli.Context) (*config.Config, error) {
	if err := config.LoadDotEnv(c.String(flags.EnvFileFlag.Name)); err != nil {
		return nil, err
	}
	senderFlag := c.IsSet(flags.KeyFileFlag.Name) || c.IsSet(flags.KeystoreFlag.Name)
	return config.FromLookup(func(key string) (string, bool) {
		name, ok := envFlags[key]
		if ok && c.IsSet(name) {
			return fmt.Sprint(c.Value(name)), true
		}
		if senderFlag && slices.Contains(senderSources, key) {
			return "", false
		}
		return os.LookupEnv(key)
	})
}

// LoadIdentity 按配置的来源读取发送方私钥
func LoadIdentity(cred config.Credentials) (*wallet.Identity, error) {
	var (
		id  *wallet.Identity
		err error
	)
	switch {
	case cred.PrivateKey != "":
		id, err = wallet.ParseIdentity(cred.PrivateKey)
	case cred.PrivateKeyFile != "":
		id, err = wallet.ReadIdentityFile(cred.PrivateKeyFile)
	case cred.KeystorePath != "":
		id, err = wallet.LoadKeystoreFile(cred.KeystorePath, cred.KeystorePasswordFile)
	default:
		return nil, txerrors.Config("sender credentials missing", nil)
	}
	if err != nil {
		return nil, txerrors.Config("load sender credentials from "+cred.String(), err)
	}
	return id, nil
}

func Setup(c *cli.Context, opts Options) (*Env, error) {
	cfg, err := LoadConfig(c)
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat).With().Str("cmd", c.App.Name).Logger()

	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}
	chain, err := evm.Dial(ctx, cfg.NodeURL, cfg.ChainID, log)
	if err != nil {
		return nil, err
	}
	env := &Env{Config: cfg, Logger: log, Chain: chain}

	enc, err := registry.NewEncoder()
	if err != nil {
		env.Close()
		return nil, err
	}
	env.Encoder = enc

	if cfg.DBPath != "" {
		db, err := store.Open(cfg.DBPath, true)
		if err != nil {
			env.Close()
			return nil, err
		}
		env.DB = db
		env.Journal = store.NewJournal(db)
	}

	w := wallet.NewKeyWallet()
	if opts.WithSender {
		if err := cfg.RequireSender(); err != nil {
			env.Close()
			return nil, err
		}
		id, err := LoadIdentity(cfg.Sender)
		if err != nil {
			env.Close()
			return nil, err
		}
		w.Add(id)
		env.Sender = id.Address
		log.Info().Str("sender", id.Address.Hex()).Str("credentials", cfg.Sender.String()).Msg("sender loaded")
	}

	retry := txerrors.DefaultRetryConfig()
	retry.MaxAttempts = cfg.RetryAttempts
	subOpts := []submitter.Option{
		submitter.WithLogger(log),
		submitter.WithPolling(cfg.PollInterval, cfg.MaxPollAttempts),
		submitter.WithRetry(retry),
		submitter.WithOnSent(opts.OnSent),
	}
	if env.Journal != nil {
		subOpts = append(subOpts, submitter.WithJournal(env.Journal))
	}
	env.Submitter = submitter.New(enc, chain, w, subOpts...)

	var sender registry.Sender
	if opts.WithSender {
		sender = env.Submitter
	}
	env.Registry = registry.New(cfg.ContractAddress, enc, chain, sender, env.Sender)

	log.Debug().
		Str("node", cfg.NodeURL).
		Str("contract", cfg.ContractAddress.Hex()).
		Str("chain_id", chain.ChainID().String()).
		Msg("environment ready")
	return env, nil
}

func (e *Env) Close() {
	if e.Chain != nil {
		e.Chain.Close()
	}
	if e.DB != nil {
		if err := e.DB.Close(); err != nil {
			e.Logger.Warn().Err(err).Msg("close database failed")
		}
	}
}
