// Package config 从 .env 和环境变量读取运行配置。
//
// 发送方凭据只从环境变量、文件或 keystore 读取，不写进代码或配置文件。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	txerrors "attackreg/internal/errors"
)

// 环境变量名
const (
	EnvNodeURL               = "NODE_URL"
	EnvContractAddress       = "CONTRACT_ADDRESS"
	EnvChainID               = "CHAIN_ID"
	EnvSenderPrivateKey      = "SENDER_PRIVATE_KEY"
	EnvSenderPrivateKeyFile  = "SENDER_PRIVATE_KEY_FILE"
	EnvSenderKeystore        = "SENDER_KEYSTORE"
	EnvSenderKeystorePwdFile = "SENDER_KEYSTORE_PASSWORD_FILE"
	EnvPollInterval          = "POLL_INTERVAL"
	EnvMaxPollAttempts       = "MAX_POLL_ATTEMPTS"
	EnvRetryAttempts         = "RETRY_ATTEMPTS"
	EnvLogLevel              = "LOG_LEVEL"
	EnvLogFormat             = "LOG_FORMAT"
	EnvDBPath                = "DB_PATH"
)

const (
	DefaultPollInterval    = 2 * time.Second
	DefaultMaxPollAttempts = 60
	DefaultRetryAttempts   = 3
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "console"
)

type Config struct {
	NodeURL         string
	ContractAddress common.Address
	ChainID         *big.Int // nil 时向节点查询
	Sender          Credentials

	PollInterval    time.Duration
	MaxPollAttempts int
	RetryAttempts   int

	LogLevel  string
	LogFormat string
	DBPath    string // 为空时不落盘
}

// Credentials 发送方凭据来源，三选一
type Credentials struct {
	PrivateKey           string
	PrivateKeyFile       string
	KeystorePath         string
	KeystorePasswordFile string
}

func (c Credentials) Empty() bool {
	return c.PrivateKey == "" && c.PrivateKeyFile == "" && c.KeystorePath == ""
}

// String 不输出任何私钥内容
func (c Credentials) String() string {
	switch {
	case c.PrivateKey != "":
		return "env:" + EnvSenderPrivateKey + "(redacted)"
	case c.PrivateKeyFile != "":
		return "file:" + c.PrivateKeyFile
	case c.KeystorePath != "":
		return "keystore:" + c.KeystorePath
	default:
		return "none"
	}
}

// LookupFunc 与 os.LookupEnv 签名一致
type LookupFunc func(key string) (string, bool)

// LoadDotEnv 加载 .env 文件到进程环境，默认读取当前目录的 .env；文件不存在时忽略。
// 已存在的环境变量不会被覆盖。
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return txerrors.Config("load "+f, err)
		}
	}
	return nil
}

// FromLookup 读取并校验配置
func FromLookup(lookup LookupFunc) (*Config, error) {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	cfg := &Config{
		NodeURL: get(EnvNodeURL),
		Sender: Credentials{
			PrivateKey:           get(EnvSenderPrivateKey),
			PrivateKeyFile:       get(EnvSenderPrivateKeyFile),
			KeystorePath:         get(EnvSenderKeystore),
			KeystorePasswordFile: get(EnvSenderKeystorePwdFile),
		},
		LogLevel:  get(EnvLogLevel),
		LogFormat: get(EnvLogFormat),
		DBPath:    get(EnvDBPath),
	}

	if v := get(EnvContractAddress); v != "" {
		if !common.IsHexAddress(v) {
			return nil, txerrors.Config(fmt.Sprintf("%s is not a hex address: %q", EnvContractAddress, v), nil)
		}
		cfg.ContractAddress = common.HexToAddress(v)
	}
	if v := get(EnvChainID); v != "" {
		id, ok := new(big.Int).SetString(v, 0)
		if !ok || id.Sign() <= 0 {
			return nil, txerrors.Config(fmt.Sprintf("%s must be a positive integer: %q", EnvChainID, v), nil)
		}
		cfg.ChainID = id
	}
	if v := get(EnvPollInterval); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return nil, txerrors.Config(EnvPollInterval+" is invalid", err)
		}
		cfg.PollInterval = d
	}
	var err error
	if cfg.MaxPollAttempts, err = parseInt(get(EnvMaxPollAttempts)); err != nil {
		return nil, txerrors.Config(EnvMaxPollAttempts+" is invalid", err)
	}
	if cfg.RetryAttempts, err = parseInt(get(EnvRetryAttempts)); err != nil {
		return nil, txerrors.Config(EnvRetryAttempts+" is invalid", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 填充默认值并检查必填项
func (c *Config) Validate() error {
	if c.NodeURL == "" {
		return txerrors.Config(EnvNodeURL+" is required", nil)
	}
	u, err := url.Parse(c.NodeURL)
	if err != nil || u.Scheme == "" {
		return txerrors.Config(fmt.Sprintf("%s must be an http(s)/ws(s) url: %q", EnvNodeURL, c.NodeURL), err)
	}
	if c.ContractAddress == (common.Address{}) {
		return txerrors.Config(EnvContractAddress+" is required", nil)
	}

	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.PollInterval < 0 {
		return txerrors.Config(EnvPollInterval+" must be positive", nil)
	}
	if c.MaxPollAttempts == 0 {
		c.MaxPollAttempts = DefaultMaxPollAttempts
	}
	if c.RetryAttempts == 0 {
		c.RetryAttempts = DefaultRetryAttempts
	}
	if c.MaxPollAttempts < 0 || c.RetryAttempts < 0 {
		return txerrors.Config("poll and retry attempts must be positive", nil)
	}

	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		return txerrors.Config("log format must be 'json' or 'console'", nil)
	}

	sources := 0
	for _, v := range []string{c.Sender.PrivateKey, c.Sender.PrivateKeyFile, c.Sender.KeystorePath} {
		if v != "" {
			sources++
		}
	}
	if sources > 1 {
		return txerrors.Config("set only one of "+EnvSenderPrivateKey+", "+EnvSenderPrivateKeyFile+" or "+EnvSenderKeystore, nil)
	}
	if c.Sender.KeystorePath != "" && c.Sender.KeystorePasswordFile == "" {
		return txerrors.Config(EnvSenderKeystorePwdFile+" is required with "+EnvSenderKeystore, nil)
	}
	return nil
}

// RequireSender 写操作需要发送方凭据
func (c *Config) RequireSender() error {
	if c.Sender.Empty() {
		return txerrors.Config("sender credentials missing: set "+EnvSenderPrivateKey+", "+EnvSenderPrivateKeyFile+" or "+EnvSenderKeystore, nil)
	}
	return nil
}

// parseDuration 接受 "2s" 形式，也接受纯数字秒数
func parseDuration(v string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(v)
}

func parseInt(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
