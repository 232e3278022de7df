package submitter

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// CallDescriptor 一次合约调用：目标合约、方法名、按顺序的参数。构造后不再修改。
type CallDescriptor struct {
	Target   common.Address
	Function string
	Args     []any
}

// Clause ABI 编码后的调用
type Clause struct {
	To    common.Address
	Value *big.Int
	Data  []byte
}

// GasEstimate 模拟执行的结果。节点以错误形式报告 revert 时 Reverted 不会被置位，
// 而是由 ChainClient 直接返回 ErrEstimation。
type GasEstimate struct {
	TotalGas     uint64
	Reverted     bool
	RevertReason string
}

// Body 待签名的交易体，nonce / 手续费字段由 ChainClient 填写
type Body struct {
	ChainID *big.Int
	From    common.Address
	Nonce   uint64
	Clauses []Clause
	Gas     uint64

	// GasFeeCap 非 nil 时按 EIP-1559 构造，否则用 GasPrice 构造 legacy 交易
	GasPrice  *big.Int
	GasTipCap *big.Int
	GasFeeCap *big.Int
}

// Receipt 链上回执
type Receipt struct {
	TxID        common.Hash
	Reverted    bool
	BlockNumber uint64
	BlockHash   common.Hash
	GasUsed     uint64
	Logs        []*types.Log
}

func (r *Receipt) Success() bool { return r != nil && !r.Reverted }

// Result 确认之后才会产生
type Result struct {
	TxID    common.Hash
	Gas     uint64
	Receipt *Receipt
}

// Encoder 把调用描述翻译成 Clause
type Encoder interface {
	Encode(desc CallDescriptor) (Clause, error)
}

// ChainClient 网络侧协作者
type ChainClient interface {
	EstimateGas(ctx context.Context, clauses []Clause, caller common.Address) (*GasEstimate, error)
	BuildTransactionBody(ctx context.Context, caller common.Address, clauses []Clause, gas uint64) (*Body, error)
	// SendTransaction 广播已签名的原始交易，返回交易 ID
	SendTransaction(ctx context.Context, raw []byte) (common.Hash, error)
	// TransactionReceipt 交易还未上链时返回 (nil, nil)
	TransactionReceipt(ctx context.Context, txID common.Hash) (*Receipt, error)
}

// Signer 绑定到某个地址的签名器
type Signer interface {
	Address() common.Address
	SignTransaction(ctx context.Context, body *Body) ([]byte, error)
}

// Wallet 按地址查找签名器
type Wallet interface {
	Signer(addr common.Address) (Signer, bool)
}

// 提交记录状态
const (
	StatusFailed    = "failed"
	StatusSent      = "sent"
	StatusConfirmed = "confirmed"
	StatusReverted  = "reverted"
	StatusUnknown   = "unknown"
)

// Entry 一次提交的状态变化
type Entry struct {
	TxID      string // 广播前失败时为空
	From      common.Address
	Target    common.Address
	Function  string
	Gas       uint64
	Status    string
	Error     string
	Block     uint64
	Timestamp time.Time
}

// Journal 记录提交过程，可选
type Journal interface {
	Record(ctx context.Context, e Entry) error
}

type nopJournal struct{}

func (nopJournal) Record(context.Context, Entry) error { return nil }
