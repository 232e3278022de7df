// Package evm 基于 go-ethereum ethclient 的链客户端：估算 gas、构造交易体、广播、查询回执和只读调用。
package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog"

	txerrors "attackreg/internal/errors"
	"attackreg/internal/submitter"
)

// defaultTipCap 节点不支持 eth_maxPriorityFeePerGas 时使用 1 gwei
var defaultTipCap = big.NewInt(1_000_000_000)

type Client struct {
	eth     *ethclient.Client
	chainID *big.Int
	nonces  *NonceTracker
	logger  zerolog.Logger
}

// Dial 连接 RPC 节点。chainID 为 nil 时通过 eth_chainId 查询。
func Dial(ctx context.Context, rawURL string, chainID *big.Int, logger zerolog.Logger) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rawURL)
	if err != nil {
		return nil, txerrors.Network("dial", "dial rpc failed", err)
	}
	c, err := NewClient(ctx, eth, chainID, logger)
	if err != nil {
		eth.Close()
		return nil, err
	}
	return c, nil
}

func NewClient(ctx context.Context, eth *ethclient.Client, chainID *big.Int, logger zerolog.Logger) (*Client, error) {
	if chainID == nil {
		id, err := eth.ChainID(ctx)
		if err != nil {
			return nil, txerrors.Network("dial", "get chain id failed", err)
		}
		chainID = id
	}
	return &Client{
		eth:     eth,
		chainID: new(big.Int).Set(chainID),
		nonces:  NewNonceTracker(),
		logger:  logger.With().Str("component", "evm").Str("chain_id", chainID.String()).Logger(),
	}, nil
}

func (c *Client) ChainID() *big.Int { return new(big.Int).Set(c.chainID) }

func (c *Client) Close() { c.eth.Close() }

// EstimateGas 通过 eth_estimateGas 模拟执行。只有执行错误（revert、余额不足等）算 ErrEstimation，
// 限流、区块头缺失之类的节点错误按 ErrNetwork 处理，可以重试。
func (c *Client) EstimateGas(ctx context.Context, clauses []submitter.Clause, caller common.Address) (*submitter.GasEstimate, error) {
	clause, err := single(clauses)
	if err != nil {
		return nil, err
	}
	gas, err := c.eth.EstimateGas(ctx, callMsg(caller, clause))
	if err != nil {
		if isExecutionError(err) {
			return nil, txerrors.Estimation("simulation reverted", err)
		}
		return nil, txerrors.Network("estimate", "eth_estimateGas failed", err)
	}
	return &submitter.GasEstimate{TotalGas: gas}, nil
}

// BuildTransactionBody 填写 nonce 和手续费。
// 链上有 base fee 时用 EIP-1559：feeCap = 2*baseFee + tip，否则回退 legacy gasPrice。
func (c *Client) BuildTransactionBody(ctx context.Context, caller common.Address, clauses []submitter.Clause, gas uint64) (*submitter.Body, error) {
	if _, err := single(clauses); err != nil {
		return nil, err
	}

	pending, err := c.eth.PendingNonceAt(ctx, caller)
	if err != nil {
		return nil, txerrors.Network("build", "get nonce failed", err)
	}
	nonce := c.nonces.Next(caller, pending)

	body := &submitter.Body{
		ChainID: c.ChainID(),
		From:    caller,
		Nonce:   nonce,
		Clauses: clauses,
		Gas:     gas,
	}

	head, err := c.eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, txerrors.Network("build", "get latest header failed", err)
	}
	if head.BaseFee != nil {
		tip, err := c.eth.SuggestGasTipCap(ctx)
		if err != nil {
			if !isNodeError(err) {
				return nil, txerrors.Network("build", "suggest tip cap failed", err)
			}
			tip = new(big.Int).Set(defaultTipCap)
		}
		feeCap := new(big.Int).Mul(head.BaseFee, big.NewInt(2))
		feeCap.Add(feeCap, tip)
		body.GasTipCap = tip
		body.GasFeeCap = feeCap
	} else {
		gp, err := c.eth.SuggestGasPrice(ctx)
		if err != nil {
			return nil, txerrors.Network("build", "suggest gas price failed", err)
		}
		body.GasPrice = gp
	}

	c.logger.Debug().
		Str("from", caller.Hex()).
		Uint64("nonce", nonce).
		Uint64("pending_nonce", pending).
		Uint64("gas", gas).
		Bool("eip1559", body.GasFeeCap != nil).
		Msg("built transaction body")
	return body, nil
}

// SendTransaction 广播已签名的原始交易。节点已持有同一交易（"already known"）时视为成功。
func (c *Client) SendTransaction(ctx context.Context, raw []byte) (common.Hash, error) {
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return common.Hash{}, txerrors.New(txerrors.CodeEncoding, "send", "decode signed tx failed", err)
	}
	from, err := types.Sender(types.LatestSignerForChainID(c.chainID), tx)
	if err != nil {
		return common.Hash{}, txerrors.New(txerrors.CodeEncoding, "send", "recover sender failed", err)
	}

	if err := c.eth.SendTransaction(ctx, tx); err != nil {
		switch {
		case isAlreadyKnown(err):
			c.logger.Debug().Str("tx_id", tx.Hash().Hex()).Msg("node already knows transaction")
		case isNodeError(err):
			if isNonceConflict(err) {
				c.nonces.Reset(from)
			}
			return common.Hash{}, txerrors.Rejected("node refused transaction", err)
		default:
			return common.Hash{}, txerrors.Network("send", "eth_sendRawTransaction failed", err)
		}
	}
	c.nonces.Commit(from, tx.Nonce())
	return tx.Hash(), nil
}

// TransactionReceipt 交易未上链时返回 (nil, nil)
func (c *Client) TransactionReceipt(ctx context.Context, txID common.Hash) (*submitter.Receipt, error) {
	r, err := c.eth.TransactionReceipt(ctx, txID)
	if errors.Is(err, ethereum.NotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, txerrors.Network("confirm", "get receipt failed", err)
	}
	out := &submitter.Receipt{
		TxID:      txID,
		Reverted:  r.Status == types.ReceiptStatusFailed,
		BlockHash: r.BlockHash,
		GasUsed:   r.GasUsed,
		Logs:      r.Logs,
	}
	if r.BlockNumber != nil {
		out.BlockNumber = r.BlockNumber.Uint64()
	}
	return out, nil
}

// Call 在最新区块上执行只读调用
func (c *Client) Call(ctx context.Context, clause submitter.Clause) ([]byte, error) {
	out, err := c.eth.CallContract(ctx, callMsg(common.Address{}, clause), nil)
	if err != nil {
		if isExecutionError(err) {
			return nil, txerrors.New(txerrors.CodeEstimation, "call", "eth_call reverted", err)
		}
		return nil, txerrors.Network("call", "eth_call failed", err)
	}
	return out, nil
}

func callMsg(from common.Address, clause submitter.Clause) ethereum.CallMsg {
	to := clause.To
	return ethereum.CallMsg{
		From:  from,
		To:    &to,
		Value: clause.Value,
		Data:  clause.Data,
	}
}

func single(clauses []submitter.Clause) (submitter.Clause, error) {
	if len(clauses) != 1 {
		return submitter.Clause{}, txerrors.Encoding(fmt.Sprintf("evm transactions carry exactly one clause, got %d", len(clauses)), nil)
	}
	return clauses[0], nil
}

// isNodeError 节点收到请求并返回了 JSON-RPC 错误（区别于连接、超时等传输错误）
func isNodeError(err error) bool {
	var rpcErr rpc.Error
	return errors.As(err, &rpcErr)
}

// errCodeExecution geth 对 revert 返回的 JSON-RPC 错误码
const errCodeExecution = 3

var executionErrors = []string{
	"execution reverted",
	"insufficient funds",
	"gas required exceeds allowance",
	"out of gas",
	"invalid opcode",
	"invalid jump",
	"stack underflow",
	"intrinsic gas too low",
}

// isExecutionError 节点确实执行了调用且执行失败，重试结果不会改变
func isExecutionError(err error) bool {
	var rpcErr rpc.Error
	if !errors.As(err, &rpcErr) {
		return false
	}
	if rpcErr.ErrorCode() == errCodeExecution {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range executionErrors {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func isAlreadyKnown(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already known") || strings.Contains(msg, "known transaction")
}

func isNonceConflict(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "nonce too low") ||
		strings.Contains(msg, "replacement transaction underpriced")
}
