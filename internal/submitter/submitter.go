// Package submitter 按顺序驱动一次合约调用：编码 -> 估算 gas -> 构造交易体 -> 签名 -> 广播 -> 等待回执。
package submitter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	txerrors "attackreg/internal/errors"
)

const (
	DefaultPollInterval    = 2 * time.Second
	DefaultMaxPollAttempts = 60
)

type Submitter struct {
	encoder Encoder
	chain   ChainClient
	wallet  Wallet
	journal Journal
	onSent  func(txID common.Hash, gas uint64)
	logger  zerolog.Logger

	pollInterval time.Duration
	maxPolls     int
	retry        txerrors.RetryConfig

	mu      sync.Mutex
	senders map[common.Address]*sync.Mutex
}

type Option func(*Submitter)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Submitter) { s.logger = l.With().Str("component", "submitter").Logger() }
}

// WithPolling 设置回执轮询间隔和最大次数
func WithPolling(interval time.Duration, maxAttempts int) Option {
	return func(s *Submitter) {
		if interval > 0 {
			s.pollInterval = interval
		}
		if maxAttempts > 0 {
			s.maxPolls = maxAttempts
		}
	}
}

func WithRetry(cfg txerrors.RetryConfig) Option {
	return func(s *Submitter) { s.retry = cfg }
}

func WithJournal(j Journal) Option {
	return func(s *Submitter) {
		if j != nil {
			s.journal = j
		}
	}
}

// WithOnSent 广播成功后、等待回执之前回调
func WithOnSent(fn func(txID common.Hash, gas uint64)) Option {
	return func(s *Submitter) { s.onSent = fn }
}

func New(encoder Encoder, chain ChainClient, wallet Wallet, opts ...Option) *Submitter {
	s := &Submitter{
		encoder:      encoder,
		chain:        chain,
		wallet:       wallet,
		journal:      nopJournal{},
		logger:       zerolog.Nop(),
		pollInterval: DefaultPollInterval,
		maxPolls:     DefaultMaxPollAttempts,
		retry:        txerrors.DefaultRetryConfig(),
		senders:      make(map[common.Address]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit 提交一次合约调用并等待确认。
// 任何一步失败都会中止后续步骤；广播之后的超时返回 ErrConfirmationTimeout，错误里带有交易 ID。
func (s *Submitter) Submit(ctx context.Context, desc CallDescriptor, from common.Address) (*Result, error) {
	log := s.logger.With().Str("function", desc.Function).Str("from", from.Hex()).Logger()

	// 1) 编码
	clause, err := s.encoder.Encode(desc)
	if err != nil {
		err = classify("encode", txerrors.CodeEncoding, err)
		s.record(ctx, log, desc, from, Entry{Status: StatusFailed, Error: err.Error()})
		return nil, err
	}
	clauses := []Clause{clause}

	// 2) ~ 5) 同一发送方串行，保证 nonce 序列不交错
	unlock := s.lockSender(from)
	txID, gas, err := s.broadcast(ctx, log, from, clauses)
	unlock()
	if err != nil {
		s.record(ctx, log, desc, from, Entry{Gas: gas, Status: StatusFailed, Error: err.Error()})
		return nil, err
	}
	s.record(ctx, log, desc, from, Entry{TxID: txID.Hex(), Gas: gas, Status: StatusSent})
	if s.onSent != nil {
		s.onSent(txID, gas)
	}

	// 6) 等待回执
	receipt, err := s.confirm(ctx, log, txID)
	if err != nil {
		s.record(ctx, log, desc, from, Entry{TxID: txID.Hex(), Gas: gas, Status: StatusUnknown, Error: err.Error()})
		return nil, err
	}

	status := StatusConfirmed
	if !receipt.Success() {
		status = StatusReverted
		log.Warn().Str("tx_id", txID.Hex()).Uint64("block", receipt.BlockNumber).Msg("transaction reverted on chain")
	} else {
		log.Info().Str("tx_id", txID.Hex()).Uint64("block", receipt.BlockNumber).Uint64("gas_used", receipt.GasUsed).Msg("transaction confirmed")
	}
	s.record(ctx, log, desc, from, Entry{TxID: txID.Hex(), Gas: gas, Status: status, Block: receipt.BlockNumber})

	return &Result{TxID: txID, Gas: gas, Receipt: receipt}, nil
}

func (s *Submitter) broadcast(ctx context.Context, log zerolog.Logger, from common.Address, clauses []Clause) (common.Hash, uint64, error) {
	// 2) 估算 gas；revert 不重试
	var est *GasEstimate
	err := s.withRetry(ctx, log, "estimate", func() error {
		var e error
		est, e = s.chain.EstimateGas(ctx, clauses, from)
		return classify("estimate", txerrors.CodeEstimation, e)
	})
	if err != nil {
		return common.Hash{}, 0, err
	}
	if est == nil {
		return common.Hash{}, 0, txerrors.Estimation("empty estimate", nil)
	}
	if est.Reverted {
		return common.Hash{}, 0, txerrors.Estimation("simulation reverted: "+est.RevertReason, nil)
	}
	gas := est.TotalGas
	log.Info().Uint64("total_gas", gas).Msg("estimated gas")

	// 3) 构造交易体
	var body *Body
	err = s.withRetry(ctx, log, "build", func() error {
		var e error
		body, e = s.chain.BuildTransactionBody(ctx, from, clauses, gas)
		return classify("build", txerrors.CodeNetwork, e)
	})
	if err != nil {
		return common.Hash{}, gas, err
	}
	if body.Gas != gas {
		return common.Hash{}, gas, txerrors.New(txerrors.CodeEncoding, "build",
			fmt.Sprintf("body gas %d does not match estimate %d", body.Gas, gas), nil)
	}

	// 4) 签名
	signer, ok := s.wallet.Signer(from)
	if !ok || signer == nil {
		return common.Hash{}, gas, txerrors.SignerNotFound(from.Hex())
	}
	raw, err := signer.SignTransaction(ctx, body)
	if err != nil {
		return common.Hash{}, gas, classify("sign", txerrors.CodeEncoding, err)
	}

	// 5) 广播，重试时发送同一份签名字节
	var txID common.Hash
	err = s.withRetry(ctx, log, "send", func() error {
		var e error
		txID, e = s.chain.SendTransaction(ctx, raw)
		return classify("send", txerrors.CodeNetwork, e)
	})
	if err != nil {
		return common.Hash{}, gas, err
	}
	log.Info().Str("tx_id", txID.Hex()).Uint64("nonce", body.Nonce).Msg("transaction sent")
	return txID, gas, nil
}

func (s *Submitter) confirm(ctx context.Context, log zerolog.Logger, txID common.Hash) (*Receipt, error) {
	t := time.NewTicker(s.pollInterval)
	defer t.Stop()

	var lastErr error
	for attempt := 1; attempt <= s.maxPolls; attempt++ {
		r, err := s.chain.TransactionReceipt(ctx, txID)
		if err == nil && r != nil {
			return r, nil
		}
		if err != nil {
			lastErr = err
			log.Debug().Err(err).Int("attempt", attempt).Str("tx_id", txID.Hex()).Msg("receipt query failed")
		}
		if attempt == s.maxPolls {
			break
		}
		if ctx.Err() != nil {
			return nil, txerrors.ConfirmationTimeout(txID.Hex(), ctx.Err())
		}
		select {
		case <-ctx.Done():
			return nil, txerrors.ConfirmationTimeout(txID.Hex(), ctx.Err())
		case <-t.C:
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no receipt after %d polls", s.maxPolls)
	}
	log.Warn().Str("tx_id", txID.Hex()).Int("polls", s.maxPolls).Msg("confirmation timed out, outcome unknown")
	return nil, txerrors.ConfirmationTimeout(txID.Hex(), lastErr)
}

// Status 查询一次交易状态，还未上链时返回 (nil, nil)。不会重新提交。
func (s *Submitter) Status(ctx context.Context, txID common.Hash) (*Receipt, error) {
	r, err := s.chain.TransactionReceipt(ctx, txID)
	if err != nil {
		return nil, classify("status", txerrors.CodeNetwork, err)
	}
	return r, nil
}

func (s *Submitter) withRetry(ctx context.Context, log zerolog.Logger, step string, fn func() error) error {
	return txerrors.Retry(ctx, s.retry, fn, func(attempt int, err error) {
		log.Warn().Err(err).Str("step", step).Int("attempt", attempt).Msg("transient failure, retrying")
	})
}

func (s *Submitter) lockSender(addr common.Address) func() {
	s.mu.Lock()
	m, ok := s.senders[addr]
	if !ok {
		m = &sync.Mutex{}
		s.senders[addr] = m
	}
	s.mu.Unlock()

	m.Lock()
	return m.Unlock
}

func (s *Submitter) record(ctx context.Context, log zerolog.Logger, desc CallDescriptor, from common.Address, e Entry) {
	e.From = from
	e.Target = desc.Target
	e.Function = desc.Function
	e.Timestamp = time.Now().UTC()
	if err := s.journal.Record(ctx, e); err != nil {
		log.Warn().Err(err).Str("status", e.Status).Msg("failed to record submission")
	}
}

// classify 已分类的错误原样返回，未分类的按该步骤的默认类别包装
func classify(step string, code txerrors.Code, err error) error {
	if err == nil {
		return nil
	}
	if txerrors.CodeOf(err) != "" {
		return err
	}
	return txerrors.New(code, step, step+" failed", err)
}
