// Package wallet 管理发送方私钥并为交易体签名
package wallet

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"attackreg/internal/submitter"
)

// KeyWallet 内存中的地址 -> 私钥映射
type KeyWallet struct {
	mu      sync.RWMutex
	signers map[common.Address]*KeySigner
}

func NewKeyWallet(ids ...*Identity) *KeyWallet {
	w := &KeyWallet{signers: make(map[common.Address]*KeySigner)}
	for _, id := range ids {
		w.Add(id)
	}
	return w
}

func (w *KeyWallet) Add(id *Identity) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.signers[id.Address] = &KeySigner{id: id}
}

// Signer 实现 submitter.Wallet
func (w *KeyWallet) Signer(addr common.Address) (submitter.Signer, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s, ok := w.signers[addr]
	if !ok {
		return nil, false
	}
	return s, true
}

func (w *KeyWallet) Addresses() []common.Address {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]common.Address, 0, len(w.signers))
	for a := range w.signers {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cmp(out[j]) < 0 })
	return out
}

// KeySigner 用单个私钥签名
type KeySigner struct {
	id *Identity
}

func (s *KeySigner) Address() common.Address { return s.id.Address }

// SignTransaction 签名并返回 RLP/EIP-2718 编码的原始交易
func (s *KeySigner) SignTransaction(_ context.Context, body *submitter.Body) ([]byte, error) {
	if body.From != s.id.Address {
		return nil, fmt.Errorf("body sender %s does not match signer %s", body.From.Hex(), s.id.Address.Hex())
	}
	if body.ChainID == nil {
		return nil, fmt.Errorf("chain id missing from transaction body")
	}
	tx, err := BuildTx(body)
	if err != nil {
		return nil, err
	}
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(body.ChainID), s.id.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("sign tx failed: %w", err)
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode signed tx failed: %w", err)
	}
	return raw, nil
}

// BuildTx 把交易体转换成未签名交易。EVM 交易只能携带一个 clause。
func BuildTx(body *submitter.Body) (*types.Transaction, error) {
	if len(body.Clauses) != 1 {
		return nil, fmt.Errorf("evm transactions carry exactly one clause, got %d", len(body.Clauses))
	}
	c := body.Clauses[0]
	to := c.To
	value := c.Value
	if value == nil {
		value = new(big.Int)
	}

	if body.GasFeeCap != nil {
		tip := body.GasTipCap
		if tip == nil {
			tip = new(big.Int)
		}
		return types.NewTx(&types.DynamicFeeTx{
			ChainID:   body.ChainID,
			Nonce:     body.Nonce,
			To:        &to,
			Value:     value,
			Data:      c.Data,
			Gas:       body.Gas,
			GasTipCap: tip,
			GasFeeCap: body.GasFeeCap,
		}), nil
	}
	if body.GasPrice == nil {
		return nil, fmt.Errorf("transaction body has neither fee cap nor gas price")
	}
	return types.NewTx(&types.LegacyTx{
		Nonce:    body.Nonce,
		To:       &to,
		Value:    value,
		Data:     c.Data,
		Gas:      body.Gas,
		GasPrice: body.GasPrice,
	}), nil
}
