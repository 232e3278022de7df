package evm

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// NonceTracker 本地记录每个地址下一次可用的 nonce。
// 节点的 pending nonce 落后于本地已广播的交易时，以本地值为准。
type NonceTracker struct {
	mu   sync.Mutex
	next map[common.Address]uint64
}

func NewNonceTracker() *NonceTracker {
	return &NonceTracker{next: make(map[common.Address]uint64)}
}

// Next 返回 max(pending, 本地记录)
func (t *NonceTracker) Next(addr common.Address, pending uint64) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n, ok := t.next[addr]; ok && n > pending {
		return n
	}
	return pending
}

// Commit 交易广播成功后调用
func (t *NonceTracker) Commit(addr common.Address, nonce uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if nonce+1 > t.next[addr] {
		t.next[addr] = nonce + 1
	}
}

// Reset 丢弃本地记录，下次完全使用节点返回的值
func (t *NonceTracker) Reset(addr common.Address) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.next, addr)
}
