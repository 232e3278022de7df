// Package blacklist 维护链上攻击记录的本地快照，供检测端快速判断某个 IP 是否已被登记。
package blacklist

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"attackreg/internal/registry"
	"attackreg/internal/store"
)

const (
	DefaultInterval = 10 * time.Second
	// DefaultMaxAttacks 单次刷新允许的最大记录数，超过视为合约地址或节点返回异常
	DefaultMaxAttacks = 100_000
)

// Reader 读取合约中的攻击记录，由 *registry.Registry 实现
type Reader interface {
	TotalAttacks(ctx context.Context) (*big.Int, error)
	Attack(ctx context.Context, index *big.Int) (registry.Attack, error)
}

// Persister 持久化快照，由 *store.DB 实现
type Persister interface {
	ReplaceAttacks(ctx context.Context, records []store.AttackRecord) error
}

// Entry 快照中的一条记录
type Entry struct {
	Index     uint64
	IP        string
	Type      string
	Timestamp time.Time
}

type Syncer struct {
	reader  Reader
	persist Persister
	logger  zerolog.Logger
	limit   uint64

	mu       sync.RWMutex
	entries  []Entry
	ips      map[string]struct{}
	lastSync time.Time
}

type Option func(*Syncer)

func WithPersister(p Persister) Option {
	return func(s *Syncer) { s.persist = p }
}

// WithMaxAttacks 设置单次刷新允许读取的最大记录数
func WithMaxAttacks(n uint64) Option {
	return func(s *Syncer) {
		if n > 0 {
			s.limit = n
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Syncer) { s.logger = l.With().Str("component", "blacklist").Logger() }
}

func NewSyncer(reader Reader, opts ...Option) *Syncer {
	s := &Syncer{
		reader: reader,
		logger: zerolog.Nop(),
		limit:  DefaultMaxAttacks,
		ips:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Refresh 重新读取全部记录并替换快照，返回快照条数。
// 读取总数失败时保留旧快照；单条记录读取失败只记日志并跳过。
func (s *Syncer) Refresh(ctx context.Context) (int, error) {
	total, err := s.reader.TotalAttacks(ctx)
	if err != nil {
		return 0, fmt.Errorf("read total attacks failed: %w", err)
	}
	if total.Sign() < 0 || !total.IsUint64() || total.Uint64() > s.limit {
		return 0, fmt.Errorf("total attacks %s exceeds limit %d", total, s.limit)
	}
	n := total.Uint64()
	s.logger.Info().Uint64("total", n).Msg("refreshing blacklist")

	var entries []Entry
	for i := uint64(0); i < n; i++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		a, err := s.reader.Attack(ctx, new(big.Int).SetUint64(i))
		if err != nil {
			s.logger.Warn().Err(err).Uint64("index", i).Msg("could not fetch attack, skipping")
			continue
		}
		entries = append(entries, Entry{Index: i, IP: a.IP, Type: a.Type, Timestamp: a.Time()})
	}

	if s.persist != nil {
		records := make([]store.AttackRecord, len(entries))
		for i, e := range entries {
			records[i] = store.AttackRecord{Position: e.Index, IP: e.IP, AttackType: e.Type, Timestamp: e.Timestamp.Unix()}
		}
		if err := s.persist.ReplaceAttacks(ctx, records); err != nil {
			return 0, fmt.Errorf("persist blacklist failed: %w", err)
		}
	}

	ips := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		ips[e.IP] = struct{}{}
	}

	s.mu.Lock()
	s.entries = entries
	s.ips = ips
	s.lastSync = time.Now()
	s.mu.Unlock()

	s.logger.Info().Int("attacks", len(entries)).Msg("blacklist updated")
	return len(entries), nil
}

// Snapshot 返回当前快照的副本
func (s *Syncer) Snapshot() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *Syncer) Contains(ip string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ips[ip]
	return ok
}

// LastSync 上次成功刷新的时间，从未成功时为零值
func (s *Syncer) LastSync() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSync
}

// Run 立即刷新一次，之后每隔 interval 刷新，直到 ctx 结束。刷新失败只记日志。
func (s *Syncer) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		if _, err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error().Err(err).Msg("blacklist refresh failed")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}
