package registry

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// 合约事件名
const (
	EventAttackLogged         = "AttackLogged"
	EventAttackDeleted        = "AttackDeleted"
	EventAttacksByTypeDeleted = "AttacksByTypeDeleted"
	EventAllAttacksDeleted    = "AllAttacksDeleted"
)

// Event 解码后的合约事件，只有与事件相关的字段有值
type Event struct {
	Name        string
	TxID        common.Hash
	BlockNumber uint64

	IP        string
	Type      string
	Timestamp *big.Int
	Index     *big.Int
}

// ParseEvents 解码 contract 发出的日志，其他合约或未知 topic 的日志被跳过
func (e *ABIEncoder) ParseEvents(contract common.Address, logs []*types.Log) ([]Event, error) {
	var events []Event
	for _, l := range logs {
		if l == nil || l.Address != contract || len(l.Topics) == 0 {
			continue
		}
		ev, err := e.abi.EventByID(l.Topics[0])
		if err != nil {
			continue
		}
		fields := make(map[string]any)
		if err := ev.Inputs.UnpackIntoMap(fields, l.Data); err != nil {
			return nil, fmt.Errorf("decode %s log %d failed: %w", ev.Name, l.Index, err)
		}

		out := Event{Name: ev.Name, TxID: l.TxHash, BlockNumber: l.BlockNumber}
		out.IP, _ = fields["ipAddress"].(string)
		out.Type, _ = fields["attackType"].(string)
		out.Timestamp, _ = fields["timestamp"].(*big.Int)
		out.Index, _ = fields["index"].(*big.Int)
		events = append(events, out)
	}
	return events, nil
}
