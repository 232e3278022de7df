package store

import (
	"time"

	"gorm.io/gorm"
)

// AttackRecord 合约中一条攻击记录的本地副本
type AttackRecord struct {
	gorm.Model
	Position   uint64 `gorm:"uniqueIndex;not null"` // 合约数组下标
	IP         string `gorm:"index;not null"`
	AttackType string `gorm:"index"`
	Timestamp  int64  // 链上记录的 unix 秒
	SyncedAt   time.Time
}

// Submission 一笔交易提交的最新状态
type Submission struct {
	gorm.Model
	TxID        string `gorm:"index"` // 广播前失败时为空
	Sender      string `gorm:"index"`
	Target      string
	Function    string
	Gas         uint64
	Status      string `gorm:"index;not null"` // "failed", "sent", "confirmed", "reverted", "unknown"
	ErrorMsg    string `gorm:"type:text"`
	BlockNumber uint64
}
