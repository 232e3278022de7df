package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// ReplaceAttacks 在一个事务中用 records 整体替换本地攻击记录
func (d *DB) ReplaceAttacks(ctx context.Context, records []AttackRecord) error {
	now := time.Now().UTC()
	err := d.client.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(&AttackRecord{}).Error; err != nil {
			return errors.Wrap(err, "failed to clear attack records")
		}
		if len(records) == 0 {
			return nil
		}
		rows := make([]AttackRecord, len(records))
		for i, r := range records {
			rows[i] = AttackRecord{
				Position:   r.Position,
				IP:         r.IP,
				AttackType: r.AttackType,
				Timestamp:  r.Timestamp,
				SyncedAt:   now,
			}
		}
		if err := tx.CreateInBatches(rows, 100).Error; err != nil {
			return errors.Wrap(err, "failed to insert attack records")
		}
		return nil
	})
	return err
}

// ListAttacks 按合约下标顺序返回全部记录
func (d *DB) ListAttacks(ctx context.Context) ([]AttackRecord, error) {
	var out []AttackRecord
	if err := d.client.WithContext(ctx).Order("position asc").Find(&out).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list attack records")
	}
	return out, nil
}

// AttacksByIP 查询某个 IP 的所有记录
func (d *DB) AttacksByIP(ctx context.Context, ip string) ([]AttackRecord, error) {
	var out []AttackRecord
	if err := d.client.WithContext(ctx).Where("ip = ?", ip).Order("position asc").Find(&out).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to query attacks for %s", ip)
	}
	return out, nil
}
