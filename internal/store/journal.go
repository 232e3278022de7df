package store

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"attackreg/internal/submitter"
)

// Journal 把提交过程写入 submissions 表，实现 submitter.Journal
type Journal struct {
	db *DB
}

func NewJournal(db *DB) *Journal {
	return &Journal{db: db}
}

// Record 有交易 ID 时更新同一行，否则新建一行
func (j *Journal) Record(ctx context.Context, e submitter.Entry) error {
	client := j.db.client.WithContext(ctx)

	if e.TxID != "" {
		var existing Submission
		err := client.Where("tx_id = ?", e.TxID).First(&existing).Error
		switch {
		case err == nil:
			updates := map[string]any{
				"status":    e.Status,
				"error_msg": e.Error,
			}
			if e.Block != 0 {
				updates["block_number"] = e.Block
			}
			if err := client.Model(&existing).Updates(updates).Error; err != nil {
				return errors.Wrapf(err, "failed to update submission %s", e.TxID)
			}
			return nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return errors.Wrapf(err, "failed to look up submission %s", e.TxID)
		}
	}

	row := Submission{
		TxID:        e.TxID,
		Sender:      e.From.Hex(),
		Target:      e.Target.Hex(),
		Function:    e.Function,
		Gas:         e.Gas,
		Status:      e.Status,
		ErrorMsg:    e.Error,
		BlockNumber: e.Block,
	}
	if !e.Timestamp.IsZero() {
		row.CreatedAt = e.Timestamp
		row.UpdatedAt = e.Timestamp
	}
	if err := client.Create(&row).Error; err != nil {
		return errors.Wrap(err, "failed to insert submission")
	}
	return nil
}

// Get 按交易 ID 查询
func (j *Journal) Get(ctx context.Context, txID string) (*Submission, error) {
	var s Submission
	if err := j.db.client.WithContext(ctx).Where("tx_id = ?", txID).First(&s).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to get submission %s", txID)
	}
	return &s, nil
}

// UpdateStatus 在重新查询回执后更新状态
func (j *Journal) UpdateStatus(ctx context.Context, txID, status string, block uint64) error {
	res := j.db.client.WithContext(ctx).Model(&Submission{}).Where("tx_id = ?", txID).
		Updates(map[string]any{"status": status, "block_number": block})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "failed to update submission %s", txID)
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(gorm.ErrRecordNotFound, "submission %s", txID)
	}
	return nil
}

// Pending 返回结果未知或仅广播的记录，供 tx-status 批量复查
func (j *Journal) Pending(ctx context.Context) ([]Submission, error) {
	var out []Submission
	err := j.db.client.WithContext(ctx).
		Where("status IN ?", []string{submitter.StatusSent, submitter.StatusUnknown}).
		Order("id asc").Find(&out).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list pending submissions")
	}
	return out, nil
}
