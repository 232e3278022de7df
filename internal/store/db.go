// Package store 基于 GORM + SQLite 保存黑名单缓存和交易提交记录。
package store

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InMemorySQLiteDSN 传给 Open 时打开不落盘的内存库
const InMemorySQLiteDSN = ":memory:"

// DB 封装 gorm 客户端
type DB struct {
	client *gorm.DB
	path   string
}

// Open 打开 path 处的 SQLite 文件，文件和父目录不存在时创建。
// migrate 为 true 时同步 AttackRecord / Submission 表结构。
func Open(path string, migrate bool) (*DB, error) {
	dsn, err := dataSource(path)
	if err != nil {
		return nil, err
	}

	client, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, errors.Wrapf(err, "open sqlite %s", path)
	}
	db := &DB{client: client, path: path}

	sqlDB, err := client.DB()
	if err != nil {
		return nil, errors.Wrap(err, "get sql.DB")
	}
	// 内存库每个连接都是独立的空库，文件库写入也只允许一个连接
	sqlDB.SetMaxOpenConns(1)

	if migrate {
		if err := client.AutoMigrate(&AttackRecord{}, &Submission{}); err != nil {
			_ = db.Close()
			return nil, errors.Wrap(err, "migrate schema")
		}
	}
	return db, nil
}

// OpenInMemoryDB 测试用
func OpenInMemoryDB(migrate bool) (*DB, error) {
	return Open(InMemorySQLiteDSN, migrate)
}

// Path 数据库文件路径，内存库返回 InMemorySQLiteDSN
func (d *DB) Path() string { return d.path }

func (d *DB) Client() *gorm.DB { return d.client }

// Ping 检查连接可用
func (d *DB) Ping(ctx context.Context) error {
	sqlDB, err := d.client.DB()
	if err != nil {
		return errors.Wrap(err, "get sql.DB")
	}
	return errors.Wrap(sqlDB.PingContext(ctx), "ping sqlite")
}

func (d *DB) Close() error {
	sqlDB, err := d.client.DB()
	if err != nil {
		return errors.Wrap(err, "get sql.DB")
	}
	return errors.Wrap(sqlDB.Close(), "close sqlite")
}

// dataSource 文件库开启 WAL 并设置 busy timeout，避免 blacklist-sync 与写命令同时访问时报 database is locked
func dataSource(path string) (string, error) {
	switch {
	case path == InMemorySQLiteDSN:
		return path, nil
	case strings.TrimSpace(path) == "":
		return "", errors.New("database path is empty")
	case strings.ContainsRune(path, '?'):
		return "", errors.Errorf("database path %q must not contain '?'", path)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return "", errors.Wrapf(err, "create database directory %s", dir)
		}
	}

	q := url.Values{}
	q.Set("_journal_mode", "WAL")
	q.Set("_busy_timeout", "5000")
	return path + "?" + q.Encode(), nil
}
