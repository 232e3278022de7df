// Package logger 统一创建 zerolog 日志器
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New 按级别和格式创建日志器，format 为 "json" 时输出 JSON，否则输出带 RFC3339 时间的控制台格式。
// 无法识别的级别按 info 处理。
func New(level, format string) zerolog.Logger {
	return NewWithWriter(os.Stderr, level, format)
}

// NewWithWriter 与 New 相同，输出到 w
func NewWithWriter(w io.Writer, level, format string) zerolog.Logger {
	var writer = w
	if strings.ToLower(format) != "json" {
		writer = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}
	}

	return zerolog.New(writer).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Logger()
}

// ParseLevel 解析 debug / info / warn / error 等级别名称
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
