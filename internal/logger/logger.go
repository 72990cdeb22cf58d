/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package logger provides the process-wide structured logger.
// logger 包提供进程级的结构化日志记录器。
//
// Logs are written to the console and, when a file is configured, to a
// lumberjack-rotated file. Context-aware helpers (InfoF, WarnF, ...) pick up
// fields attached with WithFields.
// 日志写入控制台；配置了文件时同时写入 lumberjack 轮转文件。
package logger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the logger.
// Options 配置日志记录器。
type Options struct {
	// Level is one of debug, info, warn, error
	// Level 是 debug、info、warn、error 之一
	Level string

	// File is the log file path; empty disables file output
	// File 是日志文件路径；为空则不写文件
	File string

	// MaxSize is the size in MB before rotation
	// MaxSize 是轮转前的大小（MB）
	MaxSize int

	// MaxBackups is the number of rotated files to keep
	// MaxBackups 是保留的轮转文件数量
	MaxBackups int

	// MaxAge is the number of days to keep rotated files
	// MaxAge 是保留轮转文件的天数
	MaxAge int

	// Console enables stderr output
	// Console 启用 stderr 输出
	Console bool
}

var (
	mu     sync.RWMutex
	global = zap.NewNop()
)

type ctxKey struct{}

// New builds a zap logger from options without installing it globally.
// New 根据选项构建 zap 日志记录器，但不设置为全局实例。
func New(opts Options) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if opts.Level != "" {
		parsed, err := zap.ParseAtomicLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var cores []zapcore.Core
	if opts.Console {
		consoleCfg := encCfg
		consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(consoleCfg),
			zapcore.Lock(os.Stderr),
			level,
		))
	}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encCfg),
			zapcore.AddSync(&lumberjack.Logger{
				Filename:   opts.File,
				MaxSize:    opts.MaxSize,
				MaxBackups: opts.MaxBackups,
				MaxAge:     opts.MaxAge,
				Compress:   true,
			}),
			level,
		))
	}

	if len(cores) == 0 {
		return zap.NewNop(), nil
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}

// Init builds the logger and installs it as the global instance.
// Init 构建日志记录器并设置为全局实例。
func Init(opts Options) (*zap.Logger, error) {
	l, err := New(opts)
	if err != nil {
		return nil, err
	}
	SetLogger(l)
	return l, nil
}

// SetLogger replaces the global logger. A nil logger installs a no-op logger.
// SetLogger 替换全局日志记录器。nil 会设置为空操作记录器。
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	global = l
	mu.Unlock()
}

// L returns the global logger.
// L 返回全局日志记录器。
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// Sync flushes buffered entries of the global logger.
func Sync() {
	_ = L().Sync()
}

// WithFields returns a context carrying extra fields for the *F helpers.
// WithFields 返回携带额外字段的上下文，供 *F 辅助函数使用。
func WithFields(ctx context.Context, fields ...zap.Field) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	existing, _ := ctx.Value(ctxKey{}).([]zap.Field)
	merged := make([]zap.Field, 0, len(existing)+len(fields))
	merged = append(merged, existing...)
	merged = append(merged, fields...)
	return context.WithValue(ctx, ctxKey{}, merged)
}

func fromContext(ctx context.Context) *zap.Logger {
	l := L().WithOptions(zap.AddCallerSkip(1))
	if ctx == nil {
		return l
	}
	if fields, ok := ctx.Value(ctxKey{}).([]zap.Field); ok && len(fields) > 0 {
		return l.With(fields...)
	}
	return l
}

// DebugF logs a formatted debug message.
func DebugF(ctx context.Context, format string, args ...interface{}) {
	fromContext(ctx).Debug(fmt.Sprintf(format, args...))
}

// InfoF logs a formatted info message.
// InfoF 记录格式化的 info 日志。
func InfoF(ctx context.Context, format string, args ...interface{}) {
	fromContext(ctx).Info(fmt.Sprintf(format, args...))
}

// WarnF logs a formatted warning message.
// WarnF 记录格式化的 warn 日志。
func WarnF(ctx context.Context, format string, args ...interface{}) {
	fromContext(ctx).Warn(fmt.Sprintf(format, args...))
}

// ErrorF logs a formatted error message.
// ErrorF 记录格式化的 error 日志。
func ErrorF(ctx context.Context, format string, args ...interface{}) {
	fromContext(ctx).Error(fmt.Sprintf(format, args...))
}
