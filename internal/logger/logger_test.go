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

package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestNewInvalidLevel tests that an unknown level is rejected
// TestNewInvalidLevel 测试未知日志级别被拒绝
func TestNewInvalidLevel(t *testing.T) {
	_, err := New(Options{Level: "loud"})
	assert.Error(t, err)
}

// TestNewWritesFile tests file output through lumberjack
// TestNewWritesFile 测试通过 lumberjack 写入文件
func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "aya.log")

	l, err := New(Options{Level: "info", File: path, MaxSize: 1, MaxBackups: 1, MaxAge: 1})
	require.NoError(t, err)

	l.Info("hello from test")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello from test")
}

// TestNewWithoutOutputsIsNop tests that no outputs yields a no-op logger
func TestNewWithoutOutputsIsNop(t *testing.T) {
	l, err := New(Options{Level: "debug"})
	require.NoError(t, err)
	assert.NotNil(t, l)
}

// TestContextFields tests that fields attached to the context reach the entry
// TestContextFields 测试上下文中附加的字段出现在日志条目中
func TestContextFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	ctx := WithFields(context.Background(), zap.String("command", "start_bridge"))
	ctx = WithFields(ctx, zap.Int("attempt", 1))

	InfoF(ctx, "bridge %s", "starting")
	WarnF(nil, "no context")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "bridge starting", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "start_bridge", fields["command"])
	assert.EqualValues(t, 1, fields["attempt"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}
