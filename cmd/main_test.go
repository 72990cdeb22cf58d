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

package main

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aya-assistant/aya-desktop/internal/config"
	"github.com/aya-assistant/aya-desktop/internal/process"
	"github.com/aya-assistant/aya-desktop/internal/resolver"
)

// newTestConfig returns a config rooted in a temporary data directory
// newTestConfig 返回以临时数据目录为根的配置
func newTestConfig(t *testing.T) (*config.Config, string) {
	t.Helper()
	dataDir := t.TempDir()

	cfg := &config.Config{
		App: config.AppConfig{
			ID:   config.DefaultAppID,
			Mode: "production",
		},
		Bridge: config.BridgeConfig{
			AutoStart:     false,
			GracePeriod:   10 * time.Millisecond,
			CredentialEnv: config.DefaultCredentialEnv,
		},
		Log: config.LogConfig{
			Level: "info",
		},
		API: config.APIConfig{
			Enabled: true,
			Addr:    "127.0.0.1:0",
		},
		History: config.HistoryConfig{
			Enabled:   true,
			MaxEvents: 10,
		},
	}
	cfg.ResolvePaths(dataDir)
	return cfg, dataDir
}

// TestNewHost tests Host creation
// TestNewHost 测试 Host 创建
func TestNewHost(t *testing.T) {
	cfg, dataDir := newTestConfig(t)

	host, err := NewHost(cfg, dataDir)
	require.NoError(t, err)
	require.NotNil(t, host)
	defer host.Shutdown()

	assert.Equal(t, cfg, host.config)
	assert.NotNil(t, host.ctx)
	assert.NotNil(t, host.cancel)
	assert.NotNil(t, host.server)
	assert.NotNil(t, host.historyStore)
	assert.FileExists(t, cfg.History.SQLitePath)
	assert.False(t, host.supervisor.Status())
}

// TestNewHost_UnknownDataDir tests that a missing data dir only disables history
// TestNewHost_UnknownDataDir 测试数据目录未知时仅禁用历史记录
func TestNewHost_UnknownDataDir(t *testing.T) {
	for _, mode := range []string{"debug", "production"} {
		t.Run(mode, func(t *testing.T) {
			cfg, _ := newTestConfig(t)
			cfg.App.Mode = mode
			cfg.Bridge.OutputFile = ""
			cfg.History.SQLitePath = ""
			cfg.ResolvePaths("")

			host, err := NewHost(cfg, "")
			require.NoError(t, err)
			defer host.Shutdown()

			assert.Nil(t, host.historyStore)
			assert.NotNil(t, host.supervisor)
			assert.False(t, host.supervisor.Status())
		})
	}
}

// TestNewHost_UnknownDataDirProductionStart tests that production start reports
// a resolution failure instead of the host failing to boot
// TestNewHost_UnknownDataDirProductionStart 测试生产模式启动返回解析失败而非宿主无法启动
func TestNewHost_UnknownDataDirProductionStart(t *testing.T) {
	cfg, _ := newTestConfig(t)
	cfg.Bridge.OutputFile = ""
	cfg.History.SQLitePath = ""

	host, err := NewHost(cfg, "")
	require.NoError(t, err)
	defer host.Shutdown()

	_, err = host.supervisor.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, process.ErrResolutionFailed)
	assert.ErrorIs(t, err, resolver.ErrAppDirUnavailable)
	assert.False(t, host.supervisor.Status())
}

// TestNewHost_InvalidMode tests that an unknown run mode is rejected
func TestNewHost_InvalidMode(t *testing.T) {
	cfg, dataDir := newTestConfig(t)
	cfg.App.Mode = "staging"

	_, err := NewHost(cfg, dataDir)
	assert.Error(t, err)
}

// TestHostRunAndShutdown tests Host run and shutdown
// TestHostRunAndShutdown 测试 Host 运行与关闭
func TestHostRunAndShutdown(t *testing.T) {
	cfg, dataDir := newTestConfig(t)
	host, err := NewHost(cfg, dataDir)
	require.NoError(t, err)

	// Start host in goroutine / 在 goroutine 中启动 Host
	done := make(chan error, 1)
	go func() {
		done <- host.Run()
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + host.server.Addr() + "/api/v1/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	// The production worker is not installed, so start fails cleanly
	// 生产模式的工作进程未安装，因此启动会干净地失败
	resp, err := http.Post("http://"+host.server.Addr()+"/api/v1/bridge/start", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.False(t, host.supervisor.Status())

	host.Shutdown()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Host did not shutdown in time")
	}
}

// TestHostQuitEndsRun tests that an explicit quit ends Run
// TestHostQuitEndsRun 测试显式退出会结束 Run
func TestHostQuitEndsRun(t *testing.T) {
	cfg, dataDir := newTestConfig(t)
	cfg.API.Enabled = false
	cfg.History.Enabled = false

	host, err := NewHost(cfg, dataDir)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- host.Run()
	}()

	require.NoError(t, host.app.Quit(host.ctx))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after quit")
	}
	host.Shutdown()
}

// TestHostAutoStartDebugMode tests that a failed auto-start leaves the bridge stopped
func TestHostAutoStartDebugMode(t *testing.T) {
	cfg, dataDir := newTestConfig(t)
	cfg.App.Mode = "debug"
	cfg.Bridge.AutoStart = true
	cfg.API.Enabled = false

	// An empty PATH makes the interpreter unavailable
	// 空 PATH 使解释器不可用
	t.Setenv("PATH", "")

	host, err := NewHost(cfg, dataDir)
	require.NoError(t, err)
	defer host.Shutdown()

	host.app.OnStartup(host.ctx)
	host.app.Wait()

	assert.False(t, host.supervisor.Status())
	assert.Empty(t, host.hub.Recent(0))
}

// resetFlags restores every flag of cmd and its children to its default
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// executeCommand runs the root command with args and returns its output
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	resetFlags(rootCmd)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

// TestVersionCommand tests the version subcommand
func TestVersionCommand(t *testing.T) {
	out, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Aya Desktop")
	assert.Contains(t, out, Version)
}

// TestResolveCommand tests the resolve subcommand
// TestResolveCommand 测试 resolve 子命令
func TestResolveCommand(t *testing.T) {
	t.Setenv("AYA_CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	dataDir := t.TempDir()

	out, err := executeCommand(t, "resolve", "--mode", "production", "--data-dir", dataDir, "--platform", "darwin")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(dataDir, "Resources", "aya_bridge"))

	out, err = executeCommand(t, "resolve", "--mode", "debug", "--platform", "windows")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "python"))
	assert.Contains(t, out, "aya.tauri_bridge")

	_, err = executeCommand(t, "resolve", "--mode", "debug", "--platform", "plan9")
	assert.Error(t, err)
}

// TestConfigCommand tests the config subcommand
// TestConfigCommand 测试 config 子命令
func TestConfigCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("app:\n  mode: debug\nbridge:\n  auto_start: false\n"), 0644))

	out, err := executeCommand(t, "config", "--config", path, "--data-dir", dir)
	require.NoError(t, err)

	cfg, err := config.LoadFromYAML([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.App.Mode)
	assert.False(t, cfg.Bridge.AutoStart)
	assert.Equal(t, filepath.Join(dir, "history.db"), cfg.History.SQLitePath)
}
