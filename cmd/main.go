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

// Package main is the entry point for the Aya desktop host.
// main 包是 Aya 桌面宿主程序的入口点。
//
// The host keeps exactly one bridge worker alive in the background:
// 宿主程序在后台保持唯一一个 bridge 工作进程：
// - Starts the worker once at launch / 启动时启动一次工作进程
// - Hides the window on close instead of exiting / 关闭窗口时隐藏而不是退出
// - Serves start/stop/status commands on a loopback API / 在本地回环 API 上提供启动/停止/状态命令
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/aya-assistant/aya-desktop/internal/api"
	"github.com/aya-assistant/aya-desktop/internal/app"
	"github.com/aya-assistant/aya-desktop/internal/config"
	"github.com/aya-assistant/aya-desktop/internal/events"
	"github.com/aya-assistant/aya-desktop/internal/history"
	"github.com/aya-assistant/aya-desktop/internal/logger"
	"github.com/aya-assistant/aya-desktop/internal/process"
	"github.com/aya-assistant/aya-desktop/internal/resolver"
)

// Version information, set at build time
// 版本信息，在构建时设置
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// shutdownTimeout bounds the graceful shutdown of the host
const shutdownTimeout = 10 * time.Second

// Host integrates the supervisor, lifecycle hooks and control API.
// Host 集成 Supervisor、生命周期钩子和控制 API。
type Host struct {
	// config holds the host configuration
	// config 保存宿主配置
	config *config.Config

	// dataDir is the application data directory
	// dataDir 是应用数据目录
	dataDir string

	// ctx is the main context for the host
	// ctx 是宿主的主上下文
	ctx context.Context

	// cancel cancels the main context
	// cancel 取消主上下文
	cancel context.CancelFunc

	supervisor *process.Supervisor
	app        *app.App
	hub        *events.Hub

	historyDB    *gorm.DB
	historyStore *history.Store

	output io.WriteCloser
	server *api.Server

	running bool
	mu      sync.Mutex
}

// NewHost creates a Host with all components wired but nothing started.
// NewHost 创建已完成组件装配但尚未启动任何组件的 Host。
func NewHost(cfg *config.Config, dataDir string) (*Host, error) {
	mode, err := resolver.ParseRunMode(cfg.App.Mode)
	if err != nil {
		return nil, err
	}

	h := &Host{config: cfg, dataDir: dataDir}
	h.ctx, h.cancel = context.WithCancel(context.Background())

	// Event sinks: hub for the UI, log, and optional sqlite history
	// 事件接收端：UI 使用的 Hub、日志以及可选的 sqlite 历史
	h.hub = events.NewHub(events.DefaultCacheSize)
	sinks := events.Multi{h.hub, events.NewLogSink(logger.L())}

	switch {
	case cfg.History.Enabled && cfg.History.SQLitePath == "":
		// No data dir, so nowhere to keep history; the worker can still run
		// 没有数据目录，无法保存历史；工作进程仍可运行
		logger.WarnF(h.ctx, "[Host] Application data directory unknown, event history disabled")
	case cfg.History.Enabled:
		h.historyDB, err = history.Open(cfg.History.SQLitePath, cfg.Log.Level)
		if err != nil {
			h.cancel()
			return nil, err
		}
		h.historyStore = history.NewStore(h.historyDB, cfg.History.MaxEvents)
		sinks = append(sinks, h.historyStore)
	}

	// Worker output capture / 工作进程输出捕获
	h.output, err = process.NewOutputWriter(process.OutputOptions{
		File:       cfg.Bridge.OutputFile,
		MaxSize:    cfg.Bridge.OutputMaxSize,
		MaxBackups: cfg.Bridge.OutputMaxBackups,
		MaxAge:     cfg.Bridge.OutputMaxAge,
	})
	if err != nil {
		h.closeResources()
		return nil, err
	}
	spawner := &process.ExecSpawner{}
	if h.output != nil {
		spawner.Output = h.output
	}

	h.supervisor, err = process.NewSupervisor(process.Options{
		Resolve: func() (*resolver.LaunchSpec, error) {
			return resolver.Resolve(mode, resolver.CurrentPlatform(), dataDir)
		},
		Spawner:       spawner,
		Sink:          sinks,
		GracePeriod:   cfg.Bridge.GracePeriod,
		CredentialEnv: cfg.Bridge.CredentialEnv,
		OutputFile:    cfg.Bridge.OutputFile,
	})
	if err != nil {
		h.closeResources()
		return nil, err
	}

	h.app = app.New(app.Options{
		Bridge:    h.supervisor,
		Window:    app.NewHeadlessWindow(),
		AutoStart: cfg.Bridge.AutoStart,
	})

	if cfg.API.Enabled {
		handlerCfg := &api.HandlerConfig{
			App:        h.app,
			Status:     h.supervisor,
			Hub:        h.hub,
			OutputFile: cfg.Bridge.OutputFile,
		}
		if h.historyStore != nil {
			handlerCfg.History = h.historyStore
		}
		router := api.NewRouter(api.NewHandler(handlerCfg), cfg.App.Mode, logger.L())
		h.server = api.NewServer(cfg.API.Addr, router)
	}

	return h, nil
}

// Run starts the host and blocks until Shutdown or an explicit quit.
// Run 启动宿主并阻塞，直到 Shutdown 或显式退出。
func (h *Host) Run() error {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return errors.New("host is already running")
	}
	h.running = true
	h.mu.Unlock()

	logger.InfoF(h.ctx, "[Host] Aya desktop %s starting (mode: %s, data dir: %s)", Version, h.config.App.Mode, h.dataDir)

	// Step 1: Control API / 步骤 1：控制 API
	var serverErrs <-chan error
	if h.server != nil {
		if err := h.server.Start(); err != nil {
			return err
		}
		serverErrs = h.server.Errors()
	}

	// Step 2: Auto-start the bridge / 步骤 2：自动启动 bridge
	h.app.OnStartup(h.ctx)

	// Wait for shutdown, quit or a server failure
	// 等待关闭、退出或服务器故障
	select {
	case <-h.ctx.Done():
	case <-h.app.Done():
		logger.InfoF(h.ctx, "[Host] Quit requested")
	case err, ok := <-serverErrs:
		if ok && err != nil {
			return err
		}
	}
	return nil
}

// Shutdown stops the bridge, the API and closes every resource.
// Shutdown 停止 bridge 和 API，并关闭所有资源。
func (h *Host) Shutdown() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		h.cancel()
		h.closeResources()
		return
	}
	h.running = false
	h.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.InfoF(ctx, "[Host] Shutting down")

	if err := h.app.Quit(ctx); err != nil {
		logger.WarnF(ctx, "[Host] Error stopping bridge: %v", err)
	}

	if h.server != nil {
		if err := h.server.Shutdown(ctx); err != nil {
			logger.WarnF(ctx, "[Host] Error stopping control API: %v", err)
		}
	}

	h.cancel()
	h.closeResources()
	logger.InfoF(ctx, "[Host] Shutdown complete")
}

func (h *Host) closeResources() {
	if h.hub != nil {
		h.hub.Close()
	}
	if h.historyStore != nil {
		h.historyStore.Close()
	}
	if h.historyDB != nil {
		if err := history.Close(h.historyDB); err != nil {
			logger.WarnF(h.ctx, "[Host] Error closing history: %v", err)
		}
		h.historyDB = nil
	}
	if h.output != nil {
		_ = h.output.Close()
	}
}

// rootCmd is the root command for the desktop host CLI
// rootCmd 是桌面宿主 CLI 的根命令
var rootCmd = &cobra.Command{
	Use:   "aya-desktop",
	Short: "Aya desktop host - keeps the Aya bridge running in the background",
	Long: `Aya desktop host supervises the Aya bridge worker.
Aya 桌面宿主程序负责管理 Aya bridge 工作进程。

It:
它负责：
- Starts the bridge once at launch / 启动时启动一次 bridge
- Keeps it running when the window is closed / 关闭窗口后保持运行
- Exposes start/stop/status on a loopback API / 在本地回环 API 上提供启动/停止/状态`,
	SilenceUsage: true,
	RunE:         runHost,
}

// versionCmd shows version information
// versionCmd 显示版本信息
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information / 打印版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Aya Desktop\n")
		fmt.Fprintf(out, "  Version:    %s\n", Version)
		fmt.Fprintf(out, "  Git Commit: %s\n", GitCommit)
		fmt.Fprintf(out, "  Build Time: %s\n", BuildTime)
		fmt.Fprintf(out, "  Go Version: %s\n", runtime.Version())
		fmt.Fprintf(out, "  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

// resolveCmd prints the worker command line without starting it
// resolveCmd 打印工作进程命令行但不启动
var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Print the resolved bridge command / 打印解析后的 bridge 命令",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, dataDir, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		mode, err := resolver.ParseRunMode(cfg.App.Mode)
		if err != nil {
			return err
		}
		platform := resolver.Platform(resolvePlatform)
		if platform == "" {
			platform = resolver.CurrentPlatform()
		}

		spec, err := resolver.Resolve(mode, platform, dataDir)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), spec.String())
		return nil
	},
}

// configCmd prints the effective configuration
// configCmd 打印生效的配置
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration / 打印生效的配置",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		data, err := cfg.ToYAML()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

// Command line flags / 命令行标志
var (
	configFile      string
	modeFlag        string
	dataDirFlag     string
	apiAddrFlag     string
	noAutoStartFlag bool
	resolvePlatform string
)

func init() {
	// Add flags to root command
	// 向根命令添加标志
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (default: <user config dir>/aya-desktop/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&modeFlag, "mode", "", "run mode: debug or production")
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "application data directory")
	rootCmd.Flags().StringVar(&apiAddrFlag, "api-addr", "", "loopback control API address")
	rootCmd.Flags().BoolVar(&noAutoStartFlag, "no-auto-start", false, "do not start the bridge at launch")
	resolveCmd.Flags().StringVar(&resolvePlatform, "platform", "", "target platform (windows, darwin, linux)")

	// Add subcommands
	// 添加子命令
	rootCmd.AddCommand(versionCmd, resolveCmd, configCmd)
}

// loadConfig loads, validates and resolves paths of the configuration
// loadConfig 加载并验证配置，同时解析路径
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	cmdArgs := map[string]interface{}{}
	if flagChanged(cmd, "mode") {
		cmdArgs["app.mode"] = modeFlag
	}
	if flagChanged(cmd, "data-dir") {
		cmdArgs["app.data_dir"] = dataDirFlag
	}
	if flagChanged(cmd, "api-addr") {
		cmdArgs["api.addr"] = apiAddrFlag
	}
	if flagChanged(cmd, "no-auto-start") && noAutoStartFlag {
		cmdArgs["bridge.auto_start"] = false
	}

	cfg, err := config.LoadWithPriority(configFile, cmdArgs)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid config: %w", err)
	}

	dataDir := cfg.App.DataDir
	if dataDir == "" {
		dataDir = resolver.DefaultAppDataDir(cfg.App.ID)
	}
	cfg.ResolvePaths(dataDir)
	return cfg, dataDir, nil
}

func flagChanged(cmd *cobra.Command, name string) bool {
	f := cmd.Flags().Lookup(name)
	return f != nil && f.Changed
}

// runHost is the main entry point for the desktop host
// runHost 是桌面宿主程序的主入口点
func runHost(cmd *cobra.Command, args []string) error {
	cfg, dataDir, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if _, err := logger.Init(logger.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Console:    true,
	}); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer logger.Sync()
	logger.L().Info("config loaded", zap.Stringer("config", cfg))

	host, err := NewHost(cfg, dataDir)
	if err != nil {
		return err
	}

	// Setup signal handling for graceful shutdown
	// 设置信号处理以实现优雅关闭
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- host.Run()
	}()

	// Wait for signal, quit or error
	// 等待信号、退出或错误
	select {
	case sig := <-sigChan:
		logger.InfoF(context.Background(), "[Host] Received signal: %v", sig)
		host.Shutdown()
		<-errChan
	case err := <-errChan:
		host.Shutdown()
		if err != nil {
			return err
		}
	}

	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
