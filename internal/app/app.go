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

// Package app wires the bridge supervisor to the desktop application lifecycle.
// app 包将 bridge Supervisor 与桌面应用生命周期连接起来。
//
// The host calls OnStartup once after launch, BeforeClose whenever the user
// closes the main window and Quit on an explicit exit. UI commands map to
// StartBridge, StopBridge and IsBridgeRunning.
// 宿主在启动后调用一次 OnStartup，用户关闭主窗口时调用 BeforeClose，显式退出时调用 Quit。
package app

import (
	"context"
	"errors"
	"sync"

	"github.com/aya-assistant/aya-desktop/internal/logger"
	"github.com/aya-assistant/aya-desktop/internal/process"
)

// UI command results
// UI 命令返回的消息
const (
	MsgBridgeStarted = "Bridge started successfully"
	MsgBridgeStopped = "Bridge stopped successfully"
)

// Bridge is the supervisor surface the application drives.
// Bridge 是应用驱动的 Supervisor 接口。
type Bridge interface {
	Start(ctx context.Context) (*process.StartOutcome, error)
	Stop(ctx context.Context) (*process.StopOutcome, error)
	Status() bool
}

// Options configures an App.
// Options 配置 App。
type Options struct {
	Bridge    Bridge
	Window    Window
	AutoStart bool
}

// App holds the application lifecycle hooks.
// App 持有应用生命周期钩子。
type App struct {
	bridge    Bridge
	window    Window
	autoStart bool

	startupOnce sync.Once
	quitOnce    sync.Once
	done        chan struct{}

	// mu guards quitting and pending so auto-start and Quit cannot interleave
	// mu 保护 quitting 与 pending，使自动启动与 Quit 不会交错
	mu       sync.Mutex
	quitting bool
	pending  chan struct{}
}

// New creates an App. A nil window is replaced by a HeadlessWindow.
// New 创建 App。window 为 nil 时使用 HeadlessWindow。
func New(opts Options) *App {
	window := opts.Window
	if window == nil {
		window = NewHeadlessWindow()
	}
	return &App{
		bridge:    opts.Bridge,
		window:    window,
		autoStart: opts.AutoStart,
		done:      make(chan struct{}),
	}
}

// OnStartup fires one background start attempt. It returns immediately and
// the outcome is only logged; there is no retry. Later calls do nothing.
// OnStartup 发起一次后台启动尝试，立即返回，结果仅记录日志且不重试。后续调用无效果。
func (a *App) OnStartup(ctx context.Context) {
	a.startupOnce.Do(func() {
		if !a.autoStart {
			logger.InfoF(ctx, "[App] Auto-start disabled, bridge stays stopped")
			return
		}

		a.mu.Lock()
		if a.quitting {
			a.mu.Unlock()
			logger.InfoF(ctx, "[App] Quit already requested, skipping auto-start")
			return
		}
		pending := make(chan struct{})
		a.pending = pending
		a.mu.Unlock()

		go func() {
			defer close(pending)

			outcome, err := a.bridge.Start(ctx)
			if err != nil {
				logger.ErrorF(ctx, "[App] Failed to auto-start bridge: %v", err)
				return
			}
			logger.InfoF(ctx, "[App] Bridge auto-started (PID: %d)", outcome.PID)
		}()
	})
}

// Wait blocks until the auto-start attempt, if any, has finished.
// Wait 阻塞直到自动启动尝试（如有）完成。
func (a *App) Wait() {
	a.mu.Lock()
	pending := a.pending
	a.mu.Unlock()

	if pending != nil {
		<-pending
	}
}

// BeforeClose hides the window and returns true to prevent the close.
// The bridge keeps running in the background.
// BeforeClose 隐藏窗口并返回 true 以阻止关闭，bridge 继续在后台运行。
func (a *App) BeforeClose(ctx context.Context) bool {
	if err := a.window.Hide(); err != nil {
		logger.WarnF(ctx, "[App] Failed to hide window: %v", err)
	}
	logger.InfoF(ctx, "[App] Window hidden, bridge keeps running in background")
	return true
}

// ShowWindow brings the hidden window back.
// ShowWindow 重新显示已隐藏的窗口。
func (a *App) ShowWindow(ctx context.Context) error {
	if err := a.window.Show(); err != nil {
		logger.WarnF(ctx, "[App] Failed to show window: %v", err)
		return err
	}
	return nil
}

// Window returns the presentation window.
func (a *App) Window() Window {
	return a.window
}

// StartBridge handles the start_bridge UI command.
// StartBridge 处理 start_bridge UI 命令。
func (a *App) StartBridge(ctx context.Context) (string, error) {
	if _, err := a.bridge.Start(ctx); err != nil {
		return "", err
	}
	return MsgBridgeStarted, nil
}

// StopBridge handles the stop_bridge UI command.
// StopBridge 处理 stop_bridge UI 命令。
func (a *App) StopBridge(ctx context.Context) (string, error) {
	if _, err := a.bridge.Stop(ctx); err != nil {
		return "", err
	}
	return MsgBridgeStopped, nil
}

// IsBridgeRunning handles the is_bridge_running UI command.
// IsBridgeRunning 处理 is_bridge_running UI 命令。
func (a *App) IsBridgeRunning() bool {
	return a.bridge.Status()
}

// Quit stops the bridge if it is running and marks the app as done.
// It waits for a pending auto-start first so no worker outlives the app.
// Quit 在 bridge 运行时将其停止，并将应用标记为结束。会先等待未完成的自动启动。
func (a *App) Quit(ctx context.Context) error {
	var err error
	a.quitOnce.Do(func() {
		defer close(a.done)

		a.mu.Lock()
		a.quitting = true
		a.mu.Unlock()

		a.Wait()
		if !a.bridge.Status() {
			logger.InfoF(ctx, "[App] Quit requested, bridge not running")
			return
		}

		if _, stopErr := a.bridge.Stop(ctx); stopErr != nil && !errors.Is(stopErr, process.ErrProcessNotRunning) {
			logger.ErrorF(ctx, "[App] Failed to stop bridge on quit: %v", stopErr)
			err = stopErr
			return
		}
		logger.InfoF(ctx, "[App] Bridge stopped on quit")
	})
	return err
}

// Done is closed once Quit has run.
// Done 在 Quit 执行后关闭。
func (a *App) Done() <-chan struct{} {
	return a.done
}
