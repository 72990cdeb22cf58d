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

package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aya-assistant/aya-desktop/internal/process"
	"github.com/aya-assistant/aya-desktop/internal/resolver"
)

// stubHandle is a process.Handle that stays alive until killed
type stubHandle struct {
	pid    int
	killed atomic.Bool
}

func (h *stubHandle) PID() int { return h.pid }

func (h *stubHandle) Exited() (bool, process.ExitStatus) {
	if h.killed.Load() {
		return true, process.ExitStatus{Code: -1}
	}
	return false, process.ExitStatus{}
}

func (h *stubHandle) Kill() error {
	h.killed.Store(true)
	return nil
}

// stubSpawner counts spawns and optionally makes workers exit at once
type stubSpawner struct {
	mu          sync.Mutex
	spawns      int
	exitAtOnce  bool
	spawnDelay  time.Duration
	lastHandles []*stubHandle
}

func (s *stubSpawner) Spawn(*resolver.LaunchSpec) (process.Handle, error) {
	if s.spawnDelay > 0 {
		time.Sleep(s.spawnDelay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spawns++
	h := &stubHandle{pid: 500 + s.spawns}
	if s.exitAtOnce {
		h.killed.Store(true)
	}
	s.lastHandles = append(s.lastHandles, h)
	return h, nil
}

func (s *stubSpawner) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spawns
}

func newTestApp(t *testing.T, spawner *stubSpawner, autoStart bool) (*App, *HeadlessWindow, *process.Supervisor) {
	t.Helper()
	sup, err := process.NewSupervisor(process.Options{
		Resolve: func() (*resolver.LaunchSpec, error) {
			return resolver.Resolve(resolver.ModeDebug, resolver.CurrentPlatform(), "")
		},
		Spawner:     spawner,
		GracePeriod: time.Millisecond,
	})
	require.NoError(t, err)

	window := NewHeadlessWindow()
	return New(Options{Bridge: sup, Window: window, AutoStart: autoStart}), window, sup
}

// TestOnStartup_AutoStartsOnce tests the single auto-start attempt
// TestOnStartup_AutoStartsOnce 测试仅进行一次自动启动
func TestOnStartup_AutoStartsOnce(t *testing.T) {
	spawner := &stubSpawner{}
	app, _, _ := newTestApp(t, spawner, true)
	ctx := context.Background()

	app.OnStartup(ctx)
	app.OnStartup(ctx)
	app.Wait()

	assert.Equal(t, 1, spawner.count())
	assert.True(t, app.IsBridgeRunning())
}

// TestOnStartup_ReturnsBeforeStartCompletes tests that startup is not blocked
// TestOnStartup_ReturnsBeforeStartCompletes 测试启动钩子不会被阻塞
func TestOnStartup_ReturnsBeforeStartCompletes(t *testing.T) {
	spawner := &stubSpawner{spawnDelay: 200 * time.Millisecond}
	app, _, _ := newTestApp(t, spawner, true)

	begin := time.Now()
	app.OnStartup(context.Background())
	assert.Less(t, time.Since(begin), 100*time.Millisecond)

	app.Wait()
	assert.True(t, app.IsBridgeRunning())
}

// TestOnStartup_FailureIsNotRetried tests that a failed auto-start leaves the bridge stopped
// TestOnStartup_FailureIsNotRetried 测试自动启动失败后不重试
func TestOnStartup_FailureIsNotRetried(t *testing.T) {
	spawner := &stubSpawner{exitAtOnce: true}
	app, _, _ := newTestApp(t, spawner, true)

	app.OnStartup(context.Background())
	app.Wait()

	assert.Equal(t, 1, spawner.count())
	assert.False(t, app.IsBridgeRunning())
}

// TestOnStartup_Disabled tests that auto-start can be turned off
func TestOnStartup_Disabled(t *testing.T) {
	spawner := &stubSpawner{}
	app, _, _ := newTestApp(t, spawner, false)

	app.OnStartup(context.Background())
	app.Wait()

	assert.Equal(t, 0, spawner.count())
	assert.False(t, app.IsBridgeRunning())
}

// TestBeforeClose_KeepsBridgeRunning tests close interception
// TestBeforeClose_KeepsBridgeRunning 测试关闭拦截后 bridge 保持运行
func TestBeforeClose_KeepsBridgeRunning(t *testing.T) {
	spawner := &stubSpawner{}
	app, window, _ := newTestApp(t, spawner, true)
	ctx := context.Background()

	app.OnStartup(ctx)
	app.Wait()
	require.True(t, app.IsBridgeRunning())

	assert.True(t, app.BeforeClose(ctx))
	assert.False(t, window.Visible())
	assert.Equal(t, 1, window.HideCount())
	assert.True(t, app.IsBridgeRunning())

	require.NoError(t, app.ShowWindow(ctx))
	assert.True(t, window.Visible())
}

// failingWindow cannot be hidden
type failingWindow struct{ HeadlessWindow }

func (w *failingWindow) Hide() error { return errors.New("no display") }

// TestBeforeClose_HideFailure tests that close is still prevented when hiding fails
func TestBeforeClose_HideFailure(t *testing.T) {
	app := New(Options{Bridge: nil, Window: &failingWindow{}})
	assert.True(t, app.BeforeClose(context.Background()))
}

// TestUICommands tests start_bridge, stop_bridge and is_bridge_running
// TestUICommands 测试 UI 命令
func TestUICommands(t *testing.T) {
	spawner := &stubSpawner{}
	app, _, _ := newTestApp(t, spawner, false)
	ctx := context.Background()

	assert.False(t, app.IsBridgeRunning())

	msg, err := app.StartBridge(ctx)
	require.NoError(t, err)
	assert.Equal(t, MsgBridgeStarted, msg)
	assert.True(t, app.IsBridgeRunning())

	_, err = app.StartBridge(ctx)
	require.Error(t, err)
	assert.Equal(t, "bridge is already running", err.Error())

	msg, err = app.StopBridge(ctx)
	require.NoError(t, err)
	assert.Equal(t, MsgBridgeStopped, msg)
	assert.False(t, app.IsBridgeRunning())

	_, err = app.StopBridge(ctx)
	require.Error(t, err)
	assert.Equal(t, "bridge is not running", err.Error())
}

// TestQuit tests that quitting stops the bridge exactly once
// TestQuit 测试退出时停止 bridge 且仅执行一次
func TestQuit(t *testing.T) {
	spawner := &stubSpawner{}
	app, _, sup := newTestApp(t, spawner, true)
	ctx := context.Background()

	app.OnStartup(ctx)
	require.NoError(t, app.Quit(ctx))
	assert.False(t, sup.Status())

	spawner.mu.Lock()
	require.Len(t, spawner.lastHandles, 1)
	assert.True(t, spawner.lastHandles[0].killed.Load())
	spawner.mu.Unlock()

	select {
	case <-app.Done():
	default:
		t.Fatal("Done should be closed after Quit")
	}

	require.NoError(t, app.Quit(ctx))
}

// TestQuit_NotRunning tests quitting with no worker
func TestQuit_NotRunning(t *testing.T) {
	app, _, _ := newTestApp(t, &stubSpawner{}, false)
	assert.NoError(t, app.Quit(context.Background()))
	<-app.Done()
}

// TestQuit_BeforeStartup tests that auto-start is skipped once quit has begun
// TestQuit_BeforeStartup 测试退出开始后跳过自动启动
func TestQuit_BeforeStartup(t *testing.T) {
	spawner := &stubSpawner{}
	app, _, _ := newTestApp(t, spawner, true)
	ctx := context.Background()

	require.NoError(t, app.Quit(ctx))
	app.OnStartup(ctx)
	app.Wait()

	assert.Equal(t, 0, spawner.count())
	assert.False(t, app.IsBridgeRunning())
}

// TestQuit_ConcurrentWithStartup tests that no worker outlives a racing quit
// TestQuit_ConcurrentWithStartup 测试与启动并发的退出不会遗留工作进程
func TestQuit_ConcurrentWithStartup(t *testing.T) {
	for i := 0; i < 50; i++ {
		spawner := &stubSpawner{}
		app, _, sup := newTestApp(t, spawner, true)
		ctx := context.Background()

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			app.OnStartup(ctx)
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, app.Quit(ctx))
		}()
		wg.Wait()
		app.Wait()

		assert.False(t, sup.Status(), "iteration %d", i)
	}
}
