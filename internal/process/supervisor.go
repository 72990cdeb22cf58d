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

// Package process provides lifecycle management for the single bridge worker.
// process 包提供单个 bridge 工作进程的生命周期管理功能。
//
// This package provides:
// 此包提供：
// - Start, Stop and Status for exactly one worker / 仅针对一个工作进程的启动、停止和状态查询
// - A post-spawn grace probe / 启动后的宽限期存活探测
// - Lifecycle notifications through an events.Sink / 通过 events.Sink 发送生命周期通知
package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/aya-assistant/aya-desktop/internal/events"
	"github.com/aya-assistant/aya-desktop/internal/logger"
	"github.com/aya-assistant/aya-desktop/internal/resolver"
)

// DefaultGracePeriod is the default liveness probe delay after spawn
// DefaultGracePeriod 是启动后存活探测的默认等待时间
const DefaultGracePeriod = 500 * time.Millisecond

// failureTailLines is how many output lines are logged when a worker dies in the grace window
const failureTailLines = 20

// LaunchSpecFunc resolves the worker command line for one start attempt.
// LaunchSpecFunc 为一次启动尝试解析工作进程命令行。
type LaunchSpecFunc func() (*resolver.LaunchSpec, error)

// Options configures a Supervisor.
// Options 配置 Supervisor。
type Options struct {
	// Resolve produces the launch spec; called on every Start
	// Resolve 生成启动规格；每次 Start 都会调用
	Resolve LaunchSpecFunc

	// Spawner launches the worker; defaults to an ExecSpawner discarding output
	// Spawner 启动工作进程；默认为丢弃输出的 ExecSpawner
	Spawner Spawner

	// Sink receives Started/Stopped events; optional
	// Sink 接收 Started/Stopped 事件；可选
	Sink events.Sink

	// GracePeriod is the liveness probe delay; zero means DefaultGracePeriod
	// GracePeriod 是存活探测的等待时间；为零时使用 DefaultGracePeriod
	GracePeriod time.Duration

	// CredentialEnv names a variable forwarded to the worker when present
	// CredentialEnv 是存在时转发给工作进程的环境变量名
	CredentialEnv string

	// LookupEnv reads the host environment; defaults to os.LookupEnv
	// LookupEnv 读取宿主环境变量；默认为 os.LookupEnv
	LookupEnv func(key string) (string, bool)

	// OutputFile is tailed into the log when a worker exits immediately
	// OutputFile 在工作进程立即退出时截取尾部写入日志
	OutputFile string
}

// StartOutcome describes a successful start.
// StartOutcome 描述一次成功的启动。
type StartOutcome struct {
	PID       int       `json:"pid"`
	Program   string    `json:"program"`
	StartedAt time.Time `json:"started_at"`
}

// StopOutcome describes a successful stop.
// StopOutcome 描述一次成功的停止。
type StopOutcome struct {
	PID    int           `json:"pid"`
	Uptime time.Duration `json:"uptime"`
}

// Info is a point-in-time snapshot of the supervisor.
// Info 是 Supervisor 的时间点快照。
type Info struct {
	Running   bool          `json:"running"`
	PID       int           `json:"pid,omitempty"`
	Program   string        `json:"program,omitempty"`
	StartedAt time.Time     `json:"started_at,omitempty"`
	Uptime    time.Duration `json:"uptime,omitempty"`
}

// Supervisor owns the single bridge worker.
// Supervisor 独占管理唯一的 bridge 工作进程。
//
// handle and running are always mutated together under mu, so running is
// true exactly when a handle is held. Start and Stop hold the write lock for
// their whole duration, grace probe included.
// handle 与 running 始终在 mu 保护下一起修改，因此 running 为 true 当且仅当持有 handle。
type Supervisor struct {
	mu        sync.RWMutex
	handle    Handle
	running   bool
	program   string
	startedAt time.Time

	resolve       LaunchSpecFunc
	spawner       Spawner
	sink          events.Sink
	gracePeriod   time.Duration
	credentialEnv string
	lookupEnv     func(string) (string, bool)
	outputFile    string
}

// NewSupervisor creates a Supervisor with no worker tracked.
// NewSupervisor 创建一个未跟踪任何工作进程的 Supervisor。
func NewSupervisor(opts Options) (*Supervisor, error) {
	if opts.Resolve == nil {
		return nil, errors.New("process: resolve func is required")
	}
	if opts.GracePeriod < 0 {
		return nil, fmt.Errorf("process: negative grace period %v", opts.GracePeriod)
	}

	s := &Supervisor{
		resolve:       opts.Resolve,
		spawner:       opts.Spawner,
		sink:          opts.Sink,
		gracePeriod:   opts.GracePeriod,
		credentialEnv: opts.CredentialEnv,
		lookupEnv:     opts.LookupEnv,
		outputFile:    opts.OutputFile,
	}
	if s.spawner == nil {
		s.spawner = &ExecSpawner{}
	}
	if s.gracePeriod == 0 {
		s.gracePeriod = DefaultGracePeriod
	}
	if s.lookupEnv == nil {
		s.lookupEnv = os.LookupEnv
	}
	return s, nil
}

// Start launches the worker unless one is already running.
// Start 启动工作进程（若已在运行则失败）。
//
// A worker that exits within the grace period is reported as
// StartExitedImmediately and is never recorded as running.
// 在宽限期内退出的工作进程报告为 StartExitedImmediately，且不会被记录为运行中。
func (s *Supervisor) Start(ctx context.Context) (*StartOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Idempotency guard / 幂等保护
	if s.running {
		return nil, &StartError{Kind: StartAlreadyRunning}
	}

	spec, err := s.resolve()
	if err != nil {
		return nil, &StartError{Kind: StartResolutionFailed, Err: err}
	}
	spec = s.withCredential(spec)

	logger.InfoF(ctx, "[Bridge] Starting worker: %s", spec)

	h, err := s.spawner.Spawn(spec)
	if err != nil {
		return nil, &StartError{Kind: StartSpawnFailed, Err: err}
	}

	// Grace probe: a worker that dies here never becomes "running"
	// 宽限期探测：在此期间退出的工作进程不会被标记为运行中
	time.Sleep(s.gracePeriod)
	if exited, status := h.Exited(); exited {
		s.logOutputTail(ctx)
		return nil, &StartError{Kind: StartExitedImmediately, Status: &status}
	}

	now := time.Now()
	s.handle = h
	s.running = true
	s.program = spec.Program
	s.startedAt = now

	logger.InfoF(ctx, "[Bridge] Worker started (PID: %d)", h.PID())
	s.notify(ctx, events.New(events.Started, h.PID()))

	return &StartOutcome{PID: h.PID(), Program: spec.Program, StartedAt: now}, nil
}

// Stop kills the running worker. If the kill fails the handle is put back
// and the supervisor still reports running.
// Stop 终止运行中的工作进程。若终止失败，handle 会被放回，Supervisor 仍报告运行中。
func (s *Supervisor) Stop(ctx context.Context) (*StopOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil, &StopError{Kind: StopNotRunning}
	}

	h := s.handle
	s.handle = nil

	if err := h.Kill(); err != nil {
		// Roll back / 回滚
		s.handle = h
		logger.WarnF(ctx, "[Bridge] Failed to stop worker (PID: %d): %v", h.PID(), err)
		return nil, &StopError{Kind: StopKillFailed, Err: err}
	}

	outcome := &StopOutcome{PID: h.PID(), Uptime: time.Since(s.startedAt)}
	s.running = false
	s.program = ""
	s.startedAt = time.Time{}

	logger.InfoF(ctx, "[Bridge] Worker stopped (PID: %d, uptime: %s)", outcome.PID, outcome.Uptime.Round(time.Millisecond))
	s.notify(ctx, events.New(events.Stopped, outcome.PID))

	return outcome, nil
}

// Status reports whether the supervisor believes a worker is running.
// Status 报告 Supervisor 是否认为有工作进程在运行。
func (s *Supervisor) Status() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Info returns a snapshot of the tracked worker.
// Info 返回所跟踪工作进程的快照。
func (s *Supervisor) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.running {
		return Info{}
	}
	return Info{
		Running:   true,
		PID:       s.handle.PID(),
		Program:   s.program,
		StartedAt: s.startedAt,
		Uptime:    time.Since(s.startedAt),
	}
}

// withCredential copies spec and forwards the credential variable if set
// withCredential 复制启动规格，并在凭据变量存在时进行转发
func (s *Supervisor) withCredential(spec *resolver.LaunchSpec) *resolver.LaunchSpec {
	out := &resolver.LaunchSpec{
		Program: spec.Program,
		Args:    append([]string(nil), spec.Args...),
		Env:     make(map[string]string, len(spec.Env)+1),
	}
	for k, v := range spec.Env {
		out.Env[k] = v
	}
	if s.credentialEnv != "" {
		if value, ok := s.lookupEnv(s.credentialEnv); ok {
			out.Env[s.credentialEnv] = value
		}
	}
	return out
}

// notify delivers an event; failures and panics are logged and dropped.
// Sinks run under the supervisor lock and must not call back into it.
// notify 投递事件；失败和 panic 会被记录并丢弃。接收端在锁内执行，不得回调 Supervisor。
func (s *Supervisor) notify(ctx context.Context, event events.Event) {
	if s.sink == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.WarnF(ctx, "[Bridge] Event sink panicked on %s: %v", event.Type, r)
		}
	}()
	if err := s.sink.Notify(event); err != nil {
		logger.WarnF(ctx, "[Bridge] Failed to deliver %s event: %v", event.Type, err)
	}
}

func (s *Supervisor) logOutputTail(ctx context.Context) {
	if s.outputFile == "" {
		return
	}
	tail, err := TailOutput(s.outputFile, failureTailLines)
	if err != nil || tail == "" {
		return
	}
	logger.WarnF(ctx, "[Bridge] Worker exited during grace period. Output:\n%s", tail)
}
