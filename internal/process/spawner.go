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

package process

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"sync"
	"time"

	"github.com/aya-assistant/aya-desktop/internal/resolver"
)

// killReapTimeout bounds how long Kill waits for the OS to reap the child
// killReapTimeout 限制 Kill 等待操作系统回收子进程的时间
const killReapTimeout = 2 * time.Second

// outputDrainTimeout bounds how long reaping waits for buffered output to be copied
// outputDrainTimeout 限制回收进程时等待输出拷贝完成的时间
const outputDrainTimeout = 50 * time.Millisecond

// Handle is an exclusively owned running child process.
// Handle 是独占持有的运行中子进程。
type Handle interface {
	// PID returns the OS process ID
	// PID 返回操作系统进程 ID
	PID() int

	// Exited reports, without blocking, whether the process has terminated
	// Exited 以非阻塞方式报告进程是否已终止
	Exited() (bool, ExitStatus)

	// Kill forcefully terminates the process
	// Kill 强制终止进程
	Kill() error
}

// Spawner launches a worker from a resolved launch spec.
// Spawner 根据已解析的启动规格启动工作进程。
type Spawner interface {
	Spawn(spec *resolver.LaunchSpec) (Handle, error)
}

// ExecSpawner spawns workers with os/exec.
// ExecSpawner 使用 os/exec 启动工作进程。
type ExecSpawner struct {
	// Output receives stdout and stderr; nil discards them
	// Output 接收标准输出和标准错误；为 nil 时丢弃
	Output io.Writer

	// Dir is the working directory; empty inherits the host's
	// Dir 是工作目录；为空时继承宿主进程的目录
	Dir string
}

// Spawn starts the process and begins reaping it in the background.
// Spawn 启动进程并在后台等待其退出。
func (s *ExecSpawner) Spawn(spec *resolver.LaunchSpec) (Handle, error) {
	if spec == nil || spec.Program == "" {
		return nil, errors.New("empty launch spec")
	}

	cmd := buildCommand(spec)
	cmd.Dir = s.Dir

	h := &execHandle{cmd: cmd, done: make(chan struct{})}

	// A non-file writer gets our own pipe so that cmd.Wait only waits for the
	// process. Descendants holding the write end must not delay reaping.
	// 非文件写入器使用自建管道，使 cmd.Wait 只等待进程本身，不受持有写端的后代进程影响。
	var pipeWriter *os.File
	switch out := s.Output.(type) {
	case nil:
	case *os.File:
		cmd.Stdout = out
		cmd.Stderr = out
	default:
		r, w, err := os.Pipe()
		if err != nil {
			return nil, fmt.Errorf("create output pipe: %w", err)
		}
		cmd.Stdout = w
		cmd.Stderr = w
		pipeWriter = w
		h.copied = make(chan struct{})
		go func() {
			defer close(h.copied)
			defer r.Close()
			_, _ = io.Copy(out, r)
		}()
	}

	err := cmd.Start()
	if pipeWriter != nil {
		// The child holds its own copy / 子进程持有自己的写端副本
		_ = pipeWriter.Close()
	}
	if err != nil {
		return nil, err
	}

	go h.wait()
	return h, nil
}

// buildCommand builds the worker command with the host environment plus overrides
// buildCommand 构建工作进程命令，使用宿主环境变量并附加覆盖项
func buildCommand(spec *resolver.LaunchSpec) *exec.Cmd {
	// The worker outlives any request context, so no CommandContext here.
	// 工作进程的生命周期长于任何请求上下文，因此不使用 CommandContext。
	cmd := exec.Command(spec.Program, spec.Args...)
	setProcAttr(cmd)

	cmd.Env = os.Environ()

	// Sorted for a deterministic environment / 排序以保证环境变量顺序确定
	keys := make([]string, 0, len(spec.Env))
	for k := range spec.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, spec.Env[k]))
	}

	return cmd
}

// execHandle wraps a started exec.Cmd
// execHandle 封装已启动的 exec.Cmd
type execHandle struct {
	cmd  *exec.Cmd
	done chan struct{}

	// copied closes once the output pipe hits EOF; nil without a pipe
	// copied 在输出管道读到 EOF 时关闭；无管道时为 nil
	copied chan struct{}

	mu     sync.Mutex
	status ExitStatus
}

func (h *execHandle) wait() {
	err := h.cmd.Wait()

	// Give trailing output a moment to land without waiting on descendants
	// 短暂等待尾部输出写入，但不等待后代进程
	if h.copied != nil {
		select {
		case <-h.copied:
		case <-time.After(outputDrainTimeout):
		}
	}

	status := ExitStatus{Code: -1}
	if ps := h.cmd.ProcessState; ps != nil {
		status.Code = ps.ExitCode()
		status.Description = ps.String()
	} else if err != nil {
		status.Description = err.Error()
	}

	h.mu.Lock()
	h.status = status
	h.mu.Unlock()
	close(h.done)
}

func (h *execHandle) PID() int {
	if h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

func (h *execHandle) Exited() (bool, ExitStatus) {
	select {
	case <-h.done:
		h.mu.Lock()
		defer h.mu.Unlock()
		return true, h.status
	default:
		return false, ExitStatus{}
	}
}

// Kill sends a forceful kill. A process that already exited and was reaped
// reports os.ErrProcessDone.
// Kill 发送强制终止信号。已退出并被回收的进程返回 os.ErrProcessDone。
func (h *execHandle) Kill() error {
	if err := h.cmd.Process.Kill(); err != nil {
		return err
	}

	select {
	case <-h.done:
	case <-time.After(killReapTimeout):
	}
	return nil
}
