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
)

// Common errors for bridge process management
// bridge 进程管理的常见错误
var (
	// ErrProcessAlreadyRunning indicates a worker is already tracked
	// ErrProcessAlreadyRunning 表示已有工作进程在运行
	ErrProcessAlreadyRunning = errors.New("bridge is already running")

	// ErrResolutionFailed indicates the launch command could not be resolved
	// ErrResolutionFailed 表示无法解析启动命令
	ErrResolutionFailed = errors.New("bridge command resolution failed")

	// ErrStartFailed indicates the OS refused to spawn the worker
	// ErrStartFailed 表示操作系统无法创建工作进程
	ErrStartFailed = errors.New("bridge failed to start")

	// ErrExitedImmediately indicates the worker died within the grace window
	// ErrExitedImmediately 表示工作进程在宽限期内退出
	ErrExitedImmediately = errors.New("bridge exited immediately")

	// ErrProcessNotRunning indicates no worker is tracked
	// ErrProcessNotRunning 表示没有正在运行的工作进程
	ErrProcessNotRunning = errors.New("bridge is not running")

	// ErrStopFailed indicates the kill request failed
	// ErrStopFailed 表示终止请求失败
	ErrStopFailed = errors.New("bridge failed to stop")
)

// StartErrorKind classifies start failures.
// StartErrorKind 对启动失败进行分类。
type StartErrorKind string

const (
	StartAlreadyRunning    StartErrorKind = "already_running"
	StartResolutionFailed  StartErrorKind = "resolution_failed"
	StartSpawnFailed       StartErrorKind = "spawn_failed"
	StartExitedImmediately StartErrorKind = "exited_immediately"
)

// StopErrorKind classifies stop failures.
// StopErrorKind 对停止失败进行分类。
type StopErrorKind string

const (
	StopNotRunning StopErrorKind = "not_running"
	StopKillFailed StopErrorKind = "kill_failed"
)

// ExitStatus describes how a worker terminated.
// ExitStatus 描述工作进程的退出方式。
type ExitStatus struct {
	Code        int    `json:"code"`
	Description string `json:"description"`
}

func (s ExitStatus) String() string {
	if s.Description != "" {
		return s.Description
	}
	return fmt.Sprintf("exit status %d", s.Code)
}

// StartError is returned by Supervisor.Start.
// StartError 由 Supervisor.Start 返回。
type StartError struct {
	Kind StartErrorKind

	// Err is the underlying cause, if any
	// Err 是底层原因（如有）
	Err error

	// Status is set for StartExitedImmediately
	// Status 仅在 StartExitedImmediately 时设置
	Status *ExitStatus
}

func (e *StartError) Error() string {
	switch e.Kind {
	case StartAlreadyRunning:
		return ErrProcessAlreadyRunning.Error()
	case StartExitedImmediately:
		if e.Status != nil {
			return fmt.Sprintf("%s: %s", ErrExitedImmediately, e.Status)
		}
		return ErrExitedImmediately.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.sentinel(), e.Err)
	}
	return e.sentinel().Error()
}

// Unwrap exposes both the kind sentinel and the cause to errors.Is/As.
func (e *StartError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.sentinel()}
	}
	return []error{e.sentinel(), e.Err}
}

func (e *StartError) sentinel() error {
	switch e.Kind {
	case StartAlreadyRunning:
		return ErrProcessAlreadyRunning
	case StartResolutionFailed:
		return ErrResolutionFailed
	case StartExitedImmediately:
		return ErrExitedImmediately
	default:
		return ErrStartFailed
	}
}

// StopError is returned by Supervisor.Stop.
// StopError 由 Supervisor.Stop 返回。
type StopError struct {
	Kind StopErrorKind
	Err  error
}

func (e *StopError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.sentinel(), e.Err)
	}
	return e.sentinel().Error()
}

// Unwrap exposes both the kind sentinel and the cause to errors.Is/As.
func (e *StopError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.sentinel()}
	}
	return []error{e.sentinel(), e.Err}
}

func (e *StopError) sentinel() error {
	if e.Kind == StopNotRunning {
		return ErrProcessNotRunning
	}
	return ErrStopFailed
}
