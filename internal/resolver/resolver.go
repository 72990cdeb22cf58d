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

// Package resolver resolves the command line used to launch the bridge worker.
// resolver 包解析用于启动 bridge 工作进程的命令行。
//
// Resolution is a pure function of run mode, platform and the application
// data directory. Nothing is cached; every start attempt resolves again.
// 解析是运行模式、平台和应用数据目录的纯函数，不做缓存。
package resolver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Resolution errors
// 解析错误
var (
	// ErrUnsupportedPlatform indicates the platform is not windows, darwin or linux
	// ErrUnsupportedPlatform 表示平台不是 windows、darwin 或 linux
	ErrUnsupportedPlatform = errors.New("unsupported platform")

	// ErrAppDirUnavailable indicates the application data directory is unknown
	// ErrAppDirUnavailable 表示无法确定应用数据目录
	ErrAppDirUnavailable = errors.New("application data directory unavailable")

	// ErrInvalidRunMode indicates an unknown run mode string
	// ErrInvalidRunMode 表示未知的运行模式字符串
	ErrInvalidRunMode = errors.New("invalid run mode")
)

// RunMode selects between the development interpreter and the bundled worker.
// RunMode 在开发解释器和打包的工作进程之间选择。
type RunMode string

const (
	// ModeDebug runs the worker module through the system Python interpreter
	// ModeDebug 通过系统 Python 解释器运行工作模块
	ModeDebug RunMode = "debug"

	// ModeProduction runs the bundled worker executable
	// ModeProduction 运行打包的工作进程可执行文件
	ModeProduction RunMode = "production"
)

// Platform is an operating system family, using runtime.GOOS names.
// Platform 是操作系统家族，使用 runtime.GOOS 的命名。
type Platform string

const (
	PlatformWindows Platform = "windows"
	PlatformDarwin  Platform = "darwin"
	PlatformLinux   Platform = "linux"
)

const (
	// WorkerModule is the Python module run in debug mode
	// WorkerModule 是调试模式下运行的 Python 模块
	WorkerModule = "aya.tauri_bridge"

	// WorkerBinary is the bundled worker executable name without extension
	// WorkerBinary 是不带扩展名的打包工作进程可执行文件名
	WorkerBinary = "aya_bridge"
)

// LaunchSpec is a resolved, immutable worker command line.
// LaunchSpec 是已解析且不可变的工作进程命令行。
type LaunchSpec struct {
	Program string            `json:"program"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env,omitempty"`
}

// String renders the command line for logs.
func (s *LaunchSpec) String() string {
	if len(s.Args) == 0 {
		return s.Program
	}
	return s.Program + " " + strings.Join(s.Args, " ")
}

// ResolutionError reports why a launch spec could not be produced.
// ResolutionError 说明无法生成启动规格的原因。
type ResolutionError struct {
	Mode     RunMode
	Platform Platform
	Err      error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %s worker on %q: %v", e.Mode, e.Platform, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// ParseRunMode converts a configuration string into a RunMode.
// ParseRunMode 将配置字符串转换为 RunMode。
func ParseRunMode(s string) (RunMode, error) {
	switch RunMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeDebug:
		return ModeDebug, nil
	case ModeProduction, "release":
		return ModeProduction, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRunMode, s)
	}
}

// CurrentPlatform returns the platform this binary runs on.
// CurrentPlatform 返回当前二进制运行的平台。
func CurrentPlatform() Platform {
	return Platform(runtime.GOOS)
}

// Supported reports whether the platform is one of the three recognized families.
func (p Platform) Supported() bool {
	switch p {
	case PlatformWindows, PlatformDarwin, PlatformLinux:
		return true
	}
	return false
}

// DefaultAppDataDir returns the per-user data directory for appID, or an
// empty string when the platform does not expose one.
// DefaultAppDataDir 返回 appID 对应的用户数据目录；平台不提供时返回空字符串。
func DefaultAppDataDir(appID string) string {
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		return ""
	}
	return filepath.Join(base, appID)
}

// Resolve produces the launch spec for the given mode and platform.
// Resolve 根据给定的模式和平台生成启动规格。
//
// Debug mode uses the system interpreter ("python" on windows, "python3"
// elsewhere) with "-m aya.tauri_bridge" and never consults appDataDir.
// Production mode returns <appDataDir>/<resources>/aya_bridge[.exe] with no
// arguments, where <resources> is "Resources" on darwin and "resources" on
// windows and linux.
// 调试模式使用系统解释器；生产模式返回应用数据目录下的打包可执行文件。
func Resolve(mode RunMode, platform Platform, appDataDir string) (*LaunchSpec, error) {
	if !platform.Supported() {
		return nil, &ResolutionError{Mode: mode, Platform: platform, Err: ErrUnsupportedPlatform}
	}

	switch mode {
	case ModeDebug:
		interpreter := "python3"
		if platform == PlatformWindows {
			interpreter = "python"
		}
		return &LaunchSpec{
			Program: interpreter,
			Args:    []string{"-m", WorkerModule},
			Env:     map[string]string{},
		}, nil

	case ModeProduction:
		if appDataDir == "" {
			return nil, &ResolutionError{Mode: mode, Platform: platform, Err: ErrAppDirUnavailable}
		}
		return &LaunchSpec{
			Program: filepath.Join(appDataDir, resourcesSubdir(platform), workerBinaryName(platform)),
			Args:    []string{},
			Env:     map[string]string{},
		}, nil

	default:
		return nil, &ResolutionError{Mode: mode, Platform: platform, Err: fmt.Errorf("%w: %q", ErrInvalidRunMode, mode)}
	}
}

func resourcesSubdir(p Platform) string {
	if p == PlatformDarwin {
		return "Resources"
	}
	return "resources"
}

func workerBinaryName(p Platform) string {
	if p == PlatformWindows {
		return WorkerBinary + ".exe"
	}
	return WorkerBinary
}
