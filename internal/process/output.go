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
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// DefaultLogTailLines is the default number of output lines returned by TailOutput
// DefaultLogTailLines 是 TailOutput 默认返回的输出行数
const DefaultLogTailLines = 100

// OutputOptions configures the rotating file that captures worker output.
// OutputOptions 配置捕获工作进程输出的轮转文件。
type OutputOptions struct {
	File       string
	MaxSize    int // MB
	MaxBackups int
	MaxAge     int // days
}

// NewOutputWriter returns a rotating writer for worker stdout/stderr, or nil
// when no file is configured.
// NewOutputWriter 返回用于工作进程标准输出/错误的轮转写入器；未配置文件时返回 nil。
func NewOutputWriter(opts OutputOptions) (io.WriteCloser, error) {
	if opts.File == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSize,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAge,
	}, nil
}

// maxTailLineSize caps a single output line read by TailOutput
const maxTailLineSize = 4 * 1024 * 1024

// TailOutput returns the last n lines of the captured output file.
// TailOutput 返回捕获输出文件的最后 n 行。
func TailOutput(file string, n int) (string, error) {
	if n <= 0 {
		n = DefaultLogTailLines
	}

	f, err := os.Open(file)
	if err != nil {
		return "", fmt.Errorf("failed to open output file: %w", err)
	}
	defer f.Close()

	lines := make([]string, 0, n)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxTailLineSize)
	for scanner.Scan() {
		if len(lines) == n {
			lines = lines[1:]
		}
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read output file: %w", err)
	}

	return strings.Join(lines, "\n"), nil
}
