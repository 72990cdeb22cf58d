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
	"sync"
)

// Window is the presentation surface the host controls.
// Window 是宿主程序控制的展示界面。
type Window interface {
	// Hide removes the window from view without destroying it
	// Hide 隐藏窗口但不销毁
	Hide() error

	// Show brings the window back
	// Show 重新显示窗口
	Show() error

	// Visible reports whether the window is shown
	// Visible 报告窗口是否可见
	Visible() bool
}

// HeadlessWindow is a Window with no GUI toolkit behind it. It only records
// visibility, which is what a host without a display needs.
// HeadlessWindow 是没有 GUI 工具包支撑的 Window，仅记录可见状态。
type HeadlessWindow struct {
	mu      sync.RWMutex
	visible bool
	hides   int
}

// NewHeadlessWindow creates a visible headless window.
// NewHeadlessWindow 创建一个可见的无界面窗口。
func NewHeadlessWindow() *HeadlessWindow {
	return &HeadlessWindow{visible: true}
}

func (w *HeadlessWindow) Hide() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.visible = false
	w.hides++
	return nil
}

func (w *HeadlessWindow) Show() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.visible = true
	return nil
}

func (w *HeadlessWindow) Visible() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.visible
}

// HideCount returns how many times Hide was called.
func (w *HeadlessWindow) HideCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.hides
}
