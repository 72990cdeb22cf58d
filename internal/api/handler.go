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

// Package api provides the loopback HTTP control API of the desktop host.
// api 包提供桌面宿主程序的本地回环 HTTP 控制 API。
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/aya-assistant/aya-desktop/internal/app"
	"github.com/aya-assistant/aya-desktop/internal/events"
	"github.com/aya-assistant/aya-desktop/internal/logger"
	"github.com/aya-assistant/aya-desktop/internal/process"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// StatusSource reports the supervisor snapshot.
// StatusSource 提供 Supervisor 快照。
type StatusSource interface {
	Info() process.Info
}

// HistoryReader returns persisted events, newest first.
// HistoryReader 按从新到旧返回已持久化的事件。
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]events.Event, error)
}

// Handler provides HTTP handlers for bridge control.
// Handler 提供 bridge 控制的 HTTP 处理器。
type Handler struct {
	app        *app.App
	status     StatusSource
	hub        *events.Hub
	history    HistoryReader
	outputFile string
}

// HandlerConfig holds the dependencies of a Handler.
// HandlerConfig 保存 Handler 的依赖。
type HandlerConfig struct {
	// App receives the UI commands
	// App 接收 UI 命令
	App *app.App

	// Status provides the status snapshot
	// Status 提供状态快照
	Status StatusSource

	// Hub feeds the event stream; required for /bridge/events
	// Hub 为事件流提供数据；/bridge/events 需要
	Hub *events.Hub

	// History is optional; without it /bridge/history serves the hub cache
	// History 可选；未配置时 /bridge/history 使用 Hub 缓存
	History HistoryReader

	// OutputFile is the captured worker output; optional
	// OutputFile 是捕获的工作进程输出文件；可选
	OutputFile string
}

// NewHandler creates a new Handler instance.
// NewHandler 创建一个新的 Handler 实例。
func NewHandler(cfg *HandlerConfig) *Handler {
	if cfg == nil {
		cfg = &HandlerConfig{}
	}
	hub := cfg.Hub
	if hub == nil {
		hub = events.NewHub(events.DefaultCacheSize)
	}
	return &Handler{
		app:        cfg.App,
		status:     cfg.Status,
		hub:        hub,
		history:    cfg.History,
		outputFile: cfg.OutputFile,
	}
}

// ==================== Response Types 响应类型 ====================

// Response is the standard response format.
// Response 标准响应格式。
type Response struct {
	ErrorMsg string      `json:"error_msg"`
	Data     interface{} `json:"data"`
}

// CommandResult is returned by start and stop.
// CommandResult 由启动和停止命令返回。
type CommandResult struct {
	Message string `json:"message"`
	Running bool   `json:"running"`
}

// HistoryResult lists lifecycle events.
// HistoryResult 列出生命周期事件。
type HistoryResult struct {
	Source string         `json:"source"`
	Events []events.Event `json:"events"`
}

// statusCode maps supervisor errors to HTTP status codes
// statusCode 将 Supervisor 错误映射为 HTTP 状态码
func statusCode(err error) int {
	switch {
	case errors.Is(err, process.ErrProcessAlreadyRunning), errors.Is(err, process.ErrProcessNotRunning):
		return http.StatusConflict
	case errors.Is(err, process.ErrResolutionFailed):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// ==================== Bridge Handlers Bridge 处理器 ====================

// Health handles GET /api/v1/health.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, Response{Data: gin.H{"status": "ok"}})
}

// StartBridge handles POST /api/v1/bridge/start.
// StartBridge 处理 POST /api/v1/bridge/start。
func (h *Handler) StartBridge(c *gin.Context) {
	ctx := c.Request.Context()
	msg, err := h.app.StartBridge(ctx)
	if err != nil {
		logger.WarnF(ctx, "[API] start_bridge failed: %v", err)
		c.JSON(statusCode(err), Response{ErrorMsg: err.Error()})
		return
	}
	c.JSON(http.StatusOK, Response{Data: CommandResult{Message: msg, Running: true}})
}

// StopBridge handles POST /api/v1/bridge/stop.
// StopBridge 处理 POST /api/v1/bridge/stop。
func (h *Handler) StopBridge(c *gin.Context) {
	ctx := c.Request.Context()
	msg, err := h.app.StopBridge(ctx)
	if err != nil {
		logger.WarnF(ctx, "[API] stop_bridge failed: %v", err)
		c.JSON(statusCode(err), Response{ErrorMsg: err.Error()})
		return
	}
	c.JSON(http.StatusOK, Response{Data: CommandResult{Message: msg, Running: false}})
}

// GetStatus handles GET /api/v1/bridge/status.
// GetStatus 处理 GET /api/v1/bridge/status。
func (h *Handler) GetStatus(c *gin.Context) {
	if h.status != nil {
		c.JSON(http.StatusOK, Response{Data: h.status.Info()})
		return
	}
	c.JSON(http.StatusOK, Response{Data: process.Info{Running: h.app.IsBridgeRunning()}})
}

// GetHistory handles GET /api/v1/bridge/history?limit=N.
// GetHistory 处理 GET /api/v1/bridge/history?limit=N。
func (h *Handler) GetHistory(c *gin.Context) {
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, Response{ErrorMsg: "invalid limit"})
			return
		}
		limit = n
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	if h.history != nil {
		list, err := h.history.Recent(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, Response{ErrorMsg: err.Error()})
			return
		}
		c.JSON(http.StatusOK, Response{Data: HistoryResult{Source: "sqlite", Events: list}})
		return
	}

	// Hub keeps oldest first / Hub 按从旧到新保存
	cached := h.hub.Recent(limit)
	list := make([]events.Event, 0, len(cached))
	for i := len(cached) - 1; i >= 0; i-- {
		list = append(list, cached[i])
	}
	c.JSON(http.StatusOK, Response{Data: HistoryResult{Source: "memory", Events: list}})
}

// GetOutput handles GET /api/v1/bridge/output?lines=N.
// GetOutput 处理 GET /api/v1/bridge/output?lines=N。
func (h *Handler) GetOutput(c *gin.Context) {
	if h.outputFile == "" {
		c.JSON(http.StatusNotFound, Response{ErrorMsg: "bridge output capture is disabled"})
		return
	}

	lines := process.DefaultLogTailLines
	if raw := c.Query("lines"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, Response{ErrorMsg: "invalid lines"})
			return
		}
		lines = n
	}

	tail, err := process.TailOutput(h.outputFile, lines)
	if err != nil {
		c.JSON(http.StatusNotFound, Response{ErrorMsg: err.Error()})
		return
	}
	c.String(http.StatusOK, tail)
}

// ==================== Window Handlers 窗口处理器 ====================

// CloseWindow handles POST /api/v1/window/close like a user closing the window.
// CloseWindow 处理 POST /api/v1/window/close，等同于用户关闭窗口。
func (h *Handler) CloseWindow(c *gin.Context) {
	prevented := h.app.BeforeClose(c.Request.Context())
	c.JSON(http.StatusOK, Response{Data: gin.H{"prevented": prevented}})
}

// ShowWindow handles POST /api/v1/window/show.
func (h *Handler) ShowWindow(c *gin.Context) {
	if err := h.app.ShowWindow(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, Response{ErrorMsg: err.Error()})
		return
	}
	c.JSON(http.StatusOK, Response{Data: gin.H{"visible": true}})
}

// Quit handles POST /api/v1/app/quit.
// Quit 处理 POST /api/v1/app/quit。
func (h *Handler) Quit(c *gin.Context) {
	if err := h.app.Quit(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, Response{ErrorMsg: err.Error()})
		return
	}
	c.JSON(http.StatusOK, Response{Data: gin.H{"message": "quitting"}})
}
