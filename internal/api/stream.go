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

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aya-assistant/aya-desktop/internal/events"
	"github.com/aya-assistant/aya-desktop/internal/logger"
	"github.com/aya-assistant/aya-desktop/internal/process"
)

// StreamEvents handles GET /api/v1/bridge/events as a server-sent event stream.
// The current status is sent first, then every lifecycle event as it happens.
// StreamEvents 以 SSE 方式处理 GET /api/v1/bridge/events。先发送当前状态，随后推送每个生命周期事件。
func (h *Handler) StreamEvents(c *gin.Context) {
	ctx := c.Request.Context()

	// Subscribe before reading the status so no transition is missed
	// 在读取状态前订阅，避免遗漏状态变化
	ch, cancel := h.hub.Subscribe(events.DefaultSubscriberBuffer)
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	c.SSEvent(events.StatusEventName, h.currentStatus())
	c.Writer.Flush()

	logger.DebugF(ctx, "[API] Event stream opened")
	for {
		select {
		case <-ctx.Done():
			logger.DebugF(ctx, "[API] Event stream closed by client")
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			c.SSEvent(events.StatusEventName, event)
			c.Writer.Flush()
		}
	}
}

func (h *Handler) currentStatus() process.Info {
	if h.status != nil {
		return h.status.Info()
	}
	return process.Info{Running: h.app.IsBridgeRunning()}
}
