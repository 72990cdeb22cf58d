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
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter builds the gin engine with every control route.
// NewRouter 构建包含所有控制路由的 gin 引擎。
func NewRouter(handler *Handler, mode string, l *zap.Logger) *gin.Engine {
	// Set run mode / 设置运行模式
	switch mode {
	case gin.DebugMode:
		gin.SetMode(gin.DebugMode)
	case gin.TestMode:
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}
	if l == nil {
		l = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery(), loggerMiddleware(l.Named("api")))

	// API V1
	apiV1Router := r.Group("/api/v1")
	{
		// Health
		apiV1Router.GET("/health", handler.Health)

		// Bridge
		bridgeRouter := apiV1Router.Group("/bridge")
		{
			bridgeRouter.POST("/start", handler.StartBridge)
			bridgeRouter.POST("/stop", handler.StopBridge)
			bridgeRouter.GET("/status", handler.GetStatus)
			bridgeRouter.GET("/events", handler.StreamEvents)
			bridgeRouter.GET("/history", handler.GetHistory)
			bridgeRouter.GET("/output", handler.GetOutput)
		}

		// Window
		windowRouter := apiV1Router.Group("/window")
		{
			windowRouter.POST("/close", handler.CloseWindow)
			windowRouter.POST("/show", handler.ShowWindow)
		}

		// App
		apiV1Router.POST("/app/quit", handler.Quit)
	}

	return r
}
