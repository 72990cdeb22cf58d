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
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/aya-assistant/aya-desktop/internal/logger"
)

// Server runs the control API on a loopback listener.
// Server 在本地回环监听器上运行控制 API。
type Server struct {
	addr string
	srv  *http.Server

	baseCtx    context.Context
	cancelBase context.CancelFunc

	mu       sync.Mutex
	listener net.Listener
	serveErr chan error
}

// NewServer creates a Server; call Start to begin listening.
// NewServer 创建 Server；调用 Start 开始监听。
func NewServer(addr string, handler http.Handler) *Server {
	baseCtx, cancel := context.WithCancel(context.Background())
	s := &Server{
		addr:       addr,
		baseCtx:    baseCtx,
		cancelBase: cancel,
		serveErr:   make(chan error, 1),
	}
	s.srv = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// Cancelled on shutdown so open event streams end
		// 关闭时取消，以结束打开的事件流
		BaseContext: func(net.Listener) context.Context { return baseCtx },
	}
	return s
}

// Start binds the listener and serves in the background.
// Start 绑定监听器并在后台提供服务。
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("[API] failed to listen on %s: %w", s.addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	go func() {
		err := s.srv.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorF(s.baseCtx, "[API] Server stopped: %v", err)
			s.serveErr <- err
		}
		close(s.serveErr)
	}()

	logger.InfoF(s.baseCtx, "[API] Control API listening on %s", ln.Addr())
	return nil
}

// Addr returns the bound address, or the configured one before Start.
// Addr 返回绑定地址；Start 之前返回配置的地址。
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Errors delivers a serve failure, if any, and is closed when serving ends.
// Errors 传递服务失败错误（如有），服务结束时关闭。
func (s *Server) Errors() <-chan error {
	return s.serveErr
}

// Shutdown ends open streams and gracefully stops the server.
// Shutdown 结束打开的事件流并优雅地停止服务器。
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancelBase()
	return s.srv.Shutdown(ctx)
}
