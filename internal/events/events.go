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

// Package events defines bridge lifecycle events and the sinks that receive them.
// events 包定义 bridge 生命周期事件及其接收端。
//
// Delivery is best-effort: a sink error is reported to the caller, which is
// expected to log and drop it.
// 投递为尽力而为：接收端错误返回给调用方，由调用方记录后丢弃。
package events

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StatusEventName is the event name the UI layer listens on.
// StatusEventName 是 UI 层监听的事件名称。
const StatusEventName = "bridge-status"

// Type is a lifecycle transition.
// Type 表示生命周期转换。
type Type string

const (
	// Started is emitted after a worker passed the grace probe
	// Started 在工作进程通过存活探测后发出
	Started Type = "started"

	// Stopped is emitted after a worker was terminated
	// Stopped 在工作进程被终止后发出
	Stopped Type = "stopped"
)

// Event is a single lifecycle notification.
// Event 是一条生命周期通知。
type Event struct {
	ID      string    `json:"id"`
	Type    Type      `json:"type"`
	Running bool      `json:"running"`
	PID     int       `json:"pid"`
	Time    time.Time `json:"time"`
}

// New creates an event with a fresh ID and the current time.
// New 创建带有新 ID 和当前时间的事件。
func New(t Type, pid int) Event {
	return Event{
		ID:      uuid.NewString(),
		Type:    t,
		Running: t == Started,
		PID:     pid,
		Time:    time.Now(),
	}
}

// Sink receives lifecycle events.
// Sink 接收生命周期事件。
type Sink interface {
	Notify(event Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(event Event) error

// Notify calls f(event).
func (f SinkFunc) Notify(event Event) error {
	return f(event)
}

// Multi fans an event out to every sink; all sinks are called even if some fail.
// Multi 将事件分发给所有接收端；即使部分失败也会调用全部接收端。
type Multi []Sink

// Notify delivers to each sink and joins the errors.
func (m Multi) Notify(event Event) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Notify(event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink writes events to a zap logger.
// LogSink 将事件写入 zap 日志。
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a LogSink; a nil logger discards events.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger.Named("events")}
}

// Notify logs the event.
func (s *LogSink) Notify(event Event) error {
	s.logger.Info(StatusEventName,
		zap.String("id", event.ID),
		zap.String("type", string(event.Type)),
		zap.Bool("running", event.Running),
		zap.Int("pid", event.PID),
	)
	return nil
}
