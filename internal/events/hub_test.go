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

package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"
)

// TestNewEvent tests event construction
// TestNewEvent 测试事件构造
func TestNewEvent(t *testing.T) {
	started := New(Started, 42)
	stopped := New(Stopped, 42)

	assert.True(t, started.Running)
	assert.False(t, stopped.Running)
	assert.Equal(t, 42, started.PID)
	assert.NotEmpty(t, started.ID)
	assert.NotEqual(t, started.ID, stopped.ID)
	assert.False(t, started.Time.IsZero())
}

// TestHubFanOut tests delivery to every subscriber
// TestHubFanOut 测试投递给每个订阅者
func TestHubFanOut(t *testing.T) {
	hub := NewHub(10)
	a, cancelA := hub.Subscribe(4)
	b, cancelB := hub.Subscribe(4)
	defer cancelA()
	defer cancelB()

	require.NoError(t, hub.Notify(New(Started, 1)))

	assert.Equal(t, Started, (<-a).Type)
	assert.Equal(t, Started, (<-b).Type)
	assert.Equal(t, 2, hub.SubscriberCount())
}

// TestHubSlowSubscriberDoesNotBlock tests that a full subscriber drops events
// TestHubSlowSubscriberDoesNotBlock 测试缓冲已满的订阅者丢弃事件而不阻塞
func TestHubSlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub(10)
	_, cancel := hub.Subscribe(1)
	defer cancel()

	for i := 0; i < 5; i++ {
		require.NoError(t, hub.Notify(New(Started, i)))
	}

	assert.Equal(t, 4, hub.Dropped())
	assert.Len(t, hub.Recent(0), 5)
}

// TestHubCancelIdempotent tests unsubscribe semantics
func TestHubCancelIdempotent(t *testing.T) {
	hub := NewHub(10)
	ch, cancel := hub.Subscribe(1)

	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, hub.SubscriberCount())
}

// TestHubClose tests that Close ends subscriptions and rejects new events
// TestHubClose 测试 Close 结束订阅并拒绝新事件
func TestHubClose(t *testing.T) {
	hub := NewHub(10)
	ch, cancel := hub.Subscribe(1)

	hub.Close()
	hub.Close()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)
	assert.True(t, errors.Is(hub.Notify(New(Stopped, 0)), ErrHubClosed))

	late, _ := hub.Subscribe(1)
	_, ok = <-late
	assert.False(t, ok)
}

// TestHubRecent tests the recent window
func TestHubRecent(t *testing.T) {
	hub := NewHub(3)
	for i := 1; i <= 5; i++ {
		require.NoError(t, hub.Notify(New(Started, i)))
	}

	all := hub.Recent(0)
	require.Len(t, all, 3)
	assert.Equal(t, 3, all[0].PID)
	assert.Equal(t, 5, all[2].PID)

	last := hub.Recent(1)
	require.Len(t, last, 1)
	assert.Equal(t, 5, last[0].PID)
}

// TestMulti tests fan-out across sinks with error joining
// TestMulti 测试多接收端分发与错误合并
func TestMulti(t *testing.T) {
	var got []Type
	boom := errors.New("boom")

	m := Multi{
		SinkFunc(func(e Event) error { got = append(got, e.Type); return nil }),
		nil,
		SinkFunc(func(e Event) error { return boom }),
		SinkFunc(func(e Event) error { got = append(got, e.Type); return nil }),
	}

	err := m.Notify(New(Stopped, 7))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []Type{Stopped, Stopped}, got)

	assert.NoError(t, Multi{}.Notify(New(Started, 1)))
}

// TestLogSink tests structured logging of events
func TestLogSink(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sink := NewLogSink(zap.New(core))

	require.NoError(t, sink.Notify(New(Started, 99)))
	require.Equal(t, 1, logs.Len())

	entry := logs.All()[0]
	assert.Equal(t, StatusEventName, entry.Message)
	assert.Equal(t, true, entry.ContextMap()["running"])
	assert.EqualValues(t, 99, entry.ContextMap()["pid"])

	assert.NoError(t, NewLogSink(nil).Notify(New(Stopped, 0)))
}

// **Feature: bridge-supervisor, Property 2: Hub cache is bounded**
//
// For any number of notifications, the hub never keeps more than its cache
// size and always keeps the newest events.
// 对于任意数量的通知，Hub 缓存不超过上限且始终保留最新的事件。
func TestProperty_HubCacheBounded(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		size := rapid.IntRange(1, 20).Draw(t, "size")
		count := rapid.IntRange(0, 60).Draw(t, "count")

		hub := NewHub(size)
		for i := 0; i < count; i++ {
			if err := hub.Notify(New(Started, i)); err != nil {
				t.Fatalf("notify: %v", err)
			}
		}

		recent := hub.Recent(0)
		want := count
		if want > size {
			want = size
		}
		if len(recent) != want {
			t.Fatalf("expected %d cached events, got %d", want, len(recent))
		}
		if count > 0 && recent[len(recent)-1].PID != count-1 {
			t.Fatalf("newest event missing: %+v", recent[len(recent)-1])
		}
	})
}
