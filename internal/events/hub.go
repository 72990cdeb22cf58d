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
	"sync"
)

// DefaultCacheSize is the default number of recent events kept by a Hub
// DefaultCacheSize 是 Hub 保留的最近事件的默认数量
const DefaultCacheSize = 100

// DefaultSubscriberBuffer is the default channel buffer per subscriber
// DefaultSubscriberBuffer 是每个订阅者的默认通道缓冲大小
const DefaultSubscriberBuffer = 16

// ErrHubClosed is returned by Notify after Close
// ErrHubClosed 在 Close 之后由 Notify 返回
var ErrHubClosed = errors.New("events: hub closed")

// Hub caches recent events and fans them out to UI subscribers.
// Hub 缓存最近的事件并分发给 UI 订阅者。
//
// A subscriber that does not keep up loses events rather than blocking the
// notifier.
// 跟不上的订阅者会丢失事件，而不会阻塞通知方。
type Hub struct {
	mu          sync.Mutex
	cache       []Event
	cacheSize   int
	subscribers map[int]chan Event
	nextID      int
	dropped     int
	closed      bool
}

// NewHub creates a Hub keeping at most cacheSize recent events.
// NewHub 创建最多保留 cacheSize 个最近事件的 Hub。
func NewHub(cacheSize int) *Hub {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	return &Hub{
		cache:       make([]Event, 0, cacheSize),
		cacheSize:   cacheSize,
		subscribers: make(map[int]chan Event),
	}
}

// Notify caches the event and delivers it to every subscriber without blocking.
// Notify 缓存事件并以非阻塞方式投递给每个订阅者。
func (h *Hub) Notify(event Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHubClosed
	}

	// Remove oldest event if cache is full / 如果缓存已满则移除最旧的事件
	if len(h.cache) >= h.cacheSize {
		h.cache = h.cache[1:]
	}
	h.cache = append(h.cache, event)

	for _, ch := range h.subscribers {
		select {
		case ch <- event:
		default:
			h.dropped++
		}
	}
	return nil
}

// Subscribe registers a subscriber. The returned cancel func unregisters it
// and closes the channel; it is safe to call more than once.
// Subscribe 注册订阅者。返回的取消函数会注销订阅并关闭通道，可重复调用。
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	ch := make(chan Event, buffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := h.nextID
	h.nextID++
	h.subscribers[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if sub, ok := h.subscribers[id]; ok {
				delete(h.subscribers, id)
				close(sub)
			}
		})
	}
}

// Recent returns up to n of the most recent events, oldest first.
// n <= 0 returns the whole cache.
// Recent 返回最多 n 个最近事件（从旧到新）。n <= 0 返回全部缓存。
func (h *Hub) Recent(n int) []Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	start := 0
	if n > 0 && len(h.cache) > n {
		start = len(h.cache) - n
	}
	out := make([]Event, len(h.cache)-start)
	copy(out, h.cache[start:])
	return out
}

// SubscriberCount returns the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Dropped returns how many deliveries were skipped because a subscriber was full.
// Dropped 返回因订阅者缓冲已满而跳过的投递次数。
func (h *Hub) Dropped() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

// Close closes every subscriber channel; later Notify calls fail.
// Close 关闭所有订阅者通道；之后的 Notify 调用将失败。
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subscribers {
		close(ch)
		delete(h.subscribers, id)
	}
}
