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

package history

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/aya-assistant/aya-desktop/internal/events"
	"github.com/aya-assistant/aya-desktop/internal/logger"
)

// DefaultMaxEvents is the default number of records retained
// DefaultMaxEvents 是默认保留的记录数
const DefaultMaxEvents = 500

// writeTimeout bounds a single Notify
const writeTimeout = 5 * time.Second

// Store is an events.Sink that persists lifecycle events and keeps at most
// maxEvents of them.
// Store 是持久化生命周期事件的 events.Sink，最多保留 maxEvents 条。
type Store struct {
	repo      *Repository
	maxEvents int

	mu     sync.Mutex
	closed bool
}

// NewStore creates a Store on top of an opened database.
// NewStore 基于已打开的数据库创建 Store。
func NewStore(db *gorm.DB, maxEvents int) *Store {
	if maxEvents <= 0 {
		maxEvents = DefaultMaxEvents
	}
	return &Store{repo: NewRepository(db), maxEvents: maxEvents}
}

// Notify persists the event and trims old records.
// Notify 持久化事件并清理旧记录。
func (s *Store) Notify(event events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := s.repo.Create(ctx, FromEvent(event)); err != nil {
		return fmt.Errorf("failed to persist %s event: %w", event.Type, err)
	}

	deleted, err := s.repo.Trim(ctx, s.maxEvents)
	if err != nil {
		return fmt.Errorf("failed to trim history: %w", err)
	}
	if deleted > 0 {
		logger.DebugF(ctx, "[History] Trimmed %d old event(s)", deleted)
	}
	return nil
}

// Recent returns up to limit events, newest first.
// Recent 按从新到旧返回最多 limit 条事件。
func (s *Store) Recent(ctx context.Context, limit int) ([]events.Event, error) {
	records, _, err := s.repo.List(ctx, &Filter{Limit: limit})
	if err != nil {
		return nil, err
	}
	out := make([]events.Event, 0, len(records))
	for _, r := range records {
		out = append(out, r.Event())
	}
	return out, nil
}

// Repository exposes the underlying repository.
func (s *Store) Repository() *Repository {
	return s.repo
}

// Close stops accepting events. The database itself is closed by its owner.
// Close 停止接收事件。数据库本身由其所有者关闭。
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}
