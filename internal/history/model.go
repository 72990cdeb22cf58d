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
	"time"

	"github.com/aya-assistant/aya-desktop/internal/events"
)

// Record is a persisted bridge lifecycle event.
// Record 是持久化的 bridge 生命周期事件。
type Record struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	EventID    string    `gorm:"size:36;uniqueIndex;not null" json:"event_id"`
	Type       string    `gorm:"size:16;index;not null" json:"type"`
	Running    bool      `json:"running"`
	PID        int       `json:"pid"`
	OccurredAt time.Time `gorm:"index" json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for Record.
// TableName 指定 Record 的表名。
func (Record) TableName() string {
	return "bridge_events"
}

// FromEvent converts a lifecycle event to a record.
// FromEvent 将生命周期事件转换为记录。
func FromEvent(e events.Event) *Record {
	return &Record{
		EventID:    e.ID,
		Type:       string(e.Type),
		Running:    e.Running,
		PID:        e.PID,
		OccurredAt: e.Time,
	}
}

// Event converts the record back to a lifecycle event.
// Event 将记录转换回生命周期事件。
func (r *Record) Event() events.Event {
	return events.Event{
		ID:      r.EventID,
		Type:    events.Type(r.Type),
		Running: r.Running,
		PID:     r.PID,
		Time:    r.OccurredAt,
	}
}

// Filter narrows a List query.
// Filter 用于缩小 List 查询范围。
type Filter struct {
	// Type filters by event type; empty matches all
	// Type 按事件类型过滤；为空匹配全部
	Type string

	// Limit caps the number of returned records; <= 0 means no limit
	// Limit 限制返回记录数；<= 0 表示不限制
	Limit int
}
