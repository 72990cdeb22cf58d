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
	"errors"

	"gorm.io/gorm"
)

// Repository provides data access operations for Record entities.
// Repository 提供 Record 实体的数据访问操作。
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new Repository instance.
// NewRepository 创建一个新的 Repository 实例。
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new record.
// Create 插入一条新记录。
// Returns ErrEventIDDuplicate if a record with the same event ID already exists.
// 如果具有相同事件 ID 的记录已存在，则返回 ErrEventIDDuplicate。
func (r *Repository) Create(ctx context.Context, record *Record) error {
	if record.EventID == "" {
		return ErrEventIDEmpty
	}
	if record.Type == "" {
		return ErrEventTypeEmpty
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&Record{}).Where("event_id = ?", record.EventID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrEventIDDuplicate
	}

	return r.db.WithContext(ctx).Create(record).Error
}

// GetByEventID retrieves a record by its event ID.
// GetByEventID 通过事件 ID 获取记录。
func (r *Repository) GetByEventID(ctx context.Context, eventID string) (*Record, error) {
	var record Record
	if err := r.db.WithContext(ctx).Where("event_id = ?", eventID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &record, nil
}

// List returns records newest first, plus the total count matching the filter.
// List 按从新到旧返回记录，并返回匹配过滤条件的总数。
func (r *Repository) List(ctx context.Context, filter *Filter) ([]*Record, int64, error) {
	query := r.db.WithContext(ctx).Model(&Record{})
	if filter != nil && filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter != nil && filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var records []*Record
	if err := query.Order("id DESC").Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// Count returns the number of stored records.
// Count 返回已存储的记录数。
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Record{}).Count(&count).Error
	return count, err
}

// Trim keeps only the newest keep records and returns how many were deleted.
// Trim 仅保留最新的 keep 条记录，返回删除的数量。
func (r *Repository) Trim(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}

	// Find the newest ID that falls outside the window
	// 查找窗口之外最新的 ID
	var ids []uint
	if err := r.db.WithContext(ctx).Model(&Record{}).
		Order("id DESC").Offset(keep).Limit(1).
		Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	result := r.db.WithContext(ctx).Where("id <= ?", ids[0]).Delete(&Record{})
	return result.RowsAffected, result.Error
}
