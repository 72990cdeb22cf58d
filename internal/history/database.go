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

// Package history persists bridge lifecycle events to an embedded SQLite database.
// history 包将 bridge 生命周期事件持久化到嵌入式 SQLite 数据库。
package history

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open opens (creating if needed) the SQLite history database and migrates it.
// Open 打开（必要时创建）SQLite 历史数据库并执行迁移。
func Open(path string, logLevel string) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("[History] sqlite path is empty")
	}

	// Make sure the directory exists / 确保目录存在
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("[History] failed to create sqlite directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: getGormLogger(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("[History] failed to open sqlite database: %w", err)
	}

	// One writer at a time for the embedded database
	// 嵌入式数据库同一时间只允许一个写入者
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("[History] failed to get underlying connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&Record{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("[History] failed to migrate: %w", err)
	}
	return db, nil
}

// Close closes the underlying connection.
// Close 关闭底层数据库连接。
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("[History] failed to get underlying connection: %w", err)
	}
	return sqlDB.Close()
}

// getGormLogger maps the host log level to a GORM log level.
// Only problems are reported by default; SQL tracing needs "debug".
func getGormLogger(level string) gormlogger.Interface {
	var logLevel gormlogger.LogLevel
	switch level {
	case "silent":
		logLevel = gormlogger.Silent
	case "debug":
		logLevel = gormlogger.Info
	case "info", "warn":
		logLevel = gormlogger.Warn
	default:
		logLevel = gormlogger.Error
	}
	return gormlogger.Default.LogMode(logLevel)
}
