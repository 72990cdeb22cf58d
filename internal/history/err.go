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

import "errors"

// Error definitions for event history operations.
// 事件历史操作的错误定义。
var (
	// ErrRecordNotFound indicates the requested event record does not exist.
	// ErrRecordNotFound 表示请求的事件记录不存在。
	ErrRecordNotFound = errors.New("history: record not found")
	// ErrEventIDEmpty indicates the event ID is empty.
	// ErrEventIDEmpty 表示事件 ID 为空。
	ErrEventIDEmpty = errors.New("history: event ID cannot be empty")
	// ErrEventIDDuplicate indicates a record with the same event ID already exists.
	// ErrEventIDDuplicate 表示具有相同事件 ID 的记录已存在。
	ErrEventIDDuplicate = errors.New("history: event ID already exists")
	// ErrEventTypeEmpty indicates the event type is empty.
	// ErrEventTypeEmpty 表示事件类型为空。
	ErrEventTypeEmpty = errors.New("history: event type cannot be empty")
	// ErrStoreClosed indicates the store was closed.
	ErrStoreClosed = errors.New("history: store closed")
)
