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

// Package config provides configuration management for the desktop host.
// config 包提供桌面宿主程序的配置管理功能。
//
// Configuration loading priority (highest to lowest):
// 配置加载优先级（从高到低）：
// 1. Command line arguments / 命令行参数
// 2. Environment variables (AYA_*) / 环境变量（AYA_*）
// 3. Configuration file / 配置文件
// 4. Default values / 默认值
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/aya-assistant/aya-desktop/internal/resolver"
)

// Default configuration values
// 默认配置值
const (
	DefaultAppID              = "aya-desktop"
	DefaultMode               = "production"
	DefaultGracePeriod        = 500 * time.Millisecond
	DefaultCredentialEnv      = "GEMINI_API_KEY"
	DefaultOutputMaxSize      = 20 // MB
	DefaultOutputMaxBackups   = 3
	DefaultOutputMaxAge       = 7 // days
	DefaultLogLevel           = "info"
	DefaultLogMaxSize         = 100 // MB
	DefaultLogMaxBackups      = 3
	DefaultLogMaxAge          = 7 // days
	DefaultAPIAddr            = "127.0.0.1:8764"
	DefaultHistoryMaxEvents   = 500
	DefaultHistorySQLiteFile  = "history.db"
	EnvPrefix                 = "AYA"
	EnvConfigPath             = "AYA_CONFIG_PATH"
	defaultConfigFileName     = "config.yaml"
	defaultConfigSubdirectory = "aya-desktop"
)

// Config represents the host configuration
// Config 表示宿主程序配置
type Config struct {
	// App configuration / 应用配置
	App AppConfig `mapstructure:"app" yaml:"app"`

	// Bridge worker configuration / Bridge 工作进程配置
	Bridge BridgeConfig `mapstructure:"bridge" yaml:"bridge"`

	// Log configuration / 日志配置
	Log LogConfig `mapstructure:"log" yaml:"log"`

	// Local control API configuration / 本地控制 API 配置
	API APIConfig `mapstructure:"api" yaml:"api"`

	// Event history configuration / 事件历史配置
	History HistoryConfig `mapstructure:"history" yaml:"history"`
}

// AppConfig contains application-level settings
// AppConfig 包含应用级设置
type AppConfig struct {
	// ID names the per-user data directory
	// ID 用于命名用户数据目录
	ID string `mapstructure:"id" yaml:"id"`

	// Mode is "debug" or "production"
	// Mode 为 "debug" 或 "production"
	Mode string `mapstructure:"mode" yaml:"mode"`

	// DataDir overrides the platform application data directory
	// DataDir 覆盖平台应用数据目录
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`
}

// BridgeConfig contains bridge worker settings
// BridgeConfig 包含 bridge 工作进程设置
type BridgeConfig struct {
	// AutoStart starts the worker once when the host launches
	// AutoStart 在宿主启动时启动一次工作进程
	AutoStart bool `mapstructure:"auto_start" yaml:"auto_start"`

	// GracePeriod is the liveness probe delay after spawn
	// GracePeriod 是启动后存活探测的等待时间
	GracePeriod time.Duration `mapstructure:"grace_period" yaml:"grace_period"`

	// CredentialEnv names the variable forwarded to the worker when set
	// CredentialEnv 是在设置时转发给工作进程的环境变量名
	CredentialEnv string `mapstructure:"credential_env" yaml:"credential_env"`

	// OutputFile receives worker stdout/stderr; empty means <data_dir>/logs/bridge.log
	// OutputFile 接收工作进程的标准输出/错误；为空表示 <data_dir>/logs/bridge.log
	OutputFile string `mapstructure:"output_file" yaml:"output_file"`

	OutputMaxSize    int `mapstructure:"output_max_size" yaml:"output_max_size"`
	OutputMaxBackups int `mapstructure:"output_max_backups" yaml:"output_max_backups"`
	OutputMaxAge     int `mapstructure:"output_max_age" yaml:"output_max_age"`
}

// LogConfig contains logging settings
// LogConfig 包含日志设置
type LogConfig struct {
	// Level is the log level (debug, info, warn, error)
	// Level 是日志级别（debug, info, warn, error）
	Level string `mapstructure:"level" yaml:"level"`

	// File is the log file path; empty means <data_dir>/logs/aya-desktop.log
	// File 是日志文件路径；为空表示 <data_dir>/logs/aya-desktop.log
	File string `mapstructure:"file" yaml:"file"`

	// MaxSize is the maximum size of log file in MB before rotation
	// MaxSize 是日志文件轮转前的最大大小（MB）
	MaxSize int `mapstructure:"max_size" yaml:"max_size"`

	// MaxBackups is the maximum number of old log files to retain
	// MaxBackups 是保留的旧日志文件的最大数量
	MaxBackups int `mapstructure:"max_backups" yaml:"max_backups"`

	// MaxAge is the maximum number of days to retain old log files
	// MaxAge 是保留旧日志文件的最大天数
	MaxAge int `mapstructure:"max_age" yaml:"max_age"`
}

// APIConfig contains the loopback control API settings
// APIConfig 包含本地回环控制 API 设置
type APIConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr"`
}

// HistoryConfig contains lifecycle event history settings
// HistoryConfig 包含生命周期事件历史设置
type HistoryConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// SQLitePath is the database file; empty means <data_dir>/history.db
	// SQLitePath 是数据库文件；为空表示 <data_dir>/history.db
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`

	// MaxEvents bounds the number of stored events
	// MaxEvents 限制存储的事件数量
	MaxEvents int `mapstructure:"max_events" yaml:"max_events"`
}

// DefaultConfigPath returns <user config dir>/aya-desktop/config.yaml
// DefaultConfigPath 返回 <用户配置目录>/aya-desktop/config.yaml
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return defaultConfigFileName
	}
	return filepath.Join(dir, defaultConfigSubdirectory, defaultConfigFileName)
}

// Load loads configuration from file and environment variables
// Load 从文件和环境变量加载配置
func Load(configPath string) (*Config, error) {
	return LoadWithPriority(configPath, nil)
}

// LoadWithPriority loads configuration with explicit priority handling
// LoadWithPriority 使用显式优先级处理加载配置
// Priority: cmdArgs > envVars > configFile > defaults
// 优先级：命令行参数 > 环境变量 > 配置文件 > 默认值
func LoadWithPriority(configPath string, cmdArgs map[string]interface{}) (*Config, error) {
	v := viper.New()

	// Set default values / 设置默认值
	setDefaults(v)

	// Set config file path / 设置配置文件路径
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else if envPath := os.Getenv(EnvConfigPath); envPath != "" {
		v.SetConfigFile(envPath)
	} else {
		v.SetConfigFile(DefaultConfigPath())
	}

	// Enable environment variable override / 启用环境变量覆盖
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file / 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		// A missing file falls back to defaults
		// 文件不存在时使用默认值
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			if _, statErr := os.Stat(v.ConfigFileUsed()); statErr == nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	// Apply command line arguments (highest priority)
	// 应用命令行参数（最高优先级）
	for key, value := range cmdArgs {
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// LoadFromYAML loads configuration from YAML bytes
// LoadFromYAML 从 YAML 字节加载配置
func LoadFromYAML(yamlData []byte) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	if err := v.ReadConfig(strings.NewReader(string(yamlData))); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// App defaults / 应用默认值
	v.SetDefault("app.id", DefaultAppID)
	v.SetDefault("app.mode", DefaultMode)
	v.SetDefault("app.data_dir", "")

	// Bridge defaults / Bridge 默认值
	v.SetDefault("bridge.auto_start", true)
	v.SetDefault("bridge.grace_period", DefaultGracePeriod)
	v.SetDefault("bridge.credential_env", DefaultCredentialEnv)
	v.SetDefault("bridge.output_file", "")
	v.SetDefault("bridge.output_max_size", DefaultOutputMaxSize)
	v.SetDefault("bridge.output_max_backups", DefaultOutputMaxBackups)
	v.SetDefault("bridge.output_max_age", DefaultOutputMaxAge)

	// Log defaults / 日志默认值
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", DefaultLogMaxSize)
	v.SetDefault("log.max_backups", DefaultLogMaxBackups)
	v.SetDefault("log.max_age", DefaultLogMaxAge)

	// API defaults / API 默认值
	v.SetDefault("api.enabled", true)
	v.SetDefault("api.addr", DefaultAPIAddr)

	// History defaults / 历史默认值
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.sqlite_path", "")
	v.SetDefault("history.max_events", DefaultHistoryMaxEvents)
}

// Validate validates the configuration
// Validate 验证配置
func (c *Config) Validate() error {
	// Same parser the host uses, so "release" is accepted here too
	// 与宿主使用相同的解析器，因此这里同样接受 "release"
	if _, err := resolver.ParseRunMode(c.App.Mode); err != nil {
		return fmt.Errorf("invalid app.mode: %s (must be debug, production or release)", c.App.Mode)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level)
	}

	if c.Bridge.GracePeriod <= 0 {
		return errors.New("bridge.grace_period must be positive")
	}

	if c.API.Enabled && c.API.Addr == "" {
		return errors.New("api.addr is required when the API is enabled")
	}

	if c.History.Enabled && c.History.MaxEvents <= 0 {
		return errors.New("history.max_events must be positive when history is enabled")
	}

	return nil
}

// ResolvePaths fills empty file locations relative to dataDir.
// ResolvePaths 基于 dataDir 填充为空的文件路径。
func (c *Config) ResolvePaths(dataDir string) {
	if dataDir == "" {
		return
	}
	if c.Log.File == "" {
		c.Log.File = filepath.Join(dataDir, "logs", "aya-desktop.log")
	}
	if c.Bridge.OutputFile == "" {
		c.Bridge.OutputFile = filepath.Join(dataDir, "logs", "bridge.log")
	}
	if c.History.SQLitePath == "" {
		c.History.SQLitePath = filepath.Join(dataDir, DefaultHistorySQLiteFile)
	}
}

// String returns a string representation of the config (for debugging)
// String 返回配置的字符串表示（用于调试）
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{App.Mode: %s, Bridge.AutoStart: %t, Bridge.GracePeriod: %v, Log.Level: %s, API.Addr: %s}",
		c.App.Mode,
		c.Bridge.AutoStart,
		c.Bridge.GracePeriod,
		c.Log.Level,
		c.API.Addr,
	)
}

// ToYAML serializes the configuration to YAML format
// ToYAML 将配置序列化为 YAML 格式
func (c *Config) ToYAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// Equal compares two configs for equality
// Equal 比较两个配置是否相等
func (c *Config) Equal(other *Config) bool {
	if c == nil || other == nil {
		return c == other
	}
	return *c == *other
}
