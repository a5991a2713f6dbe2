package config

import (
	"os"
	"strconv"
	"time"
)

// GetEnv 读取字符串环境变量，未设置时返回默认值
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvInt 读取整数环境变量
func GetEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// GetEnvBool 读取布尔环境变量
func GetEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// GetEnvDuration 读取时长环境变量，格式同 time.ParseDuration
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// DSN 返回 PostgreSQL 连接串
func (c *DatabaseConfig) DSN() string {
	port := c.Port
	if port == 0 {
		port = 5432
	}
	dsn := "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + strconv.Itoa(port) + "/" + c.Name + "?sslmode=disable"
	if c.MaxOpenConns > 0 {
		dsn += "&pool_max_conns=" + strconv.Itoa(c.MaxOpenConns)
	}
	if c.MaxIdleConns > 0 {
		dsn += "&pool_min_conns=" + strconv.Itoa(c.MaxIdleConns)
	}
	return dsn
}

// Addr 返回 Redis 地址
func (c *RedisConfig) Addr() string {
	host := c.Host
	if host == "" {
		host = "localhost"
	}
	port := c.Port
	if port == 0 {
		port = 6379
	}
	return host + ":" + strconv.Itoa(port)
}
