package config

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Configuration 配置接口，键路径支持 "a:b:c" 与 "a.b.c" 两种写法。
type Configuration interface {
	// Get 获取配置值（字符串形式）
	Get(key string) string
	// GetWithDefault 获取配置值，不存在时返回默认值
	GetWithDefault(key, defaultValue string) string
	// GetInt 获取整数配置值
	GetInt(key string) (int, error)
	// GetBool 获取布尔配置值
	GetBool(key string) (bool, error)
	// GetDuration 获取时长配置值
	GetDuration(key string) (time.Duration, error)
	// GetSection 获取配置节
	GetSection(key string) Configuration
	// Bind 绑定配置节到结构体
	Bind(key string, target any) error
	// GetAll 获取全部配置的副本
	GetAll() map[string]any
}

// configuration 标准实现：嵌套 map 上的路径读取
type configuration struct {
	mu   sync.RWMutex
	data map[string]any
}

// NewConfiguration 从既有数据创建配置
func NewConfiguration(data map[string]any) Configuration {
	if data == nil {
		data = make(map[string]any)
	}
	return &configuration{data: data}
}

func (c *configuration) Get(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value := c.lookup(key)
	if value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (c *configuration) GetWithDefault(key, defaultValue string) string {
	if v := c.Get(key); v != "" {
		return v
	}
	return defaultValue
}

func (c *configuration) GetInt(key string) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value := c.lookup(key)
	if value == nil {
		return 0, fmt.Errorf("config: 键 '%s' 不存在", key)
	}
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		return strconv.Atoi(v)
	default:
		return 0, fmt.Errorf("config: %v 无法作为整数读取", value)
	}
}

func (c *configuration) GetBool(key string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value := c.lookup(key)
	if value == nil {
		return false, fmt.Errorf("config: 键 '%s' 不存在", key)
	}
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(v)
	default:
		return false, fmt.Errorf("config: %v 无法作为布尔值读取", value)
	}
}

func (c *configuration) GetDuration(key string) (time.Duration, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value := c.lookup(key)
	if value == nil {
		return 0, fmt.Errorf("config: 键 '%s' 不存在", key)
	}
	switch v := value.(type) {
	case string:
		return time.ParseDuration(v)
	case int:
		return time.Duration(v) * time.Second, nil
	case int64:
		return time.Duration(v) * time.Second, nil
	default:
		return 0, fmt.Errorf("config: %v 无法作为时长读取", value)
	}
}

func (c *configuration) GetSection(key string) Configuration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if m, ok := c.lookup(key).(map[string]any); ok {
		return &configuration{data: m}
	}
	return &configuration{data: make(map[string]any)}
}

// Bind 通过 YAML 序列化/反序列化绑定到结构体
func (c *configuration) Bind(key string, target any) error {
	c.mu.RLock()
	var data any
	if key == "" {
		data = c.data
	} else {
		data = c.lookup(key)
	}
	c.mu.RUnlock()

	if data == nil {
		return fmt.Errorf("config: 键 '%s' 不存在", key)
	}
	raw, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("config: 序列化失败: %w", err)
	}
	if err := yaml.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("config: 绑定 '%s' 失败: %w", key, err)
	}
	return nil
}

func (c *configuration) GetAll() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]any, len(c.data))
	mergeMaps(out, c.data)
	return out
}

// lookup 沿路径取值，调用方持有读锁
func (c *configuration) lookup(path string) any {
	if path == "" {
		return c.data
	}
	parts := strings.Split(strings.ReplaceAll(path, ":", "."), ".")
	current := any(c.data)
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = m[part]
	}
	return current
}

// mergeMaps 深合并, src 覆盖 dst
func mergeMaps(dst, src map[string]any) {
	for k, v := range src {
		if dstMap, ok := dst[k].(map[string]any); ok {
			if srcMap, ok := v.(map[string]any); ok {
				mergeMaps(dstMap, srcMap)
				continue
			}
		}
		dst[k] = v
	}
}
