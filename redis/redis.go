package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options 单个 Redis 客户端配置
type Options struct {
	Name         string
	Addr         string
	Username     string
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	PingOnCreate bool
}

// NewOptions 创建默认配置
func NewOptions(name string) *Options {
	return &Options{
		Name:        name,
		Addr:        "localhost:6379",
		DialTimeout: 5 * time.Second,
	}
}

// Validate 验证配置
func (o *Options) Validate() error {
	if o.Name == "" {
		return fmt.Errorf("redis: 客户端名称不能为空")
	}
	if o.Addr == "" {
		return fmt.Errorf("redis: 地址不能为空")
	}
	return nil
}

// Registry Redis 客户端注册表
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*redis.Client
}

// NewRegistry 创建客户端注册表
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]*redis.Client)}
}

// Open 按配置创建客户端并登记
func (r *Registry) Open(opts Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.clients[opts.Name]; exists {
		return fmt.Errorf("redis: 客户端 '%s' 已存在", opts.Name)
	}

	client := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Username:    opts.Username,
		Password:    opts.Password,
		DB:          opts.DB,
		PoolSize:    opts.PoolSize,
		DialTimeout: opts.DialTimeout,
	})
	if opts.PingOnCreate {
		ctx, cancel := context.WithTimeout(context.Background(), opts.DialTimeout)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return fmt.Errorf("redis: '%s' ping 失败: %w", opts.Name, err)
		}
	}
	r.clients[opts.Name] = client
	return nil
}

// Get 按名称取客户端
func (r *Registry) Get(name string) (*redis.Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[name]
	return c, ok
}

// Each 遍历全部客户端
func (r *Registry) Each(fn func(name string, client *redis.Client)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for name, c := range r.clients {
		fn(name, c)
	}
}

// Close 关闭全部客户端，容器销毁时自动调用
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for name, c := range r.clients {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: 关闭 '%s' 失败: %w", name, err))
		}
	}
	r.clients = make(map[string]*redis.Client)
	if len(errs) > 0 {
		return fmt.Errorf("redis: 关闭时发生错误: %v", errs)
	}
	return nil
}
