package mongodb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Options 单个 MongoDB 客户端配置
type Options struct {
	Name        string
	Uri         string
	Username    string
	Password    string
	MaxPoolSize uint64
	MinPoolSize uint64
	Timeout     time.Duration
}

// NewOptions 创建默认配置
func NewOptions(name, uri string) *Options {
	return &Options{
		Name:        name,
		Uri:         uri,
		MaxPoolSize: 100,
		MinPoolSize: 5,
		Timeout:     10 * time.Second,
	}
}

// Validate 验证配置
func (o *Options) Validate() error {
	if o.Name == "" {
		return fmt.Errorf("mongodb: 客户端名称不能为空")
	}
	if o.Uri == "" {
		return fmt.Errorf("mongodb: uri 不能为空")
	}
	return nil
}

// Registry MongoDB 客户端注册表
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*mongo.Client
}

// NewRegistry 创建客户端注册表
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]*mongo.Client)}
}

// Open 按配置连接并登记
func (r *Registry) Open(opts Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.clients[opts.Name]; exists {
		return fmt.Errorf("mongodb: 客户端 '%s' 已存在", opts.Name)
	}

	clientOpts := options.Client().ApplyURI(opts.Uri)
	if opts.Username != "" || opts.Password != "" {
		clientOpts.SetAuth(options.Credential{
			Username: opts.Username,
			Password: opts.Password,
		})
	}
	if opts.MaxPoolSize > 0 {
		clientOpts.SetMaxPoolSize(opts.MaxPoolSize)
	}
	if opts.MinPoolSize > 0 {
		clientOpts.SetMinPoolSize(opts.MinPoolSize)
	}
	if opts.Timeout > 0 {
		clientOpts.SetConnectTimeout(opts.Timeout)
	}

	client, err := mongo.Connect(clientOpts)
	if err != nil {
		return fmt.Errorf("mongodb: 连接 '%s' 失败: %w", opts.Name, err)
	}
	r.clients[opts.Name] = client
	return nil
}

// Get 按名称取客户端
func (r *Registry) Get(name string) (*mongo.Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[name]
	return c, ok
}

// Each 遍历全部客户端
func (r *Registry) Each(fn func(name string, client *mongo.Client)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for name, c := range r.clients {
		fn(name, c)
	}
}

// Close 断开全部客户端，容器销毁时自动调用
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var errs []error
	for name, c := range r.clients {
		if err := c.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("mongodb: 断开 '%s' 失败: %w", name, err))
		}
	}
	r.clients = make(map[string]*mongo.Client)
	if len(errs) > 0 {
		return fmt.Errorf("mongodb: 关闭时发生错误: %v", errs)
	}
	return nil
}
