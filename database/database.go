package database

import (
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
)

// Options 单个数据库连接的配置
type Options struct {
	Name         string
	Dialector    gorm.Dialector
	GormConfig   *gorm.Config
	MaxIdleConns int
	MaxOpenConns int
	MaxLifetime  time.Duration
	AutoMigrate  []any
}

// NewOptions 创建默认配置
func NewOptions(name string, dialector gorm.Dialector) *Options {
	return &Options{
		Name:         name,
		Dialector:    dialector,
		GormConfig:   &gorm.Config{},
		MaxIdleConns: 10,
		MaxOpenConns: 100,
		MaxLifetime:  time.Hour,
	}
}

// Validate 验证配置
func (o *Options) Validate() error {
	if o.Name == "" {
		return fmt.Errorf("database: 连接名称不能为空")
	}
	if o.Dialector == nil {
		return fmt.Errorf("database: dialector 不能为空")
	}
	return nil
}

// Registry 数据库连接注册表。作为 bean 注册进工厂，
// 各连接经命名 *gorm.DB bean 暴露，Close 由容器销毁链调用。
type Registry struct {
	mu  sync.RWMutex
	dbs map[string]*gorm.DB
}

// NewRegistry 创建连接注册表
func NewRegistry() *Registry {
	return &Registry{dbs: make(map[string]*gorm.DB)}
}

// Open 按配置打开连接并登记
func (r *Registry) Open(opts Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.dbs[opts.Name]; exists {
		return fmt.Errorf("database: 连接 '%s' 已存在", opts.Name)
	}

	db, err := gorm.Open(opts.Dialector, opts.GormConfig)
	if err != nil {
		return fmt.Errorf("database: 打开 '%s' 失败: %w", opts.Name, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("database: 获取底层连接池失败: %w", err)
	}
	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(opts.MaxLifetime)

	if len(opts.AutoMigrate) > 0 {
		if err := db.AutoMigrate(opts.AutoMigrate...); err != nil {
			return fmt.Errorf("database: '%s' 自动迁移失败: %w", opts.Name, err)
		}
	}
	r.dbs[opts.Name] = db
	return nil
}

// Get 按名称取连接
func (r *Registry) Get(name string) (*gorm.DB, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	db, ok := r.dbs[name]
	return db, ok
}

// Each 遍历全部连接
func (r *Registry) Each(fn func(name string, db *gorm.DB)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for name, db := range r.dbs {
		fn(name, db)
	}
}

// Close 关闭全部连接，容器销毁时自动调用
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for name, db := range r.dbs {
		sqlDB, err := db.DB()
		if err != nil {
			errs = append(errs, fmt.Errorf("database: '%s' 获取连接池失败: %w", name, err))
			continue
		}
		if err := sqlDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database: 关闭 '%s' 失败: %w", name, err))
		}
	}
	r.dbs = make(map[string]*gorm.DB)
	if len(errs) > 0 {
		return fmt.Errorf("database: 关闭时发生错误: %v", errs)
	}
	return nil
}
