package config

import (
	"fmt"
	"sync"
)

// Builder 配置构建器，后添加的配置源覆盖先添加的
type Builder struct {
	mu      sync.Mutex
	sources []Source
}

// NewBuilder 创建配置构建器
func NewBuilder() *Builder {
	return &Builder{}
}

// Add 添加配置源
func (b *Builder) Add(source Source) *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sources = append(b.sources, source)
	return b
}

// AddYamlFile 添加 YAML 文件配置源
func (b *Builder) AddYamlFile(path string, optional ...bool) *Builder {
	isOptional := len(optional) > 0 && optional[0]
	return b.Add(&YamlFileSource{Path: path, Optional: isOptional})
}

// AddJsonFile 添加 JSON 文件配置源
func (b *Builder) AddJsonFile(path string, optional ...bool) *Builder {
	isOptional := len(optional) > 0 && optional[0]
	return b.Add(&JsonFileSource{Path: path, Optional: isOptional})
}

// AddEnv 添加环境变量配置源
func (b *Builder) AddEnv(prefix string) *Builder {
	return b.Add(&EnvSource{Prefix: prefix})
}

// AddInMemory 添加内存配置源
func (b *Builder) AddInMemory(data map[string]any) *Builder {
	return b.Add(&InMemorySource{Data: data})
}

// AddEtcd 添加 etcd 配置源
func (b *Builder) AddEtcd(opts EtcdOptions) *Builder {
	return b.Add(&EtcdSource{Options: opts})
}

// Build 加载全部配置源并构建配置
func (b *Builder) Build() (Configuration, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data := make(map[string]any)
	for _, source := range b.sources {
		loaded, err := source.Load()
		if err != nil {
			return nil, fmt.Errorf("config: 加载配置源 %s 失败: %w", source.Name(), err)
		}
		mergeMaps(data, loaded)
	}
	return NewConfiguration(data), nil
}
