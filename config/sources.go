package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"gopkg.in/yaml.v3"
)

// Source 配置源
type Source interface {
	Load() (map[string]any, error)
	Name() string
}

// YamlFileSource YAML 文件配置源
type YamlFileSource struct {
	Path     string
	Optional bool
}

func (s *YamlFileSource) Name() string {
	return fmt.Sprintf("YamlFile(%s)", s.Path)
}

func (s *YamlFileSource) Load() (map[string]any, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if s.Optional && os.IsNotExist(err) {
			return make(map[string]any), nil
		}
		return nil, err
	}
	var result map[string]any
	if err := yaml.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("config: YAML 解析失败: %w", err)
	}
	return result, nil
}

// JsonFileSource JSON 文件配置源
type JsonFileSource struct {
	Path     string
	Optional bool
}

func (s *JsonFileSource) Name() string {
	return fmt.Sprintf("JsonFile(%s)", s.Path)
}

func (s *JsonFileSource) Load() (map[string]any, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if s.Optional && os.IsNotExist(err) {
			return make(map[string]any), nil
		}
		return nil, err
	}
	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("config: JSON 解析失败: %w", err)
	}
	return result, nil
}

// EnvSource 环境变量配置源。前缀剥除后按 "_" 展开为嵌套键，
// 例如 APP_DATABASE_HOST → database:host。
type EnvSource struct {
	Prefix string
}

func (s *EnvSource) Name() string {
	return fmt.Sprintf("Env(%s)", s.Prefix)
}

func (s *EnvSource) Load() (map[string]any, error) {
	result := make(map[string]any)
	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key, value := parts[0], parts[1]
		if s.Prefix != "" {
			if !strings.HasPrefix(key, s.Prefix) {
				continue
			}
			key = strings.TrimPrefix(key, s.Prefix)
			key = strings.TrimPrefix(key, "_")
		}
		if key == "" {
			continue
		}
		segments := strings.Split(strings.ToLower(key), "_")
		current := result
		for i, seg := range segments {
			if i == len(segments)-1 {
				current[seg] = value
				break
			}
			next, ok := current[seg].(map[string]any)
			if !ok {
				next = make(map[string]any)
				current[seg] = next
			}
			current = next
		}
	}
	return result, nil
}

// InMemorySource 内存配置源
type InMemorySource struct {
	Data map[string]any
}

func (s *InMemorySource) Name() string { return "InMemory" }

func (s *InMemorySource) Load() (map[string]any, error) {
	out := make(map[string]any, len(s.Data))
	mergeMaps(out, s.Data)
	return out, nil
}

// EtcdOptions etcd 配置源选项
type EtcdOptions struct {
	Endpoints   []string
	Username    string
	Password    string
	Prefix      string
	Timeout     time.Duration
	DialTimeout time.Duration
}

// EtcdSource etcd 配置源。键在剥除前缀后按 "/" 展开为嵌套键，
// 值按 YAML 解析（纯标量按原样存储）。
type EtcdSource struct {
	Options EtcdOptions
}

func (s *EtcdSource) Name() string {
	return fmt.Sprintf("Etcd(%s)", strings.Join(s.Options.Endpoints, ","))
}

func (s *EtcdSource) Load() (map[string]any, error) {
	opts := s.Options
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}

	client, err := clientv3.New(clientv3.Config{
		Endpoints:   opts.Endpoints,
		Username:    opts.Username,
		Password:    opts.Password,
		DialTimeout: opts.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("config: etcd 连接失败: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "/"
	}
	resp, err := client.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("config: etcd 读取失败: %w", err)
	}

	result := make(map[string]any)
	for _, kv := range resp.Kvs {
		key := strings.TrimPrefix(string(kv.Key), prefix)
		key = strings.Trim(key, "/")
		if key == "" {
			continue
		}
		var value any
		if err := yaml.Unmarshal(kv.Value, &value); err != nil {
			value = string(kv.Value)
		}
		segments := strings.Split(key, "/")
		current := result
		for i, seg := range segments {
			if i == len(segments)-1 {
				current[seg] = value
				break
			}
			next, ok := current[seg].(map[string]any)
			if !ok {
				next = make(map[string]any)
				current[seg] = next
			}
			current = next
		}
	}
	return result, nil
}
