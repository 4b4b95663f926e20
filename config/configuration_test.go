package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestInMemoryAndPathLookup(t *testing.T) {
	cfg, err := NewBuilder().AddInMemory(map[string]any{
		"app": map[string]any{
			"name": "demo",
			"port": 8080,
		},
		"debug": true,
	}).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if cfg.Get("app:name") != "demo" {
		t.Errorf("Get(app:name) = %q", cfg.Get("app:name"))
	}
	if cfg.Get("app.name") != "demo" {
		t.Error("点分隔路径应等价")
	}
	if n, err := cfg.GetInt("app:port"); err != nil || n != 8080 {
		t.Errorf("GetInt = %d, %v", n, err)
	}
	if b, err := cfg.GetBool("debug"); err != nil || !b {
		t.Errorf("GetBool = %v, %v", b, err)
	}
	if cfg.GetWithDefault("missing", "dft") != "dft" {
		t.Error("缺失键应返回默认值")
	}
}

func TestSourcePrecedence(t *testing.T) {
	cfg, _ := NewBuilder().
		AddInMemory(map[string]any{"a": "first", "keep": "yes"}).
		AddInMemory(map[string]any{"a": "second"}).
		Build()

	if cfg.Get("a") != "second" {
		t.Error("后添加的配置源应覆盖先添加的")
	}
	if cfg.Get("keep") != "yes" {
		t.Error("未覆盖的键应保留")
	}
}

func TestYamlFileSourceAndBind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.yaml")
	content := "server:\n  host: localhost\n  port: 9090\n  timeout: 5s\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewBuilder().AddYamlFile(path).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	type serverSettings struct {
		Host    string        `yaml:"host"`
		Port    int           `yaml:"port"`
		Timeout time.Duration `yaml:"timeout"`
	}
	var settings serverSettings
	if err := cfg.Bind("server", &settings); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	if settings.Host != "localhost" || settings.Port != 9090 || settings.Timeout != 5*time.Second {
		t.Errorf("settings = %+v", settings)
	}

	if d, err := cfg.GetDuration("server:timeout"); err != nil || d != 5*time.Second {
		t.Errorf("GetDuration = %v, %v", d, err)
	}
}

func TestOptionalFileMissing(t *testing.T) {
	if _, err := NewBuilder().AddYamlFile("/no/such/file.yaml", true).Build(); err != nil {
		t.Errorf("可选文件缺失不应报错: %v", err)
	}
	if _, err := NewBuilder().AddYamlFile("/no/such/file.yaml").Build(); err == nil {
		t.Error("必需文件缺失应报错")
	}
}

func TestEnvSourceNesting(t *testing.T) {
	t.Setenv("BEANS_SERVER_HOST", "envhost")
	cfg, err := NewBuilder().AddEnv("BEANS").Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if cfg.Get("server:host") != "envhost" {
		t.Errorf("环境变量应展开为嵌套键, got %q", cfg.Get("server:host"))
	}
}

func TestGetSection(t *testing.T) {
	cfg, _ := NewBuilder().AddInMemory(map[string]any{
		"db": map[string]any{"host": "h", "port": 5432},
	}).Build()

	section := cfg.GetSection("db")
	if section.Get("host") != "h" {
		t.Error("配置节读取失败")
	}
	empty := cfg.GetSection("nope")
	if empty.Get("anything") != "" {
		t.Error("缺失节应为空配置")
	}
}
