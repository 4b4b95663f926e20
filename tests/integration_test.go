package tests

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocrud/beans"
	"github.com/gocrud/beans/bean"
	"github.com/gocrud/beans/config"
	"github.com/gocrud/beans/core"
	"github.com/gocrud/beans/web"
	"github.com/stretchr/testify/require"
)

// greetingService 业务服务，经 inject 标签装配
type greetingService struct {
	Settings *appSettings `inject:"appOptions"`
	ready    bool
}

func (s *greetingService) PostConstruct() { s.ready = true }

func (s *greetingService) Greeting() string {
	return fmt.Sprintf("%s from %s", s.Settings.Message, s.Settings.Name)
}

type appSettings struct {
	Name    string `yaml:"name"`
	Message string `yaml:"message"`
}

func TestApplicationEndToEnd(t *testing.T) {
	port := 18321

	builder := beans.NewApplicationBuilder().
		UseEnvironment("development").
		UseShutdownTimeout(3 * time.Second).
		ConfigureConfiguration(func(b *config.Builder) {
			b.AddInMemory(map[string]any{
				"app": map[string]any{
					"name":    "beans-demo",
					"message": "hello",
				},
			})
		}).
		ConfigureBeans(func(f *bean.Factory) {
			f.RegisterDefinition("greetingService",
				bean.DefinitionFor[*greetingService]())
		})

	core.AddOptions[appSettings](builder, "app")

	builder.Configure(web.Configure(func(b *web.Builder) {
		b.UsePort(port)
	}))

	app, err := builder.Build()
	require.NoError(t, err)

	// 路由处理器从容器解析业务服务
	var engine *gin.Engine
	app.GetBean(&engine)
	require.NotNil(t, engine)
	engine.GET("/greet", func(c *gin.Context) {
		var svc *greetingService
		app.GetBean(&svc)
		c.String(http.StatusOK, svc.Greeting())
	})

	var svc *greetingService
	app.GetBean(&svc)
	require.True(t, svc.ready, "PostConstruct 应已执行")
	require.Equal(t, "hello from beans-demo", svc.Greeting())

	done := make(chan error, 1)
	go func() { done <- app.Run() }()

	// 等待 web 主机就绪
	url := fmt.Sprintf("http://127.0.0.1:%d/greet", port)
	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil || resp.StatusCode != http.StatusOK {
			return false
		}
		body = string(data)
		return true
	}, 5*time.Second, 50*time.Millisecond, "web 主机未就绪")
	require.Equal(t, "hello from beans-demo", body)

	require.NoError(t, app.Stop(context.Background()))
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("应用未能停止")
	}
}

func TestFactoryStandaloneUsage(t *testing.T) {
	f := beans.NewFactory()
	require.NoError(t, f.RegisterDefinition("svc",
		beans.Definition[*greetingService]().WithLazyInit()))
	f.RegisterSingleton("appOptions", &appSettings{Name: "n", Message: "m"})

	v, err := bean.Resolve[*greetingService](f)
	require.NoError(t, err)
	require.Equal(t, "m from n", v.Greeting())
}
