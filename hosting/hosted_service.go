package hosting

import (
	"context"
	"fmt"
	"sync"

	"github.com/gocrud/beans/logging"
)

// HostedService 具有启动和停止生命周期的托管服务。
// 实现该接口的单例 bean 会被应用层发现并托管。
type HostedService interface {
	// Start 启动服务。框架在独立 goroutine 中调用，允许阻塞；
	// context 取消时服务应自行退出。
	Start(ctx context.Context) error

	// Stop 优雅关闭，必须尊重 ctx 的超时。
	Stop(ctx context.Context) error
}

// Manager 托管服务管理器：并发启动、并发停止
type Manager struct {
	mu       sync.Mutex
	services []HostedService
	wg       sync.WaitGroup
	logger   logging.Logger
}

// NewManager 创建托管服务管理器
func NewManager(logger logging.Logger) *Manager {
	return &Manager{logger: logger}
}

// Add 添加托管服务
func (m *Manager) Add(service HostedService) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services = append(m.services, service)
}

// Count 托管服务个数
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.services)
}

// StartAll 并发启动全部服务，返回聚合错误通道。
// 正常的 context 取消不计入错误。
func (m *Manager) StartAll(ctx context.Context) <-chan error {
	m.mu.Lock()
	services := append([]HostedService(nil), m.services...)
	m.mu.Unlock()

	errCh := make(chan error, len(services))
	m.logger.Info("启动托管服务", logging.Field{Key: "count", Value: len(services)})

	for i, service := range services {
		m.wg.Add(1)
		go func(index int, svc HostedService) {
			defer m.wg.Done()
			if err := svc.Start(ctx); err != nil {
				if err == context.Canceled || err == context.DeadlineExceeded {
					return
				}
				m.logger.Error(fmt.Sprintf("托管服务 %d 退出", index+1),
					logging.Field{Key: "error", Value: err.Error()})
				select {
				case errCh <- err:
				default:
				}
			}
		}(i, service)
	}
	return errCh
}

// StopAll 并发停止全部服务：按逆序发起各 Stop 调用并等待全部返回，完成顺序不固定
func (m *Manager) StopAll(ctx context.Context) error {
	m.mu.Lock()
	services := append([]HostedService(nil), m.services...)
	m.mu.Unlock()

	var wg sync.WaitGroup
	for i := len(services) - 1; i >= 0; i-- {
		wg.Add(1)
		go func(index int, svc HostedService) {
			defer wg.Done()
			if err := svc.Stop(ctx); err != nil {
				m.logger.Error(fmt.Sprintf("停止托管服务 %d 失败", index+1),
					logging.Field{Key: "error", Value: err.Error()})
			}
		}(i, services[i])
	}
	wg.Wait()
	return nil
}

// Wait 等待全部 Start goroutine 退出
func (m *Manager) Wait() {
	m.wg.Wait()
}

// FuncService 将函数适配为托管服务
type FuncService struct {
	Run func(ctx context.Context) error
}

func (s *FuncService) Start(ctx context.Context) error {
	return s.Run(ctx)
}

func (s *FuncService) Stop(ctx context.Context) error { return nil }
