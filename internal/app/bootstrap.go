package app

import (
	"context"
	"errors"

	"github.com/dujiao-next/chip-gateway/internal/config"
	"github.com/dujiao-next/chip-gateway/internal/provider"
	"github.com/dujiao-next/chip-gateway/internal/router"
	"github.com/dujiao-next/chip-gateway/internal/worker"
)

const (
	chipHTTPServiceName  = "chip-http"
	containerServiceName = "container"
)

// BuildRunner 构建服务运行器
func BuildRunner(cfg *config.Config, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if mode == ModeWorker && !cfg.Queue.Enabled {
		return nil, errors.New("worker mode requires queue.enabled")
	}

	container := provider.NewContainer(cfg, nil)

	// 容器最先注册，在 HTTP 与 worker 都停止后才释放外部连接
	services := []Service{&containerService{container: container}}

	// 初始化 HTTP 服务
	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		addr := cfg.Server.Host + ":" + cfg.Server.Port
		services = append(services, NewHTTPService(chipHTTPServiceName, addr, engine))
	}

	// 初始化 Worker 服务，队列未启用时支付成功后续处理在对账中同步执行
	if (mode == ModeAll || mode == ModeWorker) && cfg.Queue.Enabled {
		consumer := worker.NewConsumer(container)
		workerService, err := worker.NewService(&cfg.Queue, consumer)
		if err != nil {
			container.Close()
			return nil, err
		}
		services = append(services, workerService)
	}

	if len(services) == 1 {
		container.Close()
		return nil, errors.New("no services initialized (check mode and config)")
	}
	return NewRunner(services...), nil
}

// containerService 在停止阶段释放容器持有的外部连接
type containerService struct {
	container *provider.Container
}

func (s *containerService) Name() string { return containerServiceName }

func (s *containerService) Start(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (s *containerService) Stop(_ context.Context) error {
	s.container.Close()
	return nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}
	if !isValidMode(opts.Mode) {
		return errors.New("unknown mode: " + opts.Mode)
	}

	runner, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}

	addr := opts.Config.Server.Host + ":" + opts.Config.Server.Port
	opts.Logger.Infow("app_start", "addr", addr, "mode", opts.Mode)
	return RunWithOptions(runner, opts)
}
