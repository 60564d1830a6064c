package server

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/robfig/cron/v3"

	"github.com/iWorld-y/market_radar/app/display/internal/conf"
	"github.com/iWorld-y/market_radar/app/display/internal/usecase"
)

var _ transport.Server = (*CronServer)(nil)

// CronServer 按计划执行完整分析流程
type CronServer struct {
	cron      *cron.Cron
	spec      string
	recipient string
	uc        *usecase.MarketUseCase
	log       *log.Helper
}

func NewCronServer(c *conf.Server, uc *usecase.MarketUseCase, logger log.Logger) *CronServer {
	s := &CronServer{
		cron: cron.New(),
		uc:   uc,
		log:  log.NewHelper(logger),
	}
	if c.Cron != nil {
		s.spec = c.Cron.Spec
		s.recipient = c.Cron.Recipient
	}
	return s
}

// Start 注册任务并启动调度，未配置计划时直接返回
func (s *CronServer) Start(ctx context.Context) error {
	if s.spec == "" {
		s.log.Info("cron schedule not configured, scheduled runs disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(s.spec, s.runOnce); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Infof("scheduled runs enabled: %s", s.spec)
	return nil
}

// Stop 停止调度并等待进行中的任务结束
func (s *CronServer) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("cron stop timed out, a run may still be in progress")
	}
	return nil
}

func (s *CronServer) runOnce() {
	res := s.uc.Run(context.Background(), s.recipient)
	if res.Delivery != nil && res.Delivery.Error != "" {
		s.log.Warnf("scheduled run %s delivery failed: %s", res.RunID, res.Delivery.Error)
	}
}
