package delivery

import (
	"context"
	"fmt"

	"github.com/iWorld-y/market_radar/app/market_radar/pkg/config"
)

// Message 一封待投递的报告邮件
type Message struct {
	FromName string
	From     string
	To       string
	Subject  string
	HTML     string
	Text     string
}

// Receipt 通道返回的回执
type Receipt struct {
	StatusCode int
	Body       string
}

// Channel 定义通用的投递通道接口
type Channel interface {
	// Name 通道名称，用于日志
	Name() string
	// AcceptedCode 通道表示“已接受”的状态码
	AcceptedCode() int
	// Send 投递一次，不做重试
	Send(ctx context.Context, msg *Message) (*Receipt, error)
}

// NewChannel 根据配置创建投递通道
func NewChannel(cfg config.DeliveryConfig) (Channel, error) {
	switch cfg.Provider {
	case "", "sendgrid":
		return NewSendGridChannel(cfg.APIKey), nil
	case "smtp":
		if cfg.SMTP.Host == "" {
			return nil, fmt.Errorf("smtp host is missing")
		}
		return NewSMTPChannel(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.APIKey), nil
	default:
		return nil, fmt.Errorf("unknown delivery provider: %s", cfg.Provider)
	}
}
