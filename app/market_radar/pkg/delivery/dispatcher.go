package delivery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/go-playground/validator/v10"

	"github.com/iWorld-y/market_radar/app/market_radar/pkg/config"
	"github.com/iWorld-y/market_radar/app/market_radar/pkg/logger"
	"github.com/iWorld-y/market_radar/app/market_radar/pkg/model"
	"github.com/iWorld-y/market_radar/app/market_radar/pkg/report"
)

const artifactPrefix = "ai_market_analysis_report_"

// Dispatcher 负责落盘并投递渲染好的报告
type Dispatcher struct {
	cfg      config.DeliveryConfig
	channel  Channel
	renderer *report.Renderer
	validate *validator.Validate
	text     *md.Converter
	now      func() time.Time
}

// Option Dispatcher 选项
type Option func(*Dispatcher)

// WithClock 注入时钟，用于测试
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// NewDispatcher 创建投递器
func NewDispatcher(cfg config.DeliveryConfig, channel Channel, renderer *report.Renderer, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		cfg:      cfg,
		channel:  channel,
		renderer: renderer,
		validate: validator.New(),
		text:     md.NewConverter("", true, nil),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Deliver 将文档写入本地文件并通过通道发送给 destination
func (d *Dispatcher) Deliver(ctx context.Context, document, destination string) *model.DeliveryResult {
	if !d.cfg.DeliveryReady() {
		logger.Log.Warn("投递配置缺失，跳过发送")
		return model.NewDeliveryFailure(model.Fail(model.KindConfigurationMissing, "email delivery credentials or sender address not configured"), "")
	}
	if err := d.validate.Var(destination, "required,email"); err != nil {
		logger.Log.Warnf("收件人地址无效: %q", destination)
		return model.NewDeliveryFailure(model.Fail(model.KindInvalidArgument, "invalid recipient email %q", destination), "")
	}

	now := d.now()
	artifact, err := d.persist(document, now)
	if err != nil {
		logger.Log.Warnf("报告落盘失败: %v", err)
		artifact = ""
	} else {
		logger.Log.Infof("报告已保存: %s", artifact)
	}

	msg := &Message{
		FromName: d.cfg.FromName,
		From:     d.cfg.FromEmail,
		To:       destination,
		Subject:  d.cfg.Subject,
		HTML:     document,
		Text:     d.plainText(document),
	}
	if msg.Subject == "" {
		msg.Subject = config.DefaultSubject
	}

	receipt, err := d.channel.Send(ctx, msg)
	if err != nil {
		logger.Log.WithField("channel", d.channel.Name()).Errorf("邮件发送失败: %v", err)
		return model.NewDeliveryFailure(model.Fail(model.KindTransportFailure, "email send failed: %v", err), artifact)
	}
	if receipt == nil {
		logger.Log.WithField("channel", d.channel.Name()).Error("邮件发送失败: 通道未返回回执")
		return model.NewDeliveryFailure(model.Fail(model.KindTransportFailure, "email send failed: no receipt from %s", d.channel.Name()), artifact)
	}
	if receipt.StatusCode != d.channel.AcceptedCode() {
		logger.Log.WithField("channel", d.channel.Name()).Errorf("邮件被拒绝, status=%d body=%s", receipt.StatusCode, receipt.Body)
		return model.NewDeliveryFailure(model.Fail(model.KindDeliveryRejected, "email send failed with status %d", receipt.StatusCode), artifact)
	}

	logger.Log.WithField("channel", d.channel.Name()).Infof("报告已发送至 %s", destination)
	return model.NewDeliverySuccess(fmt.Sprintf("AI analysis report sent to %s", destination), artifact, d.now())
}

// SendReport 渲染预测结果后投递
func (d *Dispatcher) SendReport(ctx context.Context, env *model.PredictionEnvelope, destination string) *model.DeliveryResult {
	if !d.cfg.DeliveryReady() {
		logger.Log.Warn("投递配置缺失，跳过渲染与发送")
		return model.NewDeliveryFailure(model.Fail(model.KindConfigurationMissing, "email delivery credentials or sender address not configured"), "")
	}
	document, err := d.renderer.Render(env, d.now())
	if err != nil {
		logger.Log.Errorf("报告渲染失败: %v", err)
		return model.NewDeliveryFailure(model.Fail(model.KindRenderFailure, "%v", err), "")
	}
	return d.Deliver(ctx, document, destination)
}

// ArtifactName 生成报告文件名，同一秒内重复调用会得到相同名字
func ArtifactName(at time.Time) string {
	return artifactPrefix + at.Format("20060102_150405") + ".html"
}

func (d *Dispatcher) persist(document string, at time.Time) (string, error) {
	dir := d.cfg.OutputDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, ArtifactName(at))
	if err := os.WriteFile(path, []byte(document), 0644); err != nil {
		return "", err
	}
	return path, nil
}

// plainText 生成纯文本正文，转换失败时只发送 HTML
func (d *Dispatcher) plainText(document string) string {
	text, err := d.text.ConvertString(document)
	if err != nil {
		logger.Log.Debugf("纯文本正文生成失败: %v", err)
		return ""
	}
	return text
}
