package delivery

import (
	"context"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridChannel 通过 SendGrid v3 Mail Send 接口投递
type SendGridChannel struct {
	apiKey  string
	baseURL string
}

// Ensure SendGridChannel implements Channel
var _ Channel = (*SendGridChannel)(nil)

// NewSendGridChannel 创建 SendGrid 通道
func NewSendGridChannel(apiKey string) *SendGridChannel {
	return &SendGridChannel{apiKey: apiKey}
}

// WithBaseURL 覆盖接口地址（完整的 mail send URL），用于测试或区域化部署
func (c *SendGridChannel) WithBaseURL(url string) *SendGridChannel {
	c.baseURL = url
	return c
}

// Name implements Channel
func (c *SendGridChannel) Name() string { return "sendgrid" }

// AcceptedCode SendGrid 接受投递时返回 202
func (c *SendGridChannel) AcceptedCode() int { return http.StatusAccepted }

// Send implements Channel
func (c *SendGridChannel) Send(ctx context.Context, msg *Message) (*Receipt, error) {
	// Client 在每次发送时会改写请求体，按次创建以便并发使用
	client := sendgrid.NewSendClient(c.apiKey)
	if c.baseURL != "" {
		client.BaseURL = c.baseURL
	}

	email := mail.NewSingleEmail(
		mail.NewEmail(msg.FromName, msg.From),
		msg.Subject,
		mail.NewEmail("", msg.To),
		msg.Text,
		msg.HTML,
	)

	resp, err := client.SendWithContext(ctx, email)
	if err != nil {
		return nil, err
	}
	return &Receipt{StatusCode: resp.StatusCode, Body: resp.Body}, nil
}
