package delivery

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"

	"github.com/emersion/go-message/mail"
)

// SMTPChannel 通过 SMTP 投递，正文为 text/html 双格式的 MIME 邮件
type SMTPChannel struct {
	host     string
	port     int
	username string
	password string
	now      func() time.Time
}

// Ensure SMTPChannel implements Channel
var _ Channel = (*SMTPChannel)(nil)

// NewSMTPChannel 创建 SMTP 通道
func NewSMTPChannel(host string, port int, username, password string) *SMTPChannel {
	return &SMTPChannel{host: host, port: port, username: username, password: password, now: time.Now}
}

// Name implements Channel
func (c *SMTPChannel) Name() string { return "smtp" }

// AcceptedCode DATA 结束后服务器返回 250 表示已接受
func (c *SMTPChannel) AcceptedCode() int { return 250 }

// Send implements Channel
func (c *SMTPChannel) Send(ctx context.Context, msg *Message) (*Receipt, error) {
	body, err := buildMIME(msg, c.now())
	if err != nil {
		return nil, fmt.Errorf("build mime: %w", err)
	}

	addr := net.JoinHostPort(c.host, strconv.Itoa(c.port))
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, c.host)
	if err != nil {
		conn.Close()
		return nil, err
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: c.host}); err != nil {
			return nil, err
		}
	}
	if c.username != "" {
		if err := client.Auth(smtp.PlainAuth("", c.username, c.password, c.host)); err != nil {
			return rejected(err)
		}
	}

	if err := client.Mail(msg.From); err != nil {
		return rejected(err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		return rejected(err)
	}
	w, err := client.Data()
	if err != nil {
		return rejected(err)
	}
	if _, err := w.Write(body); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return rejected(err)
	}
	_ = client.Quit()

	return &Receipt{StatusCode: c.AcceptedCode()}, nil
}

// rejected 服务器明确拒绝时转为回执，其余错误视为传输失败
func rejected(err error) (*Receipt, error) {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		return &Receipt{StatusCode: protoErr.Code, Body: protoErr.Msg}, nil
	}
	return nil, err
}

// buildMIME 生成 multipart/alternative 邮件
func buildMIME(msg *Message, now time.Time) ([]byte, error) {
	var h mail.Header
	h.SetDate(now)
	h.SetAddressList("From", []*mail.Address{{Name: msg.FromName, Address: msg.From}})
	h.SetAddressList("To", []*mail.Address{{Address: msg.To}})
	h.SetSubject(msg.Subject)
	if err := h.GenerateMessageID(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, err
	}
	tw, err := mw.CreateInline()
	if err != nil {
		return nil, err
	}

	parts := []struct {
		contentType string
		body        string
	}{
		{"text/plain", msg.Text},
		{"text/html", msg.HTML},
	}
	for _, p := range parts {
		if p.body == "" {
			continue
		}
		var ph mail.InlineHeader
		ph.SetContentType(p.contentType, map[string]string{"charset": "utf-8"})
		pw, err := tw.CreatePart(ph)
		if err != nil {
			return nil, err
		}
		if _, err := io.WriteString(pw, p.body); err != nil {
			return nil, err
		}
		if err := pw.Close(); err != nil {
			return nil, err
		}
	}

	if err := tw.Close(); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
