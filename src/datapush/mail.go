package datapush

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net/smtp"
	"os"
	"strings"

	"github.com/jordan-wright/email"

	"BikeSharing/src/config"
)

// ErrMailNotConfigured 缺少 SMTP 服务器或收件人
var ErrMailNotConfigured = errors.New("未配置邮件发送")

// Mailer 通过 SMTP 发送报表
type Mailer struct {
	server   string
	username string
	password string
	to       []string
	subject  string
}

func NewMailer(c *config.Config) *Mailer {
	return &Mailer{
		server:   c.SendEmail.Server,
		username: c.SendEmail.Username,
		password: c.SendEmail.Password,
		to:       c.SendEmail.To,
		subject:  c.SendEmail.Subject,
	}
}

// Message 组装邮件，attachment 为空时不带附件
func (m *Mailer) Message(title, text, attachment string) (*email.Email, error) {
	if m.server == "" || len(m.to) == 0 {
		return nil, ErrMailNotConfigured
	}

	e := email.NewEmail()
	e.From = fmt.Sprintf("BikeSharing <%s>", m.username)
	e.To = m.to
	e.Subject = title
	if m.subject != "" {
		e.Subject = m.subject
	}
	e.Text = []byte(text)

	// 添加附件
	if attachment != "" {
		if _, err := os.Stat(attachment); err != nil {
			return nil, fmt.Errorf("附件文件不存在: %s", attachment)
		}
		if _, err := e.AttachFile(attachment); err != nil {
			return nil, fmt.Errorf("附件添加失败: %v", err)
		}
	}
	return e, nil
}

// Send 发送邮件（显式 TLS）
func (m *Mailer) Send(title, text, attachment string) error {
	e, err := m.Message(title, text, attachment)
	if err != nil {
		return err
	}

	// 确保服务器地址包含端口
	smtpAddr := m.server
	if !strings.Contains(smtpAddr, ":") {
		smtpAddr += ":465" // 默认 SSL 端口
	}
	host := strings.Split(smtpAddr, ":")[0]

	err = e.SendWithTLS(
		smtpAddr,
		smtp.PlainAuth("", m.username, m.password, host),
		&tls.Config{ServerName: host},
	)
	if err != nil {
		return fmt.Errorf("邮件发送失败: %v (Server: %s)", err, smtpAddr)
	}
	return nil
}
