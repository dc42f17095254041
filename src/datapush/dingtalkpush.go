package datapush

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// 默认重试参数
const (
	RETRY_TIMES    = 3
	RETRY_INTERVAL = 2 * time.Second
)

// ErrPushNotConfigured 未配置 webhook
var ErrPushNotConfigured = errors.New("未配置推送地址")

// DingTalkResponse 钉钉机器人响应
type DingTalkResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// markdownMessage 机器人 markdown 消息体
type markdownMessage struct {
	MsgType  string `json:"msgtype"`
	Markdown struct {
		Title string `json:"title"`
		Text  string `json:"text"`
	} `json:"markdown"`
}

// Pusher 把报表摘要推送到群机器人
type Pusher struct {
	webhook       string
	retryTimes    int
	retryInterval time.Duration
	client        *http.Client
}

// NewPusher 创建推送器，times 不大于零或 interval 为负时使用默认值
func NewPusher(webhook string, times int, interval time.Duration) *Pusher {
	if times <= 0 {
		times = RETRY_TIMES
	}
	if interval < 0 {
		interval = RETRY_INTERVAL
	}
	return &Pusher{
		webhook:       webhook,
		retryTimes:    times,
		retryInterval: interval,
		client:        &http.Client{Timeout: 10 * time.Second},
	}
}

// PushMarkdown 发送 markdown 消息，失败按配置重试
func (p *Pusher) PushMarkdown(ctx context.Context, title, text string) error {
	if p.webhook == "" {
		return ErrPushNotConfigured
	}

	msg := markdownMessage{MsgType: "markdown"}
	msg.Markdown.Title = title
	msg.Markdown.Text = text
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("序列化消息失败: %v", err)
	}

	return retry(func() error {
		return p.send(ctx, payload)
	}, p.retryTimes, p.retryInterval)
}

func (p *Pusher) send(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.webhook, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("创建请求失败: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("发送请求失败: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应失败: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("推送失败: HTTP %d", resp.StatusCode)
	}

	var result DingTalkResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("解析响应失败: %v", err)
	}
	if result.ErrCode != 0 {
		return fmt.Errorf("推送失败: %s", result.ErrMsg)
	}
	return nil
}

// 重试函数
func retry(fn func() error, times int, interval time.Duration) error {
	var err error
	for i := 0; i < times; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < times-1 {
			time.Sleep(interval)
		}
	}
	return fmt.Errorf("重试 %d 次后失败: %v", times, err)
}
