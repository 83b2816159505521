// 包 notify 将训练记录推送到 TRMNL Webhook（merge_variables 载荷）。
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-wod-trmnl/internal/model"
)

// Poster 为发送 JSON 的最小接口，由 fetch.Client 实现。
type Poster interface {
	PostJSON(ctx context.Context, url string, body any) error
}

// Payload 为 TRMNL Webhook 请求体。
type Payload struct {
	MergeVariables map[string]any `json:"merge_variables"`
}

// Sender 推送训练记录。
type Sender struct {
	client  Poster
	webhook string
	base    string
	now     func() time.Time
}

// NewSender 创建 Sender；base 为训练页站点，用于生成 url。
func NewSender(client Poster, webhook, base string) *Sender {
	return &Sender{client: client, webhook: webhook, base: base, now: time.Now}
}

// BuildPayload 生成载荷，last_updated 取当前时间（时:分）。
func (s *Sender) BuildPayload(w model.Workout) Payload {
	return Payload{MergeVariables: w.MergeVariables(s.base, s.now())}
}

// Send 推送一次，不做落盘或排队。
func (s *Sender) Send(ctx context.Context, w model.Workout) error {
	if s.webhook == "" {
		return errors.New("webhook url not configured")
	}
	if err := s.client.PostJSON(ctx, s.webhook, s.BuildPayload(w)); err != nil {
		return fmt.Errorf("send %s: %w", w.DateCode, err)
	}
	return nil
}
