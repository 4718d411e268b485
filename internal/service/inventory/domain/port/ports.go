// internal/service/inventory/domain/port/ports.go
package port

import (
	"context"

	"github.com/google/uuid"
)

// EventPublisher 把聚合状态变更的事实交给出站事件流。
// 实现方负责持久化与按聚合有序的投递。
type EventPublisher interface {
	Publish(ctx context.Context, aggregateID uuid.UUID, eventType string, payload map[string]any) error
}

// Fact 是低库存规则评估的输入
type Fact struct {
	SKU       string `json:"sku"`
	Available int    `json:"available"`
	Reserved  int    `json:"reserved"`
	Threshold int    `json:"threshold"`
}

// RuleEngine 评估一条告警规则表达式是否命中
type RuleEngine interface {
	Evaluate(rule string, fact Fact) (bool, error)
}

// LowStockAlert 是推送给运营端的低库存告警
type LowStockAlert struct {
	SKU       string `json:"sku"`
	Available int    `json:"available"`
	Threshold int    `json:"threshold"`
}

// AlertNotifier 把告警推送出去（WebSocket 运营端、日志等）
type AlertNotifier interface {
	Notify(ctx context.Context, alert LowStockAlert)
}

// AvailabilityCache 缓存 SKU 的可用量，读多写少的查询走缓存
type AvailabilityCache interface {
	Get(ctx context.Context, sku string) (int, bool, error)
	Set(ctx context.Context, sku string, available int) error
	Invalidate(ctx context.Context, skus ...string) error
}
