// internal/service/inventory/application/lowstock.go
package application

import (
	"context"

	"marketplace/internal/pkg/logger"
	"marketplace/internal/service/inventory/domain"
	"marketplace/internal/service/inventory/domain/port"
)

// LowStockMonitor 周期性地评估低库存告警规则并推送告警。
// 规则是一条可配置的表达式（默认 "available <= threshold"），
// 运营可以不改代码调整告警条件。
type LowStockMonitor struct {
	stocks   domain.StockRepository
	rules    port.RuleEngine
	notifier port.AlertNotifier
	rule     string
}

func NewLowStockMonitor(stocks domain.StockRepository, rules port.RuleEngine, notifier port.AlertNotifier, rule string) *LowStockMonitor {
	return &LowStockMonitor{stocks: stocks, rules: rules, notifier: notifier, rule: rule}
}

// Check 执行一轮低库存巡检
func (m *LowStockMonitor) Check(ctx context.Context) {
	items, err := m.stocks.List(ctx)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("failed to list stock items for low stock check")
		return
	}

	alerted := 0
	for _, item := range items {
		fact := port.Fact{
			SKU:       item.SKU,
			Available: item.AvailableQty,
			Reserved:  item.ReservedQty,
			Threshold: item.LowStockThreshold,
		}
		hit, err := m.rules.Evaluate(m.rule, fact)
		if err != nil {
			// 单个条目评估失败不影响其余条目的巡检
			logger.Ctx(ctx).Error().Err(err).Str("rule", m.rule).Str("sku", item.SKU).Msg("low stock rule evaluation failed")
			continue
		}
		if !hit {
			continue
		}

		alerted++
		logger.Ctx(ctx).Warn().
			Str("sku", item.SKU).
			Int("available", item.AvailableQty).
			Int("threshold", item.LowStockThreshold).
			Msg("low stock alert")

		if m.notifier != nil {
			m.notifier.Notify(ctx, port.LowStockAlert{
				SKU:       item.SKU,
				Available: item.AvailableQty,
				Threshold: item.LowStockThreshold,
			})
		}
	}

	if alerted == 0 {
		logger.Ctx(ctx).Debug().Msg("no low stock items found")
	}
}
