package application

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"marketplace/internal/service/inventory/domain"
	"marketplace/internal/service/inventory/domain/port"
	"marketplace/internal/service/inventory/infrastructure"
	"marketplace/internal/service/inventory/infrastructure/rule"
)

type captureNotifier struct {
	alerts []port.LowStockAlert
}

func (n *captureNotifier) Notify(_ context.Context, alert port.LowStockAlert) {
	n.alerts = append(n.alerts, alert)
}

func TestLowStockMonitor_Check(t *testing.T) {
	stocks := infrastructure.NewMemoryStockRepository()
	low, _ := domain.NewStockItem("sku-low", uuid.New(), 2, 5)
	healthy, _ := domain.NewStockItem("sku-ok", uuid.New(), 50, 5)
	stocks.Save(context.Background(), low)
	stocks.Save(context.Background(), healthy)

	engine, err := rule.NewCelEngine()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	notifier := &captureNotifier{}
	monitor := NewLowStockMonitor(stocks, engine, notifier, "available <= threshold")

	monitor.Check(context.Background())

	if len(notifier.alerts) != 1 {
		t.Fatalf("Expected 1 alert, got %d", len(notifier.alerts))
	}
	if notifier.alerts[0].SKU != "sku-low" {
		t.Errorf("Expected alert for sku-low, got %s", notifier.alerts[0].SKU)
	}
}

// flakyRules 对指定 SKU 评估失败，其余按默认阈值判断
type flakyRules struct {
	failSKU string
}

func (r *flakyRules) Evaluate(_ string, fact port.Fact) (bool, error) {
	if fact.SKU == r.failSKU {
		return false, errors.New("simulated evaluation failure")
	}
	return fact.Available <= fact.Threshold, nil
}

func TestLowStockMonitor_Check_EvaluationFailureIsolation(t *testing.T) {
	stocks := infrastructure.NewMemoryStockRepository()
	for _, sku := range []string{"sku-a", "sku-b", "sku-c"} {
		item, _ := domain.NewStockItem(sku, uuid.New(), 2, 5)
		stocks.Save(context.Background(), item)
	}

	notifier := &captureNotifier{}
	monitor := NewLowStockMonitor(stocks, &flakyRules{failSKU: "sku-a"}, notifier, "available <= threshold")

	monitor.Check(context.Background())

	// 一个条目评估失败，其余低库存条目仍然要告警
	if len(notifier.alerts) != 2 {
		t.Fatalf("Expected 2 alerts, got %d", len(notifier.alerts))
	}
	got := map[string]bool{}
	for _, alert := range notifier.alerts {
		got[alert.SKU] = true
	}
	if !got["sku-b"] || !got["sku-c"] {
		t.Errorf("Expected alerts for sku-b and sku-c, got %v", notifier.alerts)
	}
}

func TestLowStockMonitor_Check_CustomRule(t *testing.T) {
	stocks := infrastructure.NewMemoryStockRepository()
	item, _ := domain.NewStockItem("sku-1", uuid.New(), 8, 2)
	item.Reserve(6) // available=2 reserved=6
	stocks.Save(context.Background(), item)

	engine, _ := rule.NewCelEngine()
	notifier := &captureNotifier{}
	// 自定义规则可以用预占量参与判断
	monitor := NewLowStockMonitor(stocks, engine, notifier, "available + reserved < 10")

	monitor.Check(context.Background())

	if len(notifier.alerts) != 1 {
		t.Errorf("Expected 1 alert under custom rule, got %d", len(notifier.alerts))
	}
}
