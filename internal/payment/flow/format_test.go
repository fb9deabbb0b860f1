package flow

import (
	"strings"
	"testing"

	"github.com/payline-next/internal/constants"
)

func buildLoggedContext() *PaymentContext {
	ctx := NewPaymentContext(42, "PL-1042")
	ctx.SetAmount(1250)
	ctx.SetCurrency("USD")
	ctx.TransitionTo(constants.PaymentStateInitialized)
	ctx.SetAmount(1350)
	ctx.Commit()
	ctx.SetPaymentMethod(NewCardPaymentMethod("pm_123"))
	ctx.SetMetadata(map[string]string{"order_id": "42", "site_url": "https://shop.example"})
	ctx.TransitionTo(constants.PaymentStateProcessing)
	// 无变更迁移，输出中必须整块省略
	ctx.TransitionTo(constants.PaymentStateSucceeded)
	return ctx
}

func TestLogChangesOneBlockPerNonEmptyTransition(t *testing.T) {
	out := LogChanges(buildLoggedContext())

	if !strings.HasPrefix(out, "Payment lifecycle for order PL-1042:\n") {
		t.Fatalf("missing header: %q", out)
	}
	if got := strings.Count(out, "{\n"); got < 3 {
		t.Fatalf("expected at least 3 opened blocks, got %d:\n%s", got, out)
	}
	if !strings.Contains(out, "Payment initialized in 'initialized' {") {
		t.Fatalf("missing initialization block:\n%s", out)
	}
	if !strings.Contains(out, "Changes within 'initialized' {") {
		t.Fatalf("missing within-state block:\n%s", out)
	}
	if !strings.Contains(out, "Transition from 'initialized' to 'processing' {") {
		t.Fatalf("missing transition block:\n%s", out)
	}
	if strings.Contains(out, "'succeeded'") {
		t.Fatalf("zero-change transition must be elided:\n%s", out)
	}
}

func TestLogChangesSetAndChangedLines(t *testing.T) {
	out := LogChanges(buildLoggedContext())
	if !strings.Contains(out, "  Set amount to 1250\n") {
		t.Fatalf("missing Set line:\n%s", out)
	}
	if !strings.Contains(out, `  Set currency to "USD"`) {
		t.Fatalf("strings must be quoted:\n%s", out)
	}
	if !strings.Contains(out, "  Changed amount from 1250 to 1350\n") {
		t.Fatalf("missing Changed line:\n%s", out)
	}
}

func TestLogChangesRendersStructuredValues(t *testing.T) {
	out := LogChanges(buildLoggedContext())
	if !strings.Contains(out, "  Set payment_method to {\n    token: \"pm_123\"\n    type: \"new\"\n  }\n") {
		t.Fatalf("payment method must render as nested block:\n%s", out)
	}
	// 映射按键名排序
	orderIdx := strings.Index(out, "order_id")
	siteIdx := strings.Index(out, "site_url")
	if orderIdx < 0 || siteIdx < 0 || orderIdx > siteIdx {
		t.Fatalf("metadata keys must be sorted:\n%s", out)
	}
}

func TestLogChangesDeterministic(t *testing.T) {
	ctx := buildLoggedContext()
	first := LogChanges(ctx)
	second := LogChanges(ctx)
	if first != second {
		t.Fatalf("output must be byte-identical across calls:\n%s\n---\n%s", first, second)
	}
}
