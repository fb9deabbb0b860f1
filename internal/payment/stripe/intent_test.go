package stripe

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/payline-next/internal/constants"
	"github.com/payline-next/internal/payment/flow"
	"github.com/payline-next/internal/payment/level3"
)

func buildContext() *flow.PaymentContext {
	ctx := flow.NewPaymentContext(42, "PL-1042")
	ctx.SetAmount(1250)
	ctx.SetCurrency("USD")
	ctx.SetCustomerID("cus_abc")
	ctx.SetCaptureAutomatic(true)
	ctx.SetPaymentMethod(flow.NewCardPaymentMethod("pm_123"))
	ctx.SetMetadata(map[string]string{MetadataKeyOrderID: "42"})
	ctx.TransitionTo(constants.PaymentStatePreparing)
	return ctx
}

func TestBuildIntentFormCopiesFields(t *testing.T) {
	form := BuildIntentForm(buildContext())
	if form.Get("amount") != "1250" {
		t.Fatalf("amount mismatch: %q", form.Get("amount"))
	}
	if form.Get("currency") != "usd" {
		t.Fatalf("currency must be lowercase: %q", form.Get("currency"))
	}
	if form.Get("customer") != "cus_abc" {
		t.Fatalf("customer mismatch: %q", form.Get("customer"))
	}
	if form.Get("metadata[order_id]") != "42" {
		t.Fatalf("metadata mismatch: %q", form.Get("metadata[order_id]"))
	}
	if form.Get("payment_method_types[]") != "card" {
		t.Fatalf("payment_method_types must be card: %q", form.Get("payment_method_types[]"))
	}
	if form.Get("confirm") != "true" {
		t.Fatalf("intent must be confirmed on creation")
	}
}

func TestBuildIntentFormCaptureMethodInverse(t *testing.T) {
	ctx := buildContext()
	form := BuildIntentForm(ctx)
	if form.Get("capture_method") != constants.CaptureMethodAutomatic {
		t.Fatalf("capture-automatic must map to automatic: %q", form.Get("capture_method"))
	}

	ctx.SetCaptureAutomatic(false)
	ctx.Commit()
	form = BuildIntentForm(ctx)
	if form.Get("capture_method") != constants.CaptureMethodManual {
		t.Fatalf("deferred capture must map to manual: %q", form.Get("capture_method"))
	}
}

func TestBuildIntentFormUnwrapsPaymentMethod(t *testing.T) {
	ctx := buildContext()
	if got := BuildIntentForm(ctx).Get("payment_method"); got != "pm_123" {
		t.Fatalf("new card token must unwrap bare: %q", got)
	}

	ctx.SetPaymentMethod(flow.SavedPaymentMethod("src_456"))
	ctx.Commit()
	if got := BuildIntentForm(ctx).Get("payment_method"); got != "src_456" {
		t.Fatalf("saved id must unwrap bare: %q", got)
	}
}

func TestBuildIntentFormFingerprintNeverAbsent(t *testing.T) {
	form := BuildIntentForm(buildContext())
	if _, ok := form["metadata[fingerprint]"]; !ok {
		t.Fatalf("fingerprint field must always be present")
	}
	if form.Get("metadata[fingerprint]") != "" {
		t.Fatalf("missing fingerprint must encode as empty string")
	}

	ctx := buildContext()
	ctx.SetFingerprint("fp_xyz")
	ctx.Commit()
	if got := BuildIntentForm(ctx).Get("metadata[fingerprint]"); got != "fp_xyz" {
		t.Fatalf("fingerprint must pass through: %q", got)
	}
}

func TestBuildIntentFormEncodesLevel3(t *testing.T) {
	ctx := buildContext()
	ctx.SetLevel3Data(level3.Data{
		MerchantReference:  "PL-1042",
		ShippingAmount:     545,
		ShippingAddressZip: "94103",
		LineItems: []level3.LineItem{
			{ProductCode: "10", ProductDescription: "Widget", UnitCost: 1000, Quantity: 2, TaxAmount: 80},
		},
	})
	ctx.Commit()
	form := BuildIntentForm(ctx)

	if form.Get("level3[merchant_reference]") != "PL-1042" {
		t.Fatalf("missing merchant reference")
	}
	if form.Get("level3[shipping_amount]") != "545" {
		t.Fatalf("missing shipping amount")
	}
	if form.Get("level3[line_items][0][unit_cost]") != "1000" {
		t.Fatalf("missing line item unit cost")
	}
	if form.Get("level3[line_items][0][quantity]") != "2" {
		t.Fatalf("missing line item quantity")
	}
	if _, ok := form["level3[shipping_from_zip]"]; ok {
		t.Fatalf("absent from-zip must not be encoded")
	}
}

func TestIntentMetadataOrderID(t *testing.T) {
	intent := &Intent{Metadata: map[string]string{MetadataKeyOrderID: "42"}}
	if intent.MetadataOrderID() != 42 {
		t.Fatalf("expected 42, got %d", intent.MetadataOrderID())
	}
	if (&Intent{}).MetadataOrderID() != 0 {
		t.Fatalf("missing metadata must yield 0")
	}
	if (&Intent{Metadata: map[string]string{MetadataKeyOrderID: "abc"}}).MetadataOrderID() != 0 {
		t.Fatalf("non-numeric metadata must yield 0")
	}
}

func TestIntentIsAuthorized(t *testing.T) {
	for _, status := range constants.AuthorizedIntentStatuses {
		if !(&Intent{Status: status}).IsAuthorized() {
			t.Fatalf("status %q must count as authorized", status)
		}
	}
	for _, status := range []string{constants.IntentStatusRequiresPaymentMethod, constants.IntentStatusCanceled, ""} {
		if (&Intent{Status: status}).IsAuthorized() {
			t.Fatalf("status %q must not count as authorized", status)
		}
	}
}

func TestMinorAmount(t *testing.T) {
	minor, err := MinorAmount(decimal.NewFromFloat(12.50), "USD")
	if err != nil || minor != 1250 {
		t.Fatalf("expected 1250, got %d err=%v", minor, err)
	}
	minor, err = MinorAmount(decimal.NewFromInt(500), "JPY")
	if err != nil || minor != 500 {
		t.Fatalf("zero-decimal currency must not shift, got %d err=%v", minor, err)
	}
	if _, err := MinorAmount(decimal.Zero, "USD"); err == nil {
		t.Fatalf("zero amount must be rejected")
	}
}
