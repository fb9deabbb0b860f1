package level3

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/payline-next/internal/constants"
	"github.com/payline-next/internal/models"
)

// LineItem 提交给处理器的单个 Level 3 行项目，金额均为最小货币单位。
type LineItem struct {
	ProductCode        string `json:"product_code"`
	ProductDescription string `json:"product_description"`
	UnitCost           int64  `json:"unit_cost"`
	Quantity           int64  `json:"quantity"`
	TaxAmount          int64  `json:"tax_amount"`
	DiscountAmount     int64  `json:"discount_amount"`
}

// Data 随支付意图提交的 Level 3 数据。零值表示商户不适用。
type Data struct {
	MerchantReference  string     `json:"merchant_reference,omitempty"`
	ShippingAmount     int64      `json:"shipping_amount"`
	ShippingAddressZip string     `json:"shipping_address_zip,omitempty"`
	ShippingFromZip    string     `json:"shipping_from_zip,omitempty"`
	LineItems          []LineItem `json:"line_items,omitempty"`
}

// IsZero 判断是否为空结果
func (d Data) IsZero() bool {
	return len(d.LineItems) == 0 && d.ShippingAmount == 0 && d.MerchantReference == ""
}

// Audit 返回用于审计日志的概要字段
func (d Data) Audit() map[string]interface{} {
	if d.IsZero() {
		return map[string]interface{}{}
	}
	out := map[string]interface{}{
		"line_items":      len(d.LineItems),
		"shipping_amount": d.ShippingAmount,
	}
	if d.ShippingAddressZip != "" {
		out["shipping_address_zip"] = d.ShippingAddressZip
	}
	if d.ShippingFromZip != "" {
		out["shipping_from_zip"] = d.ShippingFromZip
	}
	return out
}

// Builder 由订单构造 Level 3 数据。
// 仅在商户账户国家满足卡组织要求时生效，其余情况静默返回空结果。
type Builder struct {
	accountCountry string
	storePostcode  string
}

// NewBuilder 创建构造器
func NewBuilder(accountCountry, storePostcode string) *Builder {
	return &Builder{accountCountry: accountCountry, storePostcode: storePostcode}
}

// Build 构造订单的 Level 3 数据。
// 行项目数据缺失（无价格）按零处理，不阻断支付流程。
func (b *Builder) Build(order *models.Order) Data {
	if order == nil || b.accountCountry != constants.Level3QualifyingCountry {
		return Data{}
	}

	items := make([]LineItem, 0, len(order.Items)+len(order.Fees))
	for _, item := range order.Items {
		items = append(items, buildLineItem(item))
	}
	for _, fee := range order.Fees {
		items = append(items, LineItem{
			ProductCode:        clipCode(fee.Name),
			ProductDescription: fee.Name,
			UnitCost:           fee.Total.MinorUnits(),
			Quantity:           1,
			TaxAmount:          fee.Tax.MinorUnits(),
		})
	}
	items = bundleOverflow(items)

	data := Data{
		MerchantReference: order.OrderNo,
		ShippingAmount:    order.ShippingTotal.Decimal.Add(order.ShippingTax.Decimal).Shift(2).Round(0).IntPart(),
		LineItems:         items,
	}
	// 目的地邮编只随境内订单提交；发货地邮编要求商户与目的地两端都合规
	if order.ShippingCountry == constants.Level3QualifyingCountry {
		data.ShippingAddressZip = order.ShippingPostcode
		data.ShippingFromZip = b.storePostcode
	}
	return data
}

func buildLineItem(item models.OrderItem) LineItem {
	trueQty := item.Quantity
	if trueQty.IsZero() {
		trueQty = decimal.NewFromInt(1)
	}
	// 上报数量向下取整，最低为 1
	reportedQty := item.Quantity.Floor().IntPart()
	if reportedQty < 1 {
		reportedQty = 1
	}

	unitPrice := item.Subtotal.Decimal.Div(trueQty)
	unitCost := unitPrice.Shift(2).Round(0).IntPart()
	var discount int64
	if unitCost < 0 {
		// 负单价转为折扣金额，单价上报 0，不允许负值上行
		discount = unitPrice.Neg().Mul(trueQty).Shift(2).Round(0).IntPart()
		unitCost = 0
	}

	return LineItem{
		ProductCode:        productCode(item),
		ProductDescription: item.Name,
		UnitCost:           unitCost,
		Quantity:           reportedQty,
		TaxAmount:          item.TotalTax.MinorUnits(),
		DiscountAmount:     discount,
	}
}

// productCode 规格 ID 优先，其次商品 ID，最后回退商品名称。
// 数字 ID 超出处理器位宽时整体透传，仅名称做截断。
func productCode(item models.OrderItem) string {
	if item.VariationID > 0 {
		return strconv.FormatUint(uint64(item.VariationID), 10)
	}
	if item.ProductID > 0 {
		return strconv.FormatUint(uint64(item.ProductID), 10)
	}
	return clipCode(item.Name)
}

func clipCode(name string) string {
	if len(name) <= constants.Level3ProductCodeMaxLen {
		return name
	}
	// 按字符截断，避免把多字节字符切到一半。
	runes := []rune(name)
	if len(runes) > constants.Level3ProductCodeMaxLen {
		runes = runes[:constants.Level3ProductCodeMaxLen]
	}
	return string(runes)
}

// bundleOverflow 处理器单次最多接受 200 个行项目。超出时保留前 199 个，
// 其余折叠为一个合成项，总数不超过 200。
func bundleOverflow(items []LineItem) []LineItem {
	if len(items) <= constants.Level3MaxLineItems {
		return items
	}

	keep := constants.Level3MaxLineItems - 1
	bundle := LineItem{Quantity: 1}
	for _, item := range items[keep:] {
		bundle.UnitCost += item.UnitCost * item.Quantity
		bundle.TaxAmount += item.TaxAmount
		bundle.DiscountAmount += item.DiscountAmount
	}
	bundle.ProductDescription = fmt.Sprintf("%d more items", len(items)-keep)
	bundle.ProductCode = clipCode(bundle.ProductDescription)

	return append(items[:keep:keep], bundle)
}
