package stripe

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/payline-next/internal/constants"
	"github.com/payline-next/internal/payment/flow"
)

// MetadataKeyOrderID Intent 元数据中回指订单的键
const MetadataKeyOrderID = "order_id"

// Intent 处理器侧支付意图。
type Intent struct {
	ID           string
	Status       string
	Amount       int64
	Currency     string
	ClientSecret string
	Metadata     map[string]string
	Raw          map[string]interface{}
}

// MetadataOrderID 返回元数据中记录的订单 ID（缺失为 0）
func (i *Intent) MetadataOrderID() uint {
	if i == nil || len(i.Metadata) == 0 {
		return 0
	}
	id, err := strconv.ParseUint(strings.TrimSpace(i.Metadata[MetadataKeyOrderID]), 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}

// IsAuthorized 判断 Intent 处于可复用的已授权状态
func (i *Intent) IsAuthorized() bool {
	if i == nil {
		return false
	}
	for _, status := range constants.AuthorizedIntentStatuses {
		if i.Status == status {
			return true
		}
	}
	return false
}

// BuildIntentForm 将支付上下文按 1:1 规则映射为创建请求表单。
// 不做任何业务校验；业务规则由调用方负责。
func BuildIntentForm(pc *flow.PaymentContext) url.Values {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(pc.Amount(), 10))
	form.Set("currency", strings.ToLower(pc.Currency()))
	form.Set("payment_method_types[]", "card")
	form.Set("confirm", "true")

	if pc.CustomerID() != "" {
		form.Set("customer", pc.CustomerID())
	}

	// 捕获模式与“自动捕获”取反
	if pc.CaptureAutomatic() {
		form.Set("capture_method", constants.CaptureMethodAutomatic)
	} else {
		form.Set("capture_method", constants.CaptureMethodManual)
	}

	// 支付方式从带标签的取值拆封为裸 token/ID
	method := pc.PaymentMethod()
	switch method.Source() {
	case constants.PaymentMethodSourceNew:
		form.Set("payment_method", method.Token())
	case constants.PaymentMethodSourceSaved:
		form.Set("payment_method", method.SavedID())
	}

	for k, v := range pc.Metadata() {
		form.Set("metadata["+k+"]", v)
	}

	// 指纹始终以字符串提交，缺失时传空串而非省略
	form.Set("metadata[fingerprint]", pc.Fingerprint())

	if token := pc.ConfirmationToken(); token != "" {
		form.Set("confirmation_token", token)
	}

	encodeLevel3(form, pc)
	return form
}

func encodeLevel3(form url.Values, pc *flow.PaymentContext) {
	data := pc.Level3Data()
	if data.IsZero() {
		return
	}
	if data.MerchantReference != "" {
		form.Set("level3[merchant_reference]", data.MerchantReference)
	}
	form.Set("level3[shipping_amount]", strconv.FormatInt(data.ShippingAmount, 10))
	if data.ShippingAddressZip != "" {
		form.Set("level3[shipping_address_zip]", data.ShippingAddressZip)
	}
	if data.ShippingFromZip != "" {
		form.Set("level3[shipping_from_zip]", data.ShippingFromZip)
	}
	for i, item := range data.LineItems {
		prefix := fmt.Sprintf("level3[line_items][%d]", i)
		form.Set(prefix+"[product_code]", item.ProductCode)
		form.Set(prefix+"[product_description]", item.ProductDescription)
		form.Set(prefix+"[unit_cost]", strconv.FormatInt(item.UnitCost, 10))
		form.Set(prefix+"[quantity]", strconv.FormatInt(item.Quantity, 10))
		form.Set(prefix+"[tax_amount]", strconv.FormatInt(item.TaxAmount, 10))
		form.Set(prefix+"[discount_amount]", strconv.FormatInt(item.DiscountAmount, 10))
	}
}

// CreateAndConfirmIntent 创建并确认支付意图。
// 只在传输层失败时返回错误；幂等键防止网络重试产生双重扣款。
func (c *Client) CreateAndConfirmIntent(ctx context.Context, pc *flow.PaymentContext) (*Intent, error) {
	form := BuildIntentForm(pc)
	body, err := c.doFormRequest(ctx, http.MethodPost, "/v1/payment_intents", form, uuid.NewString())
	if err != nil {
		return nil, err
	}
	return decodeIntent(body)
}

// GetIntent 按 ID 查询支付意图
func (c *Client) GetIntent(ctx context.Context, id string) (*Intent, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: intent id is required", ErrConfigInvalid)
	}
	body, err := c.doJSONRequest(ctx, http.MethodGet, "/v1/payment_intents/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	return decodeIntent(body)
}

// CaptureIntent 捕获一笔 requires_capture 状态的意图
func (c *Client) CaptureIntent(ctx context.Context, id string) (*Intent, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: intent id is required", ErrConfigInvalid)
	}
	body, err := c.doFormRequest(ctx, http.MethodPost, "/v1/payment_intents/"+url.PathEscape(id)+"/capture", url.Values{}, uuid.NewString())
	if err != nil {
		return nil, err
	}
	return decodeIntent(body)
}

func decodeIntent(body []byte) (*Intent, error) {
	raw, err := decodeRawMap(body)
	if err != nil {
		return nil, err
	}
	intent := parseIntentObject(raw)
	if intent.ID == "" {
		return nil, fmt.Errorf("%w: missing intent id", ErrResponseInvalid)
	}
	return intent, nil
}

func parseIntentObject(raw map[string]interface{}) *Intent {
	return &Intent{
		ID:           readString(raw, "id"),
		Status:       readString(raw, "status"),
		Amount:       readInt64(raw, "amount"),
		Currency:     strings.ToUpper(readString(raw, "currency")),
		ClientSecret: readString(raw, "client_secret"),
		Metadata:     readStringMap(raw, "metadata"),
		Raw:          raw,
	}
}
