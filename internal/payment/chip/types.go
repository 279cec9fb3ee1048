package chip

import "encoding/json"

// Product 购买商品行
type Product struct {
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

// PurchaseDetails 购买明细
type PurchaseDetails struct {
	Currency      string    `json:"currency"`
	TotalOverride int64     `json:"total_override"`
	Products      []Product `json:"products"`
	Notes         string    `json:"notes,omitempty"`
}

// ClientDetails 付款人信息，空字段不下发
type ClientDetails struct {
	Email                 string `json:"email,omitempty"`
	FullName              string `json:"full_name,omitempty"`
	Phone                 string `json:"phone,omitempty"`
	PersonalCode          string `json:"personal_code,omitempty"`
	StreetAddress         string `json:"street_address,omitempty"`
	Country               string `json:"country,omitempty"`
	City                  string `json:"city,omitempty"`
	ZipCode               string `json:"zip_code,omitempty"`
	State                 string `json:"state,omitempty"`
	ShippingStreetAddress string `json:"shipping_street_address,omitempty"`
	ShippingCountry       string `json:"shipping_country,omitempty"`
	ShippingCity          string `json:"shipping_city,omitempty"`
	ShippingZipCode       string `json:"shipping_zip_code,omitempty"`
	ShippingState         string `json:"shipping_state,omitempty"`
}

// PurchaseParams 创建 purchase 请求体
type PurchaseParams struct {
	BrandID                string          `json:"brand_id"`
	Reference              string          `json:"reference"`
	SuccessRedirect        string          `json:"success_redirect"`
	SuccessCallback        string          `json:"success_callback"`
	FailureRedirect        string          `json:"failure_redirect"`
	CancelRedirect         string          `json:"cancel_redirect"`
	SendReceipt            bool            `json:"send_receipt"`
	CreatorAgent           string          `json:"creator_agent"`
	Purchase               PurchaseDetails `json:"purchase"`
	Client                 ClientDetails   `json:"client"`
	PaymentMethodWhitelist []string        `json:"payment_method_whitelist,omitempty"`
}

// CreateResult 创建 purchase 返回
type CreateResult struct {
	CheckoutURL string
	PurchaseID  string
	Raw         map[string]interface{}
}

// TransactionData purchase 上的交易元数据，extra 结构不固定
type TransactionData struct {
	PaymentMethod string          `json:"payment_method"`
	Extra         json.RawMessage `json:"extra,omitempty"`
}

// Purchase 查询 purchase 返回
type Purchase struct {
	ID              string                 `json:"id"`
	Status          string                 `json:"status"`
	Reference       string                 `json:"reference"`
	TransactionData TransactionData        `json:"transaction_data"`
	Raw             map[string]interface{} `json:"-"`
}

// PaymentMethod 交易使用的支付方式代码
func (p *Purchase) PaymentMethod() string {
	if p == nil {
		return ""
	}
	return p.TransactionData.PaymentMethod
}

// IsPaid 是否已支付
func (p *Purchase) IsPaid() bool {
	return p != nil && p.Status == StatusPaid
}

// RefundResult 退款返回
type RefundResult struct {
	ID     string
	Status string
	Raw    map[string]interface{}
}

// Accepted 退款是否被受理
func (r *RefundResult) Accepted() bool {
	if r == nil {
		return false
	}
	return r.Status == StatusSuccess || r.Status == StatusRefunded
}

// WebhookEvent CHIP 回调事件
type WebhookEvent struct {
	ID              string          `json:"id"`
	BrandID         string          `json:"brand_id"`
	EventType       string          `json:"event_type"`
	Status          string          `json:"status"`
	Reference       string          `json:"reference"`
	TransactionData TransactionData `json:"transaction_data"`
}

// IsPaid 是否为需要推进订单的付款事件
func (e *WebhookEvent) IsPaid() bool {
	return e != nil && IsPaidEvent(e.EventType, e.Status)
}
