package chip

import (
	"encoding/json"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ParseWebhookEvent 解析回调事件，仅做 JSON 结构解析，字段校验见 Validate。
func ParseWebhookEvent(body []byte) (*WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayloadInvalid, err)
	}
	return &event, nil
}

// Validate 校验需要推进订单的事件字段
func (e WebhookEvent) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.ID, validation.Required),
		validation.Field(&e.Reference, validation.Required),
		validation.Field(&e.EventType, validation.Required),
		validation.Field(&e.Status, validation.Required),
	)
}
