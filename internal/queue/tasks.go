package queue

import (
	"encoding/json"
	"fmt"

	"github.com/dujiao-next/chip-gateway/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskOrderPaymentPaid 订单支付成功后的后续处理任务
	TaskOrderPaymentPaid = constants.TaskOrderPaymentPaid
)

// OrderPaymentPaidPayload 支付成功任务载荷
type OrderPaymentPaidPayload struct {
	OrderID       uint   `json:"order_id"`
	TransactionID uint   `json:"transaction_id"`
	Source        string `json:"source"`
}

// NewOrderPaymentPaidTask 创建支付成功任务
func NewOrderPaymentPaidTask(payload OrderPaymentPaidPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderPaymentPaid, body), nil
}

// ParseOrderPaymentPaidPayload 解析支付成功任务载荷
func ParseOrderPaymentPaidPayload(task *asynq.Task) (OrderPaymentPaidPayload, error) {
	var payload OrderPaymentPaidPayload
	if task == nil {
		return payload, fmt.Errorf("task is nil")
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, err
	}
	return payload, nil
}
