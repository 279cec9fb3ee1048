package chip

import (
	"bytes"
	"encoding/json"
	"strings"
)

const fpxBankBranchField = "fpx_buyerBankBranch"

var paymentMethodLabels = map[string]string{
	"razer_atome":     "Atome",
	"razer_grabpay":   "GrabPay",
	"razer_tng":       "TnG",
	"razer_shopeepay": "ShopeePay",
}

// MapPaymentMethodType 将 CHIP 支付方式代码转换为展示名。
// fpx 从 extra 的顶层成员中按出现顺序查找 fpx_buyerBankBranch。
func MapPaymentMethodType(code string, extra json.RawMessage) string {
	if label, ok := paymentMethodLabels[code]; ok {
		return label
	}
	if code == "fpx" {
		if branch := findFPXBankBranch(extra); branch != "" {
			return branch
		}
	}
	return code
}

func findFPXBankBranch(extra json.RawMessage) string {
	if len(bytes.TrimSpace(extra)) == 0 {
		return ""
	}
	decoder := json.NewDecoder(bytes.NewReader(extra))
	token, err := decoder.Token()
	if err != nil {
		return ""
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return ""
	}
	for decoder.More() {
		// 成员名
		if _, err := decoder.Token(); err != nil {
			return ""
		}
		var member json.RawMessage
		if err := decoder.Decode(&member); err != nil {
			return ""
		}
		var nested map[string]json.RawMessage
		if err := json.Unmarshal(member, &nested); err != nil {
			continue
		}
		value, ok := nested[fpxBankBranchField]
		if !ok || string(bytes.TrimSpace(value)) == "null" {
			continue
		}
		return strings.TrimSpace(firstScalar(value))
	}
	return ""
}

// firstScalar 读取字符串或数组首元素
func firstScalar(raw json.RawMessage) string {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		var first string
		if err := json.Unmarshal(list[0], &first); err == nil {
			return first
		}
	}
	return ""
}
