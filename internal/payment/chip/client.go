package chip

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dujiao-next/chip-gateway/internal/logger"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const publicKeyMaxRetries = 2

var errTransport = errors.New("chip transport failed")

// Client CHIP 开放接口客户端
type Client struct {
	cfg        Config
	httpClient *http.Client
	now        func() time.Time
}

// NewClient 创建客户端，httpClient 为空时按配置超时创建
func NewClient(cfg Config, httpClient *http.Client) *Client {
	cfg.normalize()
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, httpClient: httpClient, now: time.Now}
}

// Config 返回当前配置副本
func (c *Client) Config() Config {
	return c.cfg
}

func (c *Client) debugLog() *zap.SugaredLogger {
	return logger.Gated(c.cfg.Debug, "gateway", "chip", "brand_id", c.cfg.BrandID)
}

// CreatePayment 创建 purchase，返回收银台地址
func (c *Client) CreatePayment(ctx context.Context, params PurchaseParams) (*CreateResult, error) {
	c.debugLog().Infow("chip_purchase_creating", "reference", params.Reference)
	payload, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal purchase failed", ErrPayloadInvalid)
	}
	path := "/purchases/?time=" + strconv.FormatInt(c.now().Unix(), 10)
	body, statusCode, err := c.doJSONRequest(ctx, http.MethodPost, path, payload)
	if err != nil {
		return nil, err
	}

	raw, decodeErr := decodeRawMap(body)
	if decodeErr == nil {
		if messages := readAllErrorMessages(raw); messages != "" {
			return nil, fmt.Errorf("%w: %s", ErrPurchaseRejected, messages)
		}
	}
	raw, err = c.checkResponse(http.MethodPost, path, statusCode, body)
	if err != nil {
		return nil, err
	}
	result := &CreateResult{
		CheckoutURL: strings.TrimSpace(readString(raw, "checkout_url")),
		PurchaseID:  strings.TrimSpace(readString(raw, "id")),
		Raw:         raw,
	}
	if result.CheckoutURL == "" || result.PurchaseID == "" {
		return nil, fmt.Errorf("%w: missing checkout_url or id", ErrResponseInvalid)
	}
	return result, nil
}

// GetPayment 查询 purchase 状态，time 参数用于绕过缓存
func (c *Client) GetPayment(ctx context.Context, purchaseID string) (*Purchase, error) {
	purchaseID = strings.TrimSpace(purchaseID)
	if purchaseID == "" {
		return nil, fmt.Errorf("%w: purchase id is required", ErrPayloadInvalid)
	}
	path := fmt.Sprintf("/purchases/%s/?time=%d", url.PathEscape(purchaseID), c.now().Unix())
	body, statusCode, err := c.doJSONRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	raw, err := c.checkResponse(http.MethodGet, path, statusCode, body)
	if err != nil {
		return nil, err
	}
	var purchase Purchase
	if err := json.Unmarshal(body, &purchase); err != nil {
		return nil, fmt.Errorf("%w: %w: decode purchase failed", ErrUnavailable, ErrResponseInvalid)
	}
	purchase.Raw = raw
	c.debugLog().Infow("chip_purchase_checked", "purchase_id", purchaseID, "status", purchase.Status)
	return &purchase, nil
}

// RefundPayment 发起退款，amountCents 为最小货币单位
func (c *Client) RefundPayment(ctx context.Context, purchaseID string, amountCents int64) (*RefundResult, error) {
	purchaseID = strings.TrimSpace(purchaseID)
	if purchaseID == "" {
		return nil, fmt.Errorf("%w: purchase id is required", ErrPayloadInvalid)
	}
	payload, err := json.Marshal(map[string]int64{"amount": amountCents})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal refund failed", ErrPayloadInvalid)
	}
	path := fmt.Sprintf("/purchases/%s/refund/", url.PathEscape(purchaseID))
	c.debugLog().Infow("chip_refund_requesting", "purchase_id", purchaseID, "amount", amountCents)
	body, statusCode, err := c.doJSONRequest(ctx, http.MethodPost, path, payload)
	if err != nil {
		return nil, err
	}
	raw, err := c.checkResponse(http.MethodPost, path, statusCode, body)
	if err != nil {
		return nil, err
	}
	result := &RefundResult{
		ID:     strings.TrimSpace(readString(raw, "id")),
		Status: strings.TrimSpace(readString(raw, "status")),
		Raw:    raw,
	}
	c.debugLog().Infow("chip_refund_result", "purchase_id", purchaseID, "refund_id", result.ID, "status", result.Status)
	return result, nil
}

// PublicKey 获取 webhook 验签公钥，仅对网络错误做有限次指数退避重试
func (c *Client) PublicKey(ctx context.Context) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var body []byte
	var statusCode int
	operation := func() error {
		var err error
		body, statusCode, err = c.doJSONRequest(ctx, http.MethodGet, "/public_key/", nil)
		if err != nil && !errors.Is(err, errTransport) {
			return backoff.Permanent(err)
		}
		return err
	}
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxInterval = 2 * time.Second
	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, publicKeyMaxRetries), ctx)); err != nil {
		if !errors.Is(err, ErrUnavailable) {
			err = fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return "", err
	}
	if statusCode < 200 || statusCode >= 300 {
		c.debugLog().Warnw("chip_http_status_unexpected", "path", "/public_key/", "status", statusCode)
		return "", fmt.Errorf("%w: public key status %d", ErrUnavailable, statusCode)
	}
	var key string
	if err := json.Unmarshal(body, &key); err != nil || strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("%w: %w: public key body invalid", ErrUnavailable, ErrResponseInvalid)
	}
	c.debugLog().Infow("chip_public_key_fetched")
	return key, nil
}

// checkResponse 统一处理状态码、空响应、解析失败与 errors 字段
func (c *Client) checkResponse(method, path string, statusCode int, body []byte) (map[string]interface{}, error) {
	log := c.debugLog()
	if statusCode < 200 || statusCode >= 300 {
		log.Warnw("chip_http_status_unexpected", "method", method, "path", path, "status", statusCode, "body", truncateForLog(body))
		return nil, fmt.Errorf("%w: %s %s status %d", ErrUnavailable, method, path, statusCode)
	}
	raw, err := decodeRawMap(body)
	if err != nil || len(raw) == 0 {
		log.Warnw("chip_response_decode_failed", "method", method, "path", path, "body", truncateForLog(body))
		return nil, fmt.Errorf("%w: %w: empty or undecodable body", ErrUnavailable, ErrResponseInvalid)
	}
	if apiErrors, ok := raw["errors"]; ok && !isEmptyValue(apiErrors) {
		log.Warnw("chip_api_error", "method", method, "path", path, "errors", apiErrors)
		return nil, fmt.Errorf("%w: api returned errors", ErrUnavailable)
	}
	return raw, nil
}

func (c *Client) doJSONRequest(ctx context.Context, method, path string, payload []byte) ([]byte, int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	endpoint := c.cfg.APIBaseURL + path
	var reader io.Reader
	if len(payload) > 0 {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: build request failed", ErrUnavailable)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	c.debugLog().Debugw("chip_http_request", "method", method, "url", endpoint)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.debugLog().Warnw("chip_http_request_failed", "method", method, "url", endpoint, "error", err)
		return nil, 0, fmt.Errorf("%w: %w: %v", ErrUnavailable, errTransport, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: read response failed", ErrUnavailable)
	}
	c.debugLog().Debugw("chip_http_response", "method", method, "url", endpoint, "status", resp.StatusCode, "body", truncateForLog(body))
	return body, resp.StatusCode, nil
}

func decodeRawMap(body []byte) (map[string]interface{}, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode response failed", ErrResponseInvalid)
	}
	return raw, nil
}

// readAllErrorMessages 汇总 __all__ 中的错误信息，以空格拼接
func readAllErrorMessages(raw map[string]interface{}) string {
	list, ok := raw["__all__"].([]interface{})
	if !ok {
		return ""
	}
	messages := make([]string, 0, len(list))
	for _, item := range list {
		entry, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		if message := strings.TrimSpace(readString(entry, "message")); message != "" {
			messages = append(messages, message)
		}
	}
	return strings.Join(messages, " ")
}

func isEmptyValue(value interface{}) bool {
	switch typed := value.(type) {
	case nil:
		return true
	case string:
		return typed == ""
	case bool:
		return !typed
	case []interface{}:
		return len(typed) == 0
	case map[string]interface{}:
		return len(typed) == 0
	default:
		return false
	}
}

func readString(raw map[string]interface{}, key string) string {
	if raw == nil {
		return ""
	}
	value, ok := raw[key]
	if !ok || value == nil {
		return ""
	}
	switch typed := value.(type) {
	case string:
		return typed
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", typed)
	}
}

func truncateForLog(body []byte) string {
	const maxLen = 2048
	if len(body) <= maxLen {
		return string(body)
	}
	return string(body[:maxLen]) + "...(truncated)"
}
