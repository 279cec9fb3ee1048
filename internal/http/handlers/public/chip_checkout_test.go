package public

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dujiao-next/chip-gateway/internal/http/response"

	"github.com/jarcoal/httpmock"
)

func checkoutRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/chip/checkout", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestChipCheckoutValidatesBody(t *testing.T) {
	env := setupHandlerTest(t)

	for _, body := range []string{`not-json`, `{"transaction_uuid":"  "}`} {
		w := env.do(checkoutRequest(body))
		code, _ := decodeEnvelope(t, w)
		if code != response.CodeBadRequest {
			t.Fatalf("body %q: expected business code 400, got %d", body, code)
		}
	}

	w := env.do(checkoutRequest(`{"transaction_uuid":"missing"}`))
	if code, _ := decodeEnvelope(t, w); code != response.CodeNotFound {
		t.Fatalf("expected business code 404, got %d", code)
	}
}

func TestChipCheckoutReturnsCheckoutURL(t *testing.T) {
	env := setupHandlerTest(t)
	_, txn := env.seed(t, "order-h-checkout", "")
	httpmock.RegisterResponder(http.MethodPost, `=~^https://gate\.test/api/v1/purchases/\?time=\d+$`,
		httpmock.NewStringResponder(http.StatusCreated, `{"id":"p-h6","checkout_url":"https://gate.test/p/p-h6/"}`))

	w := env.do(checkoutRequest(`{"transaction_uuid":"` + txn.UUID + `"}`))
	code, data := decodeEnvelope(t, w)
	if code != response.CodeOK {
		t.Fatalf("expected success, got %d body=%s", code, w.Body.String())
	}
	if data["checkout_url"] != "https://gate.test/p/p-h6/" || data["purchase_id"] != "p-h6" {
		t.Fatalf("unexpected data: %#v", data)
	}

	receipt := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/payments/chip/receipt/"+txn.UUID, nil))
	code, data = decodeEnvelope(t, receipt)
	if code != response.CodeOK || data["receipt_url"] != "https://gate.chip-in.asia/p/p-h6/receipt/" {
		t.Fatalf("unexpected receipt response: %d %#v", code, data)
	}
}

func TestChipCheckoutRejectedByGateway(t *testing.T) {
	env := setupHandlerTest(t)
	_, txn := env.seed(t, "order-h-rejected", "")
	httpmock.RegisterResponder(http.MethodPost, `=~^https://gate\.test/api/v1/purchases/`,
		httpmock.NewStringResponder(http.StatusBadRequest, `{"__all__":[{"message":"Brand is disabled","code":"invalid"}]}`))

	w := env.do(checkoutRequest(`{"transaction_uuid":"` + txn.UUID + `"}`))
	if code, _ := decodeEnvelope(t, w); code != response.CodeBadGateway {
		t.Fatalf("expected business code 502, got %d body=%s", code, w.Body.String())
	}
}
