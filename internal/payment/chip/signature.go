package chip

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"strings"
)

// VerifySignature 校验 CHIP 回调签名：RSA PKCS#1 v1.5 + SHA-256，作用于原始请求体。
// 任何解码或验签失败都返回 false。
func VerifySignature(rawBody []byte, signatureHeader, publicKey string) bool {
	signature, err := base64.StdEncoding.DecodeString(strings.TrimSpace(signatureHeader))
	if err != nil || len(signature) == 0 {
		return false
	}
	key, err := parsePublicKey(publicKey)
	if err != nil {
		return false
	}
	digest := sha256.Sum256(rawBody)
	return rsa.VerifyPKCS1v15(key, crypto.SHA256, digest[:], signature) == nil
}

// NormalizePublicKey 将接口返回的字面量 \n 还原为换行
func NormalizePublicKey(raw string) string {
	return strings.TrimSpace(strings.ReplaceAll(raw, "\\n", "\n"))
}

func parsePublicKey(raw string) (*rsa.PublicKey, error) {
	normalized := NormalizePublicKey(raw)
	if normalized == "" {
		return nil, fmt.Errorf("%w: public key is empty", ErrConfigInvalid)
	}
	if !strings.Contains(normalized, "BEGIN") {
		normalized = "-----BEGIN PUBLIC KEY-----\n" + normalized + "\n-----END PUBLIC KEY-----"
	}
	block, _ := pem.Decode([]byte(normalized))
	if block == nil {
		return nil, fmt.Errorf("%w: public key pem decode failed", ErrConfigInvalid)
	}
	if parsed, err := x509.ParsePKIXPublicKey(block.Bytes); err == nil {
		if publicKey, ok := parsed.(*rsa.PublicKey); ok {
			return publicKey, nil
		}
		return nil, fmt.Errorf("%w: public key type is not rsa", ErrConfigInvalid)
	}
	if publicKey, err := x509.ParsePKCS1PublicKey(block.Bytes); err == nil {
		return publicKey, nil
	}
	return nil, fmt.Errorf("%w: parse public key failed", ErrConfigInvalid)
}
