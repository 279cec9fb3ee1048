package service

import (
	"context"
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/dujiao-next/chip-gateway/internal/constants"
	"github.com/dujiao-next/chip-gateway/internal/models"
	"github.com/dujiao-next/chip-gateway/internal/repository"
)

// RedirectPassphrase 回跳地址携带的口令，首次使用时生成并持久化
type RedirectPassphrase struct {
	settings repository.SettingRepository
	siteURL  string
	salt     string
	now      func() time.Time
}

// NewRedirectPassphrase 创建回跳口令
func NewRedirectPassphrase(settings repository.SettingRepository, siteURL, salt string) *RedirectPassphrase {
	return &RedirectPassphrase{settings: settings, siteURL: siteURL, salt: salt, now: time.Now}
}

// Current 读取已保存的口令，未生成时返回空串
func (p *RedirectPassphrase) Current(_ context.Context) (string, error) {
	setting, err := p.settings.GetByKey(constants.SettingKeyChipRedirectPassphrase)
	if err != nil {
		return "", err
	}
	if setting == nil {
		return "", nil
	}
	return strings.TrimSpace(setting.ValueJSON.String("value")), nil
}

// Ensure 返回口令，不存在时按 md5(site_url + unix 时间 + salt) 生成
func (p *RedirectPassphrase) Ensure(ctx context.Context) (string, error) {
	current, err := p.Current(ctx)
	if err != nil {
		return "", err
	}
	if current != "" {
		return current, nil
	}
	sum := md5.Sum([]byte(p.siteURL + strconv.FormatInt(p.now().Unix(), 10) + p.salt))
	value := hex.EncodeToString(sum[:])
	if _, err := p.settings.Upsert(constants.SettingKeyChipRedirectPassphrase, models.JSON{"value": value}); err != nil {
		return "", err
	}
	return value, nil
}

// Verify 常量时间比较口令，未生成口令时一律拒绝
func (p *RedirectPassphrase) Verify(ctx context.Context, candidate string) (bool, error) {
	current, err := p.Current(ctx)
	if err != nil {
		return false, err
	}
	candidate = strings.TrimSpace(candidate)
	if current == "" || candidate == "" {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(current), []byte(candidate)) == 1, nil
}
