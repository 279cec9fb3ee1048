package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dujiao-next/chip-gateway/internal/constants"
	"github.com/dujiao-next/chip-gateway/internal/logger"
	"github.com/dujiao-next/chip-gateway/internal/models"
	"github.com/dujiao-next/chip-gateway/internal/payment/chip"
	"github.com/dujiao-next/chip-gateway/internal/repository"
)

// JSONCache 热缓存，cache.Store 实现
type JSONCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// PublicKeySource 公钥来源
type PublicKeySource interface {
	PublicKey(ctx context.Context) (string, error)
}

// PublicKeyEntry 缓存的验签公钥
type PublicKeyEntry struct {
	BrandID   string `json:"brand_id"`
	PublicKey string `json:"public_key"`
}

func (e PublicKeyEntry) matches(brandID string) bool {
	return e.BrandID == brandID && strings.TrimSpace(e.PublicKey) != ""
}

// PublicKeyCache 按 brand_id 缓存 CHIP 公钥，持久化在 settings 表，不设过期。
// brand_id 变化或公钥为空时重新拉取。
type PublicKeyCache struct {
	settings repository.SettingRepository
	hot      JSONCache
	source   PublicKeySource
}

// NewPublicKeyCache 创建公钥缓存，hot 可为空
func NewPublicKeyCache(settings repository.SettingRepository, hot JSONCache, source PublicKeySource) *PublicKeyCache {
	return &PublicKeyCache{settings: settings, hot: hot, source: source}
}

// Get 获取 brand_id 对应的公钥
func (c *PublicKeyCache) Get(ctx context.Context, brandID string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	brandID = strings.TrimSpace(brandID)
	log := logger.SW("brand_id", brandID)

	if c.hot != nil {
		var entry PublicKeyEntry
		hit, err := c.hot.GetJSON(ctx, constants.SettingKeyChipPublicKey, &entry)
		if err != nil {
			log.Warnw("chip_public_key_hot_cache_read_failed", "error", err)
		} else if hit && entry.matches(brandID) {
			return entry.PublicKey, nil
		}
	}

	setting, err := c.settings.GetByKey(constants.SettingKeyChipPublicKey)
	if err != nil {
		log.Warnw("chip_public_key_setting_read_failed", "error", err)
	} else if setting != nil {
		entry := PublicKeyEntry{
			BrandID:   setting.ValueJSON.String("brand_id"),
			PublicKey: setting.ValueJSON.String("public_key"),
		}
		if entry.matches(brandID) {
			c.warm(ctx, entry)
			return entry.PublicKey, nil
		}
	}

	if c.source == nil {
		return "", ErrPublicKeyUnavailable
	}
	raw, err := c.source.PublicKey(ctx)
	if err != nil {
		log.Warnw("chip_public_key_fetch_failed", "error", err)
		return "", fmt.Errorf("%w: %v", ErrPublicKeyUnavailable, err)
	}
	publicKey := chip.NormalizePublicKey(raw)
	if publicKey == "" {
		log.Warnw("chip_public_key_empty")
		return "", ErrPublicKeyUnavailable
	}
	entry := PublicKeyEntry{BrandID: brandID, PublicKey: publicKey}
	if _, err := c.settings.Upsert(constants.SettingKeyChipPublicKey, models.JSON{
		"brand_id":   entry.BrandID,
		"public_key": entry.PublicKey,
	}); err != nil {
		log.Warnw("chip_public_key_persist_failed", "error", err)
	}
	c.warm(ctx, entry)
	log.Infow("chip_public_key_refreshed")
	return publicKey, nil
}

func (c *PublicKeyCache) warm(ctx context.Context, entry PublicKeyEntry) {
	if c.hot == nil {
		return
	}
	if err := c.hot.SetJSON(ctx, constants.SettingKeyChipPublicKey, entry, 0); err != nil {
		logger.Warnw("chip_public_key_hot_cache_write_failed", "brand_id", entry.BrandID, "error", err)
	}
}
