package service

import (
	"context"
	"errors"
	"testing"

	"github.com/dujiao-next/chip-gateway/internal/cache"
	"github.com/dujiao-next/chip-gateway/internal/constants"
	"github.com/dujiao-next/chip-gateway/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubKeySource struct {
	key   string
	err   error
	calls int
}

func (s *stubKeySource) PublicKey(context.Context) (string, error) {
	s.calls++
	return s.key, s.err
}

func newHotStore(t *testing.T) *cache.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewStore(client, "chip-test")
}

func TestPublicKeyCacheFetchesOnceAndNormalizes(t *testing.T) {
	env := setupServiceTest(t)
	source := &stubKeySource{key: `-----BEGIN PUBLIC KEY-----\nABC\n-----END PUBLIC KEY-----`}
	keys := NewPublicKeyCache(env.settingRepo, newHotStore(t), source)

	first, err := keys.Get(context.Background(), testBrandID)
	require.NoError(t, err)
	assert.Equal(t, "-----BEGIN PUBLIC KEY-----\nABC\n-----END PUBLIC KEY-----", first)

	second, err := keys.Get(context.Background(), testBrandID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, source.calls)

	setting, err := env.settingRepo.GetByKey(constants.SettingKeyChipPublicKey)
	require.NoError(t, err)
	require.NotNil(t, setting)
	assert.Equal(t, first, setting.ValueJSON.String("public_key"))
}

func TestPublicKeyCacheUsesPersistedSetting(t *testing.T) {
	env := setupServiceTest(t)
	_, err := env.settingRepo.Upsert(constants.SettingKeyChipPublicKey, models.JSON{
		"brand_id":   testBrandID,
		"public_key": "stored-key",
	})
	require.NoError(t, err)
	source := &stubKeySource{key: "fresh-key"}
	hot := newHotStore(t)
	keys := NewPublicKeyCache(env.settingRepo, hot, source)

	got, err := keys.Get(context.Background(), testBrandID)
	require.NoError(t, err)
	assert.Equal(t, "stored-key", got)
	assert.Equal(t, 0, source.calls)

	var entry PublicKeyEntry
	hit, err := hot.GetJSON(context.Background(), constants.SettingKeyChipPublicKey, &entry)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, PublicKeyEntry{BrandID: testBrandID, PublicKey: "stored-key"}, entry)
}

func TestPublicKeyCacheRefetchesOnBrandChange(t *testing.T) {
	env := setupServiceTest(t)
	source := &stubKeySource{key: "key-a"}
	keys := NewPublicKeyCache(env.settingRepo, newHotStore(t), source)

	_, err := keys.Get(context.Background(), "brand-a")
	require.NoError(t, err)
	source.key = "key-b"
	got, err := keys.Get(context.Background(), "brand-b")
	require.NoError(t, err)
	assert.Equal(t, "key-b", got)
	assert.Equal(t, 2, source.calls)
}

func TestPublicKeyCacheSourceFailure(t *testing.T) {
	env := setupServiceTest(t)
	keys := NewPublicKeyCache(env.settingRepo, nil, &stubKeySource{err: errors.New("boom")})
	_, err := keys.Get(context.Background(), testBrandID)
	assert.ErrorIs(t, err, ErrPublicKeyUnavailable)

	empty := NewPublicKeyCache(env.settingRepo, nil, &stubKeySource{key: "  "})
	_, err = empty.Get(context.Background(), testBrandID)
	assert.ErrorIs(t, err, ErrPublicKeyUnavailable)

	setting, err := env.settingRepo.GetByKey(constants.SettingKeyChipPublicKey)
	require.NoError(t, err)
	assert.Nil(t, setting)
}
