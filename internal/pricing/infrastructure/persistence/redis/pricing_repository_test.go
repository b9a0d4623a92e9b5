package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/lsmpricing/internal/pricing/domain"
)

type mapStore struct {
	data map[string][]byte
	ttl  time.Duration
}

func (m *mapStore) GetJSON(_ context.Context, key string, dest any) (bool, error) {
	raw, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (m *mapStore) SetJSON(_ context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	m.ttl = ttl
	return nil
}

func TestResultCache(t *testing.T) {
	store := &mapStore{data: map[string][]byte{}}
	c := NewResultCache(store, 0)
	ctx := context.Background()

	miss, err := c.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Nil(t, miss)

	in := &domain.PricingResult{
		RequestID:   "req-1",
		Spec:        domain.AmericanOptionSpec{Symbol: "XYZ", OptionType: domain.OptionTypePut, Strike: 40},
		OptionPrice: decimal.RequireFromString("4.4721"),
	}
	require.NoError(t, c.Set(ctx, "abc", in))
	assert.Equal(t, 15*time.Minute, store.ttl)
	assert.Contains(t, store.data, resultPrefix+"abc")

	out, err := c.Get(ctx, "abc")
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, in.Spec, out.Spec)
	assert.True(t, in.OptionPrice.Equal(out.OptionPrice))
	assert.NoError(t, c.Set(ctx, "nil", nil))
}
