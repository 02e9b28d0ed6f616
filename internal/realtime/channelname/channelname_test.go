package channelname

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farmstand-realtime/internal/realtime"
)

const testSecret = "farm-stand-test-secret-0123456789abcdef"

func TestGenerate_Deterministic(t *testing.T) {
	g := New(Config{Secret: testSecret})

	first, err := g.Generate(realtime.KindCart, realtime.ScopeUser, "user-42")
	require.NoError(t, err)
	second, err := g.Generate(realtime.KindCart, realtime.ScopeUser, "user-42")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.True(t, strings.HasPrefix(first, "sec-cart-"), "got %s", first)
	assert.NotContains(t, first, "user-42")
}

func TestGenerate_SameAcrossInstancesWithSameSecret(t *testing.T) {
	a := New(Config{Secret: testSecret, Epoch: "7"})
	b := New(Config{Secret: testSecret, Epoch: "7"})

	na, err := a.Generate(realtime.KindOrder, realtime.ScopeAdmin, "")
	require.NoError(t, err)
	nb, err := b.Generate(realtime.KindOrder, realtime.ScopeAdmin, "")
	require.NoError(t, err)
	assert.Equal(t, na, nb)
}

func TestGenerate_EpochRotatesNames(t *testing.T) {
	a := New(Config{Secret: testSecret, Epoch: "1"})
	b := New(Config{Secret: testSecret, Epoch: "2"})

	na, _ := a.Generate(realtime.KindProduct, realtime.ScopeGlobal, "")
	nb, _ := b.Generate(realtime.KindProduct, realtime.ScopeGlobal, "")
	assert.NotEqual(t, na, nb)
}

func TestGenerate_DistinctSubjects(t *testing.T) {
	g := New(Config{Secret: testSecret})

	seen := make(map[string]string)
	for i := 0; i < 500; i++ {
		subject := fmt.Sprintf("user-%d", i)
		name, err := g.Generate(realtime.KindCart, realtime.ScopeUser, subject)
		require.NoError(t, err)
		assert.NotContains(t, name, subject)
		if prev, dup := seen[name]; dup {
			t.Fatalf("subjects %s and %s produced the same name %s", prev, subject, name)
		}
		seen[name] = subject
	}
}

func TestGenerate_Format(t *testing.T) {
	g := New(Config{Secret: testSecret})

	tests := []struct {
		name    string
		kind    realtime.Kind
		scope   realtime.Scope
		subject string
		prefix  string
	}{
		{"user cart", realtime.KindCart, realtime.ScopeUser, "u1", "sec-cart-user-"},
		{"admin orders", realtime.KindOrder, realtime.ScopeAdmin, "", "sec-order-admin-"},
		{"global products", realtime.KindProduct, realtime.ScopeGlobal, "", "sec-product-global-"},
		{"executive dashboard", realtime.KindExecutive, realtime.ScopeAdmin, "", "sec-executive-admin-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := g.Generate(tt.kind, tt.scope, tt.subject)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(got, tt.prefix), "got %s", got)
			assert.Len(t, strings.TrimPrefix(got, tt.prefix), 2*digestBytes)
		})
	}
}

func TestGenerate_SubjectIgnoredOutsideUserScope(t *testing.T) {
	g := New(Config{Secret: testSecret})

	a, err := g.Generate(realtime.KindOrder, realtime.ScopeAdmin, "")
	require.NoError(t, err)
	b, err := g.Generate(realtime.KindOrder, realtime.ScopeAdmin, "someone")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGenerate_Errors(t *testing.T) {
	t.Run("missing secret", func(t *testing.T) {
		g := New(Config{})
		_, err := g.Generate(realtime.KindCart, realtime.ScopeUser, "user-42")
		assert.True(t, errors.Is(err, realtime.ErrConfiguration))
		assert.ErrorIs(t, g.Ready(), realtime.ErrSecretNotConfigured)
	})

	t.Run("missing subject for user scope", func(t *testing.T) {
		g := New(Config{Secret: testSecret})
		_, err := g.Generate(realtime.KindCart, realtime.ScopeUser, "")
		assert.ErrorIs(t, err, realtime.ErrValidation)

		var ve *realtime.ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "subject_id", ve.Field)
	})

	t.Run("unknown kind", func(t *testing.T) {
		g := New(Config{Secret: testSecret})
		_, err := g.Generate(realtime.Kind("wishlist"), realtime.ScopeGlobal, "")
		assert.ErrorIs(t, err, realtime.ErrValidation)
	})

	t.Run("unknown scope", func(t *testing.T) {
		g := New(Config{Secret: testSecret})
		_, err := g.Generate(realtime.KindCart, realtime.Scope("team"), "")
		assert.ErrorIs(t, err, realtime.ErrValidation)
	})
}

func TestValidate(t *testing.T) {
	g := New(Config{Secret: testSecret})

	name, err := g.Generate(realtime.KindCart, realtime.ScopeUser, "user-42")
	require.NoError(t, err)

	assert.True(t, g.Validate(name, realtime.KindCart, realtime.ScopeUser, "user-42"))
	assert.False(t, g.Validate(name, realtime.KindOrder, realtime.ScopeUser, "user-42"), "kind altered")
	assert.False(t, g.Validate(name, realtime.KindCart, realtime.ScopeAdmin, "user-42"), "scope altered")
	assert.False(t, g.Validate(name, realtime.KindCart, realtime.ScopeUser, "user-43"), "subject altered")
	assert.False(t, g.Validate(name+"0", realtime.KindCart, realtime.ScopeUser, "user-42"), "name altered")
	assert.False(t, g.Validate("cart-updates-user-42", realtime.KindCart, realtime.ScopeUser, "user-42"))

	other := New(Config{Secret: "a-completely-different-secret-value"})
	assert.False(t, other.Validate(name, realtime.KindCart, realtime.ScopeUser, "user-42"), "secret altered")

	unconfigured := New(Config{})
	assert.False(t, unconfigured.Validate(name, realtime.KindCart, realtime.ScopeUser, "user-42"))
}

func TestGenerate_CacheIsBounded(t *testing.T) {
	g := New(Config{Secret: testSecret, CacheSize: 8})
	impl := g.(*implGenerator)

	first, err := g.Generate(realtime.KindCart, realtime.ScopeUser, "user-0")
	require.NoError(t, err)
	for i := 1; i < 100; i++ {
		_, err := g.Generate(realtime.KindCart, realtime.ScopeUser, fmt.Sprintf("user-%d", i))
		require.NoError(t, err)
	}
	assert.Equal(t, 8, impl.cache.Len())

	again, err := g.Generate(realtime.KindCart, realtime.ScopeUser, "user-0")
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestGenerate_DefaultCacheSize(t *testing.T) {
	g := New(Config{Secret: testSecret}).(*implGenerator)
	for i := 0; i < DefaultCacheSize+10; i++ {
		_, err := g.Generate(realtime.KindOrder, realtime.ScopeUser, fmt.Sprintf("u%d", i))
		require.NoError(t, err)
	}
	assert.Equal(t, DefaultCacheSize, g.cache.Len())
}

func TestGenerate_UUIDSubjectNeverInName(t *testing.T) {
	g := New(Config{Secret: testSecret})

	for i := 0; i < 200; i++ {
		id := uuid.NewString()
		for _, kind := range []realtime.Kind{realtime.KindCart, realtime.KindOrder} {
			name, err := g.Generate(kind, realtime.ScopeUser, id)
			require.NoError(t, err)
			assert.NotContains(t, name, id)
			assert.NotContains(t, name, strings.ReplaceAll(id, "-", ""))
		}
	}
}
