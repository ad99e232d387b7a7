package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup_Builtins(t *testing.T) {
	for _, id := range []string{"fixed_window", "token_bucket"} {
		def, ok := NewRegistry().Lookup(id)
		require.True(t, ok, id)
		require.NotNil(t, def.Source)

		text, err := def.Source()
		require.NoError(t, err)
		assert.NotEmpty(t, text)
		assert.Equal(t, RateLimitHeaders, def.Headers)
	}
}

func TestLookup_NilRegistryResolvesBuiltins(t *testing.T) {
	var r *Registry
	_, ok := r.Lookup("fixed_window")
	assert.True(t, ok)
}

func TestLookup_Unknown(t *testing.T) {
	_, ok := NewRegistry().Lookup("sliding_window")
	assert.False(t, ok)
}

func TestRegister_UserEntryShadowsBuiltin(t *testing.T) {
	r := NewRegistry()
	err := r.Register("fixed_window", Definition{
		Source:  Static("return {'allow', {}}"),
		Headers: []string{"x-custom"},
	})
	require.NoError(t, err)

	def, ok := r.Lookup("fixed_window")
	require.True(t, ok)

	text, err := def.Source()
	require.NoError(t, err)
	assert.Equal(t, "return {'allow', {}}", text)
	assert.Equal(t, []string{"x-custom"}, def.Headers)

	// other built-ins stay visible through the same registry
	_, ok = r.Lookup("token_bucket")
	assert.True(t, ok)
}

func TestRegister_Invalid(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Register("", Definition{Source: Static("x")}))
	assert.Error(t, r.Register("mine", Definition{}))
}
