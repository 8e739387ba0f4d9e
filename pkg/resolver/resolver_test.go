package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Azure/iwlan-eproe/pkg/cause"
	"github.com/Azure/iwlan-eproe/pkg/policy"
)

func mustParse(t *testing.T, doc string) *policy.Table {
	t.Helper()
	table, err := policy.Parse([]byte(doc), false)
	require.NoError(t, err)
	return table
}

func TestResolve_FallsBackToImplicitWhenNoTablesInstalled(t *testing.T) {
	r := New(nil)
	p := r.Resolve("ims", cause.NewNonIkeError(cause.TimeoutException))
	require.NotNil(t, p)
	assert.True(t, p.IsFallbackMatch())
	assert.Equal(t, []int{5, -1}, p.RetryArray)
}

func TestResolve_SpecificApnBeatsWildcardApn(t *testing.T) {
	def := mustParse(t, `[
		{"ApnName":"*","ErrorTypes":[{"ErrorType":"GENERIC_ERROR_TYPE","ErrorDetails":["IO_EXCEPTION"],"RetryArray":["1"],"UnthrottlingEvents":[]}]},
		{"ApnName":"ims","ErrorTypes":[{"ErrorType":"GENERIC_ERROR_TYPE","ErrorDetails":["IO_EXCEPTION"],"RetryArray":["9"],"UnthrottlingEvents":[]}]}
	]`)
	r := New(def)
	p := r.Resolve("ims", cause.NewNonIkeError(cause.IOException))
	assert.Equal(t, []int{9}, p.RetryArray)
}

func TestResolve_CarrierBeatsDefault(t *testing.T) {
	def := mustParse(t, `[{"ApnName":"ims","ErrorTypes":[{"ErrorType":"GENERIC_ERROR_TYPE","ErrorDetails":["IO_EXCEPTION"],"RetryArray":["1"],"UnthrottlingEvents":[]}]}]`)
	carrier := mustParse(t, `[{"ApnName":"ims","ErrorTypes":[{"ErrorType":"GENERIC_ERROR_TYPE","ErrorDetails":["IO_EXCEPTION"],"RetryArray":["9"],"UnthrottlingEvents":[]}]}]`)
	r := New(def)
	r.SetCarrier(carrier)
	p := r.Resolve("ims", cause.NewNonIkeError(cause.IOException))
	assert.Equal(t, []int{9}, p.RetryArray)
}

func TestResolve_GenericFallbackBeatsBareWildcardFallback(t *testing.T) {
	def := mustParse(t, `[{"ApnName":"*","ErrorTypes":[
		{"ErrorType":"GENERIC_ERROR_TYPE","ErrorDetails":["*"],"RetryArray":["3"],"UnthrottlingEvents":[]},
		{"ErrorType":"*","ErrorDetails":["*"],"RetryArray":["9"],"UnthrottlingEvents":[]}
	]}]`)
	r := New(def)
	p := r.Resolve("ims", cause.NewNonIkeError(cause.IOException))
	assert.Equal(t, []int{3}, p.RetryArray)
}

func TestResolve_CarrierWildcardApnBeatsDefaultSpecificApn(t *testing.T) {
	def := mustParse(t, `[{"ApnName":"ims","ErrorTypes":[{"ErrorType":"GENERIC_ERROR_TYPE","ErrorDetails":["IO_EXCEPTION"],"RetryArray":["1"],"UnthrottlingEvents":[]}]}]`)
	carrier := mustParse(t, `[{"ApnName":"*","ErrorTypes":[{"ErrorType":"GENERIC_ERROR_TYPE","ErrorDetails":["IO_EXCEPTION"],"RetryArray":["9"],"UnthrottlingEvents":[]}]}]`)
	r := New(def)
	r.SetCarrier(carrier)
	p := r.Resolve("ims", cause.NewNonIkeError(cause.IOException))
	assert.Equal(t, []int{9}, p.RetryArray)
}
