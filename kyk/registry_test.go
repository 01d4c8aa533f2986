package kyk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(r *Request, args Context) Result { return Text("") }

func TestRegistryRegisterAndLookup(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("news", Func(noop)))

	c, ok := reg.Lookup("news")
	assert.True(t, ok)
	assert.NotNil(t, c)

	_, ok = reg.Lookup("missing")
	assert.False(t, ok)
}

func TestRegistryRejectsBadNames(t *testing.T) {
	reg := NewRegistry()

	assert.Error(t, reg.Register("", Func(noop)))
	assert.Error(t, reg.Register("42", Func(noop)))
	assert.Error(t, reg.Register("news", nil))

	require.NoError(t, reg.Register("news", Func(noop)))
	assert.Error(t, reg.Register("news", Func(noop)), "duplicate names must be rejected")
}

func TestRegistryNamesSorted(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("zulu", Func(noop)))
	require.NoError(t, reg.Register("alpha", Func(noop)))
	require.NoError(t, reg.Register("mike", Func(noop)))

	assert.Equal(t, []string{"alpha", "mike", "zulu"}, reg.Names())
}

func TestMustRegisterPanics(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister("news", Func(noop))
	assert.Panics(t, func() { reg.MustRegister("news", Func(noop)) })
}
