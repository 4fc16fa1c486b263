package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubUnit struct {
	*Base
}

func newStubUnit(id string) *stubUnit {
	u := &stubUnit{Base: NewBase(id, "stub "+id, zap.NewNop())}
	u.Handle("noop", func(_ context.Context, _ Task) (*Result, error) {
		return u.OK("noop", nil), nil
	})
	return u
}

func TestRegistry_RegisterRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()

	require.NoError(t, reg.Register("alpha", func() Unit { return newStubUnit("alpha") }))

	err := reg.Register("alpha", func() Unit { return newStubUnit("alpha") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegistry_ResolveUnknown(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Resolve("ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownUnit)
	assert.Contains(t, err.Error(), "ghost")
}

func TestRegistry_ResolveIsLazySingleton(t *testing.T) {
	reg := NewRegistry()

	calls := 0
	require.NoError(t, reg.Register("alpha", func() Unit {
		calls++
		return newStubUnit("alpha")
	}))
	assert.Equal(t, 0, calls, "constructor must not run at registration time")

	first, err := reg.Resolve("alpha")
	require.NoError(t, err)
	second, err := reg.Resolve("alpha")
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Same(t, first, second)
}

func TestRegistry_ListAndDescribe(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("zeta", func() Unit { return newStubUnit("zeta") }))
	require.NoError(t, reg.Register("alpha", func() Unit { return newStubUnit("alpha") }))

	assert.Equal(t, []string{"alpha", "zeta"}, reg.List())

	desc, err := reg.Describe()
	require.NoError(t, err)
	assert.Equal(t, "stub alpha", desc["alpha"])
	assert.Equal(t, "stub zeta", desc["zeta"])
}
