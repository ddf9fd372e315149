package conf_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/dorm/pkg/conf"
	"github.com/shashiranjanraj/dorm/pkg/settings"
)

type fakeHolder struct {
	applied []settings.Map
	fail    error
	// onConfigure runs before the map is accepted, to simulate reentrancy.
	onConfigure func()
}

func (h *fakeHolder) Configured() bool { return len(h.applied) > 0 }

func (h *fakeHolder) Configure(m settings.Map) error {
	if h.onConfigure != nil {
		fn := h.onConfigure
		h.onConfigure = nil
		fn()
	}
	if h.fail != nil {
		return h.fail
	}
	if h.Configured() {
		return fmt.Errorf("holder: %w", conf.ErrAlreadyConfigured)
	}
	h.applied = append(h.applied, m)
	return nil
}

func TestConfigureAppliesOnce(t *testing.T) {
	h := &fakeHolder{}
	s := conf.New(h)

	require.NoError(t, s.Configure(settings.Map{"DEBUG": true}))
	require.NoError(t, s.Configure(settings.Map{"DEBUG": false}))

	require.Len(t, h.applied, 1)
	assert.Equal(t, true, h.applied[0]["DEBUG"])
	assert.True(t, s.IsConfigured())
}

func TestEnsureConfigured(t *testing.T) {
	s := conf.New(&fakeHolder{})

	err := s.EnsureConfigured()
	assert.True(t, errors.Is(err, conf.ErrNotConfigured))

	require.NoError(t, s.Configure(settings.Map{}))
	assert.NoError(t, s.EnsureConfigured())
}

func TestFailedConfigureLeavesStateUnconfigured(t *testing.T) {
	h := &fakeHolder{fail: errors.New("bad settings")}
	s := conf.New(h)

	require.Error(t, s.Configure(settings.Map{}))
	assert.False(t, s.IsConfigured())

	h.fail = nil
	require.NoError(t, s.Configure(settings.Map{}))
	assert.True(t, s.IsConfigured())
}

func TestReentrantConfigureIsNoop(t *testing.T) {
	h := &fakeHolder{}
	s := conf.New(h)
	h.onConfigure = func() {
		require.NoError(t, s.Configure(settings.Map{"NESTED": true}))
	}

	require.NoError(t, s.Configure(settings.Map{"OUTER": true}))

	require.Len(t, h.applied, 1)
	assert.Equal(t, true, h.applied[0]["NESTED"])
}
