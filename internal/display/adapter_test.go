package display

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	version Version
	minimum Version
}

func (f *fakeBackend) Name() string                    { return "fake" }
func (f *fakeBackend) APIVersion() Version             { return f.version }
func (f *fakeBackend) MinimumVersion() Version         { return f.minimum }
func (f *fakeBackend) SocketPath(target string) string { return "" }
func (f *fakeBackend) Attach(target, output string) (Surface, error) {
	return &fakeSurface{}, nil
}

type fakeSurface struct {
	modes  []Mode
	active Mode
	err    error
	closed bool
	// block, when set, is waited on inside Modes
	block chan struct{}
}

func (f *fakeSurface) Modes() ([]Mode, error) {
	if f.block != nil {
		<-f.block
	}
	return f.modes, f.err
}

func (f *fakeSurface) ActiveMode() (Mode, error) {
	return f.active, f.err
}

func (f *fakeSurface) Close() error {
	f.closed = true
	return nil
}

var (
	minimum   = Version{Major: 1, Minor: 2}
	belowMin  = Version{Major: 1, Minor: 1}
	scenarioA = Mode{ID: 1, Width: 1920, Height: 1080, RefreshRate: 60}
	scenarioB = Mode{ID: 2, Width: 1920, Height: 1080, RefreshRate: 120}
)

func scenarioHandle() (*Handle, *fakeSurface) {
	s := &fakeSurface{modes: []Mode{scenarioA, scenarioB}, active: scenarioB}
	return NewHandle(":0", "", s), s
}

func TestAdapterSupported(t *testing.T) {
	tests := []struct {
		name    string
		version Version
		want    bool
	}{
		{"below minimum", belowMin, false},
		{"zero version", Version{}, false},
		{"at minimum", minimum, true},
		{"above minimum", Version{Major: 1, Minor: 6}, true},
		{"next major", Version{Major: 2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAdapter(&fakeBackend{version: tt.version, minimum: minimum})
			assert.Equal(t, tt.want, a.Supported())
		})
	}
}

func TestCapabilityCheckedBeforeHandle(t *testing.T) {
	a := NewAdapter(&fakeBackend{version: belowMin, minimum: minimum})
	present, _ := scenarioHandle()

	for _, h := range []*Handle{nil, present} {
		_, err := a.ListSupportedModes(h)
		assert.ErrorIs(t, err, ErrCapabilityUnsupported)

		_, err = a.GetActiveMode(h)
		assert.ErrorIs(t, err, ErrCapabilityUnsupported)
	}
}

func TestCapabilityErrorMessage(t *testing.T) {
	a := NewAdapter(&fakeBackend{version: belowMin, minimum: minimum})

	_, err := a.GetActiveMode(nil)
	var capErr *CapabilityError
	require.True(t, errors.As(err, &capErr))
	assert.Equal(t, "fake 1.2+ required for display modes (have 1.1.0)", err.Error())
}

func TestHandleUnavailable(t *testing.T) {
	a := NewAdapter(&fakeBackend{version: minimum, minimum: minimum})

	_, err := a.ListSupportedModes(nil)
	assert.ErrorIs(t, err, ErrHandleUnavailable)

	_, err = a.GetActiveMode(nil)
	assert.ErrorIs(t, err, ErrHandleUnavailable)

	h, s := scenarioHandle()
	require.NoError(t, h.Release())
	assert.True(t, s.closed)

	_, err = a.ListSupportedModes(h)
	assert.ErrorIs(t, err, ErrHandleUnavailable)

	_, err = a.GetActiveMode(h)
	assert.ErrorIs(t, err, ErrHandleUnavailable)
}

func TestScenarioModes(t *testing.T) {
	a := NewAdapter(&fakeBackend{version: minimum, minimum: minimum})
	h, _ := scenarioHandle()

	modes, err := a.ListSupportedModes(h)
	require.NoError(t, err)
	assert.Equal(t, []Mode{scenarioA, scenarioB}, modes)

	active, err := a.GetActiveMode(h)
	require.NoError(t, err)
	assert.Equal(t, scenarioB, active)

	ids := make([]int, len(modes))
	for i, m := range modes {
		ids[i] = m.ID
	}
	assert.Contains(t, ids, active.ID)
}

func TestEmptyModeListFails(t *testing.T) {
	a := NewAdapter(&fakeBackend{version: minimum, minimum: minimum})
	h := NewHandle("", "", &fakeSurface{})

	modes, err := a.ListSupportedModes(h)
	assert.ErrorIs(t, err, ErrNoModes)
	assert.Nil(t, modes)
}

func TestSurfaceErrorPropagates(t *testing.T) {
	a := NewAdapter(&fakeBackend{version: minimum, minimum: minimum})
	boom := errors.New("boom")
	h := NewHandle("", "", &fakeSurface{err: boom})

	_, err := a.ListSupportedModes(h)
	assert.ErrorIs(t, err, boom)

	_, err = a.GetActiveMode(h)
	assert.ErrorIs(t, err, boom)
}

func TestReleaseWaitsForInFlightQuery(t *testing.T) {
	a := NewAdapter(&fakeBackend{version: minimum, minimum: minimum})
	s := &fakeSurface{modes: []Mode{scenarioA}, block: make(chan struct{})}
	h := NewHandle("", "", s)

	var wg sync.WaitGroup
	var modes []Mode
	var queryErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		modes, queryErr = a.ListSupportedModes(h)
	}()

	// wait until the query holds the handle
	require.Eventually(t, func() bool {
		if h.mu.TryLock() {
			h.mu.Unlock()
			return false
		}
		return true
	}, time.Second, time.Millisecond)

	released := make(chan struct{})
	go func() {
		_ = h.Release()
		close(released)
	}()

	select {
	case <-released:
		t.Fatal("Release returned while a query was in flight")
	case <-time.After(20 * time.Millisecond):
	}

	close(s.block)
	wg.Wait()
	<-released

	require.NoError(t, queryErr)
	assert.Equal(t, []Mode{scenarioA}, modes)
	assert.True(t, h.Released())

	_, err := a.ListSupportedModes(h)
	assert.ErrorIs(t, err, ErrHandleUnavailable)
}

func TestModeRecord(t *testing.T) {
	assert.Equal(t, map[string]any{
		"modeId":      2,
		"width":       1920,
		"height":      1080,
		"refreshRate": 120.0,
	}, scenarioB.Record())
}
