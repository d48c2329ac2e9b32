//go:build !windows

package fs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNet struct {
	calls int
	err   error
}

func (f *fakeNet) Reconnect(ctx context.Context, root string) error {
	f.calls++
	return f.err
}

func TestProbeExistingPath(t *testing.T) {
	dir := t.TempDir()
	p := &OSProber{}
	res := p.Probe(context.Background(), dir, false)
	require.True(t, res.OK())
	assert.False(t, res.Cut)
	assert.Nil(t, res.LastErr)
	assert.True(t, IsTheSamePath(dir, res.Path))
}

func TestProbeShortensToAccessiblePrefix(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "missing", "deeper", "still")
	p := &OSProber{}
	res := p.Probe(context.Background(), target, false)
	require.True(t, res.OK())
	assert.True(t, res.Cut)
	assert.True(t, IsTheSamePath(dir, res.Path))
	require.Error(t, res.LastErr)
	assert.True(t, errors.Is(res.LastErr, os.ErrNotExist))
}

func TestProbeFileIsCutToParent(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	res := (&OSProber{}).Probe(context.Background(), file, false)
	require.True(t, res.OK())
	assert.True(t, res.Cut)
	assert.ErrorIs(t, res.LastErr, ErrNotDirectory)
}

func TestProbeRelativeIsInvalid(t *testing.T) {
	res := (&OSProber{}).Probe(context.Background(), "relative", false)
	assert.False(t, res.OK())
	assert.True(t, res.PathInvalid)
	assert.ErrorIs(t, res.Err, ErrInvalidPath)
}

func TestProbeCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := (&OSProber{}).Probe(ctx, t.TempDir(), false)
	assert.ErrorIs(t, res.Err, ErrUserTerminated)
}

func TestProbeNotReadyStopsShortening(t *testing.T) {
	calls := 0
	p := &OSProber{Stat: func(path string) (os.FileInfo, error) {
		calls++
		if path == "/" {
			return os.Stat("/")
		}
		return nil, &os.PathError{Op: "stat", Path: path, Err: syscall.Errno(123)}
	}}
	res := p.Probe(context.Background(), "/media/cd/dir", false)
	assert.ErrorIs(t, res.Err, ErrNotReady)
	assert.Equal(t, "/media/cd/dir", res.Path)
	assert.Equal(t, 2, calls, "root check and one probe")
}

func TestProbeReconnectsUNC(t *testing.T) {
	up := false
	net := &fakeNet{}
	p := &OSProber{
		Net: net,
		Stat: func(path string) (os.FileInfo, error) {
			if !up {
				up = true
				return nil, os.ErrNotExist
			}
			return os.Stat(os.TempDir())
		},
	}
	res := p.Probe(context.Background(), `\\srv\share\dir`, true)
	assert.True(t, res.OK())
	assert.Equal(t, 1, net.calls)
}

func TestProbeReconnectFailureIsReported(t *testing.T) {
	net := &fakeNet{err: errors.New("network down")}
	p := &OSProber{
		Net:  net,
		Stat: func(string) (os.FileInfo, error) { return nil, os.ErrNotExist },
	}
	res := p.Probe(context.Background(), `\\srv\share`, true)
	assert.True(t, res.PathInvalid)
	assert.Error(t, res.Err)

	// without tryNet the reconnector is not consulted
	net.calls = 0
	res = p.Probe(context.Background(), `\\srv\share`, false)
	assert.False(t, res.PathInvalid)
	assert.Equal(t, 0, net.calls)
}

func TestClassify(t *testing.T) {
	testCases := []struct {
		name   string
		err    error
		target error
	}{
		{"permission", os.ErrPermission, ErrAccessDenied},
		{"canceled", context.Canceled, ErrUserTerminated},
		{"enomedium", &os.PathError{Err: syscall.Errno(123)}, ErrNotReady},
		{"passthrough", os.ErrNotExist, os.ErrNotExist},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, Classify(tc.err), tc.target)
		})
	}
	assert.NoError(t, Classify(nil))
}
