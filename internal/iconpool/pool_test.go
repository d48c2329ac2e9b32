package iconpool

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/salpanel/internal/listing"
)

func entries(names ...string) []*listing.Entry {
	out := []*listing.Entry{listing.NewEntry(listing.UpEntryName, true)}
	for _, n := range names {
		out = append(out, listing.NewEntry(n, false))
	}
	return out
}

func solid(ctx context.Context, path string, e *listing.Entry) (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, 16, 16)), nil
}

func TestWakeDeliversCurrentGeneration(t *testing.T) {
	var mu sync.Mutex
	got := map[string]uint64{}
	done := make(chan struct{}, 8)

	p := New(Config{Workers: 3, Capacity: 16, Loader: LoaderFunc(solid), OnResult: func(r Result) {
		mu.Lock()
		got[r.Name] = r.Gen
		mu.Unlock()
		done <- struct{}{}
	}})
	p.Start()
	defer p.Stop()

	queued := p.Wake(7, "/pics", entries("a.png", "b.png", "c.png"))
	require.Equal(t, 3, queued, "the up-dir entry is skipped")
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for results")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, map[string]uint64{"a.png": 7, "b.png": 7, "c.png": 7}, got)
	assert.Equal(t, 3, p.Stats().Delivered)
}

func TestWakeDropsWhenFull(t *testing.T) {
	drops := 0
	p := New(Config{Workers: 1, Capacity: 2, Loader: LoaderFunc(solid), OnDrop: func() { drops++ }})

	queued := p.Wake(1, "/", entries("1", "2", "3", "4", "5"))
	assert.Equal(t, 2, queued)
	assert.Equal(t, 3, drops)
	assert.Equal(t, 2, p.Pending())
	assert.Equal(t, Stats{Queued: 2, Dropped: 3}, p.Stats())

	p.Sleep()
	assert.Equal(t, 0, p.Pending())
	assert.True(t, p.Sleeping())
}

func TestSleepWaitsForRunningJobAndDropsItsResult(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	delivered := make(chan Result, 1)

	p := New(Config{
		Workers:  1,
		Capacity: 4,
		Loader: LoaderFunc(func(ctx context.Context, path string, e *listing.Entry) (image.Image, error) {
			close(entered)
			<-release
			return nil, nil
		}),
		OnResult: func(r Result) { delivered <- r },
	})
	p.Start()
	defer p.Stop()

	p.Wake(1, "/", entries("slow.jpg"))
	<-entered

	slept := make(chan struct{})
	go func() {
		p.Sleep()
		close(slept)
	}()

	select {
	case <-slept:
		t.Fatal("Sleep returned while a worker held an entry")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-slept:
	case <-time.After(5 * time.Second):
		t.Fatal("Sleep never returned")
	}

	assert.Empty(t, delivered)
	assert.Equal(t, 1, p.Stats().Stale)
}

func TestScale(t *testing.T) {
	testCases := []struct {
		name   string
		w, h   int
		max    int
		expect image.Point
	}{
		{"landscape", 200, 100, 94, image.Pt(94, 47)},
		{"portrait", 100, 200, 50, image.Pt(25, 50)},
		{"small untouched", 20, 10, 94, image.Pt(20, 10)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			src := image.NewRGBA(image.Rect(0, 0, tc.w, tc.h))
			assert.Equal(t, tc.expect, Scale(src, tc.max).Bounds().Size())
		})
	}
}

func TestThumbnailLoader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "red.png")
	img := image.NewRGBA(image.Rect(0, 0, 300, 150))
	for x := 0; x < 300; x++ {
		for y := 0; y < 150; y++ {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	loader := ThumbnailLoader{MaxPixels: 94}
	thumb, err := loader.Load(context.Background(), path, listing.NewEntry("red.png", false))
	require.NoError(t, err)
	assert.Equal(t, image.Pt(94, 47), thumb.Bounds().Size())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.png"), []byte("nope"), 0o644))
	_, err = loader.Load(context.Background(), filepath.Join(dir, "bad.png"), nil)
	assert.Error(t, err)
}
