package media

import (
	"context"
	"image"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kendovivi/timebank-client/internal/dispatch"
	"github.com/kendovivi/timebank-client/internal/domain"
	"github.com/kendovivi/timebank-client/internal/mainloop"
	"github.com/kendovivi/timebank-client/internal/testutil"
)

// fakeFetcher serves canned responses and can hold a URL until released.
type fakeFetcher struct {
	mu      sync.Mutex
	data    map[string][]byte
	errs    map[string]*domain.APIError
	gates   map[string]chan struct{}
	calls   atomic.Int32
	started chan string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		data:    make(map[string][]byte),
		errs:    make(map[string]*domain.APIError),
		gates:   make(map[string]chan struct{}),
		started: make(chan string, 16),
	}
}

func (f *fakeFetcher) hold(url string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[url] = ch
	return ch
}

func (f *fakeFetcher) FetchRaw(ctx context.Context, url string) ([]byte, *domain.APIError) {
	f.calls.Add(1)
	f.started <- url

	f.mu.Lock()
	gate := f.gates[url]
	data, apiErr := f.data[url], f.errs[url]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if apiErr != nil {
		return nil, apiErr
	}
	return data, nil
}

// drainUntil pumps loop until done reports true.
func drainUntil(t *testing.T, loop *mainloop.Loop, done func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !done() {
		if time.Now().After(deadline) {
			t.Fatal("timed out pumping main loop")
		}
		loop.Drain()
		time.Sleep(time.Millisecond)
	}
}

func TestLoadImage_SameKeyTwiceFetchesOnce(t *testing.T) {
	f := newFakeFetcher()
	const url = "https://cdn.timebank.jp/a.png"
	f.data[url] = encodePNG(t, stripes(200, 200))
	gate := f.hold(url)

	loop := mainloop.New()
	l := NewLoader(f, loop)
	defer l.Close()
	slot := l.NewSlot()

	var results []ImageResult
	onComplete := func(r ImageResult) { results = append(results, r) }

	l.LoadImage(context.Background(), url, slot, 100, 100, onComplete)
	<-f.started
	l.LoadImage(context.Background(), url, slot, 100, 100, onComplete)
	close(gate)

	drainUntil(t, loop, func() bool { return len(results) == 1 })
	loop.Drain()

	if got := f.calls.Load(); got != 1 {
		t.Errorf("fetches = %d, want 1", got)
	}
	if len(results) != 1 || results[0].Err != nil {
		t.Fatalf("results = %+v, want one success", results)
	}
	if b := results[0].Image.Bounds(); b.Dx() != 100 || b.Dy() != 100 {
		t.Errorf("image size = %v, want 100x100", b)
	}

	// Now cached: delivered synchronously without another fetch.
	var hit *ImageResult
	l.LoadImage(context.Background(), url, slot, 100, 100, func(r ImageResult) { hit = &r })
	if hit == nil || hit.Image == nil {
		t.Fatal("cache hit should complete synchronously")
	}
	if got := f.calls.Load(); got != 1 {
		t.Errorf("fetches after cache hit = %d, want 1", got)
	}
}

func TestLoadImage_SupersededResultIsDropped(t *testing.T) {
	f := newFakeFetcher()
	const slow = "https://cdn.timebank.jp/slow.png"
	const fast = "https://cdn.timebank.jp/fast.png"
	f.data[slow] = encodePNG(t, stripes(30, 30))
	f.data[fast] = encodePNG(t, stripes(20, 20))
	gate := f.hold(slow)

	loop := mainloop.New()
	l := NewLoader(f, loop)
	defer l.Close()
	slot := l.NewSlot()

	var delivered []string
	l.LoadImage(context.Background(), slow, slot, 0, 0, func(ImageResult) { delivered = append(delivered, "slow") })
	<-f.started
	l.LoadImage(context.Background(), fast, slot, 0, 0, func(ImageResult) { delivered = append(delivered, "fast") })

	drainUntil(t, loop, func() bool { return len(delivered) == 1 })
	close(gate)

	// The slow task still runs to completion and fills the cache.
	drainUntil(t, loop, func() bool {
		_, ok := l.Images().Get(ImageKey{URL: slow})
		return ok
	})
	time.Sleep(10 * time.Millisecond)
	loop.Drain()

	if len(delivered) != 1 || delivered[0] != "fast" {
		t.Errorf("delivered = %v, want [fast]", delivered)
	}
}

func TestLoadImage_ReleasedSlotDropsResult(t *testing.T) {
	f := newFakeFetcher()
	const url = "https://cdn.timebank.jp/r.png"
	f.data[url] = encodePNG(t, stripes(10, 10))
	gate := f.hold(url)

	loop := mainloop.New()
	l := NewLoader(f, loop)
	defer l.Close()
	slot := l.NewSlot()

	called := false
	l.LoadImage(context.Background(), url, slot, 0, 0, func(ImageResult) { called = true })
	<-f.started
	l.ReleaseSlot(slot)
	close(gate)

	drainUntil(t, loop, func() bool {
		_, ok := l.Images().Get(ImageKey{URL: url})
		return ok
	})
	time.Sleep(10 * time.Millisecond)
	loop.Drain()

	if called {
		t.Error("released slot must not receive a result")
	}
}

func TestLoadImage_AfterReleaseIsIgnored(t *testing.T) {
	f := newFakeFetcher()
	const url = "https://cdn.timebank.jp/gone.png"
	const cached = "https://cdn.timebank.jp/cached.png"
	f.data[url] = encodePNG(t, stripes(10, 10))

	loop := mainloop.New()
	l := NewLoader(f, loop)
	defer l.Close()
	l.Images().Add(ImageKey{URL: cached}, stripes(4, 4))

	slot := l.NewSlot()
	l.ReleaseSlot(slot)

	called := false
	l.LoadImage(context.Background(), url, slot, 0, 0, func(ImageResult) { called = true })
	l.LoadImage(context.Background(), cached, slot, 0, 0, func(ImageResult) { called = true })
	time.Sleep(10 * time.Millisecond)
	loop.Drain()

	if called {
		t.Error("released slot must not receive results")
	}
	if got := f.calls.Load(); got != 0 {
		t.Errorf("fetches = %d, want 0", got)
	}
	if got := l.slots.size(); got != 0 {
		t.Errorf("live slots = %d, want 0", got)
	}
}

func TestLoadImage_Errors(t *testing.T) {
	f := newFakeFetcher()
	const missing = "https://cdn.timebank.jp/missing.png"
	const garbage = "https://cdn.timebank.jp/garbage.png"
	f.errs[missing] = domain.HTTPStatus(404)
	f.data[garbage] = []byte("<html>")

	loop := mainloop.New()
	l := NewLoader(f, loop)
	defer l.Close()

	tests := []struct {
		url  string
		want domain.ErrorKind
	}{
		{missing, domain.KindHTTP},
		{garbage, domain.KindEmptyBody},
	}
	for _, tt := range tests {
		var got *ImageResult
		l.LoadImage(context.Background(), tt.url, l.NewSlot(), 50, 50, func(r ImageResult) { got = &r })
		drainUntil(t, loop, func() bool { return got != nil })
		if got.Image != nil || domain.KindOf(got.Err) != tt.want {
			t.Errorf("%s: result = %+v, want kind %s", tt.url, got, tt.want)
		}
	}
}

func TestLoadAudio_CachedFileSkipsNetwork(t *testing.T) {
	dir := t.TempDir()
	f := newFakeFetcher()
	loop := mainloop.New()
	l := NewLoader(f, loop, WithAudioCache(NewAudioCache(dir)))
	defer l.Close()

	want := filepath.Join(dir, "hello.m4a")
	if err := os.WriteFile(want, []byte("cached"), 0o644); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		var got *AudioResult
		l.LoadAudio(context.Background(), "https://cdn.timebank.jp/v/hello.m4a?x=1", func(r AudioResult) { got = &r })
		if got == nil {
			t.Fatal("cache hit should complete synchronously")
		}
		if got.Err != nil || got.Path != want {
			t.Errorf("result = %+v, want path %s", got, want)
		}
	}
	if f.calls.Load() != 0 {
		t.Errorf("fetches = %d, want 0", f.calls.Load())
	}
}

type countingActivity struct {
	begins, ends atomic.Int32
}

func (c *countingActivity) BeginActivity() { c.begins.Add(1) }
func (c *countingActivity) EndActivity()   { c.ends.Add(1) }

func TestLoadAudio_DownloadsAndPersists(t *testing.T) {
	dir := t.TempDir()
	f := newFakeFetcher()
	const url = "https://cdn.timebank.jp/v/new.m4a"
	const empty = "https://cdn.timebank.jp/v/empty.m4a"
	f.data[url] = []byte("fresh-voice")
	f.data[empty] = []byte{}

	act := &countingActivity{}
	loop := mainloop.New()
	l := NewLoader(f, loop, WithAudioCache(NewAudioCache(dir)), WithActivity(act))
	defer l.Close()

	var got *AudioResult
	l.LoadAudio(context.Background(), url, func(r AudioResult) { got = &r })
	drainUntil(t, loop, func() bool { return got != nil })

	if got.Err != nil {
		t.Fatalf("Err = %v", got.Err)
	}
	data, err := os.ReadFile(got.Path)
	if err != nil || string(data) != "fresh-voice" {
		t.Errorf("file = %q, %v", data, err)
	}
	if act.begins.Load() != 1 || act.ends.Load() != 1 {
		t.Errorf("activity begins=%d ends=%d, want 1/1", act.begins.Load(), act.ends.Load())
	}

	got = nil
	l.LoadAudio(context.Background(), empty, func(r AudioResult) { got = &r })
	drainUntil(t, loop, func() bool { return got != nil })
	if domain.KindOf(got.Err) != domain.KindEmptyBody {
		t.Errorf("empty download kind = %q, want EmptyBody", domain.KindOf(got.Err))
	}
}

func TestLoader_ThroughDispatcher(t *testing.T) {
	avatar := encodePNG(t, stripes(64, 32))
	backend := testutil.NewBackend(t)
	var hits atomic.Int32
	backend.Router.Get("/images/{name}", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if chi.URLParam(r, "name") != "avatar.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(avatar)
	})

	loop := testutil.RunLoop(t)
	d := dispatch.New(loop)
	defer d.Close()
	l := NewLoader(d, loop, WithActivity(d))
	defer l.Close()

	results := make(chan ImageResult, 1)
	loop.Post(func() {
		l.LoadImage(context.Background(), backend.URL+"/images/avatar.png", l.NewSlot(), 16, 16, func(r ImageResult) {
			results <- r
		})
	})
	res := testutil.Await(t, results)

	if res.Err != nil {
		t.Fatalf("Err = %v", res.Err)
	}
	if b := res.Image.Bounds(); b != image.Rect(0, 0, 16, 16) {
		t.Errorf("bounds = %v, want 16x16", b)
	}
	if hits.Load() != 1 {
		t.Errorf("hits = %d, want 1", hits.Load())
	}
}
