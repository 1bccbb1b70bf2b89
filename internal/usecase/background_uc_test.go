//go:build !integration

package usecase

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"telegram-bg-remover/internal/domain"
	derror "telegram-bg-remover/internal/error"
	"telegram-bg-remover/internal/infra/logging"
)

// ---- Fakes ----

type fakeRemover struct {
	err   error
	calls int
	mu    sync.Mutex
}

func (f *fakeRemover) Name() string { return "fake" }
func (f *fakeRemover) Remove(ctx context.Context, img image.Image) (image.Image, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	// cut everything but a 2px frame
	out := imaging.Clone(img)
	b := out.Bounds()
	for y := 2; y < b.Dy()-2; y++ {
		for x := 2; x < b.Dx()-2; x++ {
			out.SetNRGBA(x, y, color.NRGBA{})
		}
	}
	return out, nil
}
func (f *fakeRemover) HealthCheck(ctx context.Context) error { return nil }

type fakeStamper struct {
	err      error
	lastText string
}

func (f *fakeStamper) Stamp(img image.Image, text string) (*image.NRGBA, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastText = text
	return imaging.Clone(img), nil
}

type memStore struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	putErr  error
	collide int // number of Put calls that report ErrAlreadyExists first
}

func newMemStore() *memStore { return &memStore{blobs: map[string][]byte{}} }

func (m *memStore) Put(ctx context.Context, img image.Image) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return "", m.putErr
	}
	if m.collide > 0 {
		m.collide--
		return "", domain.ErrAlreadyExists
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", err
	}
	id := uuid.NewString()
	m.blobs[id] = buf.Bytes()
	return id, nil
}

func (m *memStore) Exists(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blobs[id]
	return ok, nil
}

func (m *memStore) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blobs[id]
	if !ok {
		return nil, domain.ErrArtifactNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blobs)
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 180
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

// ---- Tests ----

func TestProcess_HappyPath(t *testing.T) {
	rm, st, store := &fakeRemover{}, &fakeStamper{}, newMemStore()
	uc := NewBackgroundUseCase(rm, st, store, "Edit By Kishan Soni", 4096, logging.Nop())

	a, err := uc.Process(context.Background(), jpegBytes(t, 64, 48))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if a.Width != 64 || a.Height != 48 {
		t.Fatalf("artifact size %dx%d", a.Width, a.Height)
	}
	if st.lastText != "Edit By Kishan Soni" {
		t.Fatalf("stamper got %q", st.lastText)
	}

	rc, err := uc.Open(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	img, err := imaging.Decode(rc)
	if err != nil {
		t.Fatalf("stored artifact is not a PNG: %v", err)
	}
	if _, _, _, alpha := img.At(10, 10).RGBA(); alpha != 0 {
		t.Fatal("transparency lost in storage")
	}
}

func TestProcess_StageClassification(t *testing.T) {
	boom := errors.New("boom")
	cases := []struct {
		name  string
		raw   []byte
		rm    *fakeRemover
		st    *fakeStamper
		store *memStore
		want  derror.Stage
	}{
		{"not an image", []byte("%PDF-1.4 hello"), &fakeRemover{}, &fakeStamper{}, newMemStore(), derror.StageDecode},
		{"empty", nil, &fakeRemover{}, &fakeStamper{}, newMemStore(), derror.StageDecode},
		{"removal fails", jpegBytes(t, 32, 32), &fakeRemover{err: boom}, &fakeStamper{}, newMemStore(), derror.StageRemoval},
		{"watermark fails", jpegBytes(t, 32, 32), &fakeRemover{}, &fakeStamper{err: domain.ErrImageTooSmall}, newMemStore(), derror.StageWatermark},
		{"persist fails", jpegBytes(t, 32, 32), &fakeRemover{}, &fakeStamper{}, &memStore{blobs: map[string][]byte{}, putErr: boom}, derror.StagePersist},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			uc := NewBackgroundUseCase(tc.rm, tc.st, tc.store, "x", 0, logging.Nop())
			_, err := uc.Process(context.Background(), tc.raw)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := derror.StageOf(err); got != tc.want {
				t.Fatalf("stage = %s, want %s (%v)", got, tc.want, err)
			}
			if tc.store.count() != 0 {
				t.Fatal("nothing may be stored on failure")
			}
		})
	}
}

func TestProcess_UnsupportedMediaIsSentinel(t *testing.T) {
	uc := NewBackgroundUseCase(&fakeRemover{}, &fakeStamper{}, newMemStore(), "x", 0, logging.Nop())
	_, err := uc.Process(context.Background(), []byte("plain text, definitely not pixels"))
	if !errors.Is(err, domain.ErrUnsupportedMedia) {
		t.Fatalf("want ErrUnsupportedMedia, got %v", err)
	}
}

func TestProcess_DownscalesOversizedInput(t *testing.T) {
	uc := NewBackgroundUseCase(&fakeRemover{}, &fakeStamper{}, newMemStore(), "x", 100, logging.Nop())
	a, err := uc.Process(context.Background(), jpegBytes(t, 400, 200))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if a.Width != 100 || a.Height != 50 {
		t.Fatalf("want 100x50 after fit, got %dx%d", a.Width, a.Height)
	}
}

func TestProcess_RetriesIDCollision(t *testing.T) {
	store := newMemStore()
	store.collide = 1
	uc := NewBackgroundUseCase(&fakeRemover{}, &fakeStamper{}, store, "x", 0, logging.Nop())
	if _, err := uc.Process(context.Background(), jpegBytes(t, 16, 16)); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if store.count() != 1 {
		t.Fatalf("want 1 artifact, got %d", store.count())
	}
}

func TestProcess_ConcurrentRequestsGetDistinctArtifacts(t *testing.T) {
	store := newMemStore()
	uc := NewBackgroundUseCase(&fakeRemover{}, &fakeStamper{}, store, "x", 0, logging.Nop())
	raw := jpegBytes(t, 24, 24)

	const n = 16
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, err := uc.Process(context.Background(), raw)
			if err != nil {
				t.Errorf("Process: %v", err)
				return
			}
			ids <- a.ID
		}()
	}
	wg.Wait()
	close(ids)
	seen := map[string]bool{}
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate artifact id %s", id)
		}
		seen[id] = true
	}
	if len(seen) != n || store.count() != n {
		t.Fatalf("want %d artifacts, got %d ids / %d stored", n, len(seen), store.count())
	}
}

func TestOpen_Unknown(t *testing.T) {
	uc := NewBackgroundUseCase(&fakeRemover{}, &fakeStamper{}, newMemStore(), "x", 0, logging.Nop())
	for _, id := range []string{"", "../../etc/passwd", uuid.NewString()} {
		if _, err := uc.Open(context.Background(), id); !errors.Is(err, domain.ErrArtifactNotFound) {
			t.Errorf("%q: want ErrArtifactNotFound, got %v", id, err)
		}
	}
}
