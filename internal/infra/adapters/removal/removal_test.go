//go:build !integration

package removal_test

import (
	"context"
	"errors"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/disintegration/imaging"

	"telegram-bg-remover/internal/config"
	"telegram-bg-remover/internal/domain"
	"telegram-bg-remover/internal/infra/adapters/removal"
	"telegram-bg-remover/internal/infra/logging"
)

func sample() image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, 16, 12))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	return img
}

// cutout replies with a fully transparent PNG of the uploaded size.
func cutout(t *testing.T, fileField string, check func(r *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(8 << 20); err != nil {
			t.Errorf("parse form: %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		f, _, err := r.FormFile(fileField)
		if err != nil {
			t.Errorf("missing %s: %v", fileField, err)
			http.Error(w, "no file", http.StatusBadRequest)
			return
		}
		defer f.Close()
		in, err := imaging.Decode(f)
		if err != nil {
			t.Errorf("upload is not an image: %v", err)
			return
		}
		if check != nil {
			check(r)
		}
		out := image.NewNRGBA(in.Bounds())
		w.Header().Set("Content-Type", "image/png")
		_ = imaging.Encode(w, out, imaging.PNG)
	}
}

func TestRembg_Remove(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(cutout(t, "file", func(r *http.Request) {
		if r.URL.Path != "/api/remove" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.FormValue("model"); got != "u2net" {
			t.Errorf("model = %q", got)
		}
	}))
	defer srv.Close()

	a, err := removal.NewRembgAdapter(srv.URL+"/", "u2net", 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	out, err := a.Remove(context.Background(), sample())
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if out.Bounds().Dx() != 16 || out.Bounds().Dy() != 12 {
		t.Fatalf("unexpected size %v", out.Bounds())
	}
	if _, _, _, alpha := out.At(3, 3).RGBA(); alpha != 0 {
		t.Fatalf("expected transparent pixel, alpha=%d", alpha)
	}
	if err := a.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}

func TestRembg_ServerErrorIsReported(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model crashed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	a, _ := removal.NewRembgAdapter(srv.URL, "", time.Second)
	_, err := a.Remove(context.Background(), sample())
	var se *removal.StatusError
	if !errors.As(err, &se) || se.Code != http.StatusInternalServerError {
		t.Fatalf("want StatusError 500, got %v", err)
	}
	if err := a.HealthCheck(context.Background()); !errors.Is(err, domain.ErrRemovalUnavailable) {
		t.Fatalf("want ErrRemovalUnavailable, got %v", err)
	}
}

func TestRembg_NonImageReply(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>proxy</html>"))
	}))
	defer srv.Close()

	a, _ := removal.NewRembgAdapter(srv.URL, "", time.Second)
	if _, err := a.Remove(context.Background(), sample()); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestRemoveBG_SendsKeyAndFields(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1.0/removebg", cutout(t, "image_file", func(r *http.Request) {
		if r.Header.Get("X-Api-Key") != "secret" {
			t.Errorf("missing api key header")
		}
		if r.FormValue("size") != "auto" || r.FormValue("format") != "png" {
			t.Errorf("unexpected fields size=%q format=%q", r.FormValue("size"), r.FormValue("format"))
		}
	}))
	mux.HandleFunc("/v1.0/account", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != "secret" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(`{"data":{}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	a, err := removal.NewRemoveBGAdapter("secret", srv.URL+"/v1.0/removebg", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.Remove(context.Background(), sample()); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := a.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}

func TestRemoveBG_ErrorTitleSurfaced(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"errors":[{"title":"Insufficient credits"}]}`))
	}))
	defer srv.Close()

	a, _ := removal.NewRemoveBGAdapter("k", srv.URL, time.Second)
	_, err := a.Remove(context.Background(), sample())
	var se *removal.StatusError
	if !errors.As(err, &se) || se.Body != "Insufficient credits" {
		t.Fatalf("want titled StatusError, got %v", err)
	}
}

func TestNewAdapters_RejectMissingSettings(t *testing.T) {
	t.Parallel()
	if _, err := removal.NewRembgAdapter("  ", "", 0); err == nil {
		t.Error("rembg: expected error for empty url")
	}
	if _, err := removal.NewRemoveBGAdapter("", "", 0); err == nil {
		t.Error("removebg: expected error for empty key")
	}
}

type slowRemover struct {
	inFlight, peak int32
	delay          time.Duration
}

func (s *slowRemover) Name() string { return "slow" }
func (s *slowRemover) Remove(ctx context.Context, img image.Image) (image.Image, error) {
	n := atomic.AddInt32(&s.inFlight, 1)
	defer atomic.AddInt32(&s.inFlight, -1)
	for {
		p := atomic.LoadInt32(&s.peak)
		if n <= p || atomic.CompareAndSwapInt32(&s.peak, p, n) {
			break
		}
	}
	select {
	case <-time.After(s.delay):
		return img, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
func (s *slowRemover) HealthCheck(ctx context.Context) error { return nil }

func TestLimitedRemover_CapsConcurrency(t *testing.T) {
	t.Parallel()
	inner := &slowRemover{delay: 20 * time.Millisecond}
	r := removal.NewLimitedRemover(inner, 2, 0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Remove(context.Background(), sample()); err != nil {
				t.Errorf("Remove: %v", err)
			}
		}()
	}
	wg.Wait()
	if p := atomic.LoadInt32(&inner.peak); p > 2 {
		t.Fatalf("peak concurrency %d exceeds limit", p)
	}
}

func TestLimitedRemover_Timeout(t *testing.T) {
	t.Parallel()
	r := removal.NewLimitedRemover(&slowRemover{delay: time.Second}, 0, 10*time.Millisecond)
	_, err := r.Remove(context.Background(), sample())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want deadline exceeded, got %v", err)
	}
}

func TestNew_SelectsProvider(t *testing.T) {
	t.Parallel()
	r, err := removal.New(config.RemovalConfig{Provider: "noop"}, logging.Nop())
	if err != nil || r.Name() != "noop" {
		t.Fatalf("noop: %v %v", r, err)
	}
	in := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	in.SetNRGBA(0, 0, color.NRGBA{R: 9, A: 255})
	out, err := r.Remove(context.Background(), in)
	if err != nil || out.(*image.NRGBA).NRGBAAt(0, 0).R != 9 {
		t.Fatalf("noop should echo input: %v", err)
	}

	if _, err := removal.New(config.RemovalConfig{Provider: "magic"}, logging.Nop()); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
