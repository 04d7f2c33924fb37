package pipeline

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"github.com/iabetor/vvsay/internal/audio"
	"github.com/iabetor/vvsay/internal/config"
)

type fakePlayback struct{ done chan struct{} }

func (p *fakePlayback) Done() <-chan struct{} { return p.done }
func (p *fakePlayback) Err() error            { return nil }
func (p *fakePlayback) Stop()                 {}

type fakeBackend struct {
	devices []audio.Device
	played  []*audio.Buffer
	closed  bool
}

func (b *fakeBackend) Devices() ([]audio.Device, error) { return b.devices, nil }

func (b *fakeBackend) Start(dev audio.Device, buf *audio.Buffer) (audio.Playback, error) {
	b.played = append(b.played, buf)
	pb := &fakePlayback{done: make(chan struct{})}
	close(pb.done)
	return pb, nil
}

func (b *fakeBackend) Close() { b.closed = true }

// newVoiceVox 启动一个返回 1 秒 24kHz 静音的模拟引擎，并统计请求次数。
func newVoiceVox(t *testing.T, requests *atomic.Int32) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "*.wav")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := audio.EncodeWAV(f, &audio.Buffer{Samples: make([]float32, 24000), SampleRate: 24000, Channels: 1}, 16); err != nil {
		t.Fatal(err)
	}
	wav, err := os.ReadFile(f.Name())
	if err != nil {
		t.Fatal(err)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		switch r.URL.Path {
		case "/audio_query":
			io.WriteString(w, `{"accent_phrases":[],"outputSamplingRate":24000}`)
		case "/synthesis":
			w.Write(wav)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server.URL
}

func testConfig(baseURL, device string) *config.Config {
	cfg := config.Default()
	cfg.VoiceVox.BaseURL = baseURL
	cfg.Audio.Device = device
	return cfg
}

func TestSpeak_SynthesizesAndPlays(t *testing.T) {
	var requests atomic.Int32
	cfg := testConfig(newVoiceVox(t, &requests), "CABLE Input")
	backend := &fakeBackend{devices: []audio.Device{
		{Name: "Speakers", HostAPI: 0, Index: 2},
		{Name: "CABLE Input (VB-Audio Virtual Cable)", HostAPI: 0, Index: 5},
	}}

	p, err := build(cfg, backend, "test-run")
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if p.Device().Index != 5 {
		t.Errorf("Device().Index = %d, want 5", p.Device().Index)
	}

	buf, err := p.Speak(context.Background(), "こんにちは")
	if err != nil {
		t.Fatalf("Speak failed: %v", err)
	}
	if buf.SampleRate != 24000 || len(buf.Samples) != 24000 {
		t.Errorf("unexpected buffer: %d Hz, %d samples", buf.SampleRate, len(buf.Samples))
	}
	if len(backend.played) != 1 || backend.played[0] != buf {
		t.Fatalf("expected the synthesized buffer to be played once, got %d", len(backend.played))
	}
	if requests.Load() != 2 {
		t.Errorf("expected 2 requests (audio_query + synthesis), got %d", requests.Load())
	}

	p.Close()
	if !backend.closed {
		t.Error("Close should release the backend")
	}
}

func TestBuild_DeviceNotFoundBeforeNetwork(t *testing.T) {
	var requests atomic.Int32
	cfg := testConfig(newVoiceVox(t, &requests), "Headphones")
	backend := &fakeBackend{devices: []audio.Device{{Name: "Speakers", HostAPI: 0, Index: 2}}}

	_, err := build(cfg, backend, "")
	if !errors.Is(err, audio.ErrDeviceNotFound) {
		t.Fatalf("expected ErrDeviceNotFound, got %v", err)
	}
	if requests.Load() != 0 {
		t.Errorf("no request should reach the engine, got %d", requests.Load())
	}
	if len(backend.played) != 0 {
		t.Errorf("nothing should be played")
	}
}

func TestSpeak_EmptyText(t *testing.T) {
	var requests atomic.Int32
	cfg := testConfig(newVoiceVox(t, &requests), "Speakers")
	backend := &fakeBackend{devices: []audio.Device{{Name: "Speakers"}}}

	p, err := build(cfg, backend, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Speak(context.Background(), "  \t"); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
	if requests.Load() != 0 {
		t.Errorf("empty text should not reach the engine")
	}
}

func TestSpeak_EngineErrorSkipsPlayback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"speaker not found"}`, http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	cfg := testConfig(server.URL, "Speakers")
	backend := &fakeBackend{devices: []audio.Device{{Name: "Speakers"}}}
	p, err := build(cfg, backend, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Speak(context.Background(), "こんにちは"); err == nil {
		t.Fatal("expected synthesis error")
	}
	if len(backend.played) != 0 {
		t.Errorf("failed synthesis must not reach playback")
	}
}
