package detector_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/rancoqc/internal/analysis"
	"github.com/JaimeStill/rancoqc/internal/config"
	"github.com/JaimeStill/rancoqc/internal/detector"
)

func newClient(t *testing.T, url string) *detector.Client {
	t.Helper()
	cfg := &config.DetectorConfig{
		URL:          url,
		Timeout:      "5s",
		StreamBudget: "5s",
		WarmupFrames: 8,
		Confidence:   0.8,
	}
	c, err := detector.New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return c
}

func TestDetect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/detect" {
			t.Errorf("path = %s, want /detect", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.FormValue("profile"); got != "qc_recepcion" {
			t.Errorf("profile = %s, want qc_recepcion", got)
		}
		if got := r.FormValue("confidence"); got != "0.8" {
			t.Errorf("confidence = %s, want 0.8", got)
		}
		f, hdr, err := r.FormFile("image")
		if err != nil {
			t.Fatalf("image part: %v", err)
		}
		defer f.Close()
		if hdr.Filename != "lot.jpg" {
			t.Errorf("filename = %s, want lot.jpg", hdr.Filename)
		}

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"results":{"DOBLE":3,"HIJUELO":1},"confidence_used":0.8,"zones_loaded":2,"image_size":"640x480","processed_image":"aGk="}`)
	}))
	defer srv.Close()

	det, err := newClient(t, srv.URL).Detect(context.Background(), analysis.Image{
		Name:        "lot.jpg",
		ContentType: "image/jpeg",
		Data:        []byte{0xff, 0xd8},
	}, "qc_recepcion", "Nacional")
	if err != nil {
		t.Fatalf("detect: %v", err)
	}

	if det.Results.Total() != 4 {
		t.Errorf("total = %d, want 4", det.Results.Total())
	}
	if labels := det.Results.Labels(); len(labels) != 2 || labels[0] != "DOBLE" {
		t.Errorf("labels = %v, want engine order", labels)
	}
	if det.ImageSize != "640x480" {
		t.Errorf("image size = %s, want 640x480", det.ImageSize)
	}
}

func TestDetectStream(t *testing.T) {
	var got detector.StreamCapture
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/detect_stream" {
			t.Errorf("path = %s, want /detect_stream", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		io.WriteString(w, `{"results":{"SANA":10},"zones_loaded":1,"original_image":"b3Jn"}`)
	}))
	defer srv.Close()

	det, err := newClient(t, srv.URL).DetectStream(context.Background(), detector.StreamCapture{
		URL:     "rtsp://cam/1",
		Profile: "packing_qc",
		Retries: 2,
	})
	if err != nil {
		t.Fatalf("detect stream: %v", err)
	}

	if got.WarmupFrames != 8 {
		t.Errorf("warmup = %d, want configured 8", got.WarmupFrames)
	}
	if got.Confidence != 0.8 {
		t.Errorf("confidence = %v, want 0.8", got.Confidence)
	}
	if got.TimeoutSec != 5 {
		t.Errorf("timeout = %v, want stream budget 5", got.TimeoutSec)
	}
	if det.OriginalImage != "b3Jn" {
		t.Errorf("original image = %q, want b3Jn", det.OriginalImage)
	}
}

func TestEngineErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
		code   int
	}{
		{"capture timeout", http.StatusGatewayTimeout, detector.ErrStreamTimeout, http.StatusGatewayTimeout},
		{"bad image", http.StatusBadRequest, detector.ErrRejected, http.StatusUnprocessableEntity},
		{"engine crash", http.StatusInternalServerError, detector.ErrUnavailable, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, `{"error":"engine said no"}`)
			}))
			defer srv.Close()

			_, err := newClient(t, srv.URL).DetectStream(context.Background(), detector.StreamCapture{URL: "rtsp://cam/1"})
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}

			var engine *detector.EngineError
			if !errors.As(err, &engine) || engine.Message != "engine said no" {
				t.Errorf("engine error = %v, want message from body", engine)
			}
			if code := detector.MapHTTPStatus(err); code != tt.code {
				t.Errorf("status = %d, want %d", code, tt.code)
			}
		})
	}
}

func TestDetectUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newClient(t, url).Detect(context.Background(), analysis.Image{Name: "a.jpg", ContentType: "image/jpeg"}, "qc_recepcion", "")
	if !errors.Is(err, detector.ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}
