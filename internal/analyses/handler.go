package analyses

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/JaimeStill/rancoqc/internal/analysis"
	"github.com/JaimeStill/rancoqc/internal/detector"
	"github.com/JaimeStill/rancoqc/pkg/formatting"
	"github.com/JaimeStill/rancoqc/pkg/handlers"
	"github.com/JaimeStill/rancoqc/pkg/routes"
)

// Handler provides HTTP endpoints for analysis operations.
type Handler struct {
	sys           System
	logger        *slog.Logger
	maxUploadSize int64
	maxBodySize   int64
}

// NewHandler creates a Handler bounding multipart uploads by maxUploadSize
// and JSON bodies by maxBodySize.
func NewHandler(sys System, logger *slog.Logger, maxUploadSize, maxBodySize int64) *Handler {
	return &Handler{
		sys:           sys,
		logger:        logger.With("handler", "analyses"),
		maxUploadSize: maxUploadSize,
		maxBodySize:   maxBodySize,
	}
}

// Routes returns the image endpoints mounted under the API prefix.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/images",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/{key...}", Handler: h.Image, Summary: "Fetch a stored analysis image"},
		},
	}
}

// Legacy returns the root-level endpoints called by operator stations.
func (h *Handler) Legacy() routes.Group {
	return routes.Group{
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/analyze_cherries", Handler: h.AnalyzeImage, Summary: "Detect defects in an uploaded image", Body: "AnalyzeImageForm"},
			{Method: "POST", Pattern: "/analyze_rtsp", Handler: h.AnalyzeStream, Summary: "Capture and analyze a camera stream frame", Body: "StreamRequest"},
			{Method: "POST", Pattern: "/manual_analysis", Handler: h.Manual, Summary: "Record hand-counted defects", Body: "ManualRequest"},
		},
	}
}

// AnalyzeImage runs detection on a multipart image upload.
func (h *Handler) AnalyzeImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = fmt.Errorf("%w: limit is %s", ErrImageTooLarge, formatting.FormatBytes(h.maxUploadSize, 0))
			handlers.RespondFailure(w, h.logger, http.StatusRequestEntityTooLarge, err)
			return
		}
		handlers.RespondFailure(w, h.logger, http.StatusBadRequest, err)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		handlers.RespondFailure(w, h.logger, http.StatusBadRequest, ErrMissingImage)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		handlers.RespondFailure(w, h.logger, http.StatusBadRequest, err)
		return
	}

	var meta analysis.CaptureMetadata
	if raw := r.FormValue("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			handlers.RespondFailure(w, h.logger, http.StatusBadRequest, errors.Join(handlers.ErrInvalidBody, err))
			return
		}
	}
	if v := r.FormValue("profile"); v != "" {
		meta.Profile = v
	}
	if v := r.FormValue("distribucion"); v != "" {
		meta.Distribution = v
	}

	img := analysis.Image{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}

	resp, err := h.sys.AnalyzeImage(r.Context(), img, meta)
	if err != nil {
		handlers.RespondFailure(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, resp)
}

// AnalyzeStream grabs a frame from the requested stream and runs detection.
func (h *Handler) AnalyzeStream(w http.ResponseWriter, r *http.Request) {
	req, err := handlers.DecodeJSON[analysis.StreamRequest](r, h.maxBodySize)
	if err != nil {
		handlers.RespondFailure(w, h.logger, http.StatusBadRequest, err)
		return
	}

	resp, err := h.sys.AnalyzeStream(r.Context(), req)
	if errors.Is(err, detector.ErrStreamTimeout) {
		h.logger.Warn("stream capture timed out", "url", req.URL, "error", err)
		handlers.RespondJSON(w, http.StatusGatewayTimeout, map[string]any{
			"success": false,
			"error":   detector.ErrStreamTimeout.Error(),
			"hints": []string{
				"verify the camera is reachable from the backend host",
				"check the stream path and credentials",
				"increase timeout_sec or warmup_frames",
			},
		})
		return
	}
	if err != nil {
		handlers.RespondFailure(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, resp)
}

// Manual records operator-entered counts.
func (h *Handler) Manual(w http.ResponseWriter, r *http.Request) {
	req, err := handlers.DecodeJSON[analysis.ManualRequest](r, h.maxBodySize)
	if err != nil {
		handlers.RespondFailure(w, h.logger, http.StatusBadRequest, err)
		return
	}

	resp, err := h.sys.Manual(r.Context(), req)
	if err != nil {
		handlers.RespondFailure(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	status := http.StatusOK
	if resp.AnalysisID != "" {
		status = http.StatusCreated
	}
	handlers.RespondJSON(w, status, resp)
}

// Image streams a stored analysis image.
func (h *Handler) Image(w http.ResponseWriter, r *http.Request) {
	blob, err := h.sys.Image(r.Context(), r.PathValue("key"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	defer blob.Body.Close()

	w.Header().Set("Content-Type", blob.ContentType)
	if blob.ContentLength > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(blob.ContentLength, 10))
	}
	w.Header().Set("Cache-Control", "private, max-age=86400")
	w.WriteHeader(http.StatusOK)
	io.Copy(w, blob.Body)
}
