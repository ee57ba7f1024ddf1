package handler

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"strconv"

	"github.com/harliandi/go-quadtree/internal/compressor"
	"github.com/harliandi/go-quadtree/pkg/codec"
	"github.com/harliandi/go-quadtree/pkg/quadtree"
)

// Handler handles HTTP requests for quadtree compression
type Handler struct {
	defaults    compressor.Options
	maxUploadMB int
}

// New creates a new Handler. Query parameters override defaults per request.
func New(defaults compressor.Options, maxUploadMB int) *Handler {
	defaults.MaxFileBytes = int64(maxUploadMB) << 20
	return &Handler{
		defaults:    defaults,
		maxUploadMB: maxUploadMB,
	}
}

// Compress handles the /compress endpoint
func (h *Handler) Compress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Parse multipart form with size limit
	r.Body = http.MaxBytesReader(w, r.Body, int64(h.maxUploadMB)<<20+1<<20)
	if err := r.ParseMultipartForm(int64(h.maxUploadMB) << 20); err != nil {
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			http.Error(w, "Content-Type must be multipart/form-data", http.StatusBadRequest)
		} else {
			http.Error(w, "Request too large", http.StatusRequestEntityTooLarge)
		}
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "No file provided", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Failed to read upload", http.StatusBadRequest)
		return
	}

	opts, err := h.options(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := compressor.New(opts).Compress(r.Context(), data)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	setResultHeaders(w, res)
	if r.URL.Query().Get("response") == "json" {
		h.sendJSONResponse(w, res)
		return
	}
	h.sendBinaryResponse(w, res.Encoded, res.Format)
}

// options applies query overrides to the handler defaults
func (h *Handler) options(r *http.Request) (compressor.Options, error) {
	opts := h.defaults
	q := r.URL.Query()

	if v := q.Get("method"); v != "" {
		m, err := quadtree.ParseMethod(v)
		if err != nil {
			return opts, fmt.Errorf("invalid method %q", v)
		}
		opts.Params.Method = m
	}
	if v := q.Get("threshold"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(t) || math.IsInf(t, 0) {
			return opts, fmt.Errorf("invalid threshold %q", v)
		}
		opts.Params.Threshold = t
	}
	if v := q.Get("min_block"); v != "" {
		b, err := strconv.Atoi(v)
		if err != nil || b < 1 {
			return opts, fmt.Errorf("invalid min_block %q", v)
		}
		opts.Params.MinBlockSize = b
	}
	if v := q.Get("target"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(t) || t < 0 || t > 1 {
			return opts, fmt.Errorf("invalid target %q, want a ratio in [0, 1]", v)
		}
		opts.Params.TargetRatio = t
	}
	if v := q.Get("format"); v != "" {
		f, err := codec.ParseFormat(v)
		if err != nil || !f.CanEncode() {
			return opts, fmt.Errorf("unsupported output format %q", v)
		}
		opts.Format = f
	}
	if v := q.Get("measure"); v != "" {
		if !compressor.ValidMeasure(v) {
			return opts, fmt.Errorf("invalid measure %q", v)
		}
		opts.Measure = v
	}
	if v := q.Get("quality"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			return opts, fmt.Errorf("invalid quality %q", v)
		}
		opts.Quality = n
	}
	return opts, nil
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case r.Context().Err() != nil:
		log.Printf("Compression aborted: %v", err)
		// Client is gone; nothing useful to send
	case errors.Is(err, compressor.ErrFileTooLarge):
		http.Error(w, "File too large", http.StatusRequestEntityTooLarge)
	case errors.Is(err, codec.ErrDecode), errors.Is(err, codec.ErrUnsupportedFormat):
		http.Error(w, "Unsupported or invalid image", http.StatusUnsupportedMediaType)
	case compressor.IsClientError(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		log.Printf("Compression error: %v", err)
		http.Error(w, "Compression failed", http.StatusInternalServerError)
	}
}

func setResultHeaders(w http.ResponseWriter, res *compressor.Result) {
	hdr := w.Header()
	hdr.Set("X-Run-ID", res.RunID)
	hdr.Set("X-Quadtree-Depth", strconv.Itoa(res.Tree.Depth()))
	hdr.Set("X-Quadtree-Nodes", strconv.Itoa(res.Tree.NodeCount()))
	hdr.Set("X-Quadtree-Leaves", strconv.Itoa(res.Tree.LeafCount()))
	hdr.Set("X-Compression-Ratio", strconv.FormatFloat(res.Ratio(), 'f', 4, 64))
	hdr.Set("X-Threshold", strconv.FormatFloat(res.Threshold, 'g', -1, 64))
	if res.Search != nil {
		hdr.Set("X-Search-Status", res.Search.Status.String())
	}
}

func (h *Handler) sendBinaryResponse(w http.ResponseWriter, data []byte, f codec.Format) {
	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

type jsonResponse struct {
	RunID          string  `json:"run_id"`
	Data           string  `json:"data"`
	Method         string  `json:"method"`
	Threshold      float64 `json:"threshold"`
	SearchStatus   string  `json:"search_status,omitempty"`
	Depth          int     `json:"depth"`
	Nodes          int     `json:"nodes"`
	Leaves         int     `json:"leaves"`
	OriginalSize   int64   `json:"original_size"`
	CompressedSize int64   `json:"compressed_size"`
	EstimatedSize  int64   `json:"estimated_size"`
	Ratio          float64 `json:"ratio"`
	DurationMS     int64   `json:"duration_ms"`
}

// sendJSONResponse returns the image as a base64 data URI next to the run stats
func (h *Handler) sendJSONResponse(w http.ResponseWriter, res *compressor.Result) {
	body := jsonResponse{
		RunID:          res.RunID,
		Data:           "data:" + res.Format.ContentType() + ";base64," + base64.StdEncoding.EncodeToString(res.Encoded),
		Method:         res.Params.Method.String(),
		Threshold:      res.Threshold,
		Depth:          res.Tree.Depth(),
		Nodes:          res.Tree.NodeCount(),
		Leaves:         res.Tree.LeafCount(),
		OriginalSize:   res.OriginalSize,
		CompressedSize: res.CompressedSize,
		EstimatedSize:  res.EstimatedSize,
		Ratio:          res.Ratio(),
		DurationMS:     res.Duration.Milliseconds(),
	}
	if res.Search != nil {
		body.SearchStatus = res.Search.Status.String()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Failed to write JSON response: %v", err)
	}
}

// Health handles the /health endpoint for readiness/liveness probes
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
