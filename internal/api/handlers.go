// Package api exposes the moderation pipeline over HTTP with gin.
package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	ecoscan "github.com/anatolykoptev/go-ecoscan"
	"github.com/anatolykoptev/go-ecoscan/internal/mlclient"
)

const (
	serviceName        = "EcoLoop Marketplace Image Analysis"
	maxBodyBytes       = 32 << 20
	healthCheckTimeout = 3 * time.Second

	// AdminTokenHeader carries the shared secret the gateway sets for
	// operator traffic. Without it the body's admin flag is ignored.
	AdminTokenHeader = "X-Admin-Token"
)

// Analyzer is the pipeline surface the handlers need.
type Analyzer interface {
	Analyze(ctx context.Context, req ecoscan.Request) ecoscan.Verdict
	AnalyzeBatch(ctx context.Context, reqs []ecoscan.Request) ([]ecoscan.BatchResult, error)
}

// HealthChecker reports classifier availability.
type HealthChecker interface {
	Health(ctx context.Context) (*mlclient.HealthResponse, error)
}

// Handler serves the analysis endpoints.
type Handler struct {
	analyzer   Analyzer
	health     HealthChecker
	log        *zap.Logger
	adminToken string
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithAdminToken enables admin diagnostics for requests whose
// AdminTokenHeader matches token. An empty token leaves them disabled.
func WithAdminToken(token string) HandlerOption {
	return func(h *Handler) { h.adminToken = token }
}

// NewHandler creates a Handler. health may be nil.
func NewHandler(analyzer Analyzer, health HealthChecker, log *zap.Logger, opts ...HandlerOption) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Handler{analyzer: analyzer, health: health, log: log}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// adminAllowed reports whether the caller presented the admin token.
func (h *Handler) adminAllowed(c *gin.Context) bool {
	if h.adminToken == "" {
		return false
	}
	got := c.GetHeader(AdminTokenHeader)
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.adminToken)) == 1
}

// AnalyzeRequest is the body of the single-image endpoints. Image holds
// base64 bytes or a data: URI. Admin is honoured only with a valid
// AdminTokenHeader.
type AnalyzeRequest struct {
	ImageURL string `json:"image_url"`
	Image    string `json:"image"`
	Context  string `json:"context"`
	Admin    bool   `json:"admin"`
}

// BatchRequest is the body of /analyze-batch.
type BatchRequest struct {
	ImageURLs []string `json:"image_urls"`
	Context   string   `json:"context"`
	Admin     bool     `json:"admin"`
}

// BatchResponse is returned by /analyze-batch.
type BatchResponse struct {
	Results []ecoscan.BatchResult `json:"results"`
	Total   int                   `json:"total"`
	Success int                   `json:"success"`
	Failed  int                   `json:"failed"`
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status     string                   `json:"status"`
	Service    string                   `json:"service"`
	Classifier *mlclient.HealthResponse `json:"classifier,omitempty"`
	Error      string                   `json:"error,omitempty"`
}

func errorBody(msg string) gin.H {
	return gin.H{"status": string(ecoscan.StatusError), "message": msg}
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	resp := HealthResponse{Status: "ok", Service: serviceName}
	if h.health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()
		hr, err := h.health.Health(ctx)
		if err != nil {
			resp.Status = "degraded"
			resp.Error = err.Error()
		} else {
			resp.Classifier = hr
		}
	}
	c.JSON(http.StatusOK, resp)
}

// Predict handles POST /predict; the context comes from the body.
func (h *Handler) Predict(c *gin.Context) {
	h.analyze(c, "")
}

// AnalyzeFor returns a handler with the request context fixed by route.
func (h *Handler) AnalyzeFor(rc ecoscan.RequestContext) gin.HandlerFunc {
	return func(c *gin.Context) {
		h.analyze(c, rc)
	}
}

func (h *Handler) analyze(c *gin.Context, fixed ecoscan.RequestContext) {
	var body AnalyzeRequest
	if !bindJSON(c, &body) {
		return
	}

	req, err := toRequest(body, fixed)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	req.Admin = body.Admin && h.adminAllowed(c)

	v := h.analyzer.Analyze(c.Request.Context(), req)
	h.log.Info("analysis result",
		zap.String("request_id", c.GetString(requestIDKey)),
		zap.String("context", string(req.Context)),
		zap.String("status", string(v.Status)),
		zap.String("detected_item", v.DetectedItem))
	c.JSON(http.StatusOK, v)
}

// AnalyzeBatch handles POST /analyze-batch.
func (h *Handler) AnalyzeBatch(c *gin.Context) {
	var body BatchRequest
	if !bindJSON(c, &body) {
		return
	}
	if len(body.ImageURLs) == 0 {
		c.JSON(http.StatusBadRequest, errorBody("missing image_urls in request"))
		return
	}

	rc := ecoscan.ParseRequestContext(body.Context)
	admin := body.Admin && h.adminAllowed(c)
	reqs := make([]ecoscan.Request, len(body.ImageURLs))
	for i, u := range body.ImageURLs {
		reqs[i] = ecoscan.Request{ImageURL: u, Context: rc, Admin: admin}
	}

	results, err := h.analyzer.AnalyzeBatch(c.Request.Context(), reqs)
	if errors.Is(err, ecoscan.ErrBatchTooLarge) {
		c.JSON(http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, errorBody(fmt.Sprintf("analysis failed: %v", err)))
		return
	}

	success, failed := ecoscan.CountResults(results)
	c.JSON(http.StatusOK, BatchResponse{
		Results: results,
		Total:   len(results),
		Success: success,
		Failed:  failed,
	})
}

func bindJSON(c *gin.Context, dst any) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid JSON body: "+err.Error()))
		return false
	}
	return true
}

// toRequest validates an AnalyzeRequest. fixed, when set, overrides the
// body's context.
func toRequest(body AnalyzeRequest, fixed ecoscan.RequestContext) (ecoscan.Request, error) {
	rc := fixed
	if rc == "" {
		rc = ecoscan.ParseRequestContext(body.Context)
	}
	req := ecoscan.Request{ImageURL: body.ImageURL, Context: rc}

	switch {
	case body.Image != "" && ecoscan.IsDataURL(body.Image):
		req.ImageData = []byte(body.Image)
	case body.Image != "":
		data, err := ecoscan.DecodeBase64(body.Image)
		if err != nil {
			return req, errors.New("invalid base64 image data")
		}
		req.ImageData = data
	case body.ImageURL == "":
		return req, errors.New("missing image_url or image in request")
	}
	return req, nil
}
