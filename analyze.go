package ecoscan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/corona10/goimagehash"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/anatolykoptev/go-ecoscan"

// Request is one image submitted for analysis. Exactly one of ImageURL and
// ImageData should be set; ImageData wins when both are. Either may hold a
// base64 data: URI.
type Request struct {
	ImageURL  string
	ImageData []byte
	Context   RequestContext
	// Admin keeps Verdict.Details in the result.
	Admin bool
}

// analysis is a verdict plus the batch-level facts derived alongside it.
type analysis struct {
	verdict Verdict
	hash    *goimagehash.ImageHash
}

// Analyze runs the full pipeline for one image and always returns a
// Verdict. Fetch, decode and classification failures produce a
// StatusError verdict; failures in the heuristic stages degrade to
// neutral results. Analyze is safe for concurrent use.
func (cfg *Config) Analyze(ctx context.Context, req Request) Verdict {
	c := cfg.defaults()
	v := c.analyze(ctx, req).verdict
	return finishVerdict(v, req.Admin)
}

func (cfg *Config) analyze(ctx context.Context, req Request) (res analysis) {
	start := time.Now()
	rc := ParseRequestContext(string(req.Context))

	ctx, span := otel.Tracer(tracerName).Start(ctx, "ecoscan.analyze",
		trace.WithAttributes(attribute.String("context", string(rc))))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			if cfg.OnPanic != nil {
				cfg.OnPanic("analyze", r)
			}
			cfg.Logger.Error("ecoscan: pipeline panic", zap.Any("panic", r))
			res = analysis{verdict: errorVerdict(stageError(StageDecision, ErrPipeline, fmt.Errorf("panic: %v", r)))}
		}
		if res.verdict.Status == StatusError {
			span.SetStatus(codes.Error, res.verdict.Message)
		}
		span.SetAttributes(attribute.String("status", string(res.verdict.Status)))
		cfg.emitVerdict(rc, req.ImageURL, res.verdict, time.Since(start))
	}()

	return cfg.runPipeline(ctx, req, rc)
}

func (cfg *Config) runPipeline(ctx context.Context, req Request, rc RequestContext) analysis {
	policy := cfg.policyFor(rc)
	tracer := otel.Tracer(tracerName)

	src, err := cfg.resolveSource(ctx, req)
	if err != nil {
		return analysis{verdict: errorVerdict(err)}
	}

	_, span := tracer.Start(ctx, "ecoscan.decode")
	img, format, err := DecodeImage(src.Data)
	span.End()
	if err != nil {
		return analysis{verdict: errorVerdict(err)}
	}

	var res analysis
	diag := &Diagnostics{}

	quality, err := AssessQuality(img, policy)
	if err != nil {
		cfg.stageFailed(StageQuality, err)
	}
	diag.Quality = &quality
	if hash, err := PerceptualHash(img); err == nil {
		res.hash = hash
		diag.PerceptualHash = hash.ToString()
	}

	in := DecisionInput{Quality: &quality}
	if quality.Rejects(policy) {
		res.verdict = withDetails(Decide(in, policy), diag)
		return res
	}

	cctx, span := tracer.Start(ctx, "ecoscan.classify")
	cls, err := cfg.classify(cctx, img)
	if err != nil {
		span.RecordError(err)
	}
	span.End()
	if err != nil {
		res.verdict = withDetails(errorVerdict(err), diag)
		return res
	}
	diag.Predictions = cls.Predictions

	cat := MapCategory(cls)
	rej := MatchRejection(cls, policy.AllowPeople)
	diag.CategoryMatch, diag.RejectionMatch = &cat, &rej
	in.Classification, in.Category, in.Rejection = cls, &cat, &rej

	if ov, ok := MatchOverride(cls); ok {
		diag.Override = ov.Term
		skipped := skippedSuspicion()
		diag.Suspicion = &skipped
		res.verdict = withDetails(Decide(in, policy), diag)
		return res
	}

	meta := cfg.extractMetadata(src, format)
	diag.Metadata = meta

	_, span = tracer.Start(ctx, "ecoscan.patterns")
	var report *PatternReport
	if rep, err := DetectPatterns(img); err != nil {
		cfg.stageFailed(StagePatterns, err)
	} else {
		report = &rep
	}
	span.End()

	doc := CombineDocumentSignal(cls, report)
	diag.Document = &doc
	in.Document = &doc

	susp, err := screenSafely(SuspicionInput{
		Classification: cls,
		Document:       &doc,
		Metadata:       meta,
		ImageURL:       src.URL,
		AllowPeople:    policy.AllowPeople,
	})
	if err != nil {
		cfg.stageFailed(StageSuspicion, err)
	} else {
		diag.Suspicion = &susp
		in.Suspicion = &susp
	}

	res.verdict = withDetails(Decide(in, policy), diag)
	return res
}

// resolveSource turns a request into raw image bytes: inline data, an
// inline data: URI, or a download.
func (cfg *Config) resolveSource(ctx context.Context, req Request) (*Source, error) {
	switch {
	case len(req.ImageData) > 0:
		if IsDataURL(string(req.ImageData[:min(5, len(req.ImageData))])) {
			return decodeInline(string(req.ImageData))
		}
		return &Source{Data: req.ImageData}, nil
	case IsDataURL(req.ImageURL):
		return decodeInline(req.ImageURL)
	case req.ImageURL != "":
		ctx, span := otel.Tracer(tracerName).Start(ctx, "ecoscan.fetch",
			trace.WithAttributes(attribute.String("url", req.ImageURL)))
		defer span.End()
		src, err := cfg.fetch(ctx, req.ImageURL)
		if err != nil {
			span.RecordError(err)
			cfg.Logger.Warn("ecoscan: fetch failed", zap.String("url", req.ImageURL), zap.Error(err))
		}
		return src, err
	default:
		return nil, stageError(StageFetch, ErrFetch, ErrNoImage)
	}
}

func decodeInline(s string) (*Source, error) {
	data, mime, err := DecodeDataURL(s)
	if err != nil {
		return nil, stageError(StageDecode, ErrDecode, err)
	}
	return &Source{Data: data, MIMEType: mime}, nil
}

func (cfg *Config) extractMetadata(src *Source, format string) (meta *ImageMetadata) {
	defer func() {
		if r := recover(); r != nil {
			cfg.stageFailed(StageMetadata, fmt.Errorf("panic: %v", r))
			meta = nil
		}
	}()
	return ExtractImageMetadata(src.Data, format)
}

func screenSafely(in SuspicionInput) (res SuspicionResult, err error) {
	defer recoverStage(StageSuspicion, ErrPipeline, &err)
	return ScreenSuspicion(in), nil
}

func (cfg *Config) emitVerdict(rc RequestContext, url string, v Verdict, d time.Duration) {
	cfg.Logger.Info("ecoscan: verdict",
		zap.String("url", url),
		zap.String("context", string(rc)),
		zap.String("status", string(v.Status)),
		zap.String("category", v.Category),
		zap.Float64("confidence", v.Confidence),
		zap.Duration("duration", d))
	if cfg.OnVerdict != nil {
		cfg.OnVerdict(VerdictEvent{
			Context:  rc,
			Status:   v.Status,
			Category: v.Category,
			Duration: d,
		})
	}
}

// errorVerdict reports a fetch, decode, classification or pipeline failure.
func errorVerdict(err error) Verdict {
	reason := err.Error()
	var se *StageError
	if errors.As(err, &se) {
		reason = se.Kind.Error()
	}
	return Verdict{
		Status:  StatusError,
		Message: errorMessage(err),
		Reason:  reason,
	}
}

func withDetails(v Verdict, d *Diagnostics) Verdict {
	v.Details = d
	return v
}

// finishVerdict strips admin diagnostics unless they were requested.
func finishVerdict(v Verdict, admin bool) Verdict {
	if !admin {
		v.Details = nil
	}
	return v
}

