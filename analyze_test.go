package ecoscan

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

func analyzeWith(t *testing.T, cls Classifier, req Request) Verdict {
	t.Helper()
	cfg := &Config{Classifier: cls}
	return cfg.Analyze(context.Background(), req)
}

func TestAnalyze_ApprovesMaterial(t *testing.T) {
	t.Parallel()

	data := encodePNG(t, checkerboard(200, 200, 10))
	v := analyzeWith(t, &mockClassifier{preds: preds("plank", 50, "crate", 20)}, Request{ImageData: data})

	if v.Status != StatusApproved || v.Category != CategoryWood {
		t.Fatalf("got %s/%s (%s), want approved/wood", v.Status, v.Category, v.Message)
	}
	if v.DetectedItem != "plank" || v.Confidence != 50 {
		t.Errorf("DetectedItem/Confidence = %q/%v", v.DetectedItem, v.Confidence)
	}
	if v.Details != nil {
		t.Error("Details present for a non-admin request")
	}
}

func TestAnalyze_AdminDetails(t *testing.T) {
	t.Parallel()

	data := encodePNG(t, checkerboard(200, 200, 10))
	v := analyzeWith(t, &mockClassifier{preds: preds("plank", 50)}, Request{ImageData: data, Admin: true})

	d := v.Details
	if d == nil {
		t.Fatal("Details = nil for an admin request")
	}
	if d.Quality == nil || d.Quality.Status != QualityGood {
		t.Errorf("Quality = %+v, want good", d.Quality)
	}
	if len(d.Predictions) != 1 || d.CategoryMatch == nil || d.RejectionMatch == nil {
		t.Errorf("classification details missing: %+v", d)
	}
	if d.Document == nil || d.Document.IsDocument {
		t.Errorf("Document = %+v, want a negative signal", d.Document)
	}
	if d.Suspicion == nil || d.Suspicion.IsSuspicious {
		t.Errorf("Suspicion = %+v, want not suspicious", d.Suspicion)
	}
	if d.Metadata == nil || d.Metadata.Format != "png" {
		t.Errorf("Metadata = %+v, want png", d.Metadata)
	}
	if d.PerceptualHash == "" {
		t.Error("PerceptualHash empty")
	}
}

func TestAnalyze_Idempotent(t *testing.T) {
	t.Parallel()

	cfg := &Config{Classifier: &mockClassifier{preds: preds("denim", 40, "jersey", 30)}}
	req := Request{ImageData: encodePNG(t, checkerboard(200, 200, 10)), Context: ContextMarketplace}

	first := cfg.Analyze(context.Background(), req)
	second := cfg.Analyze(context.Background(), req)
	if first.Status != second.Status || first.Category != second.Category ||
		first.Confidence != second.Confidence || first.Message != second.Message {
		t.Errorf("verdicts differ: %+v vs %+v", first, second)
	}
}

func TestAnalyze_QualityGateSkipsClassifier(t *testing.T) {
	t.Parallel()

	mc := &mockClassifier{preds: preds("plank", 90)}
	v := analyzeWith(t, mc, Request{ImageData: encodePNG(t, checkerboard(50, 50, 10))})

	if v.Status != StatusRejected || v.RejectionCategory != RejectQuality {
		t.Fatalf("got %s/%s, want rejected/quality", v.Status, v.RejectionCategory)
	}
	if n := mc.calls.Load(); n != 0 {
		t.Errorf("classifier called %d times, want 0", n)
	}
}

func TestAnalyze_ContextPolicies(t *testing.T) {
	t.Parallel()

	blurry := encodePNG(t, uniform(300, 300, 128))
	mc := &mockClassifier{preds: preds("plank", 60)}

	market := analyzeWith(t, mc, Request{ImageData: blurry, Context: ContextMarketplace})
	if market.Status != StatusRejected || market.RejectionCategory != RejectQuality {
		t.Errorf("marketplace got %s/%s, want rejected/quality", market.Status, market.RejectionCategory)
	}

	post := analyzeWith(t, mc, Request{ImageData: blurry, Context: ContextPost})
	if post.Status != StatusApproved {
		t.Errorf("post got %s (%s), want approved", post.Status, post.Message)
	}
}

func TestAnalyze_Override(t *testing.T) {
	t.Parallel()

	data := encodePNG(t, printedPage())
	v := analyzeWith(t, &mockClassifier{preds: preds("beer_bottle", 96)},
		Request{ImageData: data, Context: ContextPost, Admin: true})

	if v.Status != StatusApproved || v.Category != CategoryGlass {
		t.Fatalf("got %s/%s, want approved/glass", v.Status, v.Category)
	}
	if v.Details == nil || v.Details.Override != "beer_bottle" {
		t.Fatalf("Details = %+v, want override recorded", v.Details)
	}
	if v.Details.Suspicion == nil || !v.Details.Suspicion.Skipped {
		t.Errorf("Suspicion = %+v, want skipped", v.Details.Suspicion)
	}
	if v.Details.Document != nil {
		t.Errorf("Document = %+v, want nil after override", v.Details.Document)
	}
}

func TestAnalyze_DocumentRejected(t *testing.T) {
	t.Parallel()

	mc := &mockClassifier{preds: preds("plank", 40)}

	page := analyzeWith(t, mc, Request{ImageData: encodePNG(t, printedPage()), Context: ContextPost})
	if page.Status != StatusRejected || page.RejectionCategory != RejectDocuments {
		t.Fatalf("printed page got %s/%s (%s), want rejected/documents", page.Status, page.RejectionCategory, page.Message)
	}

	bottle := analyzeWith(t, mc, Request{ImageData: encodePNG(t, pageWithBottle()), Context: ContextPost})
	if bottle.Status != StatusApproved {
		t.Errorf("bottle on page got %s/%s (%s), want approved", bottle.Status, bottle.RejectionCategory, bottle.Message)
	}
}

func TestAnalyze_LowConfidenceMaterialApproved(t *testing.T) {
	t.Parallel()

	img := checkerboard(400, 400, 10)
	for _, tc := range []struct {
		format string
		data   []byte
	}{
		{"png", encodePNG(t, img)},
		{"jpeg", encodeJPEG(t, img)},
	} {
		t.Run(tc.format, func(t *testing.T) {
			t.Parallel()
			v := analyzeWith(t, &mockClassifier{preds: preds("plywood", 13)}, Request{ImageData: tc.data, Admin: true})
			if v.Status != StatusApproved || v.Category != CategoryWood {
				t.Fatalf("got %s/%q (%s), want approved/wood", v.Status, v.Category, v.Reason)
			}
			if s := v.Details.Suspicion; s == nil || s.Score != suspicionLowConfidence {
				t.Errorf("Suspicion = %+v, want only the low confidence penalty", s)
			}
		})
	}
}

func TestAnalyze_SuspicionReview(t *testing.T) {
	t.Parallel()

	data := encodePNG(t, checkerboard(200, 200, 10))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	// A weak prediction plus a screenshot url crosses the review line.
	cfg := &Config{Classifier: &mockClassifier{preds: preds("plank", 15)}, HTTPClient: srv.Client()}
	v := cfg.Analyze(context.Background(), Request{ImageURL: srv.URL + "/Screenshot_2024-05-01.png"})
	if v.Status != StatusReview || v.ReviewReason != ReviewSuspicious {
		t.Fatalf("got %s/%q, want suspicious review", v.Status, v.ReviewReason)
	}
	if !v.AdminReviewRequired {
		t.Error("AdminReviewRequired = false")
	}
	if v.Category != CategoryWood {
		t.Errorf("Category = %q, want wood", v.Category)
	}
}

func TestAnalyze_DataURL(t *testing.T) {
	t.Parallel()

	uri := EncodeDataURL(encodePNG(t, checkerboard(200, 200, 10)), "image/png")
	mc := &mockClassifier{preds: preds("denim", 70)}

	for _, req := range []Request{{ImageURL: uri}, {ImageData: []byte(uri)}} {
		v := analyzeWith(t, mc, req)
		if v.Status != StatusApproved || v.Category != CategoryFabric {
			t.Errorf("got %s/%s (%s), want approved/fabric", v.Status, v.Category, v.Message)
		}
	}
}

func TestAnalyze_Fetches(t *testing.T) {
	t.Parallel()

	data := encodePNG(t, checkerboard(200, 200, 10))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	cfg := &Config{Classifier: &mockClassifier{preds: preds("tin_can", 80)}, HTTPClient: srv.Client()}
	v := cfg.Analyze(context.Background(), Request{ImageURL: srv.URL + "/can.png"})
	if v.Status != StatusApproved || v.Category != CategoryMetal {
		t.Errorf("got %s/%s (%s), want approved/metal", v.Status, v.Category, v.Message)
	}
}

func TestAnalyze_ErrorVerdicts(t *testing.T) {
	t.Parallel()

	good := encodePNG(t, checkerboard(200, 200, 10))
	tests := []struct {
		name       string
		cls        Classifier
		req        Request
		wantReason string
	}{
		{"no image", &mockClassifier{preds: preds("plank", 50)}, Request{}, ErrFetch.Error()},
		{"garbage bytes", &mockClassifier{preds: preds("plank", 50)}, Request{ImageData: []byte("not an image")}, ErrDecode.Error()},
		{"bad data url", &mockClassifier{preds: preds("plank", 50)}, Request{ImageURL: "data:image/png;base64,@@"}, ErrDecode.Error()},
		{"unsupported scheme", &mockClassifier{preds: preds("plank", 50)}, Request{ImageURL: "ftp://example.com/a.png"}, ErrFetch.Error()},
		{"classifier error", &mockClassifier{err: errModelDown}, Request{ImageData: good}, ErrClassification.Error()},
		{"classifier panic", &mockClassifier{panic: true}, Request{ImageData: good}, ErrClassification.Error()},
		{"empty predictions", &mockClassifier{}, Request{ImageData: good}, ErrClassification.Error()},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			v := analyzeWith(t, tc.cls, tc.req)
			if v.Status != StatusError {
				t.Fatalf("Status = %q, want error", v.Status)
			}
			if v.Reason != tc.wantReason {
				t.Errorf("Reason = %q, want %q", v.Reason, tc.wantReason)
			}
			if v.Message == "" {
				t.Error("Message is empty")
			}
		})
	}
}

func TestAnalyze_Callbacks(t *testing.T) {
	t.Parallel()

	var (
		mu     sync.Mutex
		events []VerdictEvent
		stages []string
	)
	cfg := &Config{
		Classifier: &mockClassifier{preds: preds("denim", 70)},
		OnVerdict: func(ev VerdictEvent) {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, ev)
		},
		OnStageFailure: func(stage string, _ error) {
			mu.Lock()
			defer mu.Unlock()
			stages = append(stages, stage)
		},
	}

	v := cfg.Analyze(context.Background(), Request{ImageData: encodePNG(t, checkerboard(200, 200, 10)), Context: ContextProfile})

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 1 {
		t.Fatalf("OnVerdict called %d times, want 1", len(events))
	}
	if events[0].Status != v.Status || events[0].Context != ContextProfile || events[0].Category != v.Category {
		t.Errorf("event = %+v, verdict = %+v", events[0], v)
	}
	if len(stages) != 0 {
		t.Errorf("unexpected stage failures: %v", stages)
	}
}

func TestAnalyze_UnknownContextUsesMarketplace(t *testing.T) {
	t.Parallel()

	var got RequestContext
	cfg := &Config{
		Classifier: &mockClassifier{preds: preds("denim", 70)},
		OnVerdict:  func(ev VerdictEvent) { got = ev.Context },
	}
	cfg.Analyze(context.Background(), Request{ImageData: encodePNG(t, checkerboard(200, 200, 10)), Context: "gallery"})
	if got != ContextMarketplace {
		t.Errorf("context = %q, want marketplace", got)
	}
}

func TestErrorVerdict(t *testing.T) {
	t.Parallel()

	v := errorVerdict(stageError(StageFetch, ErrFetch, errors.New("dial tcp: refused")))
	if v.Status != StatusError || v.Reason != ErrFetch.Error() {
		t.Errorf("got %+v", v)
	}

	v = errorVerdict(errors.New("plain"))
	if v.Reason != "plain" {
		t.Errorf("Reason = %q, want plain", v.Reason)
	}
}
