// Package httprequester issues one HTTP request with a timeout and
// classifies its outcome per spec §4.2.
package httprequester

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/torosent/loadsentinel/internal/aggregator"
	"github.com/torosent/loadsentinel/internal/idgen"
	"github.com/torosent/loadsentinel/internal/model"
	"github.com/torosent/loadsentinel/internal/tracing"
)

// Requester issues one HTTP attempt and returns its outcome.
type Requester interface {
	Do(ctx context.Context) model.RequestResult
}

// HTTPRequester is the production Requester, built around a tuned
// http.Client the way the teacher's internal/httpclient.NewClient does.
type HTTPRequester struct {
	client    *http.Client
	targetURL string
	method    string
	timeout   time.Duration
	tracer    trace.Tracer
	propagate bool
	live      *aggregator.LiveEstimator
}

// New builds an HTTPRequester for cfg. tracer may be a no-op tracer;
// propagate controls whether W3C trace-context headers are injected.
func New(cfg model.TestConfig, tracer trace.Tracer, propagate bool) *HTTPRequester {
	return &HTTPRequester{
		client:    newClient(),
		targetURL: cfg.TargetURL,
		method:    string(cfg.Method),
		timeout:   time.Duration(cfg.RequestTimeoutMs) * time.Millisecond,
		tracer:    tracer,
		propagate: propagate,
		live:      aggregator.NewLiveEstimator(),
	}
}

func newClient() *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          256,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{Transport: transport}
}

// Do performs one request and returns its RequestResult. The timestamp on
// the result is the request's start time, not its completion time.
func (r *HTTPRequester) Do(ctx context.Context) (result model.RequestResult) {
	start := time.Now()
	timestampMs := start.UnixMilli()

	reqCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var err error
	correlationID := idgen.CorrelationID()
	reqCtx, span := tracing.StartRequestSpan(reqCtx, r.tracer, correlationID)
	defer func() {
		r.live.Record(result.ResponseTimeMs)
		span.SetAttributes(attribute.Float64("loadsentinel.live_p95_ms", r.live.ApproxP95Ms()))
		tracing.EndSpan(span, err)
	}()

	var body io.Reader
	if r.method == string(model.MethodPOST) {
		body = strings.NewReader("{}")
	}

	req, reqErr := http.NewRequestWithContext(reqCtx, r.method, r.targetURL, body)
	if reqErr != nil {
		err = reqErr
		return model.RequestResult{
			ResponseTimeMs: msSince(start),
			Success:        false,
			ErrorTag:       err.Error(),
			TimestampMs:    timestampMs,
		}
	}
	if r.method == string(model.MethodPOST) {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.propagate {
		tracing.InjectHTTPHeaders(reqCtx, req.Header)
	}

	resp, doErr := r.client.Do(req)
	if doErr != nil {
		err = doErr
		tag := "timeout"
		if reqCtx.Err() != context.DeadlineExceeded {
			tag = err.Error()
		}
		return model.RequestResult{
			ResponseTimeMs: msSince(start),
			Success:        false,
			ErrorTag:       tag,
			TimestampMs:    timestampMs,
		}
	}
	defer resp.Body.Close()
	// Drain to EOF so the transport can return the connection to its idle
	// pool instead of closing it; the body is never inspected for content.
	_, _ = io.Copy(io.Discard, resp.Body)

	elapsed := msSince(start)
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode >= 400 {
		return model.RequestResult{
			ResponseTimeMs: elapsed,
			Success:        false,
			StatusCode:     resp.StatusCode,
			TimestampMs:    timestampMs,
		}
	}

	return model.RequestResult{
		ResponseTimeMs: elapsed,
		Success:        true,
		StatusCode:     resp.StatusCode,
		TimestampMs:    timestampMs,
	}
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}
