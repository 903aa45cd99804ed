// Tencent is pleased to support the open source community by making trpc-mcp-middleware available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-mcp-middleware is licensed under the Apache License Version 2.0.

// Package telemetry instruments the middleware endpoints with OpenTelemetry
// metrics and traces.
package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"trpc.group/trpc-go/trpc-mcp-middleware/internal/auth/server/middleware"
)

const instrumentationName = "trpc.group/trpc-go/trpc-mcp-middleware"

// Metric names
const (
	MetricRequests        = "mcp.middleware.requests"
	MetricRequestDuration = "mcp.middleware.request.duration"
)

// Attribute keys
const (
	AttrEndpoint   = attribute.Key("mcp.middleware.endpoint")
	AttrMethod     = attribute.Key("http.request.method")
	AttrStatusCode = attribute.Key("http.response.status_code")
)

// Instruments records one count, one latency sample and one span per request
type Instruments struct {
	tracer   trace.Tracer
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// New creates the instruments. nil providers fall back to the global ones.
func New(tp trace.TracerProvider, mp metric.MeterProvider) (*Instruments, error) {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)

	requests, err := meter.Int64Counter(MetricRequests,
		metric.WithDescription("Number of requests handled by the MCP middleware"))
	if err != nil {
		return nil, fmt.Errorf("create %s counter: %w", MetricRequests, err)
	}
	duration, err := meter.Float64Histogram(MetricRequestDuration,
		metric.WithDescription("Duration of requests handled by the MCP middleware"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, fmt.Errorf("create %s histogram: %w", MetricRequestDuration, err)
	}

	return &Instruments{
		tracer:   tp.Tracer(instrumentationName),
		requests: requests,
		duration: duration,
	}, nil
}

// Wrap instruments next as the named endpoint
func (i *Instruments) Wrap(endpoint string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := i.tracer.Start(ctx, r.Method+" "+endpoint,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				AttrEndpoint.String(endpoint),
				AttrMethod.String(r.Method),
				attribute.String("url.path", r.URL.Path),
			))
		defer span.End()

		rec := middleware.NewStatusRecorder(w)
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(ctx))
		elapsed := float64(time.Since(start)) / float64(time.Millisecond)

		status := rec.StatusCode()
		span.SetAttributes(AttrStatusCode.Int(status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}

		attrs := metric.WithAttributes(
			AttrEndpoint.String(endpoint),
			AttrMethod.String(r.Method),
			AttrStatusCode.Int(status),
		)
		i.requests.Add(ctx, 1, attrs)
		i.duration.Record(ctx, elapsed, attrs)
	})
}
