package tracing

import (
	"context"
	"io"
	"net/http"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/viant/durable"

// Span kinds accepted by StartSpan.
const (
	KindClient   = trace.SpanKindClient
	KindServer   = trace.SpanKindServer
	KindInternal = trace.SpanKindInternal
)

var (
	installOnce sync.Once
	installErr  error
)

// Init exports spans as JSON lines to outputFile, or to stdout when outputFile
// is empty. Only the first call installs a provider.
func Init(serviceName, serviceVersion, outputFile string) error {
	var writer io.Writer = os.Stdout
	if outputFile != "" {
		f, err := os.OpenFile(outputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		writer = f
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(writer))
	if err != nil {
		return err
	}
	return InitWithExporter(serviceName, serviceVersion, exporter)
}

// InitWithExporter installs a provider that sends spans to exporter.
func InitWithExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) error {
	if exporter == nil {
		return nil
	}
	installOnce.Do(func() {
		var res *resource.Resource
		if res, installErr = resource.New(context.Background(), resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", serviceVersion),
		)); installErr != nil {
			return
		}
		otel.SetTracerProvider(sdktrace.NewTracerProvider(
			sdktrace.WithSyncer(exporter),
			sdktrace.WithResource(res),
		))
	})
	return installErr
}

// Span is a nil-safe handle over an OpenTelemetry span.
type Span struct {
	span trace.Span
}

// Set attaches attributes.
func (s *Span) Set(attrs ...attribute.KeyValue) *Span {
	if s != nil && len(attrs) > 0 {
		s.span.SetAttributes(attrs...)
	}
	return s
}

// SetHTTPStatus records the response code; 4xx and 5xx mark the span failed.
func (s *Span) SetHTTPStatus(code int) {
	if s == nil {
		return
	}
	s.span.SetAttributes(attribute.Int("http.status_code", code))
	if code >= http.StatusBadRequest {
		s.span.SetStatus(codes.Error, http.StatusText(code))
		return
	}
	s.span.SetStatus(codes.Ok, "")
}

// Fail records err on the span.
func (s *Span) Fail(err error) {
	if s == nil || err == nil {
		return
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

// StartSpan starts a child of the span carried by ctx.
func StartSpan(ctx context.Context, name string, kind trace.SpanKind, attrs ...attribute.KeyValue) (context.Context, *Span) {
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, name, trace.WithSpanKind(kind), trace.WithAttributes(attrs...))
	return ctx, &Span{span: span}
}

// EndSpan marks the span failed when err is not nil and ends it.
func EndSpan(s *Span, err error) {
	if s == nil {
		return
	}
	s.Fail(err)
	s.span.End()
}
