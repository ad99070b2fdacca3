package tracing

import (
	"context"
	"encoding/json"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/opentracing/opentracing-go/log"

	"github.com/mkasajim/realtime-gmail-monitor/internal/logger"
)

const (
	SpanTagAccountAddress = "account-address"
	SpanTagAccountName    = "account-name"
	SpanTagProcessingId   = "processing-id"
	SpanTagComponent      = "component"
)

const (
	SpanTagComponentCursorRepository = "cursorRepository"
	SpanTagComponentRest             = "rest"
	SpanTagComponentCronJob          = "cronJob"
	SpanTagComponentService          = "service"
	SpanTagComponentListener         = "listener"
)

func TracingEnhancer(ctx context.Context, endpoint string) func(c *gin.Context) {
	return func(c *gin.Context) {
		ctxWithSpan, span := StartHttpServerTracerSpan(ctx, endpoint)
		defer span.Finish()
		TagComponentRest(span)
		c.Request = c.Request.WithContext(ctxWithSpan)
		c.Next()
	}
}

func StartHttpServerTracerSpan(ctx context.Context, operationName string) (context.Context, opentracing.Span) {
	serverSpan := opentracing.GlobalTracer().StartSpan(operationName)
	return opentracing.ContextWithSpan(ctx, serverSpan), serverSpan
}

func StartTracerSpan(ctx context.Context, operationName string) (opentracing.Span, context.Context) {
	serverSpan := opentracing.GlobalTracer().StartSpan(operationName)
	return serverSpan, opentracing.ContextWithSpan(ctx, serverSpan)
}

// StartBusMessageTracerSpan opens the root span for one inbound bus notification.
func StartBusMessageTracerSpan(ctx context.Context, operationName string) (context.Context, opentracing.Span) {
	serverSpan := opentracing.GlobalTracer().StartSpan(operationName)
	ext.SpanKindConsumer.Set(serverSpan)
	return opentracing.ContextWithSpan(ctx, serverSpan), serverSpan
}

func TraceErr(span opentracing.Span, err error, fields ...log.Field) {
	if span == nil || err == nil {
		return
	}
	ext.LogError(span, err, fields...)
}

func LogObjectAsJson(span opentracing.Span, name string, object any) {
	jsonObject, err := json.Marshal(object)
	if err == nil {
		span.LogKV(name, string(jsonObject))
	} else {
		span.LogKV(name, object)
	}
}

func TagAccount(span opentracing.Span, name, address string) {
	span.SetTag(SpanTagAccountName, name)
	span.SetTag(SpanTagAccountAddress, address)
}

func TagComponentCursorRepository(span opentracing.Span) {
	span.SetTag(SpanTagComponent, SpanTagComponentCursorRepository)
}

func TagComponentRest(span opentracing.Span) {
	span.SetTag(SpanTagComponent, SpanTagComponentRest)
}

func TagComponentCronJob(span opentracing.Span) {
	span.SetTag(SpanTagComponent, SpanTagComponentCronJob)
}

func TagComponentService(span opentracing.Span) {
	span.SetTag(SpanTagComponent, SpanTagComponentService)
}

func TagComponentListener(span opentracing.Span) {
	span.SetTag(SpanTagComponent, SpanTagComponentListener)
}

func SetDefaultServiceSpanTags(ctx context.Context, span opentracing.Span) {
	TagComponentService(span)
}

func SetDefaultListenerSpanTags(ctx context.Context, span opentracing.Span) {
	TagComponentListener(span)
}

// RecoverAndLogToJaeger reports a panic from a goroutine as a failed span
// instead of letting it take the process down.
func RecoverAndLogToJaeger(log logger.Logger) {
	if r := recover(); r != nil {
		span := opentracing.GlobalTracer().StartSpan("panic")
		defer span.Finish()

		ext.Error.Set(span, true)
		span.LogKV(
			"event", "panic",
			"panic.value", r,
			"stack", string(debug.Stack()),
		)

		log.Errorf("Recovered from panic: %v", r)
	}
}
