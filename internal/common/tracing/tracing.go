package tracing

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/uber/jaeger-client-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"
)

// InitTracer 初始化Jaeger Tracer
func InitTracer(serviceName, endpoint string, sampler float64) (opentracing.Tracer, io.Closer, error) {
	cfg := &jaegercfg.Configuration{
		ServiceName: serviceName,
		Sampler: &jaegercfg.SamplerConfig{
			Type:  jaeger.SamplerTypeConst,
			Param: sampler,
		},
		Reporter: &jaegercfg.ReporterConfig{
			LogSpans:           true,
			LocalAgentHostPort: endpoint,
		},
	}

	tracer, closer, err := cfg.NewTracer(jaegercfg.Logger(jaeger.StdLogger))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init jaeger tracer: %w", err)
	}

	opentracing.SetGlobalTracer(tracer)
	return tracer, closer, nil
}

// StartClientSpan 为一次出站 HTTP 调用创建 client span，并注入到请求头，
// 便于远端持久化 API / 审计接收端拼接调用链。
// 返回的 span 由调用方 Finish；req 为 nil 时只建 span 不注入。
func StartClientSpan(ctx context.Context, operation string, req *http.Request) (opentracing.Span, context.Context) {
	span, ctx := opentracing.StartSpanFromContext(ctx, operation)
	ext.SpanKindRPCClient.Set(span)
	ext.Component.Set(span, "http")

	if req != nil {
		ext.HTTPMethod.Set(span, req.Method)
		ext.HTTPUrl.Set(span, req.URL.String())
		_ = opentracing.GlobalTracer().Inject(
			span.Context(),
			opentracing.HTTPHeaders,
			opentracing.HTTPHeadersCarrier(req.Header),
		)
	}
	return span, ctx
}

// FinishClientSpan 结束 client span，出错时打上 error 标记。
func FinishClientSpan(span opentracing.Span, statusCode int, err error) {
	if span == nil {
		return
	}
	if statusCode > 0 {
		ext.HTTPStatusCode.Set(span, uint16(statusCode))
	}
	if err != nil {
		ext.Error.Set(span, true)
		span.LogKV("event", "error", "message", err.Error())
	}
	span.Finish()
}
