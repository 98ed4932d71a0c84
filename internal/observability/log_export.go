package observability

import (
	"context"
	"fmt"
	"strings"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	otelglobal "go.opentelemetry.io/otel/log/global"
	"go.uber.org/zap/zapcore"

	"github.com/riskibarqy/fixture-pipeline/internal/platform/logging"
)

const logExportScope = "fixture-pipeline/internal/platform/logging"

// quietPaths are request paths whose http_request lines stay local. Kubelet
// checks and Prometheus scrapes would otherwise drown the pipeline runs.
var quietPaths = map[string]struct{}{
	"/healthz": {},
	"/metrics": {},
}

// exportLogs mirrors pipeline log entries to the global OpenTelemetry log
// provider that uptrace configures.
func exportLogs(serviceVersion string) logging.MirrorFunc {
	exporter := otelglobal.Logger(logExportScope, otellog.WithInstrumentationVersion(serviceVersion))

	return func(ctx context.Context, level logging.Level, msg string, args ...any) {
		if ctx == nil {
			ctx = context.Background()
		}
		if quietRequest(msg, args) {
			return
		}
		severity := logSeverity(level)
		if !exporter.Enabled(ctx, otellog.EnabledParameters{Severity: severity, EventName: msg}) {
			return
		}

		var record otellog.Record
		now := time.Now().UTC()
		record.SetTimestamp(now)
		record.SetObservedTimestamp(now)
		record.SetSeverity(severity)
		record.SetSeverityText(strings.ToUpper(level.String()))
		record.SetEventName(msg)
		record.SetBody(otellog.StringValue(msg))
		record.AddAttributes(logAttributes(args)...)
		exporter.Emit(ctx, record)
	}
}

func quietRequest(msg string, args []any) bool {
	if msg != "http_request" {
		return false
	}
	for i := 0; i+1 < len(args); i += 2 {
		if args[i] == "http_path" {
			path, _ := args[i+1].(string)
			_, quiet := quietPaths[path]
			return quiet
		}
	}
	return false
}

// logAttributes pairs key/value args the same way the zap facade does. A
// trailing key without a value becomes an empty attribute.
func logAttributes(args []any) []otellog.KeyValue {
	attrs := make([]otellog.KeyValue, 0, (len(args)+1)/2)
	for i := 0; i < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok || key == "" {
			key = fmt.Sprintf("arg_%d", i/2)
		}
		if i+1 == len(args) {
			attrs = append(attrs, otellog.Empty(key))
			break
		}
		attrs = append(attrs, otellog.KeyValue{Key: key, Value: logValue(args[i+1])})
	}
	return attrs
}

func logSeverity(level zapcore.Level) otellog.Severity {
	switch {
	case level <= zapcore.DebugLevel:
		return otellog.SeverityDebug
	case level == zapcore.InfoLevel:
		return otellog.SeverityInfo
	case level == zapcore.WarnLevel:
		return otellog.SeverityWarn
	case level == zapcore.ErrorLevel:
		return otellog.SeverityError
	default:
		return otellog.SeverityFatal
	}
}

// logValue covers the value types the pipeline logs: ids, counts, run ids,
// durations and errors. Anything else is rendered with fmt.
func logValue(value any) otellog.Value {
	switch v := value.(type) {
	case nil:
		return otellog.Value{}
	case string:
		return otellog.StringValue(v)
	case bool:
		return otellog.BoolValue(v)
	case int:
		return otellog.IntValue(v)
	case int32:
		return otellog.Int64Value(int64(v))
	case int64:
		return otellog.Int64Value(v)
	case float64:
		return otellog.Float64Value(v)
	case time.Duration:
		return otellog.StringValue(v.String())
	case time.Time:
		return otellog.StringValue(v.UTC().Format(time.RFC3339))
	case error:
		return otellog.StringValue(v.Error())
	case []int64:
		items := make([]otellog.Value, len(v))
		for i, id := range v {
			items[i] = otellog.Int64Value(id)
		}
		return otellog.SliceValue(items...)
	default:
		return otellog.StringValue(fmt.Sprint(v))
	}
}
