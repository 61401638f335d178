// Package logging builds the service logger: ectologger over zap, with the
// request identity and trace id copied from the context onto every entry.
package logging

import (
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	appctx "github.com/Rath300/research-collab/pkg/context"
	"github.com/Rath300/research-collab/pkg/tracing"
)

// New returns a logger writing JSON at level, or console output when pretty is set.
func New(appName, level string, pretty bool) (ectologger.Logger, error) {
	zapLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		zapLevel = zapcore.InfoLevel
	}

	zapConfig := zap.NewProductionConfig()
	if pretty {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.Level = zap.NewAtomicLevelAt(zapLevel)

	zapLogger, err := zapConfig.Build(zap.Fields(zap.String("app", appName)))
	if err != nil {
		return nil, err
	}

	return zapadapter.NewZapEctoLogger(zapLogger, EnrichFromContext), nil
}

// EnrichFromContext adds request_id, tenant_id, user_id and trace_id fields
// found on the message context.
func EnrichFromContext(msg ectologger.EctoLogMessage) ectologger.EctoLogMessage {
	if msg.Ctx == nil {
		return msg
	}

	fields := make(map[string]any, len(msg.Fields)+4)
	for k, v := range msg.Fields {
		fields[k] = v
	}

	add := func(key, value string) {
		if _, exists := fields[key]; !exists && value != "" {
			fields[key] = value
		}
	}
	add("request_id", appctx.GetRequestID(msg.Ctx))
	add("tenant_id", appctx.GetTenantID(msg.Ctx))
	add("user_id", appctx.GetUserID(msg.Ctx))
	add("trace_id", tracing.GetTraceID(msg.Ctx))

	msg.Fields = fields
	return msg
}
