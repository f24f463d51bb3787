package logger

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/noah-isme/guarderia-api/pkg/config"
	"github.com/noah-isme/guarderia-api/pkg/middleware/requestid"
)

// New builds the process logger. Production uses sampled JSON; other
// environments log every line with caller info.
func New(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Env == config.EnvProduction {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.Sampling = nil
	}

	zapCfg.Encoding = "json"
	if cfg.Log.Format == "console" {
		zapCfg.Encoding = "console"
	}

	if cfg.Log.Level != "" {
		if err := zapCfg.Level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
		}
	}

	zapCfg.EncoderConfig.TimeKey = "timestamp"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.EncoderConfig.EncodeDuration = zapcore.MillisDurationEncoder
	zapCfg.InitialFields = map[string]interface{}{
		"service":  "guarderia-api",
		"env":      cfg.Env,
		"timezone": cfg.Attendance.Timezone,
	}

	return zapCfg.Build()
}

// Identity is implemented by the claims stored under the user context key.
type Identity interface {
	LogIdentity() (userID, role, facilityID string)
}

// GinMiddleware logs one line per request. Authenticated requests carry the
// staff member, role and facility. Paths in skip are not logged unless they
// fail.
func GinMiddleware(l *zap.Logger, userKey string, skip ...string) gin.HandlerFunc {
	quiet := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		quiet[p] = struct{}{}
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		if _, ok := quiet[c.Request.URL.Path]; ok && status < 500 {
			return
		}

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if reqID := requestid.Value(c); reqID != "" {
			fields = append(fields, zap.String("request_id", reqID))
		}
		fields = append(fields, identityFields(c, userKey)...)
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case status >= 500:
			l.Error("http_request", fields...)
		case status >= 400:
			l.Warn("http_request", fields...)
		default:
			l.Info("http_request", fields...)
		}
	}
}

func identityFields(c *gin.Context, userKey string) []zap.Field {
	if userKey == "" {
		return nil
	}
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	id, ok := v.(Identity)
	if !ok {
		return nil
	}
	userID, role, facilityID := id.LogIdentity()
	fields := make([]zap.Field, 0, 3)
	if userID != "" {
		fields = append(fields, zap.String("user_id", userID))
	}
	if role != "" {
		fields = append(fields, zap.String("role", role))
	}
	if facilityID != "" {
		fields = append(fields, zap.String("facility_id", facilityID))
	}
	return fields
}
