package logger

import (
	"Signalforge/internal/api/config"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
)

// accessLog 与 slog JSON 输出同构，logstash 按 target_index 分流
type accessLog struct {
	Time        string `json:"time"`
	Level       string `json:"level"`
	Msg         string `json:"msg"`
	TraceID     string `json:"trace_id"`
	LogToken    string `json:"log_token,omitempty"`
	TargetIndex string `json:"target_index,omitempty"`
	Method      string `json:"method"`
	Path        string `json:"path"`
	Status      int    `json:"status"`
	Latency     string `json:"latency"`
	ClientIP    string `json:"client_ip"`
}

// SetupGin 注册访问日志与 Recovery
func SetupGin(r *gin.Engine, stash config.LogstashConfig) {
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Output:    LogWriter,
		SkipPaths: []string{"/metrics"},
		Formatter: func(p gin.LogFormatterParams) string {
			entry := accessLog{
				Time:        p.TimeStamp.Format(time.RFC3339),
				Level:       "INFO",
				Msg:         "GIN_ACCESS",
				TraceID:     accessTraceID(p),
				LogToken:    stash.Token,
				TargetIndex: stash.Index,
				Method:      p.Method,
				Path:        p.Path,
				Status:      p.StatusCode,
				Latency:     p.Latency.String(),
				ClientIP:    p.ClientIP,
			}
			if p.StatusCode >= 500 {
				entry.Level = "ERROR"
			}
			line, err := json.Marshal(entry)
			if err != nil {
				return ""
			}
			return string(line) + "\n"
		},
	}))

	r.Use(gin.Recovery())
}

func accessTraceID(p gin.LogFormatterParams) string {
	if id, ok := p.Keys[TraceIDKey].(string); ok && id != "" {
		return id
	}
	if p.Request != nil {
		if id, ok := p.Request.Context().Value(TraceIDKey).(string); ok {
			return id
		}
	}
	return ""
}
