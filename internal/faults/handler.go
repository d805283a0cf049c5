package faults

import (
	"time"

	"golang.org/x/time/rate"

	"dashmon/internal/clockwork"
	"dashmon/internal/notices"
	"dashmon/pkg/logx"
)

const (
	noticeDuration         = 8 * time.Second
	noticeDurationCritical = 12 * time.Second

	defaultNoticeRate = 3 // user notifications per second, across components
)

// Config tunes the handler. Zero values fall back to defaults.
type Config struct {
	BreakerThreshold int
	BreakerCooldown  time.Duration
	NoticeRatePerSec int
}

// Handler is the single funnel for raw failures: classify once, always log,
// and surface a toast only while the component's breaker is closed and the
// rate valve admits. Suppression never applies to the log record, so
// operators keep full visibility during an incident.
type Handler struct {
	log     logx.Logger
	notices *notices.Store
	breaker *Breaker
	limiter *rate.Limiter
}

func NewHandler(cfg Config, log logx.Logger, store *notices.Store, clk clockwork.Clock) *Handler {
	rps := cfg.NoticeRatePerSec
	if rps <= 0 {
		rps = defaultNoticeRate
	}
	return &Handler{
		log:     log,
		notices: store,
		breaker: NewBreaker(cfg.BreakerThreshold, cfg.BreakerCooldown, clk),
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
	}
}

// Breaker exposes the circuit breaker for callers that need to probe state.
func (h *Handler) Breaker() *Breaker { return h.breaker }

// Process classifies raw (idempotent for already-classified failures), logs
// it, and notifies the user iff the breaker for component is closed.
func (h *Handler) Process(raw any, component, method string) *Failure {
	f := Classify(raw)

	fields := []logx.Field{
		logx.String("type", string(f.Type)),
		logx.String("severity", string(f.Severity)),
	}
	if component != "" {
		fields = append(fields, logx.String("component", component))
	}
	if method != "" {
		fields = append(fields, logx.String("method", method))
	}
	if len(f.Details) > 0 {
		fields = append(fields, logx.Any("details", f.Details))
	}

	switch f.Severity {
	case SeverityHigh, SeverityCritical:
		h.log.Error(f.Message, fields...)
	default:
		h.log.Warn(f.Message, fields...)
	}

	if h.breaker.ShouldHandle(component) {
		h.ShowToUser(f, component)
	}
	return f
}

// ShowToUser pushes the failure's user-facing text into the notice store.
// The rate valve guards against toast storms that the breaker, counting per
// component, would not catch.
func (h *Handler) ShowToUser(f *Failure, component string) {
	if h.notices == nil || f == nil {
		return
	}
	if !h.limiter.Allow() {
		h.log.Debug("notice suppressed by rate valve",
			logx.String("component", component), logx.String("type", string(f.Type)))
		return
	}

	dur := noticeDuration
	if f.Severity == SeverityCritical {
		dur = noticeDurationCritical
	}
	h.notices.Add(f.UserMessage, noticeType(f.Severity), dur)
}

func noticeType(sev Severity) notices.Type {
	switch sev {
	case SeverityHigh, SeverityCritical:
		return notices.TypeError
	case SeverityMedium:
		return notices.TypeWarning
	default:
		return notices.TypeInfo
	}
}
