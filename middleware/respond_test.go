package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/up2jj/redlimit/limiter"
	"github.com/up2jj/redlimit/logger"
	"github.com/up2jj/redlimit/script"
	"go.uber.org/zap/zapcore"
)

func newTestContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/", nil)
	return c, w
}

func outcomeConfig(level string, log *logger.Logger) *limiter.Config {
	if log == nil {
		log = logger.Nop("redlimit")
	}
	return &limiter.Config{
		LimiterID: "fixed_window",
		LogLevel:  level,
		Headers:   append([]string(nil), script.RateLimitHeaders...),
		Logger:    log,
	}
}

func TestApplyOutcome_AllowSetsPositionalHeaders(t *testing.T) {
	c, w := newTestContext(t)

	ApplyOutcome(c, outcomeConfig("error", nil), limiter.Outcome{
		Action:  limiter.ActionAllow,
		Headers: []limiter.HeaderValue{{Value: "10"}, {Value: "55"}, {Value: "9"}},
	})

	assert.False(t, c.IsAborted())
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "10", w.Header().Get("x-ratelimit-limit"))
	assert.Equal(t, "55", w.Header().Get("x-ratelimit-reset"))
	assert.Equal(t, "9", w.Header().Get("x-ratelimit-remaining"))
}

func TestApplyOutcome_DenyWritesRejection(t *testing.T) {
	c, w := newTestContext(t)

	ApplyOutcome(c, outcomeConfig("error", nil), limiter.Outcome{
		Action: limiter.ActionDeny,
		Headers: []limiter.HeaderValue{
			{Value: "10"},
			{Value: "55"},
			{Value: "0"},
			{Name: "retry-after", Value: "55"},
		},
	})

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, TooManyRequestsBody, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.Equal(t, "55", w.Header().Get("retry-after"))
}

func TestApplyOutcome_ExplicitNameOverridesPosition(t *testing.T) {
	c, w := newTestContext(t)

	ApplyOutcome(c, outcomeConfig("error", nil), limiter.Outcome{
		Action: limiter.ActionAllow,
		Headers: []limiter.HeaderValue{
			{Name: "x-custom-limit", Value: "10"},
			{Value: "55"},
		},
	})

	assert.Equal(t, "10", w.Header().Get("x-custom-limit"))
	assert.Empty(t, w.Header().Get("x-ratelimit-limit"))
	assert.Equal(t, "55", w.Header().Get("x-ratelimit-reset"))
}

func TestApplyOutcome_BareValueBeyondNamesDropped(t *testing.T) {
	c, w := newTestContext(t)

	ApplyOutcome(c, outcomeConfig("error", nil), limiter.Outcome{
		Action: limiter.ActionAllow,
		Headers: []limiter.HeaderValue{
			{Value: "10"}, {Value: "55"}, {Value: "9"}, {Value: "orphan"},
		},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, w.Header(), 3)
}

func TestApplyOutcome_FailureLeavesResponseUntouched(t *testing.T) {
	log, logs := observedLogger(zapcore.DebugLevel)
	c, w := newTestContext(t)

	ApplyOutcome(c, outcomeConfig("warning", log), limiter.Outcome{
		Err: limiter.ErrEval.Wrap(assert.AnError),
	})

	assert.False(t, c.IsAborted())
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Empty(t, w.Header())

	records := logs.FilterLevelExact(zapcore.WarnLevel)
	require.Equal(t, 1, records.Len())
	ctxMap := records.All()[0].ContextMap()
	assert.Equal(t, "fixed_window", ctxMap["limiter"])
}

func TestApplyOutcome_FailureLogLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warning", "error"} {
		log, logs := observedLogger(zapcore.DebugLevel)
		c, _ := newTestContext(t)

		ApplyOutcome(c, outcomeConfig(level, log), limiter.Outcome{
			Err: limiter.ErrEval.Wrap(assert.AnError),
		})

		want, err := logger.ParseLevel(level)
		require.NoError(t, err)
		assert.Equal(t, 1, logs.FilterLevelExact(want).Len(), "level %s", level)
	}
}

func TestApplyOutcome_FailureDisabledLogsNothing(t *testing.T) {
	log, logs := observedLogger(zapcore.DebugLevel)
	c, _ := newTestContext(t)

	ApplyOutcome(c, outcomeConfig(logger.LevelDisabled, log), limiter.Outcome{
		Err: limiter.ErrEval.Wrap(assert.AnError),
	})

	assert.Zero(t, logs.Len())
}
