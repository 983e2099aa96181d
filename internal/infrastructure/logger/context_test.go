package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithContext(t *testing.T) {
	logger := zap.NewNop()
	ctx := WithContext(context.Background(), logger)

	assert.Same(t, logger, FromContext(ctx))
}

func TestFromContext_NotFound(t *testing.T) {
	logger := FromContext(context.Background())

	// Should return a no-op logger
	require.NotNil(t, logger)
}

func TestWithRequestID(t *testing.T) {
	ctx, logger := WithRequestID(context.Background(), zap.NewNop(), "req-123")

	assert.Equal(t, "req-123", GetRequestID(ctx))
	assert.Same(t, logger, FromContext(ctx))
}

func TestWithOrgID(t *testing.T) {
	ctx, _ := WithOrgID(context.Background(), zap.NewNop(), "org-456")
	assert.Equal(t, "org-456", GetOrgID(ctx))
}

func TestWithUserID(t *testing.T) {
	ctx, _ := WithUserID(context.Background(), zap.NewNop(), "user-789")
	assert.Equal(t, "user-789", GetUserID(ctx))
}

func TestGetters_Empty(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRequestID(ctx))
	assert.Empty(t, GetOrgID(ctx))
	assert.Empty(t, GetUserID(ctx))
}

func TestContextKeys_Distinct(t *testing.T) {
	assert.NotEqual(t, RequestIDKey, OrgIDKey)
	assert.NotEqual(t, OrgIDKey, UserIDKey)
}

func TestL_EnrichesWithContextFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	ctx := WithContext(context.Background(), base)
	ctx, _ = WithRequestID(ctx, FromContext(ctx), "req-1")
	ctx, _ = WithOrgID(ctx, FromContext(ctx), "org-1")

	L(ctx).Info("hello")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "org-1", fields["org_id"])
	_, hasUser := fields["user_id"]
	assert.False(t, hasUser)
}

func TestL_NoLoggerInContext(t *testing.T) {
	// Must not panic with an empty context.
	L(context.Background()).Info("noop")
}
