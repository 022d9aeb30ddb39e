package grpc

import (
	"context"
	"errors"
	"testing"

	"github.com/neexa/neexa-backend/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type captureLogger struct {
	msgs []string
	args [][]any
}

func (c *captureLogger) Debug(_ context.Context, msg string, args ...any) {
	c.msgs = append(c.msgs, msg)
	c.args = append(c.args, args)
}
func (c *captureLogger) Info(context.Context, string, ...any)  {}
func (c *captureLogger) Warn(context.Context, string, ...any)  {}
func (c *captureLogger) Error(context.Context, string, ...any) {}
func (c *captureLogger) With(...any) logging.Logger            { return c }

func TestLoggingInterceptor(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"ok", nil, codes.OK.String()},
		{"status error", status.Error(codes.NotFound, "unknown service"), codes.NotFound.String()},
		{"plain error", errors.New("boom"), codes.Unknown.String()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := &captureLogger{}
			s := &HealthServer{logger: log}
			info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

			called := false
			resp, err := s.loggingInterceptor(context.Background(), "req", info,
				func(ctx context.Context, req any) (any, error) {
					called = true
					return "resp", tt.err
				})

			assert.True(t, called)
			assert.Equal(t, "resp", resp)
			assert.Equal(t, tt.err, err)

			require.Len(t, log.msgs, 1)
			assert.Equal(t, "grpc call", log.msgs[0])
			assert.Contains(t, log.args[0], info.FullMethod)
			assert.Contains(t, log.args[0], tt.wantCode)
		})
	}
}
