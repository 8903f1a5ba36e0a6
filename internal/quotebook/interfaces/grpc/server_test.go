package grpc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/quotebook/internal/quotebook/application"
	"github.com/wyfcoding/quotebook/internal/quotebook/domain"
	"github.com/wyfcoding/quotebook/pkg/config"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type emptySource struct{}

func (emptySource) Load(context.Context) ([]domain.Quote, error) { return nil, nil }
func (emptySource) Describe() string { return "empty" }

func TestHealthFollowsSnapshot(t *testing.T) {
	svc, err := application.NewQuoteBookService(emptySource{}, nil, nil, application.ServiceConfig{ResultLimit: 5, NodeID: 1})
	require.NoError(t, err)

	srv, healthSrv := NewServer(svc, nil, config.GRPCConfig{MaxConcurrentStreams: 100})
	defer srv.Stop()

	ctx := context.Background()
	resp, err := healthSrv.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)

	_, err = svc.Rebuild(ctx)
	require.NoError(t, err)

	resp, err = healthSrv.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}

func TestServerOptions_MaxConcurrentStreams(t *testing.T) {
	assert.Len(t, serverOptions(nil, config.GRPCConfig{}), 1)
	assert.Len(t, serverOptions(nil, config.GRPCConfig{MaxConcurrentStreams: 1000}), 2)
}
