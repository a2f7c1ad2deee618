package rpc

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/twin-engine/internal/classify"
	"github.com/danielpatrickdp/twin-engine/internal/engine"
	"github.com/danielpatrickdp/twin-engine/internal/factor"
	"github.com/danielpatrickdp/twin-engine/internal/metrics"
)

// #region harness

type harness struct {
	ctrl   *engine.Controller
	srv    *Server
	reg    *prometheus.Registry
	client *Client
	conn   *grpc.ClientConn
}

func startServer(t *testing.T) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctrl, err := engine.New(engine.Options{Logger: logger})
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	g := grpc.NewServer()
	srv := NewServer(ctrl, m, logger)
	srv.Register(g)
	go func() { _ = g.Serve(lis) }()
	t.Cleanup(func() {
		srv.Shutdown()
		g.Stop()
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	client := NewClient(conn)
	t.Cleanup(func() { client.Close() })

	return &harness{ctrl: ctrl, srv: srv, reg: reg, client: client, conn: conn}
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// #endregion harness

// #region unary-tests

func TestRunOverGRPC(t *testing.T) {
	h := startServer(t)
	ctx := testCtx(t)

	inputs := map[string]float64{
		factor.Sleep: 8, factor.Stress: 20, factor.Activity: 9000,
		factor.Energy: 70, factor.Mood: 70, factor.Water: 2500,
	}
	for name, v := range inputs {
		require.NoError(t, h.client.SetInput(ctx, name, v))
	}

	res, err := h.client.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 80, res.Impact)
	assert.Equal(t, classify.LabelOptimal, res.Label)
	assert.Equal(t, classify.StatusNominal, res.Status)
	require.Len(t, res.Contributions, 6)
	assert.Equal(t, factor.Sleep, res.Contributions[0].Factor)
	assert.Equal(t, 20, res.Contributions[0].Points)
	assert.Equal(t, inputs, res.Inputs)
	assert.NotEmpty(t, res.RunID)
	assert.False(t, res.CompletedAt.IsZero())
}

func TestSetInputInvalidArgument(t *testing.T) {
	h := startServer(t)
	ctx := testCtx(t)

	err := h.client.SetInput(ctx, factor.Sleep, 20)
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	err = h.client.SetInput(ctx, "caffeine", 1)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	assert.Equal(t, 7.0, h.ctrl.Inputs()[factor.Sleep])
}

func TestInvalidInputLabelsStayBounded(t *testing.T) {
	h := startServer(t)
	ctx := testCtx(t)

	for i := 0; i < 50; i++ {
		err := h.client.SetInput(ctx, fmt.Sprintf("junk-%d", i), 1)
		require.Equal(t, codes.InvalidArgument, status.Code(err))
	}
	require.Error(t, h.client.SetInput(ctx, factor.Sleep, 13))

	n, err := testutil.GatherAndCount(h.reg, "twin_simulation_invalid_inputs_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "unknown names share one series")
}

func TestSetInputMalformedMessage(t *testing.T) {
	h := startServer(t)
	ctx := testCtx(t)

	_, err := h.client.client.SetInput(ctx, &structpb.Struct{Fields: map[string]*structpb.Value{
		"factor": structpb.NewNumberValue(1),
	}})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestStateOverGRPC(t *testing.T) {
	h := startServer(t)
	ctx := testCtx(t)

	snap, err := h.client.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, engine.StateIdle, snap.State)
	assert.Nil(t, snap.Result)
	assert.Equal(t, 5000.0, snap.Inputs[factor.Activity])

	res, err := h.client.Run(ctx)
	require.NoError(t, err)

	snap, err = h.client.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, engine.StateCompleted, snap.State)
	require.NotNil(t, snap.Result)
	assert.Equal(t, res.RunID, snap.Result.RunID)
	assert.Equal(t, 15, snap.Result.Impact)
}

func TestHealthServing(t *testing.T) {
	h := startServer(t)
	resp, err := healthpb.NewHealthClient(h.conn).Check(testCtx(t), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

// #endregion unary-tests

// #region stream-tests

func TestSubscribeStreamsResults(t *testing.T) {
	h := startServer(t)
	ctx, cancel := context.WithCancel(testCtx(t))

	got := make(chan engine.Result, 4)
	done := make(chan error, 1)
	go func() {
		done <- h.client.Subscribe(ctx, func(r engine.Result) { got <- r })
	}()

	require.Eventually(t, func() bool { return h.ctrl.Subscribers() == 1 }, 5*time.Second, 10*time.Millisecond)

	res, err := h.ctrl.Run(context.Background())
	require.NoError(t, err)

	select {
	case r := <-got:
		assert.Equal(t, res.RunID, r.RunID)
		assert.Equal(t, classify.StatusWarning, r.Status)
	case <-time.After(5 * time.Second):
		t.Fatal("no streamed result")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("subscribe did not return after cancel")
	}
	require.Eventually(t, func() bool { return h.ctrl.Subscribers() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestShutdownEndsOpenStreams(t *testing.T) {
	h := startServer(t)
	ctx := testCtx(t)

	done := make(chan error, 1)
	go func() {
		done <- h.client.Subscribe(ctx, func(engine.Result) {})
	}()
	require.Eventually(t, func() bool { return h.ctrl.Subscribers() == 1 }, 5*time.Second, 10*time.Millisecond)

	h.srv.Shutdown()
	h.srv.Shutdown()

	select {
	case err := <-done:
		// the server closed the stream cleanly; the client sees EOF
		require.Error(t, err)
		assert.ErrorIs(t, err, io.EOF)
	case <-time.After(2 * time.Second):
		t.Fatal("stream still open after shutdown")
	}
	require.Eventually(t, func() bool { return h.ctrl.Subscribers() == 0 }, 5*time.Second, 10*time.Millisecond)
}

// #endregion stream-tests

// #region codec-tests

func TestResultCodecKeepsFields(t *testing.T) {
	at := time.Date(2026, 5, 1, 8, 30, 0, 123, time.UTC)
	in := engine.Result{
		RunID:  "r1",
		Impact: -85,
		Label:  classify.LabelCritical,
		Status: classify.StatusCritical,
		Contributions: []engine.Contribution{
			{Factor: factor.Sleep, Value: 4, Points: -20},
		},
		Inputs:      map[string]float64{factor.Sleep: 4},
		StartedAt:   at,
		CompletedAt: at.Add(time.Second),
	}
	out, err := decodeResult(encodeResult(in))
	require.NoError(t, err)
	assert.Equal(t, in.RunID, out.RunID)
	assert.Equal(t, in.Impact, out.Impact)
	assert.Equal(t, in.Status, out.Status)
	assert.Equal(t, in.Contributions, out.Contributions)
	assert.True(t, in.CompletedAt.Equal(out.CompletedAt))
}

func TestDecodeResultRejectsUnknownStatus(t *testing.T) {
	_, err := decodeResult(&structpb.Struct{Fields: map[string]*structpb.Value{
		"status": structpb.NewStringValue("fine"),
	}})
	require.Error(t, err)
}

func TestDecodeResultRejectsBadTimestamp(t *testing.T) {
	msg := encodeResult(engine.Result{RunID: "r1", Status: classify.StatusNominal})
	msg.Fields["completed_at"] = structpb.NewStringValue("yesterday")

	_, err := decodeResult(msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "completed_at")
}

// #endregion codec-tests
