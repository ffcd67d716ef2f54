package rpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/aisp-verify/internal/config"
	"github.com/danielpatrickdp/aisp-verify/internal/logic"
	"github.com/danielpatrickdp/aisp-verify/internal/validator"
)

const doc = `𝔸5.1.Remote@2026-01-25
⟦Ω:Meta⟧{ domain≜test }
⟦Σ:Types⟧{ T≜ℕ }
⟦Γ:Rules⟧{ ∀x:T:x≥0 }
⟦Λ:Funcs⟧{ f≜λx.x }
⟦Ε⟧⟨δ≜1.0⟩
`

// #region harness

// serve starts a Verifier on an in-memory listener and returns a client
// connected to it.
func serve(t *testing.T) (*Client, *validator.Validator) {
	t.Helper()
	cfg := config.Default()
	cfg.SMT.Enabled = false
	v, err := validator.New(cfg)
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	srv := NewServer(v, nil)
	gs := NewGRPCServer(srv)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(func() {
		srv.Shutdown()
		gs.Stop()
	})

	client, err := NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, v
}

// #endregion harness

func TestValidate_RoundTripMatchesLocal(t *testing.T) {
	client, v := serve(t)
	ctx := context.Background()

	remote, err := client.Validate(ctx, "remote.aisp", []byte(doc))
	require.NoError(t, err)
	local, err := v.Validate(ctx, "remote.aisp", []byte(doc))
	require.NoError(t, err)

	assert.Equal(t, local.Valid, remote.Valid)
	assert.Equal(t, local.Tier, remote.Tier)
	assert.Equal(t, local.ContentHash, remote.ContentHash)
	assert.InDelta(t, local.Delta, remote.Delta, 1e-9)
	require.Len(t, remote.Rules, len(local.Rules))
	rr, ok := remote.Rule("rule_1")
	require.True(t, ok)
	assert.Equal(t, logic.True, rr.Verdict)
	require.NotNil(t, remote.Trivector)
	assert.Equal(t, local.Trivector.Dims, remote.Trivector.Dims)
}

func TestTier(t *testing.T) {
	client, _ := serve(t)
	tier, err := client.Tier(context.Background(), "remote.aisp", []byte(doc))
	require.NoError(t, err)
	assert.NotEmpty(t, tier)
}

func TestValidate_MissingSourceIsInvalidArgument(t *testing.T) {
	client, _ := serve(t)
	req, err := structpb.NewStruct(map[string]any{"name": "x.aisp"})
	require.NoError(t, err)
	err = client.cc.Invoke(context.Background(), validateMethod, req, new(structpb.Struct))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestValidate_DeadlineMapsToStatus(t *testing.T) {
	client, _ := serve(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)
	_, err := client.Validate(ctx, "remote.aisp", []byte(doc))
	require.Error(t, err)
	assert.Equal(t, codes.DeadlineExceeded, status.Code(err))
}

func TestHealthy(t *testing.T) {
	client, _ := serve(t)
	assert.NoError(t, client.Healthy(context.Background()))
}

func TestReadRequest(t *testing.T) {
	bad, err := structpb.NewStruct(map[string]any{"source": 12.0})
	require.NoError(t, err)
	_, _, err = readRequest(bad)
	assert.Error(t, err)

	good, err := newRequest("a.aisp", []byte("src"))
	require.NoError(t, err)
	name, src, err := readRequest(good)
	require.NoError(t, err)
	assert.Equal(t, "a.aisp", name)
	assert.Equal(t, "src", string(src))
}
