package hub

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitRecords(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"single", "{}\x1e", []string{"{}"}},
		{"several", `{"type":6}` + "\x1e" + `{"type":1}` + "\x1e", []string{`{"type":6}`, `{"type":1}`}},
		{"trailing fragment dropped", "{}\x1e{\"ty", []string{"{}"}},
		{"empty records skipped", "\x1e\x1e{}\x1e", []string{"{}"}},
		{"nothing", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, r := range splitRecords([]byte(tt.in)) {
				got = append(got, string(r))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeRecord(t *testing.T) {
	b, err := encodeRecord(handshake)
	require.NoError(t, err)
	assert.Equal(t, `{"protocol":"json","version":1}`+"\x1e", string(b))

	b, err = encodeRecord(outMessage{Type: typeInvocation, InvocationID: "1", Target: "RequestHistory", Arguments: []any{}})
	require.NoError(t, err)
	assert.Equal(t, `{"type":1,"invocationId":"1","target":"RequestHistory","arguments":[]}`+"\x1e", string(b))
}

func TestDecodeMessage(t *testing.T) {
	m, err := decodeMessage([]byte(`{"type":3,"invocationId":"a","result":{"ok":true}}`))
	require.NoError(t, err)
	assert.Equal(t, typeCompletion, m.Type)
	assert.Equal(t, "a", m.InvocationID)
	assert.JSONEq(t, `{"ok":true}`, string(m.Result))

	_, err = decodeMessage([]byte(`{`))
	require.Error(t, err)
}

func TestReconnectDelay(t *testing.T) {
	cfg := DefaultConfig("ws://x")
	assert.Equal(t, 2*time.Second, cfg.reconnectDelay(0))
	assert.Equal(t, 2*time.Second, cfg.reconnectDelay(9*time.Second))
	assert.Equal(t, 10*time.Second, cfg.reconnectDelay(10*time.Second))
	assert.Equal(t, 10*time.Second, cfg.reconnectDelay(time.Minute))
}

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{URL: "ws://x", StartAttempts: 7}.withDefaults()
	assert.Equal(t, 7, cfg.StartAttempts)
	assert.Equal(t, 2*time.Second, cfg.StartRetryDelay)
	assert.Equal(t, 5, cfg.MaxReconnectAttempts)
	assert.Equal(t, 15*time.Second, cfg.KeepAliveInterval)
	assert.Equal(t, 30*time.Second, cfg.ServerTimeout)
	assert.NotNil(t, cfg.Dialer)
}

func TestHubURL(t *testing.T) {
	got, err := hubURL("https://api.example.com/hubs/live", "s 1", "a.b.c")
	require.NoError(t, err)
	assert.Equal(t, "wss://api.example.com/hubs/live?access_token=a.b.c&sessionId=s+1", got)

	got, err = hubURL("ws://localhost:5000/hubs/live?v=2", "s1", "")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:5000/hubs/live?sessionId=s1&v=2", got)

	_, err = hubURL("ftp://x", "s1", "")
	require.Error(t, err)
}

func TestDecodeArgs(t *testing.T) {
	args := []json.RawMessage{json.RawMessage(`"s1"`), json.RawMessage(`5`)}

	var (
		s string
		n int64
		x string
	)
	require.NoError(t, decodeArgs(args, &s, &n, &x))
	assert.Equal(t, "s1", s)
	assert.Equal(t, int64(5), n)
	assert.Empty(t, x)

	require.Error(t, decodeArgs(args, &n))
	require.Error(t, decodeArgs(nil, &s))
}

func TestParseTimestamp(t *testing.T) {
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), parseTimestamp("2026-01-02T03:04:05Z"))
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 500_000_000, time.UTC), parseTimestamp("2026-01-02T03:04:05.5"))
	assert.True(t, parseTimestamp("yesterday").IsZero())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "disconnected", StateDisconnected.String())
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "reconnecting", StateReconnecting.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "unknown", State(9).String())
}
