package statsd

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeMetricName(t *testing.T) {
	cases := map[string]string{
		"access.decision":      "access.decision",
		" access decision ":    "access_decision",
		"..access..decision..": "access.decision",
		"a/b:c|d":              "a_b_c_d",
		"":                     "",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeMetricName(in), in)
	}
}

func TestFormatTags(t *testing.T) {
	got := formatTags(
		map[string]string{"env": "prod", "service": "portalgate", " ": "dropped"},
		map[string]string{"portal": "doctors", "env": "dev", "flag": ""},
	)
	assert.Equal(t, "|#env:dev,flag,portal:doctors,service:portalgate", got)
	assert.Empty(t, formatTags(nil, nil))
}

func TestClientWritesLines(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	client, err := NewClient(Config{
		Enabled:    true,
		Address:    pc.LocalAddr().String(),
		Prefix:     ".portalgate.",
		GlobalTags: map[string]string{"service": "portalgate"},
	})
	require.NoError(t, err)
	defer client.Close()
	require.True(t, client.Enabled())

	read := func() string {
		t.Helper()
		buf := make([]byte, 512)
		require.NoError(t, pc.SetReadDeadline(time.Now().Add(2*time.Second)))
		n, _, rerr := pc.ReadFrom(buf)
		require.NoError(t, rerr)
		return string(buf[:n])
	}

	client.Count("access.decision", 1, map[string]string{"portal": "doctors"})
	assert.Equal(t, "portalgate.access.decision:1|c|#portal:doctors,service:portalgate", read())

	client.Timing("access.session_read", 1500*time.Microsecond, nil)
	assert.Equal(t, "portalgate.access.session_read:1.5|ms|#service:portalgate", read())

	client.Gauge("registry.portals", 4, nil)
	assert.True(t, strings.HasPrefix(read(), "portalgate.registry.portals:4|g"))
}

func TestClientDisabledAndClose(t *testing.T) {
	client, err := NewClient(Config{Enabled: true, Address: "   "})
	require.NoError(t, err)
	assert.False(t, client.Enabled())
	client.Count("noop", 1, nil)
	assert.NoError(t, client.Close())
	assert.NoError(t, client.Close())

	var nilClient *Client
	assert.False(t, nilClient.Enabled())
	nilClient.Count("noop", 1, nil)
	assert.NoError(t, nilClient.Close())
}

func TestNewClientDialError(t *testing.T) {
	_, err := NewClient(Config{Enabled: true, Address: "bad address"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statsd dial")
}

func TestRecorder(t *testing.T) {
	var r Recorder
	r.Count("a", 2, map[string]string{"k": "v"})
	r.Timing("b", 2*time.Millisecond, nil)

	require.Len(t, r.Samples(), 2)
	a := r.Named("a")
	require.Len(t, a, 1)
	assert.Equal(t, float64(2), a[0].Value)
	assert.Equal(t, "v", a[0].Tags["k"])
	assert.Equal(t, float64(2), r.Named("b")[0].Value)
}
