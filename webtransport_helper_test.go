package webtransport

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/quic-go/qpack"
	"github.com/quic-go/quic-go"
	"github.com/quic-go/webtransport-quic/quicvarint"
	"golang.org/x/sync/errgroup"

	"github.com/stretchr/testify/require"
)

// scaleDuration multiplies durations with the TIMESCALE_FACTOR, for slow CI machines.
func scaleDuration(t time.Duration) time.Duration {
	scaleFactor := 1
	if f, err := strconv.Atoi(os.Getenv("TIMESCALE_FACTOR")); err == nil { // parsing "" errors, so this works fine if the env is not set
		scaleFactor = f
	}
	if scaleFactor == 0 {
		panic("TIMESCALE_FACTOR is 0")
	}
	return time.Duration(scaleFactor) * t
}

func newTestConfig() *Config {
	return &Config{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// newSessionPair establishes a session over an in-memory connection.
// If accept is nil, the server accepts every session.
func newSessionPair(t *testing.T, req *ConnectRequest, clientConf, serverConf *Config, accept func(*PendingSession) (*Session, error)) (client, server *Session) {
	t.Helper()
	if clientConf == nil {
		clientConf = newTestConfig()
	}
	if serverConf == nil {
		serverConf = newTestConfig()
	}
	if req == nil {
		var err error
		req, err = NewConnectRequest("https://example.com/chat", nil)
		require.NoError(t, err)
	}
	if accept == nil {
		accept = (*PendingSession).Accept
	}
	cconn, sconn := newMemConnPair()
	t.Cleanup(func() { cconn.CloseWithError(0, "") })

	ctx, cancel := context.WithTimeout(context.Background(), scaleDuration(time.Second))
	defer cancel()

	var g errgroup.Group
	g.Go(func() error {
		p, err := Accept(ctx, sconn, serverConf)
		if err != nil {
			return err
		}
		server, err = accept(p)
		return err
	})
	c, err := NewConn(cconn, PerspectiveClient, clientConf)
	require.NoError(t, err)
	client, err = c.Dial(ctx, req)
	require.NoError(t, err)
	require.NoError(t, g.Wait())
	return client, server
}

// startRawPeer opens a control stream on conn, and sends the SETTINGS frame.
func startRawPeer(t *testing.T, conn *memConn, settings Settings) QUICSendStream {
	t.Helper()
	str, err := conn.OpenUniStream()
	require.NoError(t, err)
	b := quicvarint.Append(nil, uint64(StreamTypeControl))
	b = settings.Append(b)
	_, err = str.Write(b)
	require.NoError(t, err)
	return str
}

func webTransportSettings() Settings {
	return Settings{
		SettingExtendedConnect:         1,
		SettingH3Datagram:              1,
		SettingEnableWebTransport:      1,
		SettingWebTransportMaxSessions: 4,
	}
}

func connectRequestFields(path string) []qpack.HeaderField {
	return []qpack.HeaderField{
		{Name: ":method", Value: "CONNECT"},
		{Name: ":protocol", Value: "webtransport"},
		{Name: ":scheme", Value: "https"},
		{Name: ":authority", Value: "example.com"},
		{Name: ":path", Value: path},
	}
}

func writeHeadersFrame(t *testing.T, w io.Writer, fields []qpack.HeaderField) {
	t.Helper()
	b, err := encodeHeadersFrame(fields)
	require.NoError(t, err)
	_, err = w.Write(b)
	require.NoError(t, err)
}

// readResponse reads a response from a request stream.
func readResponse(t *testing.T, r io.Reader) *ConnectResponse {
	t.Helper()
	fp := &frameParser{r: r, maxFrameSize: 1 << 10}
	f, err := fp.ParseNext()
	require.NoError(t, err)
	require.IsType(t, &headersFrame{}, f)
	fields, err := readHeaders(r, f.(*headersFrame).Length, 1<<10)
	require.NoError(t, err)
	rsp, err := parseConnectResponse(fields)
	require.NoError(t, err)
	return rsp
}

// requireStreamReset waits until writing to str fails with the given error code.
func requireStreamReset(t *testing.T, str io.Writer, code ErrCode) {
	t.Helper()
	require.Eventually(t, func() bool {
		_, err := str.Write([]byte("foo"))
		if err == nil {
			return false
		}
		requireErrorCode(t, err, code)
		return true
	}, scaleDuration(time.Second), scaleDuration(5*time.Millisecond))
}

func requireErrorCode(t *testing.T, err error, code ErrCode) {
	t.Helper()
	var streamErr *quic.StreamError
	require.ErrorAs(t, err, &streamErr)
	require.Equal(t, quic.StreamErrorCode(code), streamErr.ErrorCode)
}
