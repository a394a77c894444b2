package webtransport

import (
	"errors"
	"log/slog"
	"time"

	"github.com/quic-go/webtransport-quic/internal/logging"
)

const (
	defaultHandshakeTimeout       = 10 * time.Second
	defaultCloseTimeout           = 3 * time.Second
	defaultMaxHeaderBytes         = 16 << 10
	defaultMaxSessions            = 16
	defaultMaxUnclaimedStreams    = 16
	defaultUnclaimedStreamTimeout = 5 * time.Second
	defaultDatagramQueueLen       = 32

	// maxControlFrameSize limits the size of SETTINGS and GOAWAY frames.
	maxControlFrameSize = 8 << 10
)

// Config contains all configuration data needed for a WebTransport connection.
// The zero value is valid; unset fields are replaced by their defaults.
type Config struct {
	// HandshakeTimeout bounds the wait for the peer's SETTINGS, the CONNECT
	// response, and the header of every incoming stream.
	// If zero, a timeout of 10 seconds is used.
	HandshakeTimeout time.Duration
	// CloseTimeout is how long a graceful close waits for the peer to finish the CONNECT stream.
	// If zero, a timeout of 3 seconds is used.
	CloseTimeout time.Duration
	// MaxHeaderBytes is the maximum size of a HEADERS frame.
	// If zero, 16 KiB are allowed.
	MaxHeaderBytes int
	// MaxSessions is the number of sessions that can be pending or open at the
	// same time. It is announced to the peer in the SETTINGS frame.
	// If zero, 16 sessions are allowed.
	MaxSessions int
	// MaxUnclaimedStreams is the number of streams that are held for sessions
	// that aren't established yet. When exceeded, the oldest stream is dropped.
	// If zero, 16 streams are held.
	MaxUnclaimedStreams int
	// UnclaimedStreamTimeout is how long a stream is held for a session that isn't established yet.
	// If zero, streams are held for 5 seconds.
	UnclaimedStreamTimeout time.Duration
	// DatagramQueueLen is the number of received datagrams queued per session.
	// Datagrams arriving when the queue is full are dropped.
	// If zero, 32 datagrams are queued.
	DatagramQueueLen int
	// MaxDatagramSize limits the payload of sent datagrams.
	// If zero, the limit is determined by the QUIC connection.
	MaxDatagramSize int
	// DisableDatagrams disables HTTP datagrams.
	DisableDatagrams bool
	// AdditionalSettings are sent in the SETTINGS frame, in addition to the WebTransport settings.
	AdditionalSettings map[uint64]uint64
	// Logger logs connection and session events.
	// If nil, the logger is configured by the WEBTRANSPORT_LOG_LEVEL environment variable.
	Logger *slog.Logger
	// Tracer is notified of session, stream and datagram events.
	Tracer *Tracer
}

// Clone clones a Config
func (c *Config) Clone() *Config {
	copy := *c
	return &copy
}

func validateConfig(config *Config) error {
	if config == nil {
		return nil
	}
	if config.HandshakeTimeout < 0 || config.CloseTimeout < 0 || config.UnclaimedStreamTimeout < 0 {
		return errors.New("webtransport: invalid negative timeout")
	}
	if config.MaxHeaderBytes < 0 {
		return errors.New("webtransport: invalid value for Config.MaxHeaderBytes")
	}
	if config.MaxSessions < 0 {
		return errors.New("webtransport: invalid value for Config.MaxSessions")
	}
	if config.MaxUnclaimedStreams < 0 {
		return errors.New("webtransport: invalid value for Config.MaxUnclaimedStreams")
	}
	if config.DatagramQueueLen < 0 {
		return errors.New("webtransport: invalid value for Config.DatagramQueueLen")
	}
	if config.MaxDatagramSize < 0 {
		return errors.New("webtransport: invalid value for Config.MaxDatagramSize")
	}
	for id := range config.AdditionalSettings {
		switch Setting(id) {
		case SettingExtendedConnect, SettingH3Datagram, SettingEnableWebTransport, SettingWebTransportMaxSessions:
			return errors.New("webtransport: Config.AdditionalSettings must not contain WebTransport settings")
		}
	}
	return nil
}

// populateConfig populates fields in the Config with their default values, if none are set.
// It may be called with nil.
func populateConfig(config *Config) *Config {
	if config == nil {
		config = &Config{}
	}
	handshakeTimeout := defaultHandshakeTimeout
	if config.HandshakeTimeout != 0 {
		handshakeTimeout = config.HandshakeTimeout
	}
	closeTimeout := defaultCloseTimeout
	if config.CloseTimeout != 0 {
		closeTimeout = config.CloseTimeout
	}
	maxHeaderBytes := defaultMaxHeaderBytes
	if config.MaxHeaderBytes != 0 {
		maxHeaderBytes = config.MaxHeaderBytes
	}
	maxSessions := defaultMaxSessions
	if config.MaxSessions != 0 {
		maxSessions = config.MaxSessions
	}
	maxUnclaimedStreams := defaultMaxUnclaimedStreams
	if config.MaxUnclaimedStreams != 0 {
		maxUnclaimedStreams = config.MaxUnclaimedStreams
	}
	unclaimedStreamTimeout := defaultUnclaimedStreamTimeout
	if config.UnclaimedStreamTimeout != 0 {
		unclaimedStreamTimeout = config.UnclaimedStreamTimeout
	}
	datagramQueueLen := defaultDatagramQueueLen
	if config.DatagramQueueLen != 0 {
		datagramQueueLen = config.DatagramQueueLen
	}
	logger := config.Logger
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	tracer := config.Tracer
	if tracer == nil {
		tracer = &Tracer{}
	}

	return &Config{
		HandshakeTimeout:       handshakeTimeout,
		CloseTimeout:           closeTimeout,
		MaxHeaderBytes:         maxHeaderBytes,
		MaxSessions:            maxSessions,
		MaxUnclaimedStreams:    maxUnclaimedStreams,
		UnclaimedStreamTimeout: unclaimedStreamTimeout,
		DatagramQueueLen:       datagramQueueLen,
		MaxDatagramSize:        config.MaxDatagramSize,
		DisableDatagrams:       config.DisableDatagrams,
		AdditionalSettings:     config.AdditionalSettings,
		Logger:                 logger,
		Tracer:                 tracer,
	}
}
