package webtransport

import (
	"bytes"
	"fmt"
	"io"
	"slices"

	"github.com/quic-go/webtransport-quic/quicvarint"
)

// A Setting is an HTTP/3 setting identifier.
type Setting uint64

const (
	SettingQPACKMaxTableCapacity Setting = 0x1
	SettingMaxFieldSectionSize   Setting = 0x6
	SettingQPACKBlockedStreams   Setting = 0x7
	// SettingExtendedConnect enables the extended CONNECT method (RFC 9220).
	SettingExtendedConnect Setting = 0x8
	// SettingH3Datagram enables HTTP datagrams (RFC 9297).
	SettingH3Datagram Setting = 0x33
	// SettingH3DatagramDraft04 is the value used by draft versions of HTTP datagrams.
	SettingH3DatagramDraft04 Setting = 0xffd277
	// SettingEnableWebTransport is the draft-02 setting enabling WebTransport.
	SettingEnableWebTransport Setting = 0x2b603742
	// SettingWebTransportMaxSessions announces the number of concurrent WebTransport sessions.
	SettingWebTransportMaxSessions Setting = 0xc671706a
)

func (s Setting) String() string {
	switch s {
	case SettingQPACKMaxTableCapacity:
		return "SETTINGS_QPACK_MAX_TABLE_CAPACITY"
	case SettingMaxFieldSectionSize:
		return "SETTINGS_MAX_FIELD_SECTION_SIZE"
	case SettingQPACKBlockedStreams:
		return "SETTINGS_QPACK_BLOCKED_STREAMS"
	case SettingExtendedConnect:
		return "SETTINGS_ENABLE_CONNECT_PROTOCOL"
	case SettingH3Datagram:
		return "SETTINGS_H3_DATAGRAM"
	case SettingH3DatagramDraft04:
		return "SETTINGS_H3_DATAGRAM_DRAFT04"
	case SettingEnableWebTransport:
		return "SETTINGS_ENABLE_WEBTRANSPORT"
	case SettingWebTransportMaxSessions:
		return "SETTINGS_WEBTRANSPORT_MAX_SESSIONS"
	default:
		return fmt.Sprintf("H3 setting %#x", uint64(s))
	}
}

// Settings are the HTTP/3 settings sent in the SETTINGS frame, which is the
// first frame on each control stream.
type Settings map[Setting]uint64

// ExtendedConnect reports whether the extended CONNECT method is enabled.
func (s Settings) ExtendedConnect() bool {
	return s[SettingExtendedConnect] == 1
}

// Datagrams reports whether HTTP datagrams are enabled.
func (s Settings) Datagrams() bool {
	return s[SettingH3Datagram] == 1 || s[SettingH3DatagramDraft04] == 1
}

// WebTransportMaxSessions returns the number of WebTransport sessions the
// peer is willing to handle. Zero means WebTransport is not supported.
func (s Settings) WebTransportMaxSessions() uint64 {
	if !s.ExtendedConnect() {
		return 0
	}
	if n := s[SettingWebTransportMaxSessions]; n > 0 {
		return n
	}
	return s[SettingEnableWebTransport]
}

// SupportsWebTransport reports whether the settings enable WebTransport.
func (s Settings) SupportsWebTransport() bool {
	return s.WebTransportMaxSessions() > 0
}

func (s Settings) Append(b []byte) []byte {
	ids := make([]Setting, 0, len(s))
	var l int
	for id, val := range s {
		ids = append(ids, id)
		l += quicvarint.Len(uint64(id)) + quicvarint.Len(val)
	}
	slices.Sort(ids)

	b = quicvarint.Append(b, uint64(FrameTypeSettings))
	b = quicvarint.Append(b, uint64(l))
	for _, id := range ids {
		b = quicvarint.Append(b, uint64(id))
		b = quicvarint.Append(b, s[id])
	}
	return b
}

func parseSettingsFrame(r io.Reader, l, maxLen uint64) (Settings, error) {
	if l > maxLen {
		return nil, &ProtocolError{ErrorCode: ErrCodeExcessiveLoad, Message: fmt.Sprintf("unexpected size for SETTINGS frame: %d", l)}
	}
	b, err := readFramePayload(r, l, maxLen)
	if err != nil {
		return nil, err
	}
	s := Settings{}
	br := bytes.NewReader(b)
	for br.Len() > 0 {
		id, err := quicvarint.Read(br)
		if err != nil {
			return nil, &ProtocolError{ErrorCode: ErrCodeFrameError, Message: "invalid SETTINGS frame"}
		}
		val, err := quicvarint.Read(br)
		if err != nil {
			return nil, &ProtocolError{ErrorCode: ErrCodeFrameError, Message: "invalid SETTINGS frame"}
		}
		if _, ok := s[Setting(id)]; ok {
			return nil, &ProtocolError{ErrorCode: ErrCodeSettingsError, Message: fmt.Sprintf("duplicate setting: %d", id)}
		}
		switch Setting(id) {
		case SettingExtendedConnect, SettingH3Datagram, SettingH3DatagramDraft04, SettingEnableWebTransport:
			if val != 0 && val != 1 {
				return nil, &ProtocolError{ErrorCode: ErrCodeSettingsError, Message: fmt.Sprintf("invalid value for %s: %d", Setting(id), val)}
			}
		case 0x2, 0x3, 0x4, 0x5:
			// reserved HTTP/2 settings
			return nil, &ProtocolError{ErrorCode: ErrCodeSettingsError, Message: fmt.Sprintf("reserved setting: %#x", id)}
		}
		s[Setting(id)] = val
	}
	return s, nil
}

func (c *Config) localSettings() Settings {
	s := Settings{
		SettingExtendedConnect:         1,
		SettingEnableWebTransport:      1,
		SettingWebTransportMaxSessions: uint64(c.MaxSessions),
	}
	if !c.DisableDatagrams {
		s[SettingH3Datagram] = 1
	}
	for id, val := range c.AdditionalSettings {
		s[Setting(id)] = val
	}
	return s
}
