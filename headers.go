package webtransport

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/quic-go/qpack"
	"golang.org/x/net/http/httpguts"
	"golang.org/x/net/idna"
)

const (
	protocolWebTransport = "webtransport"

	headerDraft02Request  = "sec-webtransport-http3-draft02"
	headerDraft02Response = "sec-webtransport-http3-draft"
	headerAvailableProtos = "wt-available-protocols"
	headerProtocol        = "wt-protocol"
)

// A ConnectRequest is the extended CONNECT request establishing a session.
type ConnectRequest struct {
	Scheme    string
	Authority string
	Path      string
	// Header holds additional header fields. Names are sent lower-cased.
	Header http.Header
	// Protocols are the application protocols offered to the server, in order of preference.
	Protocols []string
}

// NewConnectRequest creates a CONNECT request for the given https URL.
func NewConnectRequest(rawURL string, header http.Header) (*ConnectRequest, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "https" {
		return nil, fmt.Errorf("webtransport: unsupported URL scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("webtransport: URL has no host")
	}
	authority, err := httpguts.PunycodeHostPort(u.Host)
	if err != nil {
		return nil, err
	}
	if header == nil {
		header = http.Header{}
	}
	return &ConnectRequest{
		Scheme:    u.Scheme,
		Authority: authority,
		Path:      u.RequestURI(),
		Header:    header,
	}, nil
}

// URL returns the URL the request was made for.
func (r *ConnectRequest) URL() *url.URL {
	u, err := url.ParseRequestURI(r.Path)
	if err != nil {
		u = &url.URL{Path: r.Path}
	}
	u.Scheme = r.Scheme
	u.Host = r.Authority
	return u
}

// Hostname returns the host of the :authority, converted to its Unicode form when possible.
func (r *ConnectRequest) Hostname() string {
	host := r.Authority
	if h, _, err := splitHostPort(host); err == nil {
		host = h
	}
	if u, err := idna.ToUnicode(host); err == nil {
		return u
	}
	return host
}

func splitHostPort(authority string) (string, string, error) {
	i := strings.LastIndexByte(authority, ':')
	if i < 0 || strings.HasSuffix(authority, "]") {
		return strings.Trim(authority, "[]"), "", nil
	}
	port := authority[i+1:]
	if _, err := strconv.ParseUint(port, 10, 16); err != nil {
		return "", "", fmt.Errorf("invalid port %q", port)
	}
	return strings.Trim(authority[:i], "[]"), port, nil
}

func (r *ConnectRequest) headerFields() ([]qpack.HeaderField, error) {
	if r.Scheme == "" || r.Authority == "" || r.Path == "" {
		return nil, errors.New("webtransport: :scheme, :authority and :path must not be empty")
	}
	if !validPseudoPath(r.Path) {
		return nil, fmt.Errorf("webtransport: invalid :path %q", r.Path)
	}
	fields := []qpack.HeaderField{
		{Name: ":method", Value: http.MethodConnect},
		{Name: ":protocol", Value: protocolWebTransport},
		{Name: ":scheme", Value: r.Scheme},
		{Name: ":authority", Value: r.Authority},
		{Name: ":path", Value: r.Path},
		{Name: headerDraft02Request, Value: "1"},
	}
	if len(r.Protocols) > 0 {
		v, err := marshalProtocols(r.Protocols)
		if err != nil {
			return nil, err
		}
		fields = append(fields, qpack.HeaderField{Name: headerAvailableProtos, Value: v})
	}
	return appendHeaderFields(fields, r.Header, headerDraft02Request, headerAvailableProtos)
}

// A ConnectResponse is the server's answer to a ConnectRequest.
type ConnectResponse struct {
	StatusCode int
	Header     http.Header
	// Protocol is the application protocol selected by the server, if any.
	Protocol string
}

func (r *ConnectResponse) headerFields() ([]qpack.HeaderField, error) {
	if r.StatusCode < 100 || r.StatusCode > 999 {
		return nil, fmt.Errorf("webtransport: invalid status code %d", r.StatusCode)
	}
	fields := []qpack.HeaderField{{Name: ":status", Value: strconv.Itoa(r.StatusCode)}}
	if r.StatusCode >= 200 && r.StatusCode < 300 {
		fields = append(fields, qpack.HeaderField{Name: headerDraft02Response, Value: "draft02"})
		if r.Protocol != "" {
			v, err := marshalProtocol(r.Protocol)
			if err != nil {
				return nil, fmt.Errorf("webtransport: invalid protocol %q: %w", r.Protocol, err)
			}
			fields = append(fields, qpack.HeaderField{Name: headerProtocol, Value: v})
		}
	}
	return appendHeaderFields(fields, r.Header, headerDraft02Response, headerProtocol)
}

// appendHeaderFields appends the regular header fields of h, skipping
// connection-specific fields and the ones listed in skip.
func appendHeaderFields(fields []qpack.HeaderField, h http.Header, skip ...string) ([]qpack.HeaderField, error) {
	for k, vv := range h {
		if !httpguts.ValidHeaderFieldName(k) {
			return nil, fmt.Errorf("webtransport: invalid header field name %q", k)
		}
		name := strings.ToLower(k)
		switch name {
		case "connection", "proxy-connection", "transfer-encoding", "upgrade", "keep-alive", "host", "content-length":
			continue
		}
		var skipped bool
		for _, s := range skip {
			if name == s {
				skipped = true
				break
			}
		}
		if skipped {
			continue
		}
		for _, v := range vv {
			if !httpguts.ValidHeaderFieldValue(v) {
				return nil, fmt.Errorf("webtransport: invalid header field value %q for %q", v, k)
			}
			fields = append(fields, qpack.HeaderField{Name: name, Value: v})
		}
	}
	return fields, nil
}

func validPseudoPath(v string) bool {
	return len(v) > 0 && v[0] == '/'
}

// encodeHeadersFrame QPACK-encodes the fields (static table only) and
// returns a complete HEADERS frame.
func encodeHeadersFrame(fields []qpack.HeaderField) ([]byte, error) {
	var headerBlock bytes.Buffer
	enc := qpack.NewEncoder(&headerBlock)
	for _, f := range fields {
		if err := enc.WriteField(f); err != nil {
			return nil, err
		}
	}
	b := make([]byte, 0, headerBlock.Len()+16)
	b = (&headersFrame{Length: uint64(headerBlock.Len())}).Append(b)
	return append(b, headerBlock.Bytes()...), nil
}

// readHeaders reads the payload of a HEADERS frame of length l and decodes it.
func readHeaders(r io.Reader, l, maxLen uint64) ([]qpack.HeaderField, error) {
	b, err := readFramePayload(r, l, maxLen)
	if err != nil {
		return nil, err
	}
	fields, err := qpack.NewDecoder(nil).DecodeFull(b)
	if err != nil {
		return nil, &ProtocolError{ErrorCode: ErrCodeMessageError, Message: fmt.Sprintf("failed to decode header block: %s", err)}
	}
	return fields, nil
}

func parseConnectRequest(headers []qpack.HeaderField) (*ConnectRequest, error) {
	var method, protocol string
	req := &ConnectRequest{Header: http.Header{}}
	var sawRegular bool
	seen := make(map[string]struct{}, 5)
	for _, h := range headers {
		if err := validateHeaderField(h); err != nil {
			return nil, err
		}
		if !h.IsPseudo() {
			sawRegular = true
			switch h.Name {
			case headerAvailableProtos:
				protos, err := parseProtocols(h.Value)
				if err != nil {
					return nil, &ProtocolError{ErrorCode: ErrCodeMessageError, Message: fmt.Sprintf("invalid %s: %s", headerAvailableProtos, err)}
				}
				req.Protocols = append(req.Protocols, protos...)
			default:
				req.Header.Add(h.Name, h.Value)
			}
			continue
		}
		if sawRegular {
			return nil, &ProtocolError{ErrorCode: ErrCodeMessageError, Message: fmt.Sprintf("pseudo header %s after regular header", h.Name)}
		}
		if _, ok := seen[h.Name]; ok {
			return nil, &ProtocolError{ErrorCode: ErrCodeMessageError, Message: fmt.Sprintf("duplicate pseudo header %s", h.Name)}
		}
		seen[h.Name] = struct{}{}
		switch h.Name {
		case ":method":
			method = h.Value
		case ":protocol":
			protocol = h.Value
		case ":scheme":
			req.Scheme = h.Value
		case ":authority":
			req.Authority = h.Value
		case ":path":
			req.Path = h.Value
		default:
			return nil, &ProtocolError{ErrorCode: ErrCodeMessageError, Message: fmt.Sprintf("unknown pseudo header %s", h.Name)}
		}
	}

	if method != http.MethodConnect {
		return nil, &ProtocolError{ErrorCode: ErrCodeMessageError, Message: fmt.Sprintf("expected CONNECT request, got %q", method)}
	}
	if protocol != protocolWebTransport {
		return nil, &ProtocolError{ErrorCode: ErrCodeMessageError, Message: fmt.Sprintf("unexpected :protocol %q", protocol)}
	}
	if req.Scheme == "" || req.Path == "" || req.Authority == "" {
		return nil, &ProtocolError{ErrorCode: ErrCodeMessageError, Message: "extended CONNECT: :scheme, :path and :authority must not be empty"}
	}
	if !validPseudoPath(req.Path) {
		return nil, &ProtocolError{ErrorCode: ErrCodeMessageError, Message: fmt.Sprintf("invalid :path %q", req.Path)}
	}
	return req, nil
}

func parseConnectResponse(headers []qpack.HeaderField) (*ConnectResponse, error) {
	rsp := &ConnectResponse{Header: http.Header{}}
	var sawStatus, sawRegular bool
	for _, h := range headers {
		if err := validateHeaderField(h); err != nil {
			return nil, err
		}
		if !h.IsPseudo() {
			sawRegular = true
			if h.Name == headerProtocol {
				p, err := parseProtocol(h.Value)
				if err != nil {
					return nil, &ProtocolError{ErrorCode: ErrCodeMessageError, Message: fmt.Sprintf("invalid %s: %s", headerProtocol, err)}
				}
				rsp.Protocol = p
				continue
			}
			rsp.Header.Add(h.Name, h.Value)
			continue
		}
		if h.Name != ":status" || sawStatus || sawRegular {
			return nil, &ProtocolError{ErrorCode: ErrCodeMessageError, Message: fmt.Sprintf("unexpected pseudo header %s", h.Name)}
		}
		sawStatus = true
		status, err := strconv.Atoi(h.Value)
		if err != nil || len(h.Value) != 3 || status < 100 {
			return nil, &ProtocolError{ErrorCode: ErrCodeMessageError, Message: fmt.Sprintf("invalid status code %q", h.Value)}
		}
		rsp.StatusCode = status
	}
	if !sawStatus {
		return nil, &ProtocolError{ErrorCode: ErrCodeMessageError, Message: "missing :status"}
	}
	return rsp, nil
}

func validateHeaderField(h qpack.HeaderField) error {
	// field names need to be lowercase, see section 4.2 of RFC 9114
	if strings.ToLower(h.Name) != h.Name {
		return &ProtocolError{ErrorCode: ErrCodeMessageError, Message: fmt.Sprintf("header field is not lower-case: %s", h.Name)}
	}
	if !httpguts.ValidHeaderFieldValue(h.Value) {
		return &ProtocolError{ErrorCode: ErrCodeMessageError, Message: fmt.Sprintf("invalid header field value for %s: %q", h.Name, h.Value)}
	}
	if !h.IsPseudo() && !httpguts.ValidHeaderFieldName(h.Name) {
		return &ProtocolError{ErrorCode: ErrCodeMessageError, Message: fmt.Sprintf("invalid header field name: %q", h.Name)}
	}
	return nil
}
