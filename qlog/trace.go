package qlog

import (
	"runtime/debug"
	"time"

	"github.com/francoispqt/gojay"
)

// Setting of this only works when webtransport-quic is used as a library.
// When building a binary from this repository, the version can be set using the following go build flag:
// -ldflags="-X github.com/quic-go/webtransport-quic/qlog.codeVersion=foobar"
var codeVersion = "(devel)"

func init() {
	if codeVersion != "(devel)" { // variable set by ldflags
		return
	}
	info, ok := debug.ReadBuildInfo()
	if !ok { // no build info available. This happens when webtransport-quic is not used as a library.
		return
	}
	for _, d := range info.Deps {
		if d.Path == "github.com/quic-go/webtransport-quic" {
			codeVersion = d.Version
			if d.Replace != nil {
				if len(d.Replace.Version) > 0 {
					codeVersion = d.Version
				} else {
					codeVersion += " (replaced)"
				}
			}
			break
		}
	}
}

type topLevel struct {
	trace trace
}

var _ gojay.MarshalerJSONObject = topLevel{}

func (topLevel) IsNil() bool { return false }
func (l topLevel) MarshalJSONObject(enc *gojay.Encoder) {
	enc.StringKey("qlog_format", "JSON-SEQ")
	enc.StringKey("qlog_version", "0.3")
	enc.StringKey("title", "webtransport-quic qlog")
	enc.ObjectKey("configuration", configuration{Version: codeVersion})
	enc.ObjectKey("trace", l.trace)
}

type configuration struct {
	Version string
}

func (configuration) IsNil() bool { return false }
func (c configuration) MarshalJSONObject(enc *gojay.Encoder) {
	enc.StringKey("code_version", c.Version)
}

type vantagePoint struct {
	Name string
	Type string
}

func (p vantagePoint) IsNil() bool { return false }
func (p vantagePoint) MarshalJSONObject(enc *gojay.Encoder) {
	enc.StringKeyOmitEmpty("name", p.Name)
	enc.StringKeyOmitEmpty("type", p.Type)
}

type commonFields struct {
	LocalAddr     string
	RemoteAddr    string
	ReferenceTime time.Time
}

func (f commonFields) IsNil() bool { return false }
func (f commonFields) MarshalJSONObject(enc *gojay.Encoder) {
	enc.StringKeyOmitEmpty("local_address", f.LocalAddr)
	enc.StringKeyOmitEmpty("remote_address", f.RemoteAddr)
	enc.StringKey("protocol_type", "WEBTRANSPORT")
	enc.Float64Key("reference_time", float64(f.ReferenceTime.UnixNano())/1e6)
	enc.StringKey("time_format", "relative")
}

type trace struct {
	VantagePoint vantagePoint
	CommonFields commonFields
}

func (trace) IsNil() bool { return false }
func (t trace) MarshalJSONObject(enc *gojay.Encoder) {
	enc.ObjectKey("vantage_point", t.VantagePoint)
	enc.ObjectKey("common_fields", t.CommonFields)
}
