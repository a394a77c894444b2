package webtransport

import (
	"fmt"

	"github.com/dunglas/httpsfv"
)

// The WebTransport protocol negotiation headers carry Structured Field
// strings (RFC 8941, section 3.3.3): wt-available-protocols is a list of
// strings, wt-protocol a single string.

func marshalProtocol(p string) (string, error) {
	return httpsfv.Marshal(httpsfv.NewItem(p))
}

func marshalProtocols(protos []string) (string, error) {
	l := make(httpsfv.List, 0, len(protos))
	for _, p := range protos {
		l = append(l, httpsfv.NewItem(p))
	}
	return httpsfv.Marshal(l)
}

// parseProtocols parses a list of strings. Parameters are ignored.
func parseProtocols(v string) ([]string, error) {
	l, err := httpsfv.UnmarshalList([]string{v})
	if err != nil {
		return nil, err
	}
	var protos []string
	for _, m := range l {
		item, ok := m.(httpsfv.Item)
		if !ok {
			return nil, fmt.Errorf("unexpected inner list")
		}
		s, ok := item.Value.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", item.Value)
		}
		protos = append(protos, s)
	}
	return protos, nil
}

func parseProtocol(v string) (string, error) {
	item, err := httpsfv.UnmarshalItem([]string{v})
	if err != nil {
		return "", err
	}
	s, ok := item.Value.(string)
	if !ok {
		return "", fmt.Errorf("expected string, got %T", item.Value)
	}
	return s, nil
}
