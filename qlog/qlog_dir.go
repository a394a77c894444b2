package qlog

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"strings"

	webtransport "github.com/quic-go/webtransport-quic"
)

// QlogDir contains the value of the QLOGDIR environment variable.
// If it is the empty string ("") no qlog output is written.
var QlogDir string

func init() {
	QlogDir = os.Getenv("QLOGDIR")
	if QlogDir != "" {
		if _, err := os.Stat(QlogDir); os.IsNotExist(err) {
			if err := os.MkdirAll(QlogDir, 0o755); err != nil {
				log.Fatalf("failed to create qlog dir %s: %v", QlogDir, err)
			}
		}
	}
}

// DefaultTracer creates a qlog file in the qlog directory specified by the QLOGDIR environment variable.
// File names are <random id>_<perspective>_webtransport.qlog.
// Returns nil if QLOGDIR is not set.
func DefaultTracer(p webtransport.Perspective) *webtransport.Tracer {
	return qlogDirTracer(QlogDir, p)
}

func qlogDirTracer(dir string, p webtransport.Perspective) *webtransport.Tracer {
	if dir == "" {
		return nil
	}
	var id [8]byte
	rand.Read(id[:])
	path := fmt.Sprintf("%s/%s_%s_webtransport.qlog", strings.TrimRight(dir, "/"), hex.EncodeToString(id[:]), owner(p))
	f, err := os.Create(path)
	if err != nil {
		log.Printf("Failed to create qlog file %s: %s", path, err.Error())
		return nil
	}
	return NewTracer(newBufferedWriteCloser(bufio.NewWriter(f), f), p)
}
