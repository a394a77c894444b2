package main

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math/big"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/quic-go/quic-go"
	"golang.org/x/sync/errgroup"

	webtransport "github.com/quic-go/webtransport-quic"
	"github.com/quic-go/webtransport-quic/metrics"
	"github.com/quic-go/webtransport-quic/qlog"
)

const alpn = "h3"

func main() {
	addr := flag.String("addr", "localhost:4433", "address to listen on or connect to")
	path := flag.String("path", "/echo", "path of the WebTransport endpoint")
	server := flag.Bool("server", false, "run the echo server")
	message := flag.String("message", "hello WebTransport", "message sent by the client")
	metricsAddr := flag.String("metrics", "", "address to serve Prometheus metrics on")
	flag.Parse()

	if *metricsAddr != "" {
		http.Handle("/metrics", promhttp.Handler())
		go func() { log.Println(http.ListenAndServe(*metricsAddr, nil)) }()
	}

	var err error
	if *server {
		err = runServer(*addr, *path, *metricsAddr != "")
	} else {
		err = runClient(*addr, *path, *message, *metricsAddr != "")
	}
	if err != nil {
		log.Fatal(err)
	}
}

func newConfig(p webtransport.Perspective, withMetrics bool) *webtransport.Config {
	var tracers []*webtransport.Tracer
	if withMetrics {
		tracers = append(tracers, metrics.NewTracer())
	}
	if t := qlog.DefaultTracer(p); t != nil {
		tracers = append(tracers, t)
	}
	return &webtransport.Config{Tracer: webtransport.NewMultiplexedTracer(tracers...)}
}

func runServer(addr, path string, withMetrics bool) error {
	ln, err := quic.ListenAddr(addr, generateTLSConfig(), &quic.Config{EnableDatagrams: true})
	if err != nil {
		return err
	}
	defer ln.Close()
	log.Printf("Listening on %s", ln.Addr())

	for {
		qconn, err := ln.Accept(context.Background())
		if err != nil {
			return err
		}
		conn, err := webtransport.NewConn(webtransport.WrapConn(qconn), webtransport.PerspectiveServer, newConfig(webtransport.PerspectiveServer, withMetrics))
		if err != nil {
			qconn.CloseWithError(0, "")
			continue
		}
		go serveConn(conn, path)
	}
}

func serveConn(conn *webtransport.Conn, path string) {
	for {
		pending, err := conn.Accept(context.Background())
		if err != nil {
			return
		}
		if pending.Request().Path != path {
			pending.Reject(http.StatusNotFound)
			continue
		}
		sess, err := pending.Accept()
		if err != nil {
			log.Printf("Accepting session failed: %s", err)
			continue
		}
		go func() {
			if err := echo(sess); err != nil {
				log.Printf("Session %d: %s", sess.ID(), err)
			}
		}()
	}
}

// echo echoes every bidirectional stream and every datagram until the session is closed.
func echo(sess *webtransport.Session) error {
	g, ctx := errgroup.WithContext(sess.Context())
	g.Go(func() error {
		for {
			str, err := sess.AcceptStream(ctx)
			if err != nil {
				return err
			}
			go func() {
				defer str.Close()
				if _, err := io.Copy(str, str); err != nil {
					str.CancelRead(1)
				}
			}()
		}
	})
	g.Go(func() error {
		for {
			b, err := sess.ReceiveDatagram(ctx)
			if err != nil {
				return err
			}
			if err := sess.SendDatagram(b); err != nil && !errors.Is(err, webtransport.ErrDatagramTooLarge) {
				return err
			}
		}
	})
	err := g.Wait()
	var serr *webtransport.SessionError
	if errors.As(err, &serr) {
		return nil
	}
	return err
}

func runClient(addr, path, message string, withMetrics bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	qconn, err := quic.DialAddr(ctx, addr, &tls.Config{InsecureSkipVerify: true, NextProtos: []string{alpn}}, &quic.Config{EnableDatagrams: true})
	if err != nil {
		return err
	}
	sess, err := webtransport.Dial(ctx, webtransport.WrapConn(qconn), fmt.Sprintf("https://%s%s", addr, path), nil, newConfig(webtransport.PerspectiveClient, withMetrics))
	if err != nil {
		qconn.CloseWithError(0, "")
		return err
	}
	defer sess.Close()

	str, err := sess.OpenStreamSync(ctx)
	if err != nil {
		return err
	}
	if _, err := str.Write([]byte(message)); err != nil {
		return err
	}
	if err := str.Close(); err != nil {
		return err
	}
	reply, err := io.ReadAll(str)
	if err != nil {
		return err
	}
	log.Printf("Stream echo: %q", reply)

	if err := sess.SendDatagram([]byte(message)); err != nil {
		return err
	}
	datagram, err := sess.ReceiveDatagram(ctx)
	if err != nil {
		return err
	}
	log.Printf("Datagram echo: %q", datagram)
	return nil
}

// Setup a bare-bones TLS config for the server
func generateTLSConfig() *tls.Config {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	template := x509.Certificate{SerialNumber: big.NewInt(1), NotAfter: time.Now().Add(24 * time.Hour)}
	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		panic(err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})

	tlsCert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		panic(err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{tlsCert},
		NextProtos:   []string{alpn},
	}
}
