// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"io"
	"math/big"
	"net"
	"sync"
	"time"

	quic "github.com/quic-go/quic-go"
)

// alpn identifies the bridge protocol during the QUIC handshake.
const alpn = "lux-bridge/1"

func init() {
	registerTransport(TransportQUIC, dialQUIC, listenQUIC)
}

func quicConfig() *quic.Config {
	// Bridge connections are long-lived and may sit idle between test steps.
	return &quic.Config{KeepAlivePeriod: 10 * time.Second}
}

func withALPN(c *tls.Config) *tls.Config {
	c = c.Clone()
	for _, p := range c.NextProtos {
		if p == alpn {
			return c
		}
	}
	c.NextProtos = append(c.NextProtos, alpn)
	return c
}

// quicStream is the single stream a bridge client opens on its QUIC
// connection. Closing it tears down the connection as well.
type quicStream struct {
	quic.Stream
	conn quic.Connection
}

func (s *quicStream) Close() error {
	err := s.Stream.Close()
	_ = s.conn.CloseWithError(0, "closed")
	return err
}

func (s *quicStream) RemoteAddr() net.Addr { return s.conn.RemoteAddr() }

func dialQUIC(ctx context.Context, addr string, o *dialOptions) (io.ReadWriteCloser, error) {
	tlsConf := o.tls
	if tlsConf == nil {
		// Test bridge: no verification unless the caller supplies roots.
		tlsConf = &tls.Config{InsecureSkipVerify: true}
	}
	conn, err := quic.DialAddr(ctx, addr, withALPN(tlsConf), quicConfig())
	if err != nil {
		return nil, err
	}
	s, err := conn.OpenStreamSync(ctx)
	if err != nil {
		_ = conn.CloseWithError(0, "open stream")
		return nil, err
	}
	return &quicStream{Stream: s, conn: conn}, nil
}

func listenQUIC(addr string, o *serverOptions) (Listener, error) {
	tlsConf := o.tls
	if tlsConf == nil {
		var err error
		if tlsConf, err = SelfSignedTLS(); err != nil {
			return nil, err
		}
	}
	l, err := quic.ListenAddr(addr, withALPN(tlsConf), quicConfig())
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	ql := &quicListener{
		l:       l,
		streams: make(chan io.ReadWriteCloser),
		done:    make(chan struct{}),
		cancel:  cancel,
	}
	go ql.acceptLoop(ctx)
	return ql, nil
}

// quicListener turns accepted QUIC connections into bridge streams. The
// first stream a client opens on a connection carries all of its calls.
type quicListener struct {
	l       *quic.Listener
	streams chan io.ReadWriteCloser
	done    chan struct{}
	once    sync.Once
	cancel  context.CancelFunc
}

func (q *quicListener) acceptLoop(ctx context.Context) {
	defer q.shutdown()
	for {
		conn, err := q.l.Accept(ctx)
		if err != nil {
			return
		}
		go func() {
			s, err := conn.AcceptStream(ctx)
			if err != nil {
				_ = conn.CloseWithError(0, "no stream")
				return
			}
			select {
			case q.streams <- &quicStream{Stream: s, conn: conn}:
			case <-q.done:
				_ = conn.CloseWithError(0, "server closed")
			}
		}()
	}
}

func (q *quicListener) Accept(ctx context.Context) (io.ReadWriteCloser, error) {
	select {
	case s := <-q.streams:
		return s, nil
	case <-q.done:
		return nil, net.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *quicListener) shutdown() error {
	var err error
	q.once.Do(func() {
		close(q.done)
		q.cancel()
		err = q.l.Close()
	})
	return err
}

func (q *quicListener) Close() error { return q.shutdown() }

func (q *quicListener) Addr() net.Addr { return q.l.Addr() }

// SelfSignedTLS returns a throwaway server certificate. It is meant for test
// bridges only.
func SelfSignedTLS() (*tls.Config, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	templ := &x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		Subject:               pkix.Name{CommonName: "lux-bridge"},
		DNSNames:              []string{"localhost"},
		IPAddresses:           []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, templ, templ, &key.PublicKey, key)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{{Certificate: [][]byte{der}, PrivateKey: key}},
		NextProtos:   []string{alpn},
	}, nil
}
