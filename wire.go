// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf8"

	spb "google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/protobuf/proto"
)

// MaxFrameSize bounds a single tag or body on the wire.
const MaxFrameSize = 16 << 20

// Response status bytes.
const (
	respOK  byte = 0x00
	respErr byte = 0x01
)

// wireConn frames requests and responses over one bidirectional stream.
//
//	request:  uvarint(len tag) tag uvarint(len body) body
//	response: status uvarint(len body) body
type wireConn struct {
	rwc io.ReadWriteCloser
	r   *bufio.Reader
	w   *bufio.Writer
}

func newWireConn(rwc io.ReadWriteCloser) *wireConn {
	return &wireConn{
		rwc: rwc,
		r:   bufio.NewReader(rwc),
		w:   bufio.NewWriter(rwc),
	}
}

func (c *wireConn) writeChunk(b []byte) error {
	var lenbuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenbuf[:], uint64(len(b)))
	if _, err := c.w.Write(lenbuf[:n]); err != nil {
		return err
	}
	_, err := c.w.Write(b)
	return err
}

// readChunk returns io.EOF only when the stream ends cleanly before the
// length prefix; any other short read is io.ErrUnexpectedEOF.
func (c *wireConn) readChunk() ([]byte, error) {
	ln, err := binary.ReadUvarint(c.r)
	if err != nil {
		return nil, err
	}
	if ln > MaxFrameSize {
		return nil, fmt.Errorf("%w: frame too large: %d", ErrProtocol, ln)
	}
	b := make([]byte, ln)
	if _, err := io.ReadFull(c.r, b); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return b, nil
}

func (c *wireConn) writeRequest(op OperationType, body []byte) error {
	if err := c.writeChunk([]byte(op)); err != nil {
		return err
	}
	if err := c.writeChunk(body); err != nil {
		return err
	}
	return c.w.Flush()
}

// readRequest reads a complete request frame so the stream stays framed no
// matter how much of the body the handler consumes.
func (c *wireConn) readRequest() (OperationType, []byte, error) {
	tag, err := c.readChunk()
	if err != nil {
		return "", nil, err
	}
	body, err := c.readChunk()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return "", nil, err
	}
	if !utf8.Valid(tag) {
		return "", body, fmt.Errorf("%w: operation tag is not UTF-8", ErrProtocol)
	}
	return OperationType(tag), body, nil
}

func (c *wireConn) writeOK(body []byte) error {
	if err := c.w.WriteByte(respOK); err != nil {
		return err
	}
	if err := c.writeChunk(body); err != nil {
		return err
	}
	return c.w.Flush()
}

func (c *wireConn) writeErr(st *spb.Status) error {
	b, err := proto.Marshal(st)
	if err != nil {
		return err
	}
	if err := c.w.WriteByte(respErr); err != nil {
		return err
	}
	if err := c.writeChunk(b); err != nil {
		return err
	}
	return c.w.Flush()
}

// response is the decoded Ok|Err outcome of one call.
type response struct {
	body []byte
	err  *spb.Status
}

func (c *wireConn) readResponse() (response, error) {
	flag, err := c.r.ReadByte()
	if err != nil {
		return response{}, err
	}
	body, err := c.readChunk()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return response{}, err
	}
	switch flag {
	case respOK:
		return response{body: body}, nil
	case respErr:
		st := &spb.Status{}
		if err := proto.Unmarshal(body, st); err != nil {
			return response{}, fmt.Errorf("%w: decode status: %v", ErrProtocol, err)
		}
		return response{err: st}, nil
	}
	return response{}, fmt.Errorf("%w: unknown response status 0x%02x", ErrProtocol, flag)
}

func (c *wireConn) Close() error {
	return c.rwc.Close()
}
