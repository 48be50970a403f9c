package session

import (
	"bufio"
	"io"
	"net"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// LineConn is a transport that carries one protocol line per message.
type LineConn interface {
	// ReadLine blocks for the next line, without its terminator.
	ReadLine() (string, error)
	// WriteLines writes each line as one message.
	WriteLines(lines [][]byte) error
	SetReadDeadline(t time.Time) error
	RemoteAddr() string
	Close() error
}

// streamConn frames a byte stream with newlines.
type streamConn struct {
	conn net.Conn
	sc   *bufio.Scanner
	w    *bufio.Writer
}

// NewStreamConn adapts a TCP (or any stream) connection. Lines longer than
// maxLine bytes end the session.
func NewStreamConn(conn net.Conn, maxLine int) LineConn {
	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 0, 512), maxLine)
	return &streamConn{
		conn: conn,
		sc:   sc,
		w:    bufio.NewWriterSize(conn, 16*1024),
	}
}

func (c *streamConn) ReadLine() (string, error) {
	if !c.sc.Scan() {
		if err := c.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimRight(c.sc.Text(), "\r"), nil
}

func (c *streamConn) WriteLines(lines [][]byte) error {
	for _, l := range lines {
		if _, err := c.w.Write(l); err != nil {
			return err
		}
		if err := c.w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return c.w.Flush()
}

func (c *streamConn) SetReadDeadline(t time.Time) error { return c.conn.SetReadDeadline(t) }
func (c *streamConn) RemoteAddr() string                { return c.conn.RemoteAddr().String() }
func (c *streamConn) Close() error                      { return c.conn.Close() }

// wsConn carries one line per WebSocket text frame.
type wsConn struct {
	conn *websocket.Conn
}

// NewWSConn adapts an upgraded WebSocket connection.
func NewWSConn(conn *websocket.Conn, maxLine int) LineConn {
	conn.SetReadLimit(int64(maxLine))
	return &wsConn{conn: conn}
}

func (c *wsConn) ReadLine() (string, error) {
	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			return "", err
		}
		if kind != websocket.TextMessage {
			continue
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}
}

func (c *wsConn) WriteLines(lines [][]byte) error {
	for _, l := range lines {
		if err := c.conn.WriteMessage(websocket.TextMessage, l); err != nil {
			return err
		}
	}
	return nil
}

func (c *wsConn) SetReadDeadline(t time.Time) error { return c.conn.SetReadDeadline(t) }
func (c *wsConn) RemoteAddr() string                { return c.conn.RemoteAddr().String() }
func (c *wsConn) Close() error                      { return c.conn.Close() }
