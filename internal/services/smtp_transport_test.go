package services

import (
	"context"
	"net"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

func listenLocal(t *testing.T) (net.Listener, *smtpTransport) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	addr := ln.Addr().(*net.TCPAddr)
	return ln, &smtpTransport{host: "127.0.0.1", port: addr.Port}
}

// serveOneSMTP answers a single plain SMTP session and hands back the
// envelope and message it received.
func serveOneSMTP(ln net.Listener) <-chan []string {
	out := make(chan []string, 1)
	go func() {
		var got []string
		defer func() { out <- got }()

		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		tp := textproto.NewConn(conn)
		tp.PrintfLine("220 test ready")
		for {
			line, err := tp.ReadLine()
			if err != nil {
				return
			}
			verb := strings.ToUpper(strings.Fields(line)[0])
			switch verb {
			case "EHLO", "HELO":
				tp.PrintfLine("250 test")
			case "MAIL", "RCPT":
				got = append(got, line)
				tp.PrintfLine("250 ok")
			case "DATA":
				tp.PrintfLine("354 go ahead")
				data, err := tp.ReadDotBytes()
				if err != nil {
					return
				}
				got = append(got, string(data))
				tp.PrintfLine("250 queued")
			case "QUIT":
				tp.PrintfLine("221 bye")
				return
			default:
				tp.PrintfLine("502 unsupported")
			}
		}
	}()
	return out
}

func TestSMTPTransport_Delivers(t *testing.T) {
	ln, tr := listenLocal(t)
	received := serveOneSMTP(ln)

	m := gomail.NewMessage()
	m.SetHeader("From", "noreply@pokequest.com")
	m.SetHeader("To", "a@b.com")
	m.SetHeader("Subject", "hello")
	m.SetBody("text/plain", "new password inside")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, tr.Send(ctx, m))

	got := <-received
	require.Len(t, got, 3)
	assert.Contains(t, got[0], "<noreply@pokequest.com>")
	assert.Contains(t, got[1], "<a@b.com>")
	assert.Contains(t, got[2], "Subject: hello")
}

func TestSMTPTransport_StalledServerReleasedAtDeadline(t *testing.T) {
	ln, tr := listenLocal(t)
	closed := make(chan struct{})
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		// never greets; a read only returns once the client hangs up
		buf := make([]byte, 1)
		conn.Read(buf)
		close(closed)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := tr.Send(ctx, gomail.NewMessage())
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("connection still open after the deadline")
	}
}

func TestSMTPTransport_DialFailure(t *testing.T) {
	ln, tr := listenLocal(t)
	ln.Close()

	err := tr.Send(context.Background(), gomail.NewMessage())
	assert.Error(t, err)
}
