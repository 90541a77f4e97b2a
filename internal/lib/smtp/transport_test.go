package smtp

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/users-api/internal/config"
)

// startFakeSMTP поднимает минимальный SMTP-сервер без STARTTLS.
func startFakeSMTP(t *testing.T) (string, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go serveFakeSMTP(conn)
		}
	}()

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}

func serveFakeSMTP(conn net.Conn) {
	defer conn.Close()
	w := bufio.NewWriter(conn)
	r := bufio.NewReader(conn)
	reply := func(s string) {
		_, _ = w.WriteString(s + "\r\n")
		_ = w.Flush()
	}

	reply("220 localhost ESMTP")
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.ToUpper(strings.TrimSpace(line))
		switch {
		case strings.HasPrefix(cmd, "EHLO"):
			reply("250-localhost")
			reply("250 8BITMIME")
		case strings.HasPrefix(cmd, "QUIT"):
			reply("221 bye")
			return
		default:
			reply("250 OK")
		}
	}
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTransport_ConnectWithoutTLS(t *testing.T) {
	host, port := startFakeSMTP(t)
	tr := NewTransport(config.SMTP{Host: host, Port: port, From: "no-reply@test"}, newNoopLogger())

	client, err := tr.Connect(context.Background())
	require.NoError(t, err)
	require.NoError(t, client.Mail(tr.From()))
	require.NoError(t, client.Quit())
	assert.Equal(t, "no-reply@test", tr.From())
}

func TestTransport_RequireTLS(t *testing.T) {
	host, port := startFakeSMTP(t)
	tr := NewTransport(config.SMTP{Host: host, Port: port, RequireTLS: true}, newNoopLogger())

	client, err := tr.Connect(context.Background())
	assert.Nil(t, client)
	assert.ErrorIs(t, err, ErrSTARTTLSUnsupported)
}

func TestTransport_DialError(t *testing.T) {
	tr := NewTransport(config.SMTP{Host: "127.0.0.1", Port: 1}, newNoopLogger())

	client, err := tr.Connect(context.Background())
	assert.Nil(t, client)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to dial SMTP server")
}
