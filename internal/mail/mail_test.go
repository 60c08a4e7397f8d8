package mail

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

type failingSender struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *failingSender) Send(ctx context.Context, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	next := &failingSender{err: errors.New("connection refused")}
	s := NewBreakerSender(next, time.Minute, discardLogger())
	msg := Message{To: "bob@example.com", Username: "bob", Code: "ABC234"}

	for i := 0; i < 5; i++ {
		err := s.Send(context.Background(), msg)
		if err == nil || errors.Is(err, ErrMailUnavailable) {
			t.Fatalf("attempt %d: got %v, want delivery error", i, err)
		}
	}
	err := s.Send(context.Background(), msg)
	if !errors.Is(err, ErrMailUnavailable) {
		t.Fatalf("got %v, want ErrMailUnavailable", err)
	}
	if next.calls != 5 {
		t.Errorf("next.calls = %d, want 5", next.calls)
	}
}

func TestBreakerPassesSuccess(t *testing.T) {
	next := &failingSender{}
	s := NewBreakerSender(next, time.Minute, discardLogger())
	if err := s.Send(context.Background(), Message{To: "a@example.com"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
}

func TestLogSender(t *testing.T) {
	var buf strings.Builder
	s := NewLogSender(slog.New(slog.NewTextHandler(&buf, nil)))
	if err := s.Send(context.Background(), Message{To: "a@example.com", Username: "alice", Code: "XYZ789"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !strings.Contains(buf.String(), "XYZ789") {
		t.Errorf("log output %q does not contain the code", buf.String())
	}
}

// fakeSMTP минимальный SMTP сервер, принимающий одно письмо.
func fakeSMTP(t *testing.T) (addr string, received <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	out := make(chan string, 1)

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		write := func(s string) { _, _ = conn.Write([]byte(s + "\r\n")) }

		write("220 localhost ESMTP")
		var data strings.Builder
		inData := false
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			if inData {
				if line == ".\r\n" {
					inData = false
					out <- data.String()
					write("250 OK")
					continue
				}
				data.WriteString(line)
				continue
			}
			cmd := strings.ToUpper(strings.TrimSpace(line))
			switch {
			case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
				write("250 localhost")
			case strings.HasPrefix(cmd, "MAIL"), strings.HasPrefix(cmd, "RCPT"):
				write("250 OK")
			case cmd == "DATA":
				inData = true
				write("354 Go ahead")
			case cmd == "QUIT":
				write("221 Bye")
				return
			default:
				write("502 Not implemented")
			}
		}
	}()
	return ln.Addr().String(), out
}

func TestSMTPSenderDelivers(t *testing.T) {
	addr, received := fakeSMTP(t)
	host, portStr, _ := net.SplitHostPort(addr)
	port, _ := strconv.Atoi(portStr)

	s, err := NewSMTPSender(SMTPConfig{Host: host, Port: port, From: "noreply@yamdb.local", Timeout: 2 * time.Second}, discardLogger())
	if err != nil {
		t.Fatalf("NewSMTPSender: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Send(ctx, Message{To: "bob@example.com", Username: "bob", Code: "QWE456"}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case body := <-received:
		if !strings.Contains(body, "To: bob@example.com") || !strings.Contains(body, "QWE456") {
			t.Errorf("unexpected message:\n%s", body)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("message was not received")
	}
}

func TestNewSMTPSenderRequiresHost(t *testing.T) {
	if _, err := NewSMTPSender(SMTPConfig{From: "a@b.c"}, discardLogger()); err == nil {
		t.Error("expected error for empty host")
	}
}
