package monitor

import (
	"bufio"
	"context"
	"io"
	"net"
	"strings"
	"testing"
	"time"
)

// serveOnce accepts one connection, reads one line and answers with response.
// If hang is true the connection is kept open after answering, like the real
// management interface does.
func serveOnce(t *testing.T, response string, hang bool) (addr string, commands <-chan string) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal("failed to listen:", err)
	}
	t.Cleanup(func() { ln.Close() })

	ch := make(chan string, 1)

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		line, err := bufio.NewReader(conn).ReadString('\n')
		if err != nil && err != io.EOF {
			return
		}
		ch <- strings.TrimSpace(line)

		io.WriteString(conn, response)

		if hang {
			time.Sleep(2 * time.Second)
		}
	}()

	return ln.Addr().String(), ch
}

func TestManagementProbe(t *testing.T) {
	t.Run("query", func(t *testing.T) {
		addr, commands := serveOnce(t, "OpenVPN STATISTICS\nv1=10,v2=20\n", false)

		p := NewManagementProbe(addr, time.Second)

		out, err := p.Query(context.Background(), "status")
		if err != nil {
			t.Fatal("query failed:", err)
		}

		if !strings.Contains(out, "v1=10,v2=20") {
			t.Errorf("unexpected response %q", out)
		}
		if cmd := <-commands; cmd != "status" {
			t.Errorf("endpoint received %q, expected status", cmd)
		}
	})

	t.Run("response before timeout", func(t *testing.T) {
		addr, _ := serveOnce(t, "v1=10,v2=20\n", true)

		p := NewManagementProbe(addr, 300*time.Millisecond)

		out, err := p.Query(context.Background(), "status")
		if err != nil {
			t.Fatal("a timed-out read with data is a complete response:", err)
		}
		if !strings.Contains(out, "v1=10,v2=20") {
			t.Errorf("unexpected response %q", out)
		}
	})

	t.Run("connection refused", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatal(err)
		}
		addr := ln.Addr().String()
		ln.Close()

		p := NewManagementProbe(addr, time.Second)

		if _, err := p.Query(context.Background(), "status"); err == nil {
			t.Error("expected a connection error")
		}
	})
}
