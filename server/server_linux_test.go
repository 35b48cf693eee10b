//go:build linux
// +build linux

package server_test

import (
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/momentics/hioload-reactor/reactor"
	"github.com/momentics/hioload-reactor/server"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("find free port: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

func startEchoServer(t *testing.T) (addr string, stop func()) {
	t.Helper()
	re, err := reactor.New(256, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("reactor.New: %v", err)
	}
	go re.Run()

	addr = freeAddr(t)
	srv, err := server.New(re, addr, 1024)
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}
	srv.SetReceiveHandler(func(fd int, data []byte) {
		buf := make([]byte, len(data))
		copy(buf, data)
		srv.Send(fd, buf)
	})
	if err := srv.Start(); err != nil {
		t.Fatalf("srv.Start: %v", err)
	}
	return addr, func() {
		srv.Stop()
		time.Sleep(50 * time.Millisecond)
		re.Close()
	}
}

func TestTcpServerEchoesOneClient(t *testing.T) {
	addr, stop := startEchoServer(t)
	defer stop()

	conn, err := net.DialTimeout("tcp", addr, time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	msg := []byte("hello reactor")
	if _, err := conn.Write(msg); err != nil {
		t.Fatalf("write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, len(msg))
	if _, err := readFull(conn, buf); err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(buf) != string(msg) {
		t.Fatalf("expected echo %q, got %q", msg, buf)
	}
}

func TestTcpServerTenConcurrentClients(t *testing.T) {
	addr, stop := startEchoServer(t)
	defer stop()

	const clients = 10
	const payloadLen = 1400

	var wg sync.WaitGroup
	var totalEchoed int64
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			conn, err := net.DialTimeout("tcp", addr, time.Second)
			if err != nil {
				t.Errorf("client %d dial: %v", id, err)
				return
			}
			defer conn.Close()

			payload := make([]byte, payloadLen)
			for j := range payload {
				payload[j] = byte(id)
			}
			if _, err := conn.Write(payload); err != nil {
				t.Errorf("client %d write: %v", id, err)
				return
			}
			conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			got := make([]byte, payloadLen)
			if _, err := readFull(conn, got); err != nil {
				t.Errorf("client %d read: %v", id, err)
				return
			}
			for j := range got {
				if got[j] != byte(id) {
					t.Errorf("client %d payload mismatch at byte %d", id, j)
					return
				}
			}
			atomic.AddInt64(&totalEchoed, int64(len(got)))
		}(i)
	}
	wg.Wait()

	if want := int64(clients * payloadLen); totalEchoed != want {
		t.Fatalf("expected %d total echoed bytes, got %d", want, totalEchoed)
	}
}

func TestTcpServerPeerCloseTriggersDisconnectEvent(t *testing.T) {
	re, err := reactor.New(256, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("reactor.New: %v", err)
	}
	go re.Run()
	defer func() {
		time.Sleep(50 * time.Millisecond)
		re.Close()
	}()

	addr := freeAddr(t)
	srv, err := server.New(re, addr, 1024)
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}

	events := make(chan server.ConnectionEvent, 8)
	srv.SetConnectionHandler(func(ev server.ConnectionEvent) {
		events <- ev
	})
	if err := srv.Start(); err != nil {
		t.Fatalf("srv.Start: %v", err)
	}
	defer srv.Stop()

	conn, err := net.DialTimeout("tcp", addr, time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	select {
	case ev := <-events:
		if ev.Kind != server.Connected {
			t.Fatalf("expected Connected first, got %v", ev.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("no Connected event observed")
	}

	conn.Close()

	select {
	case ev := <-events:
		if ev.Kind != server.Disconnected {
			t.Fatalf("expected Disconnected after peer close, got %v", ev.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("no Disconnected event observed after peer close")
	}
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
