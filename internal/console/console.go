// Package console is the TCP front-end for the debug monitor: accept
// connections, read one command per line, dispatch through
// internal/monitor, write the result back. The accept-goroutine plus
// handle-goroutine plus bounded graceful Stop() shape is grounded on
// telnet/listener.go, simplified to a single listening port instead of
// a configurable multi-port table since this core has exactly one
// debug console, not per-device telnet sessions.
package console

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/rvemu/core/internal/machine"
	"github.com/rvemu/core/internal/monitor"
)

// Server accepts monitor-console connections on one TCP port.
type Server struct {
	wg         sync.WaitGroup
	listener   net.Listener
	shutdown   chan struct{}
	connection chan net.Conn
	machine    *machine.Machine
}

// Start listens on addr (e.g. ":4040") and begins serving monitor
// console connections against m.
func Start(addr string, m *machine.Machine) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("console: listen: %w", err)
	}
	s := &Server{
		listener:   ln,
		shutdown:   make(chan struct{}),
		connection: make(chan net.Conn),
		machine:    m,
	}
	s.wg.Add(2)
	go s.acceptConnections()
	go s.handleConnections()
	slog.Info("monitor console listening", "addr", ln.Addr().String())
	return s, nil
}

// Stop closes the listener and waits up to one second for the accept
// and dispatch goroutines to exit, mirroring the teacher's Stop() shape.
// Client connections already being served are not waited for.
func (s *Server) Stop() {
	close(s.shutdown)
	s.listener.Close()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		slog.Warn("console: timed out waiting for connections to close")
	}
}

func (s *Server) acceptConnections() {
	defer s.wg.Done()
	for {
		select {
		case <-s.shutdown:
			return
		default:
			conn, err := s.listener.Accept()
			if err != nil {
				continue
			}
			s.connection <- conn
		}
	}
}

func (s *Server) handleConnections() {
	defer s.wg.Done()
	for {
		select {
		case <-s.shutdown:
			return
		case conn := <-s.connection:
			go handleClient(conn, s.machine)
		}
	}
}

func handleClient(conn net.Conn, m *machine.Machine) {
	defer conn.Close()
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		quit, out, err := monitor.Process(scanner.Text(), m)
		if err != nil {
			fmt.Fprintf(conn, "error: %v\n", err)
		} else if out != "" {
			fmt.Fprint(conn, out)
			if out[len(out)-1] != '\n' {
				fmt.Fprint(conn, "\n")
			}
		}
		if quit {
			return
		}
	}
}
