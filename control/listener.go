package control

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"
)

const (
	commandPrefix = "socket_"
	readTimeout   = 5 * time.Second
)

// Listener serves the control channel: one short text command per
// connection, answered and closed. Commands are rare and tiny so
// connections are handled sequentially on purpose.
type Listener struct {
	ln      net.Listener
	mailbox *Mailbox
}

func NewListener(port int, mailbox *Mailbox) (*Listener, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, err
	}
	return &Listener{ln: ln, mailbox: mailbox}, nil
}

// Addr reports the bound address, handy when the port was chosen by the
// kernel in tests.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Run accepts connections until the context is cancelled. Protocol
// errors are answered and logged; nothing here ever stops the listener.
func (l *Listener) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		l.ln.Close()
	}()

	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("Failed to accept control connection", slog.String("error", err.Error()))
			continue
		}
		l.handle(conn)
	}
}

func (l *Listener) handle(conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(readTimeout))

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintf(conn, "error: empty command\n")
		return
	}

	ruleID, err := parseCommand(strings.TrimSpace(line))
	if err != nil {
		slog.Warn("Rejected control command", slog.String("command", strings.TrimSpace(line)))
		fmt.Fprintf(conn, "error: %s\n", err)
		return
	}

	l.mailbox.Set(ruleID)
	slog.Info("Queued jump request", slog.Int("rule_id", ruleID))
	fmt.Fprintf(conn, "ok: jump %d\n", ruleID)
}

func parseCommand(cmd string) (int, error) {
	rest, found := strings.CutPrefix(cmd, commandPrefix)
	if !found {
		return 0, fmt.Errorf("expected socket_<rule id>")
	}
	id, err := strconv.Atoi(rest)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("rule id must be a non-negative integer")
	}
	return id, nil
}
