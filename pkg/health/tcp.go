package health

import (
	"context"
	"net"
	"time"
)

// TCPChecker considers a worker alive while its address accepts connections
type TCPChecker struct {
	Worker  string
	Timeout time.Duration
}

func NewTCPChecker(worker string, timeout time.Duration) *TCPChecker {
	return &TCPChecker{Worker: worker, Timeout: timeout}
}

func (c *TCPChecker) Check(ctx context.Context) Result {
	start := time.Now()

	dialer := net.Dialer{Timeout: c.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.Worker)
	if err == nil {
		conn.Close()
	}
	return finish(start, err)
}

func (c *TCPChecker) Type() CheckType { return CheckTypeTCP }
