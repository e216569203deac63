package probe_test

import (
	"net"
	"testing"
	"time"

	"codeberg.org/mutker/netpulse/internal/probe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckReachableEndpoint(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	p := probe.New(listener.Addr().String(), time.Second)
	assert.True(t, p.Check())
}

func TestCheckUnreachableEndpointIsFalseNotError(t *testing.T) {
	// Port 1 on loopback is refused essentially everywhere.
	p := probe.New("127.0.0.1:1", 200*time.Millisecond)
	assert.False(t, p.Check())
}

func TestNewDefaults(t *testing.T) {
	p := probe.New("", 0)
	assert.Equal(t, probe.DefaultAddress, p.Address)
	assert.Equal(t, probe.DefaultTimeout, p.Timeout)
}
