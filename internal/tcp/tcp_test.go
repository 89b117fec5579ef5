package tcp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"jsrt/internal/core"
	"jsrt/internal/ioqueue"
)

// TestS3EchoRoundTrip is the spec's S3 scenario: listener on an ephemeral
// port, one connection, client writes bytes 0..255, server echoes them
// back, client receives exactly that sequence.
func TestS3EchoRoundTrip(t *testing.T) {
	registry := core.NewRegistry()
	completions := ioqueue.New(64)
	sub := New(completions, registry, 0)

	listenerID, host, port, err := sub.Listen("127.0.0.1", 0, 128)
	require.NoError(t, err)
	defer sub.Close(listenerID, nil)

	payload := make([]byte, 256)
	for i := range payload {
		payload[i] = byte(i)
	}

	clientID := sub.Connect(host, port)

	var serverID int64
	var serverSeen bool
	var clientSeen bool
	var clientConnected bool
	var received []byte

	deadline := time.Now().Add(5 * time.Second)
	for (!serverSeen || !clientConnected || len(received) < len(payload)) && time.Now().Before(deadline) {
		ok := completions.WaitOne(time.Now().Add(200*time.Millisecond), func(c ioqueue.Completion) {
			switch c.HandleID {
			case listenerID:
				if res, ok := c.Result.(AcceptResult); ok {
					serverID = sub.RegisterAccepted(res.Conn)
					require.NoError(t, sub.ReadStart(serverID))
					serverSeen = true
				}
			case clientID:
				switch res := c.Result.(type) {
				case ConnectResult:
					clientConnected = true
					require.NoError(t, sub.ReadStart(clientID))
					sub.Write(clientID, payload)
				case ReadResult:
					received = append(received, res.Bytes...)
				case WriteResult:
					// client's write to server accepted, nothing to do
				}
			default:
				if serverSeen && c.HandleID == serverID {
					if res, ok := c.Result.(ReadResult); ok && len(res.Bytes) > 0 {
						sub.Write(serverID, res.Bytes)
					}
				}
			}
		})
		_ = ok
	}

	require.True(t, clientConnected)
	require.True(t, serverSeen)
	require.Equal(t, payload, received)
}

func TestConnectRefusedClassifiesError(t *testing.T) {
	registry := core.NewRegistry()
	completions := ioqueue.New(8)
	sub := New(completions, registry, 0)

	id := sub.Connect("127.0.0.1", 1) // port 1 is reserved, nothing listens

	var gotErr error
	deadline := time.Now().Add(5 * time.Second)
	for gotErr == nil && time.Now().Before(deadline) {
		completions.WaitOne(time.Now().Add(500*time.Millisecond), func(c ioqueue.Completion) {
			if c.HandleID == id && c.Err != nil {
				gotErr = c.Err
			}
		})
	}
	require.Error(t, gotErr)
	require.Contains(t, gotErr.Error(), "ECONNREFUSED")
}
