package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// newTestConn dials a throwaway WebSocket server and returns the client side
// of the connection. The server side just drains until the peer hangs up.
func newTestConn(t *testing.T) *websocket.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func TestClient_SendDuringStopDoesNotPanic(t *testing.T) {
	t.Parallel()

	client := NewClient(WsClientParams{Conn: newTestConn(t), Logger: zerolog.Nop()})

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for j := 0; j < 20; j++ {
				_ = client.Send(NewServerMessage(MessageTypePong))
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		client.Stop()
	}()

	close(start)
	wg.Wait()

	// Once stopped, further sends are rejected instead of panicking
	err := client.Send(NewServerMessage(MessageTypePong))
	require.Error(t, err)
}

func TestClient_StopIsIdempotent(t *testing.T) {
	t.Parallel()

	client := NewClient(WsClientParams{Conn: newTestConn(t), Logger: zerolog.Nop()})

	client.Stop()
	client.Stop()

	select {
	case <-client.ctx.Done():
	default:
		t.Fatal("client context was not cancelled by Stop")
	}
}
