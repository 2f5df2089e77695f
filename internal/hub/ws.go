package hub

// #region imports
import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// #endregion imports

// #region wssink

const writeTimeout = 10 * time.Second

// WSSink adapts a websocket connection to the Sink interface. Gorilla
// connections allow one concurrent writer, so sends are serialized
// behind a mutex.
type WSSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func NewWSSink(conn *websocket.Conn) *WSSink {
	return &WSSink{conn: conn}
}

func (s *WSSink) Send(msg []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, msg)
}

func (s *WSSink) Close() error {
	return s.conn.Close()
}

// #endregion wssink
