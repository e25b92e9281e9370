package stream

import "github.com/gofiber/websocket/v2"

// Pump writes every message from send to the websocket until the peer goes
// away. Incoming messages go to onMessage when it is set. stop must close
// send; Pump calls it once the read side ends and then waits for the writer
// to drain.
func Pump(c *websocket.Conn, send <-chan []byte, stop func(), onMessage func([]byte)) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range send {
			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				// keep draining so the producer never blocks on us
				for range send {
				}
				return
			}
		}
	}()

	for {
		_, msg, err := c.ReadMessage()
		if err != nil {
			break
		}
		if onMessage != nil {
			onMessage(msg)
		}
	}
	stop()
	<-done
}
