package feed

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // OK for demo; restrict in production
	},
}

func WSHandler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}

		hub.AddWS(ws)
		s := hub.Stats()
		log.Printf("[feed] ws observer connected (%d total)", s.TCPObservers+s.WSObservers)

		_ = ws.WriteJSON(greeting{
			Type:      "welcome",
			Transport: "websocket",
			Observers: s.TCPObservers + s.WSObservers,
		})

		// observers only listen; drain until they hang up
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}

		hub.RemoveWS(ws)
		log.Printf("[feed] ws observer disconnected")
	}
}
