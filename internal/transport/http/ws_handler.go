package http

import (
	"net/http"

	"github.com/go-chi/chi"
	"github.com/gorilla/websocket"

	"github.com/Krusherk/ritquiz/internal/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type outboundMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// ServeLeaderboardWS upgrades the request and streams re-ranked boards for
// one quiz until the client disconnects.
func (h *Handler) ServeLeaderboardWS(w http.ResponseWriter, r *http.Request) {
	quizID := chi.URLParam(r, "quizID")

	updates, cancel, err := h.leaderboard.Subscribe(r.Context(), quizID, limitParam(r, 10))
	if err != nil {
		writeError(w, err)
		return
	}
	defer cancel()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage, 16)
	writerDone := make(chan struct{})
	readerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.WithError(err).Debug("ws write error")
				return
			}
		}
	}()

	// The read loop exists only to observe the close; inbound frames carry
	// no meaning on this stream.
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case board, ok := <-updates:
			if !ok {
				close(send)
				<-writerDone
				return
			}
			entries := board
			if entries == nil {
				entries = []domain.LeaderboardEntry{}
			}
			select {
			case send <- outboundMessage{Type: "leaderboard", Payload: entries}:
			case <-writerDone:
				return
			}
		case <-readerDone:
			close(send)
			<-writerDone
			return
		case <-writerDone:
			return
		}
	}
}
