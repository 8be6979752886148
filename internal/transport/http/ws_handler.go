package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"quiz-forge-service/internal/app"
	"quiz-forge-service/internal/domain"
	"quiz-forge-service/internal/logger"
)

type WSHandler struct {
	service  *app.QuizService
	log      *logger.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, log *logger.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		log:     log.With("component", "ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionIndex     *int   `json:"question_index"`
	SelectedOptionKey string `json:"selected_option_key"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

func errorMessage(code, msg string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: apiError{Message: msg, Code: code}}
}

// eventMessage converts a feed event into the wire message sent to clients.
func eventMessage(ev domain.QuizEvent) (outboundMessage[any], bool) {
	switch {
	case ev.Type == domain.EventFeedback && ev.Feedback != nil:
		return outboundMessage[any]{Type: "feedback", Payload: ev.Feedback}, true
	case ev.Type == domain.EventResults && ev.Results != nil:
		return outboundMessage[any]{Type: "results", Payload: newResultsResponse(*ev.Results)}, true
	default:
		return outboundMessage[any]{}, false
	}
}

// ServeWS streams a quiz to its owner. The client sends "answer" messages;
// accepted answers come back as "feedback" (and "results" on completion)
// through the quiz feed, so every open connection for the quiz sees them.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())
	quizID := chi.URLParam(r, "id")

	take, err := h.service.GetQuiz(r.Context(), userID, quizID)
	if err != nil {
		status, code := classify(err)
		writeError(w, status, code, err)
		return
	}
	updates, cancel, err := h.service.Subscribe(r.Context(), userID, quizID)
	if err != nil {
		status, code := classify(err)
		writeError(w, status, code, err)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "quiz_id", quizID, "error", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Only the writer goroutine touches conn for writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write failed", "quiz_id", quizID, "error", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case ev, ok := <-updates:
				if !ok {
					return
				}
				msg, ok := eventMessage(ev)
				if !ok {
					continue
				}
				select {
				case send <- msg:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "quiz", Payload: take}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.QuestionIndex == nil {
				send <- errorMessage("invalid_body", "invalid answer payload")
				continue
			}
			if _, err := h.service.SubmitAnswer(r.Context(), userID, quizID, *payload.QuestionIndex, payload.SelectedOptionKey); err != nil {
				_, code := classify(err)
				send <- errorMessage(code, err.Error())
			}
		default:
			send <- errorMessage("unsupported", "unsupported message type")
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
