package http

import (
	"encoding/json"
	"net/http"
	"time"

	"vocab-battle/internal/app"
	"vocab-battle/internal/domain"
	"vocab-battle/internal/match"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

type WSHandler struct {
	service  *app.BattleService
	log      *logrus.Entry
	now      func() time.Time
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.BattleService, log *logrus.Entry) *WSHandler {
	return &WSHandler{
		service: service,
		log:     log,
		now:     time.Now,
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
	Word    string `json:"word"`
	Correct bool   `json:"correct"`
}

type resultsPayload struct {
	Period string `json:"period"`
}

type turnResult struct {
	Student  *domain.Student `json:"student,omitempty"`
	Finished bool            `json:"finished"`
	State    stateView       `json:"state"`
}

type answerResult struct {
	Record answerView `json:"record"`
	State  stateView  `json:"state"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and drives one match from the
// classroom screen.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	matchID := r.URL.Query().Get("matchId")
	if matchID == "" {
		http.Error(w, "missing matchId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	updates, cancel, err := h.service.Subscribe(r.Context(), matchID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// single writer goroutine; gorilla connections allow one concurrent writer
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.WithError(err).WithField("match_id", matchID).Debug("ws write error")
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case event, ok := <-updates:
				if !ok {
					return
				}
				msg := outboundMessage[any]{Type: "state", Payload: newStateView(event.State)}
				if event.Type == domain.EventWarning {
					msg = outboundMessage[any]{Type: "warning", Payload: errorPayload{Message: event.Message}}
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

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		msg := h.handle(r, matchID, inbound)
		select {
		case send <- msg:
			continue
		case <-writerDone:
		}
		break
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) handle(r *http.Request, matchID string, inbound inboundMessage) outboundMessage[any] {
	ctx := r.Context()
	switch inbound.Type {
	case "next":
		student, ok, state, err := h.service.NextTurn(ctx, matchID)
		if err != nil {
			return errorMessage(err.Error())
		}
		res := turnResult{Finished: !ok, State: newStateView(state)}
		if ok {
			res.Student = &student
		}
		return outboundMessage[any]{Type: "turn", Payload: res}
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errorMessage("invalid answer payload")
		}
		rec, state, err := h.service.SubmitAnswer(ctx, matchID, payload.Word, payload.Correct)
		if err != nil {
			return errorMessage(err.Error())
		}
		return outboundMessage[any]{Type: "answerResult", Payload: answerResult{
			Record: newAnswerView(rec),
			State:  newStateView(state),
		}}
	case "results":
		var payload resultsPayload
		if len(inbound.Payload) > 0 {
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				return errorMessage("invalid results payload")
			}
		}
		window, err := match.WindowFor(payload.Period, h.now())
		if err != nil {
			return errorMessage(err.Error())
		}
		res, err := h.service.Results(ctx, matchID, window)
		if err != nil {
			return errorMessage(err.Error())
		}
		return outboundMessage[any]{Type: "results", Payload: newResultsView(res)}
	case "state":
		state, err := h.service.State(ctx, matchID)
		if err != nil {
			return errorMessage(err.Error())
		}
		return outboundMessage[any]{Type: "state", Payload: newStateView(state)}
	default:
		return errorMessage("unsupported message type")
	}
}

func errorMessage(msg string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
}
