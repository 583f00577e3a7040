package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"nutriplay-engine/internal/app"
	"nutriplay-engine/internal/domain"
	"nutriplay-engine/internal/gateway"
)

const leaveTimeout = 10 * time.Second

// WSHandler runs the play channel: one socket is one open game dialog of one student.
type WSHandler struct {
	service  *app.GameService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.GameService) *WSHandler {
	return &WSHandler{
		service: service,
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

type startPayload struct {
	GameID string `json:"gameId"`
	Level  int    `json:"level"`
}

type finishPayload struct {
	Completed bool `json:"completed"`
}

type tickPayload struct {
	Elapsed int `json:"elapsed"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// outbox serialises writes to the socket. push never blocks once the writer is gone and
// is a no-op after close, so late timer ticks cannot panic.
type outbox struct {
	mu         sync.Mutex
	ch         chan outboundMessage[any]
	writerDone <-chan struct{}
	closed     bool
}

func (o *outbox) push(typ string, payload any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	select {
	case o.ch <- outboundMessage[any]{Type: typ, Payload: payload}:
	case <-o.writerDone:
	}
}

func (o *outbox) pushError(err error) {
	o.push("error", errorPayload{Message: err.Error(), Retryable: retryable(err)})
}

func (o *outbox) close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.closed {
		o.closed = true
		close(o.ch)
	}
}

// ServeWS upgrades HTTP requests to websockets and wires them into the game use cases.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	studentID, err := gateway.StudentID(token)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	ctx := gateway.WithToken(r.Context(), token)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	writerDone := make(chan struct{})
	out := &outbox{ch: make(chan outboundMessage[any], 16), writerDone: writerDone}
	closeSignals := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range out.ch {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	if _, err := h.service.RefreshPoints(ctx, studentID); err != nil {
		log.Printf("refresh points for student %s: %v", studentID, err)
	}
	updates, cancel := h.service.Subscribe(ctx, studentID)

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				out.push("state", newStateView(update))
			case <-closeSignals:
				return
			}
		}
	}()

	onTick := func(elapsed int) {
		out.push("tick", tickPayload{Elapsed: elapsed})
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.dispatch(ctx, studentID, inbound, out, onTick)
	}

	close(closeSignals)
	<-updatesDone
	cancel()
	h.leave(ctx, studentID)
	out.close()
	<-writerDone
}

func (h *WSHandler) dispatch(ctx context.Context, studentID string, inbound inboundMessage, out *outbox, onTick func(int)) {
	switch inbound.Type {
	case "start":
		var payload startPayload
		if err := decodePayload(inbound.Payload, &payload); err != nil {
			out.push("error", errorPayload{Message: "invalid start payload"})
			return
		}
		snap, err := h.service.Start(ctx, studentID, payload.GameID, payload.Level, onTick)
		if err != nil {
			out.pushError(err)
			return
		}
		out.push("session", snap)

	case "quizSelect", "quizSubmit", "quizNext", "diaryRecord", "surveyAnswer":
		ev, err := decodeEvent(inbound)
		if err != nil {
			out.push("error", errorPayload{Message: "invalid " + inbound.Type + " payload"})
			return
		}
		result, err := h.service.Record(ctx, studentID, ev)
		if result.Summary == nil && err != nil {
			out.pushError(err)
			return
		}
		out.push("result", result)
		if result.Summary != nil {
			out.push("finished", result.Summary)
		}
		if err != nil {
			out.pushError(err)
		}

	case "finish":
		var payload finishPayload
		if err := decodePayload(inbound.Payload, &payload); err != nil {
			out.push("error", errorPayload{Message: "invalid finish payload"})
			return
		}
		summary, err := h.service.Finish(ctx, studentID, payload.Completed)
		h.pushSummary(out, summary, err)

	case "abandon":
		summary, err := h.service.Abandon(ctx, studentID)
		h.pushSummary(out, summary, err)

	case "retryFinalize":
		summary, err := h.service.RetryFinalize(ctx, studentID)
		h.pushSummary(out, summary, err)

	default:
		out.push("error", errorPayload{Message: "unsupported message type"})
	}
}

// pushSummary reports a terminal session. A failed finalize still carries a summary.
func (h *WSHandler) pushSummary(out *outbox, summary domain.SessionSummary, err error) {
	var finErr *domain.FinalizeError
	if err != nil && !errors.As(err, &finErr) {
		out.pushError(err)
		return
	}
	out.push("finished", summary)
	if err != nil {
		out.pushError(err)
	}
}

// leave abandons a session still in progress when the dialog closes, then releases it.
func (h *WSHandler) leave(ctx context.Context, studentID string) {
	snap, err := h.service.Snapshot(studentID)
	if err != nil {
		return
	}
	leaveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), leaveTimeout)
	defer cancel()
	if !snap.State.Terminal() {
		if _, err := h.service.Abandon(leaveCtx, studentID); err != nil {
			log.Printf("abandon on disconnect for student %s: %v", studentID, err)
		}
	}
	h.service.Release(studentID)
}

func decodeEvent(inbound inboundMessage) (domain.Event, error) {
	switch inbound.Type {
	case "quizSelect":
		var ev domain.QuizSelect
		if err := decodePayload(inbound.Payload, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case "quizSubmit":
		return domain.QuizSubmit{}, nil
	case "quizNext":
		return domain.QuizNext{}, nil
	case "diaryRecord":
		var ev domain.DiaryRecord
		if err := decodePayload(inbound.Payload, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case "surveyAnswer":
		var ev domain.SurveyAnswer
		if err := decodePayload(inbound.Payload, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	}
	return nil, domain.ErrWrongGameKind
}

func decodePayload(raw json.RawMessage, into any) error {
	if len(raw) == 0 {
		return errors.New("missing payload")
	}
	return json.Unmarshal(raw, into)
}

func retryable(err error) bool {
	var startErr *domain.SessionStartError
	var finErr *domain.FinalizeError
	return errors.As(err, &startErr) || errors.As(err, &finErr)
}
