package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"assessment-session/internal/domain"
	"assessment-session/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WSHandler drives one session controller per websocket connection.
type WSHandler struct {
	backend  session.Backend
	options  []session.Option
	upgrader websocket.Upgrader
}

func NewWSHandler(backend session.Backend, opts ...session.Option) *WSHandler {
	return &WSHandler{
		backend: backend,
		options: opts,
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

type selectPayload struct {
	QuestionID domain.ID `json:"questionId"`
	OptionID   domain.ID `json:"optionId"`
}

type gotoPayload struct {
	Index int `json:"index"`
}

type refreshPayload struct {
	AssessmentID domain.ID `json:"assessmentId"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// ServeWS upgrades the request and runs a session for ?user=&assessments=1,2&current=2.
func (h *WSHandler) ServeWS(c *gin.Context) {
	username := c.Query("user")
	ids := parseIDs(c.Query("assessments"))
	if username == "" || len(ids) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "missing user or assessments"})
		return
	}
	current := domain.ID(c.Query("current"))
	if current == "" {
		current = ids[0]
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sessionID := uuid.NewString()
	ctrl := session.New(h.backend, username, h.options...)
	defer ctrl.Close()
	log.Printf("session %s opened for %s", sessionID, username)

	send := make(chan outboundMessage, 16)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	updates, unsubscribe := ctrl.Subscribe()
	closeSignals := make(chan struct{})
	updatesDone := make(chan struct{})
	go func() {
		defer close(updatesDone)
		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage{Type: "state", Payload: snap}:
				case <-writerDone:
					return
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	reply := func(err error) {
		select {
		case send <- errorMessage(err):
		case <-writerDone:
		}
	}

	ctx := c.Request.Context()
	if err := ctrl.Load(ctx, ids, current); err != nil {
		reply(err)
	} else {
		for {
			var inbound inboundMessage
			if err := conn.ReadJSON(&inbound); err != nil {
				break
			}
			if err := h.dispatch(ctx, ctrl, inbound); err != nil {
				reply(err)
			}
		}
	}

	close(closeSignals)
	<-updatesDone
	unsubscribe()
	close(send)
	<-writerDone
	log.Printf("session %s closed", sessionID)
}

func (h *WSHandler) dispatch(ctx context.Context, ctrl *session.Controller, msg inboundMessage) error {
	switch msg.Type {
	case "begin":
		return ctrl.Begin()
	case "select":
		var p selectPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return errors.New("invalid select payload")
		}
		return ctrl.SelectOption(p.QuestionID, p.OptionID)
	case "goto":
		var p gotoPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return errors.New("invalid goto payload")
		}
		return ctrl.GoToAssessment(p.Index)
	case "next":
		return ctrl.Next()
	case "previous":
		return ctrl.Previous()
	case "submit":
		return ctrl.SubmitCurrent(ctx)
	case "retake":
		return ctrl.Retake()
	case "refresh":
		var p refreshPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return errors.New("invalid refresh payload")
		}
		return ctrl.Refresh(ctx, p.AssessmentID)
	default:
		return errors.New("unsupported message type")
	}
}

func errorMessage(err error) outboundMessage {
	var serr *session.SubmitError
	return outboundMessage{Type: "error", Payload: errorPayload{
		Message:   err.Error(),
		Retryable: errors.As(err, &serr) && serr.Retryable(),
	}}
}

func parseIDs(raw string) []domain.ID {
	var ids []domain.ID
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			ids = append(ids, domain.ID(part))
		}
	}
	return ids
}
