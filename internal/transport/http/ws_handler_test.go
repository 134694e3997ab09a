package http

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"assessment-session/internal/session"
	"github.com/gorilla/websocket"
)

func TestWebSocketSessionFlow(t *testing.T) {
	server := httptest.NewServer(newTestRouter(session.WithTickInterval(time.Hour)))
	defer server.Close()

	conn := dialSession(t, server, "user=alice&assessments=1")
	defer conn.Close()

	waitForState(t, conn, func(s stateView) bool { return s.Status == "ready" })

	send(t, conn, map[string]any{"type": "begin"})
	waitForState(t, conn, func(s stateView) bool { return s.Status == "in_progress" })

	send(t, conn, map[string]any{"type": "select", "payload": map[string]any{"questionId": "q1", "optionId": "o2"}})
	waitForState(t, conn, func(s stateView) bool { return s.AnsweredCount == 1 })

	send(t, conn, map[string]any{"type": "submit"})
	final := waitForState(t, conn, func(s stateView) bool { return s.Status == "completed" })
	if final.Result == nil || final.Result.Score != 1 || !final.Result.Passed {
		t.Fatalf("expected passing result, got %+v", final.Result)
	}
	if len(final.Result.Review) != 1 || final.Result.Review[0].UserAnswerText != "4" {
		t.Fatalf("expected review with selected text, got %+v", final.Result.Review)
	}
}

func TestWebSocketReportsInvalidCommands(t *testing.T) {
	server := httptest.NewServer(newTestRouter(session.WithTickInterval(time.Hour)))
	defer server.Close()

	conn := dialSession(t, server, "user=alice&assessments=1")
	defer conn.Close()
	waitForState(t, conn, func(s stateView) bool { return s.Status == "ready" })

	send(t, conn, map[string]any{"type": "next"})
	msg := readUntil(t, conn, "error")
	if !strings.Contains(msg.Error.Message, "cannot move to next assessment while ready") || msg.Error.Retryable {
		t.Fatalf("expected non-retryable transition error, got %+v", msg.Error)
	}

	send(t, conn, map[string]any{"type": "dance"})
	msg = readUntil(t, conn, "error")
	if msg.Error.Message != "unsupported message type" {
		t.Fatalf("unexpected error %+v", msg.Error)
	}
}

func TestWebSocketLoadFailure(t *testing.T) {
	server := httptest.NewServer(newTestRouter())
	defer server.Close()

	conn := dialSession(t, server, "user=alice&assessments=1,missing")
	defer conn.Close()

	msg := readUntil(t, conn, "error")
	if !strings.Contains(msg.Error.Message, "missing") {
		t.Fatalf("expected load error naming the assessment, got %+v", msg.Error)
	}
}

func TestWebSocketRequiresUserAndAssessments(t *testing.T) {
	server := httptest.NewServer(newTestRouter())
	defer server.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(server, "user=alice"), nil)
	if err == nil {
		t.Fatalf("expected handshake rejection")
	}
	if resp == nil || resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %+v", resp)
	}
}

type stateView struct {
	Status        string `json:"status"`
	AnsweredCount int    `json:"answeredCount"`
	Result        *struct {
		Score  int  `json:"score"`
		Passed bool `json:"passed"`
		Review []struct {
			UserAnswerText string `json:"user_answer_text"`
		} `json:"review"`
	} `json:"result"`
}

type wsMessage struct {
	Type  string
	State stateView
	Error errorPayload
}

func wsURL(server *httptest.Server, query string) string {
	return "ws" + server.URL[len("http"):] + "/ws/session?" + query
}

func dialSession(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, query), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func readNext(t *testing.T, conn *websocket.Conn) wsMessage {
	t.Helper()
	var raw struct {
		Type    string         `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&raw); err != nil {
		t.Fatalf("read json: %v", err)
	}
	msg := wsMessage{Type: raw.Type}
	var err error
	switch raw.Type {
	case "state":
		err = json.Unmarshal(raw.Payload, &msg.State)
	case "error":
		err = json.Unmarshal(raw.Payload, &msg.Error)
	}
	if err != nil {
		t.Fatalf("decode %s payload: %v", raw.Type, err)
	}
	return msg
}

func readUntil(t *testing.T, conn *websocket.Conn, typ string) wsMessage {
	t.Helper()
	for i := 0; i < 20; i++ {
		if msg := readNext(t, conn); msg.Type == typ {
			return msg
		}
	}
	t.Fatalf("no %s message received", typ)
	return wsMessage{}
}

func waitForState(t *testing.T, conn *websocket.Conn, match func(stateView) bool) stateView {
	t.Helper()
	for i := 0; i < 20; i++ {
		msg := readNext(t, conn)
		if msg.Type == "error" {
			t.Fatalf("unexpected error %+v", msg.Error)
		}
		if msg.Type == "state" && match(msg.State) {
			return msg.State
		}
	}
	t.Fatalf("expected state never arrived")
	return stateView{}
}
