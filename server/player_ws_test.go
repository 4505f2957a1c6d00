package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"artlens/core/playback"

	"github.com/gorilla/websocket"
)

type wireMessage map[string]interface{}

func (m wireMessage) str(key string) string {
	s, _ := m[key].(string)
	return s
}

func (m wireMessage) status() string {
	st, _ := m["state"].(map[string]interface{})
	s, _ := st["status"].(string)
	return s
}

func dialPlayer(t *testing.T, env *testEnv, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/ws/player?token=" + token
	return websocket.DefaultDialer.Dial(url, nil)
}

// readUntil reads messages until match accepts one.
func readUntil(t *testing.T, conn *websocket.Conn, what string, match func(wireMessage) bool) wireMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var msg wireMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %s: %v", what, err)
		}
		if match(msg) {
			return msg
		}
	}
}

func isCommand(kind string) func(wireMessage) bool {
	return func(m wireMessage) bool { return m.str("type") == kind }
}

func isStatus(status string) func(wireMessage) bool {
	return func(m wireMessage) bool { return m.str("type") == "state" && m.status() == status }
}

func TestPlayerRejectsMissingToken(t *testing.T) {
	env := newTestEnv(t, false)
	for _, token := range []string{"", "garbage"} {
		_, resp, err := dialPlayer(t, env, token)
		if err == nil {
			t.Fatalf("dial with token %q succeeded", token)
		}
		if resp == nil || resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("token %q: response %v, want 401", token, resp)
		}
	}
}

func TestPlayerSessionRoundTrip(t *testing.T) {
	env := newTestEnv(t, false)
	conn, _, err := dialPlayer(t, env, env.token)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	readUntil(t, conn, "initial idle state", isStatus("idle"))

	play := map[string]interface{}{
		"type": "play",
		"track": map[string]string{
			"id":    "description-1",
			"url":   "https://cdn.example/starry.mp3",
			"title": "The Starry Night",
			"kind":  "description",
		},
	}
	if err := conn.WriteJSON(play); err != nil {
		t.Fatal(err)
	}

	load := readUntil(t, conn, "load command", isCommand("load"))
	if load.str("url") != "https://cdn.example/starry.mp3" {
		t.Errorf("load url = %q", load.str("url"))
	}
	token := load["token"]
	readUntil(t, conn, "play command", isCommand("play"))

	events := []map[string]interface{}{
		{"type": "event", "token": token, "event": "metadata", "duration": 120},
		{"type": "event", "token": token, "event": "play"},
	}
	for _, ev := range events {
		if err := conn.WriteJSON(ev); err != nil {
			t.Fatal(err)
		}
	}
	playing := readUntil(t, conn, "playing state", isStatus("playing"))
	st := playing["state"].(map[string]interface{})
	if track, _ := st["currentTrack"].(map[string]interface{}); track["title"] != "The Starry Night" {
		t.Errorf("currentTrack = %v", st["currentTrack"])
	}

	if err := conn.WriteJSON(map[string]string{"type": "pause"}); err != nil {
		t.Fatal(err)
	}
	readUntil(t, conn, "pause command", isCommand("pause"))
	readUntil(t, conn, "paused state", isStatus("paused"))

	if err := conn.WriteJSON(map[string]string{"type": "stop"}); err != nil {
		t.Fatal(err)
	}
	unload := readUntil(t, conn, "unload command", isCommand("unload"))
	if unload["token"] != token {
		t.Errorf("unload token = %v, want %v", unload["token"], token)
	}
	readUntil(t, conn, "idle state", isStatus("idle"))

	// Events for the released element are ignored.
	if err := conn.WriteJSON(map[string]interface{}{"type": "event", "token": token, "event": "ended"}); err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteJSON(map[string]string{"type": "bogus"}); err != nil {
		t.Fatal(err)
	}
	errMsg := readUntil(t, conn, "error reply", isCommand("error"))
	if !strings.Contains(errMsg.str("error"), "bogus") {
		t.Errorf("error = %q", errMsg.str("error"))
	}
}

func TestPlayerNaturalEnd(t *testing.T) {
	env := newTestEnv(t, false)
	conn, _, err := dialPlayer(t, env, env.token)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.WriteJSON(map[string]interface{}{
		"type":  "play",
		"track": map[string]string{"id": "response-1", "url": "data:audio/mpeg;base64,SUQz", "kind": "response"},
	})
	token := readUntil(t, conn, "load command", isCommand("load"))["token"]
	readUntil(t, conn, "play command", isCommand("play"))

	conn.WriteJSON(map[string]interface{}{"type": "event", "token": token, "event": "play"})
	readUntil(t, conn, "playing state", isStatus("playing"))

	conn.WriteJSON(map[string]interface{}{"type": "event", "token": token, "event": "ended"})
	// The element is released before the ended state goes out.
	readUntil(t, conn, "unload command", isCommand("unload"))
	readUntil(t, conn, "ended state", isStatus("ended"))
}

func TestPlayerRejectsTrackWithoutURL(t *testing.T) {
	env := newTestEnv(t, false)
	conn, _, err := dialPlayer(t, env, env.token)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.WriteJSON(map[string]interface{}{"type": "play", "track": map[string]string{"id": "x"}})
	errMsg := readUntil(t, conn, "error reply", isCommand("error"))
	if errMsg.str("error") == "" {
		t.Errorf("empty error message")
	}
}

func TestPlayerElementPause(t *testing.T) {
	env := newTestEnv(t, false)
	conn, _, err := dialPlayer(t, env, env.token)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.WriteJSON(map[string]interface{}{
		"type":  "play",
		"track": map[string]string{"id": "description-1", "url": "https://cdn.example/kiss.mp3", "kind": "description"},
	})
	token := readUntil(t, conn, "load command", isCommand("load"))["token"]
	readUntil(t, conn, "play command", isCommand("play"))

	conn.WriteJSON(map[string]interface{}{"type": "event", "token": token, "event": "play"})
	readUntil(t, conn, "playing state", isStatus("playing"))

	// Paused from the page itself, not through a pause message.
	conn.WriteJSON(map[string]interface{}{"type": "event", "token": token, "event": "timeupdate", "position": 7})
	conn.WriteJSON(map[string]interface{}{"type": "event", "token": token, "event": "pause"})
	paused := readUntil(t, conn, "paused state", isStatus("paused"))
	st := paused["state"].(map[string]interface{})
	if st["progress"] != float64(7) {
		t.Errorf("progress = %v, want 7", st["progress"])
	}
	if st["currentTrack"] == nil {
		t.Error("track must be kept while paused")
	}
}

func TestPlayerConnFlushesOnShutdown(t *testing.T) {
	upgrader := websocket.Upgrader{}
	ready := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		pc := &playerConn{
			conn:    conn,
			out:     make(chan interface{}, sendBuffer),
			done:    make(chan struct{}),
			stopped: make(chan struct{}),
		}
		// Queue before the loop starts so everything is pending at shutdown.
		pc.Send(playback.Command{Type: "unload", Token: 3})
		pc.enqueue(stateMessage{Type: "state", State: playback.State{Status: playback.StatusIdle}})
		go pc.writeLoop()
		pc.shutdown()

		if err := pc.Send(playback.Command{Type: "play", Token: 4}); err != errConnClosed {
			t.Errorf("Send after shutdown = %v, want errConnClosed", err)
		}
		close(ready)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	readUntil(t, conn, "unload command", isCommand("unload"))
	readUntil(t, conn, "idle state", isStatus("idle"))
	<-ready
}
