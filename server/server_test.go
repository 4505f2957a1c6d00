package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"artlens/config"
	"artlens/core/agent"
	"artlens/core/auth"
	"artlens/core/speech"
	"artlens/db"
	"artlens/model"
	"artlens/repository"
	"artlens/storage"

	"gorm.io/driver/sqlite"
	gormlogger "gorm.io/gorm/logger"
)

const testSecret = "test-secret"

type fakeAgent struct {
	mu            sync.Mutex
	analysis      agent.Analysis
	answer        string
	transcript    string
	transcribeErr error
	lastContext   string
	lastImage     string
	lastLocation  string
}

func (a *fakeAgent) AnalyzeArtwork(ctx context.Context, imageBase64, location, language string) agent.Analysis {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastImage = imageBase64
	a.lastLocation = location
	return a.analysis
}

func (a *fakeAgent) Chat(ctx context.Context, message, artContext, language string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastContext = artContext
	return a.answer
}

func (a *fakeAgent) Transcribe(ctx context.Context, audio []byte, language string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.transcribeErr != nil {
		return "", a.transcribeErr
	}
	return a.transcript, nil
}

func (a *fakeAgent) failTranscription(err error) {
	a.mu.Lock()
	a.transcribeErr = err
	a.mu.Unlock()
}

// seen returns the inputs of the most recent calls.
func (a *fakeAgent) seen() (image, location, artContext string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastImage, a.lastLocation, a.lastContext
}

type fakeNarrator struct {
	url string

	mu  sync.Mutex
	err error
}

func (n *fakeNarrator) Narrate(ctx context.Context, text string) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return "", n.err
	}
	return n.url, nil
}

func (n *fakeNarrator) fail(err error) {
	n.mu.Lock()
	n.err = err
	n.mu.Unlock()
}

type storedObject struct {
	data        []byte
	contentType string
}

type fakeStore struct {
	mu      sync.Mutex
	objects map[string]storedObject
	putErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string]storedObject)}
}

func (s *fakeStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return "", s.putErr
	}
	s.objects[key] = storedObject{data: data, contentType: contentType}
	return storage.PublicURL("http://media.test", key), nil
}

func (s *fakeStore) fail(err error) {
	s.mu.Lock()
	s.putErr = err
	s.mu.Unlock()
}

func (s *fakeStore) Get(ctx context.Context, key string) (io.ReadCloser, *storage.ObjectMeta, error) {
	s.mu.Lock()
	obj, ok := s.objects[key]
	s.mu.Unlock()
	if !ok {
		return nil, nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), &storage.ObjectMeta{
		ContentType: obj.contentType,
		Size:        int64(len(obj.data)),
	}, nil
}

func (s *fakeStore) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for k := range s.objects {
		keys = append(keys, k)
	}
	return keys
}

type testEnv struct {
	srv      *httptest.Server
	scans    repository.ScanRepository
	chats    repository.ChatRepository
	agent    *fakeAgent
	narrator *fakeNarrator
	store    *fakeStore
	token    string
}

// newTestEnv starts a server backed by SQLite. withStore=false exercises the
// inline data URL path.
func newTestEnv(t *testing.T, withStore bool) *testEnv {
	t.Helper()

	gdb, err := db.Open(sqlite.Open(filepath.Join(t.TempDir(), "server.db")), gormlogger.Silent)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := &config.Config{
		JWTSecret:              testSecret,
		PlayerLoadTimeout:      2 * time.Second,
		PlayerProgressInterval: 20 * time.Millisecond,
	}

	env := &testEnv{
		scans: repository.NewGormScanRepository(gdb),
		chats: repository.NewGormChatRepository(gdb),
		agent: &fakeAgent{
			analysis:   agent.Analysis{Title: "The Starry Night", Description: "A swirling night sky over a quiet village."},
			answer:     "It was painted in 1889.",
			transcript: "who painted this",
		},
		narrator: &fakeNarrator{url: "http://media.test/media/narrations/abc.mp3"},
	}

	var store MediaStore
	if withStore {
		env.store = newFakeStore()
		store = env.store
	}

	api := NewAPIHandler(env.scans, env.chats, env.agent, env.narrator, store, cfg)
	api.now = func() time.Time { return time.UnixMilli(1700000000000) }
	env.srv = httptest.NewServer(NewRouter(api, NewPlayerHandler(cfg)))
	t.Cleanup(env.srv.Close)

	env.token, err = auth.GenerateToken(testSecret, "user-1", "user1@example.com", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) (*http.Response, []byte) {
	t.Helper()
	return e.doAs(t, e.token, method, path, body)
}

func (e *testEnv) doAs(t *testing.T, token, method, path string, body interface{}) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, data
}

func (e *testEnv) seedScan(t *testing.T, userID string) *model.Scan {
	t.Helper()
	scan := &model.Scan{
		UserID:      userID,
		ImageURL:    "http://media.test/media/artworks/x.jpg",
		Title:       "Water Lilies",
		Description: "Monet's pond at Giverny.",
	}
	if err := e.scans.Create(context.Background(), scan); err != nil {
		t.Fatal(err)
	}
	return scan
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return v
}

func TestRoutesRequireBearerToken(t *testing.T) {
	env := newTestEnv(t, true)
	expired, _ := auth.GenerateToken(testSecret, "user-1", "", -time.Minute)
	forged, _ := auth.GenerateToken("other-secret", "user-1", "", time.Hour)

	routes := []struct{ method, path string }{
		{http.MethodPost, "/api/describe"},
		{http.MethodPost, "/api/chat"},
		{http.MethodPost, "/api/generate-audio"},
		{http.MethodPost, "/api/chat-generate-audio"},
		{http.MethodPost, "/api/transcribe"},
		{http.MethodGet, "/api/scans"},
	}
	for _, token := range []string{"", "garbage", expired, forged} {
		for _, rt := range routes {
			resp, body := env.doAs(t, token, rt.method, rt.path, map[string]string{})
			if resp.StatusCode != http.StatusUnauthorized {
				t.Errorf("%s %s with token %q: status %d, want 401", rt.method, rt.path, token, resp.StatusCode)
			}
			if got := decode[model.ErrorResponse](t, body).Error; got != "Unauthorized" {
				t.Errorf("error = %q", got)
			}
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, false)
	req, _ := http.NewRequest(http.MethodOptions, env.srv.URL+"/api/describe", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("missing CORS header")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, false)
	resp, _ := env.do(t, http.MethodGet, "/api/describe", nil)
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", resp.StatusCode)
	}
}

func TestDescribeStoresScan(t *testing.T) {
	env := newTestEnv(t, true)
	image := base64.StdEncoding.EncodeToString([]byte("jpeg bytes"))

	resp, body := env.do(t, http.MethodPost, "/api/describe", model.AnalyzeImageRequest{
		Image:    image,
		Location: "MoMA, New York",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", resp.StatusCode, body)
	}
	got := decode[model.AnalyzeImageResponse](t, body)

	if got.Title != "The Starry Night" || got.ScanID == "" {
		t.Errorf("unexpected response: %+v", got)
	}
	if got.AudioURL == nil || *got.AudioURL != env.narrator.url {
		t.Errorf("audioUrl = %v", got.AudioURL)
	}
	if want := "http://media.test/media/artworks/user-1/1700000000000.jpg"; got.ImageURL != want {
		t.Errorf("imageUrl = %q, want %q", got.ImageURL, want)
	}
	if keys := env.store.keys(); len(keys) != 1 || keys[0] != "artworks/user-1/1700000000000.jpg" {
		t.Errorf("stored keys = %v", keys)
	}
	if seenImage, seenLocation, _ := env.agent.seen(); seenLocation != "MoMA, New York" || seenImage != image {
		t.Errorf("agent saw image %q location %q", seenImage, seenLocation)
	}

	scan, err := env.scans.GetForUser(context.Background(), got.ScanID, "user-1")
	if err != nil {
		t.Fatalf("scan not persisted: %v", err)
	}
	if scan.Location == nil || *scan.Location != "MoMA, New York" || scan.Language != "en" {
		t.Errorf("persisted scan = %+v", scan)
	}
}

func TestDescribeWithoutNarrationOrStorage(t *testing.T) {
	env := newTestEnv(t, false)
	env.narrator.fail(speech.ErrUnavailable)
	image := base64.StdEncoding.EncodeToString([]byte("jpeg bytes"))

	resp, body := env.do(t, http.MethodPost, "/api/describe", model.AnalyzeImageRequest{
		Image: "data:image/jpeg;base64," + image,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", resp.StatusCode, body)
	}
	if !bytes.Contains(body, []byte(`"audioUrl":null`)) {
		t.Errorf("audioUrl should be null: %s", body)
	}
	got := decode[model.AnalyzeImageResponse](t, body)
	if got.ImageURL != "data:image/jpeg;base64,"+image {
		t.Errorf("imageUrl = %q", got.ImageURL)
	}
	if seenImage, _, _ := env.agent.seen(); seenImage != image {
		t.Errorf("data: prefix was not stripped: %q", seenImage)
	}
}

func TestDescribeRejectsBadInput(t *testing.T) {
	env := newTestEnv(t, true)

	cases := []struct {
		name  string
		req   model.AnalyzeImageRequest
		field string
	}{
		{"missing image", model.AnalyzeImageRequest{}, "image"},
		{"not base64", model.AnalyzeImageRequest{Image: "***"}, "image"},
		{"unsupported language", model.AnalyzeImageRequest{Image: "aGk=", Language: "fr"}, "language"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := env.do(t, http.MethodPost, "/api/describe", tc.req)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status %d, want 400", resp.StatusCode)
			}
			if _, ok := decode[model.ErrorResponse](t, body).Details[tc.field]; !ok {
				t.Errorf("no detail for %s: %s", tc.field, body)
			}
		})
	}
	if keys := env.store.keys(); len(keys) != 0 {
		t.Errorf("rejected requests uploaded %v", keys)
	}
}

func TestDescribeUploadFailure(t *testing.T) {
	env := newTestEnv(t, true)
	env.store.fail(errors.New("bucket gone"))

	resp, body := env.do(t, http.MethodPost, "/api/describe", model.AnalyzeImageRequest{Image: "aGk="})
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status %d, want 500", resp.StatusCode)
	}
	if got := decode[model.ErrorResponse](t, body).Error; got != "Upload failed" {
		t.Errorf("error = %q", got)
	}
	scans, _ := env.scans.ListByUser(context.Background(), "user-1", 10)
	if len(scans) != 0 {
		t.Errorf("scan created despite failed upload")
	}
}

func TestChat(t *testing.T) {
	env := newTestEnv(t, true)
	scan := env.seedScan(t, "user-1")

	resp, body := env.do(t, http.MethodPost, "/api/chat", model.ChatMessageRequest{
		ScanID:  scan.ID,
		Message: "When was it painted?",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", resp.StatusCode, body)
	}
	got := decode[model.ChatMessageResponse](t, body)
	if got.ID == "" || got.Response != "It was painted in 1889." || got.CreatedAt.IsZero() {
		t.Errorf("unexpected response: %+v", got)
	}
	if bytes.Contains(body, []byte("audioUrl")) {
		t.Errorf("chat response should not carry audio: %s", body)
	}
	if _, _, artContext := env.agent.seen(); artContext != "Title: Water Lilies\nDescription: Monet's pond at Giverny." {
		t.Errorf("context = %q", artContext)
	}

	resp, body = env.do(t, http.MethodGet, "/api/scans/"+scan.ID+"/messages", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("messages status %d", resp.StatusCode)
	}
	msgs := decode[[]model.ChatMessage](t, body)
	if len(msgs) != 1 || msgs[0].Message != "When was it painted?" || msgs[0].AudioURL != nil {
		t.Errorf("messages = %+v", msgs)
	}
}

func TestChatErrors(t *testing.T) {
	env := newTestEnv(t, true)
	foreign := env.seedScan(t, "user-2")

	resp, body := env.do(t, http.MethodPost, "/api/chat", model.ChatMessageRequest{ScanID: foreign.ID, Message: "hi"})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("foreign scan: status %d, want 404", resp.StatusCode)
	}
	if got := decode[model.ErrorResponse](t, body).Error; got != "Scan not found" {
		t.Errorf("error = %q", got)
	}

	resp, body = env.do(t, http.MethodPost, "/api/chat", model.ChatMessageRequest{ScanID: "not-a-uuid", Message: ""})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid body: status %d, want 400", resp.StatusCode)
	}
	details := decode[model.ErrorResponse](t, body).Details
	if details["scanId"] == "" || details["message"] == "" {
		t.Errorf("details = %v", details)
	}

	req, _ := http.NewRequest(http.MethodPost, env.srv.URL+"/api/chat", strings.NewReader("{"))
	req.Header.Set("Authorization", "Bearer "+env.token)
	raw, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	raw.Body.Close()
	if raw.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed JSON: status %d, want 400", raw.StatusCode)
	}
}

func TestGenerateAudio(t *testing.T) {
	env := newTestEnv(t, true)
	scan := env.seedScan(t, "user-1")
	ctx := context.Background()

	resp, body := env.do(t, http.MethodPost, "/api/generate-audio", model.GenerateAudioRequest{
		ScanID:      scan.ID,
		Description: scan.Description,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", resp.StatusCode, body)
	}
	stored, _ := env.scans.GetForUser(ctx, scan.ID, "user-1")
	if stored.AudioURL == nil || *stored.AudioURL != env.narrator.url {
		t.Fatalf("audio url not stored: %v", stored.AudioURL)
	}

	// A failed narration reports null and keeps the existing audio.
	env.narrator.fail(speech.ErrUnavailable)
	resp, body = env.do(t, http.MethodPost, "/api/generate-audio", model.GenerateAudioRequest{
		ScanID:      scan.ID,
		Description: scan.Description,
	})
	if resp.StatusCode != http.StatusOK || !bytes.Contains(body, []byte(`"audioUrl":null`)) {
		t.Fatalf("status %d body %s", resp.StatusCode, body)
	}
	stored, _ = env.scans.GetForUser(ctx, scan.ID, "user-1")
	if stored.AudioURL == nil || *stored.AudioURL != env.narrator.url {
		t.Errorf("existing audio was cleared: %v", stored.AudioURL)
	}

	foreign := env.seedScan(t, "user-2")
	resp, _ = env.do(t, http.MethodPost, "/api/generate-audio", model.GenerateAudioRequest{
		ScanID:      foreign.ID,
		Description: "x",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("foreign scan: status %d, want 404", resp.StatusCode)
	}
}

func TestChatGenerateAudio(t *testing.T) {
	env := newTestEnv(t, true)
	scan := env.seedScan(t, "user-1")
	ctx := context.Background()

	msg := &model.ChatMessage{ScanID: scan.ID, UserID: "user-1", Message: "q", Response: "a"}
	if err := env.chats.Create(ctx, msg); err != nil {
		t.Fatal(err)
	}

	resp, body := env.do(t, http.MethodPost, "/api/chat-generate-audio", model.ChatAudioRequest{ChatID: msg.ID, Text: "a"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", resp.StatusCode, body)
	}
	got := decode[model.AudioURLResponse](t, body)
	if got.AudioURL == nil || *got.AudioURL != env.narrator.url {
		t.Errorf("audioUrl = %v", got.AudioURL)
	}
	stored, _ := env.chats.GetForUser(ctx, msg.ID, "user-1")
	if stored.AudioURL == nil {
		t.Errorf("audio url not stored on chat message")
	}

	// A retry narrates the same text to the same URL.
	resp, body = env.do(t, http.MethodPost, "/api/chat-generate-audio", model.ChatAudioRequest{ChatID: msg.ID, Text: "a"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("retry status %d: %s", resp.StatusCode, body)
	}
	if got := decode[model.AudioURLResponse](t, body); got.AudioURL == nil || *got.AudioURL != env.narrator.url {
		t.Errorf("retry audioUrl = %v", got.AudioURL)
	}

	resp, _ = env.do(t, http.MethodPost, "/api/chat-generate-audio", model.ChatAudioRequest{ChatID: "missing", Text: "a"})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing chat: status %d, want 404", resp.StatusCode)
	}
}

func TestTranscribe(t *testing.T) {
	env := newTestEnv(t, false)
	audio := base64.StdEncoding.EncodeToString([]byte("RIFF....WAVE"))

	resp, body := env.do(t, http.MethodPost, "/api/transcribe", model.TranscribeRequest{Audio: audio})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", resp.StatusCode, body)
	}
	if got := decode[model.TranscribeResponse](t, body).Text; got != "who painted this" {
		t.Errorf("text = %q", got)
	}

	resp, _ = env.do(t, http.MethodPost, "/api/transcribe", model.TranscribeRequest{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing audio: status %d, want 400", resp.StatusCode)
	}

	env.agent.failTranscription(errors.New("whisper down"))
	resp, body = env.do(t, http.MethodPost, "/api/transcribe", model.TranscribeRequest{Audio: audio})
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status %d, want 500", resp.StatusCode)
	}
	if got := decode[model.ErrorResponse](t, body).Error; got != "Transcription failed" {
		t.Errorf("error = %q", got)
	}
}

func TestTranscribeBodyLimit(t *testing.T) {
	api := NewAPIHandler(nil, nil, &fakeAgent{}, nil, nil, &config.Config{JWTSecret: testSecret})
	body := `{"audio":"` + strings.Repeat("A", maxTranscribeBody+1024) + `"}`

	rec := httptest.NewRecorder()
	api.TranscribeHandler(rec, httptest.NewRequest(http.MethodPost, "/api/transcribe", strings.NewReader(body)))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status %d, want 413", rec.Code)
	}
}

func TestScanHistory(t *testing.T) {
	env := newTestEnv(t, false)
	first := env.seedScan(t, "user-1")
	time.Sleep(5 * time.Millisecond)
	second := env.seedScan(t, "user-1")
	env.seedScan(t, "user-2")

	resp, body := env.do(t, http.MethodGet, "/api/scans", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	scans := decode[[]model.Scan](t, body)
	if len(scans) != 2 || scans[0].ID != second.ID || scans[1].ID != first.ID {
		t.Fatalf("history = %+v", scans)
	}

	_, body = env.do(t, http.MethodGet, "/api/scans?limit=1", nil)
	if scans := decode[[]model.Scan](t, body); len(scans) != 1 {
		t.Errorf("limit ignored: %d scans", len(scans))
	}
	resp, _ = env.do(t, http.MethodGet, "/api/scans?limit=zero", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad limit: status %d, want 400", resp.StatusCode)
	}

	resp, body = env.do(t, http.MethodGet, "/api/scans/"+first.ID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("detail status %d", resp.StatusCode)
	}
	detail := decode[model.ScanDetailResponse](t, body)
	if detail.Scan == nil || detail.Scan.ID != first.ID || detail.Messages == nil {
		t.Errorf("detail = %+v", detail)
	}

	resp, _ = env.do(t, http.MethodDelete, "/api/scans/"+first.ID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodGet, "/api/scans/"+first.ID, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("deleted scan: status %d, want 404", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodDelete, "/api/scans/"+first.ID, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("second delete: status %d, want 404", resp.StatusCode)
	}
}

func TestMediaHandler(t *testing.T) {
	env := newTestEnv(t, true)
	if _, err := env.store.Put(context.Background(), "narrations/abc.mp3", []byte("ID3"), "audio/mpeg"); err != nil {
		t.Fatal(err)
	}

	resp, body := env.doAs(t, "", http.MethodGet, "/media/narrations/abc.mp3", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if string(body) != "ID3" || resp.Header.Get("Content-Type") != "audio/mpeg" {
		t.Errorf("served %q as %q", body, resp.Header.Get("Content-Type"))
	}

	resp, _ = env.doAs(t, "", http.MethodGet, "/media/narrations/missing.mp3", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing object: status %d, want 404", resp.StatusCode)
	}

	noStore := newTestEnv(t, false)
	resp, _ = noStore.doAs(t, "", http.MethodGet, "/media/narrations/abc.mp3", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("without storage: status %d, want 503", resp.StatusCode)
	}
}
