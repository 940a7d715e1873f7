package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/jithsungh/wisebot/internal/core/domain"
	"github.com/jithsungh/wisebot/internal/core/ports/driving"
)

// Mock services for testing

type mockDocumentService struct {
	uploadFn       func(ctx context.Context, filename string, r io.Reader) (*domain.UploadInfo, error)
	processFn      func(ctx context.Context, filename string) (*domain.IngestResult, error)
	processAsyncFn func(ctx context.Context, filename string) (*domain.ProcessingJob, error)
	processTextFn  func(ctx context.Context, text, title string) (*domain.IngestResult, error)
	feedFn         func(ctx context.Context, text string) (*domain.IngestResult, error)
	listFn         func(ctx context.Context) ([]*domain.UploadInfo, error)
}

func (m *mockDocumentService) Upload(ctx context.Context, filename string, r io.Reader) (*domain.UploadInfo, error) {
	if m.uploadFn != nil {
		return m.uploadFn(ctx, filename, r)
	}
	return nil, errors.New("not implemented")
}

func (m *mockDocumentService) Process(ctx context.Context, filename string) (*domain.IngestResult, error) {
	if m.processFn != nil {
		return m.processFn(ctx, filename)
	}
	return nil, errors.New("not implemented")
}

func (m *mockDocumentService) ProcessAsync(ctx context.Context, filename string) (*domain.ProcessingJob, error) {
	if m.processAsyncFn != nil {
		return m.processAsyncFn(ctx, filename)
	}
	return nil, errors.New("not implemented")
}

func (m *mockDocumentService) ProcessText(ctx context.Context, text, title string) (*domain.IngestResult, error) {
	if m.processTextFn != nil {
		return m.processTextFn(ctx, text, title)
	}
	return nil, errors.New("not implemented")
}

func (m *mockDocumentService) Feed(ctx context.Context, text string) (*domain.IngestResult, error) {
	if m.feedFn != nil {
		return m.feedFn(ctx, text)
	}
	return nil, errors.New("not implemented")
}

func (m *mockDocumentService) List(ctx context.Context) ([]*domain.UploadInfo, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, errors.New("not implemented")
}

type mockIngestionService struct {
	statusFn   func(ctx context.Context, jobID string) (*domain.ProcessingJob, error)
	listJobsFn func(ctx context.Context, limit int) ([]*domain.ProcessingJob, error)
}

func (m *mockIngestionService) Ingest(ctx context.Context, req driving.IngestRequest) (*domain.IngestResult, error) {
	return nil, errors.New("not implemented")
}

func (m *mockIngestionService) Submit(ctx context.Context, req driving.SubmitRequest) (*domain.ProcessingJob, error) {
	return nil, errors.New("not implemented")
}

func (m *mockIngestionService) ProcessJob(ctx context.Context, jobID string) error {
	return errors.New("not implemented")
}

func (m *mockIngestionService) Status(ctx context.Context, jobID string) (*domain.ProcessingJob, error) {
	if m.statusFn != nil {
		return m.statusFn(ctx, jobID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockIngestionService) ListJobs(ctx context.Context, limit int) ([]*domain.ProcessingJob, error) {
	if m.listJobsFn != nil {
		return m.listJobsFn(ctx, limit)
	}
	return nil, errors.New("not implemented")
}

type mockChatService struct {
	answerFn func(ctx context.Context, query, userID string) *domain.Answer
}

func (m *mockChatService) Answer(ctx context.Context, query, userID string) *domain.Answer {
	if m.answerFn != nil {
		return m.answerFn(ctx, query, userID)
	}
	return &domain.Answer{Text: "Sorry, I encountered an error: not implemented"}
}

type mockMemoryService struct {
	clearFn     func(ctx context.Context, userID string) error
	exchangesFn func(ctx context.Context, userID string) ([]domain.Exchange, error)
}

func (m *mockMemoryService) GetOrCreate(ctx context.Context, userID string) (*domain.UserSession, error) {
	return domain.NewUserSession(userID), nil
}

func (m *mockMemoryService) Append(ctx context.Context, userID, userText, assistantText string) error {
	return nil
}

func (m *mockMemoryService) History(ctx context.Context, userID string) ([]domain.ConversationTurn, error) {
	return nil, nil
}

func (m *mockMemoryService) Exchanges(ctx context.Context, userID string) ([]domain.Exchange, error) {
	if m.exchangesFn != nil {
		return m.exchangesFn(ctx, userID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockMemoryService) Clear(ctx context.Context, userID string) error {
	if m.clearFn != nil {
		return m.clearFn(ctx, userID)
	}
	return errors.New("not implemented")
}

func (m *mockMemoryService) KnownUsers(ctx context.Context) (int, error) {
	return 0, nil
}

type mockSessionManager struct {
	users  []domain.ConnectionRecord
	status *domain.ChatStatus
}

func (m *mockSessionManager) Serve(ctx context.Context, userID string, ch driving.Channel) error {
	return nil
}

func (m *mockSessionManager) ActiveUsers() []domain.ConnectionRecord {
	return m.users
}

func (m *mockSessionManager) Status(ctx context.Context) *domain.ChatStatus {
	if m.status != nil {
		return m.status
	}
	return &domain.ChatStatus{Status: "online"}
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	return m.err
}

type testServer struct {
	*Server
	docs      *mockDocumentService
	ingestion *mockIngestionService
	chat      *mockChatService
	memory    *mockMemoryService
	sessions  *mockSessionManager
}

func newTestServer(deps map[string]Pinger) *testServer {
	ts := &testServer{
		docs:      &mockDocumentService{},
		ingestion: &mockIngestionService{},
		chat:      &mockChatService{},
		memory:    &mockMemoryService{},
		sessions:  &mockSessionManager{},
	}
	cfg := DefaultConfig()
	cfg.Version = "1.2.3"
	cfg.Logger = quietLogger()
	ts.Server = NewServer(cfg, Services{
		Documents: ts.docs,
		Ingestion: ts.ingestion,
		Chat:      ts.chat,
		Memory:    ts.memory,
		Sessions:  ts.sessions,
		WebSocket: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			upgrader := websocket.Upgrader{}
			conn, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				return
			}
			defer conn.Close()
			_ = conn.WriteMessage(websocket.TextMessage, []byte("hello "+r.PathValue("user_id")))
		}),
	}, deps)
	return ts
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rr, req)
	return rr
}

func multipartRequest(t *testing.T, path, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = part.Write([]byte(content))
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	req := httptest.NewRequest("POST", path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(method, path string, v any) *http.Request {
	body, _ := json.Marshal(v)
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func storeUpload(uploaded *string) func(ctx context.Context, filename string, r io.Reader) (*domain.UploadInfo, error) {
	return func(ctx context.Context, filename string, r io.Reader) (*domain.UploadInfo, error) {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		*uploaded = string(data)
		return &domain.UploadInfo{Filename: filename, Size: int64(len(data))}, nil
	}
}

// Health endpoints

func TestHandleHealth(t *testing.T) {
	ts := newTestServer(nil)

	rr := ts.do(httptest.NewRequest("GET", "/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	resp := decode[HealthResponse](t, rr)
	if resp.Status != "healthy" || resp.App != "WiseBot" || resp.Version != "1.2.3" {
		t.Errorf("unexpected health response: %+v", resp)
	}
}

func TestHandleReady(t *testing.T) {
	ts := newTestServer(map[string]Pinger{"redis": &mockPinger{}, "postgres": &mockPinger{}})

	rr := ts.do(httptest.NewRequest("GET", "/ready", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	resp := decode[ReadyResponse](t, rr)
	if resp.Status != "ready" || resp.Checks["redis"] != "ok" {
		t.Errorf("unexpected ready response: %+v", resp)
	}
}

func TestHandleReady_DependencyDown(t *testing.T) {
	ts := newTestServer(map[string]Pinger{"redis": &mockPinger{err: errors.New("connection refused")}})

	rr := ts.do(httptest.NewRequest("GET", "/ready", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
	resp := decode[ReadyResponse](t, rr)
	if resp.Checks["redis"] != "connection refused" {
		t.Errorf("expected failing check to carry the error, got %+v", resp.Checks)
	}
}

func TestHandleVersion(t *testing.T) {
	ts := newTestServer(nil)

	rr := ts.do(httptest.NewRequest("GET", "/version", nil))

	resp := decode[map[string]string](t, rr)
	if resp["version"] != "1.2.3" {
		t.Errorf("expected version 1.2.3, got %q", resp["version"])
	}
}

// Upload endpoints

func TestHandleUpload(t *testing.T) {
	ts := newTestServer(nil)
	var uploaded string
	ts.docs.uploadFn = storeUpload(&uploaded)

	rr := ts.do(multipartRequest(t, "/upload/", "manual.txt", "router setup"))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decode[UploadResponse](t, rr)
	if resp.Filename != "manual.txt" || resp.Size != int64(len("router setup")) {
		t.Errorf("unexpected upload response: %+v", resp)
	}
	if uploaded != "router setup" {
		t.Errorf("expected file content to reach the service, got %q", uploaded)
	}
}

func TestHandleUpload_MissingFile(t *testing.T) {
	ts := newTestServer(nil)

	req := httptest.NewRequest("POST", "/upload/", strings.NewReader("not multipart"))
	rr := ts.do(req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestHandleUpload_TooLarge(t *testing.T) {
	ts := newTestServer(nil)
	ts.maxUpload = 64
	ts.docs.uploadFn = func(ctx context.Context, filename string, r io.Reader) (*domain.UploadInfo, error) {
		t.Error("upload should not reach the service")
		return nil, nil
	}

	rr := ts.do(multipartRequest(t, "/upload/", "big.txt", strings.Repeat("x", 1024)))

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected status 413, got %d", rr.Code)
	}
}

func TestHandleProcess(t *testing.T) {
	ts := newTestServer(nil)
	var uploaded string
	ts.docs.uploadFn = storeUpload(&uploaded)
	ts.docs.processFn = func(ctx context.Context, filename string) (*domain.IngestResult, error) {
		if filename != "manual.md" {
			t.Errorf("expected manual.md, got %s", filename)
		}
		return &domain.IngestResult{ChunksCreated: 4, TextLength: 900}, nil
	}

	rr := ts.do(multipartRequest(t, "/upload/process", "manual.md", "# router"))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decode[ProcessResponse](t, rr)
	if resp.Filename != "manual.md" || resp.ChunksCreated != 4 || resp.TextLength != 900 {
		t.Errorf("unexpected process response: %+v", resp)
	}
}

func TestHandleProcess_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"unsupported", fmt.Errorf("extract a.pptx: %w", domain.ErrUnsupportedFormat), http.StatusBadRequest},
		{"empty", domain.ErrEmptyDocument, http.StatusBadRequest},
		{"invalid", domain.ErrInvalidInput, http.StatusBadRequest},
		{"not found", domain.ErrNotFound, http.StatusNotFound},
		{"unavailable", domain.ErrServiceUnavailable, http.StatusServiceUnavailable},
		{"timeout", domain.ErrUpstreamTimeout, http.StatusGatewayTimeout},
		{"store", domain.ErrStoreFailure, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(nil)
			var uploaded string
			ts.docs.uploadFn = storeUpload(&uploaded)
			ts.docs.processFn = func(ctx context.Context, filename string) (*domain.IngestResult, error) {
				return nil, tt.err
			}

			rr := ts.do(multipartRequest(t, "/upload/process", "a.pptx", "x"))

			if rr.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, rr.Code)
			}
			resp := decode[ErrorResponse](t, rr)
			if resp.Error == "" {
				t.Error("expected error message")
			}
		})
	}
}

func TestHandleProcessAsync(t *testing.T) {
	ts := newTestServer(nil)
	var uploaded string
	ts.docs.uploadFn = storeUpload(&uploaded)
	ts.docs.processAsyncFn = func(ctx context.Context, filename string) (*domain.ProcessingJob, error) {
		return domain.NewProcessingJob(filename, domain.DefaultCollection, domain.IngestModeAppend), nil
	}

	rr := ts.do(multipartRequest(t, "/upload/process-async", "manual.txt", "router"))

	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d", rr.Code)
	}
	resp := decode[AsyncResponse](t, rr)
	if resp.JobID == "" || resp.Status != domain.JobStatusUploaded {
		t.Errorf("unexpected async response: %+v", resp)
	}
}

func TestHandleJobStatus(t *testing.T) {
	ts := newTestServer(nil)
	ts.ingestion.statusFn = func(ctx context.Context, jobID string) (*domain.ProcessingJob, error) {
		if jobID != "job-1" {
			return nil, domain.ErrNotFound
		}
		job := domain.NewProcessingJob("manual.txt", domain.DefaultCollection, domain.IngestModeAppend)
		job.ID = jobID
		return job, nil
	}

	rr := ts.do(httptest.NewRequest("GET", "/upload/status/job-1", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	job := decode[domain.ProcessingJob](t, rr)
	if job.ID != "job-1" || job.Filename != "manual.txt" {
		t.Errorf("unexpected job: %+v", job)
	}

	rr = ts.do(httptest.NewRequest("GET", "/upload/status/missing", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
}

func TestHandleListJobs(t *testing.T) {
	ts := newTestServer(nil)
	var gotLimit int
	ts.ingestion.listJobsFn = func(ctx context.Context, limit int) ([]*domain.ProcessingJob, error) {
		gotLimit = limit
		return nil, nil
	}

	rr := ts.do(httptest.NewRequest("GET", "/upload/jobs?limit=5", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if gotLimit != 5 {
		t.Errorf("expected limit 5, got %d", gotLimit)
	}
	if body := strings.TrimSpace(rr.Body.String()); body != "[]" {
		t.Errorf("expected empty array, got %s", body)
	}

	rr = ts.do(httptest.NewRequest("GET", "/upload/jobs?limit=zero", nil))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestHandleProcessText(t *testing.T) {
	ts := newTestServer(nil)
	ts.docs.processTextFn = func(ctx context.Context, text, title string) (*domain.IngestResult, error) {
		if title != "faq" {
			t.Errorf("expected title faq, got %q", title)
		}
		return &domain.IngestResult{ChunksCreated: 1, TextLength: len(text)}, nil
	}

	rr := ts.do(jsonRequest("POST", "/upload/process-text", TextRequest{Text: "reset the router", Title: "faq"}))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	resp := decode[ProcessResponse](t, rr)
	if resp.ChunksCreated != 1 || resp.TextLength != len("reset the router") {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestHandleProcessText_Validation(t *testing.T) {
	ts := newTestServer(nil)

	rr := ts.do(jsonRequest("POST", "/upload/process-text", TextRequest{Text: "   "}))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for blank text, got %d", rr.Code)
	}

	rr = ts.do(httptest.NewRequest("POST", "/upload/process-text", strings.NewReader("{")))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for bad JSON, got %d", rr.Code)
	}
}

func TestHandleFeed(t *testing.T) {
	ts := newTestServer(nil)
	var fed string
	ts.docs.feedFn = func(ctx context.Context, text string) (*domain.IngestResult, error) {
		fed = text
		return &domain.IngestResult{ChunksCreated: 2, TextLength: len(text)}, nil
	}

	rr := ts.do(jsonRequest("POST", "/upload/feed", TextRequest{Text: "new manual"}))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if fed != "new manual" {
		t.Errorf("expected text to reach Feed, got %q", fed)
	}
}

func TestHandleListUploads(t *testing.T) {
	ts := newTestServer(nil)
	ts.docs.listFn = func(ctx context.Context) ([]*domain.UploadInfo, error) {
		return []*domain.UploadInfo{{Filename: "a.txt", Size: 3}, {Filename: "b.pdf", Size: 10}}, nil
	}

	rr := ts.do(httptest.NewRequest("GET", "/upload/list", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	files := decode[[]domain.UploadInfo](t, rr)
	if len(files) != 2 || files[1].Filename != "b.pdf" {
		t.Errorf("unexpected files: %+v", files)
	}
}

// Chat endpoints

func TestHandleChat(t *testing.T) {
	ts := newTestServer(nil)
	ts.chat.answerFn = func(ctx context.Context, query, userID string) *domain.Answer {
		if query != "how do i reset?" || userID != "alice" {
			t.Errorf("unexpected question %q from %q", query, userID)
		}
		return &domain.Answer{Text: "Hold the button.", Confidence: 0.75, Context: []string{"a", "b"}}
	}

	rr := ts.do(jsonRequest("POST", "/chat/", ChatRequest{Message: "  how do i reset?  ", UserID: "alice"}))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	resp := decode[ChatResponse](t, rr)
	if resp.Response != "Hold the button." || resp.Confidence != 0.75 || resp.ContextCount != 2 || resp.UserID != "alice" {
		t.Errorf("unexpected chat response: %+v", resp)
	}
}

func TestHandleChat_DefaultsUser(t *testing.T) {
	ts := newTestServer(nil)
	ts.chat.answerFn = func(ctx context.Context, query, userID string) *domain.Answer {
		return &domain.Answer{Text: "ok"}
	}

	rr := ts.do(jsonRequest("POST", "/chat/", ChatRequest{Message: "hi"}))

	resp := decode[ChatResponse](t, rr)
	if resp.UserID != anonymousUser {
		t.Errorf("expected %s, got %q", anonymousUser, resp.UserID)
	}
}

func TestHandleChat_EmptyMessage(t *testing.T) {
	ts := newTestServer(nil)
	ts.chat.answerFn = func(ctx context.Context, query, userID string) *domain.Answer {
		t.Error("empty message should not be answered")
		return nil
	}

	rr := ts.do(jsonRequest("POST", "/chat/", ChatRequest{Message: "   ", UserID: "u1"}))

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestHandleActiveUsers(t *testing.T) {
	ts := newTestServer(nil)

	rr := ts.do(httptest.NewRequest("GET", "/chat/users", nil))
	resp := decode[ActiveUsersResponse](t, rr)
	if resp.Count != 0 || resp.ActiveUsers == nil {
		t.Errorf("expected empty non-nil list, got %+v", resp)
	}

	ts.sessions.users = []domain.ConnectionRecord{{UserID: "u1"}, {UserID: "u2", MessageCount: 3}}
	rr = ts.do(httptest.NewRequest("GET", "/chat/users", nil))
	resp = decode[ActiveUsersResponse](t, rr)
	if resp.Count != 2 || resp.ActiveUsers[1].MessageCount != 3 {
		t.Errorf("unexpected users: %+v", resp)
	}
}

func TestHandleChatStatus(t *testing.T) {
	ts := newTestServer(nil)
	ts.sessions.status = &domain.ChatStatus{
		Status:        "online",
		KnowledgeBase: &domain.KnowledgeBaseInfo{CollectionName: "manuals", DocumentCount: 12},
		ActiveUsers:   1,
		ChatbotUsers:  4,
	}

	rr := ts.do(httptest.NewRequest("GET", "/chat/status", nil))

	status := decode[domain.ChatStatus](t, rr)
	if status.Status != "online" || status.KnowledgeBase.DocumentCount != 12 || status.ChatbotUsers != 4 {
		t.Errorf("unexpected status: %+v", status)
	}
}

func TestHandleClearMemory(t *testing.T) {
	for _, method := range []string{"DELETE", "POST"} {
		t.Run(method, func(t *testing.T) {
			ts := newTestServer(nil)
			var cleared string
			ts.memory.clearFn = func(ctx context.Context, userID string) error {
				cleared = userID
				return nil
			}

			rr := ts.do(httptest.NewRequest(method, "/chat/clear/bob", nil))

			if rr.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d", rr.Code)
			}
			resp := decode[MessageResponse](t, rr)
			if resp.Message != "Memory cleared for user bob" || cleared != "bob" {
				t.Errorf("unexpected clear: %+v (cleared %q)", resp, cleared)
			}
		})
	}
}

func TestHandleHistory(t *testing.T) {
	ts := newTestServer(nil)
	ts.memory.exchangesFn = func(ctx context.Context, userID string) ([]domain.Exchange, error) {
		return []domain.Exchange{{User: "q", Assistant: "a"}}, nil
	}

	rr := ts.do(httptest.NewRequest("GET", "/chat/history/bob", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	resp := decode[HistoryResponse](t, rr)
	if resp.UserID != "bob" || len(resp.History) != 1 || resp.History[0].Assistant != "a" {
		t.Errorf("unexpected history: %+v", resp)
	}
}

func TestHandleHistory_Error(t *testing.T) {
	ts := newTestServer(nil)
	ts.memory.exchangesFn = func(ctx context.Context, userID string) ([]domain.Exchange, error) {
		return nil, errors.New("redis down")
	}

	rr := ts.do(httptest.NewRequest("GET", "/chat/history/bob", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rr.Code)
	}
}

func TestWebSocketThroughMiddleware(t *testing.T) {
	ts := newTestServer(nil)
	srv := httptest.NewServer(ts.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/carol"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(msg) != "hello carol" {
		t.Errorf("expected greeting, got %q", msg)
	}
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(nil)

	rr := ts.do(httptest.NewRequest("GET", "/auth/login", nil))

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
}
