package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jithsungh/wisebot/internal/core/domain"
)

// anonymousUser answers POST /chat/ requests that carry no user_id.
const anonymousUser = "anonymous"

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// HealthResponse represents the health check response
// @Description Health check response
type HealthResponse struct {
	Status  string `json:"status" example:"healthy"`
	App     string `json:"app" example:"WiseBot"`
	Version string `json:"version" example:"1.0.0"`
}

// ReadyResponse reports per-dependency readiness
// @Description Readiness check response
type ReadyResponse struct {
	Status string            `json:"status" example:"ready"`
	Checks map[string]string `json:"checks,omitempty"`
}

// UploadResponse is returned after a file is stored
type UploadResponse struct {
	Filename string `json:"filename" example:"router-manual.pdf"`
	Size     int64  `json:"size" example:"20480"`
	Message  string `json:"message"`
}

// ProcessResponse is returned after a synchronous ingestion
type ProcessResponse struct {
	Filename      string `json:"filename,omitempty" example:"router-manual.pdf"`
	ChunksCreated int    `json:"chunks_created" example:"42"`
	TextLength    int    `json:"text_length" example:"12000"`
	Message       string `json:"message"`
}

// AsyncResponse is returned when ingestion is queued
type AsyncResponse struct {
	JobID   string           `json:"job_id"`
	Status  domain.JobStatus `json:"status" example:"uploaded"`
	Message string           `json:"message"`
}

// TextRequest carries raw text for ingestion
type TextRequest struct {
	Text  string `json:"text"`
	Title string `json:"title,omitempty"`
}

// ChatRequest is a single question over HTTP
type ChatRequest struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
}

// ChatResponse carries the composed answer
type ChatResponse struct {
	Response     string  `json:"response"`
	Confidence   float64 `json:"confidence" example:"0.8"`
	ContextCount int     `json:"context_count" example:"3"`
	UserID       string  `json:"user_id"`
}

// ActiveUsersResponse lists live chat connections
type ActiveUsersResponse struct {
	ActiveUsers []domain.ConnectionRecord `json:"active_users"`
	Count       int                       `json:"count"`
}

// HistoryResponse carries a user's conversation
type HistoryResponse struct {
	UserID  string            `json:"user_id"`
	History []domain.Exchange `json:"history"`
}

// MessageResponse is a plain confirmation
type MessageResponse struct {
	Message string `json:"message"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  HealthResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy", App: s.appName, Version: s.version})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Pings the configured stores and queue
// @Tags         Health
// @Produce      json
// @Success      200  {object}  ReadyResponse
// @Failure      503  {object}  ReadyResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := ReadyResponse{Status: "ready", Checks: make(map[string]string, len(s.deps))}
	status := http.StatusOK
	for name, dep := range s.deps {
		if err := dep.Ping(ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "not ready"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	writeJSON(w, status, resp)
}

// handleVersion godoc
// @Summary      Get API version
// @Tags         Health
// @Produce      json
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// Upload endpoints

// handleUpload godoc
// @Summary      Upload a document
// @Description  Stores the file in the upload directory, overwriting any file of the same name
// @Tags         Upload
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "Document"
// @Success      200   {object}  UploadResponse
// @Failure      400   {object}  ErrorResponse
// @Router       /upload/ [post]
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	info, ok := s.receiveUpload(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, UploadResponse{
		Filename: info.Filename,
		Size:     info.Size,
		Message:  "File saved as " + info.Filename,
	})
}

// handleProcess godoc
// @Summary      Upload and ingest a document
// @Description  Stores the file and appends its chunks to the knowledge base before responding
// @Tags         Upload
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "Document"
// @Success      200   {object}  ProcessResponse
// @Failure      400   {object}  ErrorResponse  "Unsupported or empty document"
// @Failure      503   {object}  ErrorResponse  "Embedding service not configured"
// @Router       /upload/process [post]
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	info, ok := s.receiveUpload(w, r)
	if !ok {
		return
	}
	result, err := s.docService.Process(r.Context(), info.Filename)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ProcessResponse{
		Filename:      info.Filename,
		ChunksCreated: result.ChunksCreated,
		TextLength:    result.TextLength,
		Message:       fmt.Sprintf("Successfully processed %d chunks", result.ChunksCreated),
	})
}

// handleProcessAsync godoc
// @Summary      Upload and queue a document for ingestion
// @Tags         Upload
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "Document"
// @Success      202   {object}  AsyncResponse
// @Failure      400   {object}  ErrorResponse
// @Router       /upload/process-async [post]
func (s *Server) handleProcessAsync(w http.ResponseWriter, r *http.Request) {
	info, ok := s.receiveUpload(w, r)
	if !ok {
		return
	}
	job, err := s.docService.ProcessAsync(r.Context(), info.Filename)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, AsyncResponse{
		JobID:   job.ID,
		Status:  job.Status,
		Message: job.Message,
	})
}

// handleJobStatus godoc
// @Summary      Get ingestion job status
// @Tags         Upload
// @Produce      json
// @Param        job_id  path      string  true  "Job ID"
// @Success      200     {object}  domain.ProcessingJob
// @Failure      404     {object}  ErrorResponse
// @Router       /upload/status/{job_id} [get]
func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.ingestionService.Status(r.Context(), r.PathValue("job_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// handleListJobs godoc
// @Summary      List recent ingestion jobs
// @Tags         Upload
// @Produce      json
// @Param        limit  query  int  false  "Maximum jobs"  default(50)
// @Success      200    {array}  domain.ProcessingJob
// @Router       /upload/jobs [get]
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	jobs, err := s.ingestionService.ListJobs(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if jobs == nil {
		jobs = []*domain.ProcessingJob{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

// handleProcessText godoc
// @Summary      Ingest raw text
// @Description  Appends the text to the knowledge base; title becomes the record source
// @Tags         Upload
// @Accept       json
// @Produce      json
// @Param        request  body      TextRequest  true  "Text"
// @Success      200      {object}  ProcessResponse
// @Failure      400      {object}  ErrorResponse
// @Router       /upload/process-text [post]
func (s *Server) handleProcessText(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if !decodeText(w, r, &req) {
		return
	}
	result, err := s.docService.ProcessText(r.Context(), req.Text, req.Title)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ProcessResponse{
		ChunksCreated: result.ChunksCreated,
		TextLength:    result.TextLength,
		Message:       fmt.Sprintf("Successfully processed %d chunks", result.ChunksCreated),
	})
}

// handleFeed godoc
// @Summary      Replace the knowledge base with text
// @Tags         Upload
// @Accept       json
// @Produce      json
// @Param        request  body      TextRequest  true  "Text"
// @Success      200      {object}  ProcessResponse
// @Failure      400      {object}  ErrorResponse
// @Router       /upload/feed [post]
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if !decodeText(w, r, &req) {
		return
	}
	result, err := s.docService.Feed(r.Context(), req.Text)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ProcessResponse{
		ChunksCreated: result.ChunksCreated,
		TextLength:    result.TextLength,
		Message:       fmt.Sprintf("Knowledge base replaced with %d chunks", result.ChunksCreated),
	})
}

// handleListUploads godoc
// @Summary      List uploaded files
// @Tags         Upload
// @Produce      json
// @Success      200  {array}  domain.UploadInfo
// @Router       /upload/list [get]
func (s *Server) handleListUploads(w http.ResponseWriter, r *http.Request) {
	files, err := s.docService.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if files == nil {
		files = []*domain.UploadInfo{}
	}
	writeJSON(w, http.StatusOK, files)
}

// Chat endpoints

// handleChat godoc
// @Summary      Ask a question
// @Description  Answers one question without a websocket; history is kept per user_id
// @Tags         Chat
// @Accept       json
// @Produce      json
// @Param        request  body      ChatRequest  true  "Question"
// @Success      200      {object}  ChatResponse
// @Failure      400      {object}  ErrorResponse
// @Router       /chat/ [post]
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if req.UserID == "" {
		req.UserID = anonymousUser
	}

	answer := s.chatService.Answer(r.Context(), req.Message, req.UserID)
	writeJSON(w, http.StatusOK, ChatResponse{
		Response:     answer.Text,
		Confidence:   answer.Confidence,
		ContextCount: len(answer.Context),
		UserID:       req.UserID,
	})
}

// handleActiveUsers godoc
// @Summary      List connected chat users
// @Tags         Chat
// @Produce      json
// @Success      200  {object}  ActiveUsersResponse
// @Router       /chat/users [get]
func (s *Server) handleActiveUsers(w http.ResponseWriter, r *http.Request) {
	users := s.sessions.ActiveUsers()
	if users == nil {
		users = []domain.ConnectionRecord{}
	}
	writeJSON(w, http.StatusOK, ActiveUsersResponse{ActiveUsers: users, Count: len(users)})
}

// handleChatStatus godoc
// @Summary      Chat subsystem status
// @Tags         Chat
// @Produce      json
// @Success      200  {object}  domain.ChatStatus
// @Router       /chat/status [get]
func (s *Server) handleChatStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessions.Status(r.Context()))
}

// handleClearMemory godoc
// @Summary      Clear a user's conversation memory
// @Tags         Chat
// @Produce      json
// @Param        user_id  path      string  true  "User ID"
// @Success      200      {object}  MessageResponse
// @Router       /chat/clear/{user_id} [delete]
func (s *Server) handleClearMemory(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	if err := s.memoryService.Clear(r.Context(), userID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Memory cleared for user " + userID})
}

// handleHistory godoc
// @Summary      Get a user's conversation history
// @Tags         Chat
// @Produce      json
// @Param        user_id  path      string  true  "User ID"
// @Success      200      {object}  HistoryResponse
// @Router       /chat/history/{user_id} [get]
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	history, err := s.memoryService.Exchanges(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if history == nil {
		history = []domain.Exchange{}
	}
	writeJSON(w, http.StatusOK, HistoryResponse{UserID: userID, History: history})
}

// Helper functions

// receiveUpload stores the multipart "file" field. It writes the error
// response itself and reports false on failure.
func (s *Server) receiveUpload(w http.ResponseWriter, r *http.Request) (*domain.UploadInfo, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return nil, false
	}
	defer func() { _ = file.Close() }()

	info, err := s.docService.Upload(r.Context(), header.Filename, file)
	if err != nil {
		writeServiceError(w, err)
		return nil, false
	}
	return info, true
}

func decodeText(w http.ResponseWriter, r *http.Request, req *TextRequest) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return false
	}
	return true
}

// writeServiceError maps domain sentinels onto status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrEmptyDocument),
		errors.Is(err, domain.ErrUnsupportedFormat):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, domain.ErrUpstreamTimeout):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
