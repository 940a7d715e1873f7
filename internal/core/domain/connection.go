package domain

import "time"

// ConnectionRecord describes one live chat connection. At most one per user.
type ConnectionRecord struct {
	ConnectionID string    `json:"-"`
	UserID       string    `json:"user_id"`
	ConnectedAt  time.Time `json:"connected_at"`
	MessageCount int       `json:"message_count"`
}

// UploadInfo describes a stored upload.
type UploadInfo struct {
	Filename string    `json:"filename"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// IngestResult is returned by synchronous ingestion.
type IngestResult struct {
	ChunksCreated int `json:"chunks_created"`
	TextLength    int `json:"text_length"`
}

// ChatStatus is the admin view of the chat subsystem.
type ChatStatus struct {
	Status        string             `json:"status"`
	KnowledgeBase *KnowledgeBaseInfo `json:"knowledge_base,omitempty"`
	ActiveUsers   int                `json:"active_users"`
	ChatbotUsers  int                `json:"chatbot_users"`
	Error         string             `json:"error,omitempty"`
}
