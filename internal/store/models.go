package store

import "time"

type User struct {
	ID         int64     `json:"id"`
	GoogleID   string    `json:"google_id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	CourseName *string   `json:"course_name,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type Conversation struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

type Message struct {
	ID        int64     `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// DocumentChunk is one embedded slice of an uploaded file. A nil UserID marks
// a global document visible to every student of the matching course.
type DocumentChunk struct {
	UserID           *int64
	Content          string
	Embedding        []float32
	CourseName       string
	OriginalFileName string
	FilePath         string
	ChunkIndex       int
	TotalChunks      int
}

type DocumentInfo struct {
	ID               int64     `json:"id"`
	OriginalFileName string    `json:"original_file_name"`
	CourseName       string    `json:"course_name"`
	TotalChunks      int       `json:"total_chunks"`
	CreatedAt        time.Time `json:"created_at"`
}

type SearchHit struct {
	Content          string  `json:"content"`
	OriginalFileName string  `json:"original_file_name"`
	Similarity       float64 `json:"similarity"`
	IsGlobal         bool    `json:"is_global"`
}

type AttendanceRecord struct {
	ID         int64     `json:"id"`
	CourseName string    `json:"course_name"`
	MarkedAt   time.Time `json:"marked_at"`
}

type AttendanceSummary struct {
	CourseName string    `json:"course_name"`
	Count      int       `json:"count"`
	LastMarked time.Time `json:"last_marked"`
}

// GmailConnection stores the Google OAuth tokens for a linked inbox.
type GmailConnection struct {
	GoogleID     string
	RefreshToken string
	AccessToken  string
	TokenExpiry  time.Time
}
