package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyrobo/backend/internal/apperror"
	"github.com/studyrobo/backend/internal/googleauth"
	"github.com/studyrobo/backend/internal/store"
	"github.com/studyrobo/backend/internal/tools"
)

type fakeStore struct {
	users         map[string]*store.User
	conversations map[string]string // id -> owner googleID
	messages      map[string][]store.Message
	attendance    []store.AttendanceRecord
	documents     []store.DocumentInfo
	connections   map[string]store.GmailConnection
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:         map[string]*store.User{},
		conversations: map[string]string{},
		messages:      map[string][]store.Message{},
		connections:   map[string]store.GmailConnection{},
	}
}

func (f *fakeStore) GetUserByGoogleID(_ context.Context, googleID string) (*store.User, error) {
	u, ok := f.users[googleID]
	if !ok {
		return nil, apperror.NotFound("user not found")
	}
	return u, nil
}

func (f *fakeStore) EnsureUser(_ context.Context, googleID, email, name string) (*store.User, error) {
	if u, ok := f.users[googleID]; ok {
		return u, nil
	}
	u := &store.User{ID: int64(len(f.users) + 1), GoogleID: googleID, Email: email, Name: name}
	f.users[googleID] = u
	return u, nil
}

func (f *fakeStore) UpdateUserCourse(_ context.Context, googleID, courseName string) error {
	u, ok := f.users[googleID]
	if !ok {
		return apperror.NotFound("user not found")
	}
	u.CourseName = &courseName
	return nil
}

func (f *fakeStore) CreateConversation(_ context.Context, googleID, title string) (*store.Conversation, error) {
	id := "conv-" + title
	f.conversations[id] = googleID
	return &store.Conversation{ID: id, Title: title}, nil
}

func (f *fakeStore) ListConversations(_ context.Context, googleID string) ([]store.Conversation, error) {
	out := []store.Conversation{}
	for id, owner := range f.conversations {
		if owner == googleID {
			out = append(out, store.Conversation{ID: id})
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateConversationTitle(_ context.Context, conversationID, googleID, _ string) error {
	if f.conversations[conversationID] != googleID {
		return apperror.NotFound("conversation not found")
	}
	return nil
}

func (f *fakeStore) DeleteConversation(_ context.Context, conversationID, googleID string) error {
	if f.conversations[conversationID] != googleID {
		return apperror.NotFound("conversation not found")
	}
	delete(f.conversations, conversationID)
	return nil
}

func (f *fakeStore) MessagesByConversation(_ context.Context, conversationID, googleID string) ([]store.Message, error) {
	if f.conversations[conversationID] != googleID {
		return nil, apperror.NotFound("conversation not found")
	}
	return f.messages[conversationID], nil
}

func (f *fakeStore) MessagesByUser(_ context.Context, _ string, _ int) ([]store.Message, error) {
	return []store.Message{}, nil
}

func (f *fakeStore) AddConversationMessage(_ context.Context, conversationID, googleID, role, content string) error {
	if f.conversations[conversationID] != googleID {
		return apperror.NotFound("conversation not found")
	}
	f.messages[conversationID] = append(f.messages[conversationID], store.Message{Role: role, Content: content})
	return nil
}

func (f *fakeStore) ListUserDocuments(_ context.Context, _ string) ([]store.DocumentInfo, error) {
	return f.documents, nil
}

func (f *fakeStore) GetDocument(_ context.Context, documentID int64, _ string) (*store.DocumentInfo, error) {
	for _, d := range f.documents {
		if d.ID == documentID {
			return &d, nil
		}
	}
	return nil, apperror.NotFound("document not found")
}

func (f *fakeStore) DeleteDocument(_ context.Context, _ int64, _ string) error {
	return nil
}

func (f *fakeStore) MarkAttendance(_ context.Context, googleID, courseName string) (*store.AttendanceRecord, error) {
	r := store.AttendanceRecord{ID: int64(len(f.attendance) + 1), CourseName: courseName, MarkedAt: time.Now()}
	f.attendance = append(f.attendance, r)
	return &r, nil
}

func (f *fakeStore) AttendanceRecords(_ context.Context, _, courseName string) ([]store.AttendanceRecord, error) {
	if courseName == "" {
		return f.attendance, nil
	}
	out := []store.AttendanceRecord{}
	for _, r := range f.attendance {
		if r.CourseName == courseName {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) AttendanceSummaries(_ context.Context, _ string) ([]store.AttendanceSummary, error) {
	byCourse := map[string]int{}
	for _, r := range f.attendance {
		byCourse[r.CourseName]++
	}
	out := []store.AttendanceSummary{}
	for course, n := range byCourse {
		out = append(out, store.AttendanceSummary{CourseName: course, Count: n})
	}
	return out, nil
}

func (f *fakeStore) UpsertGmailConnection(_ context.Context, conn store.GmailConnection) error {
	f.connections[conn.GoogleID] = conn
	return nil
}

func (f *fakeStore) GmailConnection(_ context.Context, googleID string) (*store.GmailConnection, error) {
	c, ok := f.connections[googleID]
	if !ok {
		return nil, apperror.NotFound("gmail not connected")
	}
	return &c, nil
}

func (f *fakeStore) DeleteGmailConnection(_ context.Context, googleID string) error {
	delete(f.connections, googleID)
	return nil
}

type fakeChat struct {
	reply string
}

func (f *fakeChat) Respond(_ context.Context, _, _, _ string) (string, error) {
	return f.reply, nil
}

type fakeUploader struct {
	chunks int
	err    error
}

func (f *fakeUploader) Upload(_ context.Context, _, _ string, _ []byte, _ string) (int, error) {
	return f.chunks, f.err
}

type fakeMail struct{}

func (f *fakeMail) UnreadEmails(_ context.Context, _ string, _ int64) tools.Result {
	return tools.Result{Success: true, Emails: []tools.EmailSummary{}}
}

func (f *fakeMail) DraftEmail(_ context.Context, _, _, _, _ string) tools.Result {
	return tools.Result{Success: true, DraftID: "d-1"}
}

func bearerFor(t *testing.T, googleID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   googleID,
		"email": googleID + "@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	s, err := token.SignedString([]byte("test"))
	require.NoError(t, err)
	return "Bearer " + s
}

func newTestServer(t *testing.T, fs *fakeStore) http.Handler {
	t.Helper()
	h := NewHandler(fs, &fakeChat{reply: "hello!"}, &fakeUploader{chunks: 3}, &fakeMail{}, nil, googleauth.NewStateStore(nil), slog.New(slog.DiscardHandler))
	return NewRouter(h, "http://localhost:3000")
}

func doJSON(t *testing.T, handler http.Handler, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRootAndHealthArePublic(t *testing.T) {
	srv := newTestServer(t, newFakeStore())

	rec := doJSON(t, srv, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "StudyRobo API is running")

	for _, group := range []string{"auth", "chat", "conversations", "documents", "attendance", "gmail"} {
		rec := doJSON(t, srv, http.MethodGet, "/api/v1/"+group+"/health", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code, group)
		assert.Contains(t, rec.Body.String(), group)
	}
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t, newFakeStore())

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/chat", "", map[string]string{"message": "hi"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/conversations", "Bearer garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChat(t *testing.T) {
	srv := newTestServer(t, newFakeStore())

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/chat", bearerFor(t, "g-1"),
		map[string]string{"message": "explain trees"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "hello!", resp["reply"])
}

func TestChatValidation(t *testing.T) {
	srv := newTestServer(t, newFakeStore())
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/chat", bearerFor(t, "g-1"),
		map[string]string{"message": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSyncUserThenMe(t *testing.T) {
	fs := newFakeStore()
	srv := newTestServer(t, fs)
	bearer := bearerFor(t, "g-1")

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/auth/sync-user", bearer,
		map[string]string{"name": "Ada", "course_name": "Physics"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/auth/me", bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var user store.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, "g-1", user.GoogleID)
	require.NotNil(t, user.CourseName)
	assert.Equal(t, "Physics", *user.CourseName)
}

func TestDeleteForeignConversation(t *testing.T) {
	fs := newFakeStore()
	fs.conversations["conv-x"] = "owner"
	srv := newTestServer(t, fs)

	rec := doJSON(t, srv, http.MethodDelete, "/api/v1/conversations/conv-x", bearerFor(t, "intruder"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	// the row survives the failed delete
	assert.Contains(t, fs.conversations, "conv-x")
}

func TestConversationLifecycle(t *testing.T) {
	fs := newFakeStore()
	srv := newTestServer(t, fs)
	bearer := bearerFor(t, "g-1")

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/conversations", bearer,
		map[string]string{"title": "Trees"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, srv, http.MethodDelete, "/api/v1/conversations/conv-Trees", bearer, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, fs.conversations, "conv-Trees")
}

func TestAttendanceMarkAndStats(t *testing.T) {
	fs := newFakeStore()
	srv := newTestServer(t, fs)
	bearer := bearerFor(t, "g-1")

	for i := 0; i < 3; i++ {
		rec := doJSON(t, srv, http.MethodPost, "/api/v1/attendance/mark", bearer,
			map[string]string{"course_name": "Physics"})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/attendance/stats", bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Stats []attendanceStat `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Stats, 1)
	assert.Equal(t, 3, resp.Stats[0].Attended)
	assert.Equal(t, assumedClassesPerCourse, resp.Stats[0].Total)
	assert.InDelta(t, 20.0, resp.Stats[0].Percentage, 0.01)
}

func TestMarkAttendanceValidation(t *testing.T) {
	srv := newTestServer(t, newFakeStore())
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/attendance/mark", bearerFor(t, "g-1"),
		map[string]string{"course_name": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadDocument(t *testing.T) {
	srv := newTestServer(t, newFakeStore())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "notes.pdf")
	require.NoError(t, err)
	fw.Write([]byte("%PDF-1.4 fake"))
	mw.WriteField("course_name", "Physics")
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/upload", &buf)
	req.Header.Set("Authorization", bearerFor(t, "g-1"))
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "\"chunks_created\":3")
}

func TestUploadRejectedType(t *testing.T) {
	fs := newFakeStore()
	h := NewHandler(fs, &fakeChat{}, &fakeUploader{err: apperror.Validation("only PDF and DOCX files are supported")}, &fakeMail{}, nil, nil, slog.New(slog.DiscardHandler))
	srv := NewRouter(h, "http://localhost:3000")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	fw.Write([]byte("plain text"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/upload", &buf)
	req.Header.Set("Authorization", bearerFor(t, "g-1"))
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, strings.ToLower(rec.Body.String()), "pdf")
}

// Every route the frontend was built against must stay served; a 404 or
// 405 here means a path was renamed or dropped.
func TestRouteSurface(t *testing.T) {
	fs := newFakeStore()
	fs.conversations["conv-x"] = "g-1"
	fs.documents = []store.DocumentInfo{{ID: 7, OriginalFileName: "notes.pdf"}}
	srv := newTestServer(t, fs)
	bearer := bearerFor(t, "g-1")

	tests := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodGet, "/api/v1/chat/messages", nil},
		{http.MethodPost, "/api/v1/conversations/conv-x/messages", map[string]string{"role": "user", "content": "hi"}},
		{http.MethodGet, "/api/v1/documents/user", nil},
		{http.MethodGet, "/api/v1/documents/7", nil},
		{http.MethodGet, "/api/v1/gmail/info", nil},
		{http.MethodGet, "/api/v1/auth/google-tokens", nil},
		{http.MethodPost, "/api/v1/auth/google-tokens", map[string]string{"refresh_token": "rt"}},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := doJSON(t, srv, tt.method, tt.path, bearer, tt.body)
			assert.NotEqual(t, http.StatusNotFound, rec.Code)
			assert.NotEqual(t, http.StatusMethodNotAllowed, rec.Code)
			assert.Less(t, rec.Code, 500)
		})
	}

	// google-auth-url and google-callback need the OAuth state store and
	// exchange; without Redis configured they must still be routed, not 404.
	for _, tt := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/auth/google-auth-url"},
		{http.MethodGet, "/api/v1/auth/google-callback"},
		{http.MethodPost, "/api/v1/auth/google-callback"},
	} {
		rec := doJSON(t, srv, tt.method, tt.path, bearer, map[string]string{})
		assert.NotEqual(t, http.StatusNotFound, rec.Code, tt.path)
		assert.NotEqual(t, http.StatusMethodNotAllowed, rec.Code, tt.path)
	}
}

func TestPostConversationMessage(t *testing.T) {
	fs := newFakeStore()
	fs.conversations["conv-x"] = "g-1"
	srv := newTestServer(t, fs)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/conversations/conv-x/messages", bearerFor(t, "g-1"),
		map[string]string{"role": "ai", "content": "stored reply"})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, fs.messages["conv-x"], 1)
	assert.Equal(t, "ai", fs.messages["conv-x"][0].Role)

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/conversations/conv-x/messages", bearerFor(t, "g-1"),
		map[string]string{"role": "system", "content": "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/conversations/conv-x/messages", bearerFor(t, "intruder"),
		map[string]string{"content": "sneaky"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetDocument(t *testing.T) {
	fs := newFakeStore()
	fs.documents = []store.DocumentInfo{{ID: 7, OriginalFileName: "notes.pdf", CourseName: "Physics"}}
	srv := newTestServer(t, fs)

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/documents/7", bearerFor(t, "g-1"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "notes.pdf")

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/documents/99", bearerFor(t, "g-1"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGoogleTokens(t *testing.T) {
	fs := newFakeStore()
	srv := newTestServer(t, fs)
	bearer := bearerFor(t, "g-1")

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/auth/google-tokens", bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "\"connected\":false")

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/auth/google-tokens", bearer,
		map[string]string{"refresh_token": "rt", "access_token": "at"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "rt", fs.connections["g-1"].RefreshToken)

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/auth/google-tokens", bearer, nil)
	assert.Contains(t, rec.Body.String(), "\"connected\":true")

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/auth/google-tokens", bearer,
		map[string]string{"access_token": "at-only"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGmailStatus(t *testing.T) {
	fs := newFakeStore()
	srv := newTestServer(t, fs)
	bearer := bearerFor(t, "g-1")

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/gmail/status", bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "\"connected\":false")

	fs.connections["g-1"] = store.GmailConnection{GoogleID: "g-1", RefreshToken: "rt"}
	rec = doJSON(t, srv, http.MethodGet, "/api/v1/gmail/status", bearer, nil)
	assert.Contains(t, rec.Body.String(), "\"connected\":true")
}
