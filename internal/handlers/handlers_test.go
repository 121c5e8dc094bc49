package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"synergy-backend/internal/database"
	"synergy-backend/internal/services"
	"synergy-backend/internal/utils"
	"synergy-backend/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testBaseURL = "http://api.test"

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	chats  *services.ChatService
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { sqlDB.Close() })

	log, _ := test.NewNullLogger()
	local, err := services.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	files := services.NewFileStore(local, 1<<20, []string{"png", "jpg"}, log)

	auth := services.NewAuthService(db, utils.NewTokenManager("test-secret", time.Hour), nil, 0, time.Minute, log)
	profiles := services.NewProfileService(db, files, log)
	collections := services.NewCollectionService(db, files, log)
	collaborations := services.NewCollaborationService(db, files, nil, testBaseURL, log)
	matches := services.NewMatchService(db, collaborations, collections, nil, nil, log)
	chats := services.NewChatService(db)
	hub := websocket.NewHub(chats, matches, nil, nil, true, log)

	r := gin.New()
	RegisterRoutes(r, auth, Set{
		Auth:          NewAuthHandler(auth, log),
		Profile:       NewProfileHandler(profiles, testBaseURL, log),
		Collection:    NewCollectionHandler(collections, testBaseURL, log),
		Collaboration: NewCollaborationHandler(collaborations, testBaseURL, log),
		Match:         NewMatchHandler(matches, testBaseURL, log),
		Chat:          NewChatHandler(chats, hub, log),
	})
	return &testServer{router: r, db: db, chats: chats}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) upload(t *testing.T, path, token, filename string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG fake"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// signUp registers and logs in, returning the token and user id.
func (s *testServer) signUp(t *testing.T, username string) (string, uint) {
	t.Helper()
	creds := gin.H{"username": username, "password": "s3cret-pass"}

	w := s.do(t, http.MethodPost, "/auth/register", "", creds)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var registered struct {
		ID uint `json:"id"`
	}
	decode(t, w, &registered)

	w = s.do(t, http.MethodPost, "/auth/login", "", creds)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login struct {
		AccessToken string `json:"access_token"`
	}
	decode(t, w, &login)
	return login.AccessToken, registered.ID
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dst), w.Body.String())
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	decode(t, w, &body)
	return body.Error
}

func TestAuthEndpoints(t *testing.T) {
	s := setupTestServer(t)
	token, id := s.signUp(t, "alice")
	assert.NotEmpty(t, token)
	assert.NotZero(t, id)

	w := s.do(t, http.MethodPost, "/auth/register", "", gin.H{"username": "alice", "password": "other"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "User already exists", errorOf(t, w))

	w = s.do(t, http.MethodPost, "/auth/register", "", gin.H{"username": "bob"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/auth/login", "", gin.H{"username": "alice", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid username or password", errorOf(t, w))

	w = s.do(t, http.MethodGet, "/profile/view", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/profile/view", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/auth/logout", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSwipeAndMatchScenario(t *testing.T) {
	s := setupTestServer(t)
	alice, aliceID := s.signUp(t, "alice")
	bob, bobID := s.signUp(t, "bob")

	type swipeResponse struct {
		Message string `json:"message"`
		IsMatch bool   `json:"is_match"`
	}

	w := s.do(t, http.MethodGet, "/match/get_others", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var others []struct {
		ID uint `json:"id"`
	}
	decode(t, w, &others)
	require.Len(t, others, 1)
	assert.Equal(t, bobID, others[0].ID)

	w = s.do(t, http.MethodPost, fmt.Sprintf("/match/swipe_right/%d", bobID), alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var swipe swipeResponse
	decode(t, w, &swipe)
	assert.False(t, swipe.IsMatch)

	w = s.do(t, http.MethodPost, fmt.Sprintf("/match/swipe_right/%d", bobID), alice, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Already swiped right", errorOf(t, w))

	w = s.do(t, http.MethodGet, "/match/likes", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, fmt.Sprintf("/match/swipe_right/%d", aliceID), bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &swipe)
	assert.True(t, swipe.IsMatch)
	assert.Equal(t, "Swiped right successfully! It's a match!", swipe.Message)

	for token, partner := range map[string]uint{alice: bobID, bob: aliceID} {
		w = s.do(t, http.MethodGet, "/match/matches", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var matches []struct {
			ID uint `json:"id"`
		}
		decode(t, w, &matches)
		require.Len(t, matches, 1)
		assert.Equal(t, partner, matches[0].ID)
	}

	w = s.do(t, http.MethodGet, "/match/get_others", alice, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "No other users available", errorOf(t, w))

	w = s.do(t, http.MethodGet, "/match/likes", bob, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "No users have liked you yet.", errorOf(t, w))

	w = s.do(t, http.MethodPost, fmt.Sprintf("/match/swipe_right/%d", aliceID), alice, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/match/swipe_right/abc", alice, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/match/get_user/%d", bobID), alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var detail services.UserDetail
	decode(t, w, &detail)
	assert.True(t, detail.AlreadySwipedRight)

	w = s.do(t, http.MethodGet, "/match/get_user/999", alice, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProfileEndpoints(t *testing.T) {
	s := setupTestServer(t)
	token, _ := s.signUp(t, "alice")

	w := s.do(t, http.MethodPost, "/profile/add", token, gin.H{"bio": "Bassist", "skills": []string{"bass", "mixing"}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/profile/add", token, gin.H{"bio": "Again"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Profile already exists. Use update endpoint to modify it.", errorOf(t, w))

	w = s.do(t, http.MethodPut, "/profile/update", token, gin.H{"location": "Lisbon"})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.upload(t, "/profile/picture", token, "me.png")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/profile/view", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var profile struct {
		Username       string   `json:"username"`
		Bio            string   `json:"bio"`
		Skills         []string `json:"skills"`
		Location       string   `json:"location"`
		ProfilePicture string   `json:"profile_picture"`
	}
	decode(t, w, &profile)
	assert.Equal(t, "alice", profile.Username)
	assert.Equal(t, "Bassist", profile.Bio)
	assert.Equal(t, []string{"bass", "mixing"}, profile.Skills)
	assert.Equal(t, "Lisbon", profile.Location)
	assert.Contains(t, profile.ProfilePicture, testBaseURL+"/uploads/profiles/")

	w = s.upload(t, "/profile/picture", token, "me.exe")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, "/profile/device_token", token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(t, http.MethodPut, "/profile/device_token", token, gin.H{"token": "fcm-token"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCollectionEndpoints(t *testing.T) {
	s := setupTestServer(t)
	alice, _ := s.signUp(t, "alice")
	bob, _ := s.signUp(t, "bob")

	w := s.do(t, http.MethodPost, "/profile/collections", alice, gin.H{"name": "Demos"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Collection struct {
			ID uint `json:"id"`
		} `json:"collection"`
	}
	decode(t, w, &created)
	base := fmt.Sprintf("/profile/collections/%d", created.Collection.ID)

	w = s.do(t, http.MethodPost, base+"/items", alice, gin.H{"type": "text", "content": "Track list"})
	require.Equal(t, http.StatusCreated, w.Code)
	w = s.upload(t, base+"/items", alice, "cover.png")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = s.do(t, http.MethodPost, base+"/items", alice, gin.H{"type": "file", "content": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, base+"/items", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var items []struct {
		ID      uint   `json:"id"`
		Type    string `json:"type"`
		Content string `json:"content"`
	}
	decode(t, w, &items)
	require.Len(t, items, 2)
	assert.Equal(t, "text", items[0].Type)
	assert.Equal(t, "file", items[1].Type)
	assert.Contains(t, items[1].Content, testBaseURL+"/uploads/collections/")

	w = s.do(t, http.MethodGet, base+"/items", bob, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(t, http.MethodDelete, base, bob, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodDelete, fmt.Sprintf("%s/items/%d", base, items[0].ID), alice, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodDelete, base, alice, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/profile/collections", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestCollaborationEndpoints(t *testing.T) {
	s := setupTestServer(t)
	alice, _ := s.signUp(t, "alice")
	bob, bobID := s.signUp(t, "bob")

	w := s.do(t, http.MethodPost, "/collaboration/create", alice, gin.H{"name": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/collaboration/create", alice, gin.H{"name": "Zine", "description": "Monthly"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		ID uint `json:"id"`
	}
	decode(t, w, &created)
	base := fmt.Sprintf("/collaboration/%d", created.ID)

	w = s.do(t, http.MethodGet, base, bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var view services.CollaborationView
	decode(t, w, &view)
	assert.Equal(t, "alice", view.AdminName)

	w = s.do(t, http.MethodPut, base, bob, gin.H{"name": "Mine now"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, base+"/join", bob, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var joined struct {
		Request struct {
			ID uint `json:"id"`
		} `json:"request"`
	}
	decode(t, w, &joined)

	w = s.do(t, http.MethodPost, base+"/join", bob, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodGet, base+"/requests", bob, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/collaboration/requests/mine", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var mine []services.RequestView
	decode(t, w, &mine)
	require.Len(t, mine, 1)

	approve := fmt.Sprintf("%s/requests/%d/approve", base, joined.Request.ID)
	w = s.do(t, http.MethodPost, approve, alice, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.do(t, http.MethodPost, approve, alice, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodGet, base+"/members", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var members []services.MemberView
	decode(t, w, &members)
	require.Len(t, members, 2)
	assert.Equal(t, bobID, members[1].UserID)

	w = s.do(t, http.MethodGet, "/collaboration/joined", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodGet, fmt.Sprintf("/match/get_user_collaborations/%d", bobID), alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"member"`)

	w = s.upload(t, base+"/photos", alice, "cover.png")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = s.do(t, http.MethodGet, base+"/photos", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), testBaseURL+"/uploads/collaborations/")

	w = s.do(t, http.MethodGet, "/collaboration/999", alice, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(t, http.MethodGet, "/collaboration/view", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodGet, "/collaboration/my", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestChatHistoryEndpoint(t *testing.T) {
	s := setupTestServer(t)
	alice, aliceID := s.signUp(t, "alice")
	bob, bobID := s.signUp(t, "bob")

	ctx := context.Background()
	_, err := s.chats.Save(ctx, aliceID, bobID, "hi bob")
	require.NoError(t, err)
	_, err = s.chats.Save(ctx, bobID, aliceID, "hi alice")
	require.NoError(t, err)

	var fromAlice, fromBob []struct {
		SenderID uint   `json:"sender_id"`
		Message  string `json:"message"`
	}
	w := s.do(t, http.MethodGet, fmt.Sprintf("/chat/history/%d", bobID), alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &fromAlice)
	w = s.do(t, http.MethodGet, fmt.Sprintf("/chat/history/%d", aliceID), bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &fromBob)

	require.Len(t, fromAlice, 2)
	assert.Equal(t, fromAlice, fromBob)
	assert.Equal(t, "hi bob", fromAlice[0].Message)

	w = s.do(t, http.MethodGet, "/chat/ws", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
