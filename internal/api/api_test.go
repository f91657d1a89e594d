package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bebokaka99/truyenviethay-backend/internal/model"
	"github.com/bebokaka99/truyenviethay-backend/internal/notification"
	"github.com/bebokaka99/truyenviethay-backend/internal/service"
	"github.com/bebokaka99/truyenviethay-backend/internal/service/mocks"
	"github.com/bebokaka99/truyenviethay-backend/pkg/auth"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testUserID int64 = 42

func fakeAuth(c *gin.Context) {
	c.Set(auth.UserIDKey, testUserID)
	c.Next()
}

func pass(c *gin.Context) { c.Next() }

func questRouter(qs *mocks.MockQuestService, cs *mocks.MockClaimService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewQuestRoutes(router.Group("/api/v1"), qs, cs, QuestGuards{
		Auth:       fakeAuth,
		Admin:      pass,
		ClaimLimit: pass,
	})
	return router
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestQuestRoutes_GetUserQuests(t *testing.T) {
	qs := &mocks.MockQuestService{}
	router := questRouter(qs, &mocks.MockClaimService{})

	qs.On("ListForUser", mock.Anything, testUserID).Return([]*model.UserQuest{
		{
			Quest: model.Quest{
				ID: 1, Key: "daily_read", Name: "Read", ActionType: model.ActionRead,
				Recurrence: model.RecurrenceDaily, TargetCount: 5, RewardExp: 20,
			},
			CurrentCount: 5,
			Status:       model.StatusCompleted,
		},
	}, nil)

	w := do(router, http.MethodGet, "/api/v1/quests", "")
	require.Equal(t, http.StatusOK, w.Code)

	var got []UserQuestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "daily_read", got[0].Key)
	assert.Equal(t, "daily", got[0].Recurrence)
	assert.Equal(t, 5, got[0].CurrentCount)
	assert.Equal(t, "completed", got[0].Status)
}

func TestQuestRoutes_GetUserQuests_Error(t *testing.T) {
	qs := &mocks.MockQuestService{}
	router := questRouter(qs, &mocks.MockClaimService{})

	qs.On("ListForUser", mock.Anything, testUserID).Return(nil, errors.New("db down"))

	w := do(router, http.MethodGet, "/api/v1/quests", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestQuestRoutes_ClaimReward(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		mockSetup      func(cs *mocks.MockClaimService)
		expectedStatus int
	}{
		{
			name: "Success",
			body: `{"quest_id": 7}`,
			mockSetup: func(cs *mocks.MockClaimService) {
				cs.On("Claim", mock.Anything, testUserID, int64(7)).Return(&model.ClaimResult{
					Message: "Reward claimed! +50 EXP", Reward: 50, Experience: 450, Level: 2, LeveledUp: true,
				}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Missing quest id",
			body:           `{}`,
			mockSetup:      func(cs *mocks.MockClaimService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "No progress",
			body: `{"quest_id": 7}`,
			mockSetup: func(cs *mocks.MockClaimService) {
				cs.On("Claim", mock.Anything, testUserID, int64(7)).Return(nil, service.ErrProgressNotFound)
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "Expired",
			body: `{"quest_id": 7}`,
			mockSetup: func(cs *mocks.MockClaimService) {
				cs.On("Claim", mock.Anything, testUserID, int64(7)).Return(nil, service.ErrQuestExpired)
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "Already claimed",
			body: `{"quest_id": 7}`,
			mockSetup: func(cs *mocks.MockClaimService) {
				cs.On("Claim", mock.Anything, testUserID, int64(7)).Return(nil, service.ErrQuestAlreadyClaimed)
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name: "Target not reached",
			body: `{"quest_id": 7}`,
			mockSetup: func(cs *mocks.MockClaimService) {
				cs.On("Claim", mock.Anything, testUserID, int64(7)).Return(nil, service.ErrTargetNotReached)
			},
			expectedStatus: http.StatusForbidden,
		},
		{
			name: "Storage failure",
			body: `{"quest_id": 7}`,
			mockSetup: func(cs *mocks.MockClaimService) {
				cs.On("Claim", mock.Anything, testUserID, int64(7)).Return(nil, errors.New("tx aborted"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := &mocks.MockClaimService{}
			tt.mockSetup(cs)
			router := questRouter(&mocks.MockQuestService{}, cs)

			w := do(router, http.MethodPost, "/api/v1/quests/claim", tt.body)
			assert.Equal(t, tt.expectedStatus, w.Code)

			if tt.expectedStatus == http.StatusOK {
				var got ClaimResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
				assert.Equal(t, 450, got.Experience)
				assert.True(t, got.LeveledUp)
			}
			cs.AssertExpectations(t)
		})
	}
}

func TestQuestRoutes_Admin(t *testing.T) {
	valid := `{"quest_key":"weekly_comment","name":"Comment","action_type":"comment","type":"weekly","target_count":10,"reward_exp":100}`

	tests := []struct {
		name           string
		method         string
		path           string
		body           string
		mockSetup      func(qs *mocks.MockQuestService)
		expectedStatus int
	}{
		{
			name:   "List all",
			method: http.MethodGet,
			path:   "/api/v1/quests/admin/all",
			mockSetup: func(qs *mocks.MockQuestService) {
				qs.On("ListAll", mock.Anything).Return([]*model.Quest{{ID: 1, Key: "a"}}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "Create",
			method: http.MethodPost,
			path:   "/api/v1/quests/admin",
			body:   valid,
			mockSetup: func(qs *mocks.MockQuestService) {
				qs.On("Create", mock.Anything, mock.MatchedBy(func(q *model.Quest) bool {
					return q.Key == "weekly_comment" && q.ActionType == model.ActionComment &&
						q.Recurrence == model.RecurrenceWeekly
				})).Return(nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "Create with unknown action",
			method:         http.MethodPost,
			path:           "/api/v1/quests/admin",
			body:           strings.Replace(valid, `"comment"`, `"dance"`, 1),
			mockSetup:      func(qs *mocks.MockQuestService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "Create duplicate key",
			method: http.MethodPost,
			path:   "/api/v1/quests/admin",
			body:   valid,
			mockSetup: func(qs *mocks.MockQuestService) {
				qs.On("Create", mock.Anything, mock.Anything).Return(service.ErrQuestKeyExists)
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name:   "Create invalid",
			method: http.MethodPost,
			path:   "/api/v1/quests/admin",
			body:   valid,
			mockSetup: func(qs *mocks.MockQuestService) {
				qs.On("Create", mock.Anything, mock.Anything).Return(service.ErrInvalidQuest)
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "Update missing",
			method: http.MethodPut,
			path:   "/api/v1/quests/admin/9",
			body:   valid,
			mockSetup: func(qs *mocks.MockQuestService) {
				qs.On("Update", mock.Anything, mock.MatchedBy(func(q *model.Quest) bool {
					return q.ID == 9
				})).Return(service.ErrQuestNotFound)
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "Update bad id",
			method:         http.MethodPut,
			path:           "/api/v1/quests/admin/abc",
			body:           valid,
			mockSetup:      func(qs *mocks.MockQuestService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "Delete",
			method: http.MethodDelete,
			path:   "/api/v1/quests/admin/3",
			mockSetup: func(qs *mocks.MockQuestService) {
				qs.On("Delete", mock.Anything, int64(3)).Return(nil)
			},
			expectedStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qs := &mocks.MockQuestService{}
			tt.mockSetup(qs)
			router := questRouter(qs, &mocks.MockClaimService{})

			w := do(router, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.expectedStatus, w.Code)
			qs.AssertExpectations(t)
		})
	}
}

func TestQuestRoutes_AdminGuard(t *testing.T) {
	gin.SetMode(gin.TestMode)
	qs := &mocks.MockQuestService{}
	router := gin.New()
	NewQuestRoutes(router.Group("/api/v1"), qs, &mocks.MockClaimService{}, QuestGuards{
		Auth: fakeAuth,
		Admin: func(c *gin.Context) {
			c.AbortWithStatus(http.StatusForbidden)
		},
		ClaimLimit: pass,
	})

	w := do(router, http.MethodGet, "/api/v1/quests/admin/all", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	qs.AssertNotCalled(t, "ListAll", mock.Anything)
}

func eventRouter(streak *mocks.MockStreakService, tracker *mocks.MockQuestEngine) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewEventRoutes(router.Group("/api/v1"), streak, tracker, pass)
	return router
}

func TestEventRoutes_Login(t *testing.T) {
	streak := &mocks.MockStreakService{}
	done := make(chan struct{})
	streak.On("RecordLogin", mock.Anything, int64(5)).
		Run(func(mock.Arguments) { close(done) }).
		Return(3, nil)

	w := do(eventRouter(streak, &mocks.MockQuestEngine{}), http.MethodPost, "/api/v1/events/login/5", "")
	assert.Equal(t, http.StatusAccepted, w.Code)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("login was not recorded")
	}
}

func TestEventRoutes_Actions(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		body           string
		action         model.ActionType
		amount         int
		expectedStatus int
	}{
		{name: "Read default amount", path: "/api/v1/events/read/5", action: model.ActionRead, amount: 1, expectedStatus: http.StatusAccepted},
		{name: "Read with amount", path: "/api/v1/events/read/5", body: `{"amount":3}`, action: model.ActionRead, amount: 3, expectedStatus: http.StatusAccepted},
		{name: "Comment", path: "/api/v1/events/comment/5", action: model.ActionComment, amount: 1, expectedStatus: http.StatusAccepted},
		{name: "Non-positive amount", path: "/api/v1/events/comment/5", body: `{"amount":-2}`, action: model.ActionComment, amount: 1, expectedStatus: http.StatusAccepted},
		{name: "Bad user id", path: "/api/v1/events/read/abc", expectedStatus: http.StatusBadRequest},
		{name: "Bad body", path: "/api/v1/events/read/5", body: `{"amount":"x"}`, expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := &mocks.MockQuestEngine{}
			if tt.expectedStatus == http.StatusAccepted {
				tracker.On("Track", mock.Anything, int64(5), tt.action, tt.amount).Return()
			}

			w := do(eventRouter(&mocks.MockStreakService{}, tracker), http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.expectedStatus, w.Code)
			tracker.AssertExpectations(t)
		})
	}
}

type fakeInbox struct {
	inbox  *model.Inbox
	err    error
	marked []int64
}

func (f *fakeInbox) List(ctx context.Context, userID int64) (*model.Inbox, error) {
	return f.inbox, f.err
}

func (f *fakeInbox) MarkAllRead(ctx context.Context, userID int64) error {
	f.marked = append(f.marked, userID)
	return f.err
}

func notificationRouter(inbox NotificationInbox, hub *notification.Hub) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewNotificationRoutes(router.Group("/api/v1"), inbox, hub, fakeAuth)
	return router
}

func TestNotificationRoutes(t *testing.T) {
	inbox := &fakeInbox{inbox: &model.Inbox{
		Notifications: []*model.Notification{{ID: 1, UserID: testUserID, Title: "Quest completed!"}},
		Unread:        1,
	}}
	router := notificationRouter(inbox, notification.NewHub())

	w := do(router, http.MethodGet, "/api/v1/notifications", "")
	require.Equal(t, http.StatusOK, w.Code)

	var got model.Inbox
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 1, got.Unread)
	require.Len(t, got.Notifications, 1)
	assert.Equal(t, "Quest completed!", got.Notifications[0].Title)

	w = do(router, http.MethodPut, "/api/v1/notifications/read", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []int64{testUserID}, inbox.marked)

	inbox.err = errors.New("db down")
	w = do(router, http.MethodGet, "/api/v1/notifications", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestNotificationRoutes_WebSocket(t *testing.T) {
	hub := notification.NewHub()
	server := httptest.NewServer(notificationRouter(&fakeInbox{}, hub))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/notifications/ws?token=abc"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Connected(testUserID) == 1 }, time.Second, 10*time.Millisecond)

	delivered := hub.Publish(testUserID, notification.Message{Type: "notification", Payload: gin.H{"title": "hi"}})
	assert.Equal(t, 1, delivered)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type    string            `json:"type"`
		Payload map[string]string `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(frame, &msg))
	assert.Equal(t, "notification", msg.Type)
	assert.Equal(t, "hi", msg.Payload["title"])
}
