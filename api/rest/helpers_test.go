package rest_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pulsefit/pulsefit-server/api/rest"
	"github.com/pulsefit/pulsefit-server/cache"
	"github.com/pulsefit/pulsefit-server/clan"
	"github.com/pulsefit/pulsefit-server/config"
	mw "github.com/pulsefit/pulsefit-server/middleware"
	"github.com/pulsefit/pulsefit-server/notify"
	"github.com/pulsefit/pulsefit-server/privacy"
	"github.com/pulsefit/pulsefit-server/rings"
	"github.com/pulsefit/pulsefit-server/social"
	"github.com/pulsefit/pulsefit-server/store"
	"github.com/pulsefit/pulsefit-server/testutil"
	"github.com/pulsefit/pulsefit-server/usercache"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testServer struct {
	r      *gin.Engine
	db     *gorm.DB
	kv     cache.Cache
	fanout *notify.Fanout
}

// newServer wires the full REST surface against an in-memory DB, mirroring
// the route layout in main.
func newServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.SetupTestDB(t)
	kv := testutil.SetupTestCache(t)
	sec := config.SecurityConfig{JWTSecret: "test-secret", JWTTTLH: 72 * time.Hour}
	logger := zap.NewNop()

	users := usercache.New(db, kv, time.Minute)
	st := store.NewGorm(db)
	resolver := privacy.NewResolver(db, users)
	fanout := notify.New(db, kv, notify.NopSender{}, logger, notify.Config{Buffer: 64, DedupeTTL: time.Minute})
	t.Cleanup(fanout.Stop)

	socialEngine := social.NewEngine(st, resolver, fanout, users, logger)
	clanEngine := clan.NewEngine(st, resolver, fanout, users, logger)
	ringsGateway := rings.NewGateway(db, resolver, logger)

	authH := rest.NewAuthHandler(db, kv, sec)
	userH := rest.NewUserHandler(db, users)
	socialH := rest.NewSocialHandler(db, socialEngine)
	clanH := rest.NewClanHandler(db, clanEngine)
	ringsH := rest.NewRingsHandler(ringsGateway)
	notifH := rest.NewNotificationHandler(db)

	auth := mw.Auth(sec, kv)

	r := gin.New()
	api := r.Group("/api")
	{
		api.POST("/auth/login", authH.Login)
		api.POST("/auth/logout", auth, authH.Logout)
		api.POST("/auth/refresh", auth, authH.Refresh)

		usersG := api.Group("/users", auth)
		usersG.GET("/me", userH.Me)
		usersG.PUT("/me", userH.UpdateProfile)
		usersG.PUT("/me/privacy", userH.UpdatePrivacy)
		usersG.GET("/search", userH.Search)
		usersG.GET("/:id/rings", ringsH.Range)
		usersG.GET("/:id/rings/:date", ringsH.Get)

		socialG := api.Group("/social", auth)
		socialG.GET("/friends", socialH.ListFriends)
		socialG.DELETE("/friends/:id", socialH.RemoveFriend)
		socialG.PUT("/friends/:id/share", socialH.SetRingsShare)
		socialG.GET("/requests", socialH.ListRequests)
		socialG.POST("/requests", socialH.SendRequest)
		socialG.POST("/requests/:id/respond", socialH.Respond)
		socialG.DELETE("/requests/:id", socialH.Cancel)
		socialG.GET("/blocked", socialH.ListBlocked)
		socialG.POST("/block/:id", socialH.Block)
		socialG.DELETE("/block/:id", socialH.Unblock)

		clansG := api.Group("/clans", auth)
		clansG.POST("", clanH.Create)
		clansG.GET("", clanH.Mine)
		clansG.GET("/invites", clanH.ListInvites)
		clansG.GET("/:id", clanH.Get)
		clansG.PUT("/:id", clanH.Update)
		clansG.POST("/:id/invites", clanH.Invite)
		clansG.POST("/:id/invites/respond", clanH.RespondInvite)
		clansG.POST("/:id/leave", clanH.Leave)
		clansG.DELETE("/:id/members/:uid", clanH.RemoveMember)
		clansG.PUT("/:id/members/:uid/role", clanH.UpdateRole)

		ringsG := api.Group("/rings", auth)
		ringsG.PUT("/:date", ringsH.Upsert)

		notifG := api.Group("/notifications", auth)
		notifG.GET("", notifH.List)
		notifG.POST("/read-all", notifH.MarkAllRead)
		notifG.POST("/:id/read", notifH.MarkRead)
	}

	return &testServer{r: r, db: db, kv: kv, fanout: fanout}
}

// postJSON sends a JSON request; extra headers come in key/value pairs.
func postJSON(r *gin.Engine, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	return doJSON(r, http.MethodPost, path, body, headers...)
}

func doJSON(r *gin.Engine, method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func doAuth(r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	return doJSON(r, method, path, body, "Authorization", "Bearer "+token)
}

// login registers (or signs in) a user and returns the token and user id.
func login(t *testing.T, s *testServer, username string) (token string, userID int64) {
	t.Helper()
	w := postJSON(s.r, "/api/auth/login", map[string]string{
		"username": username,
		"password": "pass1234",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp["token"].(string), int64(resp["user_id"].(float64))
}
