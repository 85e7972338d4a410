package rest_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fitquest/fitquest/api/rest"
	"github.com/fitquest/fitquest/cache"
	"github.com/fitquest/fitquest/config"
	"github.com/fitquest/fitquest/game/battle"
	"github.com/fitquest/fitquest/game/dungeon"
	mw "github.com/fitquest/fitquest/middleware"
	"github.com/fitquest/fitquest/scheduler"
	"github.com/fitquest/fitquest/testutil"
)

const testAdminKey = "test-admin-key"

// testServer bundles a fully routed API with handles on the pieces
// tests need to poke at.
type testServer struct {
	r       *gin.Engine
	db      *gorm.DB
	cache   cache.Cache
	engine  *battle.Engine
	dungeon *dungeon.Service
}

func newServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.SetupTestDB(t)
	c, _ := testutil.SetupTestCache(t)
	sec := config.SecurityConfig{JWTSecret: "test-secret", JWTTTL: 72 * time.Hour}
	game := config.GameConfig{
		GuardManaGain:        20,
		RecoverCost:          25,
		ExtraCharacterCost:   500,
		PartialCompletionPts: 5,
	}

	store := battle.NewSQLStore(db)
	engine := battle.NewEngine(store, store, nil)
	dungeonSvc := dungeon.NewService(db, nil)
	sched := scheduler.New(nil)
	t.Cleanup(sched.Stop)

	authH := rest.NewAuthHandler(db, c, sec)
	userH := rest.NewUserHandler(db)
	charH := rest.NewCharacterHandler(db, game)
	skillH := rest.NewSkillHandler(db)
	itemH := rest.NewItemHandler(db)
	monsterH := rest.NewMonsterHandler(db)
	challengeH := rest.NewChallengeHandler(db, game)
	battleH := rest.NewBattleHandler(db, engine, store, nil, nil)
	dungeonH := rest.NewDungeonHandler(db, dungeonSvc)
	rankH := rest.NewRankingHandler(db, c, nil)
	adminH := rest.NewAdminHandler(db, sched, nil)

	auth := mw.Auth(sec, c)

	r := gin.New()
	api := r.Group("/api")

	authG := api.Group("/auth")
	authG.POST("/register", authH.Register)
	authG.POST("/login", authH.Login)
	authG.POST("/logout", auth, authH.Logout)
	authG.POST("/refresh", auth, authH.Refresh)

	usersG := api.Group("/users", auth)
	usersG.GET("/me", userH.Me)
	usersG.PUT("/me", userH.Update)
	usersG.GET("/me/skillpoints", userH.Skillpoints)
	usersG.GET("/username/:username", userH.GetByUsername)
	usersG.GET("/:id", userH.Get)

	charsG := api.Group("/characters", auth)
	charsG.GET("", charH.List)
	charsG.POST("", charH.Create)
	charsG.GET("/:id", charH.Get)
	charsG.GET("/:id/stats", charH.Stats)
	charsG.POST("/:id/recover", charH.Recover)
	charsG.GET("/:id/skills", charH.OwnedSkills)
	charsG.GET("/:id/items", charH.Inventory)
	charsG.DELETE("/:id/items/:ownership_id", charH.DeleteItem)
	charsG.GET("/:id/battle", battleH.GetByCharacter)
	charsG.GET("/:id/equipment", charH.Equipment)
	charsG.POST("/:id/equip", charH.Equip)
	charsG.POST("/:id/unequip", charH.Unequip)
	charsG.POST("/:id/use", charH.UsePotion)

	skillsG := api.Group("/skills", auth)
	skillsG.GET("", skillH.List)
	skillsG.GET("/:id", skillH.Get)
	skillsG.GET("/:id/effects", skillH.ListEffects)
	skillsG.POST("/:id/purchase", skillH.Purchase)

	itemsG := api.Group("/items", auth)
	itemsG.GET("", itemH.List)
	itemsG.GET("/:id", itemH.Get)

	monstersG := api.Group("/monsters", auth)
	monstersG.GET("", monsterH.List)
	monstersG.GET("/:id", monsterH.Get)

	challengesG := api.Group("/challenges", auth)
	challengesG.GET("", challengeH.List)
	challengesG.GET("/popular", challengeH.Popular)
	challengesG.GET("/recent", challengeH.Recent)
	challengesG.GET("/top-rated", challengeH.TopRated)
	challengesG.GET("/completions", challengeH.MyCompletions)
	challengesG.POST("", challengeH.Create)
	challengesG.GET("/:id", challengeH.Get)
	challengesG.PUT("/:id", challengeH.Update)
	challengesG.DELETE("/:id", challengeH.Delete)
	challengesG.POST("/:id/completions", challengeH.Complete)
	challengesG.GET("/:id/completions", challengeH.ListCompletions)
	challengesG.POST("/:id/reviews", challengeH.CreateReview)
	challengesG.PUT("/:id/reviews", challengeH.UpdateReview)
	challengesG.GET("/:id/reviews", challengeH.ListReviews)
	challengesG.DELETE("/:id/reviews", challengeH.DeleteReview)

	battlesG := api.Group("/battles", auth)
	battlesG.POST("/requests", battleH.Request)
	battlesG.GET("/requests", battleH.ListRequests)
	battlesG.DELETE("/requests/:id", battleH.CancelRequest)
	battlesG.POST("/requests/:id/accept", battleH.Accept)
	battlesG.GET("/:id", battleH.Get)
	battlesG.POST("/:id/skill", battleH.UseSkill)
	battlesG.POST("/:id/guard", battleH.Guard)
	battlesG.POST("/:id/forfeit", battleH.Forfeit)

	dungeonsG := api.Group("/dungeons", auth)
	dungeonsG.GET("", dungeonH.List)
	dungeonsG.GET("/:id", dungeonH.Get)
	dungeonsG.POST("/:id/explore", dungeonH.Explore)

	rankG := api.Group("/ranking", auth)
	rankG.GET("/skillpoints", rankH.TopSkillpoints)

	adminG := api.Group("/admin")
	adminG.Use(mw.AdminKey(testAdminKey))
	adminG.GET("/metrics", adminH.Metrics)
	adminG.GET("/scheduler", adminH.ListSchedulerTasks)
	adminG.GET("/audit", adminH.AuditQuery)
	adminG.POST("/ranking/refresh", rankH.Refresh)
	adminG.POST("/skills", skillH.Create)
	adminG.PUT("/skills/:id", skillH.Update)
	adminG.POST("/skills/:id/effects", skillH.AddEffect)
	adminG.PUT("/skills/:id/effects/:effect_id", skillH.UpdateEffect)
	adminG.DELETE("/skills/:id/effects/:effect_id", skillH.DeleteEffect)
	adminG.POST("/items", itemH.Create)
	adminG.PUT("/items/:id", itemH.Update)
	adminG.POST("/monsters", monsterH.Create)
	adminG.POST("/dungeons", dungeonH.Create)
	adminG.PUT("/dungeons/:id", dungeonH.Update)

	return &testServer{r: r, db: db, cache: c, engine: engine, dungeon: dungeonSvc}
}

// do sends a request with an optional bearer token and JSON body.
func (ts *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.r.ServeHTTP(w, req)
	return w
}

// admin sends a request with the admin key header.
func (ts *testServer) admin(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(mw.AdminKeyHeader, testAdminKey)
	w := httptest.NewRecorder()
	ts.r.ServeHTTP(w, req)
	return w
}

// register creates an account and returns its token and user ID.
func (ts *testServer) register(t *testing.T, username string) (string, int64) {
	t.Helper()
	w := ts.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "secret123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		Token  string `json:"token"`
		UserID int64  `json:"user_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token, resp.UserID
}

// decode unmarshals a recorded JSON body into out.
func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

// seqRNG returns queued values in order, then repeats the last one.
type seqRNG struct {
	vals []float64
	i    int
}

func (r *seqRNG) Float64() float64 {
	if r.i < len(r.vals) {
		v := r.vals[r.i]
		r.i++
		return v
	}
	if len(r.vals) > 0 {
		return r.vals[len(r.vals)-1]
	}
	return 0
}
