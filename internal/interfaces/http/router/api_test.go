package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	appcrm "github.com/crm/backend/internal/application/crm"
	appevent "github.com/crm/backend/internal/application/event"
	appidentity "github.com/crm/backend/internal/application/identity"
	appreport "github.com/crm/backend/internal/application/report"
	"github.com/crm/backend/internal/domain/access"
	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/infrastructure/auth"
	"github.com/crm/backend/internal/infrastructure/cache"
	"github.com/crm/backend/internal/infrastructure/config"
	"github.com/crm/backend/internal/infrastructure/event"
	"github.com/crm/backend/internal/infrastructure/persistence"
	"github.com/crm/backend/internal/interfaces/http/dto"
	"github.com/crm/backend/internal/interfaces/http/handler"
	"github.com/crm/backend/internal/interfaces/http/middleware"
	"github.com/crm/backend/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const fixturePassword = "Passw0rd1"

type apiFixture struct {
	engine  *gin.Engine
	team    *identity.Team
	admin   *identity.User
	manager *identity.User
	seller  *identity.User
	rival   *identity.User
}

type loginData struct {
	Tokens struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	} `json:"tokens"`
	User appidentity.UserDTO `json:"user"`
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	ctx := context.Background()
	log := zaptest.NewLogger(t)
	db := testutil.NewSQLiteDB(t)

	outbox := event.NewOutboxPublisher(event.NewDefaultSerializer())
	users := persistence.NewGormUserRepository(db, outbox)
	teams := persistence.NewGormTeamRepository(db)
	accounts := persistence.NewGormAccountRepository(db)
	leads := persistence.NewGormLeadRepository(db, outbox)
	notes := persistence.NewGormNoteRepository(db)
	sales := persistence.NewGormSaleRepository(db)

	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                 "api-test-secret-key-that-is-long-enough",
		RefreshSecret:          "api-test-refresh-secret-that-is-long-enough",
		Issuer:                 "crm-test",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: time.Hour,
		MaxRefreshCount:        3,
	})
	blacklist := auth.NewInMemoryTokenBlacklist()

	reports := appreport.NewReportService(persistence.NewGormSalesReportRepository(db), cache.NewInMemoryReportCache(), time.Minute, log)
	h := Handlers{
		Auth: handler.NewAuthHandler(appidentity.NewAuthService(users, jwtService, blacklist, log)),
		Accounts: handler.NewAccountHandler(
			appcrm.NewAccountService(accounts, leads, users, log),
			appcrm.NewLeadService(leads, accounts, nil, log),
			appcrm.NewNoteService(notes, accounts, log),
		),
		Leads:   handler.NewLeadHandler(appcrm.NewLeadService(leads, accounts, nil, log)),
		Notes:   handler.NewNoteHandler(appcrm.NewNoteService(notes, accounts, log)),
		Sales:   handler.NewSaleHandler(appcrm.NewSaleService(sales)),
		Reports: handler.NewReportHandler(reports, nil),
		Users:   handler.NewUserHandler(appidentity.NewUserService(users, teams, blacklist, time.Hour, log)),
		Teams:   handler.NewTeamHandler(appidentity.NewTeamService(teams, log)),
		Outbox:  handler.NewOutboxHandler(appevent.NewOutboxService(event.NewGormOutboxRepository(db), log)),
	}

	enforcer, err := middleware.NewRouteEnforcer(access.Policies())
	require.NoError(t, err)
	engine, err := NewEngine(EngineConfig{Logger: log})
	require.NoError(t, err)

	jwt := middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
		JWTService:     jwtService,
		TokenBlacklist: blacklist,
		Logger:         log,
	})
	r := NewRouter(engine)
	RegisterAPI(r, h, Guards{
		Session:      SessionChain(jwt, false),
		Perms:        middleware.NewPermissions(middleware.PermissionConfig{Enforcer: enforcer, Logger: log}),
		LoginLimiter: middleware.NewRateLimiter(600, 100),
	})
	r.Setup()

	f := &apiFixture{engine: engine}
	f.team, err = identity.NewTeam("Enterprise", "")
	require.NoError(t, err)
	require.NoError(t, teams.Create(ctx, f.team))
	other, err := identity.NewTeam("Mid-market", "")
	require.NoError(t, err)
	require.NoError(t, teams.Create(ctx, other))

	seed := func(email string, role access.Role, team *uuid.UUID) *identity.User {
		u, err := identity.NewUser("Test", "User", email, fixturePassword, role)
		require.NoError(t, err)
		require.NoError(t, u.AssignRole(role, team))
		require.NoError(t, users.Create(ctx, u))
		return u
	}
	f.admin = seed("admin@example.com", access.RoleAdmin, nil)
	f.manager = seed("manager@example.com", access.RoleManager, &f.team.ID)
	f.seller = seed("seller@example.com", access.RoleSalesperson, &f.team.ID)
	f.rival = seed("rival@example.com", access.RoleSalesperson, &other.ID)
	return f
}

func (f *apiFixture) login(t *testing.T, u *identity.User) loginData {
	t.Helper()
	w := testutil.Do(t, f.engine, http.MethodPost, "/api/v1/auth/login",
		map[string]string{"email": u.Email, "password": fixturePassword}, "")
	return testutil.AssertSuccess[loginData](t, w, http.StatusOK)
}

func (f *apiFixture) token(t *testing.T, u *identity.User) string {
	t.Helper()
	return f.login(t, u).Tokens.AccessToken
}

func (f *apiFixture) createAccount(t *testing.T, token, email string) appcrm.AccountDTO {
	t.Helper()
	w := testutil.Do(t, f.engine, http.MethodPost, "/api/v1/accounts", map[string]any{
		"first_name": "Ada",
		"last_name":  "Lovelace",
		"email":      email,
	}, token)
	return testutil.AssertSuccess[appcrm.AccountDTO](t, w, http.StatusCreated)
}

func (f *apiFixture) createLead(t *testing.T, token string, accountID uuid.UUID) appcrm.LeadDTO {
	t.Helper()
	w := testutil.Do(t, f.engine, http.MethodPost, "/api/v1/leads", map[string]any{
		"account_id":      accountID,
		"description":     "Annual licence",
		"estimated_value": "1500.00",
		"probability":     40,
	}, token)
	return testutil.AssertSuccess[appcrm.LeadDTO](t, w, http.StatusCreated)
}

func TestAPI_Auth(t *testing.T) {
	f := newAPIFixture(t)

	t.Run("login returns tokens and profile", func(t *testing.T) {
		data := f.login(t, f.seller)
		assert.NotEmpty(t, data.Tokens.AccessToken)
		assert.NotEmpty(t, data.Tokens.RefreshToken)
		assert.Equal(t, "SALESPERSON", data.User.Role)
		assert.Equal(t, f.seller.ID, data.User.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		w := testutil.Do(t, f.engine, http.MethodPost, "/api/v1/auth/login",
			map[string]string{"email": f.seller.Email, "password": "Wrong0ne"}, "")
		testutil.AssertError(t, w, http.StatusUnauthorized, dto.ErrCodeInvalidCredentials)
	})

	t.Run("missing fields", func(t *testing.T) {
		w := testutil.Do(t, f.engine, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "nope"}, "")
		testutil.AssertError(t, w, http.StatusBadRequest, dto.ErrCodeValidation)
	})

	t.Run("me requires a token", func(t *testing.T) {
		w := testutil.Do(t, f.engine, http.MethodGet, "/api/v1/auth/me", nil, "")
		testutil.AssertError(t, w, http.StatusUnauthorized, dto.ErrCodeTokenInvalid)
	})

	t.Run("refresh issues a new pair", func(t *testing.T) {
		data := f.login(t, f.seller)
		w := testutil.Do(t, f.engine, http.MethodPost, "/api/v1/auth/refresh",
			map[string]string{"refresh_token": data.Tokens.RefreshToken}, "")
		refreshed := testutil.AssertSuccess[loginData](t, w, http.StatusOK)
		assert.NotEmpty(t, refreshed.Tokens.AccessToken)
	})

	t.Run("logout revokes the access token", func(t *testing.T) {
		token := f.token(t, f.seller)
		w := testutil.Do(t, f.engine, http.MethodGet, "/api/v1/auth/me", nil, token)
		me := testutil.AssertSuccess[appidentity.UserDTO](t, w, http.StatusOK)
		assert.Equal(t, f.seller.Email, me.Email)

		w = testutil.Do(t, f.engine, http.MethodPost, "/api/v1/auth/logout", nil, token)
		testutil.AssertSuccess[handler.MessageData](t, w, http.StatusOK)

		w = testutil.Do(t, f.engine, http.MethodGet, "/api/v1/auth/me", nil, token)
		testutil.AssertError(t, w, http.StatusUnauthorized, dto.ErrCodeTokenRevoked)
	})
}

func TestAPI_AccountScope(t *testing.T) {
	f := newAPIFixture(t)
	seller := f.token(t, f.seller)
	rival := f.token(t, f.rival)
	manager := f.token(t, f.manager)

	account := f.createAccount(t, seller, "ada@example.com")
	assert.Equal(t, f.seller.ID, account.OwnerID)
	path := "/api/v1/accounts/" + account.ID.String()

	t.Run("owner reads it", func(t *testing.T) {
		w := testutil.Do(t, f.engine, http.MethodGet, path, nil, seller)
		got := testutil.AssertSuccess[appcrm.AccountDTO](t, w, http.StatusOK)
		assert.Equal(t, "ada@example.com", got.Email)
	})

	t.Run("team manager reads it", func(t *testing.T) {
		w := testutil.Do(t, f.engine, http.MethodGet, path, nil, manager)
		testutil.AssertSuccess[appcrm.AccountDTO](t, w, http.StatusOK)
	})

	t.Run("other team gets not found", func(t *testing.T) {
		w := testutil.Do(t, f.engine, http.MethodGet, path, nil, rival)
		testutil.AssertError(t, w, http.StatusNotFound, dto.ErrCodeNotFound)
	})

	t.Run("my clients", func(t *testing.T) {
		w := testutil.Do(t, f.engine, http.MethodGet, "/api/v1/accounts/my", nil, seller)
		mine := testutil.AssertSuccess[[]appcrm.AccountDTO](t, w, http.StatusOK)
		require.Len(t, mine, 1)

		w = testutil.Do(t, f.engine, http.MethodGet, "/api/v1/accounts/my", nil, rival)
		assert.Empty(t, testutil.AssertSuccess[[]appcrm.AccountDTO](t, w, http.StatusOK))
	})

	t.Run("stale version conflicts", func(t *testing.T) {
		body := map[string]any{"first_name": "Ada", "last_name": "King", "email": "ada@example.com", "version": account.Version}
		w := testutil.Do(t, f.engine, http.MethodPut, path, body, seller)
		updated := testutil.AssertSuccess[appcrm.AccountDTO](t, w, http.StatusOK)
		assert.Equal(t, "King", updated.LastName)

		w = testutil.Do(t, f.engine, http.MethodPut, path, body, seller)
		testutil.AssertError(t, w, http.StatusConflict, dto.ErrCodeConcurrencyConflict)
	})

	t.Run("invalid body", func(t *testing.T) {
		w := testutil.Do(t, f.engine, http.MethodPost, "/api/v1/accounts",
			map[string]any{"first_name": "A", "last_name": "B", "email": "not-an-email"}, seller)
		testutil.AssertError(t, w, http.StatusBadRequest, dto.ErrCodeValidation)
	})

	t.Run("malformed id", func(t *testing.T) {
		w := testutil.Do(t, f.engine, http.MethodGet, "/api/v1/accounts/42", nil, seller)
		testutil.AssertError(t, w, http.StatusBadRequest, dto.ErrCodeValidation)
	})
}

func TestAPI_LeadLifecycle(t *testing.T) {
	f := newAPIFixture(t)
	seller := f.token(t, f.seller)
	account := f.createAccount(t, seller, "grace@example.com")
	lead := f.createLead(t, seller, account.ID)
	assert.Equal(t, "NEW", lead.Status)

	status := func(t *testing.T, target string) *httptest.ResponseRecorder {
		return testutil.Do(t, f.engine, http.MethodPost, "/api/v1/leads/"+lead.ID.String()+"/status",
			map[string]string{"status": target}, seller)
	}

	w := status(t, "PROPOSAL")
	assert.Equal(t, "PROPOSAL", testutil.AssertSuccess[appcrm.LeadDTO](t, w, http.StatusOK).Status)

	w = status(t, "PROPOSAL")
	testutil.AssertError(t, w, http.StatusUnprocessableEntity, dto.ErrCodeInvalidTransition)

	w = status(t, "CLOSED_WON")
	won := testutil.AssertSuccess[appcrm.LeadDTO](t, w, http.StatusOK)
	assert.Equal(t, "CLOSED_WON", won.Status)
	require.NotNil(t, won.SaleID)

	w = status(t, "NEGOTIATION")
	testutil.AssertError(t, w, http.StatusUnprocessableEntity, dto.ErrCodeInvalidTransition)

	w = testutil.Do(t, f.engine, http.MethodGet, "/api/v1/sales", nil, seller)
	sales := testutil.AssertSuccess[[]appcrm.SaleDTO](t, w, http.StatusOK)
	require.Len(t, sales, 1)
	assert.Equal(t, lead.ID, sales[0].LeadID)
	assert.True(t, decimal.NewFromInt(1500).Equal(sales[0].Amount), "amount %s", sales[0].Amount)

	w = testutil.Do(t, f.engine, http.MethodGet, "/api/v1/accounts/"+account.ID.String()+"/leads", nil, seller)
	assert.Len(t, testutil.AssertSuccess[[]appcrm.LeadDTO](t, w, http.StatusOK), 1)

	w = testutil.Do(t, f.engine, http.MethodDelete, "/api/v1/leads/"+lead.ID.String(), nil, seller)
	testutil.AssertError(t, w, http.StatusUnprocessableEntity, dto.ErrCodeInvalidTransition)
}

func TestAPI_Notes(t *testing.T) {
	f := newAPIFixture(t)
	seller := f.token(t, f.seller)
	account := f.createAccount(t, seller, "linus@example.com")

	w := testutil.Do(t, f.engine, http.MethodPost, "/api/v1/notes", map[string]any{
		"account_id": account.ID,
		"content":    "Called about renewal",
		"type":       "PHONE_CALL",
	}, seller)
	note := testutil.AssertSuccess[appcrm.NoteDTO](t, w, http.StatusCreated)
	assert.Equal(t, f.seller.ID, note.AuthorID)

	w = testutil.Do(t, f.engine, http.MethodGet, "/api/v1/accounts/"+account.ID.String()+"/notes", nil, seller)
	assert.Len(t, testutil.AssertSuccess[[]appcrm.NoteDTO](t, w, http.StatusOK), 1)

	w = testutil.Do(t, f.engine, http.MethodDelete, "/api/v1/notes/"+note.ID.String(), nil, f.token(t, f.rival))
	testutil.AssertError(t, w, http.StatusNotFound, dto.ErrCodeNotFound)

	w = testutil.Do(t, f.engine, http.MethodDelete, "/api/v1/notes/"+note.ID.String(), nil, seller)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestAPI_RouteGuards(t *testing.T) {
	f := newAPIFixture(t)
	seller := f.token(t, f.seller)

	for _, path := range []string{"/api/v1/users", "/api/v1/teams", "/api/v1/outbox/dead", "/api/v1/reports/salespeople?year=2026&month=1"} {
		w := testutil.Do(t, f.engine, http.MethodGet, path, nil, seller)
		testutil.AssertError(t, w, http.StatusForbidden, dto.ErrCodeForbidden)
	}

	w := testutil.Do(t, f.engine, http.MethodGet, "/api/v1/teams", nil, f.token(t, f.manager))
	teams := testutil.AssertSuccess[[]appidentity.TeamDTO](t, w, http.StatusOK)
	assert.Len(t, teams, 2)

	w = testutil.Do(t, f.engine, http.MethodPost, "/api/v1/teams", map[string]string{"name": "SMB"}, f.token(t, f.manager))
	testutil.AssertError(t, w, http.StatusForbidden, dto.ErrCodeForbidden)
}

func TestAPI_UserAdministration(t *testing.T) {
	f := newAPIFixture(t)
	admin := f.token(t, f.admin)

	w := testutil.Do(t, f.engine, http.MethodPost, "/api/v1/users", map[string]any{
		"first_name": "New",
		"last_name":  "Hire",
		"email":      "hire@example.com",
		"password":   "Welcome123",
		"role":       "SALESPERSON",
		"team_id":    f.team.ID,
	}, admin)
	created := testutil.AssertSuccess[appidentity.UserDTO](t, w, http.StatusCreated)
	assert.True(t, created.Active)

	w = testutil.Do(t, f.engine, http.MethodPost, "/api/v1/users", map[string]any{
		"first_name": "Dup", "last_name": "Licate", "email": "hire@example.com", "password": "Welcome123", "role": "SALESPERSON",
	}, admin)
	testutil.AssertError(t, w, http.StatusConflict, dto.ErrCodeAlreadyExists)

	w = testutil.Do(t, f.engine, http.MethodGet, "/api/v1/users?role=SALESPERSON&team_id="+f.team.ID.String(), nil, admin)
	listed := testutil.AssertSuccess[[]appidentity.UserDTO](t, w, http.StatusOK)
	assert.Len(t, listed, 2)

	sellerToken := f.token(t, f.seller)
	w = testutil.Do(t, f.engine, http.MethodPost, "/api/v1/users/"+f.seller.ID.String()+"/deactivate", nil, admin)
	assert.False(t, testutil.AssertSuccess[appidentity.UserDTO](t, w, http.StatusOK).Active)

	w = testutil.Do(t, f.engine, http.MethodGet, "/api/v1/users/me", nil, sellerToken)
	testutil.AssertError(t, w, http.StatusUnauthorized, dto.ErrCodeTokenRevoked)

	w = testutil.Do(t, f.engine, http.MethodPost, "/api/v1/auth/login",
		map[string]string{"email": f.seller.Email, "password": fixturePassword}, "")
	testutil.AssertError(t, w, http.StatusUnauthorized, dto.ErrCodeAccountDeactivated)

	w = testutil.Do(t, f.engine, http.MethodPost, "/api/v1/users/"+f.seller.ID.String()+"/deactivate", nil, admin)
	testutil.AssertError(t, w, http.StatusConflict, dto.ErrCodeUserState)
}

func TestAPI_ChangePassword(t *testing.T) {
	f := newAPIFixture(t)
	token := f.token(t, f.manager)

	w := testutil.Do(t, f.engine, http.MethodPut, "/api/v1/users/me/password",
		map[string]string{"old_password": "Wrong0ne", "new_password": "Another123"}, token)
	testutil.AssertError(t, w, http.StatusBadRequest, dto.ErrCodeInvalidPassword)

	w = testutil.Do(t, f.engine, http.MethodPut, "/api/v1/users/me/password",
		map[string]string{"old_password": fixturePassword, "new_password": "Another123"}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = testutil.Do(t, f.engine, http.MethodPost, "/api/v1/auth/login",
		map[string]string{"email": f.manager.Email, "password": "Another123"}, "")
	testutil.AssertSuccess[loginData](t, w, http.StatusOK)
}

func TestAPI_Reports(t *testing.T) {
	f := newAPIFixture(t)
	manager := f.token(t, f.manager)

	w := testutil.Do(t, f.engine, http.MethodGet, "/api/v1/reports/salespeople?year=2026&month=13", nil, manager)
	testutil.AssertError(t, w, http.StatusBadRequest, dto.ErrCodeValidation)

	w = testutil.Do(t, f.engine, http.MethodGet, "/api/v1/reports/salespeople/export?year=2026&month=3", nil, manager)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/csv"))
	assert.Equal(t, `attachment; filename="salespeople-2026-03.csv"`, w.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "rank,salesperson_id"))

	w = testutil.Do(t, f.engine, http.MethodPost, "/api/v1/reports/archive?year=2026&month=3", nil, manager)
	testutil.AssertError(t, w, http.StatusForbidden, dto.ErrCodeForbidden)

	w = testutil.Do(t, f.engine, http.MethodPost, "/api/v1/reports/archive?year=2026&month=3", nil, f.token(t, f.admin))
	testutil.AssertError(t, w, http.StatusServiceUnavailable, dto.ErrCodeServiceUnavailable)
}

func TestAPI_OutboxStats(t *testing.T) {
	f := newAPIFixture(t)

	w := testutil.Do(t, f.engine, http.MethodGet, "/api/v1/outbox/stats", nil, f.token(t, f.admin))
	stats := testutil.AssertSuccess[appevent.OutboxStatsDTO](t, w, http.StatusOK)
	assert.Positive(t, stats.Pending, "seeded users leave created events behind")

	w = testutil.Do(t, f.engine, http.MethodGet, "/api/v1/outbox/dead", nil, f.token(t, f.admin))
	assert.Empty(t, testutil.AssertSuccess[[]appevent.OutboxEntryDTO](t, w, http.StatusOK))
}
