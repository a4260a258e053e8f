package router

import (
	"github.com/crm/backend/internal/domain/access"
	"github.com/crm/backend/internal/interfaces/http/handler"
	"github.com/crm/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// Handlers bundles every API handler. Nil handlers are skipped.
type Handlers struct {
	Auth     *handler.AuthHandler
	Accounts *handler.AccountHandler
	Leads    *handler.LeadHandler
	Notes    *handler.NoteHandler
	Sales    *handler.SaleHandler
	Reports  *handler.ReportHandler
	Users    *handler.UserHandler
	Teams    *handler.TeamHandler
	Outbox   *handler.OutboxHandler
	System   *handler.SystemHandler
}

// Guards are the middleware chains the API groups are protected with.
type Guards struct {
	// Session resolves the caller. It runs first on every protected route.
	Session []gin.HandlerFunc
	Perms   *middleware.Permissions
	// LoginLimiter throttles login and refresh per client IP.
	LoginLimiter *middleware.RateLimiter
}

// RegisterAPI adds the CRM resource groups to r.
func RegisterAPI(r *Router, h Handlers, g Guards) {
	need := g.Perms.Require
	authed := g.Perms.Authenticated()

	if h.Auth != nil {
		auth := NewDomainGroup("auth", "/auth")
		throttle := middleware.RateLimit(g.LoginLimiter)
		auth.POST("/login", throttle, h.Auth.Login)
		auth.POST("/refresh", throttle, h.Auth.Refresh)
		auth.Group("session", "").
			Use(g.Session...).
			POST("/logout", authed, h.Auth.Logout).
			GET("/me", authed, h.Auth.Me)
		r.Register(auth)
	}

	if h.Accounts != nil {
		r.Register(NewDomainGroup("accounts", "/accounts").
			Use(g.Session...).
			GET("", need(access.KindAccount, access.ActionReadList), h.Accounts.List).
			GET("/my", need(access.KindMyClients, access.ActionReadList), h.Accounts.MyClients).
			POST("", need(access.KindAccount, access.ActionCreate), h.Accounts.Create).
			GET("/:id", need(access.KindAccount, access.ActionReadOne), h.Accounts.Get).
			PUT("/:id", need(access.KindAccount, access.ActionUpdate), h.Accounts.Update).
			DELETE("/:id", need(access.KindAccount, access.ActionDelete), h.Accounts.Delete).
			GET("/:id/leads", need(access.KindLead, access.ActionReadList), h.Accounts.Leads).
			GET("/:id/notes", need(access.KindNote, access.ActionReadList), h.Accounts.Notes))
	}

	if h.Leads != nil {
		r.Register(NewDomainGroup("leads", "/leads").
			Use(g.Session...).
			GET("", need(access.KindLead, access.ActionReadList), h.Leads.List).
			POST("", need(access.KindLead, access.ActionCreate), h.Leads.Create).
			GET("/:id", need(access.KindLead, access.ActionReadOne), h.Leads.Get).
			PUT("/:id", need(access.KindLead, access.ActionUpdate), h.Leads.Update).
			POST("/:id/status", need(access.KindLead, access.ActionStatusTransition), h.Leads.ChangeStatus).
			DELETE("/:id", need(access.KindLead, access.ActionDelete), h.Leads.Delete))
	}

	if h.Notes != nil {
		r.Register(NewDomainGroup("notes", "/notes").
			Use(g.Session...).
			POST("", need(access.KindNote, access.ActionCreate), h.Notes.Create).
			PUT("/:id", need(access.KindNote, access.ActionUpdate), h.Notes.Update).
			DELETE("/:id", need(access.KindNote, access.ActionDelete), h.Notes.Delete))
	}

	if h.Sales != nil {
		r.Register(NewDomainGroup("sales", "/sales").
			Use(g.Session...).
			GET("", need(access.KindSale, access.ActionReadList), h.Sales.List).
			GET("/:id", need(access.KindSale, access.ActionReadOne), h.Sales.Get))
	}

	if h.Reports != nil {
		read := need(access.KindReport, access.ActionReadList)
		r.Register(NewDomainGroup("reports", "/reports").
			Use(g.Session...).
			GET("/salespeople", read, h.Reports.Salespeople).
			GET("/salespeople/export", read, h.Reports.ExportSalespeople).
			GET("/teams", read, h.Reports.Teams).
			GET("/teams/export", read, h.Reports.ExportTeams).
			POST("/archive", need(access.KindReport, access.ActionCreate), h.Reports.Archive))
	}

	if h.Users != nil {
		r.Register(NewDomainGroup("users", "/users").
			Use(g.Session...).
			GET("/me", authed, h.Users.Me).
			PUT("/me/password", authed, h.Users.ChangePassword).
			GET("", need(access.KindUser, access.ActionReadList), h.Users.List).
			POST("", need(access.KindUser, access.ActionCreate), h.Users.Create).
			GET("/:id", need(access.KindUser, access.ActionReadOne), h.Users.GetByID).
			PUT("/:id", need(access.KindUser, access.ActionUpdate), h.Users.Update).
			DELETE("/:id", need(access.KindUser, access.ActionDelete), h.Users.Delete).
			POST("/:id/activate", need(access.KindUser, access.ActionUpdate), h.Users.Activate).
			POST("/:id/deactivate", need(access.KindUser, access.ActionUpdate), h.Users.Deactivate))
	}

	if h.Teams != nil {
		r.Register(NewDomainGroup("teams", "/teams").
			Use(g.Session...).
			GET("", need(access.KindTeam, access.ActionReadList), h.Teams.List).
			POST("", need(access.KindTeam, access.ActionCreate), h.Teams.Create).
			PUT("/:id", need(access.KindTeam, access.ActionUpdate), h.Teams.Update).
			DELETE("/:id", need(access.KindTeam, access.ActionDelete), h.Teams.Delete))
	}

	if h.Outbox != nil {
		r.Register(NewDomainGroup("outbox", "/outbox").
			Use(g.Session...).
			GET("/dead", need(access.KindOutbox, access.ActionReadList), h.Outbox.GetDeadLetterEntries).
			GET("/stats", need(access.KindOutbox, access.ActionReadList), h.Outbox.GetStats).
			POST("/retry-all", need(access.KindOutbox, access.ActionUpdate), h.Outbox.RetryAllDeadEntries).
			GET("/:id", need(access.KindOutbox, access.ActionReadOne), h.Outbox.GetEntry).
			POST("/:id/retry", need(access.KindOutbox, access.ActionUpdate), h.Outbox.RetryDeadEntry))
	}

	if h.System != nil {
		r.Register(NewDomainGroup("system", "/system").
			GET("/info", h.System.GetSystemInfo).
			GET("/ping", h.System.Ping))
	}
}
