package router

import (
	"github.com/crm/backend/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
)

// Handlers groups every handler mounted under the API prefix
type Handlers struct {
	System *handler.SystemHandler
	Auth   *handler.AuthHandler
	User   *handler.UserHandler
	Lead   *handler.LeadHandler
	Client *handler.ClientHandler
	Role   *handler.RoleHandler
}

// Guards are the middleware chains placed in front of API routes
type Guards struct {
	// Authenticate runs before every route except health, login and refresh
	Authenticate []gin.HandlerFunc
	// AdminOnly runs after Authenticate on role administration routes
	AdminOnly gin.HandlerFunc
	// AuthLimit throttles login and refresh; nil disables it
	AuthLimit gin.HandlerFunc
}

// Register adds the CRM API groups to r
func Register(r *Router, h Handlers, g Guards) {
	public := NewDomainGroup("public", "")
	public.GET("/health", h.System.Health)

	var limit []gin.HandlerFunc
	if g.AuthLimit != nil {
		limit = append(limit, g.AuthLimit)
	}
	authGroup := NewDomainGroup("auth", "/auth")
	authGroup.POST("/login", chain(limit, h.Auth.Login)...)
	authGroup.POST("/refresh", chain(limit, h.Auth.RefreshToken)...)
	authGroup.POST("/logout", chain(g.Authenticate, h.Auth.Logout)...)
	authGroup.GET("/me", chain(g.Authenticate, h.Auth.GetCurrentUser)...)

	protected := NewDomainGroup("protected", "").Use(g.Authenticate...)
	protected.GET("/system/info", h.System.GetSystemInfo)

	users := protected.Group("users", "/users")
	users.GET("", h.User.List)
	users.POST("", h.User.Create)
	users.GET("/:id", h.User.GetByID)
	users.PUT("/:id", h.User.Update)
	users.PATCH("/:id", h.User.Patch)
	users.DELETE("/:id", h.User.Delete)
	users.GET("/:id/subordinates", h.User.Subordinates)
	users.GET("/:id/activity", h.User.Activity)

	leads := protected.Group("leads", "/leads")
	leads.GET("", h.Lead.List)
	leads.GET("/stats", h.Lead.Stats)
	leads.POST("", h.Lead.Create)
	leads.GET("/:id", h.Lead.GetByID)
	leads.PUT("/:id", h.Lead.Update)
	leads.PATCH("/:id", h.Lead.Patch)
	leads.DELETE("/:id", h.Lead.Delete)
	leads.GET("/:id/activity", h.Lead.Activity)

	clients := protected.Group("clients", "/clients")
	clients.GET("", h.Client.List)
	clients.POST("", h.Client.Create)
	clients.GET("/:id", h.Client.GetByID)
	clients.PUT("/:id", h.Client.Update)
	clients.DELETE("/:id", h.Client.Delete)
	clients.GET("/:id/activity", h.Client.Activity)

	admin := protected.Group("admin", "").Use(g.AdminOnly)
	admin.GET("/roles", h.Role.List)
	admin.GET("/roles/:id/permissions", h.Role.GetPermissions)
	admin.PUT("/roles/:id/permissions", h.Role.SetPermissions)
	admin.GET("/permissions", h.Role.ListPermissions)
	admin.GET("/components/access", h.Role.ListComponentAccess)
	admin.PUT("/components/access", h.Role.SetComponentAccess)

	r.Register(public, authGroup, protected)
}

// chain copies before so that callers never share a backing array
func chain(before []gin.HandlerFunc, last gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(before)+1)
	out = append(out, before...)
	return append(out, last)
}
