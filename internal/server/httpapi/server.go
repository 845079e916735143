// Package httpapi exposes the item backend as a JSON REST API on gin.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/and161185/itemsync/internal/service"
)

// Server wires services into HTTP handlers.
type Server struct {
	auth  service.AuthService
	items service.ItemService
	log   *zap.Logger
}

// New constructs the HTTP API with injected services.
func New(auth service.AuthService, items service.ItemService, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{auth: auth, items: items, log: log}
}

// Handler builds the gin engine with every route.
func (s *Server) Handler() *gin.Engine {
	r := gin.New()
	r.Use(Recover(s.log), Logging(s.log))
	r.NoRoute(func(c *gin.Context) {
		writeMessage(c, http.StatusNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		writeMessage(c, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.HandleMethodNotAllowed = true

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	auth := r.Group("/auth")
	auth.POST("/signup", s.signUp)
	auth.POST("/login", s.login)
	auth.POST("/refresh", s.refresh)
	auth.GET("/logout", s.requireAuth, s.logout)

	me := r.Group("/users/me", s.requireAuth)
	me.GET("", s.me)
	me.PUT("", s.updateMe)
	me.DELETE("", s.deleteMe)

	items := r.Group("/items", s.requireAuth)
	items.GET("", s.listItems)
	items.POST("", s.createItem)
	items.GET("/:id", s.getItem)
	items.PUT("/:id", s.updateItem)
	items.DELETE("/:id", s.deleteItem)

	return r
}
