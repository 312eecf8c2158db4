package handler

import (
	"context"

	appdir "github.com/freightflow/backend/internal/application/directory"
	domaindir "github.com/freightflow/backend/internal/domain/directory"
	"github.com/freightflow/backend/internal/interfaces/http/dto"
	"github.com/freightflow/backend/internal/interfaces/http/middleware"
	"github.com/freightflow/backend/internal/session"
	"github.com/gin-gonic/gin"
)

// DirectoryHandler serves the CRUD for one configuration entity type.
// One instance per entity, all sharing the same route shape.
type DirectoryHandler[T appdir.Entity] struct {
	BaseHandler
	svc       *appdir.Service[T]
	newEntity func() T
}

// NewDirectoryHandler creates a handler for one entity type. newEntity
// allocates the zero value the request body binds into.
func NewDirectoryHandler[T appdir.Entity](svc *appdir.Service[T], newEntity func() T) *DirectoryHandler[T] {
	return &DirectoryHandler[T]{svc: svc, newEntity: newEntity}
}

// Register mounts the CRUD routes on the group.
func (h *DirectoryHandler[T]) Register(g *gin.RouterGroup) {
	g.GET("", h.List)
	g.GET("/:key", h.Get)
	g.POST("", h.Create)
	g.PUT("/:key", h.Update)
	g.DELETE("/:key", h.Delete)
}

// List returns the tenant's records with recomputed counters.
func (h *DirectoryHandler[T]) List(c *gin.Context) {
	listing, err := h.svc.List(c.Request.Context(), middleware.GetSession(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, listing.Items, dto.Meta{
		Total:    listing.Counters.Total,
		Active:   listing.Counters.Active,
		Inactive: listing.Counters.Inactive,
	})
}

// Get returns one record by natural key.
func (h *DirectoryHandler[T]) Get(c *gin.Context) {
	entity, err := h.svc.Get(c.Request.Context(), middleware.GetSession(c), c.Param("key"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entity)
}

// Create inserts a new record.
func (h *DirectoryHandler[T]) Create(c *gin.Context) {
	entity := h.newEntity()
	if err := c.ShouldBindJSON(entity); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	if err := h.svc.Create(c.Request.Context(), middleware.GetSession(c), entity); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, entity)
}

// Update replaces an existing record. The key in the path wins over
// whatever the body says.
func (h *DirectoryHandler[T]) Update(c *gin.Context) {
	entity := h.newEntity()
	if err := c.ShouldBindJSON(entity); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	if entity.NaturalKey() != c.Param("key") {
		h.BadRequest(c, "Record key does not match the URL")
		return
	}
	if err := h.svc.Update(c.Request.Context(), middleware.GetSession(c), entity); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entity)
}

// Delete removes one record by natural key.
func (h *DirectoryHandler[T]) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), middleware.GetSession(c), c.Param("key")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// CreateUserRequest is the user insert payload; the plaintext password
// is hashed before it ever reaches the repository.
type CreateUserRequest struct {
	Email    string         `json:"email" binding:"required,email"`
	Name     string         `json:"name" binding:"required"`
	Role     domaindir.Role `json:"role"`
	Active   bool           `json:"active"`
	Password string         `json:"password"`
}

// UserCreator is the slice of the directory aggregate the user route
// needs.
type UserCreator interface {
	CreateUser(ctx context.Context, sess session.Context, user *domaindir.User, password string) error
}

// UserHandler handles the user insert, which carries a password on top
// of the generic CRUD shape.
type UserHandler struct {
	BaseHandler
	users UserCreator
}

// NewUserHandler creates the user handler.
func NewUserHandler(users UserCreator) *UserHandler {
	return &UserHandler{users: users}
}

// Create inserts a user with a hashed password.
// POST /api/v1/directory/users
func (h *UserHandler) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	user := &domaindir.User{
		Email:  req.Email,
		Name:   req.Name,
		Role:   req.Role,
		Active: req.Active,
	}
	if err := h.users.CreateUser(c.Request.Context(), middleware.GetSession(c), user, req.Password); err != nil {
		h.HandleError(c, err)
		return
	}
	user.PasswordHash = ""
	h.Created(c, user)
}
