package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"user-crud-service/internal/usecase/user"
	apperrors "user-crud-service/pkg/errors"
	"user-crud-service/pkg/logger"
)

// Error codes returned in ErrorResponse.Error
const (
	CodeValidation    = "validation_error"
	CodeInvalidID     = "invalid_id"
	CodeNotFound      = "not_found"
	CodeAlreadyExists = "already_exists"
	CodeInternal      = apperrors.CodeInternal
)

// UserHandler handles HTTP requests for user operations
type UserHandler struct {
	uc  user.Service
	log *zap.Logger
}

// NewUserHandler creates a new UserHandler instance
func NewUserHandler(uc user.Service, log *zap.Logger) *UserHandler {
	return &UserHandler{
		uc:  uc,
		log: log,
	}
}

// CreateUserRequest represents the HTTP request body for creating a user
type CreateUserRequest struct {
	Name  string `json:"name" binding:"required,max=255"`
	Email string `json:"email" binding:"required,email,max=255"`
}

// UpdateUserRequest represents the HTTP request body for a partial update.
// Absent and null fields are left unchanged.
type UpdateUserRequest struct {
	Name  *string `json:"name" binding:"omitnil,min=1,max=255"`
	Email *string `json:"email" binding:"omitnil,email,max=255"`
}

// ListUsersQuery represents the query string of GET /users/
type ListUsersQuery struct {
	Limit          *int   `form:"limit" binding:"omitnil,min=1,max=100"`
	Offset         *int   `form:"offset" binding:"omitnil,min=0"`
	Email          string `form:"email"`
	NameContains   string `form:"name_contains"`
	NameStartsWith string `form:"name_startswith"`
}

// UserResponse represents the HTTP response for user data
type UserResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ListUsersResponse is the paginated envelope returned by GET /users/
type ListUsersResponse struct {
	Total   int64          `json:"total"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
	HasNext bool           `json:"has_next"`
	HasPrev bool           `json:"has_prev"`
	Data    []UserResponse `json:"data"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func toUserResponse(u user.User) UserResponse {
	return UserResponse{ID: u.ID, Name: u.Name, Email: u.Email}
}

// parseID reads the :id path parameter. It writes the 400 response itself
// and reports false when the parameter is not a positive integer.
func (h *UserHandler) parseID(c *gin.Context) (int64, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		h.requestLogger(c).Warn("invalid user id", zap.String("id", idStr))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   CodeInvalidID,
			Message: "User ID must be a positive integer",
		})
		return 0, false
	}
	return id, true
}

func (h *UserHandler) requestLogger(c *gin.Context) *zap.Logger {
	return logger.WithContext(c.Request.Context(), h.log)
}

func (h *UserHandler) bindError(c *gin.Context, err error) {
	h.requestLogger(c).Warn("invalid request", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   CodeValidation,
		Message: err.Error(),
	})
}

// CreateUser handles POST /users/
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	resp, err := h.uc.CreateUser(c.Request.Context(), user.CreateUserRequest{
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		h.handleError(c, err, http.StatusBadRequest)
		return
	}

	c.JSON(http.StatusOK, toUserResponse(resp.User))
}

// GetUser handles GET /users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	resp, err := h.uc.GetUser(c.Request.Context(), user.GetUserRequest{ID: id})
	if err != nil {
		h.handleError(c, err, http.StatusConflict)
		return
	}

	c.JSON(http.StatusOK, toUserResponse(resp.User))
}

// UpdateUser handles PATCH /users/:id
func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	resp, err := h.uc.UpdateUser(c.Request.Context(), user.UpdateUserRequest{
		ID:    id,
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		h.handleError(c, err, http.StatusConflict)
		return
	}

	c.JSON(http.StatusOK, toUserResponse(resp.User))
}

// DeleteUser handles DELETE /users/:id
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	if _, err := h.uc.DeleteUser(c.Request.Context(), user.DeleteUserRequest{ID: id}); err != nil {
		h.handleError(c, err, http.StatusConflict)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListUsers handles GET /users/
func (h *UserHandler) ListUsers(c *gin.Context) {
	var q ListUsersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.bindError(c, err)
		return
	}

	req := user.ListUsersRequest{
		Email:          q.Email,
		NameContains:   q.NameContains,
		NameStartsWith: q.NameStartsWith,
	}
	if q.Limit != nil {
		req.Limit = *q.Limit
	}
	if q.Offset != nil {
		req.Offset = *q.Offset
	}

	resp, err := h.uc.ListUsers(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err, http.StatusConflict)
		return
	}

	out := ListUsersResponse{Data: make([]UserResponse, len(resp.Users))}
	for i, u := range resp.Users {
		out.Data[i] = toUserResponse(u)
	}
	if p := resp.Pagination; p != nil {
		out.Total = p.Total
		out.Limit = p.Limit
		out.Offset = p.Offset
		out.HasNext = p.HasNext
		out.HasPrev = p.HasPrev
	}

	c.JSON(http.StatusOK, out)
}

// handleError converts usecase errors to HTTP responses. conflictStatus is
// the status used for AlreadyExistsError, which differs between create and update.
func (h *UserHandler) handleError(c *gin.Context, err error, conflictStatus int) {
	log := h.requestLogger(c).With(zap.String("route", c.FullPath()))

	var (
		validationErr *apperrors.ValidationError
		notFoundErr   *apperrors.NotFoundError
		existsErr     *apperrors.AlreadyExistsError
	)

	switch {
	case errors.As(err, &validationErr):
		log.Warn("request rejected", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: CodeValidation, Message: validationErr.Error()})
	case errors.As(err, &notFoundErr):
		log.Info("resource not found", zap.Error(err))
		c.JSON(http.StatusNotFound, ErrorResponse{Error: CodeNotFound, Message: notFoundErr.Error()})
	case errors.As(err, &existsErr):
		log.Warn("conflict", zap.Error(err))
		c.JSON(conflictStatus, ErrorResponse{Error: CodeAlreadyExists, Message: existsErr.Error()})
	default:
		log.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: CodeInternal, Message: apperrors.InternalClientMessage})
	}
}
