package api

import (
	"errors"
	"net/http"

	"inkwell/internal/middleware"
	"inkwell/internal/services"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login exchanges credentials for a bearer token.
func (a *API) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := services.Authenticate(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrAccountDisabled) {
			apiError(c, http.StatusForbidden, "account is deactivated")
			return
		}
		apiError(c, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := middleware.GenerateToken(a.cfg.JWTSecret, user)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "could not issue token")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  userJSON(user),
	})
}

type registerRequest struct {
	Username  string `json:"username" binding:"required"`
	Email     string `json:"email" binding:"required"`
	Password  string `json:"password" binding:"required"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (a *API) RegisterUser(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusBadRequest, "username, email and password are required")
		return
	}

	user, err := services.RegisterUser(req.Username, req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrDuplicateUsername), errors.Is(err, services.ErrDuplicateEmail):
			apiError(c, http.StatusConflict, err.Error())
		case services.IsValidation(err):
			apiError(c, http.StatusBadRequest, err.Error())
		default:
			apiError(c, http.StatusInternalServerError, "registration failed")
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": userJSON(user)})
}
