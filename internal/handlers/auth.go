package handlers

import (
	"errors"
	"net/http"
	"strings"

	"inkwell/internal/middleware"
	"inkwell/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	mail *services.MailService
}

func NewAuthHandler(mail *services.MailService) *AuthHandler {
	return &AuthHandler{mail: mail}
}

func (h *AuthHandler) ShowRegister(c *gin.Context) {
	if middleware.CurrentUser(c) != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}
	Render(c, http.StatusOK, "auth/register.html", nil)
}

func (h *AuthHandler) Register(c *gin.Context) {
	username := c.PostForm("username")
	email := c.PostForm("email")
	password := c.PostForm("password")
	confirm := c.PostForm("password_confirm")

	if password != confirm {
		Render(c, http.StatusBadRequest, "auth/register.html", gin.H{
			"Error":    "Passwords do not match.",
			"Username": username,
			"Email":    email,
		})
		return
	}

	user, err := services.RegisterUser(username, email, password,
		c.PostForm("first_name"), c.PostForm("last_name"))
	if err != nil {
		Render(c, http.StatusBadRequest, "auth/register.html", gin.H{
			"Error":    err.Error(),
			"Username": username,
			"Email":    email,
		})
		return
	}

	h.mail.SendConfirmationEmail(user.Email, user.Username, user.ConfirmationToken)

	flash(c, "success", "Account created. Check your inbox to confirm your email, then log in.")
	c.Redirect(http.StatusFound, "/auth/login")
}

func (h *AuthHandler) ShowLogin(c *gin.Context) {
	if middleware.CurrentUser(c) != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}
	Render(c, http.StatusOK, "auth/login.html", gin.H{"Next": c.Query("next")})
}

func (h *AuthHandler) Login(c *gin.Context) {
	user, err := services.Authenticate(c.PostForm("username"), c.PostForm("password"))
	if err != nil {
		status := http.StatusUnauthorized
		message := "Invalid username or password."
		if errors.Is(err, services.ErrAccountDisabled) {
			status = http.StatusForbidden
			message = "This account has been deactivated."
		}
		Render(c, status, "auth/login.html", gin.H{
			"Error":    message,
			"Username": c.PostForm("username"),
			"Next":     c.PostForm("next"),
		})
		return
	}

	session := sessions.Default(c)
	session.Set("user_id", user.ID)
	if err := session.Save(); err != nil {
		RenderError(c, http.StatusInternalServerError, "Could not start a session.")
		return
	}

	next := c.PostForm("next")
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		next = "/"
	}
	c.Redirect(http.StatusFound, next)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()
	c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) ConfirmEmail(c *gin.Context) {
	user, err := services.ConfirmEmail(c.Param("token"))
	if err != nil {
		flash(c, "danger", "That confirmation link is invalid or was already used.")
		c.Redirect(http.StatusFound, "/")
		return
	}
	flash(c, "success", "Email confirmed. Welcome, "+user.Username+".")
	c.Redirect(http.StatusFound, "/auth/login")
}

func (h *AuthHandler) ResendConfirmation(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.Redirect(http.StatusFound, "/auth/login")
		return
	}
	if user.EmailConfirmed {
		c.Redirect(http.StatusFound, "/")
		return
	}

	token, err := services.RegenerateConfirmation(user)
	if err != nil {
		RenderError(c, http.StatusInternalServerError, "Could not resend the confirmation email.")
		return
	}
	h.mail.SendConfirmationEmail(user.Email, user.Username, token)

	flash(c, "info", "A new confirmation email is on its way.")
	c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) ShowResetRequest(c *gin.Context) {
	Render(c, http.StatusOK, "auth/reset_request.html", nil)
}

func (h *AuthHandler) RequestReset(c *gin.Context) {
	user, token, err := services.RequestPasswordReset(c.PostForm("email"))
	if err == nil {
		h.mail.SendPasswordResetEmail(user.Email, user.Username, token)
	}

	// Same response either way so the form cannot be used to probe for
	// registered addresses.
	flash(c, "info", "If that email is registered, a reset link has been sent.")
	c.Redirect(http.StatusFound, "/auth/login")
}

func (h *AuthHandler) ShowResetForm(c *gin.Context) {
	Render(c, http.StatusOK, "auth/reset_password.html", gin.H{"Token": c.Param("token")})
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	token := c.Param("token")
	password := c.PostForm("password")
	if password != c.PostForm("password_confirm") {
		Render(c, http.StatusBadRequest, "auth/reset_password.html", gin.H{
			"Token": token,
			"Error": "Passwords do not match.",
		})
		return
	}

	if err := services.ResetPassword(token, password); err != nil {
		if errors.Is(err, services.ErrTokenInvalid) {
			flash(c, "danger", "That reset link is invalid or has expired.")
			c.Redirect(http.StatusFound, "/auth/reset-password")
			return
		}
		Render(c, http.StatusBadRequest, "auth/reset_password.html", gin.H{
			"Token": token,
			"Error": err.Error(),
		})
		return
	}

	flash(c, "success", "Password updated. You can log in now.")
	c.Redirect(http.StatusFound, "/auth/login")
}

func (h *AuthHandler) ShowChangePassword(c *gin.Context) {
	Render(c, http.StatusOK, "auth/change_password.html", nil)
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	user := middleware.CurrentUser(c)

	newPassword := c.PostForm("new_password")
	if newPassword != c.PostForm("new_password_confirm") {
		Render(c, http.StatusBadRequest, "auth/change_password.html", gin.H{
			"Error": "New passwords do not match.",
		})
		return
	}

	err := services.ChangePassword(user, c.PostForm("current_password"), newPassword)
	if err != nil {
		message := err.Error()
		if errors.Is(err, services.ErrInvalidCredentials) {
			message = "Current password is incorrect."
		}
		Render(c, http.StatusBadRequest, "auth/change_password.html", gin.H{"Error": message})
		return
	}

	flash(c, "success", "Password changed.")
	c.Redirect(http.StatusFound, "/user/profile/"+uintToString(user.ID))
}
