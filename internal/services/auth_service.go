package services

import (
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode"

	"inkwell/internal/db"
	"inkwell/internal/models"
	"inkwell/internal/utils"

	"gorm.io/gorm"
)

var (
	usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]{3,80}$`)
	emailRe    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

const resetTokenLifetime = time.Hour

func validateUsername(username string) error {
	if !usernameRe.MatchString(username) {
		return validationErr("username", "Username must be 3-80 characters of letters, digits and underscores.")
	}
	return nil
}

func validateEmail(email string) error {
	if !emailRe.MatchString(email) {
		return validationErr("email", "Please enter a valid email address.")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return validationErr("password", "Password must be at least 8 characters long.")
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return validationErr("password", "Password must contain at least one letter and one digit.")
	}
	return nil
}

// RegisterUser validates input, guards against duplicates and creates the
// account with the default role and a fresh confirmation token.
func RegisterUser(username, email, password, firstName, lastName string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	var count int64
	db.DB.Model(&models.User{}).Where("username = ?", username).Count(&count)
	if count > 0 {
		return nil, ErrDuplicateUsername
	}
	db.DB.Model(&models.User{}).Where("email = ?", email).Count(&count)
	if count > 0 {
		return nil, ErrDuplicateEmail
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:          username,
		Email:             email,
		PasswordHash:      hash,
		FirstName:         firstName,
		LastName:          lastName,
		ConfirmationToken: utils.RandomToken(32),
		LastSeen:          time.Now(),
		IsActive:          true,
	}
	if role, err := db.DefaultRole(); err == nil {
		user.RoleID = &role.ID
		user.Role = role
	}

	if err := db.DB.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate checks credentials against the username or email and returns
// the user. Disabled accounts cannot log in.
func Authenticate(usernameOrEmail, password string) (*models.User, error) {
	ident := strings.TrimSpace(usernameOrEmail)

	var user models.User
	err := db.DB.Preload("Role.Permissions").
		Where("username = ? OR email = ?", ident, strings.ToLower(ident)).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Burn a hash comparison anyway so the timing does not reveal
		// whether the account exists.
		utils.CheckPasswordHash(password, "$2a$10$invalidinvalidinvalidinvalidinvalidinvalidinvalidinva")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !utils.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	db.DB.Model(&user).UpdateColumn("last_seen", time.Now())
	return &user, nil
}

// ChangePassword verifies the current password before setting a new one.
func ChangePassword(user *models.User, currentPassword, newPassword string) error {
	if !utils.CheckPasswordHash(currentPassword, user.PasswordHash) {
		return ErrInvalidCredentials
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return db.DB.Model(user).Update("password_hash", hash).Error
}

// RequestPasswordReset issues a reset token for the account behind email.
// The caller decides what to reveal to the requester.
func RequestPasswordReset(email string) (*models.User, string, error) {
	var user models.User
	err := db.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", err
	}

	token := utils.RandomToken(32)
	expires := time.Now().Add(resetTokenLifetime)
	err = db.DB.Model(&user).Updates(map[string]interface{}{
		"reset_token":   token,
		"reset_expires": expires,
	}).Error
	if err != nil {
		return nil, "", err
	}
	return &user, token, nil
}

// ResetPassword redeems a reset token. Tokens are single-use and expire.
func ResetPassword(token, newPassword string) error {
	if token == "" {
		return ErrTokenInvalid
	}
	var user models.User
	err := db.DB.Where("reset_token = ?", token).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrTokenInvalid
	}
	if err != nil {
		return err
	}
	if user.ResetExpires == nil || time.Now().After(*user.ResetExpires) {
		return ErrTokenInvalid
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return db.DB.Model(&user).Updates(map[string]interface{}{
		"password_hash": hash,
		"reset_token":   "",
		"reset_expires": nil,
	}).Error
}

// ConfirmEmail redeems a confirmation token.
func ConfirmEmail(token string) (*models.User, error) {
	if token == "" {
		return nil, ErrTokenInvalid
	}
	var user models.User
	err := db.DB.Where("confirmation_token = ?", token).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTokenInvalid
	}
	if err != nil {
		return nil, err
	}

	err = db.DB.Model(&user).Updates(map[string]interface{}{
		"email_confirmed":    true,
		"confirmation_token": "",
	}).Error
	if err != nil {
		return nil, err
	}
	user.EmailConfirmed = true
	return &user, nil
}

// RegenerateConfirmation issues a fresh confirmation token for resends.
func RegenerateConfirmation(user *models.User) (string, error) {
	token := utils.RandomToken(32)
	if err := db.DB.Model(user).Update("confirmation_token", token).Error; err != nil {
		return "", err
	}
	return token, nil
}

// UpdateProfile applies profile edits and bumps updated_at.
func UpdateProfile(user *models.User, firstName, lastName, bio, location, website, avatarFilename string) error {
	updates := map[string]interface{}{
		"first_name": firstName,
		"last_name":  lastName,
		"bio":        bio,
		"location":   location,
		"website":    website,
	}
	if avatarFilename != "" {
		updates["avatar_filename"] = avatarFilename
	}
	return db.DB.Model(user).Updates(updates).Error
}
