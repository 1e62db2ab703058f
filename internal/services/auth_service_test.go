package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateUsername(t *testing.T) {
	assert.NoError(t, validateUsername("ada_lovelace"))
	assert.NoError(t, validateUsername("abc"))

	assert.Error(t, validateUsername("ab"))
	assert.Error(t, validateUsername("has space"))
	assert.Error(t, validateUsername("dot.name"))
	assert.Error(t, validateUsername(""))
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, validateEmail("ada@example.com"))
	assert.NoError(t, validateEmail("first.last@sub.example.org"))

	assert.Error(t, validateEmail("not-an-email"))
	assert.Error(t, validateEmail("missing@tld"))
	assert.Error(t, validateEmail("@example.com"))
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, validatePassword("secret1234"))

	assert.Error(t, validatePassword("short1"))
	assert.Error(t, validatePassword("onlyletters"))
	assert.Error(t, validatePassword("1234567890"))
}

func TestValidationErrorsCarryField(t *testing.T) {
	err := validatePassword("short")
	assert.True(t, IsValidation(err))

	ve, ok := err.(*ValidationError)
	assert.True(t, ok)
	assert.Equal(t, "password", ve.Field)
	assert.NotEmpty(t, ve.Message)
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 1, totalPages(0, 5))
	assert.Equal(t, 1, totalPages(5, 5))
	assert.Equal(t, 2, totalPages(6, 5))
	assert.Equal(t, 3, totalPages(11, 5))
}
