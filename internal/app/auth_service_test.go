package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"framecoach/internal/model"
	"framecoach/internal/repository"
)

func newTestAuthService(t *testing.T) *AuthService {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "auth.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}))
	return NewAuthService(repository.NewUserRepository(db), "test-secret", time.Hour)
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestAuthService(t)

	result, err := svc.Register(RegisterInput{
		Username:   "ansel",
		Email:      "Ansel@Example.com",
		Password:   "password123",
		SkillLevel: "Intermediate",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, "ansel@example.com", result.User.Email)
	assert.Equal(t, "intermediate", result.User.SkillLevel)
	assert.NotEqual(t, "password123", result.User.PasswordHash)

	login, err := svc.Login(LoginInput{Username: "ansel", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, login.User.ID)

	_, err = svc.Login(LoginInput{Username: "ansel", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredential)

	_, err = svc.Login(LoginInput{Username: "nobody", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestAuthService(t)

	_, err := svc.Register(RegisterInput{Username: "u", Email: "e@x.com", Password: "short"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Register(RegisterInput{Username: "u", Email: "e@x.com", Password: "password123", SkillLevel: "wizard"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRegisterDefaultsSkillLevel(t *testing.T) {
	svc := newTestAuthService(t)

	result, err := svc.Register(RegisterInput{
		Username: "dorothea",
		Email:    "d@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	assert.Equal(t, "beginner", result.User.SkillLevel)
}

func TestRegisterDuplicates(t *testing.T) {
	svc := newTestAuthService(t)

	_, err := svc.Register(RegisterInput{Username: "ansel", Email: "a@x.com", Password: "password123"})
	require.NoError(t, err)

	_, err = svc.Register(RegisterInput{Username: "ansel", Email: "b@x.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrUsernameExists)

	_, err = svc.Register(RegisterInput{Username: "other", Email: "a@x.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrEmailExists)
}
