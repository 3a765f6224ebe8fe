package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/nocap-app/nocap-backend/domain"
	"github.com/nocap-app/nocap-backend/entities"
)

type fakeUserRepository struct {
	byEmail map[string]*entities.User
	byID    map[string]*entities.User
}

func newFakeUserRepository() *fakeUserRepository {
	return &fakeUserRepository{
		byEmail: make(map[string]*entities.User),
		byID:    make(map[string]*entities.User),
	}
}

func (f *fakeUserRepository) CreateUser(ctx context.Context, user *entities.User) error {
	f.byEmail[user.Email] = user
	f.byID[user.ID.String()] = user
	return nil
}

func (f *fakeUserRepository) GetUserByID(ctx context.Context, id string) (*entities.User, error) {
	user, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (f *fakeUserRepository) GetUserByEmail(ctx context.Context, email string) (*entities.User, error) {
	user, ok := f.byEmail[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

type fakeJWTService struct{}

func (f *fakeJWTService) GenerateTokenUser(userId string, role string) string {
	return "token-" + userId
}

func (f *fakeJWTService) GetUserIDByToken(token string) (string, string, error) {
	return "", "", domain.ErrTokenInvalid
}

func TestRegisterAndLogin(t *testing.T) {
	repo := newFakeUserRepository()
	service := NewUserService(repo, &fakeJWTService{})

	registered, err := service.Register(context.Background(), domain.RegisterRequest{
		Name:     "Dana",
		Email:    "dana@example.com",
		Password: "hunter2hunter2",
	})
	require.NoError(t, err)
	assert.Equal(t, "dana@example.com", registered.Email)

	stored := repo.byEmail["dana@example.com"]
	require.NotNil(t, stored)
	assert.NotEqual(t, "hunter2hunter2", stored.Password, "password must be stored hashed")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("hunter2hunter2")))
	assert.Equal(t, domain.RoleUser, stored.Role)

	login, err := service.Login(context.Background(), domain.LoginRequest{
		Email:    "dana@example.com",
		Password: "hunter2hunter2",
	})
	require.NoError(t, err)
	assert.Equal(t, "token-"+stored.ID.String(), login.Token)
	assert.Equal(t, domain.RoleUser, login.Role)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newFakeUserRepository()
	service := NewUserService(repo, &fakeJWTService{})

	_, err := service.Register(context.Background(), domain.RegisterRequest{
		Name: "Dana", Email: "dana@example.com", Password: "hunter2hunter2",
	})
	require.NoError(t, err)

	_, err = service.Register(context.Background(), domain.RegisterRequest{
		Name: "Other", Email: "dana@example.com", Password: "different-pass",
	})
	assert.ErrorIs(t, err, domain.ErrEmailAlreadyExists)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newFakeUserRepository()
	service := NewUserService(repo, &fakeJWTService{})

	_, err := service.Register(context.Background(), domain.RegisterRequest{
		Name: "Dana", Email: "dana@example.com", Password: "hunter2hunter2",
	})
	require.NoError(t, err)

	_, err = service.Login(context.Background(), domain.LoginRequest{
		Email: "dana@example.com", Password: "wrong",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestLoginUnknownEmail(t *testing.T) {
	service := NewUserService(newFakeUserRepository(), &fakeJWTService{})

	_, err := service.Login(context.Background(), domain.LoginRequest{
		Email: "nobody@example.com", Password: "whatever",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestMe(t *testing.T) {
	repo := newFakeUserRepository()
	service := NewUserService(repo, &fakeJWTService{})

	registered, err := service.Register(context.Background(), domain.RegisterRequest{
		Name: "Dana", Email: "dana@example.com", Password: "hunter2hunter2",
	})
	require.NoError(t, err)

	me, err := service.Me(context.Background(), registered.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dana", me.Name)
	assert.Equal(t, domain.RoleUser, me.Role)

	_, err = service.Me(context.Background(), "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
