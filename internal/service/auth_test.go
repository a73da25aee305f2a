package service

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/flicky/go-storefront-api/internal/dto"
	"github.com/flicky/go-storefront-api/internal/model"
	"github.com/flicky/go-storefront-api/internal/repository"
)

type mockUserRepo struct {
	users  map[string]*model.User
	byID   map[int]*model.User
	nextID int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User), byID: make(map[int]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, _ pgx.Tx, user *model.User) error {
	if _, ok := m.users[user.Username]; ok {
		return repository.ErrDuplicate
	}
	m.nextID++
	user.ID = m.nextID
	stored := *user
	m.users[user.Username] = &stored
	m.byID[user.ID] = &stored
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id int) (*model.User, error) {
	return m.byID[id], nil
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	return m.users[username], nil
}

func (m *mockUserRepo) snapshot() func() {
	users := make(map[string]*model.User, len(m.users))
	byID := make(map[int]*model.User, len(m.byID))
	for k, v := range m.users {
		users[k] = v
	}
	for k, v := range m.byID {
		byID[k] = v
	}
	return func() { m.users, m.byID = users, byID }
}

func newTestAuthService() (*AuthService, *mockUserRepo, *mockProfileRepo) {
	users := newMockUserRepo()
	profiles := newMockProfileRepo()
	tx := newMockTxManager(users, profiles)
	return NewAuthService(tx, users, profiles, "test-secret", time.Hour), users, profiles
}

func TestAuthService_Register(t *testing.T) {
	svc, _, profiles := newTestAuthService()

	resp, err := svc.Register(context.Background(), dto.RegisterRequest{
		Username: "alice", Password: "Pa$$w0rd", ConfirmPassword: "Pa$$w0rd",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", resp.Username)
	assert.Equal(t, model.RoleUser, resp.Role)

	profile, ok := profiles.profiles[resp.ID]
	require.True(t, ok, "registration creates the paired profile")
	assert.False(t, profile.HasShippingAddress())
}

func TestAuthService_Register_PasswordMismatch(t *testing.T) {
	svc, users, _ := newTestAuthService()
	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Username: "alice", Password: "one", ConfirmPassword: "two",
	})
	assert.ErrorIs(t, err, ErrPasswordMismatch)
	assert.Empty(t, users.users)
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	svc, users, _ := newTestAuthService()
	users.users["alice"] = &model.User{ID: 1, Username: "alice"}

	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Username: "alice", Password: "pw", ConfirmPassword: "pw",
	})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestAuthService_CreateUser_RollsBackWhenProfileFails(t *testing.T) {
	svc, users, profiles := newTestAuthService()
	profiles.createErr = assert.AnError

	_, err := svc.CreateUser(context.Background(), "admin", "pw", model.RoleAdmin)
	require.Error(t, err)
	assert.Empty(t, users.users, "user insert is rolled back with the profile")
}

func TestAuthService_Login(t *testing.T) {
	svc, users, _ := newTestAuthService()
	hashed, _ := bcrypt.GenerateFromPassword([]byte("Pa$$w0rd"), bcrypt.DefaultCost)
	users.users["alice"] = &model.User{ID: 42, Username: "alice", HashedPassword: string(hashed), Role: model.RoleAdmin}

	resp, err := svc.Login(context.Background(), dto.LoginRequest{Username: "alice", Password: "Pa$$w0rd"})
	require.NoError(t, err)
	assert.Equal(t, 42, resp.User.ID)

	token, err := jwt.Parse(resp.Token, func(*jwt.Token) (any, error) { return []byte("test-secret"), nil })
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, strconv.Itoa(42), claims["sub"])
	assert.Equal(t, "ADMIN", claims["role"])
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	svc, users, _ := newTestAuthService()
	hashed, _ := bcrypt.GenerateFromPassword([]byte("Pa$$w0rd"), bcrypt.DefaultCost)
	users.users["alice"] = &model.User{ID: 1, Username: "alice", HashedPassword: string(hashed)}

	_, err := svc.Login(context.Background(), dto.LoginRequest{Username: "alice", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), dto.LoginRequest{Username: "Alice", Password: "Pa$$w0rd"})
	assert.ErrorIs(t, err, ErrInvalidCredentials, "usernames are case-sensitive")
}
