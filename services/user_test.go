package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"go-storefront/dto"
	"go-storefront/models"
	"go-storefront/utils"
)

const testSecret = "test-secret"

func newTestUserService(repo *mockUserRepo, mailer *fakeWelcomeMailer, allowAdmin bool) *UserService {
	return NewUserService(repo, mailer, UserServiceConfig{
		JWTSecret: testSecret, JWTExpiry: time.Hour, AllowAdminSignup: allowAdmin,
	}, discardLog)
}

func validRegistration() dto.RegisterRequest {
	return dto.RegisterRequest{
		Username: "thabo", Email: "Thabo@Example.com ", Password: "password123",
		Agent: "agent-7", Phone: "011-555-1234", Address: "12 Main Road",
	}
}

func TestUserService_Register(t *testing.T) {
	repo := newMockUserRepo()
	mailer := &fakeWelcomeMailer{}
	svc := newTestUserService(repo, mailer, false)

	user, err := svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)
	assert.Equal(t, "thabo@example.com", user.Email)
	assert.Equal(t, models.RoleCustomer, user.Role)
	assert.Empty(t, user.Password, "password hash must not be returned")
	assert.Equal(t, []string{"thabo@example.com"}, mailer.sent)

	stored := repo.users["thabo@example.com"]
	require.NotNil(t, stored)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("password123")))
}

func TestUserService_Register_Duplicate(t *testing.T) {
	repo := newMockUserRepo()
	repo.add(&models.User{Email: "thabo@example.com"})
	mailer := &fakeWelcomeMailer{}
	svc := newTestUserService(repo, mailer, false)

	_, err := svc.Register(context.Background(), validRegistration())
	assert.ErrorIs(t, err, ErrUserExists)
	assert.Empty(t, mailer.sent)
}

func TestUserService_Register_DuplicateAgent(t *testing.T) {
	repo := newMockUserRepo()
	repo.add(&models.User{Email: "other@example.com", Agent: "agent-7"})
	svc := newTestUserService(repo, &fakeWelcomeMailer{}, false)

	_, err := svc.Register(context.Background(), validRegistration())
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestUserService_Register_EmailFailureIsNotFatal(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestUserService(repo, &fakeWelcomeMailer{err: errors.New("smtp down")}, false)

	user, err := svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)
	assert.False(t, user.ID.IsZero())
	assert.Len(t, repo.byID, 1)
}

func TestUserService_Register_Validation(t *testing.T) {
	svc := newTestUserService(newMockUserRepo(), &fakeWelcomeMailer{}, false)

	req := validRegistration()
	req.Phone = "5551234"
	req.Email = "not-an-email"
	req.Password = "short"

	_, err := svc.Register(context.Background(), req)
	require.ErrorIs(t, err, ErrValidation)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "phone")
	assert.Contains(t, verr.Fields, "email")
	assert.Contains(t, verr.Fields, "password")
}

func TestUserService_Register_PhoneAcceptsSurroundingText(t *testing.T) {
	svc := newTestUserService(newMockUserRepo(), &fakeWelcomeMailer{}, false)
	req := validRegistration()
	req.Phone = "+27 011-555-1234"

	_, err := svc.Register(context.Background(), req)
	assert.NoError(t, err)
}

func TestUserService_Register_AdminRole(t *testing.T) {
	req := validRegistration()
	req.Role = models.RoleAdmin

	svc := newTestUserService(newMockUserRepo(), &fakeWelcomeMailer{}, false)
	_, err := svc.Register(context.Background(), req)
	assert.ErrorIs(t, err, ErrAdminSignupDisabled)

	svc = newTestUserService(newMockUserRepo(), &fakeWelcomeMailer{}, true)
	user, err := svc.Register(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, user.Role)
}

func TestUserService_Register_UnknownRole(t *testing.T) {
	req := validRegistration()
	req.Role = "superuser"

	svc := newTestUserService(newMockUserRepo(), &fakeWelcomeMailer{}, true)
	_, err := svc.Register(context.Background(), req)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUserService_Login(t *testing.T) {
	repo := newMockUserRepo()
	hashed, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	stored := repo.add(&models.User{Email: "thabo@example.com", Password: string(hashed), Role: models.RoleAdmin})
	svc := newTestUserService(repo, &fakeWelcomeMailer{}, false)

	resp, err := svc.Login(context.Background(), dto.LoginRequest{Email: "THABO@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Empty(t, resp.User.Password)

	claims, err := utils.ParseJWT(resp.Token, []byte(testSecret))
	require.NoError(t, err)
	assert.Equal(t, stored.ID.Hex(), claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestUserService_Login_WrongPassword(t *testing.T) {
	repo := newMockUserRepo()
	hashed, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	repo.add(&models.User{Email: "thabo@example.com", Password: string(hashed)})
	svc := newTestUserService(repo, &fakeWelcomeMailer{}, false)

	_, err := svc.Login(context.Background(), dto.LoginRequest{Email: "thabo@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUserService_Login_UnknownEmail(t *testing.T) {
	svc := newTestUserService(newMockUserRepo(), &fakeWelcomeMailer{}, false)

	_, err := svc.Login(context.Background(), dto.LoginRequest{Email: "nobody@example.com", Password: "whatever"})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_GetUser(t *testing.T) {
	repo := newMockUserRepo()
	stored := repo.add(&models.User{Email: "thabo@example.com", Password: "hash"})
	svc := newTestUserService(repo, &fakeWelcomeMailer{}, false)

	user, err := svc.GetUser(context.Background(), stored.ID)
	require.NoError(t, err)
	assert.Equal(t, "thabo@example.com", user.Email)
	assert.Empty(t, user.Password)

	_, err = svc.GetUser(context.Background(), primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrUserNotFound)
}
