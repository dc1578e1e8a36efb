package usecase

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/wholesaleconnect/backend/internal/domain/model"
	repo "github.com/wholesaleconnect/backend/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const defaultAccessTTL = 24 * time.Hour

type UserUsecase struct {
	users     repo.UserRepository
	jwtSecret []byte
	accessTTL time.Duration
	log       *zap.Logger
	now       func() time.Time
}

func NewUserUsecase(users repo.UserRepository, jwtSecret string, accessTTL time.Duration, log *zap.Logger) *UserUsecase {
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &UserUsecase{
		users:     users,
		jwtSecret: []byte(jwtSecret),
		accessTTL: accessTTL,
		log:       log,
		now:       time.Now,
	}
}

type RegisterInput struct {
	Email        string
	Password     string
	Name         string
	Phone        string
	Role         string
	BusinessName string
	GSTNumber    string
	Address      string
}

type LoginInput struct {
	Email    string
	Password string
}

type AccessTokenDTO struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type LoginOutput struct {
	User  model.User     `json:"user"`
	Token AccessTokenDTO `json:"token"`
}

func (u *UserUsecase) Register(ctx context.Context, in RegisterInput) (model.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return model.User{}, NewHTTPError(http.StatusBadRequest, "invalid email")
	}
	if len(in.Password) < 8 {
		return model.User{}, NewHTTPError(http.StatusBadRequest, "password must be at least 8 characters")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.User{}, NewHTTPError(http.StatusBadRequest, "name required")
	}
	phone := strings.TrimSpace(in.Phone)
	if phone == "" {
		return model.User{}, NewHTTPError(http.StatusBadRequest, "phone required")
	}
	role := model.Role(strings.ToUpper(strings.TrimSpace(in.Role)))
	if role == "" {
		role = model.RoleBuyer
	}
	// ADMIN は登録APIでは作らない
	if role != model.RoleBuyer && role != model.RoleSeller {
		return model.User{}, NewHTTPError(http.StatusBadRequest, "invalid role")
	}

	exists, err := u.users.ExistsByEmail(ctx, email)
	if err != nil {
		return model.User{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if exists {
		return model.User{}, NewHTTPError(http.StatusConflict, "email already registered")
	}
	exists, err = u.users.ExistsByPhone(ctx, phone)
	if err != nil {
		return model.User{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if exists {
		return model.User{}, NewHTTPError(http.StatusConflict, "phone already registered")
	}

	//パスワードは必ずハッシュ化して保存（平文保存しない）
	pwHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return model.User{}, NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	user := &model.User{
		Email:        email,
		PasswordHash: string(pwHash),
		Name:         name,
		Phone:        phone,
		Role:         role,
		BusinessName: strings.TrimSpace(in.BusinessName),
		GSTNumber:    strings.ToUpper(strings.TrimSpace(in.GSTNumber)),
		Address:      strings.TrimSpace(in.Address),
		IsActive:     true,
	}
	if err := u.users.Create(ctx, user); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return model.User{}, NewHTTPError(http.StatusConflict, "email or phone already registered")
		}
		return model.User{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	u.log.Info("user registered", zap.Int64("user_id", user.ID), zap.String("role", string(user.Role)))
	return *user, nil
}

func (u *UserUsecase) Login(ctx context.Context, in LoginInput) (LoginOutput, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return LoginOutput{}, NewHTTPError(http.StatusBadRequest, "email and password required")
	}

	user, err := u.users.FindByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		return LoginOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}
	if err != nil {
		return LoginOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	//停止ユーザーはログイン不可
	if !user.IsActive {
		return LoginOutput{}, NewHTTPError(http.StatusForbidden, "user is inactive")
	}

	//パスワード照合（bcrypt）
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return LoginOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	now := u.now()
	token, err := u.issueAccessToken(user, now)
	if err != nil {
		return LoginOutput{}, NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	//last_login更新（失敗してもログインは通す）
	if err := u.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		u.log.Warn("update last login failed", zap.Int64("user_id", user.ID), zap.Error(err))
	} else {
		user.LastLoginAt = &now
	}

	return LoginOutput{
		User: user,
		Token: AccessTokenDTO{
			AccessToken: token,
			TokenType:   "Bearer",
			ExpiresIn:   int(u.accessTTL.Seconds()),
		},
	}, nil
}

// jwt発行
func (u *UserUsecase) issueAccessToken(user model.User, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub":  strconv.FormatInt(user.ID, 10),
		"role": string(user.Role),
		"iat":  now.Unix(),
		"exp":  now.Add(u.accessTTL).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(u.jwtSecret)
}

func (u *UserUsecase) Get(ctx context.Context, userID int64) (model.User, error) {
	if userID <= 0 {
		return model.User{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return model.User{}, mapRepoError(err, "not found")
	}
	return user, nil
}

func (u *UserUsecase) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return model.User{}, NewHTTPError(http.StatusBadRequest, "invalid email")
	}
	user, err := u.users.FindByEmail(ctx, email)
	if err != nil {
		return model.User{}, mapRepoError(err, "not found")
	}
	return user, nil
}

// role が空なら全件
func (u *UserUsecase) List(ctx context.Context, role string) ([]model.User, error) {
	var filter *model.Role
	if r := strings.TrimSpace(role); r != "" {
		rr := model.Role(strings.ToUpper(r))
		if !rr.IsValid() {
			return nil, NewHTTPError(http.StatusBadRequest, "invalid role")
		}
		filter = &rr
	}
	users, err := u.users.List(ctx, filter)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return users, nil
}
