package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Store is the persistence surface the service needs; *Repository satisfies it.
type Store interface {
	Create(ctx context.Context, u *User) (*User, error)
	ByEmail(ctx context.Context, email string) (*User, error)
	ByID(ctx context.Context, id int64) (*User, error)
	ByUsername(ctx context.Context, username string) (*User, error)
	EmailExists(ctx context.Context, email string, exceptID int64) (bool, error)
	UsernameExists(ctx context.Context, username string, exceptID int64) (bool, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id int64) error
	Search(ctx context.Context, query string, limit, offset int) ([]User, error)
}

type Service struct {
	store     Store
	jwtSecret string
	tokenTTL  time.Duration
}

type Claims struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func NewService(store Store, secret string) *Service {
	return &Service{
		store:     store,
		jwtSecret: secret,
		tokenTTL:  24 * time.Hour,
	}
}

func (s *Service) Signup(ctx context.Context, req *SignupRequest) (*AuthResponse, error) {
	if taken, err := s.store.EmailExists(ctx, req.Email, 0); err != nil {
		return nil, err
	} else if taken {
		return nil, ErrEmailTaken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := &User{
		Username: req.Username,
		Email:    req.Email,
		Name:     req.Name,
		Password: string(hashed),
	}
	if _, err := s.store.Create(ctx, u); err != nil {
		return nil, err
	}

	return s.withToken(u)
}

func (s *Service) Signin(ctx context.Context, req *SigninRequest) (*AuthResponse, error) {
	u, err := s.store.ByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.withToken(u)
}

func (s *Service) Refresh(ctx context.Context, userID int64) (*AuthResponse, error) {
	u, err := s.store.ByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.withToken(u)
}

func (s *Service) UpdateProfile(ctx context.Context, userID int64, req *UpdateProfileRequest) (*User, error) {
	u, err := s.store.ByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Email != nil && *req.Email != u.Email {
		if taken, err := s.store.EmailExists(ctx, *req.Email, userID); err != nil {
			return nil, err
		} else if taken {
			return nil, ErrEmailTaken
		}
		u.Email = *req.Email
	}
	if req.Username != nil && *req.Username != u.Username {
		if taken, err := s.store.UsernameExists(ctx, *req.Username, userID); err != nil {
			return nil, err
		} else if taken {
			return nil, ErrUsernameTaken
		}
		u.Username = *req.Username
	}
	if req.Name != nil {
		u.Name = *req.Name
	}

	if err := s.store.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) DeleteAccount(ctx context.Context, userID int64) error {
	return s.store.Delete(ctx, userID)
}

func (s *Service) Search(ctx context.Context, query string, limit, offset int) ([]User, error) {
	return s.store.Search(ctx, query, limit, offset)
}

func (s *Service) ByUsername(ctx context.Context, username string) (*User, error) {
	return s.store.ByUsername(ctx, username)
}

// ActorName resolves the display name other features put in notification
// text ("X liked your post").
func (s *Service) ActorName(ctx context.Context, userID int64) (string, error) {
	u, err := s.store.ByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return u.Name, nil
}

// ValidateToken checks signature and expiry and returns the embedded
// identity. Satisfies middleware.TokenValidator.
func (s *Service) ValidateToken(tokenString string) (int64, string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return 0, "", fmt.Errorf("invalid token: %w", err)
	}
	return claims.ID, claims.Username, nil
}

func (s *Service) withToken(u *User) (*AuthResponse, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		ID:       u.ID,
		Username: u.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "go-social",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.tokenTTL)),
		},
	})
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, err
	}

	safe := *u
	safe.Password = ""
	return &AuthResponse{User: safe, AccessToken: signed}, nil
}
