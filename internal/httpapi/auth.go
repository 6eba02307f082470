package httpapi

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"mothercare/backend/internal/domain"
	"mothercare/backend/internal/store"
)

const tokenIssuer = "mothercare"

var (
	errInvalidCredentials = errors.New("invalid credentials")
	errInactiveAccount    = errors.New("account is inactive")
	errInvalidToken       = errors.New("invalid or expired token")
)

// UserStore is the part of the repository the auth manager needs.
type UserStore interface {
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}

type account struct {
	hash    string
	role    string
	active  bool
	created time.Time
}

// AuthManager signs and checks access tokens and keeps a cache of user
// accounts loaded from the UserStore.
type AuthManager struct {
	mu         sync.RWMutex
	secret     []byte
	tokenTTL   time.Duration
	managerPIN string
	users      UserStore
	accounts   map[string]account
	now        func() time.Time
}

type accessClaims struct {
	jwtlib.RegisteredClaims
	Role string `json:"role"`
}

func NewAuthManager(ctx context.Context, secret string, tokenTTL time.Duration, managerPIN string, users UserStore) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}

	// An unset PIN leaves managerPIN empty, which rejects every PIN.
	var pinHash string
	if pin := strings.TrimSpace(managerPIN); pin != "" {
		hashed, err := hashSecret(pin)
		if err != nil {
			log.Error().Err(err).Msg("hash manager pin")
		} else {
			pinHash = hashed
		}
	}

	manager := &AuthManager{
		secret:     []byte(secret),
		tokenTTL:   tokenTTL,
		managerPIN: pinHash,
		users:      users,
		accounts:   make(map[string]account),
		now:        time.Now,
	}
	manager.refresh(ctx)
	return manager
}

// Login checks the credentials and issues an access token.
func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	a.refresh(ctx)

	username := strings.ToLower(strings.TrimSpace(req.Username))
	a.mu.RLock()
	acct, ok := a.accounts[username]
	a.mu.RUnlock()
	if !ok || !checkSecret(acct.hash, req.Password) {
		return domain.LoginResponse{}, errInvalidCredentials
	}
	if !acct.active {
		return domain.LoginResponse{}, errInactiveAccount
	}
	if acct.role == domain.RoleSystem {
		return domain.LoginResponse{}, errInvalidCredentials
	}

	expiresAt := a.now().UTC().Add(a.tokenTTL)
	token, err := a.sign(username, acct.role, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, err
	}
	return domain.LoginResponse{
		AccessToken: token,
		Role:        acct.role,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, nil
}

// ParseToken verifies an access token and returns the actor it names.
func (a *AuthManager) ParseToken(raw string) (domain.Actor, error) {
	claims := &accessClaims{}
	token, err := jwtlib.ParseWithClaims(raw, claims, func(*jwtlib.Token) (any, error) {
		return a.secret, nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithIssuer(tokenIssuer),
		jwtlib.WithTimeFunc(a.now),
	)
	if err != nil || !token.Valid {
		return domain.Actor{}, errInvalidToken
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return domain.Actor{}, errors.New("invalid token subject")
	}
	switch claims.Role {
	case domain.RoleAdmin, domain.RoleCashier:
	default:
		return domain.Actor{}, errors.New("invalid token role")
	}
	return domain.Actor{Username: subject, Role: claims.Role}, nil
}

func (a *AuthManager) sign(username, role string, expiresAt time.Time) (string, error) {
	claims := accessClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   username,
			Issuer:    tokenIssuer,
			IssuedAt:  jwtlib.NewNumericDate(a.now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
		},
		Role: role,
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(a.secret)
}

// ValidateManagerPIN guards sale deletion on top of the delete_sale
// capability.
func (a *AuthManager) ValidateManagerPIN(pin string) bool {
	return checkSecret(a.managerPIN, strings.TrimSpace(pin))
}

// CreateCashier adds a cashier account. Usernames are case-insensitive.
func (a *AuthManager) CreateCashier(ctx context.Context, req domain.CashierCreateRequest) (domain.CashierUser, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	switch {
	case len(username) < 4:
		return domain.CashierUser{}, errors.New("username must be at least 4 characters")
	case strings.ContainsAny(username, " \t\r\n"):
		return domain.CashierUser{}, errors.New("username must not contain spaces")
	case len(strings.TrimSpace(req.Password)) < 6:
		return domain.CashierUser{}, errors.New("password must be at least 6 characters")
	}

	a.refresh(ctx)
	a.mu.RLock()
	_, exists := a.accounts[username]
	a.mu.RUnlock()
	if exists {
		return domain.CashierUser{}, errors.New("username already exists")
	}

	hash, err := hashSecret(req.Password)
	if err != nil {
		return domain.CashierUser{}, err
	}
	user := domain.UserAccount{
		Username:  username,
		Password:  hash,
		Role:      domain.RoleCashier,
		Active:    true,
		CreatedAt: a.now().UTC(),
	}
	if a.users != nil {
		if err := a.users.CreateUser(ctx, user); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return domain.CashierUser{}, errors.New("username already exists")
			}
			return domain.CashierUser{}, err
		}
	}

	a.mu.Lock()
	a.accounts[username] = account{hash: hash, role: user.Role, active: true, created: user.CreatedAt}
	a.mu.Unlock()

	log.Info().Str("username", username).Msg("cashier created")
	return domain.CashierUser{Username: username, Role: user.Role, Active: true, CreatedAt: user.CreatedAt}, nil
}

func (a *AuthManager) ListCashiers(ctx context.Context) []domain.CashierUser {
	a.refresh(ctx)

	a.mu.RLock()
	cashiers := make([]domain.CashierUser, 0, len(a.accounts))
	for username, acct := range a.accounts {
		if acct.role != domain.RoleCashier {
			continue
		}
		cashiers = append(cashiers, domain.CashierUser{
			Username:  username,
			Role:      acct.role,
			Active:    acct.active,
			CreatedAt: acct.created,
		})
	}
	a.mu.RUnlock()

	slices.SortFunc(cashiers, func(x, y domain.CashierUser) int {
		return strings.Compare(x.Username, y.Username)
	})
	return cashiers
}

// refresh reloads accounts from the user store so users added by another
// process can sign in. Plain-text passwords found in the store are replaced
// by their bcrypt hash.
func (a *AuthManager) refresh(ctx context.Context) {
	if a.users == nil {
		return
	}
	users, err := a.users.ListUsers(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("load user accounts")
		return
	}

	loaded := make(map[string]account, len(users))
	for _, user := range users {
		username := strings.ToLower(strings.TrimSpace(user.Username))
		if username == "" {
			continue
		}
		hash := user.Password
		if !isBcryptHash(hash) {
			upgraded, err := hashSecret(hash)
			if err != nil {
				continue
			}
			if err := a.users.UpdateUserPassword(ctx, username, upgraded); err != nil {
				log.Warn().Err(err).Str("username", username).Msg("upgrade stored password")
			}
			hash = upgraded
		}
		loaded[username] = account{hash: hash, role: user.Role, active: user.Active, created: user.CreatedAt}
	}

	a.mu.Lock()
	for username, acct := range loaded {
		a.accounts[username] = acct
	}
	a.mu.Unlock()
}

func checkSecret(hash string, input string) bool {
	if !isBcryptHash(hash) || strings.TrimSpace(input) == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(input)) == nil
}

func hashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func isBcryptHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
