package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prodvault/apiserver/config"
	"github.com/prodvault/apiserver/internal/services"
	"github.com/prodvault/apiserver/internal/store"
	"github.com/prodvault/apiserver/internal/validate"
	"github.com/prodvault/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

const defaultTokenTTL = 30 * 24 * time.Hour

// maxPasswordBytes matches the input limit of bcrypt.GenerateFromPassword.
const maxPasswordBytes = 72

// invalidCredentialsMsg is deliberately identical for unknown emails and
// wrong passwords so login failures cannot enumerate accounts.
const invalidCredentialsMsg = "invalid email or password"

// AuthHandler provides JWT authentication endpoints.
type AuthHandler struct {
	userService *services.UserService
	secret      []byte
	tokenTTL    time.Duration
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService, jwtCfg config.JWTConfig) *AuthHandler {
	ttl := defaultTokenTTL
	if jwtCfg.TTLHours > 0 {
		ttl = time.Duration(jwtCfg.TTLHours) * time.Hour
	}
	return &AuthHandler{
		userService: userService,
		secret:      []byte(jwtCfg.Secret),
		tokenTTL:    ttl,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, userService *services.UserService, jwtCfg config.JWTConfig) {
	handler := NewAuthHandler(userService, jwtCfg)

	r.Post("/signup", handler.Signup)
	r.Post("/login", handler.Login)
	r.With(handler.RequireAuth).Get("/me", handler.Me)
}

// RequireAuth enforces JWT authentication on this handler's routes.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return requireAuth(h.userService, h.secret)(next)
}

// RequireAuth constructs auth middleware for other routers.
func RequireAuth(userService *services.UserService, jwtSecret string) func(http.Handler) http.Handler {
	return requireAuth(userService, []byte(jwtSecret))
}

// requireAuth rejects requests whose bearer token is absent, malformed,
// badly signed, or expired. The subject is re-fetched from storage rather
// than trusted from the token payload, so a deleted account cannot keep
// authenticating with an old token.
func requireAuth(userService *services.UserService, secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "not authorized, no token provided")
				return
			}

			subject, err := parseTokenSubject(tokenString, secret)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "not authorized, token failed")
				return
			}

			userID, err := strconv.Atoi(subject)
			if err != nil || userID < 1 {
				writeError(w, http.StatusUnauthorized, "not authorized, token failed")
				return
			}

			if _, err := userService.GetByID(r.Context(), userID); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					writeError(w, http.StatusUnauthorized, "not authorized, token failed")
					return
				}
				writeInternalError(w, "failed to load user", err)
				return
			}

			ctx := context.WithValue(r.Context(), contextSubjectKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Signup creates a new user account and returns a JWT.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if msg := missingFieldsMessage(map[string]string{
		"name":     req.Name,
		"email":    req.Email,
		"password": req.Password,
	}); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	name := strings.TrimSpace(req.Name)
	email := validate.NormalizeEmail(req.Email)

	if name == "" {
		writeError(w, http.StatusBadRequest, "name cannot be empty")
		return
	}
	if len([]rune(name)) < 2 {
		writeError(w, http.StatusBadRequest, "name must be at least 2 characters long")
		return
	}
	if !validate.Email(email) {
		writeError(w, http.StatusBadRequest, "please provide a valid email address")
		return
	}
	if msg := passwordChecksMessage(validate.Password(req.Password)); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	// bcrypt refuses inputs over 72 bytes; reject before hashing so an
	// overlong password reads as a validation failure, not a server error.
	if len(req.Password) > maxPasswordBytes {
		writeError(w, http.StatusBadRequest, "password is too long")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeInternalError(w, "failed to create user", err)
		return
	}

	user, err := h.userService.Create(r.Context(), types.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hashed),
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusBadRequest, "an account with this email already exists")
			return
		}
		writeInternalError(w, "failed to create user", err)
		return
	}

	token, err := issueToken(user.ID, h.secret, h.tokenTTL)
	if err != nil {
		writeInternalError(w, "failed to create token", err)
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{
		Success: true,
		Message: "user registered successfully",
		Token:   token,
		User:    userPayload(user),
	})
}

// Login verifies credentials and returns a JWT.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if msg := missingFieldsMessage(map[string]string{
		"email":    req.Email,
		"password": req.Password,
	}); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	email := validate.NormalizeEmail(req.Email)
	if !validate.Email(email) {
		writeError(w, http.StatusBadRequest, "please provide a valid email address")
		return
	}

	user, err := h.userService.GetByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, invalidCredentialsMsg)
			return
		}
		writeInternalError(w, "failed to authenticate", err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, invalidCredentialsMsg)
		return
	}

	token, err := issueToken(user.ID, h.secret, h.tokenTTL)
	if err != nil {
		writeInternalError(w, "failed to create token", err)
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{
		Success: true,
		Message: "login successful",
		Token:   token,
		User:    userPayload(user),
	})
}

// Me returns the current authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "not authorized")
		return
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "not authorized")
			return
		}
		writeInternalError(w, "failed to load user", err)
		return
	}

	writeJSON(w, http.StatusOK, MeResponse{Success: true, User: userPayload(user)})
}

type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserPayload is the user shape exposed over the API. The password hash
// never leaves the server.
type UserPayload struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type AuthResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Token   string      `json:"token"`
	User    UserPayload `json:"user"`
}

type MeResponse struct {
	Success bool        `json:"success"`
	User    UserPayload `json:"user"`
}

func userPayload(user types.User) UserPayload {
	return UserPayload{ID: user.ID, Name: user.Name, Email: user.Email}
}

// missingFieldsMessage names every empty field, mirroring the messages the
// interactive client shows.
func missingFieldsMessage(fields map[string]string) string {
	order := []string{"name", "email", "password"}
	missing := make([]string, 0, len(fields))
	for _, key := range order {
		value, ok := fields[key]
		if ok && value == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) == 0 {
		return ""
	}
	return fmt.Sprintf("please fill in all required fields: %s", strings.Join(missing, ", "))
}

func passwordChecksMessage(checks validate.PasswordChecks) string {
	switch {
	case !checks.Length:
		return "password must be at least 8 characters long"
	case !checks.Uppercase:
		return "password must contain at least one uppercase letter (A-Z)"
	case !checks.Lowercase:
		return "password must contain at least one lowercase letter (a-z)"
	case !checks.Digit:
		return "password must contain at least one digit (0-9)"
	case !checks.SpecialChar:
		return "password must contain at least one special character (!@#$%^&*...)"
	}
	return ""
}

func issueToken(userID int, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.Itoa(userID),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func parseTokenSubject(tokenString string, secret []byte) (string, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errors.New("missing subject")
	}
	return claims.Subject, nil
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
