package middleware

import (
	"context"
	"net/http"
	"strings"

	"emergency-triage/pkg/jwt"
	"emergency-triage/pkg/response"

	"github.com/google/uuid"
)

type contextKey string

const (
	StaffIDKey    contextKey = "staff_id"
	StaffEmailKey contextKey = "staff_email"
	RoleKey       contextKey = "role"
	TokenIDKey    contextKey = "token_id"
)

// accessTokenParam carries the token for websocket clients, which cannot
// set headers from a browser
const accessTokenParam = "access_token"

type AuthMiddleware struct {
	jwtService *jwt.JWTService
}

func NewAuthMiddleware(jwtService *jwt.JWTService) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
	}
}

func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, ok := extractToken(r)
		if !ok {
			response.Unauthorized(w, "Authorization header is required")
			return
		}

		claims, err := m.jwtService.ValidateToken(tokenString)
		if err != nil {
			response.Unauthorized(w, "Invalid or expired token")
			return
		}

		if claims.TokenType != jwt.AccessToken {
			response.Unauthorized(w, "Invalid token type")
			return
		}

		ctx := WithStaff(r.Context(), claims.StaffID, claims.Role)
		ctx = context.WithValue(ctx, StaffEmailKey, claims.Email)
		ctx = context.WithValue(ctx, TokenIDKey, claims.TokenID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractToken(r *http.Request) (string, bool) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}
	if token := r.URL.Query().Get(accessTokenParam); token != "" {
		return token, true
	}
	return "", false
}

// WithStaff stores the acting staff member in ctx
func WithStaff(ctx context.Context, staffID uuid.UUID, role string) context.Context {
	ctx = context.WithValue(ctx, StaffIDKey, staffID)
	return context.WithValue(ctx, RoleKey, role)
}

// GetStaffIDFromContext extracts staff ID from context
func GetStaffIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	staffID, ok := ctx.Value(StaffIDKey).(uuid.UUID)
	return staffID, ok
}

// GetRoleFromContext extracts the staff role from context
func GetRoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(RoleKey).(string)
	return role, ok
}
