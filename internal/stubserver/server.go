// Package stubserver is an in-memory fake of the mess-management backend
// for local development and manual testing of the client. It implements the
// auth endpoints (role-specific login/signup, token refresh, token info)
// and the resource CRUD the client exercises. Not a real backend: no
// persistence and no booking-conflict logic beyond basic checks.
package stubserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/campusmess/messmate/internal/model"
)

// Server holds the stub's state and signing key.
type Server struct {
	store      *memStore
	signKey    []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	log        *zap.Logger
}

// New constructs a seeded stub server.
func New(signKey []byte, log *zap.Logger) *Server {
	s := &Server{
		store:      newMemStore(),
		signKey:    signKey,
		accessTTL:  15 * time.Minute,
		refreshTTL: 7 * 24 * time.Hour,
		log:        log,
	}
	s.store.seed()
	return s
}

func nowRFC3339() string { return time.Now().UTC().Format(time.RFC3339) }

// Router wires every endpoint under the /api prefix the client expects.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.logRequests)

	r.Route("/api", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Post("/auth/student/login/", s.handleLogin(false))
		r.Post("/auth/admin/login/", s.handleLogin(true))
		r.Post("/auth/signup/", s.handleSignup(false))
		r.Post("/auth/admin/signup/", s.handleSignup(true))
		r.Post("/auth/token/refresh/", s.handleRefresh)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/token/info", s.handleTokenInfo)

			r.Get("/users/", s.handleListUsers)
			r.Get("/user/{userID}/", s.handleGetUser)
			r.Delete("/user/{userID}/", s.handleDeleteUser)

			r.Get("/mess/", s.handleListMesses)
			r.Post("/mess/", s.handleCreateMess)
			r.Get("/mess/{messID}/", s.handleGetMess)
			r.Put("/mess/{messID}/", s.handleUpdateMess)
			r.Delete("/mess/{messID}/", s.handleDeleteMess)

			r.Get("/meal-slot", s.handleListSlots)
			r.Post("/meal-slot", s.handleCreateSlot)
			r.Put("/meal-slot/{slotID}", s.handleUpdateSlot)
			r.Delete("/meal-slot/{slotID}", s.handleDeleteSlot)

			r.Get("/booking", s.handleListBookings)
			r.Post("/booking", s.handleCreateBooking)
			r.Delete("/booking/{bookingID}", s.handleDeleteBooking)
			r.Get("/history/{userID}", s.handleBookingHistory)

			r.Get("/coupons/my", s.handleMyCoupons)
			r.Post("/coupon", s.handleGenerateCoupon)
			r.Post("/coupon/validate", s.handleValidateCoupon)

			r.Get("/notifications/", s.handleListNotifications)
			r.Post("/notifications/", s.handleCreateNotification)

			r.Get("/report/mess-usage", s.handleMessUsage)
			r.Get("/report/export", s.handleExport)
			r.Get("/audit-logs", s.handleAuditLogs)
		})
	})

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Info("http",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("dur", time.Since(start)),
		)
	})
}

// --- auth ---

type loginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(adminEndpoint bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Phone == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "phone and password are required")
			return
		}

		s.store.mu.Lock()
		acc := s.store.findByPhone(req.Phone)
		s.store.mu.Unlock()

		if acc == nil || bcrypt.CompareHashAndPassword(acc.pwdHash, []byte(req.Password)) != nil {
			writeError(w, http.StatusUnauthorized, "invalid phone number or password")
			return
		}
		// The admin login endpoint only serves staff/superuser accounts.
		if adminEndpoint && !acc.user.IsStaff && !acc.user.IsSuperuser {
			writeError(w, http.StatusUnauthorized, "not an admin account")
			return
		}

		access, err := s.mintToken(acc.user.UserID, "access", s.accessTTL)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "token signing failed")
			return
		}
		refresh, err := s.mintToken(acc.user.UserID, "refresh", s.refreshTTL)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "token signing failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"access": access, "refresh": refresh})
	}
}

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	RollNo   string `json:"roll_no"`
	RoomNo   string `json:"room_no"`
}

func (s *Server) handleSignup(admin bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req signupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "username and password are required")
			return
		}

		s.store.mu.Lock()
		defer s.store.mu.Unlock()
		if s.store.findByPhone(req.Username) != nil {
			writeError(w, http.StatusConflict, "phone number already registered")
			return
		}
		acc := s.store.addAccount(model.User{
			Name: req.Name, Email: req.Email, Phone: req.Username,
			RollNo: req.RollNo, RoomNo: req.RoomNo,
			IsStaff: admin, IsActive: true,
		}, req.Password)
		s.store.logAction(req.Username, "signup", "")
		writeJSON(w, http.StatusCreated, map[string]any{"user": acc.user})
	}
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Refresh string `json:"refresh"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Refresh == "" {
		writeError(w, http.StatusBadRequest, "refresh token is required")
		return
	}

	userID, typ, err := s.parseToken(req.Refresh)
	if err != nil || typ != "refresh" {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	access, err := s.mintToken(userID, "access", s.accessTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token signing failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access": access})
}

func (s *Server) handleTokenInfo(w http.ResponseWriter, r *http.Request) {
	acc := s.accountFrom(r.Context())
	if acc == nil {
		writeError(w, http.StatusUnauthorized, "unknown user")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_info": acc.user})
}

// --- tokens ---

type stubClaims struct {
	Typ string `json:"typ"`
	jwt.RegisteredClaims
}

func (s *Server) mintToken(userID int64, typ string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := stubClaims{
		Typ: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signKey)
}

func (s *Server) parseToken(raw string) (int64, string, error) {
	var claims stubClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) { return s.signKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return 0, "", err
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, "", errors.New("bad subject claim")
	}
	return id, claims.Typ, nil
}

type ctxKey struct{}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if raw == "" || raw == r.Header.Get("Authorization") {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		userID, typ, err := s.parseToken(raw)
		if err != nil || typ != "access" {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		s.store.mu.Lock()
		acc := s.store.accounts[userID]
		s.store.mu.Unlock()
		if acc == nil {
			writeError(w, http.StatusUnauthorized, "unknown user")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, acc)))
	})
}

func (s *Server) accountFrom(ctx context.Context) *account {
	acc, _ := ctx.Value(ctxKey{}).(*account)
	return acc
}

// --- response helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
