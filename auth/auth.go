// Package auth handles registration and login. Tokens carry the user's
// role so the routing layer can gate farmer/buyer/transporter surfaces.
package auth

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"mkulima/globals"
	"mkulima/middleware"
	"mkulima/models"
	"mkulima/store"
	"mkulima/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"
	"golang.org/x/crypto/bcrypt"
)

const tokenTTL = 72 * time.Hour

type Handlers struct {
	Users store.Users
}

func NewHandlers(users store.Users) *Handlers {
	return &Handlers{Users: users}
}

func validRole(role string) bool {
	switch role {
	case models.RoleFarmer, models.RoleBuyer, models.RoleTransporter:
		return true
	}
	return false
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
}

// Register creates an account with one of the marketplace roles.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var body registerRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	body.Username = strings.TrimSpace(body.Username)
	if body.Username == "" || len(body.Password) < 6 {
		utils.RespondWithError(w, http.StatusBadRequest, "Username and a password of at least 6 characters are required")
		return
	}
	if !validRole(body.Role) {
		utils.RespondWithError(w, http.StatusBadRequest, "Role must be farmer, buyer or transporter")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Println("Register hash error:", err)
		http.Error(w, "Registration failed", http.StatusInternalServerError)
		return
	}

	user := models.User{
		UserID:       utils.GetUUID(),
		Username:     body.Username,
		PasswordHash: string(hash),
		Role:         body.Role,
		Phone:        body.Phone,
		Location:     body.Location,
		CreatedAt:    time.Now(),
	}
	if err := h.Users.Create(ctx, &user); err != nil {
		if store.HTTPStatus(err) == http.StatusConflict {
			utils.RespondWithError(w, http.StatusConflict, "Username already taken")
			return
		}
		log.Println("Register create error:", err)
		http.Error(w, "Registration failed", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, utils.M{
		"userid":   user.UserID,
		"username": user.Username,
		"role":     user.Role,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login verifies the password and issues a signed token.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var body loginRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	user, err := h.Users.GetByUsername(ctx, strings.TrimSpace(body.Username))
	if err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	now := time.Now()
	claims := &middleware.Claims{
		Username: user.Username,
		UserID:   user.UserID,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(globals.JwtSecret)
	if err != nil {
		log.Println("Login sign error:", err)
		http.Error(w, "Login failed", http.StatusInternalServerError)
		return
	}

	if err := h.Users.SetLastLogin(ctx, user.UserID, now); err != nil {
		log.Println("Login last-login update:", err)
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"token":    token,
		"userid":   user.UserID,
		"username": user.Username,
		"role":     user.Role,
	})
}

// Profile returns the caller's own account.
func (h *Handlers) Profile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	user, err := h.Users.Get(ctx, userID)
	if err != nil {
		utils.RespondWithError(w, store.HTTPStatus(err), "User not found")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, user)
}
