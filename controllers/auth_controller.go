package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/bloghouse/config"
	"github.com/cppla/bloghouse/middleware"
	"github.com/cppla/bloghouse/models"
	"github.com/cppla/bloghouse/utils"
)

// AuthController handles registration, login, logout and identity resolution.
type AuthController struct {
	db *gorm.DB
}

// NewAuthController creates an AuthController.
func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

// Register creates a local account with a bcrypt-hashed password and starts a session.
func (a *AuthController) Register(ctx *gin.Context) {
	type request struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
		Name     string `json:"name" binding:"required"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		if fields := utils.FieldErrors(err); len(fields) > 0 {
			utils.ValidationError(ctx, 40001, fields)
			return
		}
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	name := strings.TrimSpace(req.Name)
	if name == "" {
		utils.ValidationError(ctx, 40002, map[string]string{"name": "this field is required"})
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to hash password")
		return
	}

	user := models.User{Email: email, PasswordHash: hash, Name: name}

	err = a.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return gorm.ErrDuplicatedKey
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.Error(ctx, http.StatusConflict, 40901, "email already registered, log in instead")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to create user")
		return
	}

	if err := a.startSession(ctx, user); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to create session")
		return
	}

	utils.Success(ctx, gin.H{"user": userResponse(user)})
}

// Login verifies credentials and starts a session. Unknown email and wrong
// password are reported as distinct outcomes.
func (a *AuthController) Login(ctx *gin.Context) {
	type request struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		if fields := utils.FieldErrors(err); len(fields) > 0 {
			utils.ValidationError(ctx, 40003, fields)
			return
		}
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	var user models.User
	if err := a.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusUnauthorized, 40110, "that email is not registered")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to look up user")
		return
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40111, "incorrect password")
		return
	}

	if err := a.startSession(ctx, user); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to create session")
		return
	}

	utils.Success(ctx, gin.H{"user": userResponse(user)})
}

// Logout invalidates the active session and clears the cookie.
func (a *AuthController) Logout(ctx *gin.Context) {
	if cookie, err := ctx.Cookie(utils.SessionCookieName); err == nil && cookie != "" {
		utils.DeleteSession(cookie)
	}
	ctx.SetCookie(utils.SessionCookieName, "", -1, "/", "", false, true)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the current authenticated user's information.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	var user models.User
	if err := a.db.First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
		return
	}

	utils.Success(ctx, gin.H{"user": userResponse(user)})
}

// startSession issues an opaque session token and sets the signed cookie.
func (a *AuthController) startSession(ctx *gin.Context, user models.User) error {
	ttl := time.Duration(config.Get().SessionTTLHours) * time.Hour
	cookieValue, err := utils.CreateSession(user.ID, user.Email, ttl)
	if err != nil {
		return err
	}
	ctx.SetCookie(utils.SessionCookieName, cookieValue, int(ttl.Seconds()), "/", "", false, true)
	return nil
}

func userResponse(user models.User) gin.H {
	return gin.H{
		"id":         user.ID,
		"email":      user.Email,
		"name":       user.Name,
		"created_at": user.CreatedAt,
	}
}

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		return uint(v), true
	case int64:
		return uint(v), true
	case float64:
		return uint(v), true
	default:
		return 0, false
	}
}
