package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"slotbooking/backend/internal/authz"
	"slotbooking/backend/internal/service"
)

// region --- DTOs ---

// LoginInput accepts the identifier under login, email or username.
type LoginInput struct {
	Login    string `json:"login" example:"alice@example.com"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password" binding:"required" example:"secret1"`
}

func (in LoginInput) identifier() string {
	for _, s := range []string{in.Login, in.Email, in.Username} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type" example:"bearer"`
	ExpiresIn   int64        `json:"expires_in" example:"1800"`
	User        UserResponse `json:"user"`
}

type VerifyResponse struct {
	Valid       bool     `json:"valid" example:"true"`
	UserID      uint     `json:"user_id" example:"1"`
	Role        string   `json:"role" example:"normal"`
	Permissions []string `json:"permissions" example:"booking:create,booking:read"`
}

// endregion

type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Login godoc
// @Summary      Log in
// @Description  Exchanges an email or username and a password for a bearer token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body LoginInput true "Credentials"
// @Success      200 {object} TokenResponse
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse "Incorrect email/username or password"
// @Failure      429 {object} ErrorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	result, err := h.auth.Login(c.Request.Context(), input.identifier(), input.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, TokenResponse{
		AccessToken: result.AccessToken,
		TokenType:   result.TokenType,
		ExpiresIn:   int64(result.ExpiresIn.Seconds()),
		User:        newUserResponse(result.User),
	})
}

// Logout godoc
// @Summary      Log out
// @Description  Tokens are stateless; clients drop the token.
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} MessageResponse
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, MessageResponse{Message: "Successfully logged out"})
}

// Me godoc
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} UserResponse
// @Failure      401 {object} ErrorResponse
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.auth.Me(c.Request.Context(), currentActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newUserDetailResponse(*user))
}

// Verify godoc
// @Summary      Verify a token
// @Description  Reports the caller's id, current role and granted permissions.
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} VerifyResponse
// @Failure      401 {object} ErrorResponse
// @Router       /auth/verify [get]
func (h *AuthHandler) Verify(c *gin.Context) {
	actor := currentActor(c)
	perms := authz.Permissions(actor.Role)
	names := make([]string, len(perms))
	for i, p := range perms {
		names[i] = string(p)
	}
	c.JSON(http.StatusOK, VerifyResponse{Valid: true, UserID: actor.ID, Role: string(actor.Role), Permissions: names})
}
