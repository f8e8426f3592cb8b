package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"pokequest/internal/models"
	"pokequest/internal/services"
)

type AuthHandler struct {
	authService services.AuthService
	log         logrus.FieldLogger
}

func NewAuthHandler(authService services.AuthService, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{authService: authService, log: log}
}

// @Summary      Défi anti-robot
// @Description  Tire deux entiers entre 1 et 10 à additionner lors de l'inscription
// @Tags         Auth
// @Produce      json
// @Success      200  {object}  models.CaptchaResponse
// @Router       /api/auth/captcha [get]
func (h *AuthHandler) Captcha(c *gin.Context) {
	ch := h.authService.NewCaptcha()
	c.JSON(http.StatusOK, models.CaptchaResponse{A: ch.A, B: ch.B, Question: ch.Question()})
}

// @Summary      Inscription
// @Description  Crée un compte après le honeypot et le calcul, limité par IP
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.RegisterRequest  true  "Compte à créer"
// @Success      200   {object}  models.AuthResponse
// @Failure      400   {object}  models.ErrorResponse
// @Failure      429   {object}  models.ErrorResponse
// @Failure      500   {object}  models.ErrorResponse
// @Router       /api/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if !decodeJSON(c, &req) {
		return
	}

	res, err := h.authService.Register(c.Request.Context(), c.ClientIP(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, models.AuthResponse{Token: res.Token, User: res.User.Summary()})
}

// @Summary      Connexion
// @Description  Authentifie par pseudo (sensible à la casse) et mot de passe
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.LoginRequest  true  "Identifiants"
// @Success      200   {object}  models.AuthResponse
// @Failure      401   {object}  models.ErrorResponse
// @Failure      500   {object}  models.ErrorResponse
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	res, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, models.AuthResponse{Token: res.Token, User: res.User.Summary()})
}

// @Summary      Vérifier la session
// @Description  Relit l'utilisateur en base à partir du jeton
// @Tags         Auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  models.VerifyResponse
// @Failure      401  {object}  models.ErrorResponse
// @Router       /api/auth/verify [get]
func (h *AuthHandler) Verify(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}

	user, err := h.authService.Verify(c.Request.Context(), claims)
	if errors.Is(err, services.ErrUserNotFound) {
		// deleted account with a still valid token
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: msgUserNotFound})
		return
	}
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, models.VerifyResponse{User: user.Summary()})
}

// @Summary      Réinitialiser le mot de passe
// @Description  Génère un nouveau mot de passe et l'envoie par email. Une demande par IP toutes les 30 minutes.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.PasswordResetRequest  true  "Email du compte"
// @Success      200   {object}  models.PasswordResetResponse
// @Failure      400   {object}  models.ErrorResponse
// @Failure      404   {object}  models.ErrorResponse
// @Failure      429   {object}  models.ErrorResponse
// @Router       /api/auth/reset-password-request [post]
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req models.PasswordResetRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	res, err := h.authService.RequestPasswordReset(c.Request.Context(), c.ClientIP(), req.Email)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	resp := models.PasswordResetResponse{Success: true}
	switch {
	case res.Delivered:
		resp.Message = fmt.Sprintf("Un email a été envoyé à %s avec votre nouveau mot de passe.", res.Email)
	case res.DevPassword != "":
		resp.Message = "Configuration email non définie. Mot de passe affiché dans la console serveur."
		resp.DevPassword = res.DevPassword
		resp.DevMode = true
	default:
		resp.Message = "Le mot de passe a été réinitialisé mais l'email n'a pas pu être envoyé. Contactez un administrateur."
	}
	c.JSON(http.StatusOK, resp)
}
