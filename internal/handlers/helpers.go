package handlers

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"pokequest/internal/authz"
	"pokequest/internal/middleware"
	"pokequest/internal/models"
	"pokequest/internal/services"
)

const (
	msgServerError     = "Erreur serveur"
	msgBadRequest      = "Requête invalide"
	msgInvalidID       = "Identifiant invalide"
	msgBotDetected     = "Erreur de validation"
	msgWrongAnswer     = "Réponse incorrecte au calcul"
	msgDuplicate       = "Email ou pseudo déjà utilisé"
	msgPseudoTaken     = "Ce pseudo est déjà utilisé"
	msgBadCredentials  = "Identifiants incorrects"
	msgWrongPassword   = "Mot de passe actuel incorrect"
	msgEmailNotFound   = "Email introuvable"
	msgUserNotFound    = "Utilisateur introuvable"
	msgSelfAdminChange = "Vous ne pouvez pas modifier vos propres droits admin"
	msgSelfDelete      = "Vous ne pouvez pas supprimer votre propre compte"
)

// sentinel -> status + fixed message
var errorTable = []struct {
	err    error
	status int
	msg    string
}{
	{services.ErrBotDetected, http.StatusBadRequest, msgBotDetected},
	{services.ErrWrongAnswer, http.StatusBadRequest, msgWrongAnswer},
	{services.ErrDuplicateIdentity, http.StatusBadRequest, msgDuplicate},
	{services.ErrPseudoTaken, http.StatusBadRequest, msgPseudoTaken},
	{services.ErrInvalidCredentials, http.StatusUnauthorized, msgBadCredentials},
	{services.ErrWrongPassword, http.StatusUnauthorized, msgWrongPassword},
	{services.ErrEmailNotFound, http.StatusNotFound, msgEmailNotFound},
	{services.ErrUserNotFound, http.StatusNotFound, msgUserNotFound},
	{services.ErrSelfAdminChange, http.StatusForbidden, msgSelfAdminChange},
	{services.ErrSelfDelete, http.StatusForbidden, msgSelfDelete},
}

func rateLimitMessage(e *services.RateLimitError) string {
	if e.Limiter == services.PasswordResetLimiter {
		plural := ""
		if e.Minutes > 1 {
			plural = "s"
		}
		return fmt.Sprintf("Trop de demandes. Réessayez dans %d minute%s.", e.Minutes, plural)
	}
	return fmt.Sprintf("Trop de tentatives. Réessayez dans %d minute(s)", e.Minutes)
}

// respondError maps a service error onto the HTTP contract. Anything not
// recognised is logged in full and hidden behind a 500.
func respondError(c *gin.Context, log logrus.FieldLogger, err error) {
	var fields validator.ValidationErrors
	if errors.As(err, &fields) {
		err = services.ValidationFailure(err)
	}

	var verr *services.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: verr.Message})
		return
	}

	var rl *services.RateLimitError
	if errors.As(err, &rl) {
		secs := int(math.Ceil(rl.RetryAfter.Seconds()))
		if secs < 1 {
			secs = 1
		}
		c.Header("Retry-After", strconv.Itoa(secs))
		c.JSON(http.StatusTooManyRequests, models.ErrorResponse{
			Error:       rateLimitMessage(rl),
			MinutesLeft: rl.Minutes,
		})
		return
	}

	for _, e := range errorTable {
		if errors.Is(err, e.err) {
			c.JSON(e.status, models.ErrorResponse{Error: e.msg})
			return
		}
	}

	middleware.Logger(c, log).WithError(err).
		WithField("path", c.Request.URL.Path).
		Error("unhandled error")
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: msgServerError})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: msg})
}

// bindJSON decodes the body and checks its binding tags. An empty body
// leaves req zero-valued so the service produces the field-level message.
func bindJSON(c *gin.Context, log logrus.FieldLogger, req any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	err := c.ShouldBindJSON(req)
	var fields validator.ValidationErrors
	switch {
	case err == nil:
		return true
	case errors.As(err, &fields):
		respondError(c, log, err)
	default:
		badRequest(c, msgBadRequest)
	}
	return false
}

// decodeJSON decodes the body without acting on binding tags, for requests
// whose fields are only checked once an earlier gate has passed.
func decodeJSON(c *gin.Context, req any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	err := c.ShouldBindJSON(req)
	var fields validator.ValidationErrors
	if err != nil && !errors.As(err, &fields) {
		badRequest(c, msgBadRequest)
		return false
	}
	return true
}

func paramID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		badRequest(c, msgInvalidID)
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}

// currentClaims reads the claims set by RequireAuth. Routes using it are
// always mounted behind that middleware.
func currentClaims(c *gin.Context) (authz.Claims, bool) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Error: "Token requis"})
	}
	return claims, ok
}
