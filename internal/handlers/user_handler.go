package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"pokequest/internal/models"
	"pokequest/internal/services"
)

// UserHandler serves the profile routes of the authenticated user.
type UserHandler struct {
	userService services.UserService
	log         logrus.FieldLogger
}

func NewUserHandler(userService services.UserService, log logrus.FieldLogger) *UserHandler {
	return &UserHandler{userService: userService, log: log}
}

// @Summary      Changer de pseudo
// @Tags         Profil
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      models.UpdatePseudoRequest  true  "Nouveau pseudo"
// @Success      200   {object}  models.UpdatePseudoResponse
// @Failure      400   {object}  models.ErrorResponse
// @Failure      401   {object}  models.ErrorResponse
// @Router       /api/user/update-pseudo [put]
func (h *UserHandler) UpdatePseudo(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}
	var req models.UpdatePseudoRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	pseudo, err := h.userService.UpdatePseudo(c.Request.Context(), claims.UserID, req.NewPseudo)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, models.UpdatePseudoResponse{Success: true, NewPseudo: pseudo})
}

// @Summary      Changer de mot de passe
// @Tags         Profil
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      models.UpdatePasswordRequest  true  "Ancien et nouveau mot de passe"
// @Success      200   {object}  models.SuccessResponse
// @Failure      400   {object}  models.ErrorResponse
// @Failure      401   {object}  models.ErrorResponse
// @Router       /api/user/update-password [put]
func (h *UserHandler) UpdatePassword(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}
	var req models.UpdatePasswordRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	if err := h.userService.UpdatePassword(c.Request.Context(), claims.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true})
}

// @Summary      Supprimer son compte
// @Description  Supprime le compte courant et ses défis validés, après confirmation du mot de passe
// @Tags         Profil
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      models.DeleteAccountRequest  true  "Mot de passe"
// @Success      200   {object}  models.SuccessResponse
// @Failure      400   {object}  models.ErrorResponse
// @Failure      401   {object}  models.ErrorResponse
// @Router       /api/user/account [delete]
func (h *UserHandler) DeleteAccount(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}
	var req models.DeleteAccountRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	if err := h.userService.DeleteAccount(c.Request.Context(), claims.UserID, req.Password); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true})
}
