package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"pokequest/internal/models"
	"pokequest/internal/services"
)

type AdminHandler struct {
	userService services.UserService
	log         logrus.FieldLogger
}

func NewAdminHandler(userService services.UserService, log logrus.FieldLogger) *AdminHandler {
	return &AdminHandler{userService: userService, log: log}
}

// @Summary      Lister les utilisateurs
// @Description  Du plus récent au plus ancien
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page (à partir de 1)"
// @Param        limit  query     int  false  "Taille de page (20 par défaut, 100 maximum)"
// @Success      200    {object}  models.UserListResponse
// @Failure      401    {object}  models.ErrorResponse
// @Failure      403    {object}  models.ErrorResponse
// @Router       /api/admin/users [get]
func (h *AdminHandler) ListUsers(c *gin.Context) {
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", services.DefaultPageSize)

	res, err := h.userService.ListUsers(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary      Basculer le rôle admin
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "ID utilisateur"
// @Success      200  {object}  models.ToggleAdminResponse
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/admin/users/{id}/toggle-admin [put]
func (h *AdminHandler) ToggleAdmin(c *gin.Context) {
	actor, ok := currentClaims(c)
	if !ok {
		return
	}
	id, ok := paramID(c)
	if !ok {
		return
	}

	admin, err := h.userService.ToggleAdmin(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, models.ToggleAdminResponse{Success: true, Admin: admin})
}

// @Summary      Supprimer un utilisateur
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "ID utilisateur"
// @Success      200  {object}  models.SuccessResponse
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/admin/users/{id} [delete]
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	actor, ok := currentClaims(c)
	if !ok {
		return
	}
	id, ok := paramID(c)
	if !ok {
		return
	}

	if err := h.userService.DeleteUser(c.Request.Context(), actor, id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true})
}
