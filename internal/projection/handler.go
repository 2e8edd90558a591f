package projection

import (
	"errors"
	"net/http"
	"strconv"

	httperr "github.com/Fulvio75/fpdb/internal/core/errors"
	"github.com/Fulvio75/fpdb/internal/core/storage"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all projection API routes on the given router.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/hud/hands/:handId", s.HandleHudStats)
}

type hudQuery struct {
	Range      *string `form:"range"`
	Days       *int    `form:"days"`
	HeroRange  *string `form:"heroRange"`
	HeroDays   *int    `form:"heroDays"`
	SeatsStyle *string `form:"seats"`
	SeatsMin   *int    `form:"seatsMin"`
	SeatsMax   *int    `form:"seatsMax"`
}

// params overlays the query values onto the service defaults.
func (q hudQuery) params(p Params) Params {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	setInt := func(dst *int, v *int) {
		if v != nil {
			*dst = *v
		}
	}
	set(&p.Villains.Range, q.Range)
	setInt(&p.Villains.Days, q.Days)
	set(&p.Hero.Range, q.HeroRange)
	setInt(&p.Hero.Days, q.HeroDays)
	set(&p.SeatsStyle, q.SeatsStyle)
	setInt(&p.SeatsMin, q.SeatsMin)
	setInt(&p.SeatsMax, q.SeatsMax)
	return p
}

// HandleHudStats handles GET /v1/hud/hands/:handId
// Query parameters: range, days, heroRange, heroDays, seats, seatsMin, seatsMax
func (s *Service) HandleHudStats(c *gin.Context) {
	handID, err := strconv.ParseInt(c.Param("handId"), 10, 64)
	if err != nil || handID <= 0 {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidParamError,
			Message:   "Invalid hand id",
			Details:   c.Param("handId"),
		})
		return
	}

	var query hudQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidParamError,
			Message:   "Invalid query parameters",
			Details:   err.Error(),
		})
		return
	}

	players, err := s.HudStats(c.Request.Context(), handID, query.params(s.defaults))
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidParams):
			c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
				ErrorType: httperr.HttpInvalidParamError,
				Message:   "Invalid hud parameters",
				Details:   err.Error(),
			})
		case errors.Is(err, storage.ErrNotFound):
			c.JSON(http.StatusNotFound, httperr.ErrorResponse{
				ErrorType: httperr.HttpNotFoundError,
				Message:   "Hand not found",
				Details:   handID,
			})
		default:
			c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
				ErrorType: httperr.HttpInternalError,
				Message:   "Failed to compute hud stats",
			})
		}
		return
	}

	c.JSON(http.StatusOK, HudResponse{HandID: handID, Players: players})
}
