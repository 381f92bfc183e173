package handlers

import (
	"errors"
	"net/http"

	"medtransit-telemetry/internal/repository"
	"medtransit-telemetry/internal/services"
	"medtransit-telemetry/pkg/utils"

	"github.com/gin-gonic/gin"
)

type LocationHandler struct {
	resolver *services.LocationResolver
}

func NewLocationHandler(resolver *services.LocationResolver) *LocationHandler {
	return &LocationHandler{resolver: resolver}
}

// GetFleetLocations returns the best known location of every active
// vehicle
func (h *LocationHandler) GetFleetLocations(c *gin.Context) {
	locations, err := h.resolver.FleetLocations(c.Request.Context())
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to resolve fleet locations", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Fleet locations resolved", locations)
}

// GetVehicleLocation resolves one vehicle's current location
func (h *LocationHandler) GetVehicleLocation(c *gin.Context) {
	location, err := h.resolver.ResolveVehicle(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Vehicle not found", err)
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to resolve location", err)
		return
	}
	if location == nil {
		utils.ErrorResponse(c, http.StatusNotFound, "No location available for vehicle", nil)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Location resolved", location)
}

// GetDriverLocation resolves one driver's current location
func (h *LocationHandler) GetDriverLocation(c *gin.Context) {
	location, err := h.resolver.ResolveDriver(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Driver not found", err)
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to resolve location", err)
		return
	}
	if location == nil {
		utils.ErrorResponse(c, http.StatusNotFound, "No location available for driver", nil)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Location resolved", location)
}
