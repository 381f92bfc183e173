package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"medtransit-telemetry/internal/repository"
	"medtransit-telemetry/internal/services"
	"medtransit-telemetry/pkg/utils"

	"github.com/gin-gonic/gin"
)

type DeviceHandler struct {
	devices *services.DeviceService
}

func NewDeviceHandler(devices *services.DeviceService) *DeviceHandler {
	return &DeviceHandler{devices: devices}
}

// GetDevices lists every synced telemetry device
func (h *DeviceHandler) GetDevices(c *gin.Context) {
	devices, err := h.devices.List(c.Request.Context())
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to retrieve devices", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Devices retrieved successfully", devices)
}

// GetDevice returns one device by IMEI
func (h *DeviceHandler) GetDevice(c *gin.Context) {
	device, err := h.devices.Get(c.Request.Context(), c.Param("imei"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Device not found", err)
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to retrieve device", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Device retrieved successfully", device)
}

// GetDeviceEvents returns the device's recent event log rows
func (h *DeviceHandler) GetDeviceEvents(c *gin.Context) {
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "100"), 10, 64)

	events, err := h.devices.RecentEvents(c.Request.Context(), c.Param("imei"), limit)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to retrieve events", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Events retrieved successfully", events)
}

// GetRecentEvents returns the newest event log rows across all devices
func (h *DeviceHandler) GetRecentEvents(c *gin.Context) {
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "100"), 10, 64)

	events, err := h.devices.RecentEvents(c.Request.Context(), "", limit)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to retrieve events", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Events retrieved successfully", events)
}

type linkRequest struct {
	VehicleID string `json:"vehicleId" binding:"required"`
}

// LinkVehicle pairs a device with a vehicle
func (h *DeviceHandler) LinkVehicle(c *gin.Context) {
	var req linkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if err := h.devices.Link(c.Request.Context(), c.Param("imei"), req.VehicleID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Device or vehicle not found", err)
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to link device", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Device linked successfully", nil)
}

// UnlinkVehicle detaches a device from its vehicle
func (h *DeviceHandler) UnlinkVehicle(c *gin.Context) {
	if err := h.devices.Unlink(c.Request.Context(), c.Param("imei")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Device not found", err)
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to unlink device", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Device unlinked successfully", nil)
}
