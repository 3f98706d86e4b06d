package handlers

import (
	"net/http"

	"courtside/services/notification"
	"courtside/utils"

	"github.com/gin-gonic/gin"
)

// DeviceHandler registers FCM device tokens for push delivery.
type DeviceHandler struct {
	Tokens notification.TokenStore
}

func NewDeviceHandler(tokens notification.TokenStore) *DeviceHandler {
	return &DeviceHandler{Tokens: tokens}
}

// SetTokenHandler stores the caller's device token.
func (h *DeviceHandler) SetTokenHandler(c *gin.Context) {
	var body struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	userID := c.GetString("userID")
	if userID == "" {
		utils.JSONError(c, http.StatusUnauthorized, "unauthorized", "missing user identity")
		return
	}

	if err := h.Tokens.SetToken(c.Request.Context(), userID, body.Token); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to store token", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "device token registered"})
}
