package handlers

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"

	bookingRepo "courtside/database/repository/booking"
	"courtside/models"
	"courtside/services/booking"
	"courtside/services/storage"
	"courtside/utils"

	"github.com/gin-gonic/gin"
)

// BookingHandler exposes the lifecycle engine over HTTP.
type BookingHandler struct {
	Engine  *booking.Engine
	Store   bookingRepo.BookingStore
	Watcher *booking.StatusWatcher
	Clock   booking.Clock
	Proofs  storage.ProofStorage
}

func NewBookingHandler(engine *booking.Engine, store bookingRepo.BookingStore, watcher *booking.StatusWatcher, clock booking.Clock, proofs storage.ProofStorage) *BookingHandler {
	return &BookingHandler{
		Engine:  engine,
		Store:   store,
		Watcher: watcher,
		Clock:   clock,
		Proofs:  proofs,
	}
}

// writeBookingError maps engine errors onto HTTP statuses.
func writeBookingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, booking.ErrInvalidArgument):
		utils.JSONError(c, http.StatusBadRequest, "invalid request", err.Error())
	case errors.Is(err, booking.ErrNotFound):
		utils.JSONError(c, http.StatusNotFound, "booking not found", err.Error())
	case errors.Is(err, booking.ErrWindowExpired):
		utils.JSONError(c, http.StatusGone, "payment window expired", err.Error())
	case errors.Is(err, booking.ErrInvalidTransition),
		errors.Is(err, booking.ErrSlotConflict),
		errors.Is(err, booking.ErrConflict):
		utils.JSONError(c, http.StatusConflict, "booking conflict", err.Error())
	default:
		utils.JSONError(c, http.StatusInternalServerError, "internal error", err.Error())
	}
}

// CreateBookingHandler reserves a court slot for the authenticated payer.
func (h *BookingHandler) CreateBookingHandler(c *gin.Context) {
	var in booking.CreateBookingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if in.PayerID == "" {
		in.PayerID = c.GetString("userID")
	}

	b, err := h.Engine.CreateBooking(c.Request.Context(), in)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// GetBookingHandler returns one booking with its remaining payment window.
func (h *BookingHandler) GetBookingHandler(c *gin.Context) {
	b, err := h.Store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, bookingRepo.ErrNotFound) {
			utils.JSONError(c, http.StatusNotFound, "booking not found", c.Param("id"))
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "internal error", err.Error())
		return
	}

	remaining := booking.RemainingPaymentWindow(b, h.Clock.Now())
	c.JSON(http.StatusOK, gin.H{
		"booking":                 b,
		"paymentWindowRemainingS": int(remaining.Seconds()),
	})
}

// ListBookingsHandler lists bookings for a payer or a venue, newest first.
func (h *BookingHandler) ListBookingsHandler(c *gin.Context) {
	payerID := c.Query("payerId")
	venueID := c.Query("venueId")

	var (
		bookings []models.Booking
		err      error
	)
	switch {
	case payerID != "":
		bookings, err = h.Store.ListByPayer(c.Request.Context(), payerID)
	case venueID != "":
		bookings, err = h.Store.ListByVenue(c.Request.Context(), venueID)
	default:
		utils.JSONError(c, http.StatusBadRequest, "invalid request", "payerId or venueId query parameter is required")
		return
	}
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "internal error", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// UploadProofHandler accepts the payment proof image, stores it, and moves the
// booking to PAYMENT_UPLOADED. Clients may also send a pre-uploaded URL as a
// JSON body instead of a file.
func (h *BookingHandler) UploadProofHandler(c *gin.Context) {
	bookingID := c.Param("id")

	proofURL, err := h.resolveProofURL(c, bookingID)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid proof upload", err.Error())
		return
	}

	b, err := h.Engine.UploadPaymentProof(c.Request.Context(), bookingID, proofURL)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) resolveProofURL(c *gin.Context, bookingID string) (string, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		// No multipart file; fall back to a JSON body with a proof URL.
		var body struct {
			ProofURL string `json:"proofUrl"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			return "", errors.New("provide a multipart 'file' or a JSON body with 'proofUrl'")
		}
		return body.ProofURL, nil
	}

	if h.Proofs == nil {
		return "", errors.New("file uploads are not configured; send a 'proofUrl' instead")
	}

	tempFilePath := filepath.Join(os.TempDir(), filepath.Base(fileHeader.Filename))
	if err := c.SaveUploadedFile(fileHeader, tempFilePath); err != nil {
		return "", err
	}
	defer os.Remove(tempFilePath)

	return h.Proofs.UploadProof(c.Request.Context(), tempFilePath, bookingID)
}

// AcceptBookingHandler confirms an uploaded proof.
func (h *BookingHandler) AcceptBookingHandler(c *gin.Context) {
	b, err := h.Engine.AcceptBooking(c.Request.Context(), c.Param("id"), c.GetString("userID"))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// RejectBookingHandler declines an uploaded proof with a mandatory reason.
func (h *BookingHandler) RejectBookingHandler(c *gin.Context) {
	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	b, err := h.Engine.RejectBooking(c.Request.Context(), c.Param("id"), c.GetString("userID"), body.Reason)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// CancelBookingHandler cancels a booking before confirmation.
func (h *BookingHandler) CancelBookingHandler(c *gin.Context) {
	b, err := h.Engine.CancelBooking(c.Request.Context(), c.Param("id"), c.GetString("userID"))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// CompleteBookingHandler records that the session took place.
func (h *BookingHandler) CompleteBookingHandler(c *gin.Context) {
	b, err := h.Engine.MarkCompleted(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// NoShowBookingHandler records that the payer never showed up.
func (h *BookingHandler) NoShowBookingHandler(c *gin.Context) {
	b, err := h.Engine.MarkNoShow(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// WatchBookingHandler streams the booking's current state and every later
// transition as server-sent events until the client disconnects.
func (h *BookingHandler) WatchBookingHandler(c *gin.Context) {
	updates, err := h.Watcher.Subscribe(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeBookingError(c, err)
		return
	}

	c.Stream(func(w io.Writer) bool {
		b, ok := <-updates
		if !ok {
			return false
		}
		c.SSEvent("booking", b)
		return true
	})
}
