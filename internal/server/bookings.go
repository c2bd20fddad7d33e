package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	bookingdomain "github.com/smallbiznis/deskhive/internal/booking/domain"
	"github.com/smallbiznis/deskhive/internal/providers/pdf"
)

type createBookingRequest struct {
	AreaID     string  `json:"area_id"`
	GuestCount int     `json:"guest_count"`
	Hours      float64 `json:"hours"`
	StartAt    string  `json:"start_at"`
}

func (s *Server) CreateBooking(c *gin.Context) {
	cust, err := s.currentCustomer(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	areaID, err := snowflake.ParseString(req.AreaID)
	if err != nil || areaID == 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	startAt, err := time.Parse(time.RFC3339, req.StartAt)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	booking, err := s.bookingSvc.Create(c.Request.Context(), bookingdomain.CreateInput{
		AreaID:     areaID,
		CustomerID: cust.ID,
		GuestCount: req.GuestCount,
		Hours:      req.Hours,
		StartAt:    startAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": booking})
}

func (s *Server) ListBookings(c *gin.Context) {
	cust, err := s.currentCustomer(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	bookings, err := s.bookingSvc.ListByCustomer(c.Request.Context(), cust.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": bookings})
}

func (s *Server) GetBookingByID(c *gin.Context) {
	cust, err := s.currentCustomer(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	booking, err := s.bookingByIDForCustomer(c, cust.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": booking})
}

func (s *Server) CancelBooking(c *gin.Context) {
	cust, err := s.currentCustomer(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	bookingID, err := snowflake.ParseString(c.Param("id"))
	if err != nil || bookingID == 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if err := s.bookingSvc.Cancel(c.Request.Context(), cust.ID, bookingID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"status": string(bookingdomain.StatusCancelled)}})
}

func (s *Server) BookingReceipt(c *gin.Context) {
	cust, err := s.currentCustomer(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	booking, err := s.bookingByIDForCustomer(c, cust.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	spaceName, areaName := "", ""
	if sp, err := s.spaceSvc.Get(c.Request.Context(), booking.SpaceID); err == nil {
		spaceName = sp.Name
	}
	if area, err := s.areaSvc.Get(c.Request.Context(), booking.AreaID); err == nil {
		areaName = area.Name
	}

	reader, err := s.pdfProvider.GenerateReceipt(c.Request.Context(), pdf.ReceiptData{
		BookingRef:    booking.ID.String(),
		Status:        string(booking.Status),
		SpaceName:     spaceName,
		AreaName:      areaName,
		CustomerName:  cust.Name,
		CustomerEmail: cust.Email,
		Window: fmt.Sprintf("%s - %s",
			booking.StartAt.Format("2006-01-02 15:04"),
			booking.EndAt.Format("2006-01-02 15:04")),
		Guests: strconv.Itoa(booking.GuestCount),
		Hours:  strconv.FormatFloat(booking.Hours, 'f', -1, 64),
		Total:  formatMoney(booking.PriceCents, booking.Currency),
		PaidOn: booking.UpdatedAt.Format("2006-01-02"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=receipt-%s.pdf", booking.ID))
	c.DataFromReader(http.StatusOK, -1, "application/pdf", reader, nil)
}

func (s *Server) ListPartnerBookings(c *gin.Context) {
	partner, err := s.currentPartner(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	bookings, err := s.bookingSvc.ListByPartner(c.Request.Context(), partner.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": bookings})
}

func (s *Server) ApproveBooking(c *gin.Context) {
	partner, err := s.currentPartner(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	bookingID, err := snowflake.ParseString(c.Param("id"))
	if err != nil || bookingID == 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	outcome, err := s.bookingSvc.Approve(c.Request.Context(), partner.ID, bookingID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"outcome": string(outcome)}})
}

func (s *Server) CheckInBooking(c *gin.Context) {
	s.hostBookingAction(c, s.bookingSvc.CheckIn, bookingdomain.StatusCheckedIn)
}

func (s *Server) CheckOutBooking(c *gin.Context) {
	s.hostBookingAction(c, s.bookingSvc.CheckOut, bookingdomain.StatusCheckedOut)
}

func (s *Server) hostBookingAction(c *gin.Context, action func(context.Context, snowflake.ID, snowflake.ID) error, resulting bookingdomain.Status) {
	partner, err := s.currentPartner(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	bookingID, err := snowflake.ParseString(c.Param("id"))
	if err != nil || bookingID == 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if err := action(c.Request.Context(), partner.ID, bookingID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"status": string(resulting)}})
}

func (s *Server) RejectBooking(c *gin.Context) {
	partner, err := s.currentPartner(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	bookingID, err := snowflake.ParseString(c.Param("id"))
	if err != nil || bookingID == 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if err := s.bookingSvc.Reject(c.Request.Context(), partner.ID, bookingID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"status": string(bookingdomain.StatusRejected)}})
}

func (s *Server) bookingByIDForCustomer(c *gin.Context, customerID snowflake.ID) (*bookingdomain.Booking, error) {
	bookingID, err := snowflake.ParseString(c.Param("id"))
	if err != nil || bookingID == 0 {
		return nil, ErrInvalidRequest
	}
	booking, err := s.bookingSvc.Get(c.Request.Context(), bookingID)
	if err != nil {
		return nil, err
	}
	if booking.CustomerID != customerID {
		return nil, bookingdomain.ErrNotBookingOwner
	}
	return booking, nil
}

func formatMoney(cents int64, currency string) string {
	return fmt.Sprintf("%s %d.%02d", currency, cents/100, cents%100)
}
