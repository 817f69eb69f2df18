package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/autotasks/internal/domain/entities"
	"github.com/taskmaster/autotasks/internal/infrastructure/logger"
	"github.com/taskmaster/autotasks/internal/ports"
)

// ContactHandler handles the contact book
type ContactHandler struct {
	contactService ports.ContactService
	logger         *logger.Logger
}

// NewContactHandler creates a new contact handler
func NewContactHandler(contactService ports.ContactService, logger *logger.Logger) *ContactHandler {
	return &ContactHandler{
		contactService: contactService,
		logger:         logger,
	}
}

// ListContacts godoc
// @Summary List contacts
// @Description Ordered by name; the total is returned in X-Total-Count
// @Tags contacts
// @Produce json
// @Param skip query int false "Offset"
// @Param limit query int false "Page size"
// @Param is_active query bool false "Active flag"
// @Param channel_type query string false "whatsapp, email or telegram"
// @Success 200 {array} entities.Contact
// @Security CookieAuth
// @Router /contacts [get]
func (h *ContactHandler) ListContacts(c echo.Context) error {
	filter, err := h.filter(c)
	if err != nil {
		return err
	}
	return h.list(c, filter)
}

// SearchContacts godoc
// @Summary Search contacts by name or channel value
// @Tags contacts
// @Produce json
// @Param q query string true "Search text"
// @Success 200 {array} entities.Contact
// @Security CookieAuth
// @Router /contacts/search [get]
func (h *ContactHandler) SearchContacts(c echo.Context) error {
	q := queryString(c, "q")
	if q == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing q parameter")
	}

	filter, err := h.filter(c)
	if err != nil {
		return err
	}
	filter.Search = q
	return h.list(c, filter)
}

func (h *ContactHandler) filter(c echo.Context) (ports.ContactFilter, error) {
	limit, offset, err := pagination(c)
	if err != nil {
		return ports.ContactFilter{}, err
	}

	isActive, err := queryBool(c, "is_active")
	if err != nil {
		return ports.ContactFilter{}, err
	}

	filter := ports.ContactFilter{
		UserID:   getUserIDFromContext(c),
		IsActive: isActive,
		Limit:    limit,
		Offset:   offset,
	}

	if s := c.QueryParam("channel_type"); s != "" {
		ct := entities.ChannelType(s)
		if !ct.IsValid() {
			return ports.ContactFilter{}, mapError(entities.ErrInvalidChannel)
		}
		filter.ChannelType = &ct
	}

	return filter, nil
}

func (h *ContactHandler) list(c echo.Context, filter ports.ContactFilter) error {
	contacts, total, err := h.contactService.ListContacts(c.Request().Context(), filter)
	if err != nil {
		h.logger.Errorw("List contacts failed", "error", err, "user_id", filter.UserID)
		return err
	}

	setTotal(c, total)
	return c.JSON(http.StatusOK, contacts)
}

// ContactStats godoc
// @Summary Count active contacts per channel
// @Tags contacts
// @Produce json
// @Success 200 {object} ports.ContactStats
// @Security CookieAuth
// @Router /contacts/stats/count [get]
func (h *ContactHandler) ContactStats(c echo.Context) error {
	stats, err := h.contactService.ContactStats(c.Request().Context(), getUserIDFromContext(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, stats)
}

// CreateContact godoc
// @Summary Create a contact
// @Tags contacts
// @Accept json
// @Produce json
// @Param request body ports.CreateContactRequest true "Contact data"
// @Success 201 {object} entities.Contact
// @Failure 422 {object} ports.ErrorResponse
// @Security CookieAuth
// @Router /contacts [post]
func (h *ContactHandler) CreateContact(c echo.Context) error {
	var req ports.CreateContactRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	contact, err := h.contactService.CreateContact(c.Request().Context(), getUserIDFromContext(c), req)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusCreated, contact)
}

// GetContact godoc
// @Summary Get a contact
// @Tags contacts
// @Produce json
// @Param id path int true "Contact ID"
// @Success 200 {object} entities.Contact
// @Failure 404 {object} ports.ErrorResponse
// @Security CookieAuth
// @Router /contacts/{id} [get]
func (h *ContactHandler) GetContact(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	contact, err := h.contactService.GetContact(c.Request().Context(), getUserIDFromContext(c), id)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, contact)
}

// UpdateContact godoc
// @Summary Update a contact
// @Tags contacts
// @Accept json
// @Produce json
// @Param id path int true "Contact ID"
// @Param request body ports.UpdateContactRequest true "Changes"
// @Success 200 {object} entities.Contact
// @Security CookieAuth
// @Router /contacts/{id} [put]
func (h *ContactHandler) UpdateContact(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req ports.UpdateContactRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	contact, err := h.contactService.UpdateContact(c.Request().Context(), getUserIDFromContext(c), id, req)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, contact)
}

// DeleteContact godoc
// @Summary Deactivate a contact
// @Tags contacts
// @Produce json
// @Param id path int true "Contact ID"
// @Success 204
// @Security CookieAuth
// @Router /contacts/{id} [delete]
func (h *ContactHandler) DeleteContact(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := h.contactService.DeleteContact(c.Request().Context(), getUserIDFromContext(c), id); err != nil {
		return mapError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// DeleteContactPermanent godoc
// @Summary Permanently delete a contact
// @Tags contacts
// @Produce json
// @Param id path int true "Contact ID"
// @Success 204
// @Security CookieAuth
// @Router /contacts/{id}/permanent [delete]
func (h *ContactHandler) DeleteContactPermanent(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := h.contactService.DeleteContactPermanent(c.Request().Context(), getUserIDFromContext(c), id); err != nil {
		return mapError(err)
	}

	return c.NoContent(http.StatusNoContent)
}
