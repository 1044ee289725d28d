package handlers

import (
	"net/http"

	"github.com/01moynul/homewareontap-golang/internal/models"
	"github.com/gin-gonic/gin"
)

// AddressInput is the add-address form. Validation is left to the address
// manager so add and update share one rule set.
type AddressInput struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Phone      string `json:"phone"`
	Street     string `json:"street"`
	City       string `json:"city"`
	Province   string `json:"province"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Type       string `json:"type"`
	IsDefault  bool   `json:"is_default"`
}

// GetAddresses is the handler for GET /v1/addresses
func (h *Handlers) GetAddresses(c *gin.Context) {
	addresses, err := h.Addresses.List(c.Request.Context(), currentUser(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"addresses": addresses})
}

// GetAddress is the handler for GET /v1/addresses/:id
func (h *Handlers) GetAddress(c *gin.Context) {
	id, err := paramID(c, "id", "address")
	if err != nil {
		h.respondError(c, err)
		return
	}
	a, err := h.Addresses.Get(c.Request.Context(), id, currentUser(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": a})
}

// CreateAddress is the handler for POST /v1/addresses
func (h *Handlers) CreateAddress(c *gin.Context) {
	var input AddressInput
	if err := bindJSON(c, &input); err != nil {
		h.respondError(c, err)
		return
	}

	id, err := h.Addresses.Add(c.Request.Context(), models.Address{
		UserID:     currentUser(c),
		FirstName:  input.FirstName,
		LastName:   input.LastName,
		Phone:      input.Phone,
		Street:     input.Street,
		City:       input.City,
		Province:   input.Province,
		PostalCode: input.PostalCode,
		Country:    input.Country,
		Type:       input.Type,
		IsDefault:  input.IsDefault,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Address added", "id": id})
}

// UpdateAddress is the handler for PUT /v1/addresses/:id
// Only the fields present in the body change.
func (h *Handlers) UpdateAddress(c *gin.Context) {
	id, err := paramID(c, "id", "address")
	if err != nil {
		h.respondError(c, err)
		return
	}
	var patch models.AddressPatch
	if err := bindJSON(c, &patch); err != nil {
		h.respondError(c, err)
		return
	}

	if err := h.Addresses.Update(c.Request.Context(), id, currentUser(c), patch); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Address updated"})
}

// SetDefaultAddress is the handler for POST /v1/addresses/:id/default
func (h *Handlers) SetDefaultAddress(c *gin.Context) {
	id, err := paramID(c, "id", "address")
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.Addresses.SetDefault(c.Request.Context(), id, currentUser(c)); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Default address updated"})
}

// DeleteAddress is the handler for DELETE /v1/addresses/:id
func (h *Handlers) DeleteAddress(c *gin.Context) {
	id, err := paramID(c, "id", "address")
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.Addresses.Delete(c.Request.Context(), id, currentUser(c)); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Address deleted"})
}
