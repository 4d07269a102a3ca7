package listing

import (
	"errors"
	"log"
	"net/http"
	"time"

	"tradenest-backend/internal/middleware"
	"tradenest-backend/internal/models"
	"tradenest-backend/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler exposes listing-related HTTP handlers.
type Handler struct {
	listingStore store.ListingStore
	userStore    store.UserStore
}

// NewHandler creates a Handler.
func NewHandler(ls store.ListingStore, us store.UserStore) *Handler {
	return &Handler{listingStore: ls, userStore: us}
}

// CreateListing creates a listing owned by the current user.
// POST /listings
func (h *Handler) CreateListing(c *gin.Context) {
	var req models.CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
		return
	}

	sellerID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user session"})
		return
	}

	now := time.Now().UTC()
	listing := &models.Listing{
		ID:          uuid.New(),
		SellerID:    sellerID,
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Status:      models.ListingActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.listingStore.CreateListing(c.Request.Context(), listing); err != nil {
		log.Printf("CreateListing: Failed for seller %s: %v", sellerID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create listing"})
		return
	}

	c.JSON(http.StatusCreated, listing)
}

// GetListingByID returns a listing with seller display info.
// GET /listings/:id
func (h *Handler) GetListingByID(c *gin.Context) {
	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID format"})
		return
	}

	listing, err := h.listingStore.GetListingByID(c.Request.Context(), listingID)
	if err != nil {
		if errors.Is(err, store.ErrListingNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
			return
		}
		log.Printf("GetListingByID: Failed for listing %s: %v", listingID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve listing"})
		return
	}

	seller, err := h.userStore.GetUserByID(c.Request.Context(), listing.SellerID)
	if err != nil {
		log.Printf("GetListingByID: Could not fetch seller %s for listing %s: %v", listing.SellerID, listingID, err)
	} else {
		listing.Seller = seller.ToPublicUser()
	}

	c.JSON(http.StatusOK, listing)
}

// GetMyListings returns the current user's listings, newest first.
// GET /listings/mine
func (h *Handler) GetMyListings(c *gin.Context) {
	sellerID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user session"})
		return
	}

	listings, err := h.listingStore.ListListingsBySeller(c.Request.Context(), sellerID)
	if err != nil {
		log.Printf("GetMyListings: Failed for seller %s: %v", sellerID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve listings"})
		return
	}
	if listings == nil {
		listings = make([]*models.Listing, 0)
	}
	c.JSON(http.StatusOK, listings)
}
