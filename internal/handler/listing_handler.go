package handler

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sparkaj/sparkaj-api/internal/models"
	"github.com/sparkaj/sparkaj-api/internal/service"
	appErrors "github.com/sparkaj/sparkaj-api/pkg/errors"
	"github.com/sparkaj/sparkaj-api/pkg/response"
	"github.com/sparkaj/sparkaj-api/pkg/storage"
)

const maxImageSize = 5 << 20

var allowedImageExts = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// ListingHandler handles catalog endpoints for parking-spot listings.
type ListingHandler struct {
	service *service.ListingService
	images  *storage.LocalStorage
}

// NewListingHandler creates a new listing handler.
func NewListingHandler(svc *service.ListingService, images *storage.LocalStorage) *ListingHandler {
	return &ListingHandler{service: svc, images: images}
}

func listingFilterFromQuery(c *gin.Context) models.ListingFilter {
	var filter models.ListingFilter
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		filter.PageSize = size
	}
	filter.City = c.Query("city")
	filter.Search = c.Query("search")
	if raw := c.Query("price_min"); raw != "" {
		if price, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filter.PriceMin = &price
		}
	}
	if raw := c.Query("price_max"); raw != "" {
		if price, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filter.PriceMax = &price
		}
	}
	filter.SortBy = c.Query("sort_by")
	filter.SortOrder = c.Query("sort_order")
	return filter
}

// Search godoc
// @Summary Search listings
// @Description Search the public catalog of active listings
// @Tags Listings
// @Produce json
// @Param city query string false "City filter"
// @Param search query string false "Search term"
// @Param price_min query int false "Min price per hour in minor units"
// @Param price_max query int false "Max price per hour in minor units"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param sort_by query string false "Sort by"
// @Param sort_order query string false "Sort order"
// @Success 200 {object} response.Envelope
// @Router /listings [get]
func (h *ListingHandler) Search(c *gin.Context) {
	listings, pagination, err := h.service.Search(c.Request.Context(), listingFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, listings, pagination)
}

// Cities godoc
// @Summary List cities
// @Description Cities with at least one active listing
// @Tags Listings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /listings/cities [get]
func (h *ListingHandler) Cities(c *gin.Context) {
	cities, err := h.service.Cities(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cities, nil)
}

// Get godoc
// @Summary Get listing
// @Description Get one listing in the public view
// @Tags Listings
// @Produce json
// @Param id path string true "Listing ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /listings/{id} [get]
func (h *ListingHandler) Get(c *gin.Context) {
	callerID := ""
	if claims := claimsFromContext(c); claims != nil {
		callerID = claims.UserID
	}

	listing, err := h.service.Get(c.Request.Context(), c.Param("id"), callerID, models.ListingViewPublic)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, listing, nil)
}

// ListOwned godoc
// @Summary List own listings
// @Description List the caller's listings, including inactive ones
// @Tags Listings
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /listings/mine [get]
func (h *ListingHandler) ListOwned(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	listings, pagination, err := h.service.ListOwned(c.Request.Context(), claims.UserID, listingFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, listings, pagination)
}

// Create godoc
// @Summary Publish listing
// @Description Publish a new parking-spot listing
// @Tags Listings
// @Accept json
// @Produce json
// @Param payload body service.CreateListingRequest true "Listing payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /listings [post]
func (h *ListingHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid listing payload"))
		return
	}

	listing, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, listing)
}

// Update godoc
// @Summary Update listing
// @Description Update a listing owned by the caller
// @Tags Listings
// @Accept json
// @Produce json
// @Param id path string true "Listing ID"
// @Param payload body service.UpdateListingRequest true "Listing payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /listings/{id} [put]
func (h *ListingHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.UpdateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid listing payload"))
		return
	}

	listing, err := h.service.Update(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, listing, nil)
}

// Delete godoc
// @Summary Remove listing
// @Description Deactivate a listing; existing reservations keep their rows
// @Tags Listings
// @Produce json
// @Param id path string true "Listing ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /listings/{id} [delete]
func (h *ListingHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Delete(c.Request.Context(), claims.UserID, isAdmin(claims), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UploadImage godoc
// @Summary Upload listing image
// @Description Attach a photo to a listing owned by the caller
// @Tags Listings
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Listing ID"
// @Param image formData file true "JPEG, PNG or WebP image up to 5 MB"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /listings/{id}/image [post]
func (h *ListingHandler) UploadImage(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "image file required"))
		return
	}
	if file.Size > maxImageSize {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "image exceeds the 5 MB limit"))
		return
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if _, ok := allowedImageExts[ext]; !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unsupported image format"))
		return
	}

	src, err := file.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer src.Close() //nolint:errcheck

	id := c.Param("id")
	path := fmt.Sprintf("listings/%s%s", id, ext)
	if _, err := h.images.SaveStream(path, src); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store image"))
		return
	}

	if err := h.service.SetImage(c.Request.Context(), claims.UserID, id, path); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"image_path": path}, nil)
}

// Image godoc
// @Summary Serve listing image
// @Description Stream the stored listing photo
// @Tags Listings
// @Produce image/jpeg
// @Param id path string true "Listing ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /listings/{id}/image [get]
func (h *ListingHandler) Image(c *gin.Context) {
	listing, err := h.service.Get(c.Request.Context(), c.Param("id"), "", models.ListingViewPublic)
	if err != nil {
		response.Error(c, err)
		return
	}
	if listing.ImagePath == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "listing has no image"))
		return
	}

	file, err := h.images.Open(*listing.ImagePath)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "image file not found"))
		return
	}
	defer file.Close() //nolint:errcheck

	ext := strings.ToLower(filepath.Ext(*listing.ImagePath))
	contentType := allowedImageExts[ext]
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, file)
}
