package handlers

import (
	"strconv"
	"strings"

	"telugulearn/internal/models"

	"github.com/gin-gonic/gin"
)

// Pagination bounds shared by list endpoints
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ParsePagination parses standard pagination query params from the request.
// It enforces bounds and applies defaults when values are missing or invalid.
func ParsePagination(c *gin.Context, defaultPage, defaultSize, maxSize int) (int, int) {
	pageStr := c.DefaultQuery("page", strconv.Itoa(defaultPage))
	sizeStr := c.DefaultQuery("page_size", strconv.Itoa(defaultSize))

	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		page = defaultPage
	}

	size, err := strconv.Atoi(sizeStr)
	if err != nil || size < 1 {
		size = defaultSize
	}
	if size > maxSize {
		size = maxSize
	}

	return page, size
}

// ParseFilters returns a map of non-empty trimmed query params for the given keys.
func ParseFilters(c *gin.Context, keys ...string) map[string]string {
	filters := make(map[string]string, len(keys))
	for _, key := range keys {
		if val := strings.TrimSpace(c.Query(key)); val != "" {
			filters[key] = val
		}
	}
	return filters
}

// WritePaginated writes the success envelope with the page of items under
// itemsKey next to the pagination block.
func WritePaginated(c *gin.Context, message, itemsKey string, items interface{}, page, pageSize, total int, extra gin.H) {
	data := gin.H{
		itemsKey:     items,
		"pagination": models.NewPagination(page, pageSize, total),
	}
	for k, v := range extra {
		data[k] = v
	}
	respondOK(c, message, data)
}
