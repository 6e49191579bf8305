package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/campusdesk/college-admin-api/pkg/errors"
	"github.com/campusdesk/college-admin-api/pkg/response"
)

func pageParams(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		page = 1
	}
	size, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil {
		size = 20
	}
	return page, size
}

// optionalBool parses a boolean query value with strconv.ParseBool. An absent
// or empty value yields nil. Unparsable values answer 400 and report false.
func optionalBool(c *gin.Context, key string) (*bool, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, key+" must be a boolean"))
		return nil, false
	}
	return &v, true
}

// directoryQuery carries the list parameters shared by the teacher and
// student directories.
type directoryQuery struct {
	Search     string
	Department string
	Active     *bool
	Sort       string
	Order      string
	Page       int
	Size       int
}

func readDirectoryQuery(c *gin.Context) (directoryQuery, bool) {
	active, ok := optionalBool(c, "active")
	if !ok {
		return directoryQuery{}, false
	}
	q := directoryQuery{
		Search:     strings.TrimSpace(c.Query("search")),
		Department: strings.TrimSpace(c.Query("department")),
		Active:     active,
		Sort:       strings.TrimSpace(c.Query("sort")),
		Order:      strings.TrimSpace(c.Query("order")),
	}
	q.Page, q.Size = pageParams(c)
	return q, true
}

// bindJSON decodes the body into dst, answering 400 itself on failure.
func bindJSON(c *gin.Context, dst interface{}, what string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid "+what+" payload"))
		return false
	}
	return true
}
