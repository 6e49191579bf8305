package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusdesk/college-admin-api/internal/models"
	appErrors "github.com/campusdesk/college-admin-api/pkg/errors"
	"github.com/campusdesk/college-admin-api/pkg/middleware/requestid"
)

// Envelope is the body of every JSON response. Exactly one of Data or Error is set.
type Envelope struct {
	Data       interface{}            `json:"data,omitempty"`
	Error      *appErrors.Error       `json:"error,omitempty"`
	Pagination *models.Pagination     `json:"pagination,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
}

// JSON writes data with optional pagination. An extra meta map is attached
// when it is non-empty.
func JSON(c *gin.Context, status int, data interface{}, pagination *models.Pagination, meta ...map[string]interface{}) {
	env := Envelope{Data: data, Pagination: pagination}
	if len(meta) > 0 && len(meta[0]) > 0 {
		env.Meta = meta[0]
	}
	write(c, status, env)
}

func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data, nil)
}

// Error maps err onto its application error. Scheduling conflicts expose the
// colliding lecture as meta.conflict, and the request id is echoed so clients
// can quote it. Server faults are also recorded on the gin context for the
// access log.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	env := Envelope{Error: appErr}

	meta := make(map[string]interface{})
	var conflict *models.LectureConflictError
	if errors.As(err, &conflict) {
		meta["conflict"] = conflict.Conflict
	}
	if id := requestid.Value(c); id != "" {
		meta["request_id"] = id
	}
	if len(meta) > 0 {
		env.Meta = meta
	}
	if appErr.Status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	write(c, appErr.Status, env)
}

func NoContent(c *gin.Context) {
	noStore(c)
	c.Status(http.StatusNoContent)
}

func write(c *gin.Context, status int, env Envelope) {
	noStore(c)
	c.JSON(status, env)
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}
