package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campusdesk/college-admin-api/internal/models"
	"github.com/campusdesk/college-admin-api/internal/service"
	"github.com/campusdesk/college-admin-api/pkg/response"
)

func sendDocument(c *gin.Context, doc *service.ExportDocument) {
	c.Header("Cache-Control", "no-store")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	c.Header("X-Export-Rows", strconv.Itoa(doc.Rows))
	c.Data(http.StatusOK, doc.ContentType, doc.Body)
}

// sendExport writes an inline document, or 202 with the job when the export was queued.
func sendExport(c *gin.Context, doc *service.ExportDocument, job *models.ExportJob) {
	if job != nil {
		c.Header("Location", job.StatusURL)
		response.JSON(c, http.StatusAccepted, job, nil)
		return
	}
	sendDocument(c, doc)
}
