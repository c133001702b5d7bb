package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pulsefit/pulsefit-server/apperr"
)

// writeError maps an engine error kind onto an HTTP status.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindConflict:
		status = http.StatusConflict
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindForbidden:
		status = http.StatusForbidden
	case apperr.KindPrecondition:
		status = http.StatusPreconditionFailed
	case apperr.KindUnavailable:
		status = http.StatusServiceUnavailable
	}

	msg := "internal error"
	var ae *apperr.Error
	if errors.As(err, &ae) {
		msg = ae.Msg
	}
	c.JSON(status, gin.H{"error": msg})
}
