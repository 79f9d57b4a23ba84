package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ideaforge/ideaforge-backend/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// RespondAppError maps the service error taxonomy onto HTTP. The code
// field carries the machine-readable kind so clients can branch on it.
func RespondAppError(c *gin.Context, aerr *apierr.Error) {
	if aerr == nil {
		RespondError(c, http.StatusInternalServerError, apierr.KindUnknown, nil)
		return
	}
	c.JSON(apierr.HTTPStatus(aerr.Kind), ErrorEnvelope{
		Error: APIError{
			Message: aerr.Message,
			Code:    string(aerr.Kind),
		},
	})
}

func RespondError(c *gin.Context, status int, code apierr.Kind, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    string(code),
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
