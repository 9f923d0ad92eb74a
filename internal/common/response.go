package common

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Envelope is the body of every successful JSON response.
type Envelope struct {
	Status     string      `json:"status"`
	Message    string      `json:"message,omitempty"`
	Data       interface{} `json:"data,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// RequestLogger returns the request-scoped logger installed by the logging
// middleware, or a no-op logger.
func RequestLogger(c *gin.Context) *zap.Logger {
	if v, ok := c.Get(LoggerKey); ok {
		if l, ok := v.(*zap.Logger); ok {
			return l
		}
	}
	return zap.NewNop()
}

// RespondWithError aborts with the APIError behind err. Any other error is
// logged and answered as 500; its text is only exposed in debug mode.
func RespondWithError(c *gin.Context, err error) {
	apiErr, ok := IsAPIError(err)
	if !ok {
		RequestLogger(c).Error("Unhandled error reached a handler", zap.Error(err))
		apiErr = ErrInternalServer
		if gin.Mode() == gin.DebugMode {
			apiErr = apiErr.WithDetails(err.Error())
		}
	}
	c.AbortWithStatusJSON(apiErr.StatusCode, apiErr)
}

// RespondSuccess writes data in the success envelope.
func RespondSuccess(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Envelope{Status: "success", Message: message, Data: data})
}

func RespondOK(c *gin.Context, message string, data interface{}) {
	RespondSuccess(c, http.StatusOK, message, data)
}

func RespondCreated(c *gin.Context, message string, data interface{}) {
	RespondSuccess(c, http.StatusCreated, message, data)
}

// RespondPaginated always includes data, even when the page is empty.
func RespondPaginated(c *gin.Context, message string, data interface{}, pagination *Pagination) {
	if data == nil {
		data = []struct{}{}
	}
	c.JSON(http.StatusOK, Envelope{Status: "success", Message: message, Data: data, Pagination: pagination})
}
