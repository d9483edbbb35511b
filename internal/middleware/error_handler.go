package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"savingsplanner/internal/savingserr"
	"savingsplanner/internal/shared"
)

// respondWithDomainError renders a savings taxonomy error with the same
// envelope the module handlers use, so an error reaching the middleware
// through c.Errors or a panic looks no different to a client than one a
// handler returned directly.
func respondWithDomainError(c *gin.Context, logger *zap.Logger, appErr *savingserr.AppError) {
	logger.Error("Domain error response",
		zap.String("error_code", appErr.Code),
		zap.String("message", appErr.Message),
		zap.Int("status_code", appErr.StatusCode),
	)
	c.JSON(appErr.StatusCode, gin.H{"code": appErr.Code, "message": appErr.Message, "details": appErr.Details})
	c.Abort()
}

// asDomainError extracts a savings taxonomy error from an arbitrary value
// (a recovered panic or a gin error).
func asDomainError(v interface{}) (*savingserr.AppError, bool) {
	err, ok := v.(error)
	if !ok {
		return nil, false
	}
	var appErr *savingserr.AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// ErrorHandlerMiddleware handles panics and errors
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := GetLogger(c)

		defer func() {
			if err := recover(); err != nil {
				logger.Error("Panic recovered",
					zap.Any("error", err),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.String("client_ip", c.ClientIP()),
					zap.String("user_agent", c.GetHeader("User-Agent")),
					zap.Stack("stacktrace"),
				)

				// Check for a savings taxonomy error first
				if appErr, ok := asDomainError(err); ok {
					respondWithDomainError(c, logger, appErr)
					return
				}

				// Check if it's a shared AppError
				if appErr, ok := err.(*shared.AppError); ok {
					logger.Error("AppError panic",
						zap.String("error_code", appErr.Code),
						zap.String("message", appErr.Message),
						zap.Int("status_code", appErr.StatusCode),
					)
					shared.RespondWithAppError(c, appErr)
					c.Abort()
					return
				}

				// Generic error
				shared.RespondWithError(c, http.StatusInternalServerError, "Internal server error")
				c.Abort()
			}
		}()

		c.Next()

		// Check for errors in the context
		if len(c.Errors) > 0 {
			err := c.Errors.Last()
			logger.Error("Request error",
				zap.Error(err),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
			)

			// Savings taxonomy errors keep their own envelope
			if appErr, ok := asDomainError(err.Err); ok {
				respondWithDomainError(c, logger, appErr)
				return
			}

			if shared.IsAppError(err.Err) {
				shared.RespondWithAppError(c, shared.ToAppError(err.Err))
				c.Abort()
				return
			}

			shared.RespondWithError(c, http.StatusInternalServerError, "Internal server error")
			c.Abort()
		}
	}
}

// RecoveryMiddleware provides panic recovery
func RecoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger := GetLogger(c)
		logger.Error("Panic recovered in recovery middleware",
			zap.Any("error", recovered),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.GetHeader("User-Agent")),
			zap.Stack("stacktrace"),
		)
		shared.RespondWithError(c, http.StatusInternalServerError, "Internal server error")
		c.Abort()
	})
}
