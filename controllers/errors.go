package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/linkfeed/preview"
	"github.com/cppla/linkfeed/services"
	"github.com/cppla/linkfeed/store"
	"github.com/cppla/linkfeed/utils"
)

const internalErrorMessage = "an internal error occurred"

// classify maps a service error to an HTTP status and a stable error kind.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrPreviewResolutionFailed):
		return http.StatusConflict, "PreviewResolutionFailed"
	case errors.Is(err, services.ErrAuthorNotFound):
		return http.StatusConflict, "AuthorNotFound"
	case errors.Is(err, preview.ErrInvalidURL):
		return http.StatusBadRequest, "InvalidUrl"
	case errors.Is(err, store.ErrValidation), errors.Is(err, preview.ErrInvalidAssetName):
		return http.StatusBadRequest, "ValidationError"
	case errors.Is(err, store.ErrDuplicateEmail):
		return http.StatusConflict, "DuplicateEmail"
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "NotFound"
	case errors.Is(err, store.ErrConcurrentModification):
		return http.StatusConflict, "ConcurrentModification"
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusBadRequest, "InvalidCredentials"
	case errors.Is(err, utils.ErrAuthFailure):
		return http.StatusUnauthorized, "AuthFailure"
	default:
		return http.StatusInternalServerError, "InternalError"
	}
}

// handleServiceError writes err in the {message, error} shape. Internal
// errors are logged and replaced by a generic message.
func handleServiceError(ctx *gin.Context, err error) {
	status, kind := classify(err)
	if status == http.StatusInternalServerError {
		utils.Logger.Error("unexpected error",
			zap.String("path", ctx.FullPath()),
			zap.Error(err))
		utils.Error(ctx, status, kind, internalErrorMessage)
		return
	}
	utils.Error(ctx, status, kind, err.Error())
}

func badRequest(ctx *gin.Context, message string) {
	utils.Error(ctx, http.StatusBadRequest, "ValidationError", message)
}

func forbidden(ctx *gin.Context, message string) {
	utils.Error(ctx, http.StatusForbidden, "Forbidden", message)
}
