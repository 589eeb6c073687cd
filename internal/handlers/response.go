package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/prudhvinik1/medsync/internal/xerrors"
	"go.uber.org/zap"
)

type APIResponse struct {
	Status  string      `json:"status"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(APIResponse{
		Status:  "success",
		Message: message,
		Data:    data,
	})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(APIResponse{
		Status:  "error",
		Code:    code,
		Message: message,
	})
}

var statusByCode = map[string]int{
	xerrors.ErrPasswordMismatch.Code:          http.StatusBadRequest,
	xerrors.ErrAdminRegistrationDisabled.Code: http.StatusForbidden,
	xerrors.ErrTermsNotAccepted.Code:          http.StatusBadRequest,
	xerrors.ErrInvalidRole.Code:               http.StatusBadRequest,
	xerrors.ErrSpamDetected.Code:              http.StatusTooManyRequests,
	xerrors.ErrEmailExists.Code:               http.StatusConflict,
	xerrors.ErrDuplicateEntry.Code:            http.StatusConflict,
	xerrors.ErrInvalidCredentials.Code:        http.StatusUnauthorized,
	xerrors.ErrEmailNotVerified.Code:          http.StatusForbidden,
	xerrors.ErrAccountPending.Code:            http.StatusForbidden,
	xerrors.ErrUnauthorized.Code:              http.StatusUnauthorized,
	xerrors.ErrInvalidToken.Code:              http.StatusBadRequest,
	xerrors.ErrTokenAlreadyUsed.Code:          http.StatusBadRequest,
	xerrors.ErrTokenExpired.Code:              http.StatusBadRequest,
	xerrors.ErrAlreadyVerified.Code:           http.StatusBadRequest,
	xerrors.ErrUserDeleted.Code:               http.StatusForbidden,
	xerrors.ErrResendLimitExceeded.Code:       http.StatusTooManyRequests,
	xerrors.ErrResourceNotFound.Code:          http.StatusNotFound,
	xerrors.ErrInvalidJSON.Code:               http.StatusBadRequest,
	xerrors.ErrInvalidDate.Code:               http.StatusBadRequest,
	xerrors.ErrConcurrentModification.Code:    http.StatusConflict,
	xerrors.ErrFileEmpty.Code:                 http.StatusBadRequest,
	xerrors.ErrFileTooLarge.Code:              http.StatusRequestEntityTooLarge,
	xerrors.ErrInvalidFileType.Code:           http.StatusUnsupportedMediaType,
	xerrors.ErrFileUploadFailed.Code:          http.StatusBadGateway,
}

// writeServiceError renders business errors with their code and message and
// hides everything else behind a 500.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code := xerrors.Code(err)
	status, ok := statusByCode[code]
	if !ok {
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", xerrors.Message(err))
		return
	}
	writeError(w, status, code, xerrors.Message(err))
}
