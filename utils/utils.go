package utils

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/nijaru/yt-tutor/errors"
	"github.com/nijaru/yt-tutor/middleware"
)

// RespondWithError writes err as a JSON error body. Errors that are not an
// AppError are reported as a generic 500 so internal details stay in the log.
func RespondWithError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := errors.As(err)
	if !ok {
		appErr = errors.Internal("utils.RespondWithError", err, "Internal server error")
	}

	entry := middleware.GetLogger(r.Context()).WithFields(logrus.Fields{
		"status_code": appErr.Code,
		"op":          appErr.Op,
	}).WithError(appErr)

	if appErr.Code >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Warn("Request rejected")
	}

	RespondWithJSON(w, r, appErr.Code, appErr)
}

func RespondWithJSON(w http.ResponseWriter, r *http.Request, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		middleware.GetLogger(r.Context()).WithError(err).Error("Failed to encode JSON response")
	}
}
