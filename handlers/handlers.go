package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nijaru/yt-tutor/config"
	"github.com/nijaru/yt-tutor/errors"
	"github.com/nijaru/yt-tutor/middleware"
	"github.com/nijaru/yt-tutor/session"
	"github.com/nijaru/yt-tutor/tutor"
	"github.com/nijaru/yt-tutor/utils"
	"github.com/nijaru/yt-tutor/validation"
)

const (
	maxBodyBytes = 1 << 20

	noTranscriptMessage = "Please load a transcript first."
	completionMessage   = "The answer could not be generated. Please try again later."
)

type Handler struct {
	tutor  *tutor.Service
	store  session.Store
	cookie config.SessionConfig
}

func New(svc *tutor.Service, store session.Store, cookie config.SessionConfig) *Handler {
	if cookie.CookieName == "" {
		cookie.CookieName = "session_id"
	}
	return &Handler{tutor: svc, store: store, cookie: cookie}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.Index)
	mux.HandleFunc("POST /transcript", h.LoadTranscript)
	mux.HandleFunc("POST /ask", h.Ask)
	mux.HandleFunc("POST /api/transcript", h.APILoadTranscript)
	mux.HandleFunc("POST /api/ask", h.APIAsk)
	mux.HandleFunc("GET /health", HealthCheckHandler)
	return mux
}

// withSession loads the caller's session, creating one and setting the cookie
// when none is found, and runs fn under that session's lock. The session is
// saved after fn returns.
func (h *Handler) withSession(w http.ResponseWriter, r *http.Request, fn func(*session.Session)) error {
	const op = "handlers.withSession"
	ctx := r.Context()
	logger := middleware.GetLogger(ctx)

	var sess *session.Session
	if c, err := r.Cookie(h.cookie.CookieName); err == nil && c.Value != "" {
		unlock := session.Lock(c.Value)
		defer unlock()

		sess, err = h.store.Get(ctx, c.Value)
		if err != nil && !stderrors.Is(err, session.ErrNotFound) {
			return errors.Internal(op, err, "Failed to load session")
		}
	}

	if sess == nil {
		sess = session.New()
		unlock := session.Lock(sess.ID)
		defer unlock()

		h.setCookie(w, sess.ID)
		logger.WithField("session_id", sess.ID).Debug("Created session")
	}

	fn(sess)

	if err := h.store.Save(ctx, sess); err != nil {
		return errors.Internal(op, err, "Failed to save session")
	}
	return nil
}

func (h *Handler) setCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookie.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// peekSession returns the caller's live session without creating one.
func (h *Handler) peekSession(ctx context.Context, r *http.Request) *session.Session {
	c, err := r.Cookie(h.cookie.CookieName)
	if err != nil || c.Value == "" {
		return nil
	}
	sess, err := h.store.Get(ctx, c.Value)
	if err != nil {
		if !stderrors.Is(err, session.ErrNotFound) {
			middleware.GetLogger(ctx).WithError(err).Warn("Failed to load session")
		}
		return nil
	}
	return sess
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	data := newPageData("", false)
	if sess := h.peekSession(r.Context(), r); sess != nil {
		data = newPageData(sess.VideoURL, sess.HasTranscript())
	}
	renderPage(w, r, http.StatusOK, data)
}

func (h *Handler) LoadTranscript(w http.ResponseWriter, r *http.Request) {
	logger := middleware.GetLogger(r.Context())
	rawURL := r.FormValue("url")

	if err := validation.ValidateURL(rawURL); err != nil {
		logger.WithField("url", rawURL).WithError(err).Warn("Invalid URL")
		data := newPageData(rawURL, false)
		if sess := h.peekSession(r.Context(), r); sess != nil {
			data.HasTranscript = sess.HasTranscript()
		}
		data.Error = errorMessage(err)
		renderPage(w, r, http.StatusBadRequest, data)
		return
	}

	var data pageData
	err := h.withSession(w, r, func(sess *session.Session) {
		res := h.tutor.LoadTranscript(r.Context(), sess, rawURL)
		data = newPageData(res.VideoURL, sess.HasTranscript())
		if res.OK() {
			data.Characters = res.Characters
			data.Status = res.Message()
		} else {
			data.Error = res.Message()
		}
	})
	if err != nil {
		utils.RespondWithError(w, r, err)
		return
	}

	renderPage(w, r, http.StatusOK, data)
}

func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	question := r.FormValue("question")

	code := http.StatusOK
	var data pageData
	err := h.withSession(w, r, func(sess *session.Session) {
		data = newPageData(sess.VideoURL, sess.HasTranscript())
		data.Question = question

		if sess.HasTranscript() {
			if err := validation.ValidateQuestion(question); err != nil {
				code = http.StatusBadRequest
				data.Error = errorMessage(err)
				return
			}
		}

		answer, err := h.tutor.Ask(r.Context(), sess, question)
		if err != nil {
			appErr := askError(err)
			code = appErr.Code
			data.Error = appErr.Message
			return
		}
		data.Answer = answer
	})
	if err != nil {
		utils.RespondWithError(w, r, err)
		return
	}

	renderPage(w, r, code, data)
}

type transcriptRequest struct {
	URL string `json:"url"`
}

type transcriptResponse struct {
	VideoURL   string `json:"video_url"`
	Loaded     bool   `json:"loaded"`
	Failure    string `json:"failure,omitempty"`
	Message    string `json:"message"`
	Characters int    `json:"characters"`
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

func (h *Handler) APILoadTranscript(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.APILoadTranscript"
	start := time.Now()

	var req transcriptRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.RespondWithError(w, r, errors.InvalidInput(op, err, "Invalid request body"))
		return
	}
	if err := validation.ValidateURL(req.URL); err != nil {
		utils.RespondWithError(w, r, err)
		return
	}

	var resp transcriptResponse
	err := h.withSession(w, r, func(sess *session.Session) {
		res := h.tutor.LoadTranscript(r.Context(), sess, req.URL)
		resp = transcriptResponse{
			VideoURL:   res.VideoURL,
			Loaded:     res.OK(),
			Message:    res.Message(),
			Characters: res.Characters,
		}
		if !res.OK() {
			resp.Failure = res.Result.Failure.String()
		}
	})
	if err != nil {
		utils.RespondWithError(w, r, err)
		return
	}

	middleware.GetLogger(r.Context()).WithFields(logrus.Fields{
		"video_url": resp.VideoURL,
		"loaded":    resp.Loaded,
		"duration":  time.Since(start),
	}).Debug("Transcript request handled")

	utils.RespondWithJSON(w, r, http.StatusOK, resp)
}

func (h *Handler) APIAsk(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.APIAsk"

	var req askRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.RespondWithError(w, r, errors.InvalidInput(op, err, "Invalid request body"))
		return
	}

	var (
		answer string
		askErr error
	)
	err := h.withSession(w, r, func(sess *session.Session) {
		if !sess.HasTranscript() {
			askErr = tutor.ErrNoTranscript
			return
		}
		if err := validation.ValidateQuestion(req.Question); err != nil {
			askErr = err
			return
		}
		answer, askErr = h.tutor.Ask(r.Context(), sess, req.Question)
	})
	if err != nil {
		utils.RespondWithError(w, r, err)
		return
	}
	if askErr != nil {
		utils.RespondWithError(w, r, askError(askErr))
		return
	}

	utils.RespondWithJSON(w, r, http.StatusOK, askResponse{Question: req.Question, Answer: answer})
}

// askError maps a question failure onto the error shown to the client.
// Completion failures get a generic message; the cause is only logged.
func askError(err error) *errors.AppError {
	const op = "handlers.Ask"

	if appErr, ok := errors.As(err); ok {
		return appErr
	}
	switch {
	case stderrors.Is(err, tutor.ErrNoTranscript):
		return errors.Conflict(op, err, noTranscriptMessage)
	case stderrors.Is(err, tutor.ErrEmptyQuestion):
		return errors.InvalidInput(op, err, "Question is required")
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.E(op, err, "The request timed out", http.StatusGatewayTimeout)
	default:
		return errors.BadGateway(op, err, completionMessage)
	}
}

func errorMessage(err error) string {
	if appErr, ok := errors.As(err); ok {
		return appErr.Message
	}
	return err.Error()
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	response := struct {
		Status   string        `json:"status"`
		Duration time.Duration `json:"duration"`
	}{
		Status:   "ok",
		Duration: time.Since(start),
	}

	utils.RespondWithJSON(w, r, http.StatusOK, response)
}
