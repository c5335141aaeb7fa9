package stubserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-cli/internal/model"
	"github.com/stemsi/exstem-cli/internal/response"
	"github.com/stemsi/exstem-cli/internal/validator"
)

// Handler serves the exam API endpoints against the in-memory store.
type Handler struct {
	store  *Store
	issuer *TokenIssuer
	log    zerolog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(store *Store, issuer *TokenIssuer, log zerolog.Logger) *Handler {
	return &Handler{
		store:  store,
		issuer: issuer,
		log:    log.With().Str("component", "stubserver").Logger(),
	}
}

// Login godoc
// POST /api/v1/auth/login
// Validates email + password and returns a bearer token with the user.
func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	user, err := h.store.Authenticate(req.Email, req.Password)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	token, err := h.issuer.Issue(user)
	if err != nil {
		h.log.Error().Err(err).Msg("issue token")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, model.LoginResponse{AccessToken: token, User: *user})
}

// Refresh godoc
// POST /api/v1/auth/refresh
// Exchanges a signed (possibly expired) token for a fresh one.
func (h *Handler) Refresh(c *gin.Context) {
	tokenStr := bearerToken(c)
	if tokenStr == "" {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	claims, err := h.issuer.Validate(tokenStr, true)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
		return
	}

	user, err := h.store.UserByID(claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
		return
	}

	token, err := h.issuer.Issue(user)
	if err != nil {
		h.log.Error().Err(err).Msg("issue token")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, model.LoginResponse{AccessToken: token, User: *user})
}

// Me godoc
// GET /api/v1/users/me
// Returns the authenticated user's profile.
func (h *Handler) Me(c *gin.Context) {
	claims := GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	user, err := h.store.UserByID(claims.UserID)
	if err != nil {
		h.failStore(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// ListExams godoc
// GET /api/v1/exams
// Returns every published exam.
func (h *Handler) ListExams(c *gin.Context) {
	response.Success(c, http.StatusOK, h.store.ListPublishedExams())
}

// GetExam godoc
// GET /api/v1/exams/:exam_id
func (h *Handler) GetExam(c *gin.Context) {
	examID, ok := parseUUIDParam(c, "exam_id")
	if !ok {
		return
	}

	exam, err := h.store.GetPublishedExam(examID)
	if err != nil {
		h.failStore(c, err)
		return
	}
	response.Success(c, http.StatusOK, exam)
}

// StartSession godoc
// POST /api/v1/exams/:exam_id/sessions
// Creates the caller's session for the exam, or returns the existing one.
func (h *Handler) StartSession(c *gin.Context) {
	claims := GetClaims(c)
	examID, ok := parseUUIDParam(c, "exam_id")
	if !ok {
		return
	}

	sess, err := h.store.StartSession(examID, claims.UserID)
	if err != nil {
		h.failStore(c, err)
		return
	}
	response.Success(c, http.StatusOK, sess)
}

// GetSessionDetail godoc
// GET /api/v1/exams/:exam_id/sessions/:session_id
func (h *Handler) GetSessionDetail(c *gin.Context) {
	claims := GetClaims(c)
	examID, ok := parseUUIDParam(c, "exam_id")
	if !ok {
		return
	}
	sessionID, ok := parseUUIDParam(c, "session_id")
	if !ok {
		return
	}

	detail, err := h.store.SessionDetail(examID, sessionID, claims.UserID)
	if err != nil {
		h.failStore(c, err)
		return
	}
	response.Success(c, http.StatusOK, detail)
}

// SaveAnswer godoc
// PUT /api/v1/sessions/:session_id/answers
// Upserts one answer. Rejected after submit or once the time limit elapses.
func (h *Handler) SaveAnswer(c *gin.Context) {
	claims := GetClaims(c)
	sessionID, ok := parseUUIDParam(c, "session_id")
	if !ok {
		return
	}

	var req model.SaveAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	record, err := h.store.SaveAnswer(sessionID, claims.UserID, req.QuestionID, req.SelectedOptionID)
	if err != nil {
		h.failStore(c, err)
		return
	}
	response.Success(c, http.StatusOK, record)
}

// SubmitExam godoc
// POST /api/v1/exams/:exam_id/submit
// Finalizes and scores the caller's session. A second submit is rejected.
func (h *Handler) SubmitExam(c *gin.Context) {
	claims := GetClaims(c)
	examID, ok := parseUUIDParam(c, "exam_id")
	if !ok {
		return
	}

	sess, err := h.store.Submit(examID, claims.UserID)
	if err != nil {
		h.failStore(c, err)
		return
	}
	response.Success(c, http.StatusOK, sess)
}

// GetResult godoc
// GET /api/v1/exams/:exam_id/sessions/:session_id/result
func (h *Handler) GetResult(c *gin.Context) {
	claims := GetClaims(c)
	examID, ok := parseUUIDParam(c, "exam_id")
	if !ok {
		return
	}
	sessionID, ok := parseUUIDParam(c, "session_id")
	if !ok {
		return
	}

	result, err := h.store.Result(examID, sessionID, claims.UserID)
	if err != nil {
		h.failStore(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// failStore maps store errors onto the API error envelope.
func (h *Handler) failStore(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrExamNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, ErrExamNotPublished):
		response.Fail(c, http.StatusForbidden, response.ErrExamNotPublished)
	case errors.Is(err, ErrSessionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
	case errors.Is(err, ErrSessionSubmitted):
		response.Fail(c, http.StatusConflict, response.ErrSessionSubmitted)
	case errors.Is(err, ErrSessionTimeBarred):
		response.Fail(c, http.StatusForbidden, response.ErrSessionTimeBarred)
	case errors.Is(err, ErrQuestionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrQuestionNotFound)
	case errors.Is(err, ErrOptionNotFound):
		response.Fail(c, http.StatusBadRequest, response.ErrOptionNotFound)
	case errors.Is(err, ErrResultNotReady):
		response.Fail(c, http.StatusConflict, response.ErrResultNotReady)
	default:
		h.log.Error().Err(err).Msg("unexpected store error")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}
