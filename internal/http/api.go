package http

import (
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"resume-matcher/internal/domain"
	"resume-matcher/internal/service"
)

const (
	detailDuplicateEmail = "Email already registered"
	detailBadLogin       = "Incorrect username or password"
	detailBadToken       = "Could not validate credentials"
	detailProcessing     = "Error processing resume"
	detailInternal       = "internal server error"

	multipartMemory = 8 << 20
)

// TokenIssuer issues and validates bearer tokens.
type TokenIssuer interface {
	Issue(email string, ttl time.Duration) (string, error)
	Validate(token string) (string, error)
}

// Options carries the boundary settings taken from configuration.
type Options struct {
	TokenTTL       time.Duration
	MaxUploadBytes int64
	StaticDir      string
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	users   service.UserService
	matches service.MatchService
	tokens  TokenIssuer
	opts    Options
	logger  *logrus.Logger
}

func NewHandler(users service.UserService, matches service.MatchService, tokens TokenIssuer, opts Options, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{
		users:   users,
		matches: matches,
		tokens:  tokens,
		opts:    opts,
		logger:  logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(requestLogger(h.logger), corsMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.POST("/users/", h.register)
	router.POST("/token", h.login)

	authed := router.Group("/", h.requireUser())
	{
		authed.GET("/users/me/", h.me)
		authed.POST("/check-resume", h.checkResume)
	}

	if h.opts.StaticDir != "" {
		if fi, err := os.Stat(h.opts.StaticDir); err == nil && fi.IsDir() {
			router.Static("/static", h.opts.StaticDir)
		} else {
			h.logger.Warnf("static dir %s not found, /static disabled", h.opts.StaticDir)
		}
	}
}

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

type UserResponse struct {
	ID         int64  `json:"id"`
	Email      string `json:"email"`
	IsActive   bool   `json:"is_active"`
	IsVerified bool   `json:"is_verified"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type MatchResponse struct {
	Score   int    `json:"score"`
	Message string `json:"message"`
}

func userToResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:         user.ID,
		Email:      user.Email,
		IsActive:   user.IsActive,
		IsVerified: user.IsVerified,
	}
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, userToResponse(user))
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	token, err := h.tokens.Issue(user.Email, h.opts.TokenTTL)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (h *Handler) me(c *gin.Context) {
	c.JSON(http.StatusOK, userToResponse(currentUser(c)))
}

func (h *Handler) checkResume(c *gin.Context) {
	if h.opts.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.opts.MaxUploadBytes)
	}

	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"detail": "uploaded file is too large"})
			return
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "multipart form is required"})
		return
	}

	jobDescription := c.PostForm("job_description")
	if strings.TrimSpace(jobDescription) == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "job_description is required"})
		return
	}

	var (
		result *domain.MatchResult
		err    error
	)
	if key := strings.TrimSpace(c.PostForm("resume_key")); key != "" {
		result, err = h.matches.MatchStored(c.Request.Context(), key, jobDescription)
	} else {
		data, ferr := readFormFile(c, "resume")
		if ferr != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "resume file is required"})
			return
		}
		result, err = h.matches.Match(c.Request.Context(), data, jobDescription)
	}
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, MatchResponse{Score: result.Score, Message: result.Message})
}

func readFormFile(c *gin.Context, field string) ([]byte, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return nil, err
	}
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// writeError maps service failures onto status codes. Every error body is {"detail": msg}.
func (h *Handler) writeError(c *gin.Context, err error) {
	var perr *service.ProcessingError
	switch {
	case errors.Is(err, service.ErrDuplicateEmail):
		c.JSON(http.StatusBadRequest, gin.H{"detail": detailDuplicateEmail})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.Header("WWW-Authenticate", "Bearer")
		c.JSON(http.StatusUnauthorized, gin.H{"detail": detailBadLogin})
	case errors.As(err, &perr):
		requestLog(c, h.logger).
			WithField("stage", perr.Stage).
			WithError(perr.Err).
			Warn("resume processing failed")
		c.JSON(http.StatusBadRequest, gin.H{"detail": detailProcessing})
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
	default:
		requestLog(c, h.logger).WithError(err).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": detailInternal})
	}
}
