package errors

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ContentTypeProblemJSON is the media type of every error body the API writes.
const ContentTypeProblemJSON = "application/problem+json"

// ErrorMapper translates an error into a problem, reporting false when it does not recognise it.
type ErrorMapper func(err error) (ProblemDetail, bool)

// ChainedResponder writes problem+json bodies. Errors are offered to each mapper in order;
// unrecognised errors become a 500 without leaking their text.
type ChainedResponder struct {
	baseURI string
	mappers []ErrorMapper
	logger  *slog.Logger
}

// NewChainedResponder prefixes relative problem types with baseURI when it is set.
func NewChainedResponder(baseURI string, mappers ...ErrorMapper) *ChainedResponder {
	return &ChainedResponder{baseURI: baseURI, mappers: mappers, logger: slog.Default()}
}

// Respond writes problem with its status code.
func (r *ChainedResponder) Respond(c *gin.Context, problem ProblemDetail) {
	if r.baseURI != "" && len(problem.Type) > 0 && problem.Type[0] == '/' {
		problem.Type = r.baseURI + problem.Type
	}
	write(c, problem)
}

// RespondError maps err and writes the resulting problem.
func (r *ChainedResponder) RespondError(c *gin.Context, err error) {
	var problem ProblemDetail
	if errors.As(err, &problem) {
		r.Respond(c, problem)
		return
	}
	for _, mapper := range r.mappers {
		if problem, ok := mapper(err); ok {
			r.Respond(c, problem)
			return
		}
	}
	r.logger.LogAttrs(c.Request.Context(), slog.LevelError, "unhandled request error",
		slog.String("path", c.Request.URL.Path),
		slog.String("error", err.Error()),
	)
	r.Respond(c, ErrInternal)
}

// BadRequest writes a 400 with detail.
func (r *ChainedResponder) BadRequest(c *gin.Context, detail string) {
	r.Respond(c, ErrBadRequest.WithDetail(detail))
}

// Abort writes problem and stops the handler chain. Middleware uses it.
func Abort(c *gin.Context, problem ProblemDetail) {
	write(c, problem)
	c.Abort()
}

// Recovery turns a handler panic into a logged 500 problem.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.LogAttrs(c.Request.Context(), slog.LevelError, "handler panic",
			slog.String("path", c.Request.URL.Path),
			slog.Any("panic", recovered),
		)
		Abort(c, ErrInternal)
	})
}

func write(c *gin.Context, problem ProblemDetail) {
	if problem.Status == 0 {
		problem.Status = http.StatusInternalServerError
	}
	if problem.Instance == "" {
		problem.Instance = c.Request.URL.Path
	}
	c.Header("Content-Type", ContentTypeProblemJSON)
	c.JSON(problem.Status, problem)
}
