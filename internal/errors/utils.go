package errors

import (
	"context"
	"errors"
	"net"
	"os"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"

	"codeberg.org/docsuite/server/internal/collab"
)

// document ids are opaque to this server: 1-128 url-safe characters
var documentIDRegex = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// http error codes
const (
	CodeUnauthorized    = "unauthorized"
	CodeForbidden       = "forbidden"
	CodeValidationError = "validation_error"
	CodeServerError     = "server_error"
	CodeBadRequest      = "bad_request"
	CodeTooManyRequests = "too_many_requests"
	CodeSessionNotFound = "session_not_found"
)

// error categories
const (
	CategorySession  = "session"
	CategoryDatabase = "database"
	CategoryCache    = "cache"
	CategoryNotFound = "not_found"
	CategoryTimeout  = "timeout"
	CategoryNetwork  = "network"
	CategoryUnknown  = "unknown"
)

// what production clients see per category
var productionMessages = map[string]string{
	CategoryDatabase: "database operation failed",
	CategoryCache:    "cache operation failed",
	CategoryNotFound: "resource not found",
	CategoryTimeout:  "request timed out",
	CategoryNetwork:  "connection error occurred",
	CategoryUnknown:  "an error occurred",
}

// returns the category of err and the message safe to show for the environment
func classifyError(err error) classification {
	if err == nil {
		return classification{category: CategoryUnknown}
	}

	category := categorize(err)

	// session errors are written for clients already
	if category == CategorySession || os.Getenv("ENVIRONMENT") != "production" {
		return classification{category: category, sanitized: err.Error()}
	}

	return classification{category: category, sanitized: productionMessages[category]}
}

func categorize(err error) string {
	var (
		coreErr  *collab.Error
		held     *collab.LockHeldError
		pgErr    *pgconn.PgError
		redisErr redis.Error
		netErr   net.Error
	)

	switch {
	case errors.As(err, &coreErr), errors.As(err, &held):
		return CategorySession
	case errors.Is(err, pgx.ErrNoRows), errors.Is(err, redis.Nil):
		return CategoryNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return CategoryTimeout
	case errors.As(err, &pgErr):
		return CategoryDatabase
	case errors.As(err, &redisErr):
		return CategoryCache
	case errors.As(err, &netErr):
		if netErr.Timeout() {
			return CategoryTimeout
		}

		return CategoryNetwork
	default:
		return CategoryUnknown
	}
}

// validates a document id
func IsValidDocumentID(id string) bool {
	return documentIDRegex.MatchString(id)
}
