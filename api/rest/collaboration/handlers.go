package collaboration

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"codeberg.org/docsuite/server/api/rest/pagination"
	"codeberg.org/docsuite/server/internal/collab"
	"codeberg.org/docsuite/server/internal/errors"
	"codeberg.org/docsuite/server/internal/logger"
)

// time allowed for reading an archived thread
const archiveReadTimeout = 5 * time.Second

// session listing page sizes
const (
	defaultSessionsLimit = 50
	maxSessionsLimit     = 200
)

// lists live sessions with participant counts and lock holders
func ListSessionsHandler(sessions SessionReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		params := pagination.FromQuery(c, defaultSessionsLimit, maxSessionsLimit)

		list := sessions.Sessions()
		page := pagination.Page(list, params)

		c.JSON(http.StatusOK, ListSessionsResponse{
			Sessions:   page,
			Count:      len(page),
			Pagination: pagination.NewMeta(params, len(list)),
		})
	}
}

// returns the live snapshot of a document session
func GetSessionHandler(sessions SessionReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		documentID, ok := errors.ValidatePathDocumentID(c, "id")
		if !ok {
			return
		}

		snapshot, err := sessions.Snapshot(documentID)
		if err != nil {
			errors.SessionNotFound(c)
			return
		}

		c.JSON(http.StatusOK, snapshot)
	}
}

// returns the comment thread from the live session, or from the archive when idle
func GetCommentsHandler(sessions SessionReader, archive ThreadLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		documentID, ok := errors.ValidatePathDocumentID(c, "id")
		if !ok {
			return
		}

		if snapshot, err := sessions.Snapshot(documentID); err == nil {
			c.JSON(http.StatusOK, CommentsResponse{
				DocumentID: documentID,
				Source:     SourceLive,
				Comments:   nonNil(snapshot.Comments),
			})
			return
		}

		if archive == nil {
			c.JSON(http.StatusOK, CommentsResponse{
				DocumentID: documentID,
				Source:     SourceNone,
				Comments:   []*collab.Comment{},
			})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), archiveReadTimeout)
		defer cancel()

		comments, err := archive.LoadThread(ctx, documentID)
		if err != nil {
			errors.InternalError(c, "failed to load comments", err)
			return
		}

		c.JSON(http.StatusOK, CommentsResponse{
			DocumentID: documentID,
			Source:     SourceArchive,
			Comments:   nonNil(comments),
		})
	}
}

// pushes an application notification into a live document session
func NotifyHandler(sessions SessionReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		documentID, ok := errors.ValidatePathDocumentID(c, "id")
		if !ok {
			return
		}

		var req NotifyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			errors.ValidationError(c, err)
			return
		}

		err := sessions.Notify(documentID, collab.Notification{
			Kind: req.Kind,
			Data: req.Data,
		})
		if stderrors.Is(err, collab.ErrSessionNotFound) {
			errors.SessionNotFound(c)
			return
		}

		if err != nil {
			errors.InternalError(c, "failed to deliver notification", err)
			return
		}

		logger.Info("notification delivered",
			"document_id", documentID,
			"kind", req.Kind,
		)

		c.JSON(http.StatusAccepted, NotifyResponse{
			DocumentID: documentID,
			Kind:       req.Kind,
			Delivered:  true,
		})
	}
}

func nonNil(comments []*collab.Comment) []*collab.Comment {
	if comments == nil {
		return []*collab.Comment{}
	}

	return comments
}
