package server

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"todoer/internal/docstore"
	"todoer/internal/models"
)

type selectionRequest struct {
	ListID string `json:"listId"`
}

// handleGetBoard returns the latest derived board.
func (s *Server) handleGetBoard(c *gin.Context) {
	respondSuccess(c, http.StatusOK, s.board.Current())
}

// handleBoardStream pushes every new board and alert as server-sent events.
func (s *Server) handleBoardStream(c *gin.Context) {
	ctx := c.Request.Context()
	boards := s.board.Watch(ctx)
	alerts := s.alerts.Watch(ctx)
	seen := s.alerts.Latest().Seq

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case b, ok := <-boards:
			if !ok {
				return false
			}
			c.SSEvent("board", b)
			return true
		case a, ok := <-alerts:
			if !ok {
				return false
			}
			if a.Seq > seen {
				seen = a.Seq
				c.SSEvent("alert", a)
			}
			return true
		}
	})
}

// handleSelect filters the board to one list, or to every list for an empty id.
func (s *Server) handleSelect(c *gin.Context) {
	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if _, ok := s.findList(req.ListID); req.ListID != "" && !ok {
		s.fail(c, fmt.Errorf("select list %s: %w", req.ListID, docstore.ErrNotFound))
		return
	}
	s.board.Select(req.ListID)
	respondSuccess(c, http.StatusOK, gin.H{"selectedListId": req.ListID})
}

// findList looks id up among the lists on the latest board.
func (s *Server) findList(id string) (models.List, bool) {
	for _, l := range s.board.Lists() {
		if l.ID == id {
			return l, true
		}
	}
	return models.List{}, false
}
