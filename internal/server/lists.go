package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"todoer/internal/models"
)

type listRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// handleListLists returns the lists on the latest board and the color palette.
func (s *Server) handleListLists(c *gin.Context) {
	respondSuccess(c, http.StatusOK, gin.H{"lists": s.board.Lists(), "palette": models.ListPalette})
}

// handleCreateList creates a new list.
func (s *Server) handleCreateList(c *gin.Context) {
	var req listRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	id, err := s.lists.Create(c.Request.Context(), req.Name, req.Color)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"id": id})
}

// handleUpdateList renames or recolors an existing list. A request without
// a color keeps the list's current one.
func (s *Server) handleUpdateList(c *gin.Context) {
	var req listRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if req.Color == "" {
		req.Color = models.DefaultListColor
		if current, ok := s.findList(c.Param("id")); ok && current.Color != "" {
			req.Color = current.Color
		}
	}

	if err := s.lists.Update(c.Request.Context(), c.Param("id"), req.Name, req.Color); err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"id": c.Param("id")})
}

// handleDeleteList removes a list and its tasks. Deleting the selected list
// clears the selection.
func (s *Server) handleDeleteList(c *gin.Context) {
	id := c.Param("id")
	if err := s.lists.Delete(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	if s.board.Selected() == id {
		s.board.Select("")
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}
