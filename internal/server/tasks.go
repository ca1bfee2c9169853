package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"todoer/internal/docstore"
	"todoer/internal/models"
	"todoer/internal/repository"
)

// ErrNoList is returned when a top-level task is created before any list exists.
var ErrNoList = fmt.Errorf("%w: create a list before adding tasks", repository.ErrValidation)

type taskRequest struct {
	Title    string `json:"title"`
	ListID   string `json:"listId"`
	ParentID string `json:"parentId"`
}

type titleRequest struct {
	Title string `json:"title"`
}

type detailsRequest struct {
	Description string `json:"description"`
	DueTime     string `json:"dueTime"`
	IsImportant bool   `json:"isImportant"`
}

// handleListTasks returns the current tasks matching listId and parent.
// A present but empty parent selects top-level tasks only.
func (s *Server) handleListTasks(c *gin.Context) {
	filter := repository.TaskFilter{ListID: c.Query("listId")}
	if parent, ok := c.GetQuery("parent"); ok {
		filter.Parent = repository.ChildrenOf(parent)
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	select {
	case tasks, ok := <-s.tasks.Subscribe(ctx, filter):
		if !ok {
			s.fail(c, ctx.Err())
			return
		}
		respondSuccess(c, http.StatusOK, gin.H{"tasks": tasks})
	case <-ctx.Done():
		s.fail(c, ctx.Err())
	}
}

// handleCreateTask adds a task. Subtasks go to their parent's list; top-level
// tasks go to the given list or the board's target list.
func (s *Server) handleCreateTask(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	listID := req.ListID
	if req.ParentID != "" {
		parent, ok := s.board.Current().Find(req.ParentID)
		if !ok {
			s.fail(c, fmt.Errorf("parent task %s: %w", req.ParentID, docstore.ErrNotFound))
			return
		}
		listID = parent.ListID
	}
	if listID == "" {
		listID = s.board.Current().TargetListID
	}
	if listID == "" {
		s.fail(c, ErrNoList)
		return
	}

	id, err := s.tasks.Create(c.Request.Context(), req.Title, listID, req.ParentID)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"id": id, "listId": listID})
}

// handleUpdateTitle renames a task unless the new title is empty or unchanged.
func (s *Server) handleUpdateTitle(c *gin.Context) {
	task, ok := s.visibleTask(c)
	if !ok {
		return
	}
	var req titleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" || title == task.Title {
		respondSuccess(c, http.StatusOK, gin.H{"updated": false})
		return
	}
	if err := s.tasks.UpdateTitle(c.Request.Context(), task.ID, title); err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"updated": true})
}

// handleCycleStatus advances the task shown on the board to its next status.
func (s *Server) handleCycleStatus(c *gin.Context) {
	task, ok := s.visibleTask(c)
	if !ok {
		return
	}
	if err := s.tasks.CycleStatus(c.Request.Context(), task); err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": task.Status.Next()})
}

// handleUpdateDetails saves description, due time and importance when any
// of them differ from the board's copy.
func (s *Server) handleUpdateDetails(c *gin.Context) {
	task, ok := s.visibleTask(c)
	if !ok {
		return
	}
	var req detailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	next := models.Details{Description: req.Description, DueTime: req.DueTime, IsImportant: req.IsImportant}
	if !task.DetailsChanged(next) {
		respondSuccess(c, http.StatusOK, gin.H{"updated": false})
		return
	}
	if err := s.tasks.UpdateDetails(c.Request.Context(), task.ID, next); err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"updated": true})
}

// handleDeleteTask removes a task. Its subtasks stay.
func (s *Server) handleDeleteTask(c *gin.Context) {
	if err := s.tasks.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// visibleTask looks the path's task up on the latest board.
func (s *Server) visibleTask(c *gin.Context) (models.Task, bool) {
	id := c.Param("id")
	task, ok := s.board.Current().Find(id)
	if !ok {
		s.fail(c, fmt.Errorf("task %s: %w", id, docstore.ErrNotFound))
		return models.Task{}, false
	}
	return task, true
}
