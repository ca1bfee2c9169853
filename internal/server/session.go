package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type signInRequest struct {
	Token string `json:"token" binding:"required"`
}

// handleGetSession reports who is signed in.
func (s *Server) handleGetSession(c *gin.Context) {
	id, ok := s.session.Current()
	payload := gin.H{"signedIn": ok}
	if ok {
		payload["identity"] = id
	}
	respondSuccess(c, http.StatusOK, payload)
}

// handleSignIn exchanges an identity token for a session.
func (s *Server) handleSignIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	id, err := s.auth.Verify(req.Token)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.session.SignIn(id)
	respondSuccess(c, http.StatusOK, gin.H{"signedIn": true, "identity": id})
}

// handleSignOut ends the session.
func (s *Server) handleSignOut(c *gin.Context) {
	s.session.SignOut()
	respondSuccess(c, http.StatusOK, gin.H{"signedIn": false})
}
