package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	preferencedomain "github.com/smallbiznis/opsdesk/internal/preference/domain"
)

type setCollapsedRequest struct {
	Collapsed *bool `json:"collapsed"`
}

func (s *Server) ListCollapsed(c *gin.Context) {
	items, err := s.preferenceSvc.CollapsedItems(c.Request.Context(), c.Param("owner"), c.Param("scope"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"items": items}})
}

// SetCollapsed sets the item when the body carries "collapsed" and toggles it
// when the body is empty.
func (s *Server) SetCollapsed(c *gin.Context) {
	var req setCollapsedRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		AbortWithError(c, invalidRequestError())
		return
	}

	collapsed, err := s.preferenceSvc.SetCollapsed(c.Request.Context(), c.Param("owner"), c.Param("scope"), c.Param("item"), req.Collapsed)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"item": c.Param("item"), "collapsed": collapsed}})
}

func (s *Server) ListSavedViews(c *gin.Context) {
	views, err := s.preferenceSvc.ListViews(c.Request.Context(), c.Param("owner"), c.Param("scope"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": views})
}

func (s *Server) UpsertSavedView(c *gin.Context) {
	var req preferencedomain.SavedView
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	views, err := s.preferenceSvc.UpsertView(c.Request.Context(), c.Param("owner"), c.Param("scope"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": views})
}

func (s *Server) DeleteSavedView(c *gin.Context) {
	if err := s.preferenceSvc.DeleteView(c.Request.Context(), c.Param("owner"), c.Param("scope"), c.Param("name")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
