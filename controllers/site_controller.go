package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/bloghouse/config"
	"github.com/cppla/bloghouse/utils"
)

// SiteController serves static site information.
type SiteController struct{}

// NewSiteController creates a SiteController.
func NewSiteController() *SiteController {
	return &SiteController{}
}

// About returns the configured site description for the about page.
func (s *SiteController) About(ctx *gin.Context) {
	cfg := config.Get()
	utils.Success(ctx, gin.H{
		"name":          cfg.SiteName,
		"description":   cfg.SiteDescription,
		"contact_email": cfg.ContactEmail,
	})
}
