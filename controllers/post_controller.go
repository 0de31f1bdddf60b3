package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/bloghouse/models"
	"github.com/cppla/bloghouse/utils"
)

// PostController manages CRUD operations for posts and comments.
type PostController struct {
	db *gorm.DB
}

// NewPostController creates a new PostController instance.
func NewPostController(db *gorm.DB) *PostController {
	return &PostController{db: db}
}

// parsePostID parses the :id path parameter. Anything that is not a positive
// integer never names a post, so callers answer 404 without touching the
// database and the raw path string never reaches a query.
func parsePostID(ctx *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// postForm is the input shape shared by create and edit.
type postForm struct {
	Title    string `json:"title" binding:"required"`
	Subtitle string `json:"subtitle" binding:"required"`
	Body     string `json:"body" binding:"required"`
	ImgURL   string `json:"img_url" binding:"required"`
}

// ListPosts returns every post, newest first, with an author summary per post.
func (p *PostController) ListPosts(ctx *gin.Context) {
	var posts []models.Post
	if err := p.db.Order("created_at DESC").Find(&posts).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to list posts")
		return
	}

	authorIDs := make([]uint, 0, len(posts))
	for _, post := range posts {
		authorIDs = append(authorIDs, post.AuthorID)
	}
	authors, err := p.usersByID(authorIDs)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to load authors")
		return
	}

	items := make([]gin.H, 0, len(posts))
	for _, post := range posts {
		items = append(items, postResponse(post, authors[post.AuthorID]))
	}
	utils.Success(ctx, gin.H{"items": items})
}

// GetPost returns a single post with its comments.
func (p *PostController) GetPost(ctx *gin.Context) {
	postID, ok := parsePostID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40402, "post not found")
		return
	}

	var post models.Post
	if err := p.db.First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40402, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to load post")
		return
	}

	var comments []models.Comment
	if err := p.db.Where("post_id = ?", post.ID).Order("created_at ASC").Find(&comments).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to load comments")
		return
	}

	authorIDs := []uint{post.AuthorID}
	for _, c := range comments {
		authorIDs = append(authorIDs, c.AuthorID)
	}
	authors, err := p.usersByID(authorIDs)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to load authors")
		return
	}

	commentItems := make([]gin.H, 0, len(comments))
	for _, c := range comments {
		commentItems = append(commentItems, commentResponse(c, authors[c.AuthorID]))
	}

	utils.Success(ctx, gin.H{
		"post":     postResponse(post, authors[post.AuthorID]),
		"comments": commentItems,
	})
}

// CreatePost inserts a new post authored by the session user. The title must be
// globally unique; a collision is answered as a user-correctable conflict
// instead of leaking a raw constraint violation.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var req postForm
	if err := ctx.ShouldBindJSON(&req); err != nil {
		if fields := utils.FieldErrors(err); len(fields) > 0 {
			utils.ValidationError(ctx, 40020, fields)
			return
		}
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		utils.ValidationError(ctx, 40021, map[string]string{"title": "this field is required"})
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40112, "unauthorized")
		return
	}

	post := models.Post{
		AuthorID: userID,
		Title:    title,
		Subtitle: strings.TrimSpace(req.Subtitle),
		Date:     time.Now().Format(models.DateLayout),
		Body:     utils.Sanitize(req.Body),
		ImgURL:   strings.TrimSpace(req.ImgURL),
	}

	err := p.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Post{}).Where("title = ?", title).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return gorm.ErrDuplicatedKey
		}
		return tx.Create(&post).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.Error(ctx, http.StatusConflict, 40902, "a post with that title already exists")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50024, "failed to create post")
		return
	}

	var author models.User
	_ = p.db.First(&author, post.AuthorID).Error
	utils.Success(ctx, gin.H{"post": postResponse(post, author)})
}

// UpdatePost lets the author change title, subtitle, body and image URL.
// Author and creation date are immutable after creation.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	var req postForm
	if err := ctx.ShouldBindJSON(&req); err != nil {
		if fields := utils.FieldErrors(err); len(fields) > 0 {
			utils.ValidationError(ctx, 40022, fields)
			return
		}
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid request payload")
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		utils.ValidationError(ctx, 40023, map[string]string{"title": "this field is required"})
		return
	}

	postID, ok := parsePostID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40403, "post not found")
		return
	}
	var post models.Post
	if err := p.db.First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40403, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to load post")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40113, "unauthorized")
		return
	}
	if post.AuthorID != userID {
		utils.Error(ctx, http.StatusForbidden, 40301, "you can only edit your own posts")
		return
	}

	updates := map[string]interface{}{
		"title":    title,
		"subtitle": strings.TrimSpace(req.Subtitle),
		"body":     utils.Sanitize(req.Body),
		"img_url":  strings.TrimSpace(req.ImgURL),
	}

	err := p.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Post{}).Where("title = ? AND id <> ?", title, post.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return gorm.ErrDuplicatedKey
		}
		return tx.Model(&post).Updates(updates).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.Error(ctx, http.StatusConflict, 40903, "a post with that title already exists")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50025, "failed to update post")
		return
	}

	var author models.User
	_ = p.db.First(&author, post.AuthorID).Error
	utils.Success(ctx, gin.H{"post": postResponse(post, author)})
}

// DeletePost removes a post and its comments in one transaction so no orphaned
// comments are left behind.
func (p *PostController) DeletePost(ctx *gin.Context) {
	postID, ok := parsePostID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40404, "post not found")
		return
	}
	var post models.Post
	if err := p.db.First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40404, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to load post")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40114, "unauthorized")
		return
	}
	if post.AuthorID != userID {
		utils.Error(ctx, http.StatusForbidden, 40302, "you can only delete your own posts")
		return
	}

	err := p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&post).Error
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50026, "failed to delete post")
		return
	}

	utils.Success(ctx, gin.H{"message": "post deleted"})
}

// CreateComment appends a comment to an existing post on behalf of the session
// user. The parent-post check runs inside the insert transaction so a delete
// committing in between cannot leave an orphaned comment.
func (p *PostController) CreateComment(ctx *gin.Context) {
	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		if fields := utils.FieldErrors(err); len(fields) > 0 {
			utils.ValidationError(ctx, 40024, fields)
			return
		}
		utils.Error(ctx, http.StatusBadRequest, 40024, "invalid request payload")
		return
	}

	text := utils.Sanitize(req.Text)
	if strings.TrimSpace(text) == "" {
		utils.ValidationError(ctx, 40025, map[string]string{"text": "this field is required"})
		return
	}

	postID, ok := parsePostID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40405, "post not found")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40115, "unauthorized")
		return
	}

	comment := models.Comment{
		PostID:   postID,
		AuthorID: userID,
		Text:     text,
	}

	err := p.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Post{}).Where("id = ?", postID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Create(&comment).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40405, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50027, "failed to create comment")
		return
	}

	var author models.User
	_ = p.db.First(&author, comment.AuthorID).Error
	utils.Success(ctx, gin.H{"comment": commentResponse(comment, author)})
}

// usersByID loads the given users into a map keyed by id.
func (p *PostController) usersByID(ids []uint) (map[uint]models.User, error) {
	result := map[uint]models.User{}
	ids = utils.UniqueUint(ids)
	if len(ids) == 0 {
		return result, nil
	}
	var users []models.User
	if err := p.db.Find(&users, ids).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		result[u.ID] = u
	}
	return result, nil
}

func postResponse(post models.Post, author models.User) gin.H {
	return gin.H{
		"id":       post.ID,
		"title":    post.Title,
		"subtitle": post.Subtitle,
		"date":     post.Date,
		"body":     post.Body,
		"img_url":  post.ImgURL,
		"author": gin.H{
			"id":   post.AuthorID,
			"name": author.Name,
		},
	}
}

func commentResponse(comment models.Comment, author models.User) gin.H {
	return gin.H{
		"id":      comment.ID,
		"post_id": comment.PostID,
		"text":    comment.Text,
		"author": gin.H{
			"id":   comment.AuthorID,
			"name": author.Name,
		},
		"created_at": comment.CreatedAt,
	}
}
