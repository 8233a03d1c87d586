package controllers

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rangapin/forum/forum"
	"github.com/rangapin/forum/middleware"
	"github.com/rangapin/forum/models"
	"github.com/rangapin/forum/realtime"
	"github.com/rangapin/forum/store"
	"github.com/rangapin/forum/utils"
)

// ForumController serves the forum pages: listings, posts, replies, reports
// and the event streams that keep open pages fresh.
type ForumController struct {
	store *store.Store
	hub   realtime.Hub
}

// NewForumController creates a ForumController.
func NewForumController(st *store.Store, hub realtime.Hub) *ForumController {
	return &ForumController{store: st, hub: hub}
}

// Home renders the front page listing.
func (f *ForumController) Home(ctx *gin.Context) {
	f.renderListing(ctx, store.ListOptions{Sort: forum.ParseSort(ctx.Query("sort"))}, gin.H{})
}

// CategoryPage renders the listing filtered to one category. An unknown slug
// falls back to the unfiltered listing instead of a 404.
func (f *ForumController) CategoryPage(ctx *gin.Context) {
	slug := ctx.Param("category")
	data := gin.H{}
	if cat, ok := forum.CategoryBySlug(slug); ok {
		data["Category"] = cat
	}
	f.renderListing(ctx, store.ListOptions{
		CategorySlug: slug,
		Sort:         forum.ParseSort(ctx.Query("sort")),
	}, data)
}

// Search renders the listing filtered by a free-text query over titles and
// bodies. An empty or whitespace-only query gets a prompt page and never
// reaches the store.
func (f *ForumController) Search(ctx *gin.Context) {
	query := strings.TrimSpace(ctx.Query("q"))
	if query == "" {
		ctx.HTML(http.StatusOK, "home.html", gin.H{
			"User":       middleware.UserFrom(ctx),
			"Categories": forum.Categories,
			"Sort":       string(forum.SortLatest),
			"Query":      "",
			"Prompt":     true,
		})
		return
	}
	f.renderListing(ctx, store.ListOptions{
		Query: query,
		Sort:  forum.ParseSort(ctx.Query("sort")),
	}, gin.H{"Query": query})
}

func (f *ForumController) renderListing(ctx *gin.Context, opts store.ListOptions, data gin.H) {
	posts, err := f.store.ListPosts(ctx.Request.Context(), opts)
	if err != nil {
		utils.Logger.Error("listing failed", zap.Error(err))
		ctx.HTML(http.StatusInternalServerError, "error.html", gin.H{"Message": "could not load posts"})
		return
	}
	if _, ok := data["Query"]; !ok {
		data["Query"] = ""
	}
	data["User"] = middleware.UserFrom(ctx)
	data["Posts"] = posts
	data["Categories"] = forum.Categories
	data["Sort"] = string(opts.Sort)
	ctx.HTML(http.StatusOK, "home.html", data)
}

// PostPage renders one post with its replies, oldest first.
func (f *ForumController) PostPage(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		f.notFound(ctx)
		return
	}
	post, replies, err := f.store.GetPost(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, forum.ErrNotFound) {
			f.notFound(ctx)
			return
		}
		utils.Logger.Error("post load failed", zap.Uint("post_id", id), zap.Error(err))
		ctx.HTML(http.StatusInternalServerError, "error.html", gin.H{"Message": "could not load the post"})
		return
	}
	ctx.HTML(http.StatusOK, "post.html", gin.H{
		"User":     middleware.UserFrom(ctx),
		"Post":     post,
		"Replies":  replies,
		"Error":    ctx.Query("error"),
		"Reported": ctx.Query("reported") == "1",
	})
}

// NewPostForm renders the post composer.
func (f *ForumController) NewPostForm(ctx *gin.Context) {
	ctx.HTML(http.StatusOK, "new.html", gin.H{
		"User":       middleware.UserFrom(ctx),
		"Categories": forum.Categories,
		"Error":      ctx.Query("error"),
	})
}

// CreatePost validates and stores a new post, then redirects to it.
func (f *ForumController) CreatePost(ctx *gin.Context) {
	user := middleware.UserFrom(ctx)

	title, body, err := forum.ValidatePost(ctx.PostForm("title"), ctx.PostForm("body"))
	if err != nil {
		redirectWithError(ctx, "/new", err)
		return
	}

	cat, err := f.store.CategoryBySlug(ctx.Request.Context(), ctx.PostForm("category"))
	if err != nil {
		redirectWithError(ctx, "/new", errors.New("pick a category"))
		return
	}

	post := &models.Post{
		CategoryID: cat.ID,
		AuthorID:   user.ID,
		Title:      utils.Sanitize(title),
		Body:       utils.Sanitize(body),
	}
	if err := f.store.CreatePost(ctx.Request.Context(), post); err != nil {
		utils.Logger.Error("post create failed", zap.Error(err))
		redirectWithError(ctx, "/new", errors.New("could not save the post"))
		return
	}

	f.publish(ctx, realtime.Posts(), realtime.Event{Table: "posts", Op: realtime.OpInsert, PostID: post.ID})
	ctx.Redirect(http.StatusFound, "/post/"+strconv.FormatUint(uint64(post.ID), 10))
}

// CreateReply appends a reply to a post. A whitespace-only body is a silent
// no-op, and insert failures do not surface to the author either; the page
// they land back on simply shows the thread as it is.
func (f *ForumController) CreateReply(ctx *gin.Context) {
	user := middleware.UserFrom(ctx)
	id, ok := paramID(ctx, "id")
	if !ok {
		f.notFound(ctx)
		return
	}
	back := "/post/" + strconv.FormatUint(uint64(id), 10)

	body, ok := forum.NormalizeReplyBody(ctx.PostForm("body"))
	if !ok {
		ctx.Redirect(http.StatusFound, back)
		return
	}

	reply := &models.Reply{PostID: id, AuthorID: user.ID, Body: utils.Sanitize(body)}
	if err := f.store.CreateReply(ctx.Request.Context(), reply); err != nil {
		utils.Logger.Warn("reply create failed", zap.Uint("post_id", id), zap.Error(err))
		ctx.Redirect(http.StatusFound, back)
		return
	}

	f.publish(ctx, realtime.PostReplies(id), realtime.Event{Table: "replies", Op: realtime.OpInsert, PostID: id})
	ctx.Redirect(http.StatusFound, back)
}

// DeletePost removes a post with its replies and reports. Author or admin only.
func (f *ForumController) DeletePost(ctx *gin.Context) {
	user := middleware.UserFrom(ctx)
	id, ok := paramID(ctx, "id")
	if !ok {
		f.notFound(ctx)
		return
	}
	back := "/post/" + strconv.FormatUint(uint64(id), 10)

	if err := f.store.DeletePost(ctx.Request.Context(), id, user); err != nil {
		switch {
		case errors.Is(err, forum.ErrNotFound):
			f.notFound(ctx)
		case errors.Is(err, forum.ErrUnauthorized):
			redirectWithError(ctx, back, errors.New("only the author or an admin can delete this post"))
		default:
			utils.Logger.Error("post delete failed", zap.Uint("post_id", id), zap.Error(err))
			redirectWithError(ctx, back, errors.New("could not delete the post"))
		}
		return
	}

	f.publish(ctx, realtime.Posts(), realtime.Event{Table: "posts", Op: realtime.OpDelete, PostID: id})
	ctx.Redirect(http.StatusFound, "/")
}

// DeleteReply removes one reply. Author or admin only.
func (f *ForumController) DeleteReply(ctx *gin.Context) {
	user := middleware.UserFrom(ctx)
	id, ok := paramID(ctx, "id")
	if !ok {
		f.notFound(ctx)
		return
	}

	postID, err := f.store.DeleteReply(ctx.Request.Context(), id, user)
	if err != nil {
		switch {
		case errors.Is(err, forum.ErrNotFound):
			f.notFound(ctx)
		case errors.Is(err, forum.ErrUnauthorized):
			redirectWithError(ctx, "/", errors.New("only the author or an admin can delete this reply"))
		default:
			utils.Logger.Error("reply delete failed", zap.Uint("reply_id", id), zap.Error(err))
			redirectWithError(ctx, "/", errors.New("could not delete the reply"))
		}
		return
	}

	back := "/post/" + strconv.FormatUint(uint64(postID), 10)
	f.publish(ctx, realtime.PostReplies(postID), realtime.Event{Table: "replies", Op: realtime.OpDelete, PostID: postID})
	ctx.Redirect(http.StatusFound, back)
}

// Report files a moderation report against a post or a reply. An empty
// reason is a silent no-op.
func (f *ForumController) Report(ctx *gin.Context) {
	user := middleware.UserFrom(ctx)
	back := ctx.PostForm("back")
	if !safeReturnPath(back) {
		back = "/"
	}

	reason, ok := forum.NormalizeReason(ctx.PostForm("reason"))
	if !ok {
		ctx.Redirect(http.StatusFound, back)
		return
	}

	var target forum.ReportTarget
	if v := ctx.PostForm("post_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 32); err == nil {
			target = forum.TargetPost(uint(id))
		}
	} else if v := ctx.PostForm("reply_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 32); err == nil {
			target = forum.TargetReply(uint(id))
		}
	}

	if err := f.store.CreateReport(ctx.Request.Context(), user.ID, target, utils.Sanitize(reason)); err != nil {
		if errors.Is(err, forum.ErrValidation) {
			redirectWithError(ctx, back, errors.New("nothing to report"))
			return
		}
		utils.Logger.Error("report create failed", zap.Error(err))
		redirectWithError(ctx, back, errors.New("could not file the report"))
		return
	}

	if u, err := url.Parse(back); err == nil {
		q := u.Query()
		q.Set("reported", "1")
		u.RawQuery = q.Encode()
		back = u.String()
	}
	ctx.Redirect(http.StatusFound, back)
}

// Profile renders a member's page with their posts.
func (f *ForumController) Profile(ctx *gin.Context) {
	username := ctx.Param("username")
	member, err := f.store.UserByUsername(ctx.Request.Context(), username)
	if err != nil {
		if errors.Is(err, forum.ErrNotFound) {
			f.notFound(ctx)
			return
		}
		utils.Logger.Error("profile load failed", zap.String("username", username), zap.Error(err))
		ctx.HTML(http.StatusInternalServerError, "error.html", gin.H{"Message": "could not load the profile"})
		return
	}

	posts, err := f.store.ListPosts(ctx.Request.Context(), store.ListOptions{
		AuthorID: member.ID,
		Sort:     forum.SortLatest,
	})
	if err != nil {
		utils.Logger.Error("profile listing failed", zap.Error(err))
		ctx.HTML(http.StatusInternalServerError, "error.html", gin.H{"Message": "could not load the profile"})
		return
	}

	ctx.HTML(http.StatusOK, "profile.html", gin.H{
		"User":   middleware.UserFrom(ctx),
		"Member": member,
		"Posts":  posts,
	})
}

// PostEvents streams forum-wide post change events over SSE. Listing pages
// hold this open and re-fetch on every event.
func (f *ForumController) PostEvents(ctx *gin.Context) {
	f.streamEvents(ctx, realtime.Posts())
}

// ReplyEvents streams reply change events for one post over SSE.
func (f *ForumController) ReplyEvents(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		ctx.Status(http.StatusNotFound)
		return
	}
	f.streamEvents(ctx, realtime.PostReplies(id))
}

func (f *ForumController) streamEvents(ctx *gin.Context, scope realtime.Scope) {
	sub, err := f.hub.Subscribe(ctx.Request.Context(), scope)
	if err != nil {
		utils.Logger.Error("event subscribe failed", zap.String("channel", scope.Channel()), zap.Error(err))
		ctx.Status(http.StatusServiceUnavailable)
		return
	}
	defer sub.Close()

	ctx.Writer.Header().Set("Cache-Control", "no-cache")
	ctx.Writer.Header().Set("X-Accel-Buffering", "no")

	clientGone := ctx.Request.Context().Done()
	ctx.Stream(func(w io.Writer) bool {
		select {
		case ev, open := <-sub.C:
			if !open {
				return false
			}
			ctx.SSEvent("change", ev)
			return true
		case <-clientGone:
			return false
		}
	})
}

func (f *ForumController) publish(ctx *gin.Context, scope realtime.Scope, ev realtime.Event) {
	if err := f.hub.Publish(ctx.Request.Context(), scope, ev); err != nil {
		utils.Logger.Warn("event publish failed", zap.String("channel", scope.Channel()), zap.Error(err))
	}
}

func (f *ForumController) notFound(ctx *gin.Context) {
	ctx.HTML(http.StatusNotFound, "notfound.html", gin.H{"User": middleware.UserFrom(ctx)})
}

func paramID(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// safeReturnPath accepts only same-site paths for post-action redirects.
// Browsers treat "//host" and "/\host" as protocol-relative URLs, so a bare
// leading-slash check is not enough.
func safeReturnPath(p string) bool {
	if !strings.HasPrefix(p, "/") {
		return false
	}
	return !strings.HasPrefix(p, "//") && !strings.HasPrefix(p, "/\\")
}

func redirectWithError(ctx *gin.Context, to string, err error) {
	u, parseErr := url.Parse(to)
	if parseErr != nil {
		u = &url.URL{Path: "/"}
	}
	q := u.Query()
	q.Set("error", err.Error())
	u.RawQuery = q.Encode()
	ctx.Redirect(http.StatusFound, u.String())
}
