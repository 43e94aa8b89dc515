package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"draftServer/backend/internal/cache"
	"draftServer/backend/internal/draft"
	"draftServer/backend/internal/revision"
)

// Handler 把 HTTP 请求翻译成引擎操作并把错误分类映射为状态码。
type Handler struct {
	svc      *draft.Service
	presence cache.PresenceCache
}

func NewHandler(svc *draft.Service, presence cache.PresenceCache) *Handler {
	return &Handler{svc: svc, presence: presence}
}

type editRequest struct {
	Content     string `json:"content"`
	Description string `json:"description,omitempty"`
}

func (h *Handler) EditContent(c *gin.Context) {
	var req editRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "BAD_REQUEST", "message": err.Error()})
		return
	}
	res, err := h.svc.EditContent(c.Request.Context(), c.Param("draftId"), c.GetUint64("userId"), req.Content, req.Description)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Undo(c *gin.Context) {
	res, err := h.svc.Undo(c.Request.Context(), c.Param("draftId"), c.GetUint64("userId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Redo(c *gin.Context) {
	res, err := h.svc.Redo(c.Request.Context(), c.Param("draftId"), c.GetUint64("userId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ApplyChange(c *gin.Context) {
	changeID, ok := changeIDParam(c)
	if !ok {
		return
	}
	res, err := h.svc.ApplyChange(c.Request.Context(), c.Param("draftId"), changeID, c.GetUint64("userId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) DismissChange(c *gin.Context) {
	changeID, ok := changeIDParam(c)
	if !ok {
		return
	}
	res, err := h.svc.DismissChange(c.Request.Context(), c.Param("draftId"), changeID, c.GetUint64("userId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) SaveDraft(c *gin.Context) {
	h.svc.SaveDraft(c.Request.Context(), c.Param("draftId"), c.GetUint64("userId"))
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

func (h *Handler) DeleteDraft(c *gin.Context) {
	h.svc.DeleteDraft(c.Request.Context(), c.Param("draftId"), c.GetUint64("userId"))
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

func (h *Handler) RevisionLog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"revisions": h.svc.RevisionLog(c.Param("draftId"))})
}

func (h *Handler) ListChanges(c *gin.Context) {
	changes, err := h.svc.ListChanges(c.Request.Context(), c.Param("draftId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changes": changes})
}

func (h *Handler) Viewers(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	viewers, err := h.presence.GetAliveViewers(ctx, c.Param("draftId"))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"code": "PRESENCE_UPSTREAM_ERROR", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"viewers": viewers})
}

func changeIDParam(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("changeId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "BAD_REQUEST", "message": "invalid changeId"})
		return 0, false
	}
	return id, true
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := "INTERNAL"
	switch {
	case errors.Is(err, draft.ErrDraftNotFound), errors.Is(err, draft.ErrChangeNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, draft.ErrChangeForbidden):
		status, code = http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, draft.ErrChangeConflict),
		errors.Is(err, revision.ErrNothingToUndo),
		errors.Is(err, revision.ErrNothingToRedo):
		status, code = http.StatusConflict, "CONFLICT"
	case errors.Is(err, draft.ErrMarkupUpstream):
		status, code = http.StatusBadGateway, "UPSTREAM_ERROR"
	}
	c.JSON(status, gin.H{"code": code, "message": err.Error()})
}
