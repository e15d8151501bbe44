package web

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"memorylens/internal/journal"
	"memorylens/internal/middleware"
	"memorylens/internal/model"
	"memorylens/internal/pkg/response"
	"memorylens/internal/source"
	"memorylens/internal/upload"
)

const (
	productName    = "MemoryLens"
	maxUploadForm  = 64 << 20
	historyLimit   = 50
	formFilesField = "files"
	formFileField  = "file"
)

type Handler struct {
	registry  *Registry
	hub       *Hub
	journal   journal.Repository
	assetHost string
}

func NewHandler(registry *Registry, hub *Hub, repo journal.Repository, assetHost string) *Handler {
	return &Handler{registry: registry, hub: hub, journal: repo, assetHost: assetHost}
}

func (h *Handler) workspace(c *gin.Context) *Workspace {
	return h.registry.For(c.GetString(middleware.ContextSubject))
}

// Landing godoc
// @Summary Entry page, reachable without a session
// @Router / [get]
func (h *Handler) Landing(c *gin.Context) {
	s := middleware.CurrentSession(c)
	response.Success(c, http.StatusOK, gin.H{
		"name":      productName,
		"signed_in": s.SignedIn(),
		"session":   s.State.String(),
		"routes":    []string{"/upload", "/search"},
	})
}

// UploadPage godoc
// @Summary Recent uploads and progress records
// @Security BearerAuth
// @Router /upload [get]
func (h *Handler) UploadPage(c *gin.Context) {
	ws := h.workspace(c)
	ws.Upload.LoadRecent(c.Request.Context())
	h.renderUploads(c, ws, nil)
}

// UploadFiles godoc
// @Summary Upload a batch of images
// @Description Non-image files are skipped. Files upload one at a time in form order.
// @Accept multipart/form-data
// @Security BearerAuth
// @Param files formData file true "Images to upload"
// @Router /upload [post]
func (h *Handler) UploadFiles(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(maxUploadForm); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_FORM", "multipart form expected")
		return
	}
	forms := source.FromForm(c.Request.MultipartForm, formFilesField)
	forms = append(forms, source.FromForm(c.Request.MultipartForm, formFileField)...)
	if len(forms) == 0 {
		response.Error(c, http.StatusBadRequest, "NO_FILES", "no files provided")
		return
	}

	files := make([]model.File, len(forms))
	for i, f := range forms {
		files[i] = f
	}

	ws := h.workspace(c)
	batch := ws.Upload.HandleFiles(c.Request.Context(), files)
	log.Printf("upload_batch subject=%s attempted=%d failed=%d skipped=%d pending=%d",
		ws.Subject, len(batch.Outcomes), batch.Failed(), len(batch.Skipped), len(batch.Pending))
	h.renderUploads(c, ws, &batch)
}

func (h *Handler) renderUploads(c *gin.Context, ws *Workspace, batch *upload.Batch) {
	snap := ws.Store.Snapshot()
	data := gin.H{
		"recent":  toImages(ws.Upload.Recent(), h.assetHost),
		"uploads": snap.Uploads,
		"summary": upload.Summarize(snap.Uploads),
	}
	if batch != nil {
		data["results"] = toOutcomes(*batch, h.assetHost)
		data["skipped"] = nonNilStrings(batch.Skipped)
		data["pending"] = nonNilStrings(batch.Pending)
	}
	response.Success(c, http.StatusOK, data)
}

func (h *Handler) Progress(c *gin.Context) {
	snap := h.workspace(c).Store.Snapshot()
	response.Success(c, http.StatusOK, gin.H{
		"uploads": snap.Uploads,
		"summary": upload.Summarize(snap.Uploads),
	})
}

// History lists persisted upload outcomes when the journal is enabled.
func (h *Handler) History(c *gin.Context) {
	if h.journal == nil {
		response.Success(c, http.StatusOK, gin.H{"enabled": false, "entries": []journal.Entry{}})
		return
	}
	entries, err := h.journal.ListBySubject(c.Request.Context(), c.GetString(middleware.ContextSubject), historyLimit)
	if err != nil {
		c.Error(err)
		response.Error(c, http.StatusInternalServerError, "JOURNAL_ERROR", "failed to load upload history")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"enabled": true, "entries": entries})
}

// ProgressSocket streams upload progress events for the signed-in subject.
func (h *Handler) ProgressSocket(c *gin.Context) {
	if err := h.hub.Upgrade(c.Writer, c.Request, c.GetString(middleware.ContextSubject)); err != nil {
		log.Printf("progress_ws_upgrade_failed error=%q", err.Error())
	}
}

// SearchPage godoc
// @Summary Full listing or current search results, plus popular tags
// @Security BearerAuth
// @Router /search [get]
func (h *Handler) SearchPage(c *gin.Context) {
	ws := h.workspace(c)
	ws.Search.Load(c.Request.Context())
	response.Success(c, http.StatusOK, gin.H{"view": toView(ws.Search.View(), h.assetHost)})
}

// Submit godoc
// @Summary Run a natural-language query; a blank query shows all images
// @Accept json
// @Security BearerAuth
// @Router /search [post]
func (h *Handler) Submit(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	ws := h.workspace(c)
	ws.Search.SetQuery(req.Query)
	res := ws.Search.Submit(c.Request.Context())
	response.Success(c, http.StatusOK, gin.H{
		"view":   toView(ws.Search.View(), h.assetHost),
		"result": toResult(res),
	})
}

func (h *Handler) SelectTag(c *gin.Context) {
	ws := h.workspace(c)
	res := ws.Search.SelectTag(c.Request.Context(), c.Param("label"))
	response.Success(c, http.StatusOK, gin.H{
		"view":   toView(ws.Search.View(), h.assetHost),
		"result": toResult(res),
	})
}

func (h *Handler) Clear(c *gin.Context) {
	ws := h.workspace(c)
	res := ws.Search.Clear(c.Request.Context())
	response.Success(c, http.StatusOK, gin.H{
		"view":   toView(ws.Search.View(), h.assetHost),
		"result": toResult(res),
	})
}

func (h *Handler) ImageDetail(c *gin.Context) {
	res := h.workspace(c).Store.FetchImage(c.Request.Context(), c.Param("id"))
	if !res.Success {
		backendError(c, "Failed to load image", res.Err)
		return
	}
	response.Success(c, http.StatusOK, toImage(res.Data, h.assetHost))
}

// DeleteImage godoc
// @Summary Delete an image
// @Security BearerAuth
// @Param id path string true "Image ID"
// @Router /search/images/{id} [delete]
func (h *Handler) DeleteImage(c *gin.Context) {
	id := c.Param("id")
	res := h.workspace(c).Store.DeleteImage(c.Request.Context(), id)
	if !res.Success {
		backendError(c, "Failed to delete image", res.Err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": id})
}

// Notifications drains the pending toasts of the workspace.
func (h *Handler) Notifications(c *gin.Context) {
	response.Success(c, http.StatusOK, h.workspace(c).Feed.Drain())
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
