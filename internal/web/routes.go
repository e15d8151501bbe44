package web

import (
	"github.com/gin-gonic/gin"

	"memorylens/internal/middleware"
	"memorylens/internal/session"
)

// EntryRoute is where signed-out visitors of protected routes are sent.
const EntryRoute = "/"

// RegisterRoutes mounts the landing page and the two guarded sections.
func (h *Handler) RegisterRoutes(r *gin.Engine, p session.Provider) {
	r.GET(EntryRoute, middleware.Session(p), h.Landing)

	protected := r.Group("/")
	protected.Use(middleware.RouteGuard(p, EntryRoute))
	{
		uploads := protected.Group("/upload")
		uploads.GET("", h.UploadPage)
		uploads.POST("", h.UploadFiles)
		uploads.GET("/progress", h.Progress)
		uploads.GET("/history", h.History)
		uploads.GET("/ws", h.ProgressSocket)

		searches := protected.Group("/search")
		searches.GET("", h.SearchPage)
		searches.POST("", h.Submit)
		searches.POST("/tags/:label", h.SelectTag)
		searches.POST("/clear", h.Clear)
		searches.GET("/images/:id", h.ImageDetail)
		searches.DELETE("/images/:id", h.DeleteImage)

		protected.GET("/notifications", h.Notifications)
	}
}

// Options configures NewRouter.
type Options struct {
	Provider    session.Provider
	Handler     *Handler
	CORSOrigins []string
	Logger      bool
}

// NewRouter builds the gin engine with the ambient middleware stack.
func NewRouter(opts Options) *gin.Engine {
	r := gin.New()
	if opts.Logger {
		r.Use(gin.Logger())
	}
	r.Use(middleware.ErrorLogger(), middleware.CORS(opts.CORSOrigins))
	opts.Handler.RegisterRoutes(r, opts.Provider)
	return r
}
