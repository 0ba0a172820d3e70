package report

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lukejeff/swapbench/internal/models"
	"github.com/lukejeff/swapbench/internal/results"
	"gorm.io/gorm"
)

// ServeOpts holds configuration for the review server.
type ServeOpts struct {
	Store *results.Store
	DB    *gorm.DB // optional; enables the session/request JSON endpoints
	Port  int
	Out   io.Writer
}

// Serve launches the review HTTP server over the results directory. Pages
// are rebuilt on every request so a batch can keep running alongside it.
// Blocks until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, opts ServeOpts) error {
	if opts.Store == nil {
		return fmt.Errorf("report: results store is required")
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	tmpl, err := parseTemplates()
	if err != nil {
		return err
	}
	router.SetHTMLTemplate(tmpl)

	registerRoutes(router, opts.Store, opts.DB)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Review server running at http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}

func registerRoutes(router *gin.Engine, store *results.Store, db *gorm.DB) {
	router.Static("/results", store.Dir)

	router.GET("/", handlePage(store, "index.html"))
	router.GET("/compare", handlePage(store, "compare.html"))
	router.GET("/review", handlePage(store, "review.html"))

	if db != nil {
		router.GET("/api/sessions", handleSessions(db))
		router.GET("/api/sessions/:id/requests", handleSessionRequests(db))
	}
}

func handlePage(store *results.Store, tpl string) gin.HandlerFunc {
	return func(c *gin.Context) {
		r, err := Build(store)
		if err != nil {
			c.String(http.StatusInternalServerError, "scan results: %v", err)
			return
		}
		c.HTML(http.StatusOK, tpl, pageData{
			Report:      r,
			ImagePrefix: "/results/",
			IndexHref:   "/",
			CompareHref: "/compare",
			ReviewHref:  "/review",
		})
	}
}

func handleSessions(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var sessions []models.RunSession
		if err := db.Order("started_at desc").Limit(50).Find(&sessions).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, sessions)
	}
}

func handleSessionRequests(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var requests []models.SwapRequest
		err := db.Where("session_id = ?", c.Param("id")).
			Order("batch_num").Find(&requests).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, requests)
	}
}
