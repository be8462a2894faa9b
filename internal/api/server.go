package api

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/lucasmv/licita-radar/internal/ai"
	"github.com/lucasmv/licita-radar/internal/cache"
	"github.com/lucasmv/licita-radar/internal/classify"
	"github.com/lucasmv/licita-radar/internal/db"
	"github.com/lucasmv/licita-radar/internal/historico"
	"github.com/lucasmv/licita-radar/internal/ingest"
	"github.com/lucasmv/licita-radar/internal/market"
	"github.com/lucasmv/licita-radar/internal/match"
	"github.com/lucasmv/licita-radar/internal/models"
)

type Server struct {
	Echo      *echo.Echo
	DB        *pgxpool.Pool
	Store     *db.Store
	Notices   *cache.NoticeCache
	Historico *historico.Service
	Market    *market.Analyzer
	Pipeline  *ingest.Pipeline
	AI        *ai.OllamaClient

	// Background job tracking
	jobMu      sync.Mutex
	runningJob *backgroundJob
}

type backgroundJob struct {
	ID        string             `json:"id"`
	Status    string             `json:"status"` // running, completed, failed
	StartedAt time.Time          `json:"started_at"`
	EndedAt   time.Time          `json:"ended_at,omitempty"`
	Result    any                `json:"result,omitempty"`
	Error     string             `json:"error,omitempty"`
	Cancel    context.CancelFunc `json:"-"`
}

var (
	adminSecretOnce    sync.Once
	adminSecretRuntime string
	adminSecretErr     error
)

func NewServer(pool *pgxpool.Pool) *Server {
	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	allowedOrigins := []string{"http://localhost:4200"}
	if extra := os.Getenv("CORS_ORIGINS"); extra != "" {
		for _, o := range strings.Split(extra, ",") {
			o = strings.TrimSpace(o)
			if o != "" {
				allowedOrigins = append(allowedOrigins, o)
			}
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, "X-Admin-Secret"},
	}))

	store := db.NewStore(pool)
	notices := cache.NewNoticeCache()

	ollamaHost := os.Getenv("OLLAMA_HOST")
	aiClient := ai.NewOllamaClient(ollamaHost, "", os.Getenv("OLLAMA_GEN_MODEL"))

	historicoSvc := historico.NewService(store, aiClient)
	analyzer := market.NewAnalyzer(store, ai.NewMarketEnricher(aiClient))
	analyzer.Search = store
	analyzer.Embedder = aiClient

	registry, err := ingest.LoadRegistry(os.Getenv("SOURCES_FILE"))
	if err != nil {
		log.Printf("api: source registry unavailable: %v", err)
		registry = &ingest.Registry{}
	}
	pipeline := ingest.NewPipeline(registry, nil, notices, historicoSvc, store)

	s := &Server{
		Echo:      e,
		DB:        pool,
		Store:     store,
		Notices:   notices,
		Historico: historicoSvc,
		Market:    analyzer,
		Pipeline:  pipeline,
		AI:        aiClient,
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.Echo.GET("/health", s.handleHealth)

	api := s.Echo.Group("/api/v1")
	api.POST("/classify", s.handleClassify)
	api.POST("/match", s.handleMatch)
	api.POST("/digest", s.handleDigest)
	api.POST("/market/analysis", s.handleMarketAnalysis)
	api.GET("/historico/stats", s.handleHistoricoStats)
	api.GET("/contratos", s.handleListContracts)
	api.GET("/editais", s.handleListNotices)

	admin := api.Group("")
	admin.Use(s.adminMiddleware)
	admin.POST("/historico/ingest", s.handleHistoricoIngest)
	admin.POST("/ingest/source/:id", s.handleIngestSource)
	admin.POST("/admin/recategorize", s.handleRecategorize)
	admin.GET("/admin/job/:id", s.handleJobStatus)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

type classifyRequest struct {
	Text string `json:"text"`
}

type classifyResponse struct {
	Area     string   `json:"area"`
	Tags     []string `json:"tags"`
	Keywords []string `json:"keywords"`
}

func (s *Server) handleClassify(c echo.Context) error {
	var req classifyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	result := classify.Classify(req.Text)
	return c.JSON(http.StatusOK, classifyResponse{
		Area:     result.Area,
		Tags:     result.Tags,
		Keywords: classify.Keywords(req.Text),
	})
}

type matchRequest struct {
	Profile     models.CompanyProfile `json:"profile"`
	Opportunity models.Opportunity    `json:"opportunity"`
}

func (s *Server) handleMatch(c echo.Context) error {
	var req matchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if strings.TrimSpace(req.Opportunity.ObjectDescription) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "opportunity.object_description is required"})
	}

	return c.JSON(http.StatusOK, match.Score(req.Opportunity, req.Profile))
}

type digestRequest struct {
	Profile   models.CompanyProfile `json:"profile"`
	Threshold int                   `json:"threshold"`
	Limit     int                   `json:"limit"`
	// Notices lets clients rank their own batch; when empty, the live
	// ingested notices are used.
	Notices []models.Opportunity `json:"notices"`
}

func (s *Server) handleDigest(c echo.Context) error {
	var req digestRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	pool := req.Notices
	if len(pool) == 0 {
		pool = s.Notices.All()
	}

	ranked := match.Digest(req.Profile, pool, req.Threshold, req.Limit)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"total_considered": len(pool),
		"matches":          ranked,
	})
}

type marketRequest struct {
	ObjectDescription string   `json:"object_description"`
	State             string   `json:"state"`
	OrgTaxID          string   `json:"org_tax_id"`
	EstimatedValue    *float64 `json:"estimated_value"`
}

func (s *Server) handleMarketAnalysis(c echo.Context) error {
	var req marketRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if strings.TrimSpace(req.ObjectDescription) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "object_description is required"})
	}

	analysis, err := s.Market.Analyze(c.Request().Context(), market.Query{
		ObjectDescription: req.ObjectDescription,
		State:             req.State,
		OrgTaxID:          req.OrgTaxID,
		EstimatedValue:    req.EstimatedValue,
		Opportunities:     s.Notices.All(),
	})
	if err != nil {
		c.Logger().Errorf("market analysis failed: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}
	if analysis == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "No similar contracts in the historical base"})
	}

	return c.JSON(http.StatusOK, analysis)
}

func (s *Server) handleHistoricoStats(c echo.Context) error {
	stats, err := s.Historico.Stats(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) handleListContracts(c echo.Context) error {
	params := db.ContractListParams{
		State:    c.QueryParam("state"),
		OrgTaxID: c.QueryParam("org_tax_id"),
		Area:     c.QueryParam("area"),
	}

	if l, err := strconv.Atoi(c.QueryParam("limit")); err == nil && l > 0 && l <= 200 {
		params.Limit = l
	}
	if o, err := strconv.Atoi(c.QueryParam("offset")); err == nil && o >= 0 {
		params.Offset = o
	}
	if raw := c.QueryParam("from"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			params.From = &t
		}
	}
	if raw := c.QueryParam("to"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			params.To = &t
		}
	}

	result, err := s.Store.ListContractsPage(c.Request().Context(), params)
	if err != nil {
		c.Logger().Errorf("failed to list contracts: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleListNotices(c echo.Context) error {
	var notices []models.Opportunity
	if source := c.QueryParam("source"); source != "" {
		notices = s.Notices.BySource(source)
	} else {
		notices = s.Notices.All()
	}
	if notices == nil {
		notices = []models.Opportunity{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"total":   len(notices),
		"editais": notices,
	})
}

type historicoIngestRequest struct {
	Contracts []models.Contract `json:"contracts"`
}

func (s *Server) handleHistoricoIngest(c echo.Context) error {
	var req historicoIngestRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if len(req.Contracts) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "contracts array is empty"})
	}

	stats, err := s.Historico.Ingest(c.Request().Context(), req.Contracts)
	if err != nil {
		c.Logger().Errorf("historico ingest failed: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Ingestion aborted",
			"stats": stats,
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Ingestion complete",
		"stats":   stats,
	})
}

func (s *Server) handleIngestSource(c echo.Context) error {
	sourceID := c.Param("id")

	stats, err := s.Pipeline.RunSource(c.Request().Context(), sourceID)
	if err != nil {
		status := http.StatusInternalServerError
		if strings.Contains(err.Error(), "unknown source") {
			status = http.StatusNotFound
		}
		return c.JSON(status, map[string]interface{}{
			"error": err.Error(),
			"stats": stats,
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": fmt.Sprintf("%s ingestion complete", sourceID),
		"stats":   stats,
	})
}

// handleRecategorize re-runs classification over contracts currently
// filed under the default area. Runs detached from the HTTP request.
func (s *Server) handleRecategorize(c echo.Context) error {
	s.jobMu.Lock()
	if s.runningJob != nil && s.runningJob.Status == "running" {
		job := s.runningJob
		s.jobMu.Unlock()
		return c.JSON(http.StatusConflict, map[string]interface{}{
			"error":  "A recategorize job is already running",
			"job_id": job.ID,
		})
	}

	// context.WithoutCancel detaches from HTTP lifecycle; the timeout
	// bounds runaway jobs.
	jobCtx, jobCancel := context.WithTimeout(
		context.WithoutCancel(c.Request().Context()), 30*time.Minute,
	)

	jobID := uuid.New().String()[:8]
	job := &backgroundJob{
		ID:        jobID,
		Status:    "running",
		StartedAt: time.Now(),
		Cancel:    jobCancel,
	}
	s.runningJob = job
	s.jobMu.Unlock()

	go func() {
		defer jobCancel()

		updated, err := s.Historico.Recategorize(jobCtx)

		s.jobMu.Lock()
		defer s.jobMu.Unlock()
		job.EndedAt = time.Now()
		if err != nil {
			job.Status = "failed"
			job.Error = err.Error()
			log.Printf("[recategorize-job %s] failed: %v", jobID, err)
			return
		}
		job.Status = "completed"
		job.Result = map[string]interface{}{"updated": updated}
		log.Printf("[recategorize-job %s] completed: updated=%d", jobID, updated)
	}()

	return c.JSON(http.StatusAccepted, map[string]interface{}{
		"message": "Recategorize job started",
		"job_id":  jobID,
		"poll":    fmt.Sprintf("/api/v1/admin/job/%s", jobID),
	})
}

func (s *Server) handleJobStatus(c echo.Context) error {
	queried := c.Param("id")
	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	job := s.runningJob
	if job == nil || job.ID != queried {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "job not found"})
	}

	resp := map[string]interface{}{
		"id":         job.ID,
		"status":     job.Status,
		"started_at": job.StartedAt,
	}
	if !job.EndedAt.IsZero() {
		resp["ended_at"] = job.EndedAt
		resp["duration"] = job.EndedAt.Sub(job.StartedAt).String()
	}
	if job.Result != nil {
		resp["result"] = job.Result
	}
	if job.Error != "" {
		resp["error"] = job.Error
	}

	return c.JSON(http.StatusOK, resp)
}

func (s *Server) Start(port string) error {
	return s.Echo.Start(":" + port)
}

func (s *Server) adminMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		secret, err := adminSecret()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Server admin configuration error"})
		}

		authHeader := c.Request().Header.Get("Authorization")
		adminHeader := c.Request().Header.Get("X-Admin-Secret")

		if adminHeader == secret {
			return next(c)
		}
		if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
			if authHeader[7:] == secret {
				return next(c)
			}
		}

		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized admin access"})
	}
}

func adminSecret() (string, error) {
	adminSecretOnce.Do(func() {
		secret := strings.TrimSpace(os.Getenv("ADMIN_SECRET"))
		if secret != "" {
			adminSecretRuntime = secret
			return
		}

		buf := make([]byte, 48)
		if _, err := rand.Read(buf); err != nil {
			adminSecretErr = fmt.Errorf("failed to generate ADMIN_SECRET fallback: %w", err)
			return
		}

		adminSecretRuntime = base64.RawURLEncoding.EncodeToString(buf)
		log.Print("ADMIN_SECRET is not set; using ephemeral in-memory fallback secret")
	})

	if adminSecretErr != nil {
		return "", adminSecretErr
	}
	if adminSecretRuntime == "" {
		return "", fmt.Errorf("admin secret unavailable")
	}

	return adminSecretRuntime, nil
}
