package http

import (
	"log/slog"
	"time"

	"github.com/geocoder89/jumpin/internal/cache"
	"github.com/geocoder89/jumpin/internal/domain/profile"
	"github.com/geocoder89/jumpin/internal/http/handlers"
	"github.com/geocoder89/jumpin/internal/http/middlewares"
	"github.com/geocoder89/jumpin/internal/observability"
	"github.com/geocoder89/jumpin/internal/sheets"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxBodyBytes = 64 << 10

type Deps struct {
	Env         string
	ServiceName string
	Logger      *slog.Logger
	Prom        *observability.Prom
	CORSOrigins []string

	Sessions     middlewares.SessionResolver
	Registration handlers.Registrar
	Identity     handlers.Authenticator
	Rotator      handlers.SessionRotator
	Checkin      handlers.CheckinService
	Profiles     handlers.ProfileReader
	Schools      *profile.Catalogue

	Mirror     sheets.Mirror
	Dispatcher handlers.MirrorRunner

	ProfileCache *cache.Cache
	ReadyChecks  map[string]handlers.ReadyCheck

	// LoginLimit caps credential attempts per IP per minute. Zero means 10.
	LoginLimit int
}

func NewRouter(d Deps) *gin.Engine {
	if d.Env != "dev" && d.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}
	if d.ServiceName == "" {
		d.ServiceName = "jumpin-api"
	}
	if d.LoginLimit <= 0 {
		d.LoginLimit = 10
	}
	if d.ProfileCache == nil {
		d.ProfileCache = cache.New(30 * time.Second)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(otelgin.Middleware(d.ServiceName))
	r.Use(middlewares.RequestLogger(d.Logger))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.CORSOrigins))
	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))
	r.Use(middlewares.RequireJSON())

	// health and metrics
	health := handlers.NewHealthHandler(d.ReadyChecks)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)
	if d.Prom != nil {
		r.GET("/metrics", gin.WrapH(d.Prom.Handler()))
	}

	schools := handlers.NewSchoolsHandler(d.Schools)
	r.GET("/schools", schools.List)

	authMW := middlewares.NewAuthMiddleware(d.Sessions)
	loginLimiter := middlewares.NewRateLimiter(d.LoginLimit, time.Minute)

	authH := handlers.NewAuthHandler(d.Registration, d.Identity, d.Rotator, d.Env == "prod")
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", loginLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authH.Register)
		authGroup.POST("/login", loginLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authH.Login)
		authGroup.POST("/refresh", authH.Refresh)
		authGroup.POST("/logout", authH.Logout)
	}

	profileH := handlers.NewProfileHandler(d.Profiles, d.ProfileCache)
	r.GET("/me", authMW.RequireAuth(), profileH.Me)

	checkinH := handlers.NewCheckinHandler(d.Checkin, d.ProfileCache)
	scans := r.Group("/checkin/scans", authMW.RequireAuth())
	{
		scans.POST("", checkinH.OpenScan)
		scans.POST("/:scanId/decode", checkinH.Decode)
		scans.DELETE("/:scanId", checkinH.CloseScan)
	}

	syncH := handlers.NewSheetsSyncHandler(d.Mirror, d.Dispatcher)
	sync := r.Group("/api/sheets", authMW.RequireAuth())
	{
		sync.POST("/register", syncH.Register)
		sync.POST("/checkin", syncH.Checkin)
	}

	return r
}
