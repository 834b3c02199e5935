package main

import (
	"context"
	"log"

	"github.com/rust-lang/monitorbot/internal"
	"github.com/rust-lang/monitorbot/internal/collector"
	"github.com/rust-lang/monitorbot/internal/gh"
	"github.com/rust-lang/monitorbot/internal/handler"
	"github.com/rust-lang/monitorbot/internal/service"
	"github.com/rust-lang/monitorbot/internal/settings"
	"github.com/rust-lang/monitorbot/internal/store"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	_ "modernc.org/sqlite"
)

func main() {
	settings.ReadDotenv(internal.DotEnvPath)
	appSettings, err := settings.NewSettings()
	if err != nil {
		log.Fatal(err)
	}
	settings.Settings = appSettings

	rdb := store.InitDatabase(true)
	defer rdb.Close()
	rwdb := store.InitDatabase(false)
	defer rwdb.Close()
	store.RunMigrations(rwdb, internal.MigrationsDir)

	scheduler := service.NewScheduler()
	defer scheduler.Shutdown()

	refreshSvc := service.NewRefreshService(
		store.NewObservationSQLiteStore(rdb, rwdb),
		scheduler,
	)
	provider := collector.NewProvider()
	if err := registerCollectors(provider, refreshSvc, appSettings); err != nil {
		log.Fatal("unable to register collectors: ", err)
	}
	if err := refreshSvc.ScheduleDailyPrune(); err != nil {
		log.Fatal(err)
	}
	scheduler.Start()

	e := setupEcho()
	h := handler.NewMetricsHandler(provider.Registry(), refreshSvc)
	gated := e.Group("", handler.SecretAuth(appSettings.Secret))
	gated.GET("/metrics", h.GetMetrics)
	gated.GET("/status", h.GetStatus)
	e.RouteNotFound("/*", h.GetLiveness)

	internal.GracefulShutdown(e, appSettings.Port)
}

func registerCollectors(
	provider *collector.Provider,
	refreshSvc *service.RefreshService,
	appSettings *settings.AppSettings,
) error {
	ctx := context.Background()

	apis := make([]collector.RateLimitAPI, 0, len(appSettings.RateLimitTokens))
	for _, token := range appSettings.RateLimitTokens {
		apis = append(apis, gh.NewClient(token))
	}
	rateLimit, err := collector.NewGitHubRateLimit(ctx, apis)
	if err != nil {
		return err
	}
	if err := provider.Register(rateLimit); err != nil {
		return err
	}
	if err := refreshSvc.ScheduleCollector(rateLimit, appSettings.RateLimitRefresh); err != nil {
		return err
	}

	runners, err := collector.NewGithubRunners(
		gh.NewClient(appSettings.GithubToken),
		appSettings.RunnersRepos,
	)
	if err != nil {
		return err
	}
	if err := provider.Register(runners); err != nil {
		return err
	}
	return refreshSvc.ScheduleCollector(runners, appSettings.RunnersRefresh)
}

func setupEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handler.ErrorHandler
	e.Use(
		middleware.Recover(),
		middleware.RateLimiterWithConfig(internal.GetRateLimiterConfig()),
	)
	return e
}
