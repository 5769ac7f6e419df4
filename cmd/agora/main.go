package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/yumeworks/agora/internal/config"
	"github.com/yumeworks/agora/internal/infra/database"
	"github.com/yumeworks/agora/internal/infra/repository"
	"github.com/yumeworks/agora/internal/present/rest"
	authmiddleware "github.com/yumeworks/agora/internal/present/rest/middleware"
	"github.com/yumeworks/agora/internal/service"
	"github.com/yumeworks/agora/internal/usecase"
)

func main() {
	configPath := os.Getenv("AGORA_CONFIG")
	if configPath == "" {
		configPath = "/etc/agora/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	db, err := database.NewPostgres(cfg.Server.PostgresDsn)
	if err != nil {
		panic("failed to connect database")
	}

	err = database.MigratePostgres(db)
	if err != nil {
		panic("failed to migrate database")
	}

	rdb := database.NewRedis(cfg.Server.RedisAddr, cfg.Server.RedisDB)

	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewCachedRoleRepository(repository.NewRoleRepository(db), rdb)
	groupRepo := repository.NewGroupRepository(db)
	itemRepo := repository.NewItemRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	tx := database.NewTransactor(db)

	signer := service.NewSignerService()
	tokens := service.NewTokenService(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL())
	signal := service.NewSignalService(rdb)

	roles := usecase.NewRoleUsecase(roleRepo, groupRepo)
	auth := usecase.NewAuthUsecase(userRepo, roles, signer, tokens, tx)
	groups := usecase.NewGroupUsecase(groupRepo, itemRepo, roles, tx, signal, usecase.QuotaPolicy{
		OwnerItems:  cfg.Quotas.OwnerItemLimit(),
		MemberItems: cfg.Quotas.MemberItemLimit(),
	})
	users := usecase.NewUserUsecase(userRepo, itemRepo, messageRepo, roles, groups, signer, tx)
	messages := usecase.NewMessageUsecase(messageRepo, userRepo)

	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	if cfg.Server.EnableTrace {
		cleanup, err := setupTrace(cfg.Server.TraceEndpoint)
		if err != nil {
			slog.Error("failed to setup tracing", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer cleanup()

		e.Use(otelecho.Middleware("agora"))
	}

	e.Use(authmiddleware.NewAuthMiddleware(tokens).IdentifyRequester)

	handler := rest.NewHandler(auth, users, roles, groups, messages, signal)
	handler.RegisterRoutes(e)

	e.Logger.Fatal(e.Start(cfg.Server.Listen))
}

func setupTrace(endpoint string) (func(), error) {
	ctx := context.Background()

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(provider)

	return func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			slog.Error("failed to shutdown tracer provider", slog.String("error", err.Error()))
		}
	}, nil
}
