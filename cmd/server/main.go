package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mini-social-server/internal/config"
	"mini-social-server/internal/handler"
	"mini-social-server/internal/middleware"
	"mini-social-server/internal/repository"
	"mini-social-server/internal/service"
	"mini-social-server/pkg/jwt"
	"mini-social-server/pkg/logger"

	_ "github.com/go-kivik/kivik/v4/couchdb"

	"github.com/go-kivik/kivik/v4"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	log := logger.New("mini-social-server", cfg.Server.Env, cfg.Logging.Level)

	if cfg.UsesDefaultSecrets() {
		log.Warn("JWT secrets are not configured; using insecure development defaults")
	}

	client, err := kivik.New("couch", cfg.CouchURL())
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to CouchDB")
	}

	if err := prepareDatabase(client, cfg.Database.Name, log); err != nil {
		log.WithError(err).Fatal("Failed to prepare database")
	}

	userRepo := repository.NewUserRepository(client, cfg.Database.Name)
	postRepo := repository.NewPostRepository(client, cfg.Database.Name)
	commentRepo := repository.NewCommentRepository(client, cfg.Database.Name)
	followRepo := repository.NewFollowRepository(client, cfg.Database.Name)

	tokens := jwt.NewManager(jwt.Config{
		AccessSecret:      cfg.JWT.Secret,
		RefreshSecret:     cfg.JWT.RefreshSecret,
		AccessExpiration:  cfg.JWT.Expiration,
		RefreshExpiration: cfg.JWT.RefreshTokenExpiration,
	})

	authService := service.NewAuthService(userRepo, tokens, log)
	userService := service.NewUserService(userRepo, postRepo, followRepo)
	postService := service.NewPostService(postRepo, userRepo)
	commentService := service.NewCommentService(commentRepo, postRepo, userRepo)
	followService := service.NewFollowService(followRepo, userRepo)

	opts := handler.Options{
		Log:          log,
		ExposeErrors: !cfg.IsProduction(),
	}

	router := handler.Router{
		Auth:         handler.NewAuthHandler(authService, opts),
		User:         handler.NewUserHandler(userService, opts),
		Post:         handler.NewPostHandler(postService, opts),
		Comment:      handler.NewCommentHandler(commentService, opts),
		Follow:       handler.NewFollowHandler(followService, opts),
		Authenticate: middleware.AuthMiddleware(middleware.VerifierFunc(authService.Identity)),
		Middleware: []mux.MiddlewareFunc{
			middleware.LoggerMiddleware(log),
			middleware.CORSMiddleware(
				cfg.CORS.AllowedOrigins,
				cfg.CORS.AllowedMethods,
				cfg.CORS.AllowedHeaders,
			),
		},
		StaticDir: cfg.Static.Dir,
	}

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      router.Build(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"addr": addr,
			"env":  cfg.Server.Env,
			"db":   fmt.Sprintf("%s:%s/%s", cfg.Database.Host, cfg.Database.Port, cfg.Database.Name),
		}).Info("Starting mini social server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Fatal("Server forced to shutdown")
	}

	log.Info("Server stopped gracefully")
}

func prepareDatabase(client *kivik.Client, dbName string, log logrus.FieldLogger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	created, err := repository.EnsureDatabase(ctx, client, dbName)
	if err != nil {
		return err
	}
	if created {
		log.WithField("db", dbName).Info("Created database")
	}

	if err := repository.EnsureIndexes(ctx, client, dbName); err != nil {
		return err
	}

	return repository.EnsureViews(ctx, client, dbName)
}
