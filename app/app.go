package sealroom

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/cors"

	"sealroom/handlers"
	"sealroom/pkg/cipher"
	"sealroom/pkg/router"
	"sealroom/store"
)

type App struct {
	config  *Config
	db      *store.SQLiteDB
	context context.Context
	server  *http.Server
	logger  *slog.Logger
	router  *router.Router
	box     *cipher.Box

	exit chan int

	userStore store.UserStore
	chatStore store.ChatStore
	authStore store.AuthStore

	userHandler *handlers.UserHandler
	chatHandler *handlers.ChatHandler
	authHandler *handlers.AuthHandler

	cleanupFuncs []func(context.Context)
}

func New(ctx context.Context, config *Config) *App {
	var err error
	app := &App{
		exit: make(chan int),
	}
	if ctx == nil {
		ctx, _ = signal.NotifyContext(
			context.Background(),
			syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)
	}
	app.context = ctx

	if config == nil {
		config, err = LoadConfig()
		if err != nil {
			failed(1, "failed to load config: %v\n", err)
		}
	}
	if err := config.Validate(); err != nil {
		failed(1, FormatValidationErrors(err))
	}
	app.config = config

	app.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: true,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.SourceKey {
				source, _ := a.Value.Any().(*slog.Source)
				if source != nil {
					source.File = filepath.Base(source.File)
				}
			}
			return a
		},
	}))

	app.box, err = cipher.NewBox(app.config.Cipher.Key)
	if err != nil {
		failed(1, "failed to construct message cipher: %v\n", err)
	}

	sqliteOptions := &store.SQLiteDBOption{
		Mode:        "rwc",
		Cache:       "shared",
		JournalMode: "WAL",
		ForeignKeys: true,
	}
	app.db, err = store.NewSQLiteDB(app.config.SQLite.File, app.config.SQLite.Migrations, sqliteOptions)
	if err != nil {
		failed(1, "failed to open database: %v\n", err)
	}
	app.AddCleanupFunc(func(ctx context.Context) {
		app.db.Close()
	})
	if err := app.db.Migrate(); err != nil {
		failed(1, "failed to migrate database: %v\n", err)
	}

	app.userStore = store.NewSQLiteUserStore(app.db.DB)
	app.authStore = store.NewSQLiteAuthStore(app.db.DB, app.userStore, app.config.Auth.Secret)
	app.chatStore = store.NewSQLiteChatStore(app.db.DB, app.box, app.logger)

	app.userHandler = handlers.NewUserHandler(app.userStore)
	app.chatHandler = handlers.NewChatHandler(app.chatStore)
	app.authHandler = handlers.NewAuthHandler(app.authStore)
	authMiddleware := handlers.JWTMiddleware(app.authStore)

	app.router = router.New(router.WithLogger(app.logger))

	app.router.Router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   app.config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	api := router.New(router.WithLogger(app.logger))

	api.Get("/health", func(w http.ResponseWriter, r *http.Request) error {
		w.WriteHeader(http.StatusOK)
		return nil
	})

	api.Route("/users", func(r *router.Router) {
		r.Post("/", app.userHandler.CreateUserHandler)
		r.With(authMiddleware).Get("/", app.userHandler.ListUsersHandler)
		r.With(authMiddleware).Get("/me", app.userHandler.MeHandler)
		r.With(authMiddleware).Put("/me", app.userHandler.UpdateProfileHandler)
		r.Get("/{username}", app.userHandler.GetUserByUsernameHandler)
	})

	api.Group(func(r *router.Router) {
		r.Use(authMiddleware)
		r.Get("/users/me/rooms", app.chatHandler.GetMyRoomsHandler)
		r.Post("/rooms", app.chatHandler.CreateRoomHandler)
		r.Get("/rooms/public", app.chatHandler.GetPublicRoomsHandler)
		r.Get("/rooms/{roomID}", app.chatHandler.GetRoomByIDHandler)
		r.Post("/rooms/{roomID}/join", app.chatHandler.JoinRoomHandler)
		r.Post("/rooms/{roomID}/leave", app.chatHandler.LeaveRoomHandler)
		r.Get("/rooms/{roomID}/messages", app.chatHandler.GetRoomMessagesHandler)
		r.Post("/rooms/{roomID}/messages", app.chatHandler.SendMessageHandler)
		r.Post("/rooms/{roomID}/read", app.chatHandler.ReadRoomMessagesHandler)
		r.Put("/messages/{messageID}", app.chatHandler.EditMessageHandler)
		r.Delete("/messages/{messageID}", app.chatHandler.DeleteMessageHandler)
	})

	api.Route("/auth", func(r *router.Router) {
		r.Post("/signin", app.authHandler.SigninHandler)
		r.With(authMiddleware).Post("/signout", app.authHandler.SignoutHandler)
	})

	app.router.Mount("/api", api)

	app.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", app.config.Hostname, app.config.Port),
		Handler: app.router.Router,
		BaseContext: func(listener net.Listener) context.Context {
			return app.context
		},
	}

	return app
}

func (app *App) Start() {
	// listen for shutdown signal
	go func() {
		<-app.context.Done()
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer closeCancel()
		var wg sync.WaitGroup

		for _, f := range app.cleanupFuncs {
			wg.Add(1)
			go func(f func(context.Context)) {
				defer wg.Done()
				f(closeCtx)
			}(f)
		}

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			app.logger.Info("app shutdown gracefully")
			app.exit <- 0
		case <-closeCtx.Done():
			app.logger.Info("app shutdown timed out")
			app.exit <- 1
		}
	}()

	app.AddCleanupFunc(func(ctx context.Context) {
		app.server.Shutdown(ctx)
	})

	app.logger.Info(fmt.Sprintf("app running on: %s:%d", app.config.Hostname, app.config.Port))

	err := app.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		failed(1, "server error: %v\n", err)
	}

	code := <-app.exit
	if code != 0 {
		failed(code, "app exit with code: %d\n", code)
	} else {
		os.Exit(code)
	}
}

func (app *App) AddCleanupFunc(f func(context.Context)) {
	app.cleanupFuncs = append(app.cleanupFuncs, f)
}

func failed(code int, s string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, s, args...)
	os.Exit(code)
}
