package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/storygraph/kgraph-backend/internal/graphstore"
	"github.com/storygraph/kgraph-backend/internal/graphstore/memstore"
	"github.com/storygraph/kgraph-backend/internal/handlers"
	"github.com/storygraph/kgraph-backend/internal/keystore"
	"github.com/storygraph/kgraph-backend/internal/platform/logger"
	"github.com/storygraph/kgraph-backend/internal/platform/neo4jdb"
	"github.com/storygraph/kgraph-backend/internal/server"
	"github.com/storygraph/kgraph-backend/internal/services"
)

type App struct {
	Log    *logger.Logger
	Cfg    Config
	Router *gin.Engine
	Graph  *services.GraphService

	neo       *neo4jdb.Client
	redisKeys *keystore.Redis
}

func New() (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	neo, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init neo4j: %w", err)
	}
	mode, err := ResolveStoreMode(cfg.StoreMode, neo != nil)
	if err != nil {
		log.Sync()
		return nil, err
	}

	var store graphstore.Store
	switch mode {
	case StoreModeNeo4j:
		store = neo
	default:
		store = memstore.New()
		if neo != nil {
			_ = neo.Close(context.Background())
			neo = nil
		}
	}
	log.Info("graph store selected", "mode", string(mode))

	redisKeys, err := keystore.NewRedisFromEnv(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init keystore: %w", err)
	}
	var keys keystore.KeyStore
	if redisKeys != nil {
		keys = redisKeys
		log.Info("key store selected", "backend", "redis")
	} else {
		keys = keystore.NewMemory()
		log.Info("key store selected", "backend", "memory")
	}

	graphService := services.NewGraphService(store, keys, log, cfg.PrimaryProps)
	graphHandler := handlers.NewGraphHandler(log, graphService)
	router := server.NewRouter(server.RouterConfig{
		GraphHandler:   graphHandler,
		AllowedOrigins: cfg.AllowedOrigins,
		GinMode:        cfg.GinMode,
	})

	return &App{
		Log:       log,
		Cfg:       cfg,
		Router:    router,
		Graph:     graphService,
		neo:       neo,
		redisKeys: redisKeys,
	}, nil
}

// Run serves HTTP until the context is cancelled, then shuts down
// gracefully.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    ":" + a.Cfg.Port,
		Handler: a.Router,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Log.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.neo != nil {
		_ = a.neo.Close(context.Background())
		a.neo = nil
	}
	if a.redisKeys != nil {
		_ = a.redisKeys.Close()
		a.redisKeys = nil
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
