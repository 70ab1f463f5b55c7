package app

import (
	"context"
	"log/slog"

	httpapp "ansel/internal/app/http"
	"ansel/internal/config"
	"ansel/internal/lib/charset"
	"ansel/internal/lib/logger/sl"
	"ansel/internal/lib/textfilter"
	"ansel/internal/lib/urls"
	"ansel/internal/repository"
	gallery "ansel/internal/services/gallery_service"
	render "ansel/internal/services/image_service"
	"ansel/internal/storage"
	"ansel/internal/storage/filestorage"
	"ansel/internal/storage/memcache"
	"ansel/internal/storage/postgresql"
	redisapp "ansel/internal/storage/redis"
	httprouters "ansel/internal/transport/http"
)

const (
	cacheRedis  = "redis"
	cacheMemory = "memory"
)

type App struct {
	HTTPServer *httpapp.Server

	log   *slog.Logger
	db    *postgresql.Storage
	redis *redisapp.Client
}

func New(ctx context.Context, log *slog.Logger, cfg *config.Config) *App {
	conv := charset.MustNew(cfg.SQL.Charset)

	db, err := postgresql.New(ctx, cfg.DSN)
	if err != nil {
		panic(err)
	}

	if err := db.Migrate(ctx); err != nil {
		panic(err)
	}

	repo := repository.New(db.Pool(), conv)

	a := &App{log: log, db: db}

	var cache storage.Cache
	if cfg.Cache.UseCache {
		switch cfg.Cache.Driver {
		case cacheRedis:
			a.redis = redisapp.NewClient(cfg.Redis.RedisAddr, cfg.Redis.RedisPassword, cfg.Redis.RedisDB)
			if err := a.redis.HealthCheck(ctx); err != nil {
				log.Warn("redis unavailable", sl.Err(err))
			}
			cache = redisapp.NewCache(a.redis, cfg.Cache.DefaultLifetime)
		case cacheMemory:
			cache = memcache.New(cfg.Cache.DefaultLifetime)
		default:
			log.Warn("unknown cache driver, caching disabled", slog.String("driver", cfg.Cache.Driver))
		}
	}

	files, err := filestorage.NewLocalFileStorage(cfg.FileStorage.BaseDir, cfg.FileStorage.BaseURL)
	if err != nil {
		panic(err)
	}

	renderer := render.NewImageService(log, files, render.Sizes{
		Thumb:  render.Size{Width: cfg.Thumbnail.Width, Height: cfg.Thumbnail.Height},
		Screen: render.Size{Width: cfg.Thumbnail.ScreenWidth, Height: cfg.Thumbnail.ScreenHeight},
		Mini:   render.Size{Width: cfg.Thumbnail.MiniWidth, Height: cfg.Thumbnail.MiniHeight},
	}, cfg.Thumbnail.Workers)

	galleries := gallery.NewGalleryService(log, gallery.Deps{
		Shares:   repo.Shares,
		Images:   repo.Images,
		Groups:   repo.Groups,
		Comments: repo.Comments,
		Cache:    cache,
		Files:    files,
		Styles:   cfg.Style,
		URLs:     urls.New(cfg.URLs.Host, cfg.URLs.Base, cfg.URLs.Rewrite),
		Filter:   textfilter.Text2HTML,
	}, gallery.Prefs{
		DefaultPermissions:  cfg.Prefs.DefaultPermissions,
		GuestPermissions:    cfg.Prefs.GuestPermissions,
		GroupPermissions:    cfg.Prefs.GroupPermissions,
		DefaultGalleryStyle: cfg.Prefs.DefaultGalleryStyle,
		DefaultCategory:     cfg.Prefs.DefaultCategory,
		DefaultDownload:     cfg.Prefs.DefaultDownload,
		CommentsAllow:       cfg.Comments.Allow,
		CacheLifetime:       cfg.Cache.DefaultLifetime,
	})

	routers := httprouters.NewRouter(
		log,
		func() httprouters.GalleryScope { return galleries.Scope() },
		renderer,
		files,
		cfg.Style,
		cfg.HTTP.JWTSecret,
	)

	a.HTTPServer = httpapp.New(log, httpapp.Options{
		Host:          cfg.HTTP.Host,
		Port:          cfg.HTTP.Port,
		Timeout:       cfg.HTTP.Timeout,
		SessionSecret: cfg.HTTP.SessionSecret,
		MaxUpload:     cfg.FileStorage.MaxSize,
	}, routers)

	return a
}

func (a *App) Stop() {
	if err := a.HTTPServer.Stop(); err != nil {
		a.log.Error("failed to stop http server", sl.Err(err))
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Error("failed to close redis", sl.Err(err))
		}
	}

	a.db.Stop()
}
