package di

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"github.com/samber/do/v2"
	"github.com/samber/oops"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	adRepo "github.com/popmarket/popmarket/internal/modules/ad/repository"
	adService "github.com/popmarket/popmarket/internal/modules/ad/service"
	catalogService "github.com/popmarket/popmarket/internal/modules/catalog/service"
	feedService "github.com/popmarket/popmarket/internal/modules/feed/service"
	galleryService "github.com/popmarket/popmarket/internal/modules/gallery/service"
	"github.com/popmarket/popmarket/internal/shared/config"
	"github.com/popmarket/popmarket/internal/shared/images"
	"github.com/popmarket/popmarket/internal/shared/storage"
	httpServer "github.com/popmarket/popmarket/internal/transport/http"
	telegramHandler "github.com/popmarket/popmarket/internal/transport/telegram"
)

// Setup initializes the dependency injection container
func Setup() (do.Injector, error) {
	injector := do.New()

	do.Provide(injector, func(i do.Injector) (*config.Config, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, oops.With("context", "failed to load config").Wrap(err)
		}
		return cfg, nil
	})

	do.Provide(injector, func(i do.Injector) (adRepo.Repository, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if cfg.MongoURI == "" {
			return adRepo.NewMemoryRepository(), nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, oops.With("mongo_uri", cfg.MongoURI, "context", "connecting to mongo").Wrap(err)
		}
		if err := client.Ping(ctx, nil); err != nil {
			return nil, oops.With("mongo_uri", cfg.MongoURI, "context", "pinging mongo").Wrap(err)
		}
		return adRepo.NewMongoRepository(client.Database(cfg.MongoDatabase)), nil
	})

	do.Provide(injector, func(i do.Injector) (storage.ObjectStorage, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if cfg.MinioEndpoint == "" {
			return storage.NewMemoryStorage(fmt.Sprintf("http://localhost:%s/files", cfg.HTTPPort)), nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		store, err := storage.NewMinioStorage(ctx, storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			PublicURL: cfg.MinioPublicURL,
		})
		if err != nil {
			return nil, oops.With("context", "failed to initialize object storage").Wrap(err)
		}
		return store, nil
	})

	do.Provide(injector, func(i do.Injector) (*catalogService.Service, error) {
		repo := do.MustInvoke[adRepo.Repository](i)
		return catalogService.New(repo), nil
	})

	do.Provide(injector, func(i do.Injector) (*adService.Service, error) {
		repo := do.MustInvoke[adRepo.Repository](i)
		store := do.MustInvoke[storage.ObjectStorage](i)
		catalog := do.MustInvoke[*catalogService.Service](i)
		return adService.New(repo, store, catalog, images.DefaultOptions()), nil
	})

	do.Provide(injector, func(i do.Injector) (*galleryService.Service, error) {
		repo := do.MustInvoke[adRepo.Repository](i)
		return galleryService.New(repo), nil
	})

	do.Provide(injector, func(i do.Injector) (*feedService.Service, error) {
		repo := do.MustInvoke[adRepo.Repository](i)
		return feedService.New(repo), nil
	})

	do.Provide(injector, func(i do.Injector) (*telegramHandler.Handler, error) {
		cfg := do.MustInvoke[*config.Config](i)
		ads := do.MustInvoke[*adService.Service](i)
		catalog := do.MustInvoke[*catalogService.Service](i)
		gallery := do.MustInvoke[*galleryService.Service](i)
		return telegramHandler.New(cfg, ads, catalog, gallery), nil
	})

	do.Provide(injector, func(i do.Injector) (*httpServer.Server, error) {
		cfg := do.MustInvoke[*config.Config](i)
		ads := do.MustInvoke[*adService.Service](i)
		catalog := do.MustInvoke[*catalogService.Service](i)
		feed := do.MustInvoke[*feedService.Service](i)
		return httpServer.New(cfg, ads, catalog, feed), nil
	})

	do.Provide(injector, func(i do.Injector) (*bot.Bot, error) {
		cfg := do.MustInvoke[*config.Config](i)
		handler := do.MustInvoke[*telegramHandler.Handler](i)

		opts := []bot.Option{
			bot.WithDefaultHandler(handler.HandleUpdate),
		}

		b, err := bot.New(cfg.TelegramBotToken, opts...)
		if err != nil {
			return nil, oops.With("context", "failed to create telegram bot").Wrap(err)
		}

		handler.RegisterCommands(b)
		handler.SetBot(b)

		// New ads are announced through the bot
		ads := do.MustInvoke[*adService.Service](i)
		ads.SetAnnouncer(handler)

		return b, nil
	})

	return injector, nil
}

// Shutdown gracefully shuts down all services
func Shutdown(injector do.Injector) error {
	ctx := context.Background()

	if b, err := do.Invoke[*bot.Bot](injector); err == nil && b != nil {
		b.Close(ctx)
	}

	return nil
}
