package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kirillkom/document-portal/internal/adapters/web"
	"github.com/kirillkom/document-portal/internal/config"
	"github.com/kirillkom/document-portal/internal/core/domain"
	"github.com/kirillkom/document-portal/internal/core/ports"
	"github.com/kirillkom/document-portal/internal/core/usecase"
	"github.com/kirillkom/document-portal/internal/infrastructure/backend"
	"github.com/kirillkom/document-portal/internal/infrastructure/queue/nats"
	"github.com/kirillkom/document-portal/internal/infrastructure/resilience"
	"github.com/kirillkom/document-portal/internal/infrastructure/storage/azureblob"
	"github.com/kirillkom/document-portal/internal/infrastructure/storage/gcs"
	"github.com/kirillkom/document-portal/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/document-portal/internal/observability/metrics"
)

const (
	serviceName      = "document-portal"
	blobPublicPrefix = "/blobs/"
)

type App struct {
	Config config.Config

	Backend  *backend.Client
	UploadUC *usecase.UploadDocumentUseCase
	Pages    *web.Handler
	Metrics  *metrics.HTTPServerMetrics

	closeFns []func()
}

// New wires every adapter. A broken storage configuration does not stop the
// process: uploads report it per request while the rest keeps serving.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	app := &App{
		Config:  cfg,
		Metrics: metrics.NewHTTPServerMetrics(serviceName),
	}

	breakerCfg := resilience.DefaultConfig()
	breakerCfg.Enabled = cfg.BackendBreakerEnabled
	breaker := resilience.NewBreaker(breakerCfg)
	app.Backend = backend.New(cfg.BackendBaseURL, cfg.BackendTimeout, breaker)

	store, blobs, storeErr := app.newObjectStore(ctx, cfg)
	if storeErr != nil {
		slog.Error("storage_configuration_invalid",
			"provider", cfg.StorageProvider,
			"error", storeErr,
		)
	}

	var events ports.UploadEventPublisher
	if cfg.NATSURL != "" {
		publisher, err := nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{Breaker: breaker})
		if err != nil {
			// Events are best-effort; uploads still work without a broker.
			slog.Warn("upload_events_disabled", "nats_url", cfg.NATSURL, "error", err)
		} else {
			app.closeFns = append(app.closeFns, publisher.Close)
			events = meteredPublisher{next: publisher, metrics: app.Metrics}
		}
	}

	app.UploadUC = usecase.NewUploadDocumentUseCase(store, events, storeErr)

	pages, err := web.New(web.Options{
		Documents:   app.Backend,
		Summaries:   app.Backend,
		Uploader:    app.UploadUC,
		Blobs:       blobs,
		MaxFileSize: cfg.FormMaxFileBytes,
	})
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("init pages: %w", err)
	}
	app.Pages = pages

	return app, nil
}

// newObjectStore returns the configured store. blobs is non-nil only for the
// local provider, which serves uploaded files itself.
func (a *App) newObjectStore(ctx context.Context, cfg config.Config) (ports.ObjectStore, web.BlobReader, error) {
	switch cfg.StorageProvider {
	case config.StorageProviderAzure:
		store, err := azureblob.New(azureblob.Options{
			AccountName:      cfg.AzureStorageAccountName,
			AccountKey:       cfg.AzureStorageAccountKey,
			ConnectionString: cfg.AzureStorageConnectionString,
			Endpoint:         cfg.AzureStorageEndpoint,
			Container:        cfg.ContainerName,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	case config.StorageProviderGCS:
		store, err := gcs.New(ctx, gcs.Options{
			ProjectID:       cfg.GCPProjectID,
			Bucket:          cfg.ContainerName,
			CredentialsFile: cfg.GCPCredentialsFile,
		})
		if err != nil {
			return nil, nil, err
		}
		a.closeFns = append(a.closeFns, func() { _ = store.Close() })
		return store, nil, nil
	case config.StorageProviderLocal:
		store, err := localfs.New(cfg.LocalStoragePath, cfg.ContainerName, blobPublicPrefix)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage provider %q", cfg.StorageProvider)
	}
}

func (a *App) Close() {
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		a.closeFns[i]()
	}
	a.closeFns = nil
}

type meteredPublisher struct {
	next    ports.UploadEventPublisher
	metrics *metrics.HTTPServerMetrics
}

func (p meteredPublisher) PublishUploaded(ctx context.Context, event domain.UploadedEvent) error {
	err := p.next.PublishUploaded(ctx, event)
	if err != nil && !errors.Is(err, context.Canceled) {
		p.metrics.RecordPublishFailure()
	}
	return err
}
