package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/MarcoPoloResearchLab/showcase/backend/internal/apps"
	"github.com/MarcoPoloResearchLab/showcase/backend/internal/auth"
	"github.com/MarcoPoloResearchLab/showcase/backend/internal/blob"
	"github.com/MarcoPoloResearchLab/showcase/backend/internal/config"
	"github.com/MarcoPoloResearchLab/showcase/backend/internal/contents"
	"github.com/MarcoPoloResearchLab/showcase/backend/internal/gallery"
	"github.com/MarcoPoloResearchLab/showcase/backend/internal/gateway"
	"github.com/MarcoPoloResearchLab/showcase/backend/internal/logging"
	"github.com/MarcoPoloResearchLab/showcase/backend/internal/server"
	"github.com/MarcoPoloResearchLab/showcase/backend/internal/uploads"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "showcase-api",
		Short: "Showcase app-gallery backend service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("runtime-mode", defaults.GetString("runtime.mode"), "Runtime mode (local, hosted)")
	cmd.PersistentFlags().String("data-dir", defaults.GetString("data.dir"), "Local-mode data directory")
	cmd.PersistentFlags().String("uploads-dir", defaults.GetString("uploads.dir"), "Local-mode uploads directory")
	cmd.PersistentFlags().String("blob-bucket", "", "Blob store bucket (hosted mode)")
	cmd.PersistentFlags().String("blob-prefix", defaults.GetString("blob.prefix"), "Blob store object prefix")
	cmd.PersistentFlags().String("blob-credentials-file", "", "Blob store credentials file")
	cmd.PersistentFlags().Int("session-ttl-minutes", defaults.GetInt("session.ttl_minutes"), "Admin session TTL in minutes")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "runtime.mode", "runtime-mode")
	bindFlag(cmd, "data.dir", "data-dir")
	bindFlag(cmd, "uploads.dir", "uploads-dir")
	bindFlag(cmd, "blob.bucket", "blob-bucket")
	bindFlag(cmd, "blob.prefix", "blob-prefix")
	bindFlag(cmd, "blob.credentials_file", "blob-credentials-file")
	bindFlag(cmd, "session.ttl_minutes", "session-ttl-minutes")
	bindFlag(cmd, "log.level", "log-level")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	var blobStore blob.Store
	if appConfig.Mode == config.ModeHosted {
		gcsStore, err := blob.NewGCSStore(ctx, blob.GCSConfig{
			Bucket:          appConfig.BlobBucket,
			Prefix:          appConfig.BlobPrefix,
			CredentialsFile: appConfig.BlobCredentials,
		})
		if err != nil {
			return err
		}
		blobStore = gcsStore
	}

	// One cache for the whole process; its lifetime bounds how long a
	// soft-failed write stays visible.
	memoryCache := gateway.NewMemoryCache()

	appsGateway, err := gateway.New(gateway.Config[[]apps.App]{
		Name:    "apps",
		Mode:    appConfig.Mode,
		Blob:    blobStore,
		DataDir: appConfig.DataDir,
		Cache:   memoryCache,
		Empty:   func() []apps.App { return []apps.App{} },
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	flagsGateway, err := gateway.New(gateway.Config[apps.IDSets]{
		Name:    "featured-events",
		Mode:    appConfig.Mode,
		Blob:    blobStore,
		DataDir: appConfig.DataDir,
		Cache:   memoryCache,
		Empty:   apps.EmptyIDSets,
		Merge:   apps.MergeIDSets,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	contentsGateway, err := gateway.New(gateway.Config[[]contents.Content]{
		Name:    "contents",
		Mode:    appConfig.Mode,
		Blob:    blobStore,
		DataDir: appConfig.DataDir,
		Cache:   memoryCache,
		Empty:   func() []contents.Content { return []contents.Content{} },
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	memosGateway, err := gateway.New(gateway.Config[[]contents.Content]{
		Name:    "memos",
		Mode:    appConfig.Mode,
		Blob:    blobStore,
		DataDir: appConfig.DataDir,
		Cache:   memoryCache,
		Empty:   func() []contents.Content { return []contents.Content{} },
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	galleryGateway, err := gateway.New(gateway.Config[[]gallery.Item]{
		Name:    "gallery-items",
		Mode:    appConfig.Mode,
		Blob:    blobStore,
		DataDir: appConfig.DataDir,
		Cache:   memoryCache,
		Empty:   func() []gallery.Item { return []gallery.Item{} },
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	appsService, err := apps.NewService(apps.ServiceConfig{
		Apps:   appsGateway,
		Flags:  flagsGateway,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	contentsService, err := contents.NewService(contents.ServiceConfig{
		Gateway: contentsGateway,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	memosService, err := contents.NewService(contents.ServiceConfig{
		Gateway: memosGateway,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	galleryService, err := gallery.NewService(gallery.ServiceConfig{
		Gateway: galleryGateway,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	uploadsService, err := uploads.NewService(uploads.ServiceConfig{
		Mode:       appConfig.Mode,
		Blob:       blobStore,
		UploadsDir: appConfig.UploadsDir,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	sessions, err := auth.NewManager(auth.ManagerConfig{
		AdminPassword: appConfig.AdminPassword,
		SigningSecret: []byte(appConfig.SessionSecret),
		TokenTTL:      appConfig.SessionTTL,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		AppsService:     appsService,
		ContentsService: contentsService,
		MemosService:    memosService,
		GalleryService:  galleryService,
		UploadsService:  uploadsService,
		Sessions:        sessions,
		Logger:          logger,
		Mode:            appConfig.Mode,
		UploadsDir:      appConfig.UploadsDir,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("address", appConfig.HTTPAddress),
			zap.String("mode", string(appConfig.Mode)))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
