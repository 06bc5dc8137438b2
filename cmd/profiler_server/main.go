package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/amadev/osprofiler/internal/config"
	"github.com/amadev/osprofiler/internal/driver/drivers"
	"github.com/amadev/osprofiler/internal/driver/messaging"
	"github.com/amadev/osprofiler/internal/metrics"
	traceServer "github.com/amadev/osprofiler/internal/otel_server/trace/server"
	"github.com/amadev/osprofiler/internal/query_server/router"
	"github.com/amadev/osprofiler/pkg/driver"
	"github.com/asaskevich/EventBus"
	protoTrace "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	_ "google.golang.org/grpc/encoding/gzip"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger, err := config.NewLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.Host == "" {
		cfg.Host, _ = os.Hostname()
	}
	opts := driver.Options{
		Project: cfg.Project,
		Service: cfg.Service,
		Host:    cfg.Host,
		Logger:  logger,
	}

	eventBus := EventBus.New()
	if err := drivers.RegisterAll(driver.DefaultRegistry(), eventBus); err != nil {
		logger.Fatal("Failed to register drivers", zap.Error(err))
	}

	writer, err := driver.Resolve(cfg.ConnectionString, opts)
	if err != nil {
		logger.Fatal("Failed to resolve driver", zap.String("connection_string", cfg.ConnectionString), zap.Error(err))
	}
	reader := writer

	var collector *messaging.Collector
	if cfg.CollectorEnabled {
		reader, err = driver.Resolve(cfg.CollectorTarget, opts)
		if err != nil {
			logger.Fatal("Failed to resolve collector target", zap.String("connection_string", cfg.CollectorTarget), zap.Error(err))
		}
		topic, err := messaging.ParseTopic(cfg.ConnectionString)
		if err != nil {
			logger.Fatal("Failed to read collector topic", zap.Error(err))
		}
		collector = messaging.NewCollector(eventBus, topic, reader, logger)
		if err := collector.Start(); err != nil {
			logger.Fatal("Failed to start collector", zap.Error(err))
		}
	}

	m := metrics.NewMetrics()

	listener, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logger.Fatal("Failed to listen", zap.String("addr", cfg.GRPCAddr), zap.Error(err))
	}
	srv := grpc.NewServer()
	traceServiceServer := traceServer.NewTraceServiceServerImpl(logger, writer, m)
	protoTrace.RegisterTraceServiceServer(srv, traceServiceServer)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router.CreateRouter(writer, reader, m, logger),
	}

	signalCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(signalCtx)
	g.Go(func() error {
		logger.Info("gRPC service started, listening for OpenTelemetry traces...", zap.String("addr", cfg.GRPCAddr))
		return srv.Serve(listener)
	})
	g.Go(func() error {
		logger.Info("HTTP service started", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		err := httpServer.Shutdown(ctx)
		srv.GracefulStop()
		return err
	})
	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if collector != nil {
		if err := collector.Stop(); err != nil {
			logger.Error("Failed to stop collector", zap.Error(err))
		}
	}
	if err := writer.Close(ctx); err != nil {
		logger.Error("Failed to close driver", zap.String("driver", writer.Name()), zap.Error(err))
	}
	if reader != writer {
		if err := reader.Close(ctx); err != nil {
			logger.Error("Failed to close driver", zap.String("driver", reader.Name()), zap.Error(err))
		}
	}
}
