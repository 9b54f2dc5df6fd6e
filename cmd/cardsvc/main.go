package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"
	"golang.org/x/sync/errgroup"

	config "github.com/avvvet/valentine-services/configs"
	"github.com/avvvet/valentine-services/internal/cardsvc/broker"
	svcconfig "github.com/avvvet/valentine-services/internal/cardsvc/config"
	"github.com/avvvet/valentine-services/internal/cardsvc/db"
	handlers "github.com/avvvet/valentine-services/internal/cardsvc/handlers"
	"github.com/avvvet/valentine-services/internal/cardsvc/imagestore"
	"github.com/avvvet/valentine-services/internal/cardsvc/service"
	"github.com/avvvet/valentine-services/internal/cardsvc/store"
	nats "github.com/avvvet/valentine-services/internal/nats"
	log "github.com/sirupsen/logrus"
)

const SERVICE_NAME = "card"

var instanceId string

func init() {
	instanceId = config.CreateUniqueInstance(SERVICE_NAME)
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
	config.LoadEnv(SERVICE_NAME)
}

func main() {
	cfg, err := svcconfig.Load()
	if err != nil {
		log.Fatalf("%v", err)
	}

	cardStore, closeStore, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open %s card store: %v", cfg.StoreDriver, err)
	}
	defer closeStore()

	var images imagestore.ImageStore
	if cfg.S3Bucket != "" {
		s3Store, err := imagestore.NewS3Store(context.Background(), imagestore.S3Options{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			BaseEndpoint:  cfg.S3BaseEndpoint,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			PublicBaseURL: cfg.S3PublicBaseURL,
		})
		if err != nil {
			log.Fatalf("Failed to configure image store: %v", err)
		}
		images = s3Store
		log.Infof("image uploads stored in bucket %s", cfg.S3Bucket)
	} else {
		log.Warn("S3_BUCKET not set, card images are disabled")
	}

	var events service.EventPublisher
	if cfg.NatsURL != "" {
		n, err := nats.Connect(cfg.NatsURL, cfg.NatsToken, SERVICE_NAME+"_service_"+instanceId)
		if err != nil {
			log.Fatalf("Error: unable to connect to NATS server %v", err)
		}
		defer n.Conn.Close()
		log.Printf("NATS connection established successfully %s", n.Url)
		events = broker.NewBroker(n.Conn)
	} else {
		log.Warn("NATS_URL not set, response events are not published")
	}

	cardService := service.NewCardService(cardStore, images, events)

	// Setup router
	r := chi.NewRouter()
	c := config.CORS()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(c.Handler)

	// to protect the service api from any over requests
	r.Use(httprate.LimitByIP(cfg.RateLimit, 1*time.Minute))

	// Init handlers and routes
	h := handlers.NewHandler(cardService)
	h.InitAuth(cfg.JWTSecret)
	h.SetRoutes(r)

	// Create server with timeout settings
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		// graceful shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("%s service stopped with error: %+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}

func openStore(cfg svcconfig.Config) (store.CardStore, func(), error) {
	switch cfg.StoreDriver {
	case svcconfig.DriverMongo:
		client, database, err := db.ConnectMongo(cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.EnsureCardIndexes(ctx, database); err != nil {
			return nil, nil, err
		}
		log.Printf("mongo connection established successfully")
		return store.NewMongoCardStore(database, db.CardsCollection), func() {
			client.Disconnect(context.Background())
		}, nil

	case svcconfig.DriverMemory:
		log.Warn("using in-memory card store, cards are lost on restart")
		return store.NewMemoryCardStore(), func() {}, nil

	default:
		dbpool, err := db.Connect(cfg.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("pg connection established successfully")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := db.Migrate(ctx, dbpool); err != nil {
			db.ClosePool()
			return nil, nil, err
		}
		return store.NewPostgresCardStore(dbpool), db.ClosePool, nil
	}
}
