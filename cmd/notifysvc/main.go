package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"

	config "github.com/avvvet/valentine-services/configs"
	"github.com/avvvet/valentine-services/internal/comm"
	"github.com/avvvet/valentine-services/internal/nats"
	"github.com/avvvet/valentine-services/internal/notifysvc/broker"
	svcconfig "github.com/avvvet/valentine-services/internal/notifysvc/config"
	"github.com/avvvet/valentine-services/internal/notifysvc/routes"
	"github.com/avvvet/valentine-services/internal/notifysvc/ws"
)

const SERVICE_NAME = "notify"

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

	// Connect to NATS
	n, err := nats.Connect(cfg.NatsURL, cfg.NatsToken, SERVICE_NAME+"_service_"+instanceId)
	if err != nil {
		log.Errorf("Error: unable to connect to NATS server %v", err)
		os.Exit(1)
	}

	defer n.Conn.Close()
	log.Printf("NATS connection established successfully %s", n.Url)

	// Setup router
	r := chi.NewRouter()
	c := config.CORS()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(c.Handler)

	// to protect the service api from any over requests
	r.Use(httprate.LimitByIP(cfg.RateLimit, 1*time.Minute))

	// Initialize websocket handler
	s := ws.NewWs()

	// Initialize routes
	routes.SetRoutes(r, s, jwtauth.New("HS256", []byte(cfg.JWTSecret), nil))

	// Initialize broker, the ws lookups are injected so the broker can push to sockets
	b := broker.NewBroker(n.Conn, func(socketId string) (broker.Sender, bool) {
		c, ok := s.GetConnection(socketId)
		if !ok {
			return nil, false
		}
		return c, true
	}, s.GetWatchers)

	// subscribe to card service events
	sub, err := b.Subscribe(comm.TopicCardResponded)
	if err != nil {
		log.Errorf("Error: unable to subscribe to %s %v", comm.TopicCardResponded, err)
		os.Exit(1)
	}

	// Create server with timeout settings
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 60 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	// Wait for interrupt signal to gracefully shutdown the server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	sub.Unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
