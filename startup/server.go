package startup

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.12.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/TalhaJubaerPrantor/neoblood-backend/domain"
	"github.com/TalhaJubaerPrantor/neoblood-backend/handlers"
	application "github.com/TalhaJubaerPrantor/neoblood-backend/service"
	"github.com/TalhaJubaerPrantor/neoblood-backend/startup/config"
	"github.com/TalhaJubaerPrantor/neoblood-backend/store"
)

type Server struct {
	config *config.Config
}

var Logger = logrus.New()

const (
	LogFilePath = "/app/logs/donation.log"
)

type CustomFormatter struct{}

func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	entry.Data["id"] = generateUniqueID()

	msg := fmt.Sprintf("[%s] [%s] [%s] %s\n",
		entry.Time.Format("2006-01-02T15:04:05Z07:00"),
		entry.Level,
		entry.Data["id"],
		entry.Message,
	)

	return []byte(msg), nil
}

func generateUniqueID() string {
	return fmt.Sprintf("ID-%d", time.Now().UnixNano())
}

func initLogger() {
	writer, err := rotatelogs.New(
		LogFilePath+"_%Y%m%d%H%M",
		rotatelogs.WithRotationTime(24*time.Hour),
	)
	if err != nil {
		Logger.Fatalf("Failed to create rotatelogs hook: %v", err)
	}
	Logger.SetOutput(writer)

	Logger.SetFormatter(&CustomFormatter{})
}

func NewServer(config *config.Config) *Server {
	return &Server{
		config: config,
	}
}

func (server *Server) initMongoClient(httpClient *http.Client) *mongo.Client {
	client, err := store.GetClientWithHTTPConfig(server.config.UserDBHost, server.config.UserDBPort, httpClient)
	if err != nil {
		log.Fatal(err)
	}
	return client
}

func (server *Server) initUserStore(client *mongo.Client, tracer trace.Tracer) domain.UserStore {
	return store.NewUserMongoDBStore(client, tracer)
}

func (server *Server) initFeedCache(tracer trace.Tracer) domain.FeedCache {
	client, err := store.GetRedisClient(server.config.CacheHost, server.config.CachePort)
	if err != nil {
		Logger.WithError(err).Warn("redis unavailable, open-request feed will not be cached")
		return nil
	}
	return store.NewFeedRedisCache(client, tracer)
}

func (server *Server) Start() {

	initLogger()

	httpClient := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			MaxConnsPerHost:     10,
		},
	}

	mongoClient := server.initMongoClient(httpClient)
	defer func(mongoClient *mongo.Client, ctx context.Context) {
		err := mongoClient.Disconnect(ctx)
		if err != nil {

		}
	}(mongoClient, context.Background())

	ctx := context.Background()
	exp, err := newExporter(server.config.JaegerAddress)
	if err != nil {
		log.Fatalf("Failed to Initialize Exporter: %v", err)
	}

	tp := newTraceProvider(exp)
	defer func() { _ = tp.Shutdown(ctx) }()
	otel.SetTracerProvider(tp)
	tracer := tp.Tracer("donation_service")
	otel.SetTextMapPropagator(propagation.TraceContext{})

	userStore := server.initUserStore(mongoClient, tracer)
	feedCache := server.initFeedCache(tracer)
	now := time.Now

	secretKey := []byte(server.config.SecretKey)

	eligibilityService := application.NewEligibilityService(userStore, tracer, Logger, now)
	authService := application.NewAuthService(userStore, secretKey, tracer, Logger, now)
	userService := application.NewUserService(userStore, eligibilityService, tracer, Logger, now)
	requestService := application.NewRequestService(userStore, feedCache, tracer, Logger, now)
	connectionService := application.NewConnectionService(userStore, tracer, Logger, now)
	matchService := application.NewMatchService(userStore, eligibilityService, feedCache, tracer, Logger, now)
	circleService := application.NewCircleService(userStore, tracer, Logger, now)

	authHandler := handlers.NewAuthHandler(authService, tracer, Logger)
	userHandler := handlers.NewUserHandler(userService, eligibilityService, secretKey, tracer, Logger)
	requestHandler := handlers.NewRequestHandler(requestService, matchService, tracer, Logger)
	connectionHandler := handlers.NewConnectionHandler(connectionService, matchService, tracer, Logger)
	circleHandler := handlers.NewCircleHandler(circleService, userService, tracer, Logger)

	server.start(authHandler, userHandler, requestHandler, connectionHandler, circleHandler)
}

func (server *Server) start(
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	requestHandler *handlers.RequestHandler,
	connectionHandler *handlers.ConnectionHandler,
	circleHandler *handlers.CircleHandler,
) {
	router := mux.NewRouter()
	router.Use(MiddlewareContentTypeSet)

	authHandler.Init(router.PathPrefix("/auth").Subrouter())

	home := router.PathPrefix("/home").Subrouter()
	userHandler.Init(home)
	requestHandler.Init(home)
	connectionHandler.Init(home)

	userHandler.InitFind(router.PathPrefix("/find").Subrouter())
	circleHandler.Init(router.PathPrefix("/circle").Subrouter())

	cors := gorillaHandlers.CORS(gorillaHandlers.AllowedOrigins([]string{"*"}))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", server.config.Port),
		Handler: cors(router),
	}

	wait := time.Second * 15
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			log.Println(err)
		}
	}()

	c := make(chan os.Signal, 1)

	signal.Notify(c, os.Interrupt)
	signal.Notify(c, syscall.SIGTERM)

	<-c

	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Error Shutting Down Server %s", err)
	}
	log.Println("Server Gracefully Stopped")
}

func newExporter(address string) (*jaeger.Exporter, error) {
	exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(address)))
	if err != nil {
		return nil, err
	}
	return exp, nil
}

func newTraceProvider(exp sdktrace.SpanExporter) *sdktrace.TracerProvider {
	r, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String("donation_service"),
		),
	)

	if err != nil {
		panic(err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(r),
	)
}

func MiddlewareContentTypeSet(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, h *http.Request) {
		rw.Header().Add("Content-Type", "application/json")
		rw.Header().Set("X-Content-Type-Options", "nosniff")
		rw.Header().Set("X-Frame-Options", "DENY")

		next.ServeHTTP(rw, h)
	})
}
