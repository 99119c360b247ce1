package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Daskott/famtree/i18n"
	"github.com/Daskott/famtree/server/auth"
	"github.com/Daskott/famtree/server/auth/key"
	"github.com/Daskott/famtree/server/blob"
	"github.com/Daskott/famtree/server/events"
	"github.com/Daskott/famtree/server/logger"
	"github.com/Daskott/famtree/server/metrics"
	"github.com/Daskott/famtree/server/models"
	"github.com/Daskott/famtree/server/reminders"
	"github.com/Daskott/famtree/server/twilio"
	"github.com/Daskott/famtree/server/work"
	"github.com/Daskott/famtree/shared"
	"github.com/go-playground/validator"
	"github.com/gorilla/mux"
	"github.com/spf13/viper"
)

const API_PREFIX = "/api/v1"

var logg = logger.NewLogger()

// App holds the dependencies shared by every handler.
type App struct {
	blobs     blob.Store
	publisher events.Publisher
	metrics   *metrics.Metrics
	verifier  auth.Verifier
	keyPair   *key.KeyPair
}

func Start(config *viper.Viper, devMode bool) {
	serverConfig, err := LoadServerConfig(config)
	fatalOnError(err)

	i18n.Init(serverConfig.Famtree.Language)

	err = models.Open(serverConfig.Database.Driver, serverConfig.Database.DSN)
	fatalOnError(err)

	if serverConfig.Database.AutoMigrate || devMode {
		fatalOnError(models.Migrate())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := newApp(ctx, serverConfig)
	fatalOnError(err)

	workerPool, err := work.NewWorkerAdapter(serverConfig.Famtree.Cron.TimeZone, work.OptionsFromConfig(serverConfig.Jobs))
	fatalOnError(err)

	if serverConfig.Reminders.Enabled {
		fatalOnError(registerReminders(workerPool, serverConfig))
	}
	workerPool.ObserveJobs(app.metrics.ObserveJob)
	fatalOnError(workerPool.Start())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%v", serverConfig.Famtree.Listener.Port),
		Handler:      newRouter(app),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go serve(server)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	cleanup(workerPool, server, app)
}

// LoadServerConfig unmarshals and validates the server config.
func LoadServerConfig(config *viper.Viper) (*shared.ServerConfig, error) {
	serverConfig := shared.ServerConfig{}

	err := config.Unmarshal(&serverConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to decode server config: %v", err)
	}

	errs := validator.New().Struct(serverConfig)
	if errs != nil {
		return nil, fmt.Errorf("invalid server config:\n%v", errs)
	}

	if serverConfig.Auth.Enabled && serverConfig.Auth.JWKSURL == "" && serverConfig.Famtree.PrivateKeyPem == "" {
		return nil, fmt.Errorf("auth requires either auth.jwksURL or famtree.privateKeyPem")
	}

	return &serverConfig, nil
}

func newRouter(app *App) *mux.Router {
	router := mux.NewRouter()
	router.Use(loggingMiddleware, app.metricsMiddleware)

	router.HandleFunc("/healthz", healthz).Methods("GET")
	router.Handle("/metrics", app.metrics.Handler()).Methods("GET")
	if app.keyPair != nil {
		router.HandleFunc("/.well-known/jwks.json", app.jwks).Methods("GET")
	}

	api := router.PathPrefix(API_PREFIX).Subrouter()
	api.Use(jsonContentTypeMiddleware, app.authMiddleware)

	registerResource[models.Family](api, app, "/families", "family", resourceOptions{})
	registerResource[models.Member](api, app, "/members", "member", resourceOptions{})
	registerResource[models.Relationship](api, app, "/relationships", "relationship", resourceOptions{})
	registerResource[models.Event](api, app, "/events", "event", resourceOptions{})
	registerResource[models.EventMember](api, app, "/event-members", "event_member", resourceOptions{})
	registerResource[models.FamilyMedia](api, app, "/family-media", "family_media", resourceOptions{skipCreate: true})
	registerResource[models.MemberFace](api, app, "/member-faces", "member_face", resourceOptions{})
	registerResource[models.VoiceProfile](api, app, "/voice-profiles", "voice_profile", resourceOptions{})
	registerResource[models.MemoryItem](api, app, "/memory-items", "memory_item", resourceOptions{})
	registerResource[models.MemberStory](api, app, "/member-stories", "member_story", resourceOptions{})

	api.HandleFunc("/family-media", app.uploadFamilyMedia).Methods("POST")
	api.HandleFunc("/family-media/{id}/content", app.familyMediaContent).Methods("GET")
	api.HandleFunc("/families/{id}/tree", familyTree).Methods("GET")

	jobsRouter := api.PathPrefix("/jobs").Subrouter()
	jobsRouter.Use(adminRouteMiddleware)
	jobsRouter.HandleFunc("", fetchJobs).Methods("GET")
	jobsRouter.HandleFunc("/stats", jobsStats).Methods("GET")

	router.NotFoundHandler = http.HandlerFunc(notFound)

	return router
}

func newApp(ctx context.Context, config *shared.ServerConfig) (*App, error) {
	blobs, err := blob.New(ctx, config.Storage)
	if err != nil {
		return nil, err
	}

	publisher, err := events.NewPublisher(config.Events.AMQPURL, config.Events.Exchange)
	if err != nil {
		return nil, err
	}

	app := &App{blobs: blobs, publisher: publisher, metrics: metrics.New()}

	if strings.TrimSpace(config.Famtree.PrivateKeyPem) != "" {
		app.keyPair, err = key.NewKeyPairFromRSAPrivateKeyPem(config.Famtree.PrivateKeyPem)
		if err != nil {
			return nil, err
		}
	}

	if config.Auth.Enabled {
		if config.Auth.JWKSURL != "" {
			app.verifier = auth.NewJWKSVerifier(ctx, config.Auth.JWKSURL, config.Auth.Issuer, config.Auth.Audience)
		} else {
			app.verifier = auth.NewLocalVerifier(app.keyPair, config.Auth.Issuer, config.Auth.Audience)
		}
	}

	return app, nil
}

func registerReminders(workerPool *work.WorkerPoolAdapter, config *shared.ServerConfig) error {
	sender, err := twilio.NewClient(config.Twilio)
	if err != nil {
		return fmt.Errorf("reminders: %v", err)
	}

	location, err := time.LoadLocation(config.Famtree.Cron.TimeZone)
	if err != nil {
		location = time.UTC
	}

	reminder := reminders.NewEventReminder(sender, config.Famtree.Language, location)
	return reminder.Register(workerPool, config.Reminders.Schedule)
}
