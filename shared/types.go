package shared

type ServerConfig struct {
	Famtree   FamtreeConfig   `mapstructure:"famtree" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Storage   StorageConfig   `mapstructure:"storage" validate:"required"`
	Events    EventsConfig    `mapstructure:"events"`
	Reminders RemindersConfig `mapstructure:"reminders"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
	Twilio    TwilioConfig    `mapstructure:"twilio"`
}

type FamtreeConfig struct {
	PrivateKeyPem string         `mapstructure:"privateKeyPem"`
	AppURL        string         `mapstructure:"appURL"`
	Language      string         `mapstructure:"language" validate:"omitempty,oneof=en vi"`
	Cron          CronConfig     `mapstructure:"cron" validate:"required"`
	Listener      ListenerConfig `mapstructure:"listener" validate:"required"`
}

type CronConfig struct {
	TimeZone string `mapstructure:"timeZone" validate:"required"`
}

type ListenerConfig struct {
	Port int `mapstructure:"port" validate:"required,min=1,max=65535"`
}

type DatabaseConfig struct {
	Driver      string `mapstructure:"driver" validate:"required,oneof=mysql sqlite"`
	DSN         string `mapstructure:"dsn" validate:"required"`
	AutoMigrate bool   `mapstructure:"autoMigrate"`
}

// AuthConfig enables bearer token checks. Tokens are verified against the
// local key (famtree.privateKeyPem) or, when set, the remote JWKSURL.
type AuthConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	JWKSURL  string `mapstructure:"jwksURL" validate:"omitempty,url"`
	Issuer   string `mapstructure:"issuer"`
	Audience string `mapstructure:"audience"`
}

type StorageConfig struct {
	Driver string             `mapstructure:"driver" validate:"required,oneof=local gcs s3"`
	Local  LocalStorageConfig `mapstructure:"local"`
	GCS    GCSStorageConfig   `mapstructure:"gcs"`
	S3     S3StorageConfig    `mapstructure:"s3"`
}

type LocalStorageConfig struct {
	Dir string `mapstructure:"dir"`
}

type GCSStorageConfig struct {
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	CredentialsFile string `mapstructure:"credentialsFile"`
}

type S3StorageConfig struct {
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	PathStyle bool   `mapstructure:"pathStyle"`
}

// EventsConfig points at the RabbitMQ broker receiving domain events.
// An empty AMQPURL only logs events.
type EventsConfig struct {
	AMQPURL  string `mapstructure:"amqpURL"`
	Exchange string `mapstructure:"exchange"`
}

// JobsConfig tunes the background job queue. Zero values use the worker
// pool defaults. An in-progress job untouched for StuckAfterMinutes counts as a
// failed run and is retried until it dies.
type JobsConfig struct {
	Concurrency        int     `mapstructure:"concurrency" validate:"omitempty,min=1,max=32"`
	StuckAfterMinutes  int     `mapstructure:"stuckAfterMinutes" validate:"omitempty,min=1"`
	RequeuePollSeconds int     `mapstructure:"requeuePollSeconds" validate:"omitempty,min=1"`
	SleepBackoffs      []int64 `mapstructure:"sleepBackoffs" validate:"omitempty,dive,min=0"`
}

type RemindersConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"omitempty,min=9"`
}

type TwilioConfig struct {
	AccountSid          string `mapstructure:"accountSid"`
	AuthToken           string `mapstructure:"authToken"`
	MessagingServiceSid string `mapstructure:"messagingServiceSid"`
}
