package configuration

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/Relaticle/relaticle-sub002/pkg/logging"
)

const Production = "production"

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		c.Unload()
		panic(err)
	}
	return c
})

func LoadEnv(envFiles []string) (int, error) {
	existingFiles := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			existingFiles = append(existingFiles, file)
		}
	}

	if len(existingFiles) == 0 {
		return 0, nil
	}

	return len(existingFiles), godotenv.Load(existingFiles...)
}

type DatabaseOptions struct {
	Opts     string `env:"-"`
	Name     string `env:"DB_NAME" envDefault:"relaticle"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Name, d.Password,
	)
}

type RedisOptions struct {
	URL      string `env:"REDIS_URL" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type ImportOptions struct {
	// InitialBatchSize is the number of rows computed synchronously before
	// the remainder is handed to a background job.
	InitialBatchSize int `env:"IMPORT_INITIAL_BATCH_SIZE" envDefault:"50"`
	// ChunkSize is the number of rows one background job invocation handles.
	ChunkSize int `env:"IMPORT_CHUNK_SIZE" envDefault:"200"`
	// MaxRows refuses imports whose row count exceeds this ceiling.
	MaxRows int `env:"IMPORT_MAX_ROWS" envDefault:"100000"`
	// SessionTTL bounds how long preview/session state is kept around.
	SessionTTL time.Duration `env:"IMPORT_SESSION_TTL" envDefault:"24h"`
	// ArtifactsDir is where enriched preview artifacts are written.
	ArtifactsDir string `env:"IMPORT_ARTIFACTS_DIR" envDefault:"storage/imports"`
	// SampleSize is the number of cell values examined per column when
	// inferring a data type for unmapped headers.
	SampleSize int `env:"IMPORT_TYPE_SAMPLE_SIZE" envDefault:"20"`
}

func (o *ImportOptions) Validate() error {
	if o.InitialBatchSize <= 0 {
		return fmt.Errorf("import InitialBatchSize must be positive, got %d", o.InitialBatchSize)
	}
	if o.ChunkSize <= 0 {
		return fmt.Errorf("import ChunkSize must be positive, got %d", o.ChunkSize)
	}
	if o.MaxRows <= 0 {
		return fmt.Errorf("import MaxRows must be positive, got %d", o.MaxRows)
	}
	return nil
}

type Configuration struct {
	Database DatabaseOptions
	Redis    RedisOptions
	Import   ImportOptions

	GoAppEnvironment string `env:"GO_APP_ENV" envDefault:"development"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"error"`
	LogPath          string `env:"LOG_PATH" envDefault:"./logs/app.log"`

	logFile *os.File
	logger  *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.ErrorLevel
	}
}

func Use() *Configuration {
	return singleton()
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}

	if err := c.Import.Validate(); err != nil {
		return fmt.Errorf("import configuration error: %w", err)
	}

	f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.LogPath)
	if err != nil {
		return err
	}
	c.logFile = f
	c.logger = logger

	c.Database.Opts = c.Database.ConnectionString()
	return nil
}

// Unload handles a graceful shutdown.
func (c *Configuration) Unload() {
	if c.logFile != nil {
		if err := c.logFile.Close(); err != nil {
			log.Printf("Failed to close log file: %v", err)
		}
	}
}
