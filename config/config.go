package config

import (
	"errors"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/viper"
)

type Config struct {
	App         App           `yaml:"app"`
	Server      Server        `yaml:"server"`
	Storage     Storage       `yaml:"storage"`
	Offline     Offline       `yaml:"offline"`
	Engine      Engine        `yaml:"engine"`
	Queue       *RabbitMQ     `yaml:"rabbitmq"`
	ObjectStore *minio.Client `yaml:"-"`
	MinIOBucket string        `yaml:"minio_bucket"`
}

type App struct {
	Environment string `yaml:"environment"`
	Host        string `yaml:"host"`
}

type Server struct {
	HttpPort string `yaml:"http_port"`
}

type Storage struct {
	UploadDir   string `yaml:"upload_dir"`
	TempDir     string `yaml:"temp_dir"`
	MeetingsDir string `yaml:"meetings_dir"`
}

// Offline holds the model references resolved by the model locator.
// References are local directory names or paths, never remote ids to
// download.
type Offline struct {
	ModelID          string   `yaml:"model_id"`
	VADModelID       string   `yaml:"vad_model_id"`
	PuncModelID      string   `yaml:"punc_model_id"`
	ModelSearchPaths []string `yaml:"model_search_paths"`
	ModelsDir        string   `yaml:"models_dir"`
	CacheDir         string   `yaml:"cache_dir"`
}

// Engine describes the FunASR bridge subprocess and which construction
// options the installed FunASR version supports.
type Engine struct {
	Python                string `yaml:"python"`
	Script                string `yaml:"script"`
	SupportsDeviceOption  bool   `yaml:"supports_device_option"`
	SupportsDisableUpdate bool   `yaml:"supports_disable_update"`
}

type RabbitMQ struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	User         string `json:"user"`
	Pass         string `json:"pass"`
	ExchangeName string `json:"exchange_name"`
	Kind         string `json:"kind"`
}

func Load(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	viper.SetDefault("app.environment", "develop")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("storage.upload_dir", "data/uploads")
	viper.SetDefault("storage.temp_dir", "data/temp")
	viper.SetDefault("storage.meetings_dir", "data/meetings")
	viper.SetDefault("offline.model_id", "iic/speech_paraformer-large-vad-punc_asr_nat-zh-cn-16k-common-vocab8404-pytorch")
	viper.SetDefault("offline.vad_model_id", "iic/speech_fsmn_vad_zh-cn-16k-common-pytorch")
	viper.SetDefault("offline.punc_model_id", "iic/punc_ct-transformer_zh-cn-common-vocab272727-pytorch")
	viper.SetDefault("engine.python", "python3")
	viper.SetDefault("engine.script", "scripts/funasr_generate.py")
	viper.SetDefault("engine.supports_device_option", true)
	viper.SetDefault("engine.supports_disable_update", true)
	viper.SetDefault("rabbitmq_kind", "topic")
	viper.SetDefault("rabbitmq_exchange", "offline_jobs_exchange")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{
		App: App{
			Environment: viper.GetString("app.environment"),
			Host:        viper.GetString("app.host"),
		},
		Server: Server{
			HttpPort: viper.GetString("server.port"),
		},
		Storage: Storage{
			UploadDir:   viper.GetString("storage.upload_dir"),
			TempDir:     viper.GetString("storage.temp_dir"),
			MeetingsDir: viper.GetString("storage.meetings_dir"),
		},
		Offline: Offline{
			ModelID:          viper.GetString("offline.model_id"),
			VADModelID:       viper.GetString("offline.vad_model_id"),
			PuncModelID:      viper.GetString("offline.punc_model_id"),
			ModelSearchPaths: viper.GetStringSlice("offline.model_search_paths"),
			ModelsDir:        viper.GetString("offline.models_dir"),
			CacheDir:         viper.GetString("offline.cache_dir"),
		},
		Engine: Engine{
			Python:                viper.GetString("engine.python"),
			Script:                viper.GetString("engine.script"),
			SupportsDeviceOption:  viper.GetBool("engine.supports_device_option"),
			SupportsDisableUpdate: viper.GetBool("engine.supports_disable_update"),
		},
	}

	if viper.GetBool("rabbitmq_enabled") {
		cfg.Queue = &RabbitMQ{
			Host:         viper.GetString("rabbitmq_host"),
			Port:         viper.GetInt("rabbitmq_port"),
			User:         viper.GetString("rabbitmq_user"),
			Pass:         viper.GetString("rabbitmq_pass"),
			ExchangeName: viper.GetString("rabbitmq_exchange"),
			Kind:         viper.GetString("rabbitmq_kind"),
		}
	}

	if viper.GetBool("minio.enabled") {
		minioClient, err := minio.New(viper.GetString("minio.url"), &minio.Options{
			Creds:  credentials.NewStaticV4(viper.GetString("minio.access_id"), viper.GetString("minio.secret_access_key"), ""),
			Secure: false,
		})
		if err != nil {
			return nil, err
		}
		cfg.ObjectStore = minioClient
		cfg.MinIOBucket = viper.GetString("minio.bucket")
	}

	return cfg, nil
}
