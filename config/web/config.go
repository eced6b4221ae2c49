package config

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Port      int    `env:"PORT" env-default:"8080"`
	JWTSecret string `env:"JWT_SECRET"`

	Zoom   ZoomConfig
	OpenAI OpenAIConfig
	HF     HFConfig

	UploadDir string `env:"UPLOAD_DIR" env-default:"recordings"`
	OutputDir string `env:"OUTPUT_DIR" env-default:"outputs"`
}

type ZoomConfig struct {
	ClientID     string        `env:"ZOOM_CLIENT_ID"`
	ClientSecret string        `env:"ZOOM_CLIENT_SECRET"`
	RedirectURI  string        `env:"ZOOM_REDIRECT_URI" env-default:"http://localhost:8501"`
	Timeout      time.Duration `env:"ZOOM_TIMEOUT" env-default:"30s"`
}

type OpenAIConfig struct {
	APIKey string `env:"OPENAI_API_KEY"`
	// Whisper uploads and chat completions can run long on big meetings.
	Timeout time.Duration `env:"OPENAI_TIMEOUT" env-default:"120s"`
}

type HFConfig struct {
	APIToken string        `env:"HF_API_TOKEN"`
	Timeout  time.Duration `env:"HF_TIMEOUT" env-default:"30s"`
}

func MustLoad() *Config {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		panic("failed to read environment variables: " + err.Error())
	}

	return &cfg
}
