package utils

import (
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LoadConfig loads the .env file (when present) into the environment and
// enables viper's env lookup, so flags, env vars and .env share one surface.
func LoadConfig(path string) {
	_ = godotenv.Load(filepath.Join(path, ".env"))
	viper.AutomaticEnv()
}
