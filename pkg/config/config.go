package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

const defaultEnvFile = ".env"

var (
	mu          sync.Mutex
	envFilePath string
	loadedFrom  string
)

// SetEnvFile selects the .env file read by New. An empty path falls back to
// ./.env when it exists.
func SetEnvFile(path string) {
	mu.Lock()
	defer mu.Unlock()
	envFilePath = strings.TrimSpace(path)
	loadedFrom = ""
}

func MustNew[T any](prefix string) *T {
	conf, err := New[T](prefix)
	if err != nil {
		panic(err)
	}
	return conf
}

func New[T any](prefix string) (*T, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	var conf T
	if err := envconfig.Process(prefix, &conf); err != nil {
		return nil, fmt.Errorf("process %s config: %w", prefix, err)
	}

	return &conf, nil
}

// loadEnvFile exports the selected env file once per path.
func loadEnvFile() error {
	mu.Lock()
	defer mu.Unlock()

	path := envFilePath
	explicit := path != ""
	if !explicit {
		path = defaultEnvFile
	}
	if loadedFrom == path {
		return nil
	}

	var err error
	if explicit {
		err = exportEnvironment(path)
	} else {
		err = exportEnvironmentIfExists(path)
	}
	if err != nil {
		if explicit {
			return fmt.Errorf("failed to load env file: %w", err)
		}
		return fmt.Errorf("failed to load default env file: %w", err)
	}
	loadedFrom = path
	return nil
}

func exportEnvironmentIfExists(filepath string) error {
	info, err := os.Stat(filepath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}
	return exportEnvironment(filepath)
}

// exportEnvironment copies file keys into the process environment. Variables
// already set in the environment win.
func exportEnvironment(filepath string) error {
	v := viper.New()
	v.SetConfigFile(filepath)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return err
	}

	for k, val := range v.AllSettings() {
		key := strings.ToUpper(k)
		if _, ok := os.LookupEnv(key); ok {
			continue
		}
		if err := os.Setenv(key, fmt.Sprint(val)); err != nil {
			return err
		}
	}

	return nil
}
