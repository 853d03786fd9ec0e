package server

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/DjordjeVuckovic/engine-bench/pkg/utils"
)

type Config struct {
	Port        string
	UseHttp2    bool
	CorsOrigins []string
	ResultsDir  string
}

// LoadConfig reads the server settings from the environment. Non-empty
// overrides take precedence.
func LoadConfig(overrides Config) (*Config, error) {
	port := firstNonEmpty(overrides.Port, os.Getenv("PORT"), "8080")
	if err := validatePort(port); err != nil {
		return nil, fmt.Errorf("invalid port: %w", err)
	}

	origins := utils.SplitList(os.Getenv("CORS_ORIGINS"), ",")
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return &Config{
		Port:        port,
		UseHttp2:    overrides.UseHttp2 || os.Getenv("USE_HTTP2") == "true",
		CorsOrigins: origins,
		ResultsDir:  firstNonEmpty(overrides.ResultsDir, os.Getenv("BENCH_RESULTS_DIR"), "results"),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func validatePort(port string) error {
	portNum, err := strconv.Atoi(port)

	if err != nil {
		return errors.New("port must be a number")
	}

	if portNum < 1 || portNum > 65535 {
		return errors.New("port must be between 1 and 65535")
	}

	return nil
}
