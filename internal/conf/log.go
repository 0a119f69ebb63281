package conf

import (
	"os"

	"github.com/sirupsen/logrus"
)

// InitLogging configures the package-wide logrus logger from
// MINI_DOCKER_LOG_LEVEL / MINI_DOCKER_LOG_JSON.
func InitLogging() {
	level, err := logrus.ParseLevel(os.Getenv("MINI_DOCKER_LOG_LEVEL"))
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if os.Getenv("MINI_DOCKER_LOG_JSON") != "" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
}
