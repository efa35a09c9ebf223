package option

import (
	"os"

	"github.com/jackadi-io/configmanager/internal/config"
)

var JSONFormat *bool
var Server *string

func GetJSONFormat() bool {
	if JSONFormat == nil {
		return false
	}
	return *JSONFormat
}

// GetServer returns the manager URL: the --server flag, then CONFIGMANAGER_SERVER, then the default.
func GetServer() string {
	if Server != nil && *Server != "" {
		return *Server
	}
	if env := os.Getenv(config.EnvPrefix + "_SERVER"); env != "" {
		return env
	}
	return config.DefaultServerURL
}
