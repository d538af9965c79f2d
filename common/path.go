package common

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var percentEnvPattern = regexp.MustCompile(`%([A-Za-z0-9_]+)%`)

// expandLogDirPath expands $VAR, %VAR% and a leading ~ in a log directory.
// %DATA_DIR% falls back to /data when the variable is unset.
func expandLogDirPath(path string) string {
	if path == "" {
		return ""
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}

	path = os.ExpandEnv(path)
	return percentEnvPattern.ReplaceAllStringFunc(path, func(match string) string {
		key := strings.Trim(match, "%")
		if val := os.Getenv(key); val != "" {
			return val
		}
		if key == "DATA_DIR" {
			return "/data"
		}
		return match
	})
}
