package common

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/Laisky/zap"

	"github.com/bedrock-gateway/bedrock-assumerole/common/logger"
)

var (
	Port   = flag.Int("port", 3000, "the listening port")
	LogDir = flag.String("log-dir", "./logs", "specify the log directory, empty disables file logging")
)

// Init parses flags and prepares the log directory.
func Init() {
	flag.Parse()

	if *LogDir == "" {
		return
	}

	dir := expandLogDirPath(*LogDir)
	lg := logger.Logger.With(zap.String("log_dir", dir))

	dir, err := filepath.Abs(dir)
	if err != nil {
		lg.Fatal("failed to get absolute log dir", zap.Error(err))
	}
	if err = os.MkdirAll(dir, 0o755); err != nil {
		lg.Fatal("failed to create log dir", zap.Error(err))
	}

	lg.Info("set log dir", zap.String("abs_log_dir", dir))
	logger.LogDir = dir
	*LogDir = dir
}
