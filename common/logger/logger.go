package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	glog "github.com/Laisky/go-utils/v5/log"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/bedrock-gateway/bedrock-assumerole/common/config"
)

var (
	Logger glog.Logger
	// LogDir is set by common.Init from the --log-dir flag.
	LogDir       string
	setupLogOnce sync.Once
	initLogOnce  sync.Once
)

func init() {
	initLogger()
}

func initLogger() {
	initLogOnce.Do(func() {
		var err error
		level := glog.LevelInfo
		if config.DebugEnabled {
			level = glog.LevelDebug
		}

		Logger, err = glog.NewConsoleWithName("bedrock-assumerole", level)
		if err != nil {
			panic(fmt.Sprintf("failed to create logger: %+v", err))
		}
	})
}

// LogFilePath returns the file gin writes its access log to inside dir.
func LogFilePath(dir string, now time.Time) string {
	if config.OnlyOneLogFile {
		return filepath.Join(dir, "bedrock-assumerole.log")
	}
	return filepath.Join(dir, fmt.Sprintf("bedrock-assumerole-%s.log", now.Format("20060102")))
}

// SetupLogger mirrors gin output into LogDir when it is set.
func SetupLogger() {
	setupLogOnce.Do(func() {
		if LogDir == "" {
			return
		}

		logPath := LogFilePath(LogDir, time.Now())
		fd, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Fatal("failed to open log file")
		}
		gin.DefaultWriter = io.MultiWriter(os.Stdout, fd)
		gin.DefaultErrorWriter = io.MultiWriter(os.Stderr, fd)
	})
}

// SetupHostLogger tags every entry with the hostname and applies the configured level.
func SetupHostLogger() {
	hostname, err := os.Hostname()
	if err != nil {
		Logger.Panic("get hostname", zap.Error(err))
	}

	Logger = Logger.With(zap.String("host", hostname))

	if config.DebugEnabled {
		_ = Logger.ChangeLevel("debug")
		Logger.Info("running in debug mode")
	} else {
		_ = Logger.ChangeLevel("info")
	}
}
