package common

import "time"

// StartTime is the unix timestamp of process start.
var StartTime = time.Now().Unix()

// Version is overwritten at build time with -ldflags "-X .../common.Version=...".
var Version = "v0.0.0"
