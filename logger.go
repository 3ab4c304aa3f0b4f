// Logging for RxGo
// 包级日志，基于 zerolog
package rxgo

import (
	"os"
	"sync/atomic"

	"github.com/rs/zerolog"
)

var packageLogger atomic.Pointer[zerolog.Logger]

func init() {
	l := zerolog.New(os.Stderr).With().Timestamp().Str("component", "rxgo").Logger().Level(zerolog.WarnLevel)
	packageLogger.Store(&l)
}

// SetLogger 替换包级日志。调度器未通过 WithLogger 指定日志时使用它。
func SetLogger(l zerolog.Logger) {
	packageLogger.Store(&l)
}

// Logger 返回当前包级日志
func Logger() zerolog.Logger {
	return *packageLogger.Load()
}
