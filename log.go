package eventbus

import (
	"io"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Libraries should be silent until a host opts in, unlike cuemby-warren's
// service-level logger (which defaults to os.Stdout). logger is stored
// behind an atomic.Pointer so SetLogger can be called concurrently with
// publish() without racing the code that logs during a publish.
var logger atomic.Pointer[zerolog.Logger]

func init() {
	l := zerolog.New(io.Discard)
	logger.Store(&l)
}

// SetLogger installs the logger used by the default exception sink, the
// vetoed-publish log line, AsTopicSubscriber's cast-failure warning and
// the timing monitor's self-subscribed logger. The reaper does not log.
// Pass zerolog.New(os.Stderr).With().Timestamp().Logger() (or
// similar) to see warnings; the package is silent by default.
func SetLogger(l zerolog.Logger) {
	logger.Store(&l)
}

func currentLogger() *zerolog.Logger {
	return logger.Load()
}
