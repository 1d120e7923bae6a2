package mqtt

import (
	"fmt"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// pahoLogger forwards the client library's log lines to zerolog.
type pahoLogger struct {
	event func() *zerolog.Event
}

func (l pahoLogger) Println(v ...interface{}) {
	l.event().Msg(strings.TrimSpace(fmt.Sprintln(v...)))
}

func (l pahoLogger) Printf(format string, v ...interface{}) {
	l.event().Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// SetLogger routes the paho client's error and critical output to logger.
// The paho loggers are process wide.
func SetLogger(logger zerolog.Logger) {
	logger = logger.With().Str("component", "paho").Logger()
	mqtt.ERROR = pahoLogger{event: logger.Error}
	mqtt.CRITICAL = pahoLogger{event: logger.Error}
	mqtt.WARN = pahoLogger{event: logger.Warn}
}
