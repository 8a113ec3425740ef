// Package obslog is the vehicle's diagnostic logger: a package-level,
// replaceable Printf-shaped function for local output, plus a Bus helper
// that mirrors the same message onto the message bus's logs exchange so a
// remote consumer (a log shipper, a dashboard) can tail it.
package obslog

import (
	"encoding/json"
	"fmt"
	"log"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but
// may be replaced by SetLogger. Tests or production code can redirect or
// mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil sets a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Level enumerates the severity tag carried in the logs-exchange payload.
type Level string

const (
	Debug    Level = "debug"
	Info     Level = "info"
	Warn     Level = "warn"
	Error    Level = "error"
	Critical Level = "critical"
)

// Publisher publishes a raw payload to a named exchange. *bus.Bus satisfies
// this; obslog depends on the interface rather than the bus package to
// avoid a back-reference.
type Publisher interface {
	Publish(exchange string, payload []byte)
}

const logsExchange = "logs"

type busMessage struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Bus logs locally via Logf and, if p is non-nil, also marshals {level,
// message} onto the bus logs exchange.
func Bus(p Publisher, level Level, format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	Logf("%s: %s", level, msg)
	if p == nil {
		return
	}
	data, err := json.Marshal(busMessage{Level: level, Message: msg})
	if err != nil {
		return
	}
	p.Publish(logsExchange, data)
}
