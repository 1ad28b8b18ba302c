package sequencer

import (
	"encoding/json"

	coreerrors "github.com/msto63/bankprobe/pkg/core/errors"
	"github.com/msto63/bankprobe/pkg/core/logging"
)

// Observer sees both directions of every operation
type Observer interface {
	Outbound(op string, req any)
	Inbound(op string, resp any)
	Failure(op string, err error)
}

// LogObserver writes requests and responses as JSON to a logger
type LogObserver struct {
	log *logging.Logger
}

// NewLogObserver creates a LogObserver. A nil logger uses the "sequencer"
// logger.
func NewLogObserver(log *logging.Logger) *LogObserver {
	if log == nil {
		log = logging.New("sequencer")
	}
	return &LogObserver{log: log}
}

func (o *LogObserver) Outbound(op string, req any) {
	o.log.Info("--> OUT", "operation", op, "body", encode(req))
}

func (o *LogObserver) Inbound(op string, resp any) {
	o.log.Info("<-- IN", "operation", op, "body", encode(resp))
}

func (o *LogObserver) Failure(op string, err error) {
	o.log.Warn("Operation failed",
		"operation", op,
		"kind", string(coreerrors.KindOf(err)),
		"code", coreerrors.Code(err).String(),
		"error", err,
	)
}

// encode renders a message for the log; unencodable values fall back to a
// placeholder rather than failing the operation
func encode(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "<unencodable>"
	}
	return string(b)
}

// MultiObserver fans out to several observers in order
type MultiObserver []Observer

func (m MultiObserver) Outbound(op string, req any) {
	for _, o := range m {
		o.Outbound(op, req)
	}
}

func (m MultiObserver) Inbound(op string, resp any) {
	for _, o := range m {
		o.Inbound(op, resp)
	}
}

func (m MultiObserver) Failure(op string, err error) {
	for _, o := range m {
		o.Failure(op, err)
	}
}

// ObserverFuncs adapts plain functions to an Observer; nil fields are skipped
type ObserverFuncs struct {
	OnOutbound func(op string, req any)
	OnInbound  func(op string, resp any)
	OnFailure  func(op string, err error)
}

func (f ObserverFuncs) Outbound(op string, req any) {
	if f.OnOutbound != nil {
		f.OnOutbound(op, req)
	}
}

func (f ObserverFuncs) Inbound(op string, resp any) {
	if f.OnInbound != nil {
		f.OnInbound(op, resp)
	}
}

func (f ObserverFuncs) Failure(op string, err error) {
	if f.OnFailure != nil {
		f.OnFailure(op, err)
	}
}
