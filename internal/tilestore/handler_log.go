package tilestore

import "log/slog"

// LogHandler optionally traces tile commands (spec.md §4.3: "Log
// (optional)" at the top of the chain). It never changes behavior, only
// observes, mirroring the teacher's package-level nop-by-default slog
// logger pattern (logger.go).
type LogHandler struct {
	base
	logger *slog.Logger
}

// NewLogHandler creates a Log handler that traces every command through
// logger at debug level.
func NewLogHandler(logger *slog.Logger) *LogHandler {
	return &LogHandler{logger: logger}
}

func opName(op Op) string {
	switch op {
	case Get:
		return "get"
	case Set:
		return "set"
	case IsCached:
		return "is_cached"
	case Exist:
		return "exist"
	case Void:
		return "void"
	case Flush:
		return "flush"
	case Reinit:
		return "reinit"
	case Copy:
		return "copy"
	default:
		return "unknown"
	}
}

func (h *LogHandler) Handle(cmd Command) Result {
	h.logger.Debug("tile command", "op", opName(cmd.Op), "x", cmd.Addr.X, "y", cmd.Addr.Y, "z", cmd.Addr.Z)
	res := h.forward(cmd)
	if res.Err != nil {
		h.logger.Warn("tile command failed", "op", opName(cmd.Op), "err", res.Err)
	}
	return res
}
