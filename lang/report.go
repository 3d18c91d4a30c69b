package lang

import "go.uber.org/zap"

// Reporter is the shared routine generalizers and unparsers call when they
// meet a construct they cannot handle. In strict mode (the default) it
// returns an *UnsupportedConstruct. With BestEffort set it logs the
// downgrade at Warn level and returns nil; the caller then drops the
// construct or emits a [Placeholder].
type Reporter struct {
	Lang       string
	BestEffort bool
	Log        *zap.Logger
}

func (r *Reporter) logger() *zap.Logger {
	if r.Log == nil {
		return zap.NewNop()
	}
	return r.Log
}

// Unsupported reports construct kind with its serialized source.
func (r *Reporter) Unsupported(kind, source, reason string) error {
	uc := &UnsupportedConstruct{Lang: r.Lang, Kind: kind, Source: source, Reason: reason}
	if !r.BestEffort {
		return uc
	}
	r.logger().Warn("skipping unsupported construct",
		zap.String("lang", r.Lang),
		zap.String("kind", kind),
		zap.String("node", source),
		zap.String("reason", reason),
	)
	return nil
}

// Placeholder returns the text best-effort output uses in place of an
// unsupported construct, without comment markers.
func Placeholder(kind string) string {
	return "UNSUPPORTED " + kind
}
