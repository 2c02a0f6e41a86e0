package logging

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"rps-arena/internal/config"
)

var (
	mu     sync.RWMutex
	output io.Writer = os.Stdout
	closer io.Closer
)

// Init configures the global zerolog logger. When cfg.File is set, output is
// teed into a size-limited file that Writer also returns.
func Init(cfg config.LogConfig) error {
	level := cfg.ZerologLevel()

	var base io.Writer = os.Stdout
	var fileCloser io.Closer
	if cfg.File != "" {
		fw, err := newSizeLimitedWriter(cfg.File, cfg.MaxMB)
		if err != nil {
			return err
		}
		base = io.MultiWriter(os.Stdout, fw)
		fileCloser = fw
	}

	mu.Lock()
	if closer != nil {
		_ = closer.Close()
	}
	output = base
	closer = fileCloser
	mu.Unlock()

	var out io.Writer = base
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: base}
	}

	zerolog.SetGlobalLevel(level)
	lc := zerolog.New(out).With().Timestamp()
	if cfg.Service != "" {
		lc = lc.Str("service", cfg.Service)
	}
	logger := lc.Logger()
	if cfg.SampleEvery > 1 {
		logger = logger.Sample(&zerolog.BasicSampler{N: uint32(cfg.SampleEvery)})
	}
	log.Logger = logger
	return nil
}

// Writer returns the raw destination configured by Init. Request logs use it
// so both streams land in the same place.
func Writer() io.Writer {
	mu.RLock()
	defer mu.RUnlock()
	return output
}

func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if closer == nil {
		return nil
	}
	err := closer.Close()
	closer = nil
	output = os.Stdout
	return err
}
