package model

import (
	"fmt"
	"sync"
	"time"

	"github.com/altscore/altscore/internal/anomaly"
)

// Options selects and configures the models held by a Registry.
type Options struct {
	RemoteURL       string // empty disables the remote classifier
	RemoteTimeout   time.Duration
	Temperature     float64
	CreditModelPath string // empty uses the built-in weights
	AnomalySeedPath string // empty uses the synthetic seed
	DisableAnomaly  bool
	RemoteOptions   []RemoteOption
}

// Registry holds the loaded models. A Registry is built once at startup and
// never torn down; its fields are read-only afterwards.
type Registry struct {
	// Remote and RemoteAttributor are nil when no model server is configured.
	Remote           Classifier
	RemoteAttributor Attributor

	Local           Classifier
	LocalAttributor Attributor
	LocalVersion    string

	// Anomaly is nil when the anomaly model is disabled.
	Anomaly anomaly.Model

	Temperature float64
}

// New loads every configured model. A configured artifact that is missing
// or invalid is an error; the caller is expected to abort startup.
func New(opts Options) (*Registry, error) {
	local := DefaultLinearModel()
	if opts.CreditModelPath != "" {
		m, err := LoadLinearModel(opts.CreditModelPath)
		if err != nil {
			return nil, err
		}
		local = m
	}

	r := &Registry{
		Local:           local,
		LocalAttributor: local,
		LocalVersion:    local.Version(),
		Temperature:     opts.Temperature,
	}
	if r.Temperature <= 0 {
		r.Temperature = 1
	}

	if opts.RemoteURL != "" {
		rc := NewRemoteClient(opts.RemoteURL, opts.RemoteTimeout, opts.RemoteOptions...)
		r.Remote = rc
		r.RemoteAttributor = rc
	}

	if !opts.DisableAnomaly {
		forest, err := anomaly.NewDefaultForest(opts.AnomalySeedPath)
		if err != nil {
			return nil, fmt.Errorf("fit anomaly model: %w", err)
		}
		r.Anomaly = forest
	}
	return r, nil
}

var (
	initOnce sync.Once
	shared   *Registry
	initErr  error
)

// Init builds the process-wide registry on first call and returns the same
// result, including any error, on every later call. Options passed after
// the first call are ignored.
func Init(opts Options) (*Registry, error) {
	initOnce.Do(func() {
		shared, initErr = New(opts)
	})
	return shared, initErr
}
