// Package forecast implements the solar forecast pipeline: feature vector
// reconstruction from recent analysis rows and 24-hour-ahead prediction via
// a loaded MLP model artifact.
package forecast

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tigerroll/gridpulse/internal/domain/schema"
	"github.com/tigerroll/gridpulse/internal/support/exception"
	"github.com/tigerroll/gridpulse/internal/support/logger"
)

// Forecaster produces a multi-horizon forecast from one feature vector.
type Forecaster interface {
	// Available reports whether a model is loaded and ready to predict.
	Available() bool
	// Predict maps a feature vector of schema.FeatureCount entries onto
	// schema.ForecastHorizons future values.
	Predict(features []float64) ([]float64, error)
}

// mlpLayer is one dense layer of the serialized network. Weights are laid
// out [input][output].
type mlpLayer struct {
	Weights    [][]float64 `json:"weights"`
	Biases     []float64   `json:"biases"`
	Activation string      `json:"activation"`
}

// mlpArtifact is the on-disk model format: a plain feed-forward network
// exported to JSON after offline training.
type mlpArtifact struct {
	FeatureSchemaVersion int        `json:"feature_schema_version"`
	InputSize            int        `json:"input_size"`
	OutputSize           int        `json:"output_size"`
	Layers               []mlpLayer `json:"layers"`
}

func (a *mlpArtifact) validate() error {
	if a.FeatureSchemaVersion != schema.FeatureSchemaVersion {
		return fmt.Errorf("model was fitted against feature schema v%d, this build expects v%d",
			a.FeatureSchemaVersion, schema.FeatureSchemaVersion)
	}
	if a.InputSize != schema.FeatureCount {
		return fmt.Errorf("model input size %d does not match feature count %d", a.InputSize, schema.FeatureCount)
	}
	if a.OutputSize != schema.ForecastHorizons {
		return fmt.Errorf("model output size %d does not match forecast horizons %d", a.OutputSize, schema.ForecastHorizons)
	}
	if len(a.Layers) == 0 {
		return fmt.Errorf("model artifact has no layers")
	}

	in := a.InputSize
	for i, l := range a.Layers {
		if len(l.Weights) != in {
			return fmt.Errorf("layer %d expects %d inputs, got weight rows for %d", i, in, len(l.Weights))
		}
		out := len(l.Biases)
		for _, row := range l.Weights {
			if len(row) != out {
				return fmt.Errorf("layer %d weight row width %d does not match bias count %d", i, len(row), out)
			}
		}
		switch l.Activation {
		case "relu", "linear":
		default:
			return fmt.Errorf("layer %d has unsupported activation %q", i, l.Activation)
		}
		in = out
	}
	if in != a.OutputSize {
		return fmt.Errorf("final layer width %d does not match declared output size %d", in, a.OutputSize)
	}
	return nil
}

// Handle is the explicitly-initialized model service. Load it once at
// process start; a failed load is a typed unavailable state, not a nil
// global, and every Predict against it fails fast with ErrModelUnavailable.
type Handle struct {
	artifact *mlpArtifact
	loadErr  error
}

// Load reads and validates the model artifact at path. Load never returns
// an error; the returned Handle records unavailability so invocations fail
// loudly instead of the process refusing to start.
func Load(path string) *Handle {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Errorf("Could not read model artifact %s: %v", path, err)
		return &Handle{loadErr: err}
	}
	return LoadBytes(data)
}

// LoadBytes builds a Handle from raw artifact bytes, used for the embedded
// fallback artifact and in tests.
func LoadBytes(data []byte) *Handle {
	var artifact mlpArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		logger.Errorf("Could not decode model artifact: %v", err)
		return &Handle{loadErr: err}
	}
	if err := artifact.validate(); err != nil {
		logger.Errorf("Model artifact rejected: %v", err)
		return &Handle{loadErr: err}
	}
	logger.Infof("Forecast model loaded (schema v%d, %d layers)", artifact.FeatureSchemaVersion, len(artifact.Layers))
	return &Handle{artifact: &artifact}
}

// Available reports whether the model loaded successfully.
func (h *Handle) Available() bool {
	return h.artifact != nil
}

// Predict runs the network forward.
func (h *Handle) Predict(features []float64) ([]float64, error) {
	if h.artifact == nil {
		return nil, exception.NewPipelineError("forecast", "model invocation refused", exception.ErrModelUnavailable, false, false)
	}
	if len(features) != h.artifact.InputSize {
		return nil, fmt.Errorf("feature vector has %d entries, model expects %d", len(features), h.artifact.InputSize)
	}

	current := features
	for _, layer := range h.artifact.Layers {
		out := make([]float64, len(layer.Biases))
		copy(out, layer.Biases)
		for i, x := range current {
			if x == 0 {
				continue
			}
			row := layer.Weights[i]
			for j, w := range row {
				out[j] += x * w
			}
		}
		if layer.Activation == "relu" {
			for j, v := range out {
				if v < 0 {
					out[j] = 0
				}
			}
		}
		current = out
	}
	return current, nil
}
