package contract

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"path/filepath"
	"sort"
	"strconv"

	parquetio "github.com/evokedbci/evoked/internal/parquet"
	"github.com/evokedbci/evoked/schema"
)

// DatasetFactory builds a Dataset from name-specific string arguments.
type DatasetFactory func(args map[string]string) (*Dataset, error)

// datasetRegistry maps dataset names to their factories. Built-ins are
// registered below; callers may add their own before lookup.
var datasetRegistry = map[string]DatasetFactory{
	"sim":     newSimDataset,
	"parquet": newParquetDataset,
}

// RegisterDataset adds or replaces a dataset factory.
func RegisterDataset(name string, factory DatasetFactory) {
	datasetRegistry[name] = factory
}

// GetDataset resolves a dataset name to a loadable dataset.
func GetDataset(name string, args map[string]string) (*Dataset, error) {
	factory, ok := datasetRegistry[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown dataset %q", schema.ErrDatasetLoad, name)
	}
	return factory(args)
}

// --- "sim" synthetic dataset ---

// simParams are the knobs of the synthetic generator, all overridable
// through dataset args.
type simParams struct {
	files    int
	trials   int
	samples  int
	channels int
	outputs  int
	fs       float64
	snr      float64
	seed     int64
}

func parseSimParams(args map[string]string) (simParams, error) {
	p := simParams{files: 2, trials: 10, samples: 300, channels: 4, outputs: 8, fs: 100, snr: 0.5, seed: 42}
	for key, val := range args {
		var err error
		switch key {
		case "files":
			p.files, err = strconv.Atoi(val)
		case "trials":
			p.trials, err = strconv.Atoi(val)
		case "samples":
			p.samples, err = strconv.Atoi(val)
		case "channels":
			p.channels, err = strconv.Atoi(val)
		case "outputs":
			p.outputs, err = strconv.Atoi(val)
		case "fs":
			p.fs, err = strconv.ParseFloat(val, 64)
		case "snr":
			p.snr, err = strconv.ParseFloat(val, 64)
		case "seed":
			p.seed, err = strconv.ParseInt(val, 10, 64)
		default:
			return p, fmt.Errorf("unknown sim dataset arg %q", key)
		}
		if err != nil {
			return p, fmt.Errorf("invalid sim dataset arg %s=%s: %v", key, val, err)
		}
	}
	if p.files < 1 || p.trials < 1 || p.samples < 1 || p.channels < 1 || p.outputs < 1 {
		return p, fmt.Errorf("sim dataset dimensions must be positive")
	}
	return p, nil
}

// newSimDataset builds a deterministic synthetic dataset: each recording has
// per-output pseudo-random flash sequences, and the EEG is output 0's flash
// train convolved with a damped-sinusoid response plus Gaussian noise.
func newSimDataset(args map[string]string) (*Dataset, error) {
	p, err := parseSimParams(args)
	if err != nil {
		return nil, err
	}

	filenames := make([]string, p.files)
	seeds := make(map[string]int64, p.files)
	for i := range filenames {
		filenames[i] = fmt.Sprintf("sim_%02d", i)
		seeds[filenames[i]] = p.seed + int64(i)
	}

	load := func(_ context.Context, filename string) (*schema.Tensor, *schema.Tensor, []schema.Coord, error) {
		seed, ok := seeds[filename]
		if !ok {
			return nil, nil, nil, fmt.Errorf("%w: no such recording %q", schema.ErrDatasetLoad, filename)
		}
		x, y := simRecording(p, seed)
		coords := []schema.Coord{
			{Name: "trial"},
			{Name: "time", Fs: p.fs},
			{Name: "channel"},
		}
		return x, y, coords, nil
	}
	return &Dataset{Name: "sim", Filenames: filenames, Load: load}, nil
}

func simRecording(p simParams, seed int64) (*schema.Tensor, *schema.Tensor) {
	rng := rand.New(rand.NewSource(seed))
	x := schema.NewTensor(p.trials, p.samples, p.channels)
	y := schema.NewTensor(p.trials, p.samples, p.outputs)

	// Damped sinusoid impulse response, a crude evoked-potential surrogate.
	irlen := int(p.fs * 0.3)
	if irlen < 2 {
		irlen = 2
	}
	ir := make([]float64, irlen)
	for i := range ir {
		t := float64(i) / p.fs
		ir[i] = math.Exp(-6*t) * math.Sin(2*math.Pi*10*t)
	}

	for tr := 0; tr < p.trials; tr++ {
		for o := 0; o < p.outputs; o++ {
			level := 0.0
			for s := 0; s < p.samples; s++ {
				if rng.Float64() < 0.2 {
					level = 1 - level
				}
				y.Set(level, tr, s, o)
			}
		}
		// EEG follows output 0's rising edges.
		prev := 0.0
		for s := 0; s < p.samples; s++ {
			cur := y.At(tr, s, 0)
			if cur > prev {
				for i := 0; i < irlen && s+i < p.samples; i++ {
					for c := 0; c < p.channels; c++ {
						gain := 1 / float64(c+1)
						x.Set(x.At(tr, s+i, c)+gain*ir[i], tr, s+i, c)
					}
				}
			}
			prev = cur
		}
		for s := 0; s < p.samples; s++ {
			for c := 0; c < p.channels; c++ {
				x.Set(x.At(tr, s, c)+rng.NormFloat64()/p.snr, tr, s, c)
			}
		}
	}
	return x, y
}

// --- "parquet" on-disk dataset ---

// RecordingReader turns a stored recording file into tensors. It is a
// variable so tests can substitute an in-memory reader for the real parquet
// decode.
var RecordingReader = parquetio.ReadRecording

// newParquetDataset lists *.parquet files under the dir arg, one recording
// per file.
func newParquetDataset(args map[string]string) (*Dataset, error) {
	dir, ok := args["dir"]
	if !ok || dir == "" {
		return nil, fmt.Errorf("%w: parquet dataset requires a dir=<path> arg", schema.ErrDatasetLoad)
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*.parquet"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", schema.ErrDatasetLoad, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: no *.parquet recordings under %s", schema.ErrDatasetLoad, dir)
	}
	sort.Strings(matches)

	load := func(_ context.Context, filename string) (*schema.Tensor, *schema.Tensor, []schema.Coord, error) {
		x, y, coords, err := RecordingReader(filename)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("%w: %s: %v", schema.ErrDatasetLoad, filename, err)
		}
		return x, y, coords, nil
	}
	return &Dataset{Name: "parquet", Filenames: matches, Load: load}, nil
}
