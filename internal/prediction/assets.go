package prediction

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"sync"

	"evbot/internal/common/config"
	apperrors "evbot/internal/common/errors"
	"evbot/internal/common/logger"
	"evbot/internal/common/metrics"
	"evbot/pkg/artifacts"
)

// Assets are the loaded classifier and encoders, shared read-only by every request.
type Assets struct {
	Classifier Classifier
	Encoders   EncoderSet
	Manifest   *artifacts.Manifest

	// Fingerprint identifies the model and encoder files. Results are only cached when it is set.
	Fingerprint string
}

// AssetLoader produces Assets. It is called at most once per AssetCache.
type AssetLoader interface {
	Load(ctx context.Context) (*Assets, error)
}

// AssetLoaderFunc adapts a function to AssetLoader.
type AssetLoaderFunc func(ctx context.Context) (*Assets, error)

func (f AssetLoaderFunc) Load(ctx context.Context) (*Assets, error) { return f(ctx) }

// AssetStatus is reported by the readiness endpoint.
type AssetStatus string

const (
	AssetStatusNotLoaded   AssetStatus = "not_loaded"
	AssetStatusReady       AssetStatus = "ready"
	AssetStatusUnavailable AssetStatus = "unavailable"
)

// AssetCache loads assets on first use. The outcome, success or failure, is kept for the
// life of the process.
type AssetCache struct {
	loader AssetLoader
	logger logger.Logger

	once   sync.Once
	assets *Assets
	err    error

	mu     sync.RWMutex
	status AssetStatus
}

func NewAssetCache(loader AssetLoader, log logger.Logger) *AssetCache {
	return &AssetCache{
		loader: loader,
		logger: log.WithFields(map[string]interface{}{"component": "asset-cache"}),
		status: AssetStatusNotLoaded,
	}
}

// Get returns the shared assets, loading them on the first call.
func (c *AssetCache) Get(ctx context.Context) (*Assets, error) {
	c.once.Do(func() { c.load(ctx) })
	if c.err != nil {
		return nil, c.err
	}
	return c.assets, nil
}

// Warm forces the load at startup. Failures are logged and kept, never fatal.
func (c *AssetCache) Warm(ctx context.Context) {
	_, _ = c.Get(ctx)
}

// Status reports whether the load has happened and how it went.
func (c *AssetCache) Status() AssetStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Close releases the classifier, if one was loaded.
func (c *AssetCache) Close() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.assets != nil && c.assets.Classifier != nil {
		return c.assets.Classifier.Close()
	}
	return nil
}

func (c *AssetCache) load(ctx context.Context) {
	assets, err := c.loader.Load(ctx)
	if err == nil && (assets == nil || assets.Classifier == nil) {
		err = errors.New("loader returned no classifier")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.err = apperrors.NewModelUnavailableError(err)
		c.status = AssetStatusUnavailable
		metrics.ModelReady.Set(0)
		c.logger.WithError(err).Error("Failed to load model assets", nil)
		return
	}

	c.assets = assets
	c.status = AssetStatusReady
	metrics.ModelReady.Set(1)

	fields := map[string]interface{}{
		"features": assets.Classifier.NumFeatures(),
		"classes":  assets.Classifier.Classes(),
		"encoders": len(assets.Encoders),
	}
	if assets.Manifest != nil {
		fields["version"] = assets.Manifest.Version
	}
	if assets.Fingerprint != "" {
		fields["fingerprint"] = assets.Fingerprint
	}
	c.logger.Info("Model assets loaded", fields)
}

// FileLoader reads the classifier and encoders from disk.
type FileLoader struct {
	cfg    config.ModelConfig
	logger logger.Logger
}

func NewFileLoader(cfg config.ModelConfig, log logger.Logger) *FileLoader {
	return &FileLoader{cfg: cfg, logger: log}
}

func (l *FileLoader) Load(ctx context.Context) (*Assets, error) {
	manifest, err := l.loadManifest()
	if err != nil {
		return nil, err
	}

	encoders, err := LoadEncoders(l.cfg.EncodersPath)
	if err != nil {
		return nil, err
	}
	for _, col := range CategoricalColumns() {
		if _, ok := encoders[col]; !ok {
			l.logger.Warn("No label encoder for categorical column", map[string]interface{}{"column": col})
		}
	}

	classifier, err := l.loadClassifier()
	if err != nil {
		return nil, err
	}
	if err := CheckClassifier(classifier); err != nil {
		_ = classifier.Close()
		return nil, err
	}

	fingerprint, err := l.fingerprint()
	if err != nil {
		_ = classifier.Close()
		return nil, err
	}

	return &Assets{Classifier: classifier, Encoders: encoders, Manifest: manifest, Fingerprint: fingerprint}, nil
}

// fingerprint hashes the checksums of the model and encoder files.
func (l *FileLoader) fingerprint() (string, error) {
	model, err := artifacts.Describe(artifacts.RoleModel, l.cfg.Path)
	if err != nil {
		return "", err
	}
	encoders, err := artifacts.Describe(artifacts.RoleEncoders, l.cfg.EncodersPath)
	if err != nil {
		return "", err
	}
	return Fingerprint(model, encoders), nil
}

// Fingerprint combines artifact checksums into one model identity.
func Fingerprint(files ...artifacts.File) string {
	h := sha256.New()
	for _, f := range files {
		fmt.Fprintf(h, "%s:%s\n", f.Role, f.SHA256)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (l *FileLoader) loadClassifier() (Classifier, error) {
	switch l.cfg.Format {
	case "", "forest":
		return LoadForest(l.cfg.Path)
	case "onnx":
		return LoadONNX(ONNXOptions{
			ModelPath:         l.cfg.Path,
			SharedLibraryPath: l.cfg.OnnxSharedLibrary,
			InputName:         l.cfg.OnnxInputName,
			OutputName:        l.cfg.OnnxOutputName,
		})
	default:
		return nil, fmt.Errorf("unsupported model format %q", l.cfg.Format)
	}
}

// loadManifest is optional: a missing file is fine, a mismatching one is not.
func (l *FileLoader) loadManifest() (*artifacts.Manifest, error) {
	if l.cfg.ManifestPath == "" {
		return nil, nil
	}
	m, err := artifacts.LoadManifest(l.cfg.ManifestPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := m.CheckColumns(Columns()); err != nil {
		return nil, err
	}
	return m, nil
}

// CheckClassifier verifies the classifier was trained on this schema.
func CheckClassifier(c Classifier) error {
	if c.NumFeatures() != NumFeatures() {
		return fmt.Errorf("classifier expects %d features, schema has %d", c.NumFeatures(), NumFeatures())
	}
	named, ok := c.(interface{ FeatureNames() []string })
	if !ok {
		return nil
	}
	names := named.FeatureNames()
	if len(names) == 0 {
		return nil
	}
	for i, col := range Columns() {
		if names[i] != col {
			return fmt.Errorf("classifier feature %d is %q, schema has %q", i, names[i], col)
		}
	}
	return nil
}
