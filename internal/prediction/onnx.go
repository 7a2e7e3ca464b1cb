package prediction

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXOptions configures the converted scikit-learn classifier.
type ONNXOptions struct {
	ModelPath         string
	SharedLibraryPath string
	InputName         string
	OutputName        string
	Classes           []int
}

// ONNXClassifier runs a converted classifier through onnxruntime. The session and its
// tensors are reused across calls, so Run is serialised.
type ONNXClassifier struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[int64]
	classes []int

	mu sync.Mutex
}

// LoadONNX initialises onnxruntime (once per process) and opens a session on the model.
func LoadONNX(opts ONNXOptions) (*ONNXClassifier, error) {
	if _, err := os.Stat(opts.ModelPath); err != nil {
		return nil, fmt.Errorf("model file missing at %s: %w", opts.ModelPath, err)
	}

	libPath := resolveSharedLibraryPath(opts.SharedLibraryPath, filepath.Dir(opts.ModelPath))
	if libPath == "" {
		return nil, fmt.Errorf("onnxruntime shared library not found; set ONNXRUNTIME_SHARED_LIBRARY_PATH or install the runtime")
	}
	if !ort.IsInitialized() {
		ort.SetSharedLibraryPath(libPath)
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize onnxruntime: %w", err)
		}
	}

	inputName := opts.InputName
	if inputName == "" {
		inputName = "float_input"
	}
	outputName := opts.OutputName
	if outputName == "" {
		outputName = "output_label"
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(NumFeatures())))
	if err != nil {
		return nil, fmt.Errorf("allocate input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[int64](ort.NewShape(1))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("allocate output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		opts.ModelPath,
		[]string{inputName},
		[]string{outputName},
		[]ort.Value{input},
		[]ort.Value{output},
		nil,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	classes := opts.Classes
	if len(classes) == 0 {
		classes = []int{0, 1, 2}
	}

	return &ONNXClassifier{
		session: session,
		input:   input,
		output:  output,
		classes: classes,
	}, nil
}

func (c *ONNXClassifier) NumFeatures() int { return NumFeatures() }

func (c *ONNXClassifier) Classes() []int { return append([]int(nil), c.classes...) }

// Predict copies the vector into the input tensor and runs the session.
func (c *ONNXClassifier) Predict(vector []float64) (int, error) {
	if len(vector) != NumFeatures() {
		return 0, fmt.Errorf("expected %d features, got %d", NumFeatures(), len(vector))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return 0, fmt.Errorf("onnx session closed")
	}

	data := c.input.GetData()
	for i, v := range vector {
		data[i] = float32(v)
	}

	if err := c.session.Run(); err != nil {
		return 0, fmt.Errorf("onnx run: %w", err)
	}
	return int(c.output.GetData()[0]), nil
}

// Close releases the session and tensors.
func (c *ONNXClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil
	}
	err := c.session.Destroy()
	c.input.Destroy()
	c.output.Destroy()
	c.session = nil
	return err
}

// resolveSharedLibraryPath prefers the configured path, then ONNXRUNTIME_SHARED_LIBRARY_PATH,
// then common install locations.
func resolveSharedLibraryPath(configured, modelDir string) string {
	if configured = strings.TrimSpace(configured); configured != "" {
		return configured
	}
	if env := strings.TrimSpace(os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH")); env != "" {
		return env
	}

	names := []string{
		"libonnxruntime.so",
		"libonnxruntime.dylib",
		"onnxruntime.dll",
	}
	dirs := []string{
		modelDir,
		filepath.Join(modelDir, "lib"),
		"/opt/homebrew/lib",
		"/usr/local/lib",
		"/usr/lib",
	}

	for _, dir := range dirs {
		for _, name := range names {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return ""
}
