// cmd/tools/artifact-check/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"evbot/internal/common/config"
	"evbot/internal/common/logger"
	"evbot/internal/prediction"
	"evbot/pkg/artifacts"
)

func main() {
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	manifestCmd := flag.NewFlagSet("manifest", flag.ExitOnError)
	predictCmd := flag.NewFlagSet("predict", flag.ExitOnError)

	// Validate command flags
	valModel := validateCmd.String("model", "models/ev_model.json", "Path to the classifier")
	valEncoders := validateCmd.String("encoders", "models/label_encoders.json", "Path to the label encoders")
	valManifest := validateCmd.String("manifest", "", "Optional manifest to check columns and checksums against")
	valFormat := validateCmd.String("format", "forest", "Classifier format (forest, onnx)")

	// Manifest command flags
	manModel := manifestCmd.String("model", "models/ev_model.json", "Path to the classifier")
	manEncoders := manifestCmd.String("encoders", "models/label_encoders.json", "Path to the label encoders")
	manOut := manifestCmd.String("out", "models/"+artifacts.ManifestFileName, "Where to write the manifest")
	manVersion := manifestCmd.String("version", "1.0.0", "Artifact version")
	manFormat := manifestCmd.String("format", "forest", "Classifier format (forest, onnx)")

	// Predict command flags
	predModel := predictCmd.String("model", "models/ev_model.json", "Path to the classifier")
	predEncoders := predictCmd.String("encoders", "models/label_encoders.json", "Path to the label encoders")
	predPayload := predictCmd.String("payload", "", "JSON file with the twelve input keys")
	predFormat := predictCmd.String("format", "forest", "Classifier format (forest, onnx)")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "validate":
		validateCmd.Parse(os.Args[2:])
		cfg := config.ModelConfig{Path: *valModel, EncodersPath: *valEncoders, Format: *valFormat}
		if err := validate(cfg, *valManifest); err != nil {
			fmt.Printf("Artifact validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Artifact validation passed.")

	case "manifest":
		manifestCmd.Parse(os.Args[2:])
		cfg := config.ModelConfig{Path: *manModel, EncodersPath: *manEncoders, Format: *manFormat}
		if err := writeManifest(cfg, *manOut, *manVersion); err != nil {
			fmt.Printf("Error writing manifest: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote manifest: %s\n", *manOut)

	case "predict":
		predictCmd.Parse(os.Args[2:])
		if *predPayload == "" {
			fmt.Println("Error: payload is required for predict.")
			predictCmd.Usage()
			os.Exit(1)
		}
		cfg := config.ModelConfig{Path: *predModel, EncodersPath: *predEncoders, Format: *predFormat}
		if err := predict(cfg, *predPayload); err != nil {
			fmt.Printf("Prediction failed: %v\n", err)
			os.Exit(1)
		}

	case "help":
		fallthrough
	default:
		help()
	}
}

// validate loads the artifacts the way the server does and checks them against the schema.
func validate(cfg config.ModelConfig, manifestPath string) error {
	cfg.ManifestPath = manifestPath
	assets, err := prediction.NewFileLoader(cfg, logger.NewNoOpLogger()).Load(context.Background())
	if err != nil {
		return err
	}
	defer assets.Classifier.Close()

	var problems []error
	for _, col := range prediction.CategoricalColumns() {
		enc, ok := assets.Encoders[col]
		if !ok || len(enc.Classes) == 0 {
			problems = append(problems, fmt.Errorf("no label encoder for %q", col))
		}
	}
	for _, c := range assets.Classifier.Classes() {
		if !prediction.KnownClass(c) {
			problems = append(problems, fmt.Errorf("classifier emits unmapped class %d", c))
		}
	}

	if manifestPath != "" {
		m, err := artifacts.LoadManifest(manifestPath)
		if err != nil {
			return fmt.Errorf("load manifest: %w", err)
		}
		if err := m.Verify(); err != nil {
			problems = append(problems, err)
		}
	}

	return errors.Join(problems...)
}

func writeManifest(cfg config.ModelConfig, out, version string) error {
	if _, err := prediction.NewFileLoader(cfg, logger.NewNoOpLogger()).Load(context.Background()); err != nil {
		return fmt.Errorf("artifacts do not load: %w", err)
	}

	model, err := artifacts.Describe(artifacts.RoleModel, cfg.Path)
	if err != nil {
		return err
	}
	encoders, err := artifacts.Describe(artifacts.RoleEncoders, cfg.EncodersPath)
	if err != nil {
		return err
	}

	labels := make(map[string]string)
	for _, id := range []int{0, 1, 2} {
		_, msg := prediction.DescribeClass(id)
		labels[strconv.Itoa(id)] = msg
	}

	m := &artifacts.Manifest{
		Version:        version,
		Format:         cfg.Format,
		FeatureColumns: prediction.Columns(),
		ClassLabels:    labels,
		Files:          []artifacts.File{model, encoders},
	}
	m.Touch(time.Now())
	return m.Save(out)
}

func predict(cfg config.ModelConfig, payloadPath string) error {
	f, err := os.Open(payloadPath)
	if err != nil {
		return err
	}
	defer f.Close()

	var payload map[string]interface{}
	dec := json.NewDecoder(f)
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	log := logger.NewStructured("warn", "console")
	assets := prediction.NewAssetCache(prediction.NewFileLoader(cfg, log), log)
	defer assets.Close()

	result, err := prediction.NewService(assets, log).Predict(context.Background(), payload)
	if err != nil {
		return fmt.Errorf("%s", prediction.UserMessage(err))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func help() {
	fmt.Println("Usage: artifact-check <command> [arguments]")
	fmt.Println("Commands:")
	fmt.Println("  validate  -model <path> -encoders <path> [-manifest <path>] [-format forest|onnx]")
	fmt.Println("  manifest  -model <path> -encoders <path> -out <path> -version <v>")
	fmt.Println("  predict   -model <path> -encoders <path> -payload <file.json>")
	fmt.Println("  help      Show this help message")
}
