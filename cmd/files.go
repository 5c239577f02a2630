package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/prodplan/internal/adapters/workbook"
	"github.com/okian/prodplan/internal/domain/model"
)

// ErrUnsupportedFormat is returned for file extensions the CLI cannot handle.
var ErrUnsupportedFormat = errors.New("unsupported file format")

const outputPermission = 0o644

// readInput loads a week from an .xlsx workbook, a JSON document or a YAML
// document, chosen by extension.
func readInput(path string) (model.Input, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx":
		return workbook.ReadFile(path)
	case ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return model.Input{}, fmt.Errorf("read input: %w", err)
		}
		return decodeInput(data)
	case ".yaml", ".yml":
		k := koanf.New(".")
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return model.Input{}, fmt.Errorf("read input: %w", err)
		}
		// Day-keyed maps decode through their TextUnmarshaler, so the parsed
		// document is re-encoded and decoded as JSON.
		data, err := json.Marshal(k.Raw())
		if err != nil {
			return model.Input{}, fmt.Errorf("read input: %w", err)
		}
		return decodeInput(data)
	default:
		return model.Input{}, fmt.Errorf("%w: %q (want .xlsx, .json or .yaml)", ErrUnsupportedFormat, ext)
	}
}

func decodeInput(data []byte) (model.Input, error) {
	var in model.Input
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return model.Input{}, fmt.Errorf("decode input: %w", err)
	}
	return in, nil
}

// writeOutput stores out as an .xlsx workbook or a JSON document.
func writeOutput(path string, out *model.Output) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx":
		return workbook.WriteFile(path, out)
	case ".json":
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("encode output: %w", err)
		}
		if err := os.WriteFile(path, append(data, '\n'), outputPermission); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q (want .xlsx or .json)", ErrUnsupportedFormat, ext)
	}
}
