// Copyright The ActForGood Authors.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://github.com/actforgood/xcfg/blob/main/LICENSE.

package xcfg

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/magiconair/properties"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// ErrUnknownConfigFileExt is an error returned by [FileLoader] if file extension
// does not match any supported format.
var ErrUnknownConfigFileExt = errors.New("unknown configuration file extension")

// Supported configuration formats.
const (
	FormatProperties = "properties"
	FormatYAML       = "yaml"
	FormatJSON       = "json"
	FormatTOML       = "toml"
	FormatIni        = "ini"
	FormatDotEnv     = "env"
)

// decodeFunc parses a whole configuration content.
type decodeFunc func(content []byte) (map[string]any, error)

var decoders = map[string]decodeFunc{
	FormatProperties: decodeProperties,
	FormatYAML:       decodeYAML,
	FormatJSON:       decodeJSON,
	FormatTOML:       decodeTOML,
	FormatIni:        decodeIni,
	FormatDotEnv:     decodeDotEnv,
}

var extFormats = map[string]string{
	".properties": FormatProperties,
	".yaml":       FormatYAML,
	".yml":        FormatYAML,
	".json":       FormatJSON,
	".toml":       FormatTOML,
	".ini":        FormatIni,
	".env":        FormatDotEnv,
}

// FileLoader loads configuration from a file, the format being inferred
// from file's extension.
// Supported extensions are: .properties, .yml, .yaml, .json, .toml, .ini, .env.
// A file that cannot be read is reported with the original (fs) error,
// a file that cannot be parsed with a [MalformedFileError].
func FileLoader(filePath string) Loader {
	format, found := extFormats[filepath.Ext(filePath)]
	if !found {
		return LoaderFunc(func() (map[string]any, error) {
			return nil, NewMalformedFileError(filePath, ErrUnknownConfigFileExt)
		})
	}

	return LoaderFunc(func() (map[string]any, error) {
		content, err := os.ReadFile(filePath)
		if err != nil {
			return nil, err
		}
		configMap, err := decoders[format](content)
		if err != nil {
			return nil, NewMalformedFileError(filePath, err)
		}

		return configMap, nil
	})
}

// PropertiesFileLoader loads Java Properties configuration from a file.
// It is the usual bootstrap loader.
func PropertiesFileLoader(filePath string) Loader {
	return LoaderFunc(func() (map[string]any, error) {
		content, err := os.ReadFile(filePath)
		if err != nil {
			return nil, err
		}
		configMap, err := decodeProperties(content)
		if err != nil {
			return nil, NewMalformedFileError(filePath, err)
		}

		return configMap, nil
	})
}

// ReaderLoader loads configuration of given format from an [io.Reader].
// If the reader is also an [io.Seeker], it is rewound on each load.
func ReaderLoader(format string, reader io.Reader) Loader {
	return LoaderFunc(func() (map[string]any, error) {
		decode, found := decoders[format]
		if !found {
			return nil, ErrUnknownConfigFileExt
		}
		if seekReader, ok := reader.(io.Seeker); ok {
			if _, err := seekReader.Seek(0, io.SeekStart); err != nil {
				return nil, err
			}
		}
		content, err := io.ReadAll(reader)
		if err != nil {
			return nil, err
		}

		return decode(content)
	})
}

func decodeProperties(content []byte) (map[string]any, error) {
	loader := properties.Loader{Encoding: properties.UTF8}
	props, err := loader.LoadBytes(content)
	if err != nil {
		return nil, err
	}
	keys := props.Keys()

	configMap := make(map[string]any, len(keys))
	for _, key := range keys {
		value, _ := props.Get(key)
		configMap[key] = value
	}

	return configMap, nil
}

func decodeYAML(content []byte) (map[string]any, error) {
	configMap := make(map[string]any)
	if err := yaml.Unmarshal(content, &configMap); err != nil {
		return nil, err
	}

	return configMap, nil
}

func decodeJSON(content []byte) (map[string]any, error) {
	configMap := make(map[string]any)
	if err := json.Unmarshal(content, &configMap); err != nil {
		return nil, err
	}

	return configMap, nil
}

func decodeTOML(content []byte) (map[string]any, error) {
	configMap := make(map[string]any)
	if err := toml.Unmarshal(content, &configMap); err != nil {
		return nil, err
	}

	return configMap, nil
}

// decodeIni produces "key" for the default section and "section.key" otherwise.
func decodeIni(content []byte) (map[string]any, error) {
	cfg, err := ini.Load(content)
	if err != nil {
		return nil, err
	}

	configMap := make(map[string]any)
	for _, section := range cfg.Sections() {
		for _, key := range section.Keys() {
			name := key.Name()
			if section.Name() != ini.DefaultSection {
				name = section.Name() + "." + name
			}
			configMap[name] = key.Value()
		}
	}

	return configMap, nil
}

func decodeDotEnv(content []byte) (map[string]any, error) {
	envs, err := godotenv.UnmarshalBytes(content)
	if err != nil {
		return nil, err
	}

	configMap := make(map[string]any, len(envs))
	for key, value := range envs {
		configMap[key] = value
	}

	return configMap, nil
}
