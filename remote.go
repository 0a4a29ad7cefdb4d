// Copyright The ActForGood Authors.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://github.com/actforgood/xcfg/blob/main/LICENSE.

package xcfg

import (
	"bytes"
	"encoding/json"

	"gopkg.in/yaml.v3"
)

const (
	// RemoteValueJSON indicates that content under a remote key is a JSON document.
	RemoteValueJSON = "json"
	// RemoteValueYAML indicates that content under a remote key is a YAML document.
	RemoteValueYAML = "yaml"
	// RemoteValuePlain indicates that content under a remote key is a plain property value.
	RemoteValuePlain = "plain"
)

// remoteKVPairConfigMap returns the configuration held by a remote key, according to format.
// A plain value is returned under propertyKey.
func remoteKVPairConfigMap(propertyKey string, value []byte, format string) (map[string]any, error) {
	configMap := make(map[string]any)
	switch format {
	case RemoteValueJSON:
		if err := json.Unmarshal(value, &configMap); err != nil {
			return nil, err
		}
	case RemoteValueYAML:
		if err := yaml.Unmarshal(value, &configMap); err != nil {
			return nil, err
		}
	default: // plain
		configMap[propertyKey] = string(bytes.TrimSpace(value))
	}

	return configMap, nil
}
