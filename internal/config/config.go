// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package config loads the hoststat collection configuration from a YAML file
// and watches that file for changes.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/antimetal/hoststat/pkg/performance"
)

// Load reads the YAML configuration at path. Unset fields take their defaults
// and the result is validated before it is returned.
//
// Example:
//
//	hostProcPath: /host/proc
//	allowedFilesystems: [ext4, xfs]
//	rounding: 1
//	sampleInterval: 500ms
func Load(path string) (performance.CollectionConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return performance.CollectionConfig{}, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data, path)
}

// Parse decodes a YAML configuration. name is only used in error messages.
func Parse(data []byte, name string) (performance.CollectionConfig, error) {
	var config performance.CollectionConfig

	if !isConfigFile(name) {
		return config, fmt.Errorf("unsupported file extension: %s", filepath.Ext(name))
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return config, fmt.Errorf("config file %s is empty", name)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		return config, fmt.Errorf("failed to unmarshal YAML %s: %w", name, err)
	}

	config.ApplyDefaults()
	if err := config.Validate(performance.ValidateOptions{}); err != nil {
		return config, fmt.Errorf("invalid config %s: %w", name, err)
	}
	return config, nil
}

func isConfigFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".yaml" || ext == ".yml"
}
