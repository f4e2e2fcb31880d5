package utilities

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

type JsonConfigObj[T any] interface {
	ConvertToDomain() T
}

// ReadConfig decodes a JSON file into its wire type T and converts it to the
// domain type U.
func ReadConfig[T JsonConfigObj[U], U any](file string) (U, error) {
	var empty U

	fileContent, err := os.ReadFile(file)
	if err != nil {
		return empty, fmt.Errorf("read config %s: %w", file, err)
	}

	var config T
	if err := json.Unmarshal(fileContent, &config); err != nil {
		return empty, fmt.Errorf("parse config %s: %w", file, err)
	}

	return config.ConvertToDomain(), nil
}

// ReadConfigOrDefault behaves like ReadConfig but converts the zero wire value
// when the file does not exist, so every default lives in ConvertToDomain.
func ReadConfigOrDefault[T JsonConfigObj[U], U any](file string) (U, error) {
	cfg, err := ReadConfig[T, U](file)
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		var zero T
		return zero.ConvertToDomain(), nil
	}
	return cfg, err
}
