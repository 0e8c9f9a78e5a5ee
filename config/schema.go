package config

import (
	"github.com/invopop/jsonschema"
	jsoniter "github.com/json-iterator/go"
)

// Schema returns the JSON schema of the config file.
func Schema() ([]byte, error) {
	r := jsonschema.Reflector{ExpandedStruct: true}
	s := r.Reflect(&Config{})
	s.Title = "wavedash host configuration"
	return jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(s, "", "  ")
}
