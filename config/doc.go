// Package config loads the YAML file that describes a host process.
//
//	codec: json
//	tick_interval: 16ms
//	resources:
//	  - key: Counter
//	    type: int
//	    value: 42
//	modules:
//	  - name: counter
//	    path: ./counter.wasm
//
// Parse applies defaults and validates field constraints. Descriptors and
// Seed turn the resources section into registry entries and initial state.
// Schema emits the JSON schema of the file format.
package config
