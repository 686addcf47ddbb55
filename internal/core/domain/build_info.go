package domain

import "time"

// OutputRecord remembers what was emitted for a unit and from which inputs.
type OutputRecord struct {
	Unit       string    `json:"unit,omitzero"`
	InputHash  string    `json:"input_hash,omitzero"`
	OutputHash string    `json:"output_hash,omitzero"`
	Format     string    `json:"format,omitzero"`
	OutputPath string    `json:"output_path,omitzero"`
	Timestamp  time.Time `json:"timestamp,omitzero"`
}
