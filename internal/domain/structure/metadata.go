package structure

import "time"

// Metadata carries header information read from PDB files or structure
// documents.  Every field is optional.
type Metadata struct {
	Title                string     `json:"title,omitempty" yaml:"title,omitempty"`
	Released             *time.Time `json:"released,omitempty" yaml:"released,omitempty"`
	LatestRevision       *time.Time `json:"latest_revision,omitempty" yaml:"latest_revision,omitempty"`
	Resolution           *float64   `json:"resolution,omitempty" yaml:"resolution,omitempty"`
	ExperimentMethod     string     `json:"experiment_method,omitempty" yaml:"experiment_method,omitempty"`
	WeightKDa            float64    `json:"weight_kda,omitempty" yaml:"weight_kda,omitempty"`
	PolymerType          string     `json:"polymer_type,omitempty" yaml:"polymer_type,omitempty"`
	ProteinStoichiometry string     `json:"protein_stoichiometry,omitempty" yaml:"protein_stoichiometry,omitempty"`
	Authors              []string   `json:"authors,omitempty" yaml:"authors,omitempty"`
	Keywords             []string   `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	EntitySources        []string   `json:"entity_sources,omitempty" yaml:"entity_sources,omitempty"`
	ECNumbers            []string   `json:"ec_numbers,omitempty" yaml:"ec_numbers,omitempty"`
	OriginOrganisms      []string   `json:"origin_organisms,omitempty" yaml:"origin_organisms,omitempty"`
	OriginOrganismIDs    []string   `json:"origin_organism_ids,omitempty" yaml:"origin_organism_ids,omitempty"`
	OriginOrganismGenus  []string   `json:"origin_organism_genus,omitempty" yaml:"origin_organism_genus,omitempty"`
	HostOrganisms        []string   `json:"host_organisms,omitempty" yaml:"host_organisms,omitempty"`
	HostOrganismIDs      []string   `json:"host_organism_ids,omitempty" yaml:"host_organism_ids,omitempty"`
	HostOrganismGenus    []string   `json:"host_organism_genus,omitempty" yaml:"host_organism_genus,omitempty"`
}
