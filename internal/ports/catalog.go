package ports

// CatalogEntry is one named record of the searchable catalog.
// Ids are not stored here: the catalog indexer assigns them by position.
type CatalogEntry struct {
	Name       string `json:"name"`
	Restricted bool   `json:"srd"` // member of the restricted (SRD) subset
}

// Observation is a raw (query, true name) pair taken from search logs.
type Observation struct {
	Query  string `json:"query"`
	Result string `json:"result"`
}

// LabeledQuery is a query paired with the catalog id it should resolve to.
// The id belongs to whichever universe (full or restricted) produced it.
type LabeledQuery struct {
	Query  string `json:"query"`
	Result int    `json:"result"`
}

// CatalogSource supplies the ordered catalog once per run.
type CatalogSource interface {
	LoadCatalog() ([]CatalogEntry, error)
}

// ObservationSource supplies raw observations for aggregation.
type ObservationSource interface {
	LoadObservations() ([]Observation, error)
}
