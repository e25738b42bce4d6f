package types

// Stats aggregates counts over one parse run. Computed once per scan as a
// pure post-pass over the merged entity map; read-only thereafter.
type Stats struct {
	EntityCount    int                `json:"entity_count"`
	FileCount      int                `json:"file_count"`
	ByType         map[EntityType]int `json:"by_type"`
	ByFile         map[string]int     `json:"by_file"`
	AvgEntityLines float64            `json:"avg_entity_lines"`
}

// ParseResult is the merged output of scanning one repository: every entity
// keyed by id, the list of scanned files, and aggregate statistics.
type ParseResult struct {
	Entities map[string]*Entity `json:"entities"`
	Files    []string           `json:"files"`
	Stats    Stats              `json:"stats"`
}

// ComputeStats derives aggregate statistics from a merged entity map and the
// scanned file list. The mean entity size is 0 when there are no entities.
func ComputeStats(entities map[string]*Entity, files []string) Stats {
	stats := Stats{
		EntityCount: len(entities),
		FileCount:   len(files),
		ByType:      make(map[EntityType]int),
		ByFile:      make(map[string]int),
	}

	totalLines := 0
	for _, e := range entities {
		stats.ByType[e.Type]++
		stats.ByFile[e.FilePath]++
		totalLines += e.Lines()
	}
	if len(entities) > 0 {
		stats.AvgEntityLines = float64(totalLines) / float64(len(entities))
	}
	return stats
}
