package datatypes

// Document is one retrieved chunk of source material, ready to be
// stuffed into the answer prompt.
type Document struct {
	Content string  `json:"content"`
	Source  string  `json:"source"`
	Score   float64 `json:"score,omitempty"`
}

type SourceInfo struct {
	Source   string  `json:"source"`
	Distance float64 `json:"distance,omitempty"`
	Score    float64 `json:"score,omitempty"`
}

// SourcesFromDocuments collapses retrieved documents into the source
// attribution returned to API clients.
func SourcesFromDocuments(docs []Document) []SourceInfo {
	sources := make([]SourceInfo, 0, len(docs))
	seen := make(map[string]bool, len(docs))
	for _, d := range docs {
		if d.Source == "" || seen[d.Source] {
			continue
		}
		seen[d.Source] = true
		sources = append(sources, SourceInfo{Source: d.Source, Score: d.Score})
	}
	return sources
}

// TaxDocumentProperties represents the properties for creating a
// TaxDocument object in Weaviate.
type TaxDocumentProperties struct {
	Content    string `json:"content"`
	Source     string `json:"source"`
	ChunkIndex int    `json:"chunk_index"`
	IngestedAt int64  `json:"ingested_at"`
}

// ToMap converts TaxDocumentProperties to the map format required by
// Weaviate's WithProperties() method.
func (p *TaxDocumentProperties) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"content":     p.Content,
		"source":      p.Source,
		"chunk_index": p.ChunkIndex,
		"ingested_at": p.IngestedAt,
	}
}

// IngestRequest is the body for POST /v1/documents.
type IngestRequest struct {
	Source  string `json:"source" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// IngestResponse reports how many chunks were written.
type IngestResponse struct {
	Source string `json:"source"`
	Chunks int    `json:"chunks"`
}
