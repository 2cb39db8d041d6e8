package search

// Index mappings for the projection indices. Text fields carry per-language
// subfields because registered sources publish in Czech, English and Russian.

// Field represents an Elasticsearch field mapping.
type Field struct {
	Type          string           `json:"type,omitempty"`
	Analyzer      string           `json:"analyzer,omitempty"`
	Format        string           `json:"format,omitempty"`
	ScalingFactor int              `json:"scaling_factor,omitempty"`
	Fields        map[string]Field `json:"fields,omitempty"`
}

// IndexSettings defines index-level settings.
type IndexSettings struct {
	NumberOfShards   int            `json:"number_of_shards"`
	NumberOfReplicas int            `json:"number_of_replicas"`
	Analysis         map[string]any `json:"analysis,omitempty"`
}

// IndexMapping is the create-index request body.
type IndexMapping struct {
	Settings IndexSettings `json:"settings"`
	Mappings struct {
		Properties map[string]Field `json:"properties"`
	} `json:"mappings"`
}

// languageAnalysis builds the stemming/stopword analysis chain shared by both
// indices.
func languageAnalysis() map[string]any {
	return map[string]any{
		"filter": map[string]any{
			"czech_stop":    map[string]any{"type": "stop", "stopwords": "_czech_"},
			"czech_stemmer": map[string]any{"type": "stemmer", "language": "czech"},
			"english_possessive_stemmer": map[string]any{
				"type": "stemmer", "language": "possessive_english",
			},
			"english_stop":    map[string]any{"type": "stop", "stopwords": "_english_"},
			"english_stemmer": map[string]any{"type": "stemmer", "language": "english"},
			"russian_stop":    map[string]any{"type": "stop", "stopwords": "_russian_"},
			"russian_stemmer": map[string]any{"type": "stemmer", "language": "russian"},
		},
		"analyzer": map[string]any{
			"cs_analyzer": map[string]any{
				"tokenizer": "standard",
				"filter":    []string{"lowercase", "czech_stop", "czech_stemmer", "asciifolding"},
			},
			"en_analyzer": map[string]any{
				"tokenizer": "standard",
				"filter": []string{
					"english_possessive_stemmer", "lowercase",
					"english_stop", "english_stemmer", "asciifolding",
				},
			},
			"ru_analyzer": map[string]any{
				"tokenizer": "standard",
				"filter":    []string{"lowercase", "russian_stop", "russian_stemmer"},
			},
		},
	}
}

// multilingualText builds a text field with per-language subfields.
func multilingualText(withKeyword bool) Field {
	fields := map[string]Field{
		"cs": {Type: "text", Analyzer: "cs_analyzer"},
		"en": {Type: "text", Analyzer: "en_analyzer"},
		"ru": {Type: "text", Analyzer: "ru_analyzer"},
	}
	if withKeyword {
		fields["keyword"] = Field{Type: "keyword"}
	}
	return Field{Type: "text", Analyzer: "standard", Fields: fields}
}

// ArticleIndexMapping returns the mapping for the articles index.
func ArticleIndexMapping() *IndexMapping {
	m := &IndexMapping{
		Settings: IndexSettings{
			NumberOfShards:   1,
			NumberOfReplicas: 0,
			Analysis:         languageAnalysis(),
		},
	}
	m.Mappings.Properties = map[string]Field{
		"id":           {Type: "keyword"},
		"title":        multilingualText(true),
		"summary":      multilingualText(false),
		"content":      multilingualText(false),
		"url":          {Type: "keyword"},
		"published_at": {Type: "date"},
		"source_name":  {Type: "keyword"},
		"status":       {Type: "keyword"},
	}
	return m
}

// ProductIndexMapping returns the mapping for the products index. Price is a
// scaled_float with two decimal places.
func ProductIndexMapping() *IndexMapping {
	m := &IndexMapping{
		Settings: IndexSettings{
			NumberOfShards:   1,
			NumberOfReplicas: 0,
			Analysis:         languageAnalysis(),
		},
	}
	m.Mappings.Properties = map[string]Field{
		"id":          {Type: "keyword"},
		"name":        multilingualText(true),
		"description": multilingualText(false),
		"price":       {Type: "scaled_float", ScalingFactor: 100},
		"currency":    {Type: "keyword"},
		"article_id":  {Type: "keyword"},
	}
	return m
}
