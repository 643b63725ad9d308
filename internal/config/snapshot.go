// Package config loads an immutable configuration snapshot for one pipeline
// lifetime: a root YAML file optionally deep-merged with a user-override
// YAML file, plus environment-variable fallbacks for deployment-specific
// values (URLs, keys, ports).
package config

// AutoSensitivity mirrors the auto-sensitivity descriptor from the data
// model: raises capture gain when recent chunks fall in a "too quiet" band
// and produced no transcription, with a cooldown.
type AutoSensitivity struct {
	Enabled        bool    `yaml:"enabled"`
	MinLevel       float64 `yaml:"min_level"`
	MaxLevel       float64 `yaml:"max_level"`
	Step           float64 `yaml:"step"`
	CooldownChunks int     `yaml:"cooldown_chunks"`
}

// Reconstruction mirrors the intent-reconstruction descriptor from the data
// model.
type Reconstruction struct {
	Enabled                bool   `yaml:"enabled"`
	RequestCertainty       bool   `yaml:"request_certainty"`
	UseAsResponse          bool   `yaml:"use_as_response"`
	CertaintyThreshold     int    `yaml:"certainty_threshold"`
	MinTranscriptionLength int    `yaml:"min_transcription_length"`
	SystemPrompt           string `yaml:"system_prompt"`
	UserTemplate           string `yaml:"user_template"`
}

// Logging configures the ambient slog JSON handler.
type Logging struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Persistence configures the SQLite store and optional Postgres trace sink.
type Persistence struct {
	DBPath     string `yaml:"db_path"`
	PostgresURL string `yaml:"postgres_url"`
}

// Profile configures the personalization profile builder's caps.
type Profile struct {
	UserContextMaxChars int `yaml:"user_context_max_chars"`
}

// Curation configures the background curation scheduler.
type Curation struct {
	IntervalSeconds          int     `yaml:"interval_seconds"`
	MinWeight                float64 `yaml:"min_weight"`
	MaxWeight                float64 `yaml:"max_weight"`
	CorrectionWeightBump     float64 `yaml:"correction_weight_bump"`
	PatternCountWeightScale  float64 `yaml:"pattern_count_weight_scale"`
	ExcludeEmptyTranscription bool   `yaml:"exclude_empty_transcription"`
	DeleteOlderThanDays      int     `yaml:"delete_older_than_days"`
}

// DocumentQA configures the optional document-QA retrieval path.
type DocumentQA struct {
	Enabled bool `yaml:"enabled"`
	TopK    int  `yaml:"top_k"`
}

// Browse configures the optional web-browse path.
type Browse struct {
	Enabled bool `yaml:"enabled"`
}

// Snapshot is the immutable configuration for one pipeline lifetime,
// rebuilt on restart. It is the Go expression of the spec's "Configuration
// snapshot" data-model entry.
type Snapshot struct {
	SampleRate         int    `yaml:"sample_rate"`
	ChunkDurationSeconds float64 `yaml:"chunk_duration_seconds"`
	InitialSensitivity float64 `yaml:"initial_sensitivity"`

	AutoSensitivity AutoSensitivity `yaml:"auto_sensitivity"`
	Reconstruction  Reconstruction  `yaml:"reconstruction"`
	Logging         Logging         `yaml:"logging"`
	Persistence     Persistence     `yaml:"persistence"`
	Profile         Profile         `yaml:"profile"`
	Curation        Curation        `yaml:"curation"`
	DocumentQA      DocumentQA      `yaml:"document_qa"`
	Browse          Browse          `yaml:"browse"`

	STTEngine  string `yaml:"stt_engine"`
	STTModel   string `yaml:"stt_model"`
	LLMBackend string `yaml:"llm_backend"`
	LLMModel   string `yaml:"llm_model"`
}

// chunkDurationMin and chunkDurationMax clamp Snapshot.ChunkDurationSeconds,
// matching the data model's "clamped 4-15" invariant.
const (
	chunkDurationMin = 4.0
	chunkDurationMax = 15.0

	sensitivityMin = 0.1
	sensitivityMax = 10.0
)

// Default returns a snapshot matching original_source/config.py's baseline
// values, used when no config.yaml is present.
func Default() Snapshot {
	return Snapshot{
		SampleRate:           16000,
		ChunkDurationSeconds: 8,
		InitialSensitivity:   1.0,
		AutoSensitivity: AutoSensitivity{
			Enabled:        true,
			MinLevel:       0.002,
			MaxLevel:       0.08,
			Step:           0.25,
			CooldownChunks: 3,
		},
		Reconstruction: Reconstruction{
			Enabled:            true,
			RequestCertainty:   true,
			UseAsResponse:      true,
			CertaintyThreshold: 70,
		},
		Logging: Logging{Level: "INFO", File: "talkie.log"},
		Persistence: Persistence{DBPath: "data/talkie.db"},
		Profile:     Profile{UserContextMaxChars: 2000},
		Curation: Curation{
			IntervalSeconds:           3600,
			MinWeight:                 0.0,
			MaxWeight:                 10.0,
			CorrectionWeightBump:      1.5,
			PatternCountWeightScale:   0.5,
			ExcludeEmptyTranscription: true,
		},
		DocumentQA: DocumentQA{Enabled: true, TopK: 5},
		Browse:     Browse{Enabled: true},
		STTEngine:  "whisper-server",
		LLMBackend: "ollama",
		LLMModel:   "llama3.2:3b",
	}
}

// normalize clamps fields that carry a data-model range invariant.
func (s *Snapshot) normalize() {
	if s.ChunkDurationSeconds < chunkDurationMin {
		s.ChunkDurationSeconds = chunkDurationMin
	}
	if s.ChunkDurationSeconds > chunkDurationMax {
		s.ChunkDurationSeconds = chunkDurationMax
	}
	if s.InitialSensitivity < sensitivityMin {
		s.InitialSensitivity = sensitivityMin
	}
	if s.InitialSensitivity > sensitivityMax {
		s.InitialSensitivity = sensitivityMax
	}
	if s.DocumentQA.TopK < 1 {
		s.DocumentQA.TopK = 1
	}
	if s.DocumentQA.TopK > 20 {
		s.DocumentQA.TopK = 20
	}
}
