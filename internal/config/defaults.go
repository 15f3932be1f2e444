package config

import "time"

// DefaultAdminPassword is used when no admin password is configured.
// Callers should warn when it is in effect.
const DefaultAdminPassword = "admin123"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "./data/kbassist.db"
	}
	if cfg.Storage.PDFDir == "" {
		cfg.Storage.PDFDir = "./data/pdfs"
	}
	if cfg.Storage.BackupDir == "" {
		cfg.Storage.BackupDir = "./data/pdf_backups"
	}
	if cfg.Storage.EmbeddingsDir == "" {
		cfg.Storage.EmbeddingsDir = "./data/static_embeddings"
	}
	if cfg.Chunking.ChunkSize == 0 {
		cfg.Chunking.ChunkSize = 1000
	}
	if cfg.Chunking.Overlap == 0 {
		cfg.Chunking.Overlap = 200
	}
	if cfg.Chunking.Separator == "" {
		cfg.Chunking.Separator = "\n"
	}
	if cfg.Index.MaxFeatures == 0 {
		cfg.Index.MaxFeatures = 10000
	}
	if cfg.Index.MinDF == 0 {
		cfg.Index.MinDF = 2
	}
	if cfg.Index.MaxDF == 0 {
		cfg.Index.MaxDF = 0.95
	}
	if cfg.Index.SmallCorpus == 0 {
		cfg.Index.SmallCorpus = 10
	}
	if cfg.Search.K == 0 {
		cfg.Search.K = 30
	}
	if cfg.Search.ScoreThreshold == 0 {
		cfg.Search.ScoreThreshold = 0.42
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4o-mini"
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 60 * time.Second
	}
	if cfg.Mirror.Prefix == "" {
		cfg.Mirror.Prefix = "embeddings"
	}
	if cfg.Admin.Password == "" {
		cfg.Admin.Password = DefaultAdminPassword
	}
	if cfg.Admin.SessionTimeout == 0 {
		cfg.Admin.SessionTimeout = time.Hour
	}
	if cfg.Upload.MaxFileSizeMB == 0 {
		cfg.Upload.MaxFileSizeMB = 50
	}
	if cfg.Upload.MaxFiles == 0 {
		cfg.Upload.MaxFiles = 10
	}
	if cfg.Upload.AllowedExtensions == nil {
		cfg.Upload.AllowedExtensions = []string{".pdf"}
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 2 * time.Second
	}
}
