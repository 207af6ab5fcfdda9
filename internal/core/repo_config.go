package core

// RepoConfig holds per-repository settings loaded from an optional
// .codehawk.yml file at the repository root.
type RepoConfig struct {
	// Review toggles review generation for the repository.
	Review struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"review"`

	// Index controls what the indexing pipeline ingests.
	Index struct {
		ExcludePaths []string `yaml:"exclude_paths"`
		ExcludeExts  []string `yaml:"exclude_exts"`
	} `yaml:"index"`
}

// DefaultRepoConfig returns the settings used when a repository ships no
// .codehawk.yml.
func DefaultRepoConfig() *RepoConfig {
	cfg := &RepoConfig{}
	cfg.Review.Enabled = true
	cfg.Index.ExcludePaths = []string{"vendor/", "node_modules/", ".git/"}
	return cfg
}
