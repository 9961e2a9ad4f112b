package types

// Campaign is one fuzzing campaign under analysis
type Campaign struct {
	Name        string `yaml:"name" json:"name"`
	FindingsDir string `yaml:"dir" json:"findings_dir"`
}

// the two campaigns of the positional command line, in report order
const (
	RedisCampaignName = "Redis Protocol"
	HTTPCampaignName  = "HTTP Protocol"
)
