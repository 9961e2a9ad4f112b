package analysis

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"protofuzz/internal/types"
)

type campaignFile struct {
	Campaigns []types.Campaign `yaml:"campaigns"`
}

// LoadCampaigns reads a campaigns file:
//
//	campaigns:
//	  - name: Redis Protocol
//	    dir: out/redis
//
// Relative directories are resolved against the file's own directory.
func LoadCampaigns(path string) ([]types.Campaign, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read campaigns file: %w", err)
	}
	var file campaignFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse campaigns file %s: %w", path, err)
	}
	if len(file.Campaigns) == 0 {
		return nil, fmt.Errorf("campaigns file %s lists no campaigns", path)
	}

	base := filepath.Dir(path)
	seen := make(map[string]bool, len(file.Campaigns))
	for i, c := range file.Campaigns {
		if c.Name == "" || c.FindingsDir == "" {
			return nil, fmt.Errorf("campaign #%d in %s needs both name and dir", i+1, path)
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("campaign %q listed twice in %s", c.Name, path)
		}
		seen[c.Name] = true
		if !filepath.IsAbs(c.FindingsDir) {
			file.Campaigns[i].FindingsDir = filepath.Join(base, c.FindingsDir)
		}
	}
	return file.Campaigns, nil
}
