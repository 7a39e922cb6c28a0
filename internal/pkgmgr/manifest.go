package pkgmgr

import (
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v2"
)

type manifest struct {
	Managers []Manager `yaml:"managers"`
}

// LoadManifest reads package manager definitions from a YAML file:
//
//	managers:
//	  - name: pacman
//	    cache_dir: /var/cache/pacman
//	    db_path: /var/lib/pacman
//	    lockfile: /var/lib/pacman/db.lck
//	    pkglist_cmd: ["pacman", "-Qqe"]
func LoadManifest(path string) ([]Manager, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}

	for _, mgr := range m.Managers {
		if mgr.Name == "" {
			return nil, fmt.Errorf("manifest %s: manager without a name", path)
		}
	}
	return m.Managers, nil
}
