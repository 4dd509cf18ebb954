// Package paths provides centralized path construction for the virtconf
// configuration directory.
package paths

import "path/filepath"

// Paths provides typed path construction for the configuration directory.
type Paths struct {
	baseDir string
}

// New creates a new Paths instance for the given base directory.
func New(baseDir string) *Paths {
	return &Paths{baseDir: baseDir}
}

// BaseDir returns the root configuration directory.
func (p *Paths) BaseDir() string {
	return p.baseDir
}

// ConfigDir returns the directory holding persistent domain definitions.
func (p *Paths) ConfigDir() string {
	return filepath.Join(p.baseDir, "domains")
}

// DomainConfig returns the path to a domain's persistent definition.
func (p *Paths) DomainConfig(name string) string {
	return filepath.Join(p.ConfigDir(), name+".xml")
}

// AutostartDir returns the directory of autostart symlinks.
func (p *Paths) AutostartDir() string {
	return filepath.Join(p.baseDir, "domains", "autostart")
}

// DomainAutostartLink returns the path of a domain's autostart symlink.
func (p *Paths) DomainAutostartLink(name string) string {
	return filepath.Join(p.AutostartDir(), name+".xml")
}

// StatusDir returns the directory holding live domain state documents.
func (p *Paths) StatusDir() string {
	return filepath.Join(p.baseDir, "run", "domains")
}

// DomainStatus returns the path to a domain's live state document.
func (p *Paths) DomainStatus(name string) string {
	return filepath.Join(p.StatusDir(), name+".xml")
}
