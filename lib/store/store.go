// Package store persists domain configuration under the virtconf base
// directory: one XML document per defined domain, a parallel tree of live
// status documents, and autostart symlinks.
package store

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"

	"github.com/virtconf/virtconf/lib/domain"
	"github.com/virtconf/virtconf/lib/logger"
	"github.com/virtconf/virtconf/lib/paths"
)

// Store reads and writes the on-disk layout.
type Store struct {
	paths *paths.Paths
}

// New creates a store over the given path layout.
func New(p *paths.Paths) *Store {
	return &Store{paths: p}
}

// securePath joins the domain-derived file name against root so a crafted
// name cannot escape the layout.
func securePath(root, file string) (string, error) {
	if file == "" || strings.ContainsAny(file, "/\\") {
		return "", fmt.Errorf("%w: %q", ErrBadName, file)
	}
	joined, err := securejoin.SecureJoin(root, file)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrBadName, file)
	}
	return joined, nil
}

// linkPath is securePath for the autostart entries. The final component is
// itself a symlink whose relative target points back into the config dir, so
// it must not be resolved against the autostart root.
func linkPath(root, file string) (string, error) {
	if file == "" || file == "." || file == ".." || strings.ContainsAny(file, "/\\") {
		return "", fmt.Errorf("%w: %q", ErrBadName, file)
	}
	return filepath.Join(root, file), nil
}

// atomicWrite writes data next to path and renames it into place.
func atomicWrite(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".new"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// SaveConfig writes the persistent definition: inactive view, secrets kept.
func (s *Store) SaveConfig(ctx context.Context, def *domain.Definition) error {
	log := logger.FromContext(ctx)
	path, err := securePath(s.paths.ConfigDir(), def.Name+".xml")
	if err != nil {
		return err
	}
	data, err := domain.Format(def, domain.FormatSecure|domain.FormatInactive)
	if err != nil {
		return err
	}
	if err := atomicWrite(path, data); err != nil {
		return fmt.Errorf("writing domain config: %w", err)
	}
	log.Debug("saved domain config", "name", def.Name, "path", path)
	return nil
}

// LoadConfig reads and parses a persistent definition.
func (s *Store) LoadConfig(ctx context.Context, name string, opts *domain.ParseOptions) (*domain.Definition, error) {
	path, err := securePath(s.paths.ConfigDir(), name+".xml")
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("reading domain config: %w", err)
	}
	def, err := domain.Parse(data, opts)
	if err != nil {
		return nil, fmt.Errorf("parsing config for %q: %w", name, err)
	}
	if def.Name != name {
		return nil, fmt.Errorf("config file %q names domain %q", name, def.Name)
	}
	return def, nil
}

// DeleteConfig removes the definition and any autostart link.
func (s *Store) DeleteConfig(ctx context.Context, name string) error {
	log := logger.FromContext(ctx)
	path, err := securePath(s.paths.ConfigDir(), name+".xml")
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return fmt.Errorf("removing domain config: %w", err)
	}
	if link, err := linkPath(s.paths.AutostartDir(), name+".xml"); err == nil {
		os.Remove(link)
	}
	log.Debug("deleted domain config", "name", name)
	return nil
}

// ListConfigs returns the names of all stored definitions.
func (s *Store) ListConfigs(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.paths.ConfigDir())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing domain configs: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".xml") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".xml"))
	}
	return names, nil
}

// SetAutostart creates or removes the autostart symlink for a stored
// definition.
func (s *Store) SetAutostart(ctx context.Context, name string, enable bool) error {
	log := logger.FromContext(ctx)
	cfg, err := securePath(s.paths.ConfigDir(), name+".xml")
	if err != nil {
		return err
	}
	if _, err := os.Stat(cfg); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return err
	}
	link, err := linkPath(s.paths.AutostartDir(), name+".xml")
	if err != nil {
		return err
	}
	if !enable {
		if err := os.Remove(link); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing autostart link: %w", err)
		}
		log.Debug("autostart disabled", "name", name)
		return nil
	}
	if err := os.MkdirAll(s.paths.AutostartDir(), 0o755); err != nil {
		return err
	}
	if err := os.Symlink(filepath.Join("..", name+".xml"), link); err != nil && !os.IsExist(err) {
		return fmt.Errorf("creating autostart link: %w", err)
	}
	log.Debug("autostart enabled", "name", name)
	return nil
}

// Autostart reports whether the autostart link exists.
func (s *Store) Autostart(name string) bool {
	link, err := linkPath(s.paths.AutostartDir(), name+".xml")
	if err != nil {
		return false
	}
	_, err = os.Lstat(link)
	return err == nil
}

// BEGIN status documents ---------------------------------------------------

// Status is the live state persisted across daemon restarts: the running
// definition wrapped in an envelope of runtime facts.
type Status struct {
	State  domain.DomState
	Reason domain.StateReason
	PID    int
	Taints []domain.Taint
	Def    *domain.Definition
}

type taintElement struct {
	Flag string `xml:"flag,attr"`
}

type statusEnvelope struct {
	XMLName xml.Name           `xml:"domstatus"`
	State   string             `xml:"state,attr"`
	Reason  string             `xml:"reason,attr"`
	PID     int                `xml:"pid,attr"`
	Taints  []taintElement     `xml:"taint"`
	Def     *domain.Definition `xml:"domain"`
}

// SaveStatus writes the status document for an active domain. Secrets and
// runtime-only state are kept; this file is never shown to users.
func (s *Store) SaveStatus(ctx context.Context, st *Status) error {
	log := logger.FromContext(ctx)
	path, err := securePath(s.paths.StatusDir(), st.Def.Name+".xml")
	if err != nil {
		return err
	}
	env := statusEnvelope{
		State:  string(st.State),
		Reason: string(st.Reason),
		PID:    st.PID,
		Def:    st.Def,
	}
	for _, t := range st.Taints {
		env.Taints = append(env.Taints, taintElement{Flag: t.String()})
	}
	data, err := xml.MarshalIndent(&env, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding domain status: %w", err)
	}
	if err := atomicWrite(path, append(data, '\n')); err != nil {
		return fmt.Errorf("writing domain status: %w", err)
	}
	log.Debug("saved domain status", "name", st.Def.Name, "state", st.State)
	return nil
}

// LoadStatus reads a status document back, reparsing the embedded
// definition through the full pipeline.
func (s *Store) LoadStatus(ctx context.Context, name string, opts *domain.ParseOptions) (*Status, error) {
	path, err := securePath(s.paths.StatusDir(), name+".xml")
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: status for %q", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("reading domain status: %w", err)
	}
	var env statusEnvelope
	if err := xml.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding domain status: %w", err)
	}
	if env.Def == nil {
		return nil, fmt.Errorf("status for %q has no domain element", name)
	}
	if err := domain.PostParse(env.Def, opts); err != nil {
		return nil, fmt.Errorf("parsing status for %q: %w", name, err)
	}
	st := &Status{
		State:  domain.DomState(env.State),
		Reason: domain.StateReason(env.Reason),
		PID:    env.PID,
		Def:    env.Def,
	}
	if !domain.ValidState(st.State) {
		st.State = domain.StateNoState
	}
	st.Reason = domain.NormalizeReason(st.State, st.Reason)
	for _, te := range env.Taints {
		if t, ok := domain.TaintFromName(te.Flag); ok {
			st.Taints = append(st.Taints, t)
		}
	}
	return st, nil
}

// DeleteStatus removes the status document once a domain stops.
func (s *Store) DeleteStatus(ctx context.Context, name string) error {
	path, err := securePath(s.paths.StatusDir(), name+".xml")
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing domain status: %w", err)
	}
	return nil
}

// END status documents -----------------------------------------------------
