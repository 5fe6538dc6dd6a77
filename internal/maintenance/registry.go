package maintenance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/woozymasta/bluescore/internal/models"
)

// ErrInvalidRegistry is returned when the registry file does not describe a usable competition.
var ErrInvalidRegistry = errors.New("maintenance: invalid registry file")

// Registry is the YAML document accepted by --db-import.
type Registry struct {
	Competition CompetitionEntry `koanf:"competition"`
	Teams       []TeamEntry      `koanf:"teams"`
	Services    []ServiceEntry   `koanf:"services"`
}

// CompetitionEntry holds the competition schedule.
type CompetitionEntry struct {
	Name          string `koanf:"name"`
	StartTime     string `koanf:"start_time"`
	DurationHours int    `koanf:"duration_hours"`
	RoundSeconds  int    `koanf:"round_seconds"`
}

// TeamEntry is one defended network. ID is derived from the name when omitted.
type TeamEntry struct {
	ID      string `koanf:"id"`
	Name    string `koanf:"name"`
	Address string `koanf:"address"`
}

// ServiceEntry is one service checked on every team. ID is derived from the name when omitted.
type ServiceEntry struct {
	ID       string `koanf:"id"`
	Name     string `koanf:"name"`
	Protocol string `koanf:"protocol"`
	Port     int    `koanf:"port"`
	Points   int    `koanf:"points"`
}

// ImportStore writes the registry.
type ImportStore interface {
	UpsertTeam(ctx context.Context, t models.Team) error
	UpsertService(ctx context.Context, s models.Service) error
	SetCompetition(ctx context.Context, c models.Competition) error
	InitChecks(ctx context.Context) error
}

// LoadRegistry reads and validates a registry file.
func LoadRegistry(path string) (*Registry, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load registry %s: %w", path, err)
	}

	var reg Registry
	if err := k.UnmarshalWithConf("", &reg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decode registry %s: %w", path, err)
	}

	if err := reg.normalize(); err != nil {
		return nil, err
	}

	return &reg, nil
}

// Import writes the registry and creates unknown check records for every new pair.
// Importing the same file twice does not duplicate teams or services.
func Import(ctx context.Context, store ImportStore, reg *Registry) error {
	comp, err := reg.Competition.model()
	if err != nil {
		return err
	}
	if err := store.SetCompetition(ctx, comp); err != nil {
		return fmt.Errorf("store competition: %w", err)
	}

	for _, t := range reg.Teams {
		if err := store.UpsertTeam(ctx, models.Team{ID: t.ID, Name: t.Name, Address: t.Address}); err != nil {
			return err
		}
	}
	for _, s := range reg.Services {
		svc := models.Service{ID: s.ID, Name: s.Name, Protocol: s.Protocol, Port: s.Port, PointValue: s.Points}
		if err := store.UpsertService(ctx, svc); err != nil {
			return err
		}
	}

	return store.InitChecks(ctx)
}

func (r *Registry) normalize() error {
	if len(r.Teams) == 0 || len(r.Services) == 0 {
		return fmt.Errorf("%w: at least one team and one service are required", ErrInvalidRegistry)
	}

	seen := make(map[string]struct{})
	for i := range r.Teams {
		t := &r.Teams[i]
		t.Name = strings.TrimSpace(t.Name)
		t.Address = strings.TrimSpace(t.Address)
		if t.Name == "" || t.Address == "" {
			return fmt.Errorf("%w: team #%d needs a name and an address", ErrInvalidRegistry, i+1)
		}
		if t.ID == "" {
			t.ID = stableID("team", t.Name)
		}
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("%w: duplicate team %q", ErrInvalidRegistry, t.ID)
		}
		seen[t.ID] = struct{}{}
	}

	clear(seen)
	for i := range r.Services {
		s := &r.Services[i]
		s.Name = strings.TrimSpace(s.Name)
		s.Protocol = strings.ToLower(strings.TrimSpace(s.Protocol))
		if s.Name == "" {
			return fmt.Errorf("%w: service #%d needs a name", ErrInvalidRegistry, i+1)
		}
		if s.Protocol == "" {
			s.Protocol = models.ProtocolTCP
		}
		if s.Port < 1 || s.Port > 65535 {
			return fmt.Errorf("%w: service %q has port %d", ErrInvalidRegistry, s.Name, s.Port)
		}
		if s.Points < 0 {
			return fmt.Errorf("%w: service %q has negative points", ErrInvalidRegistry, s.Name)
		}
		if s.Points == 0 {
			s.Points = models.DefaultPointValue
		}
		if s.ID == "" {
			s.ID = stableID("service", s.Name)
		}
		if _, dup := seen[s.ID]; dup {
			return fmt.Errorf("%w: duplicate service %q", ErrInvalidRegistry, s.ID)
		}
		seen[s.ID] = struct{}{}
	}

	return nil
}

func (c CompetitionEntry) model() (models.Competition, error) {
	comp := models.Competition{
		Name:          strings.TrimSpace(c.Name),
		Duration:      time.Duration(c.DurationHours) * time.Hour,
		RoundDuration: time.Duration(c.RoundSeconds) * time.Second,
	}
	if comp.Name == "" {
		comp.Name = "Cyber Defense Competition"
	}
	if comp.Duration <= 0 {
		comp.Duration = 8 * time.Hour
	}
	if comp.RoundDuration <= 0 {
		comp.RoundDuration = time.Minute
	}

	if c.StartTime == "" {
		comp.StartTime = time.Now().UTC().Truncate(time.Second)
		return comp, nil
	}

	start, err := time.Parse(time.RFC3339, c.StartTime)
	if err != nil {
		return comp, fmt.Errorf("%w: start_time: %v", ErrInvalidRegistry, err)
	}
	comp.StartTime = start.UTC()

	return comp, nil
}

// stableID derives a name based UUID so re-importing a file does not duplicate entries.
func stableID(kind, name string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(kind+":"+strings.ToLower(name))).String()
}
