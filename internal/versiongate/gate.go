package versiongate

import (
	"log/slog"

	"github.com/xdy-forks/foundry-simple-weather/internal/calendar"
	"github.com/xdy-forks/foundry-simple-weather/internal/logfields"
)

const (
	// DefaultMinimum is the oldest supported calendar module version.
	DefaultMinimum = "2.4.0"
	// DefaultDependency is the module id of the calendar dependency.
	DefaultDependency = calendar.DependencyID
)

// Registry reports installed module versions.
type Registry interface {
	InstalledVersion(id string) (string, bool)
}

// RegistryFunc adapts a function to Registry.
type RegistryFunc func(id string) (string, bool)

func (f RegistryFunc) InstalledVersion(id string) (string, bool) { return f(id) }

// StaticRegistry is a Registry backed by a map of module id to version.
type StaticRegistry map[string]string

func (r StaticRegistry) InstalledVersion(id string) (string, bool) {
	v, ok := r[id]
	return v, ok && v != ""
}

// Notifier shows user-visible error notifications.
type Notifier interface {
	Error(msg string)
}

// Localizer formats localized messages.
type Localizer interface {
	Format(key string, args ...any) string
	Has(key string) bool
}

// Result is the outcome of a check.
type Result struct {
	Passed    bool
	Minimum   string
	Installed string
	Found     bool
}

// Check compares an installed version against minimum without side effects.
func Check(minimum, installed string, found bool) Result {
	return Result{
		Passed:    found && Satisfies(installed, minimum),
		Minimum:   minimum,
		Installed: installed,
		Found:     found,
	}
}

// Gate checks the calendar dependency once at startup.
type Gate struct {
	Dependency string
	Minimum    string
	Registry   Registry
	Notifier   Notifier
	Localizer  Localizer
	Logger     *slog.Logger
}

// Run checks the dependency. On failure it sends two notifications, the
// requirement and the version found, and returns a failed Result.
func (g *Gate) Run() Result {
	dep := g.Dependency
	if dep == "" {
		dep = DefaultDependency
	}
	minimum := g.Minimum
	if minimum == "" {
		minimum = DefaultMinimum
	}
	logger := g.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var installed string
	var found bool
	if g.Registry != nil {
		installed, found = g.Registry.InstalledVersion(dep)
	}
	res := Check(minimum, installed, found)
	if res.Passed {
		logger.Info("Calendar dependency accepted", logfields.Version(installed), logfields.Minimum(minimum))
		return res
	}

	logger.Error("Calendar dependency missing or too old; module disabled",
		logfields.Version(installed), logfields.Minimum(minimum))
	if g.Notifier != nil {
		g.Notifier.Error(g.requirementMessage(minimum))
		g.Notifier.Error(g.foundMessage(installed, found))
	}
	return res
}

func (g *Gate) requirementMessage(minimum string) string {
	if g.Localizer != nil && g.Localizer.Has("sweath.errors.versionRequired") {
		return g.Localizer.Format("sweath.errors.versionRequired", minimum)
	}
	return "Simple Weather cannot initialize and requires Simple Calendar v" + minimum +
		". Make sure the latest version of Simple Calendar is installed."
}

func (g *Gate) foundMessage(installed string, found bool) string {
	shown := installed
	if !found {
		shown = "none"
		if g.Localizer != nil && g.Localizer.Has("sweath.errors.versionNone") {
			shown = g.Localizer.Format("sweath.errors.versionNone")
		}
	}
	if g.Localizer != nil && g.Localizer.Has("sweath.errors.versionFound") {
		return g.Localizer.Format("sweath.errors.versionFound", shown)
	}
	return "Version found: " + shown
}
