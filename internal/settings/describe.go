package settings

import "context"

// Localizer resolves localization keys. Unknown keys come back unchanged.
type Localizer interface {
	Localize(key string) string
}

// Description is one row of the settings listing.
type Description struct {
	Definition
	FullKey string
	Label   string
	Help    string
	Value   any
}

// Describe lists every registered setting with its current value. Names and
// hints of config-visible settings are resolved through loc.
func (s *Store) Describe(ctx context.Context, loc Localizer) ([]Description, error) {
	defs := s.Definitions()
	out := make([]Description, 0, len(defs))
	for _, def := range defs {
		value, err := s.Get(ctx, def.Key)
		if err != nil {
			return nil, err
		}
		d := Description{
			Definition: def,
			FullKey:    s.FullyQualified(def.Key),
			Label:      def.Name,
			Help:       def.Hint,
			Value:      value,
		}
		if def.Visibility == VisibilityConfig && loc != nil {
			d.Label = loc.Localize(def.Name)
			if def.Hint != "" {
				d.Help = loc.Localize(def.Hint)
			}
		}
		out = append(out, d)
	}
	return out, nil
}
