// Package settings is the typed settings registry of the module.
//
// Every key is declared once with its value type, scope and default. The
// Store consults that schema when registering, writing and reading, so a
// value of the wrong type is rejected at Set and a stored value is decoded
// into its declared type at Get.
package settings

// Key names one setting. The string is the id persisted in the backend,
// below the module namespace.
type Key string

const (
	KeyDialogDisplay       Key = "dialogDisplay"
	KeyOutputWeatherToChat Key = "outputWeatherChat"
	KeyPublicChat          Key = "publicChat"
	KeyUseCelsius          Key = "useCelsius"
	KeyLastWeatherData     Key = "lastWeatherData"
	KeySeason              Key = "season"
	KeyBiome               Key = "biome"
	KeyClimate             Key = "climate"
	KeyHumidity            Key = "humidity"
	KeyWindowPosition      Key = "windowPosition"
)

// Scope says where a value lives.
type Scope int

const (
	// ScopeWorld values are shared by every process of a session.
	ScopeWorld Scope = iota
	// ScopeClient values are local to one process.
	ScopeClient
)

func (s Scope) String() string {
	if s == ScopeClient {
		return "client"
	}
	return "world"
}

// Visibility says whether a setting is shown to users.
type Visibility int

const (
	VisibilityConfig Visibility = iota
	VisibilityInternal
)

func (v Visibility) String() string {
	if v == VisibilityInternal {
		return "internal"
	}
	return "config"
}

// ValueType is the declared type tag of a setting.
type ValueType int

const (
	TypeBoolean ValueType = iota
	TypeString
	TypeNumber
	TypeWeatherData
	TypeWindowPosition
)

func (t ValueType) String() string {
	switch t {
	case TypeBoolean:
		return "boolean"
	case TypeString:
		return "string"
	case TypeNumber:
		return "number"
	case TypeWeatherData:
		return "weatherData"
	case TypeWindowPosition:
		return "windowPosition"
	default:
		return "unknown"
	}
}

// Definition declares one setting.
type Definition struct {
	Key        Key
	Type       ValueType
	Scope      Scope
	Visibility Visibility
	Default    any
	// Name and Hint are localization keys for config-visible settings and
	// plain labels for internal ones.
	Name string
	Hint string
}

// Definitions returns the schema of every setting the module uses.
func Definitions() []Definition {
	return []Definition{
		{Key: KeyOutputWeatherToChat, Type: TypeBoolean, Scope: ScopeWorld, Visibility: VisibilityConfig, Default: true,
			Name: "sweath.settings.OutputWeatherToChat", Hint: "sweath.settings.OutputWeatherToChatHelp"},
		{Key: KeyPublicChat, Type: TypeBoolean, Scope: ScopeWorld, Visibility: VisibilityConfig, Default: true,
			Name: "sweath.settings.PublicChat", Hint: "sweath.settings.PublicChatHelp"},
		{Key: KeyDialogDisplay, Type: TypeBoolean, Scope: ScopeWorld, Visibility: VisibilityConfig, Default: true,
			Name: "sweath.settings.DialogDisplay", Hint: "sweath.settings.DialogDisplayHelp"},
		{Key: KeyUseCelsius, Type: TypeBoolean, Scope: ScopeWorld, Visibility: VisibilityConfig, Default: false,
			Name: "sweath.settings.useCelsius", Hint: "sweath.settings.useCelsiusHelp"},

		{Key: KeyLastWeatherData, Type: TypeWeatherData, Scope: ScopeWorld, Visibility: VisibilityInternal, Default: nil,
			Name: "Last weather data"},
		{Key: KeySeason, Type: TypeString, Scope: ScopeWorld, Visibility: VisibilityInternal, Default: "",
			Name: "Last season"},
		{Key: KeyBiome, Type: TypeString, Scope: ScopeWorld, Visibility: VisibilityInternal, Default: "",
			Name: "Last biome"},
		{Key: KeyClimate, Type: TypeNumber, Scope: ScopeWorld, Visibility: VisibilityInternal, Default: 0.0,
			Name: "Last climate"},
		{Key: KeyHumidity, Type: TypeNumber, Scope: ScopeWorld, Visibility: VisibilityInternal, Default: 0.0,
			Name: "Last humidity"},

		{Key: KeyWindowPosition, Type: TypeWindowPosition, Scope: ScopeClient, Visibility: VisibilityInternal, Default: nil,
			Name: "Window Position"},
	}
}
